package dataset

import "github.com/google/uuid"

// EventKind names a dataset notification.
type EventKind string

const (
	EventSchemaChanged   EventKind = "schema_changed"
	EventRecordsReset    EventKind = "records_reset"
	EventRecordAdded     EventKind = "record_added"
	EventRecordRemoved   EventKind = "record_removed"
	EventRecordChanged   EventKind = "record_changed"
	EventRecordIncubated EventKind = "record_incubated"
	EventReordered       EventKind = "reordered"
	EventMarksCleared    EventKind = "marks_cleared"
)

// Event is published to subscribers after the mutation that caused it has
// completed.
type Event struct {
	Kind     EventKind `json:"kind"`
	RecordID uuid.UUID `json:"record_id,omitzero"`
	Row      int       `json:"row"`
	Fields   []string  `json:"fields,omitempty"`
	Count    int       `json:"count"`
}

// Subscribe registers a listener and returns its channel. Events are dropped
// for a listener whose buffer is full. The channel is closed by Unsubscribe
// or Close.
func (d *Dataset) Subscribe() <-chan Event {
	ch := make(chan Event, d.opts.EventBuffer)

	d.listenerMu.Lock()
	d.listeners = append(d.listeners, ch)
	d.listenerMu.Unlock()
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (d *Dataset) Unsubscribe(ch <-chan Event) {
	d.listenerMu.Lock()
	defer d.listenerMu.Unlock()

	for i, l := range d.listeners {
		if l == ch {
			d.listeners = append(d.listeners[:i], d.listeners[i+1:]...)
			close(l)
			return
		}
	}
}

// Close closes every subscriber channel.
func (d *Dataset) Close() {
	d.listenerMu.Lock()
	defer d.listenerMu.Unlock()

	for _, l := range d.listeners {
		close(l)
	}
	d.listeners = nil
}

// queue records an event for delivery once the current operation unlocks.
// Callers hold d.mu.
func (d *Dataset) queue(e Event) {
	d.pending = append(d.pending, e)
}

// unlock releases d.mu and then delivers the queued events.
func (d *Dataset) unlock() {
	events := d.pending
	d.pending = nil
	d.mu.Unlock()

	if len(events) == 0 {
		return
	}

	d.listenerMu.Lock()
	defer d.listenerMu.Unlock()
	for _, e := range events {
		for _, l := range d.listeners {
			select {
			case l <- e:
			default:
				d.log.Warn("dropping event for slow subscriber", "kind", e.Kind)
			}
		}
	}
}
