package record

// EventKind identifies the granularity of a record change.
type EventKind int

const (
	// EventFieldsChanged carries a discrete batch of field changes.
	EventFieldsChanged EventKind = iota

	// EventFieldRunChanged reports that FieldCount consecutive fields from
	// FirstFieldIndex were replaced.
	EventFieldRunChanged

	// EventRecordChanged reports that every field was replaced.
	EventRecordChanged

	// EventIncubated reports that all sources became incubated. It fires at
	// most once per record.
	EventIncubated
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventFieldsChanged:
		return "fields_changed"
	case EventFieldRunChanged:
		return "field_run_changed"
	case EventRecordChanged:
		return "record_changed"
	case EventIncubated:
		return "incubated"
	default:
		return "unknown"
	}
}

// Event is a record change notification.
type Event struct {
	Kind            EventKind
	Changes         []ValueChange // EventFieldsChanged
	FirstFieldIndex int           // EventFieldRunChanged
	FieldCount      int           // EventFieldRunChanged, EventRecordChanged
}

// Touches reports whether the event changed the value of the field at the
// record-local index.
func (e Event) Touches(fieldIndex int) bool {
	switch e.Kind {
	case EventFieldsChanged:
		for _, c := range e.Changes {
			if c.FieldIndex == fieldIndex {
				return true
			}
		}
		return false
	case EventFieldRunChanged:
		return fieldIndex >= e.FirstFieldIndex && fieldIndex < e.FirstFieldIndex+e.FieldCount
	case EventRecordChanged:
		return true
	default:
		return false
	}
}

// FieldIndexes lists the record-local indexes the event changed.
func (e Event) FieldIndexes() []int {
	switch e.Kind {
	case EventFieldsChanged:
		idxs := make([]int, len(e.Changes))
		for i, c := range e.Changes {
			idxs[i] = c.FieldIndex
		}
		return idxs
	case EventFieldRunChanged, EventRecordChanged:
		idxs := make([]int, e.FieldCount)
		for i := range idxs {
			idxs[i] = e.FirstFieldIndex + i
		}
		return idxs
	default:
		return nil
	}
}

// Listener receives record events synchronously.
type Listener interface {
	RecordChanged(r *Record, e Event)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(r *Record, e Event)

// RecordChanged calls f(r, e).
func (f ListenerFunc) RecordChanged(r *Record, e Event) { f(r, e) }
