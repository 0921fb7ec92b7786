// Package record aggregates the values of one row from one or more value
// sources and relays their changes as a single, minimal event per change.
//
// Each [ValueSource] owns a contiguous range of the record's fields, in the
// order the sources were added. Sources report changes with source-local field
// indexes through [SourceBase], which shifts them to record-local indexes.
// The [Record] writes the new values into its vector and forwards one [Event]
// to its [Listener]:
//
//   - a discrete batch of changes becomes EventFieldsChanged, whatever its size
//   - a bulk replacement of every field becomes EventRecordChanged
//   - any other bulk replacement becomes EventFieldRunChanged
//   - the first moment all sources are incubated becomes EventIncubated
//
// Records are single-threaded; callers serialize access.
package record

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/xilytix/revdatasource/internal/value"
)

// Record is the ordered value vector of one row.
type Record struct {
	id    uuid.UUID
	index int

	sources    []ValueSource
	values     []*value.Value
	fieldCount int

	beenIncubated bool
	active        bool
	activating    bool

	listener Listener
}

// New creates an empty record with a fresh identity.
func New(index int) *Record {
	return &Record{
		id:    uuid.New(),
		index: index,
	}
}

// ID returns the record's identity.
func (r *Record) ID() uuid.UUID { return r.id }

// Index returns the record's index in its collection.
func (r *Record) Index() int { return r.index }

// SetIndex renumbers the record. Sources deriving values from the index are
// refreshed by the owner.
func (r *Record) SetIndex(i int) { r.index = i }

// SetListener attaches the listener receiving the record's events.
func (r *Record) SetListener(l Listener) { r.listener = l }

// FieldCount returns the total number of fields across all sources.
func (r *Record) FieldCount() int { return r.fieldCount }

// Sources returns the attached sources in order. The slice must not be modified.
func (r *Record) Sources() []ValueSource { return r.sources }

// Active reports whether the record is between Activate and Deactivate.
func (r *Record) Active() bool { return r.active }

// BeenIncubated reports whether every source has been incubated.
func (r *Record) BeenIncubated() bool { return r.beenIncubated }

// AddSource appends src, binding it to the fields following those of the
// previously added sources. Until the record is activated the new fields hold
// undefined values.
func (r *Record) AddSource(src ValueSource) {
	src.Bind(r.fieldCount, sourceHandler{r})
	r.sources = append(r.sources, src)
	r.fieldCount += src.FieldCount()

	for i := 0; i < src.FieldCount(); i++ {
		r.values = append(r.values, value.NewUndefined(nil))
	}
	r.beenIncubated = false
}

// Activate pulls the initial values from every source in order.
func (r *Record) Activate() {
	r.activating = true
	values := make([]*value.Value, 0, r.fieldCount)
	for _, src := range r.sources {
		vs := src.Activate()
		if len(vs) != src.FieldCount() {
			r.activating = false
			panic(fmt.Sprintf("record: source returned %d values for %d fields", len(vs), src.FieldCount()))
		}
		values = append(values, vs...)
	}
	r.activating = false

	r.values = values
	r.active = true
	r.beenIncubated = r.allSourcesIncubated()
}

// Deactivate releases every source. Values stay readable.
func (r *Record) Deactivate() {
	for _, src := range r.sources {
		src.Deactivate()
	}
	r.active = false
}

// Value returns the value of the field at the record-local index. It panics
// if index is out of range.
func (r *Record) Value(index int) *value.Value {
	return r.values[index]
}

// Values returns the record's value vector. The slice must not be modified.
func (r *Record) Values() []*value.Value { return r.values }

// AllValues returns a snapshot of every source's values in order. With a
// single source its snapshot is returned as is.
func (r *Record) AllValues() []*value.Value {
	if len(r.sources) == 1 {
		return r.sources[0].AllValues()
	}
	all := make([]*value.Value, 0, r.fieldCount)
	for _, src := range r.sources {
		all = append(all, src.AllValues()...)
	}
	return all
}

// ClearRendering drops the cached projection of every value so the next read
// recomputes it. Data is untouched.
func (r *Record) ClearRendering() {
	for _, v := range r.values {
		v.ClearRendering()
	}
}

func (r *Record) allSourcesIncubated() bool {
	for _, src := range r.sources {
		if !src.Incubated() {
			return false
		}
	}
	return true
}

func (r *Record) notify(e Event) {
	if r.listener != nil {
		r.listener.RecordChanged(r, e)
	}
}

func (r *Record) valuesChanged(changes []ValueChange) {
	for _, c := range changes {
		r.values[c.FieldIndex] = c.Value
	}
	r.notify(Event{Kind: EventFieldsChanged, Changes: changes})
}

func (r *Record) allValuesChanged(first int, values []*value.Value) {
	if first < 0 || first+len(values) > r.fieldCount {
		panic(fmt.Sprintf("record: bulk change %d+%d outside %d fields", first, len(values), r.fieldCount))
	}
	copy(r.values[first:], values)

	if first == 0 && len(values) == r.fieldCount {
		r.notify(Event{Kind: EventRecordChanged, FieldCount: r.fieldCount})
		return
	}
	r.notify(Event{Kind: EventFieldRunChanged, FirstFieldIndex: first, FieldCount: len(values)})
}

func (r *Record) becameIncubated() {
	if r.beenIncubated || r.activating {
		return
	}
	if r.allSourcesIncubated() {
		r.beenIncubated = true
		r.notify(Event{Kind: EventIncubated})
	}
}

// sourceHandler routes a source's notifications into its record.
type sourceHandler struct {
	r *Record
}

func (h sourceHandler) ValuesChanged(changes []ValueChange) { h.r.valuesChanged(changes) }
func (h sourceHandler) BecameIncubated()                    { h.r.becameIncubated() }

func (h sourceHandler) AllValuesChanged(first int, values []*value.Value) {
	h.r.allValuesChanged(first, values)
}
