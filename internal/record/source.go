package record

import (
	"github.com/xilytix/revdatasource/internal/value"
)

// ValueChange reports a new value for one field.
type ValueChange struct {
	FieldIndex int
	Value      *value.Value
	Kind       value.ChangeKind
}

// SourceHandler receives change notifications from a value source. Field
// indexes are record-local.
type SourceHandler interface {
	ValuesChanged(changes []ValueChange)
	AllValuesChanged(firstFieldIndex int, values []*value.Value)
	BecameIncubated()
}

// ValueSource provides the values for a contiguous range of a record's
// fields. A source belongs to exactly one record.
type ValueSource interface {
	// FieldCount is the number of fields the source owns.
	FieldCount() int

	// FirstFieldIndexOffset is the record-local index of the source's first
	// field. It is assigned by Bind.
	FirstFieldIndexOffset() int

	// Incubated reports whether the source's values are known to be complete
	// and correct. It never reverts to false.
	Incubated() bool

	// Bind attaches the source to its record at the given offset.
	Bind(offset int, h SourceHandler)

	// Activate returns the initial values, FieldCount of them, and starts
	// whatever keeps them fresh.
	Activate() []*value.Value

	// Deactivate releases what Activate started. It is a no-op on a source
	// that was never activated.
	Deactivate()

	// AllValues returns the current values without side effects.
	AllValues() []*value.Value
}

// SourceBase implements the bookkeeping every ValueSource shares: the owned
// range, the incubation flag and the translation of source-local field indexes
// to record-local ones. Embed it and call its Notify methods with source-local
// indexes.
type SourceBase struct {
	fieldCount int
	offset     int
	handler    SourceHandler
	incubated  bool
}

// NewSourceBase returns a base owning fieldCount fields.
func NewSourceBase(fieldCount int) SourceBase {
	return SourceBase{fieldCount: fieldCount}
}

func (b *SourceBase) FieldCount() int            { return b.fieldCount }
func (b *SourceBase) FirstFieldIndexOffset() int { return b.offset }
func (b *SourceBase) Incubated() bool            { return b.incubated }

// Bind implements ValueSource.
func (b *SourceBase) Bind(offset int, h SourceHandler) {
	b.offset = offset
	b.handler = h
}

// NotifyValuesChanged forwards changes with their field indexes shifted from
// source-local to record-local. The caller's slice is not modified.
func (b *SourceBase) NotifyValuesChanged(changes []ValueChange) {
	if b.handler == nil || len(changes) == 0 {
		return
	}
	translated := make([]ValueChange, len(changes))
	for i, c := range changes {
		c.FieldIndex += b.offset
		translated[i] = c
	}
	b.handler.ValuesChanged(translated)
}

// NotifyAllValuesChanged reports that values replaced the source's fields from
// source-local index firstFieldIndex onwards.
func (b *SourceBase) NotifyAllValuesChanged(firstFieldIndex int, values []*value.Value) {
	if b.handler == nil {
		return
	}
	b.handler.AllValuesChanged(firstFieldIndex+b.offset, values)
}

// MarkIncubated flags the source incubated. Only the first call notifies.
func (b *SourceBase) MarkIncubated() {
	if b.incubated {
		return
	}
	b.incubated = true
	if b.handler != nil {
		b.handler.BecameIncubated()
	}
}
