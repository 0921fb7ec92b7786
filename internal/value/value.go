// Package value holds the per-cell data of a record.
//
// A [Value] keeps an optional raw datum and lazily derives an immutable
// [RenderValue] from it: the display text plus the render attributes that were
// pending when the projection was made. The projection is cached until the
// datum changes or ClearRendering is called.
package value

import (
	"database/sql/driver"
	"slices"
)

// ChangeKind hints at the numeric direction of a value change so a view can
// decorate the cell. It is not a correctness signal.
type ChangeKind int

const (
	ChangeUpdate ChangeKind = iota
	ChangeIncrease
	ChangeDecrease
)

// String returns the change kind name.
func (k ChangeKind) String() string {
	switch k {
	case ChangeUpdate:
		return "update"
	case ChangeIncrease:
		return "increase"
	case ChangeDecrease:
		return "decrease"
	default:
		return "unknown"
	}
}

// AttributeKind identifies a render attribute.
type AttributeKind int

const (
	// AttributeValueChanged marks a cell whose value recently changed.
	AttributeValueChanged AttributeKind = iota

	// AttributeRecordChanged marks a cell whose whole record was replaced.
	AttributeRecordChanged

	// AttributeStale marks a cell whose source is not yet incubated.
	AttributeStale
)

// RenderAttribute is a display hint attached to a RenderValue.
type RenderAttribute struct {
	Kind   AttributeKind
	Change ChangeKind // meaningful for AttributeValueChanged
}

// RenderValue is the display-ready projection of a datum. It is immutable once
// created.
type RenderValue struct {
	Text       string
	Undefined  bool
	Datum      any
	Attributes []RenderAttribute
}

// HasAttribute reports whether an attribute of the given kind is attached.
func (rv RenderValue) HasAttribute(kind AttributeKind) bool {
	for _, a := range rv.Attributes {
		if a.Kind == kind {
			return true
		}
	}
	return false
}

// Projector derives display text from a datum. It receives nil for an
// undefined value.
type Projector func(datum any) string

// Value is a single cell. It is not safe for concurrent use.
type Value struct {
	datum   any
	project Projector

	rendering *RenderValue
	pending   []RenderAttribute
}

// New returns a Value holding datum, projected with p. A nil p uses Format.
func New(datum any, p Projector) *Value {
	v := &Value{project: p}
	if v.project == nil {
		v.project = Format
	}
	v.Set(datum)
	return v
}

// NewUndefined returns a Value without a datum.
func NewUndefined(p Projector) *Value {
	return New(nil, p)
}

// Datum returns the raw datum, nil when undefined.
func (v *Value) Datum() any {
	return v.datum
}

// IsUndefined reports whether the value has no datum.
func (v *Value) IsUndefined() bool {
	return v.datum == nil
}

// Set replaces the datum and invalidates the cached projection. SQL NULLs
// (driver.Valuer values reporting nil, such as invalid pgtype values) are
// stored as absent.
func (v *Value) Set(datum any) {
	v.datum = normalize(datum)
	v.rendering = nil
}

// Clear drops the datum, leaving the value undefined.
func (v *Value) Clear() {
	v.Set(nil)
}

// RenderValue returns the cached projection, computing it first if needed.
// The returned attributes are a copy of the cached ones.
func (v *Value) RenderValue() RenderValue {
	if v.rendering == nil {
		rv := RenderValue{
			Text:      v.project(v.datum),
			Undefined: v.datum == nil,
			Datum:     v.datum,
		}
		if len(v.pending) > 0 {
			rv.Attributes = append([]RenderAttribute(nil), v.pending...)
		}
		v.rendering = &rv
	}
	rv := *v.rendering
	rv.Attributes = slices.Clone(rv.Attributes)
	return rv
}

// AddRenderAttribute queues an attribute for the next projection. An already
// cached projection is not affected until ClearRendering is called.
func (v *Value) AddRenderAttribute(a RenderAttribute) {
	v.pending = append(v.pending, a)
}

// ClearRenderAttributes drops all queued attributes. The cached projection
// keeps them until ClearRendering is called.
func (v *Value) ClearRenderAttributes() {
	v.pending = nil
}

// ClearRendering drops the cached projection.
func (v *Value) ClearRendering() {
	v.rendering = nil
}

func normalize(datum any) any {
	if datum == nil {
		return nil
	}
	if valuer, ok := datum.(driver.Valuer); ok {
		dv, err := valuer.Value()
		if err == nil && dv == nil {
			return nil
		}
	}
	return datum
}
