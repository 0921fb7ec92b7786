// Package source provides the concrete value sources a record can be built
// from: in-memory datums (optionally read from CSV), rows of a Postgres table,
// and computed positional fields.
package source

import (
	"fmt"

	"github.com/xilytix/revdatasource/internal/record"
	"github.com/xilytix/revdatasource/internal/value"
)

// MemorySource serves datums held in memory. It is incubated as soon as it is
// activated since its data is complete by construction.
type MemorySource struct {
	record.SourceBase

	values  []*value.Value
	project value.Projector
	active  bool
}

// NewMemorySource returns a source owning len(datums) fields.
func NewMemorySource(datums []any, p value.Projector) *MemorySource {
	s := &MemorySource{
		SourceBase: record.NewSourceBase(len(datums)),
		values:     make([]*value.Value, len(datums)),
		project:    p,
	}
	for i, d := range datums {
		s.values[i] = value.New(d, p)
	}
	return s
}

// Activate implements record.ValueSource.
func (s *MemorySource) Activate() []*value.Value {
	s.active = true
	s.MarkIncubated()
	return s.values
}

// Deactivate implements record.ValueSource.
func (s *MemorySource) Deactivate() {
	s.active = false
}

// AllValues implements record.ValueSource.
func (s *MemorySource) AllValues() []*value.Value {
	return s.values
}

// Update sets the datum of the field at the source-local index and reports a
// discrete change carrying the numeric direction of the change.
func (s *MemorySource) Update(local int, datum any) error {
	return s.UpdateMany(map[int]any{local: datum})
}

// UpdateMany sets several fields and reports them as one discrete batch, in
// ascending field order.
func (s *MemorySource) UpdateMany(datums map[int]any) error {
	for local := range datums {
		if local < 0 || local >= s.FieldCount() {
			return fmt.Errorf("memory source: field %d outside %d fields", local, s.FieldCount())
		}
	}

	changes := make([]record.ValueChange, 0, len(datums))
	for local := 0; local < s.FieldCount(); local++ {
		datum, ok := datums[local]
		if !ok {
			continue
		}
		kind := value.ChangeKindOf(s.values[local].Datum(), datum)
		v := value.New(datum, s.project)
		v.AddRenderAttribute(value.RenderAttribute{Kind: value.AttributeValueChanged, Change: kind})
		s.values[local] = v
		changes = append(changes, record.ValueChange{FieldIndex: local, Value: v, Kind: kind})
	}
	s.NotifyValuesChanged(changes)
	return nil
}

// Replace sets the datums of consecutive fields from the source-local index
// first and reports them as one bulk change. The new values are marked as
// replaced.
func (s *MemorySource) Replace(first int, datums []any) error {
	if first < 0 || first+len(datums) > s.FieldCount() {
		return fmt.Errorf("memory source: replacement %d+%d outside %d fields", first, len(datums), s.FieldCount())
	}

	replaced := make([]*value.Value, len(datums))
	for i, d := range datums {
		v := value.New(d, s.project)
		v.AddRenderAttribute(value.RenderAttribute{Kind: value.AttributeRecordChanged})
		s.values[first+i] = v
		replaced[i] = v
	}
	s.NotifyAllValuesChanged(first, replaced)
	return nil
}
