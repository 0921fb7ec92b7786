package source

import (
	"github.com/xilytix/revdatasource/internal/record"
	"github.com/xilytix/revdatasource/internal/value"
)

// IndexKind selects which position an IndexSource field shows.
type IndexKind int

const (
	// RecordIndex is the record's position in its collection.
	RecordIndex IndexKind = iota
	// RowIndex is the record's position in the current view order.
	RowIndex
)

// IndexSource serves fields computed from a record's position. Positions are
// shown one-based.
type IndexSource struct {
	record.SourceBase

	kinds       []IndexKind
	values      []*value.Value
	recordIndex int
	rowIndex    int
}

// NewIndexSource returns a source with one field per kind, in order.
func NewIndexSource(kinds ...IndexKind) *IndexSource {
	s := &IndexSource{
		SourceBase:  record.NewSourceBase(len(kinds)),
		kinds:       kinds,
		values:      make([]*value.Value, len(kinds)),
		recordIndex: -1,
		rowIndex:    -1,
	}
	for i := range s.values {
		s.values[i] = value.NewUndefined(nil)
	}
	return s
}

// Activate implements record.ValueSource.
func (s *IndexSource) Activate() []*value.Value {
	s.MarkIncubated()
	return s.values
}

// Deactivate implements record.ValueSource.
func (s *IndexSource) Deactivate() {}

// AllValues implements record.ValueSource.
func (s *IndexSource) AllValues() []*value.Value {
	return s.values
}

// SetRecordIndex updates every RecordIndex field.
func (s *IndexSource) SetRecordIndex(i int) {
	if i == s.recordIndex {
		return
	}
	s.recordIndex = i
	s.set(RecordIndex, i)
}

// SetRowIndex updates every RowIndex field.
func (s *IndexSource) SetRowIndex(i int) {
	if i == s.rowIndex {
		return
	}
	s.rowIndex = i
	s.set(RowIndex, i)
}

func (s *IndexSource) set(kind IndexKind, index int) {
	var changes []record.ValueChange
	for local, k := range s.kinds {
		if k != kind {
			continue
		}
		position := int64(index + 1)
		change := value.ChangeKindOf(s.values[local].Datum(), position)
		v := value.New(position, nil)
		s.values[local] = v
		changes = append(changes, record.ValueChange{FieldIndex: local, Value: v, Kind: change})
	}
	s.NotifyValuesChanged(changes)
}
