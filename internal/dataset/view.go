package dataset

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/xilytix/revdatasource/internal/value"
)

// FieldView describes one column of the view.
type FieldView struct {
	Name     string `json:"name"`
	Heading  string `json:"heading"`
	Type     string `json:"type"`
	Computed bool   `json:"computed"`
}

// Cell is the rendered value of one field.
type Cell struct {
	Text      string `json:"text"`
	Undefined bool   `json:"undefined,omitempty"`
	Changed   string `json:"changed,omitempty"` // update, increase, decrease or record
	Stale     bool   `json:"stale,omitempty"`
}

// RecordView is a rendered record with cells in schema order.
type RecordView struct {
	ID        uuid.UUID `json:"id"`
	Index     int       `json:"index"`
	Row       int       `json:"row"`
	Incubated bool      `json:"incubated"`
	Cells     []Cell    `json:"cells"`
}

// Page is a window of the view.
type Page struct {
	Offset int          `json:"offset"`
	Total  int          `json:"total"`
	Sorted bool         `json:"sorted"`
	Sorts  []SortSpec   `json:"sorts"`
	Fields []FieldView  `json:"fields"`
	Rows   []RecordView `json:"rows"`
}

// FieldViews returns the column descriptions of the view.
func (d *Dataset) FieldViews() []FieldView {
	d.mu.Lock()
	defer d.unlock()
	return d.fieldViews()
}

func (d *Dataset) fieldViews() []FieldView {
	fields := d.registry.Fields()
	views := make([]FieldView, len(fields))
	for i, f := range fields {
		views[i] = FieldView{
			Name:     f.Name,
			Heading:  f.DisplayHeading(),
			Type:     f.Type.String(),
			Computed: d.layout.computed(i),
		}
	}
	return views
}

// Record returns the rendered record with the given ID.
func (d *Dataset) Record(id uuid.UUID) (RecordView, error) {
	d.mu.Lock()
	defer d.unlock()

	e, ok := d.byID[id]
	if !ok {
		return RecordView{}, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	return d.view(e), nil
}

// Records returns every record in collection order.
func (d *Dataset) Records() []RecordView {
	d.mu.Lock()
	defer d.unlock()

	views := make([]RecordView, len(d.records))
	for i, e := range d.records {
		views[i] = d.view(e)
	}
	return views
}

func (d *Dataset) view(e *entry) RecordView {
	rv := RecordView{
		ID:        e.rec.ID(),
		Index:     e.rec.Index(),
		Row:       e.row,
		Incubated: e.rec.BeenIncubated(),
		Cells:     make([]Cell, len(d.layout.slots)),
	}
	for i, slot := range d.layout.slots {
		rv.Cells[i] = cellOf(e.rec.Value(slot).RenderValue())
	}
	return rv
}

func cellOf(rv value.RenderValue) Cell {
	c := Cell{Text: rv.Text, Undefined: rv.Undefined}
	for _, a := range rv.Attributes {
		switch a.Kind {
		case value.AttributeValueChanged:
			c.Changed = a.Change.String()
		case value.AttributeRecordChanged:
			if c.Changed == "" {
				c.Changed = "record"
			}
		case value.AttributeStale:
			c.Stale = true
		}
	}
	return c
}
