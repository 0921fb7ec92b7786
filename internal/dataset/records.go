package dataset

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/xilytix/revdatasource/internal/record"
	"github.com/xilytix/revdatasource/internal/sortutil"
	"github.com/xilytix/revdatasource/internal/source"
)

// Updater is implemented by data sources whose fields can be edited.
type Updater interface {
	Update(local int, datum any) error
}

// Refresher is implemented by data sources that can refetch their values.
type Refresher interface {
	Load(ctx context.Context) error
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	d.mu.Lock()
	defer d.unlock()
	return len(d.records)
}

// AddRecord builds a record over src, which must own one field per schema
// field, and inserts it into the view at its sorted position.
func (d *Dataset) AddRecord(src record.ValueSource) (uuid.UUID, error) {
	d.mu.Lock()
	defer d.unlock()

	e, err := d.addRecord(src)
	if err != nil {
		return uuid.Nil, err
	}
	d.queue(Event{Kind: EventRecordAdded, RecordID: e.rec.ID(), Row: e.row, Count: len(d.records)})
	return e.rec.ID(), nil
}

func (d *Dataset) addRecord(src record.ValueSource) (*entry, error) {
	if src.FieldCount() != d.layout.fieldCount {
		return nil, fmt.Errorf("%w: source has %d fields, schema has %d",
			ErrSourceMismatch, src.FieldCount(), d.layout.fieldCount)
	}

	e := &entry{
		rec:   record.New(len(d.records)),
		data:  src,
		index: source.NewIndexSource(d.layout.indexKinds...),
	}
	e.rec.AddSource(src)
	e.rec.AddSource(e.index)
	e.rec.SetListener(recordListener{d})
	e.rec.Activate()
	e.index.SetRecordIndex(e.rec.Index())

	d.records = append(d.records, e)
	d.byID[e.rec.ID()] = e
	d.byRec[e.rec] = e

	pos := len(d.rows)
	if d.sorted && len(d.sorts) > 0 {
		pos = sortutil.BinarySearch(d.rows, e, d.compare)
		if pos < 0 {
			pos = ^pos
		}
	}
	d.rows = append(d.rows, nil)
	copy(d.rows[pos+1:], d.rows[pos:])
	d.rows[pos] = e
	d.renumberRows(pos, len(d.rows))
	return e, nil
}

// RemoveRecord deactivates and removes the record. Later records are
// renumbered.
func (d *Dataset) RemoveRecord(id uuid.UUID) error {
	d.mu.Lock()
	defer d.unlock()

	e, ok := d.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}

	row := d.rowOf(e)
	d.rows = append(d.rows[:row], d.rows[row+1:]...)
	d.renumberRows(row, len(d.rows))

	idx := e.rec.Index()
	d.records = append(d.records[:idx], d.records[idx+1:]...)
	for i := idx; i < len(d.records); i++ {
		d.records[i].rec.SetIndex(i)
		d.records[i].index.SetRecordIndex(i)
	}

	e.rec.Deactivate()
	e.rec.SetListener(nil)
	delete(d.byID, id)
	delete(d.byRec, e.rec)

	d.queue(Event{Kind: EventRecordRemoved, RecordID: id, Row: row, Count: len(d.records)})
	return nil
}

// rowOf returns the view position of e. On a sorted view the record is
// located by binary search among the records equal to it.
func (d *Dataset) rowOf(e *entry) int {
	if d.sorted && len(d.sorts) > 0 {
		return sortutil.BinarySearchWithDuplicates(d.rows, e, d.compare)
	}
	return e.row
}

// UpdateValue parses text as the field's type and stores it in the record.
func (d *Dataset) UpdateValue(id uuid.UUID, fieldName, text string) error {
	d.mu.Lock()
	defer d.unlock()

	e, ok := d.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	f, err := d.registry.FieldByName(fieldName)
	if err != nil {
		return err
	}
	if d.layout.computed(f.Index()) {
		return fmt.Errorf("%w: %s", ErrReadOnlyField, fieldName)
	}
	u, ok := e.data.(Updater)
	if !ok {
		return fmt.Errorf("%w: %s", ErrReadOnlyRecord, id)
	}

	return u.Update(f.Index(), source.Parse(f.Type, text))
}

// Refresh refetches the record's values from its source.
func (d *Dataset) Refresh(ctx context.Context, id uuid.UUID) error {
	d.mu.Lock()
	defer d.unlock()

	e, ok := d.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	r, ok := e.data.(Refresher)
	if !ok {
		return fmt.Errorf("%w: %s", ErrReadOnlyRecord, id)
	}
	return r.Load(ctx)
}

// ClearChangeMarks drops the change decorations of every incubated record so
// the next read renders plain values. Records still waiting for their data
// keep their stale marks. It returns the number of records cleared.
func (d *Dataset) ClearChangeMarks() int {
	d.mu.Lock()
	defer d.unlock()

	n := 0
	for _, e := range d.records {
		if !e.rec.BeenIncubated() {
			continue
		}
		for _, v := range e.rec.Values() {
			v.ClearRenderAttributes()
		}
		e.rec.ClearRendering()
		n++
	}
	d.queue(Event{Kind: EventMarksCleared, Count: n})
	return n
}

// recordListener receives record events. It runs with d.mu held by whichever
// call made the source change.
type recordListener struct {
	d *Dataset
}

func (l recordListener) RecordChanged(r *record.Record, ev record.Event) {
	d := l.d
	e, ok := d.byRec[r]
	if !ok {
		return
	}

	if ev.Kind == record.EventIncubated {
		d.queue(Event{Kind: EventRecordIncubated, RecordID: r.ID(), Row: e.row})
		return
	}

	names := d.changedFieldNames(ev)
	if len(names) == 0 {
		// Only computed position fields changed.
		return
	}

	d.reposition(e, ev)
	d.queue(Event{Kind: EventRecordChanged, RecordID: r.ID(), Row: e.row, Fields: names})
}

// changedFieldNames lists the schema fields backed by data slots the event
// touched.
func (d *Dataset) changedFieldNames(ev record.Event) []string {
	var names []string
	for i, f := range d.registry.Fields() {
		if d.layout.computed(i) {
			continue
		}
		if ev.Touches(d.layout.slots[i]) {
			names = append(names, f.Name)
		}
	}
	return names
}
