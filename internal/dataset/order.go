package dataset

import (
	"fmt"
	"strings"

	"github.com/xilytix/revdatasource/internal/record"
	"github.com/xilytix/revdatasource/internal/sortutil"
	"github.com/xilytix/revdatasource/internal/source"
	"github.com/xilytix/revdatasource/internal/value"
)

// SortSpec orders the view by one field.
type SortSpec struct {
	Column string `json:"column"`
	Dir    string `json:"dir"` // "asc" or "desc"
}

// sortKey is a SortSpec resolved against the current schema.
type sortKey struct {
	spec SortSpec
	slot int
	desc bool
}

// ParseSortSpecs pairs up comma-separated column and direction lists as sent
// by the grid ("amount,name" and "desc,asc"). Missing directions default to
// asc.
func ParseSortSpecs(columns, dirs string) []SortSpec {
	if strings.TrimSpace(columns) == "" {
		return nil
	}
	cols := strings.Split(columns, ",")
	ds := strings.Split(dirs, ",")

	specs := make([]SortSpec, 0, len(cols))
	for i, c := range cols {
		spec := SortSpec{Column: strings.TrimSpace(c), Dir: "asc"}
		if i < len(ds) && strings.TrimSpace(ds[i]) != "" {
			spec.Dir = strings.ToLower(strings.TrimSpace(ds[i]))
		}
		specs = append(specs, spec)
	}
	return specs
}

// Sorts returns the active sort columns.
func (d *Dataset) Sorts() []SortSpec {
	d.mu.Lock()
	defer d.unlock()
	return d.sortSpecs()
}

func (d *Dataset) sortSpecs() []SortSpec {
	specs := make([]SortSpec, len(d.sorts))
	for i, k := range d.sorts {
		specs[i] = k.spec
	}
	return specs
}

// SetSorts replaces the sort columns. The view is reordered lazily by the next
// Window or Find call. An empty list keeps the current order.
func (d *Dataset) SetSorts(specs []SortSpec) error {
	d.mu.Lock()
	defer d.unlock()

	if len(specs) > d.opts.MaxSorts {
		return fmt.Errorf("%w: %d (max %d)", ErrTooManySorts, len(specs), d.opts.MaxSorts)
	}
	keys := make([]sortKey, 0, len(specs))
	for _, spec := range specs {
		switch spec.Dir {
		case "", "asc", "desc":
		default:
			return fmt.Errorf("%w: %q", ErrSortDirection, spec.Dir)
		}
		f, err := d.registry.FieldByName(spec.Column)
		if err != nil {
			return err
		}
		if spec.Dir == "" {
			spec.Dir = "asc"
		}
		keys = append(keys, sortKey{spec: spec, slot: d.layout.slots[f.Index()], desc: spec.Dir == "desc"})
	}

	if sameSorts(d.sorts, keys) {
		return nil
	}
	d.sorts = keys
	d.sorted = len(keys) == 0
	d.log.Debug("sorts changed", "sorts", specs)
	return nil
}

func sameSorts(a, b []sortKey) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// resolveSorts keeps the specs whose column still exists.
func (d *Dataset) resolveSorts(specs []SortSpec) []sortKey {
	var keys []sortKey
	for _, spec := range specs {
		f, err := d.registry.FieldByName(spec.Column)
		if err != nil {
			continue
		}
		keys = append(keys, sortKey{spec: spec, slot: d.layout.slots[f.Index()], desc: spec.Dir == "desc"})
	}
	return keys
}

// compare orders two records by the sort keys in turn.
func (d *Dataset) compare(a, b *entry) int {
	for _, k := range d.sorts {
		c := value.Compare(a.rec.Value(k.slot), b.rec.Value(k.slot))
		if k.desc {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

// touchesSort reports whether the event changed a sort field.
func (d *Dataset) touchesSort(ev record.Event) bool {
	for _, k := range d.sorts {
		if ev.Touches(k.slot) {
			return true
		}
	}
	return false
}

// ensureSorted fully sorts the view if it is not already.
func (d *Dataset) ensureSorted() {
	if d.sorted {
		return
	}
	sortutil.Sort(d.rows, d.compare)
	d.sorted = true
	d.renumberRows(0, len(d.rows))
	d.log.Debug("view sorted", "records", len(d.rows))
	d.queue(Event{Kind: EventReordered, Count: len(d.rows)})
}

// reposition moves a record whose sort field changed to its new place in a
// sorted view. An unsorted view is left for the next sort.
func (d *Dataset) reposition(e *entry, ev record.Event) {
	if !d.sorted || len(d.sorts) == 0 || !d.touchesSort(ev) {
		return
	}

	from := e.row
	to := sortutil.BinarySearchWithSkip(d.rows, e, from, d.compare)
	if to < 0 {
		to = ^to
	}
	if to > from {
		to--
	}
	if to == from {
		return
	}

	if to < from {
		copy(d.rows[to+1:from+1], d.rows[to:from])
		d.rows[to] = e
		d.renumberRows(to, from+1)
	} else {
		copy(d.rows[from:to], d.rows[from+1:to+1])
		d.rows[to] = e
		d.renumberRows(from, to+1)
	}
	d.queue(Event{Kind: EventReordered, RecordID: e.rec.ID(), Row: to, Count: len(d.rows)})
}

// renumberRows refreshes the row position of the records in rows[from:to].
func (d *Dataset) renumberRows(from, to int) {
	for i := from; i < to; i++ {
		e := d.rows[i]
		e.row = i
		e.index.SetRowIndex(i)
	}
}

// Window returns count rows of the view starting at offset, in order. Small
// views are fully sorted first; large unsorted views only get the requested
// rows ordered.
func (d *Dataset) Window(offset, count int) (Page, error) {
	d.mu.Lock()
	defer d.unlock()

	total := len(d.rows)
	if offset < 0 || count < 0 || offset > total {
		return Page{}, fmt.Errorf("%w: %d+%d of %d", ErrWindowOutOfRange, offset, count, total)
	}
	count = min(count, total-offset)

	if !d.sorted {
		if total <= d.opts.PartialSortThreshold {
			d.ensureSorted()
		} else {
			sortutil.PartialSort(d.rows, 0, total, offset, count, d.compare)
			d.renumberRows(0, total)
			d.log.Debug("window sorted", "offset", offset, "count", count, "records", total)
		}
	}

	page := Page{
		Offset: offset,
		Total:  total,
		Sorted: d.sorted,
		Sorts:  d.sortSpecs(),
		Fields: d.fieldViews(),
		Rows:   make([]RecordView, count),
	}
	for i := range count {
		page.Rows[i] = d.view(d.rows[offset+i])
	}
	return page, nil
}

// Find returns the first row whose value of the named field equals text, and
// false with the row where it would be inserted when none does. The field must
// be the primary sort column.
func (d *Dataset) Find(fieldName, text string) (int, bool, error) {
	d.mu.Lock()
	defer d.unlock()

	f, err := d.registry.FieldByName(fieldName)
	if err != nil {
		return 0, false, err
	}
	if len(d.sorts) == 0 || d.sorts[0].spec.Column != fieldName {
		return 0, false, fmt.Errorf("%w: %s", ErrNotSortedBy, fieldName)
	}
	d.ensureSorted()

	key := d.sorts[0]
	probe := &entry{rec: record.New(-1)}
	probe.rec.AddSource(source.NewMemorySource(d.probeDatums(key.slot, d.parseForSearch(f.Index(), text)), nil))
	probe.rec.Activate()

	cmpPrimary := func(a, b *entry) int {
		c := value.Compare(a.rec.Value(key.slot), b.rec.Value(key.slot))
		if key.desc {
			return -c
		}
		return c
	}

	pos := sortutil.BinarySearch(d.rows, probe, cmpPrimary)
	if pos < 0 {
		return ^pos, false, nil
	}
	for pos > 0 && cmpPrimary(d.rows[pos-1], probe) == 0 {
		pos--
	}
	return pos, true, nil
}

func (d *Dataset) parseForSearch(fieldIndex int, text string) any {
	if d.layout.computed(fieldIndex) {
		return source.ParseNumeric(text)
	}
	return source.Parse(d.registry.Fields()[fieldIndex].Type, text)
}

// probeDatums returns a datum vector as wide as a record with datum at slot.
func (d *Dataset) probeDatums(slot int, datum any) []any {
	datums := make([]any, d.layout.fieldCount+len(d.layout.indexKinds))
	datums[slot] = datum
	return datums
}
