package dataset

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/xilytix/revdatasource/internal/schema"
	"github.com/xilytix/revdatasource/internal/source"
)

var testFields = []schema.Descriptor{
	{Name: "record_no", Type: schema.FieldNumeric, DependsOnRecordIndex: true},
	{Name: "name", Type: schema.FieldText},
	{Name: "amount", Type: schema.FieldNumeric},
	{Name: "row_no", Type: schema.FieldNumeric, DependsOnRowIndex: true},
}

const (
	colRecordNo = iota
	colName
	colAmount
	colRowNo
)

func quietOptions() Options {
	return Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func newTestDataset(t *testing.T, opts Options) *Dataset {
	t.Helper()
	d := New(nil, opts)
	if err := d.SetFields(context.Background(), testFields); err != nil {
		t.Fatalf("SetFields() error = %v", err)
	}
	return d
}

func addRow(t *testing.T, d *Dataset, name string, amount int) uuid.UUID {
	t.Helper()
	id, err := d.AddRecord(source.NewMemorySource([]any{nil, name, amount, nil}, nil))
	if err != nil {
		t.Fatalf("AddRecord(%s) error = %v", name, err)
	}
	return id
}

func window(t *testing.T, d *Dataset) Page {
	t.Helper()
	page, err := d.Window(0, d.Len())
	if err != nil {
		t.Fatalf("Window() error = %v", err)
	}
	return page
}

func column(page Page, col int) []string {
	out := make([]string, len(page.Rows))
	for i, r := range page.Rows {
		out[i] = r.Cells[col].Text
	}
	return out
}

// drain returns the kinds of the events already delivered to ch.
func drain(ch <-chan Event) []EventKind {
	var kinds []EventKind
	for {
		select {
		case e := <-ch:
			kinds = append(kinds, e.Kind)
		default:
			return kinds
		}
	}
}

func TestDataset_FieldViews(t *testing.T) {
	d := newTestDataset(t, quietOptions())

	views := d.FieldViews()
	if len(views) != 4 {
		t.Fatalf("got %d fields, want 4", len(views))
	}
	computed := []bool{views[0].Computed, views[1].Computed, views[2].Computed, views[3].Computed}
	if diff := cmp.Diff([]bool{true, false, false, true}, computed); diff != "" {
		t.Errorf("computed mismatch (-want +got):\n%s", diff)
	}
	if views[2].Type != "numeric" {
		t.Errorf("amount type = %q, want numeric", views[2].Type)
	}
}

func TestDataset_AddRecordAndWindow(t *testing.T) {
	d := newTestDataset(t, quietOptions())
	addRow(t, d, "a", 10)
	addRow(t, d, "b", 30)
	addRow(t, d, "c", 20)

	page := window(t, d)
	if page.Total != 3 || !page.Sorted {
		t.Errorf("page total=%d sorted=%v, want 3 true", page.Total, page.Sorted)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, column(page, colName)); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"1", "2", "3"}, column(page, colRecordNo)); diff != "" {
		t.Errorf("record_no mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"1", "2", "3"}, column(page, colRowNo)); diff != "" {
		t.Errorf("row_no mismatch (-want +got):\n%s", diff)
	}
}

func TestDataset_SetSortsOrdersWindow(t *testing.T) {
	d := newTestDataset(t, quietOptions())
	addRow(t, d, "a", 10)
	addRow(t, d, "b", 30)
	addRow(t, d, "c", 20)

	if err := d.SetSorts([]SortSpec{{Column: "amount", Dir: "desc"}}); err != nil {
		t.Fatalf("SetSorts() error = %v", err)
	}
	page := window(t, d)

	if diff := cmp.Diff([]string{"b", "c", "a"}, column(page, colName)); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"1", "2", "3"}, column(page, colRowNo)); diff != "" {
		t.Errorf("row_no mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"2", "3", "1"}, column(page, colRecordNo)); diff != "" {
		t.Errorf("record_no mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]SortSpec{{Column: "amount", Dir: "desc"}}, d.Sorts()); diff != "" {
		t.Errorf("Sorts mismatch (-want +got):\n%s", diff)
	}
}

func TestDataset_UpdateValueRepositions(t *testing.T) {
	d := newTestDataset(t, quietOptions())
	a := addRow(t, d, "a", 10)
	addRow(t, d, "b", 30)
	addRow(t, d, "c", 20)
	if err := d.SetSorts([]SortSpec{{Column: "amount"}}); err != nil {
		t.Fatalf("SetSorts() error = %v", err)
	}
	window(t, d)

	events := d.Subscribe()
	defer d.Unsubscribe(events)

	if err := d.UpdateValue(a, "amount", "$40"); err != nil {
		t.Fatalf("UpdateValue() error = %v", err)
	}

	page := window(t, d)
	if diff := cmp.Diff([]string{"c", "b", "a"}, column(page, colName)); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"1", "2", "3"}, column(page, colRowNo)); diff != "" {
		t.Errorf("row_no mismatch (-want +got):\n%s", diff)
	}
	if got := page.Rows[2].Cells[colAmount].Changed; got != "increase" {
		t.Errorf("changed = %q, want increase", got)
	}
	if diff := cmp.Diff([]EventKind{EventReordered, EventRecordChanged}, drain(events)); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestDataset_UpdateValueWithinPlace(t *testing.T) {
	d := newTestDataset(t, quietOptions())
	addRow(t, d, "a", 10)
	b := addRow(t, d, "b", 30)
	addRow(t, d, "c", 20)
	if err := d.SetSorts([]SortSpec{{Column: "amount"}}); err != nil {
		t.Fatalf("SetSorts() error = %v", err)
	}
	window(t, d)

	events := d.Subscribe()
	defer d.Unsubscribe(events)

	if err := d.UpdateValue(b, "name", "bee"); err != nil {
		t.Fatalf("UpdateValue() error = %v", err)
	}
	if diff := cmp.Diff([]EventKind{EventRecordChanged}, drain(events)); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "c", "bee"}, column(window(t, d), colName)); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestDataset_AddRecordIntoSortedView(t *testing.T) {
	d := newTestDataset(t, quietOptions())
	addRow(t, d, "a", 10)
	addRow(t, d, "b", 30)
	addRow(t, d, "c", 20)
	if err := d.SetSorts([]SortSpec{{Column: "amount"}}); err != nil {
		t.Fatalf("SetSorts() error = %v", err)
	}
	window(t, d)

	addRow(t, d, "d", 25)

	page := window(t, d)
	if diff := cmp.Diff([]string{"a", "c", "d", "b"}, column(page, colName)); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"1", "3", "4", "2"}, column(page, colRecordNo)); diff != "" {
		t.Errorf("record_no mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"1", "2", "3", "4"}, column(page, colRowNo)); diff != "" {
		t.Errorf("row_no mismatch (-want +got):\n%s", diff)
	}
}

func TestDataset_RemoveRecordRenumbers(t *testing.T) {
	d := newTestDataset(t, quietOptions())
	addRow(t, d, "a", 10)
	b := addRow(t, d, "b", 30)
	addRow(t, d, "c", 20)

	if err := d.RemoveRecord(b); err != nil {
		t.Fatalf("RemoveRecord() error = %v", err)
	}

	page := window(t, d)
	if diff := cmp.Diff([]string{"a", "c"}, column(page, colName)); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"1", "2"}, column(page, colRecordNo)); diff != "" {
		t.Errorf("record_no mismatch (-want +got):\n%s", diff)
	}
	if _, err := d.Record(b); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("Record(removed) error = %v, want ErrRecordNotFound", err)
	}
}

func TestDataset_RemoveRecordAmongEqualKeys(t *testing.T) {
	d := newTestDataset(t, quietOptions())
	addRow(t, d, "x", 5)
	y := addRow(t, d, "y", 5)
	addRow(t, d, "z", 1)
	if err := d.SetSorts([]SortSpec{{Column: "amount"}}); err != nil {
		t.Fatalf("SetSorts() error = %v", err)
	}
	window(t, d)

	if err := d.RemoveRecord(y); err != nil {
		t.Fatalf("RemoveRecord() error = %v", err)
	}
	if diff := cmp.Diff([]string{"z", "x"}, column(window(t, d), colName)); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestDataset_Find(t *testing.T) {
	d := newTestDataset(t, quietOptions())
	for _, name := range []string{"Initech", "Globex", "Acme", "Globex"} {
		addRow(t, d, name, 1)
	}
	if err := d.SetSorts([]SortSpec{{Column: "name"}}); err != nil {
		t.Fatalf("SetSorts() error = %v", err)
	}

	tests := []struct {
		text      string
		wantRow   int
		wantFound bool
	}{
		{"Acme", 0, true},
		{"Globex", 1, true},
		{"Initech", 3, true},
		{"Hooli", 3, false},
		{"Aardvark", 0, false},
		{"Zeta", 4, false},
	}
	for _, tt := range tests {
		row, found, err := d.Find("name", tt.text)
		if err != nil {
			t.Fatalf("Find(%q) error = %v", tt.text, err)
		}
		if row != tt.wantRow || found != tt.wantFound {
			t.Errorf("Find(%q) = %d, %v; want %d, %v", tt.text, row, found, tt.wantRow, tt.wantFound)
		}
	}

	if _, _, err := d.Find("amount", "1"); !errors.Is(err, ErrNotSortedBy) {
		t.Errorf("Find(non-primary) error = %v, want ErrNotSortedBy", err)
	}
	if _, _, err := d.Find("nope", "1"); !errors.Is(err, schema.ErrFieldNotFound) {
		t.Errorf("Find(unknown) error = %v, want ErrFieldNotFound", err)
	}
}

func TestDataset_FindDescending(t *testing.T) {
	d := newTestDataset(t, quietOptions())
	for _, amount := range []int{10, 40, 20, 30} {
		addRow(t, d, "r", amount)
	}
	if err := d.SetSorts([]SortSpec{{Column: "amount", Dir: "desc"}}); err != nil {
		t.Fatalf("SetSorts() error = %v", err)
	}

	row, found, err := d.Find("amount", "20")
	if err != nil || !found || row != 2 {
		t.Errorf("Find(20) = %d, %v, %v; want 2, true, nil", row, found, err)
	}
}

func TestDataset_PartialSortWindow(t *testing.T) {
	opts := quietOptions()
	opts.PartialSortThreshold = 2
	d := newTestDataset(t, opts)
	for _, amount := range []int{7, 3, 9, 1, 5, 8, 2, 6, 4, 0} {
		addRow(t, d, "r", amount)
	}
	if err := d.SetSorts([]SortSpec{{Column: "amount"}}); err != nil {
		t.Fatalf("SetSorts() error = %v", err)
	}

	page, err := d.Window(3, 3)
	if err != nil {
		t.Fatalf("Window() error = %v", err)
	}
	if page.Sorted {
		t.Error("Sorted = true after a partial sort")
	}
	if diff := cmp.Diff([]string{"3", "4", "5"}, column(page, colAmount)); diff != "" {
		t.Errorf("amounts mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"4", "5", "6"}, column(page, colRowNo)); diff != "" {
		t.Errorf("row_no mismatch (-want +got):\n%s", diff)
	}

	if _, _, err := d.Find("amount", "8"); err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	full := window(t, d)
	if !full.Sorted {
		t.Error("Sorted = false after Find")
	}
	if diff := cmp.Diff([]string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9"}, column(full, colAmount)); diff != "" {
		t.Errorf("amounts mismatch (-want +got):\n%s", diff)
	}
}

// reloadable is an editable source that can also refetch its values.
type reloadable struct {
	*source.MemorySource
	fresh []any
}

func (r *reloadable) Load(context.Context) error {
	return r.Replace(0, r.fresh)
}

func TestDataset_Refresh(t *testing.T) {
	d := newTestDataset(t, quietOptions())
	src := &reloadable{
		MemorySource: source.NewMemorySource([]any{nil, "old", 1, nil}, nil),
		fresh:        []any{nil, "new", 2, nil},
	}
	id, err := d.AddRecord(src)
	if err != nil {
		t.Fatalf("AddRecord() error = %v", err)
	}
	plain := addRow(t, d, "plain", 1)

	events := d.Subscribe()
	defer d.Unsubscribe(events)

	if err := d.Refresh(context.Background(), id); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	rv, err := d.Record(id)
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if rv.Cells[colName].Text != "new" || rv.Cells[colRecordNo].Text != "1" {
		t.Errorf("cells = %+v", rv.Cells)
	}
	if got := rv.Cells[colName].Changed; got != "record" {
		t.Errorf("changed = %q after refresh, want record", got)
	}
	if diff := cmp.Diff([]EventKind{EventRecordChanged}, drain(events)); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}

	if err := d.Refresh(context.Background(), plain); !errors.Is(err, ErrReadOnlyRecord) {
		t.Errorf("Refresh(memory) error = %v, want ErrReadOnlyRecord", err)
	}
}

func TestDataset_ClearChangeMarks(t *testing.T) {
	d := newTestDataset(t, quietOptions())
	a := addRow(t, d, "a", 10)
	addRow(t, d, "b", 30)
	pending, err := d.AddRecord(source.NewPgRowSource(nil, source.Table{
		Name: "rows", KeyColumn: "id", Fields: testFields,
	}, 7))
	if err != nil {
		t.Fatalf("AddRecord(unloaded) error = %v", err)
	}

	if err := d.UpdateValue(a, "amount", "20"); err != nil {
		t.Fatalf("UpdateValue() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		if got := window(t, d).Rows[0].Cells[colAmount].Changed; got != "increase" {
			t.Fatalf("read %d: changed = %q, want increase", i, got)
		}
	}

	events := d.Subscribe()
	defer d.Unsubscribe(events)

	if n := d.ClearChangeMarks(); n != 2 {
		t.Errorf("ClearChangeMarks() = %d, want 2", n)
	}
	page := window(t, d)
	for _, row := range page.Rows[:2] {
		for i, c := range row.Cells {
			if c.Changed != "" || c.Stale {
				t.Errorf("row %d cell %d = %+v, want no marks", row.Row, i, c)
			}
		}
	}
	if got := page.Rows[0].Cells[colAmount].Text; got != "20" {
		t.Errorf("amount = %q, want 20", got)
	}

	rv, err := d.Record(pending)
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if !rv.Cells[colName].Stale || rv.Incubated {
		t.Errorf("unloaded record cell = %+v incubated=%v, want stale", rv.Cells[colName], rv.Incubated)
	}
	if diff := cmp.Diff([]EventKind{EventMarksCleared}, drain(events)); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestDataset_Errors(t *testing.T) {
	d := newTestDataset(t, quietOptions())
	id := addRow(t, d, "a", 1)

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"computed field", d.UpdateValue(id, "row_no", "3"), ErrReadOnlyField},
		{"unknown field", d.UpdateValue(id, "nope", "3"), schema.ErrFieldNotFound},
		{"unknown record", d.UpdateValue(uuid.New(), "name", "x"), ErrRecordNotFound},
		{"bad direction", d.SetSorts([]SortSpec{{Column: "name", Dir: "up"}}), ErrSortDirection},
		{"too many sorts", d.SetSorts(make([]SortSpec, DefaultMaxSorts+1)), ErrTooManySorts},
		{"unknown sort field", d.SetSorts([]SortSpec{{Column: "nope"}}), schema.ErrFieldNotFound},
		{"remove unknown", d.RemoveRecord(uuid.New()), ErrRecordNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.want) {
				t.Errorf("error = %v, want %v", tt.err, tt.want)
			}
		})
	}

	if _, err := d.AddRecord(source.NewMemorySource([]any{1}, nil)); !errors.Is(err, ErrSourceMismatch) {
		t.Errorf("AddRecord(narrow) error = %v, want ErrSourceMismatch", err)
	}
	if _, err := d.Window(5, 1); !errors.Is(err, ErrWindowOutOfRange) {
		t.Errorf("Window(5, 1) error = %v, want ErrWindowOutOfRange", err)
	}
	if err := d.Reload(context.Background()); !errors.Is(err, ErrNoLoader) {
		t.Errorf("Reload() error = %v, want ErrNoLoader", err)
	}
}

func TestDataset_SetFieldsReloads(t *testing.T) {
	ctx := context.Background()
	d := New(DemoLoader{Rows: 25, Seed: 7}, quietOptions())

	customers, _ := schema.Preset("customers")
	if err := d.SetFields(ctx, customers); err != nil {
		t.Fatalf("SetFields(customers) error = %v", err)
	}
	if d.Len() != 25 {
		t.Fatalf("Len() = %d, want 25", d.Len())
	}
	first := d.Records()[0]
	if first.Cells[0].Text != "1" {
		t.Errorf("record_no = %q, want 1", first.Cells[0].Text)
	}
	if first.Cells[3].Undefined {
		t.Error("company_name undefined in demo data")
	}

	events := d.Subscribe()
	defer d.Unsubscribe(events)

	priceBook, _ := schema.Preset("price_book")
	if err := d.SetFields(ctx, priceBook); err != nil {
		t.Fatalf("SetFields(price_book) error = %v", err)
	}
	if got := len(d.Fields()); got != len(priceBook) {
		t.Errorf("len(Fields()) = %d, want %d", got, len(priceBook))
	}
	if d.Len() != 25 {
		t.Errorf("Len() = %d after reload, want 25", d.Len())
	}
	want := []EventKind{EventRecordsReset, EventSchemaChanged, EventRecordsReset}
	if diff := cmp.Diff(want, drain(events)); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestDataset_SortsSurviveCompatibleSchema(t *testing.T) {
	ctx := context.Background()
	d := New(DemoLoader{Rows: 10, Seed: 3}, quietOptions())
	customers, _ := schema.Preset("customers")
	if err := d.SetFields(ctx, customers); err != nil {
		t.Fatalf("SetFields() error = %v", err)
	}
	if err := d.SetSorts([]SortSpec{{Column: "balance", Dir: "desc"}, {Column: "company_name"}}); err != nil {
		t.Fatalf("SetSorts() error = %v", err)
	}

	priceBook, _ := schema.Preset("price_book")
	if err := d.SetFields(ctx, priceBook); err != nil {
		t.Fatalf("SetFields() error = %v", err)
	}
	if got := d.Sorts(); len(got) != 0 {
		t.Errorf("Sorts() = %v after the sort fields were removed, want none", got)
	}

	if err := d.SetFields(ctx, customers); err != nil {
		t.Fatalf("SetFields() error = %v", err)
	}
	if err := d.SetSorts([]SortSpec{{Column: "balance"}}); err != nil {
		t.Fatalf("SetSorts() error = %v", err)
	}
	if err := d.SetFields(ctx, customers); err != nil {
		t.Fatalf("SetFields() error = %v", err)
	}
	if diff := cmp.Diff([]SortSpec{{Column: "balance", Dir: "asc"}}, d.Sorts()); diff != "" {
		t.Errorf("Sorts mismatch (-want +got):\n%s", diff)
	}
}

func TestDataset_UnsubscribeClosesChannel(t *testing.T) {
	d := newTestDataset(t, quietOptions())
	ch := d.Subscribe()
	d.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Error("channel open after Unsubscribe")
	}
}

func TestParseSortSpecs(t *testing.T) {
	tests := []struct {
		columns, dirs string
		want          []SortSpec
	}{
		{"", "", nil},
		{"amount", "", []SortSpec{{Column: "amount", Dir: "asc"}}},
		{"amount, name", "DESC", []SortSpec{{Column: "amount", Dir: "desc"}, {Column: "name", Dir: "asc"}}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, ParseSortSpecs(tt.columns, tt.dirs)); diff != "" {
			t.Errorf("ParseSortSpecs(%q, %q) mismatch (-want +got):\n%s", tt.columns, tt.dirs, diff)
		}
	}
}
