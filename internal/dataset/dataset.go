// Package dataset owns a schema and the records built against it, and serves
// them as an ordered, windowed view.
//
// Every record is assembled from two value sources: a data source owning one
// field per schema field, and an [source.IndexSource] serving the fields flagged
// as record or row index dependent. The data source leaves those fields
// undefined; the dataset reads them from the index source instead.
//
// The core packages are single threaded. A Dataset serializes every call with
// one mutex and publishes events to subscribers after the call completes.
package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/xilytix/revdatasource/internal/logging"
	"github.com/xilytix/revdatasource/internal/record"
	"github.com/xilytix/revdatasource/internal/schema"
	"github.com/xilytix/revdatasource/internal/source"
)

// Options tunes a Dataset. Zero fields take the defaults below.
type Options struct {
	// MaxSorts caps the number of sort columns.
	MaxSorts int
	// PartialSortThreshold is the record count above which a window request
	// on an unsorted view orders only the requested rows.
	PartialSortThreshold int
	// EventBuffer is the channel capacity per subscriber.
	EventBuffer int
	Logger      *slog.Logger
}

const (
	DefaultMaxSorts             = 3
	DefaultPartialSortThreshold = 5000
	DefaultEventBuffer          = 64
)

func (o Options) withDefaults() Options {
	if o.MaxSorts <= 0 {
		o.MaxSorts = DefaultMaxSorts
	}
	if o.PartialSortThreshold <= 0 {
		o.PartialSortThreshold = DefaultPartialSortThreshold
	}
	if o.EventBuffer <= 0 {
		o.EventBuffer = DefaultEventBuffer
	}
	if o.Logger == nil {
		o.Logger = logging.Component("dataset")
	}
	return o
}

// entry is the dataset's bookkeeping for one record.
type entry struct {
	rec   *record.Record
	data  record.ValueSource
	index *source.IndexSource
	row   int
}

// Dataset is a schema plus the records built against it.
type Dataset struct {
	opts   Options
	log    *slog.Logger
	loader Loader

	mu       sync.Mutex
	registry *schema.Registry
	layout   layout

	records []*entry // collection order
	rows    []*entry // view order
	byID    map[uuid.UUID]*entry
	byRec   map[*record.Record]*entry

	sorts       []sortKey
	sorted      bool
	schemaDirty bool

	pending []Event

	listenerMu sync.Mutex
	listeners  []chan Event
}

// New creates an empty dataset. loader may be nil, in which case records are
// only added through AddRecord.
func New(loader Loader, opts Options) *Dataset {
	opts = opts.withDefaults()
	d := &Dataset{
		opts:     opts,
		log:      opts.Logger,
		loader:   loader,
		registry: schema.NewRegistry(),
		byID:     make(map[uuid.UUID]*entry),
		byRec:    make(map[*record.Record]*entry),
		sorted:   true,
	}
	d.registry.Subscribe(schemaSubscriber{d})
	return d
}

// layout maps schema field indexes to record-local ones.
type layout struct {
	fieldCount int
	slots      []int // schema index -> record-local index
	indexKinds []source.IndexKind
}

func newLayout(fields []*schema.Field) layout {
	l := layout{
		fieldCount: len(fields),
		slots:      make([]int, len(fields)),
	}
	for i, f := range fields {
		switch {
		case f.DependsOnRecordIndex:
			l.slots[i] = len(fields) + len(l.indexKinds)
			l.indexKinds = append(l.indexKinds, source.RecordIndex)
		case f.DependsOnRowIndex:
			l.slots[i] = len(fields) + len(l.indexKinds)
			l.indexKinds = append(l.indexKinds, source.RowIndex)
		default:
			l.slots[i] = i
		}
	}
	return l
}

// computed reports whether the schema field at index is served by the index
// source.
func (l layout) computed(index int) bool {
	return l.slots[index] >= l.fieldCount
}

// Fields returns the current field descriptors in order.
func (d *Dataset) Fields() []schema.Descriptor {
	d.mu.Lock()
	defer d.unlock()

	fields := d.registry.Fields()
	ds := make([]schema.Descriptor, len(fields))
	for i, f := range fields {
		ds[i] = f.Descriptor
	}
	return ds
}

// SetFields replaces the schema, discarding every record, and reloads the
// records through the loader when there is one.
func (d *Dataset) SetFields(ctx context.Context, ds []schema.Descriptor) error {
	d.mu.Lock()
	defer d.unlock()

	// The outer bracket makes a clear-only replacement report EndChange too.
	d.registry.BeginChange()
	err := d.registry.SetFields(ds)
	d.registry.EndChange()
	if err != nil {
		return fmt.Errorf("set fields: %w", err)
	}
	d.log.Info("schema replaced", "fields", len(ds))

	if d.loader == nil {
		return nil
	}
	return d.reload(ctx)
}

// Reload discards every record and loads them again through the loader.
func (d *Dataset) Reload(ctx context.Context) error {
	d.mu.Lock()
	defer d.unlock()

	if d.loader == nil {
		return ErrNoLoader
	}
	d.dropRecords()
	return d.reload(ctx)
}

func (d *Dataset) reload(ctx context.Context) error {
	fields := d.registry.Fields()
	ds := make([]schema.Descriptor, len(fields))
	for i, f := range fields {
		ds[i] = f.Descriptor
	}

	sources, err := d.loader.Load(ctx, ds)
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}

	// Append in load order; the next Window sorts once.
	d.sorted = len(d.sorts) == 0
	for _, src := range sources {
		if _, err := d.addRecord(src); err != nil {
			return err
		}
	}
	d.log.Info("records loaded", "records", len(sources))
	d.queue(Event{Kind: EventRecordsReset, Count: len(d.records)})
	return nil
}

// dropRecords deactivates and forgets every record. Callers hold d.mu.
func (d *Dataset) dropRecords() {
	for _, e := range d.records {
		e.rec.Deactivate()
		e.rec.SetListener(nil)
	}
	d.records = nil
	d.rows = nil
	d.byID = make(map[uuid.UUID]*entry)
	d.byRec = make(map[*record.Record]*entry)
	d.sorted = true
}

// schemaSubscriber receives the registry's notifications. It runs with d.mu
// held by the mutating call.
type schemaSubscriber struct {
	d *Dataset
}

func (s schemaSubscriber) BeginChange()             {}
func (s schemaSubscriber) FieldAdded(*schema.Field) {}

func (s schemaSubscriber) SchemaChanged(c schema.Change) {
	d := s.d
	d.log.Debug("schema change", "kind", c.Kind, "first", c.FirstIndex, "count", c.Count)

	d.schemaDirty = true

	// Sources are built against a fixed field list, so any structural change
	// invalidates the records.
	if len(d.records) > 0 {
		d.dropRecords()
		d.queue(Event{Kind: EventRecordsReset})
	}
}

func (s schemaSubscriber) EndChange() {
	d := s.d
	if !d.schemaDirty {
		return
	}
	d.schemaDirty = false
	d.layout = newLayout(d.registry.Fields())
	d.sorts = d.resolveSorts(d.sortSpecs())
	d.queue(Event{Kind: EventSchemaChanged, Fields: d.registry.Names(), Count: d.registry.Count()})
}
