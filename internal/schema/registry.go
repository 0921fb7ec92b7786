package schema

import (
	"errors"
	"fmt"
)

var (
	ErrNoFields             = errors.New("no fields provided")
	ErrEmptyFieldName       = errors.New("field name is empty")
	ErrDuplicateField       = errors.New("duplicate field name")
	ErrFieldNotFound        = errors.New("field not found")
	ErrFieldNotRegistered   = errors.New("field not registered")
	ErrFieldIndexOutOfRange = errors.New("field index out of range")
	ErrNoSubscriber         = errors.New("schema registry has no subscriber")
)

// ChangeKind identifies a structural schema change.
type ChangeKind int

const (
	// ChangeInsert reports Count fields inserted starting at FirstIndex.
	ChangeInsert ChangeKind = iota

	// ChangeClear reports that all Count fields were removed.
	ChangeClear
)

// String returns the change kind name.
func (k ChangeKind) String() string {
	switch k {
	case ChangeInsert:
		return "insert"
	case ChangeClear:
		return "clear"
	default:
		return "unknown"
	}
}

// Change describes one structural schema change.
type Change struct {
	Kind       ChangeKind
	FirstIndex int
	Count      int
}

// Subscriber receives schema notifications. All callbacks are invoked
// synchronously from the mutating call.
//
// BeginChange and EndChange bracket batches of structural changes. Nested
// brackets collapse, so the subscriber sees at most one outer pair per batch.
// FieldAdded fires once per installed field for bookkeeping; SchemaChanged
// fires once per structural change.
type Subscriber interface {
	BeginChange()
	EndChange()
	FieldAdded(f *Field)
	SchemaChanged(c Change)
}

// Registry owns field identity and order for a dataset. It is not safe for
// concurrent use; owners serialize access.
type Registry struct {
	subscriber Subscriber

	fields    []*Field
	byName    map[string]*Field
	indexByID map[FieldID]int

	recordIndexDependent []int
	rowIndexDependent    []int

	nextID      FieldID
	changeDepth int
}

// NewRegistry creates an empty registry. A subscriber must be attached with
// Subscribe before any mutation.
func NewRegistry() *Registry {
	return &Registry{
		byName:    make(map[string]*Field),
		indexByID: make(map[FieldID]int),
	}
}

// Subscribe attaches the subscriber that receives all schema notifications,
// replacing any previous one.
func (r *Registry) Subscribe(s Subscriber) {
	r.subscriber = s
}

// Count returns the number of registered fields.
func (r *Registry) Count() int {
	return len(r.fields)
}

// Fields returns the registered fields in index order. The slice must not be
// modified.
func (r *Registry) Fields() []*Field {
	return r.fields
}

// Names returns the field names in index order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.fields))
	for i, f := range r.fields {
		names[i] = f.Name
	}
	return names
}

// BeginChange opens a change bracket. Only the outermost bracket is reported
// to the subscriber.
func (r *Registry) BeginChange() {
	r.requireSubscriber()
	r.changeDepth++
	if r.changeDepth == 1 {
		r.subscriber.BeginChange()
	}
}

// EndChange closes a bracket opened by BeginChange.
func (r *Registry) EndChange() {
	if r.changeDepth == 0 {
		panic("schema: EndChange without matching BeginChange")
	}
	r.changeDepth--
	if r.changeDepth == 0 {
		r.subscriber.EndChange()
	}
}

// AddField installs one field at the next index and reports a single-field
// insert. It panics if no subscriber is attached.
func (r *Registry) AddField(d Descriptor) (*Field, error) {
	r.requireSubscriber()
	if err := r.validate([]Descriptor{d}); err != nil {
		return nil, err
	}

	f := r.install(d)
	r.subscriber.SchemaChanged(Change{Kind: ChangeInsert, FirstIndex: f.index, Count: 1})
	return f, nil
}

// AddFields installs ds in order inside one change bracket. The subscriber
// gets one FieldAdded per field followed by a single insert change covering
// the whole batch. Nothing is installed if any descriptor is invalid.
func (r *Registry) AddFields(ds []Descriptor) error {
	r.requireSubscriber()
	if len(ds) == 0 {
		return ErrNoFields
	}
	if err := r.validate(ds); err != nil {
		return err
	}

	r.BeginChange()
	defer r.EndChange()

	r.addFields(ds)
	return nil
}

// SetFields replaces the whole schema. A non-empty schema is first cleared
// (reported as a clear change); then ds, if non-empty, is added. When both
// happen they share one change bracket and the clear is reported first.
func (r *Registry) SetFields(ds []Descriptor) error {
	r.requireSubscriber()
	if len(ds) > 0 {
		if err := r.validateAgainst(ds, nil); err != nil {
			return err
		}
	}

	clearing := len(r.fields) > 0
	adding := len(ds) > 0
	if clearing && adding {
		r.BeginChange()
		defer r.EndChange()
	}

	if clearing {
		r.clear()
	}
	if adding {
		r.BeginChange()
		r.addFields(ds)
		r.EndChange()
	}
	return nil
}

// Reset removes all fields. It is a no-op on an empty registry.
func (r *Registry) Reset() {
	if len(r.fields) == 0 {
		return
	}
	r.requireSubscriber()
	r.clear()
}

// HasField reports whether a field with the given name is registered.
func (r *Registry) HasField(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// Field returns the field at index.
func (r *Registry) Field(index int) (*Field, error) {
	if index < 0 || index >= len(r.fields) {
		return nil, fmt.Errorf("%w: %d (field count %d)", ErrFieldIndexOutOfRange, index, len(r.fields))
	}
	return r.fields[index], nil
}

// FieldByName returns the field with the given name.
func (r *Registry) FieldByName(name string) (*Field, error) {
	f, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrFieldNotFound, name)
	}
	return f, nil
}

// FieldIndex returns the current index of f.
func (r *Registry) FieldIndex(f *Field) (int, error) {
	if f == nil {
		return -1, fmt.Errorf("%w: nil field", ErrFieldNotRegistered)
	}
	idx, ok := r.indexByID[f.id]
	if !ok || r.fields[idx] != f {
		return -1, fmt.Errorf("%w: %s", ErrFieldNotRegistered, f.Name)
	}
	return idx, nil
}

// FieldIndexByName returns the index of the field with the given name.
func (r *Registry) FieldIndexByName(name string) (int, error) {
	f, err := r.FieldByName(name)
	if err != nil {
		return -1, err
	}
	return r.indexByID[f.id], nil
}

// RecordIndexDependentFieldIndexes returns the indexes of fields whose values
// change when records are renumbered. The slice must not be modified.
func (r *Registry) RecordIndexDependentFieldIndexes() []int {
	return r.recordIndexDependent
}

// RowIndexDependentFieldIndexes returns the indexes of fields whose values
// change when the view reorders rows. The slice must not be modified.
func (r *Registry) RowIndexDependentFieldIndexes() []int {
	return r.rowIndexDependent
}

func (r *Registry) requireSubscriber() {
	if r.subscriber == nil {
		panic(ErrNoSubscriber)
	}
}

func (r *Registry) validate(ds []Descriptor) error {
	return r.validateAgainst(ds, r.byName)
}

// validateAgainst checks names in ds for emptiness and for duplicates within
// ds and against existing.
func (r *Registry) validateAgainst(ds []Descriptor, existing map[string]*Field) error {
	seen := make(map[string]bool, len(ds))
	for _, d := range ds {
		if d.Name == "" {
			return ErrEmptyFieldName
		}
		if _, ok := existing[d.Name]; ok || seen[d.Name] {
			return fmt.Errorf("%w: %q", ErrDuplicateField, d.Name)
		}
		seen[d.Name] = true
	}
	return nil
}

// addFields installs ds and reports one insert change. Callers hold a bracket.
func (r *Registry) addFields(ds []Descriptor) {
	first := len(r.fields)
	for _, d := range ds {
		r.install(d)
	}
	r.subscriber.SchemaChanged(Change{Kind: ChangeInsert, FirstIndex: first, Count: len(ds)})
}

// install appends one field, updates every index and reports FieldAdded.
func (r *Registry) install(d Descriptor) *Field {
	f := &Field{
		Descriptor: d,
		id:         r.nextID,
		index:      len(r.fields),
	}
	r.nextID++

	r.fields = append(r.fields, f)
	r.byName[f.Name] = f
	r.indexByID[f.id] = f.index
	if d.DependsOnRecordIndex {
		r.recordIndexDependent = append(r.recordIndexDependent, f.index)
	}
	if d.DependsOnRowIndex {
		r.rowIndexDependent = append(r.rowIndexDependent, f.index)
	}

	r.subscriber.FieldAdded(f)
	return f
}

// clear reports a clear change and then drops every field and index.
func (r *Registry) clear() {
	r.subscriber.SchemaChanged(Change{Kind: ChangeClear, FirstIndex: 0, Count: len(r.fields)})

	r.fields = nil
	r.byName = make(map[string]*Field)
	r.indexByID = make(map[FieldID]int)
	r.recordIndexDependent = nil
	r.rowIndexDependent = nil
}
