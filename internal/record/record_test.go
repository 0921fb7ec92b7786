package record

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xilytix/revdatasource/internal/value"
)

// stubSource is a minimal ValueSource driven directly by tests.
type stubSource struct {
	SourceBase
	values             []*value.Value
	activations        int
	deactivations      int
	incubateOnActivate bool
}

func newStubSource(data ...any) *stubSource {
	s := &stubSource{SourceBase: NewSourceBase(len(data))}
	for _, d := range data {
		s.values = append(s.values, value.New(d, nil))
	}
	return s
}

func (s *stubSource) Activate() []*value.Value {
	s.activations++
	if s.incubateOnActivate {
		s.MarkIncubated()
	}
	return s.values
}

func (s *stubSource) Deactivate()               { s.deactivations++ }
func (s *stubSource) AllValues() []*value.Value { return s.values }

func (s *stubSource) set(local int, datum any) {
	old := s.values[local].Datum()
	v := value.New(datum, nil)
	s.values[local] = v
	s.NotifyValuesChanged([]ValueChange{{FieldIndex: local, Value: v, Kind: value.ChangeKindOf(old, datum)}})
}

func (s *stubSource) replace(local int, data ...any) {
	vs := make([]*value.Value, len(data))
	for i, d := range data {
		vs[i] = value.New(d, nil)
		s.values[local+i] = vs[i]
	}
	s.NotifyAllValuesChanged(local, vs)
}

// eventLog records listener callbacks.
type eventLog struct {
	events []Event
}

func (l *eventLog) RecordChanged(_ *Record, e Event) { l.events = append(l.events, e) }

func datums(vs []*value.Value) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v.Datum()
	}
	return out
}

func newTwoSourceRecord() (*Record, *stubSource, *stubSource, *eventLog) {
	a := newStubSource(1, 2, 3)
	b := newStubSource("x", "y")
	r := New(0)
	r.AddSource(a)
	r.AddSource(b)
	log := &eventLog{}
	r.SetListener(log)
	return r, a, b, log
}

func TestRecord_FieldCountAndOffsets(t *testing.T) {
	r, a, b, _ := newTwoSourceRecord()

	if r.FieldCount() != 5 {
		t.Errorf("FieldCount() = %d, want 5", r.FieldCount())
	}
	if a.FirstFieldIndexOffset() != 0 || b.FirstFieldIndexOffset() != 3 {
		t.Errorf("offsets = %d, %d; want 0, 3", a.FirstFieldIndexOffset(), b.FirstFieldIndexOffset())
	}
	if len(r.Values()) != 5 {
		t.Errorf("len(Values()) = %d before activation, want 5", len(r.Values()))
	}
	for i, v := range r.Values() {
		if !v.IsUndefined() {
			t.Errorf("value %d defined before activation", i)
		}
	}
}

func TestRecord_Activate(t *testing.T) {
	r, a, b, _ := newTwoSourceRecord()
	r.Activate()

	if a.activations != 1 || b.activations != 1 {
		t.Errorf("activations = %d, %d; want 1, 1", a.activations, b.activations)
	}
	if diff := cmp.Diff([]any{1, 2, 3, "x", "y"}, datums(r.Values())); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
	if !r.Active() {
		t.Error("Active() = false after Activate()")
	}
}

func TestRecord_DeactivateKeepsValues(t *testing.T) {
	r, a, b, _ := newTwoSourceRecord()
	r.Activate()
	r.Deactivate()

	if a.deactivations != 1 || b.deactivations != 1 {
		t.Errorf("deactivations = %d, %d; want 1, 1", a.deactivations, b.deactivations)
	}
	if r.Value(4).Datum() != "y" {
		t.Errorf("Value(4) = %v after Deactivate(), want y", r.Value(4).Datum())
	}
}

func TestRecord_DiscreteChangeTranslated(t *testing.T) {
	r, _, b, log := newTwoSourceRecord()
	r.Activate()

	b.set(0, "z")

	if len(log.events) != 1 {
		t.Fatalf("got %d events, want 1", len(log.events))
	}
	e := log.events[0]
	if e.Kind != EventFieldsChanged {
		t.Errorf("Kind = %v, want fields_changed", e.Kind)
	}
	if len(e.Changes) != 1 || e.Changes[0].FieldIndex != 3 {
		t.Errorf("Changes = %+v, want one change at field 3", e.Changes)
	}
	if r.Value(3).Datum() != "z" {
		t.Errorf("Value(3) = %v, want z", r.Value(3).Datum())
	}
}

func TestRecord_DiscreteChangeKind(t *testing.T) {
	r, a, _, log := newTwoSourceRecord()
	r.Activate()

	a.set(1, 1)

	if got := log.events[0].Changes[0].Kind; got != value.ChangeDecrease {
		t.Errorf("Kind = %v, want decrease", got)
	}
}

func TestRecord_LargeDiscreteBatchNotPromoted(t *testing.T) {
	r, a, _, log := newTwoSourceRecord()
	r.Activate()

	changes := make([]ValueChange, 3)
	for i := range changes {
		changes[i] = ValueChange{FieldIndex: i, Value: value.New(i*10, nil)}
	}
	a.NotifyValuesChanged(changes)

	if log.events[0].Kind != EventFieldsChanged {
		t.Errorf("Kind = %v, want fields_changed", log.events[0].Kind)
	}
	if diff := cmp.Diff([]int{0, 1, 2}, log.events[0].FieldIndexes()); diff != "" {
		t.Errorf("FieldIndexes mismatch (-want +got):\n%s", diff)
	}
}

func TestRecord_BulkChange(t *testing.T) {
	tests := []struct {
		name      string
		single    bool
		apply     func(a, b *stubSource)
		wantKind  EventKind
		wantFirst int
		wantCount int
	}{
		{
			name:      "run within second source",
			apply:     func(a, b *stubSource) { b.replace(0, "p", "q") },
			wantKind:  EventFieldRunChanged,
			wantFirst: 3,
			wantCount: 2,
		},
		{
			name:      "run within first source",
			apply:     func(a, b *stubSource) { a.replace(1, 20, 30) },
			wantKind:  EventFieldRunChanged,
			wantFirst: 1,
			wantCount: 2,
		},
		{
			name:      "whole single-source record",
			single:    true,
			apply:     func(a, b *stubSource) { a.replace(0, 7, 8, 9) },
			wantKind:  EventRecordChanged,
			wantFirst: 0,
			wantCount: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newStubSource(1, 2, 3)
			b := newStubSource("x", "y")
			r := New(0)
			r.AddSource(a)
			if !tt.single {
				r.AddSource(b)
			}
			log := &eventLog{}
			r.SetListener(log)
			r.Activate()

			tt.apply(a, b)

			if len(log.events) != 1 {
				t.Fatalf("got %d events, want 1", len(log.events))
			}
			e := log.events[0]
			if e.Kind != tt.wantKind || e.FieldCount != tt.wantCount {
				t.Errorf("event = %+v, want kind %v count %d", e, tt.wantKind, tt.wantCount)
			}
			if e.Kind == EventFieldRunChanged && e.FirstFieldIndex != tt.wantFirst {
				t.Errorf("FirstFieldIndex = %d, want %d", e.FirstFieldIndex, tt.wantFirst)
			}
			if !e.Touches(tt.wantFirst) {
				t.Errorf("Touches(%d) = false for %+v", tt.wantFirst, e)
			}
			if e.Kind == EventFieldRunChanged && e.Touches(tt.wantFirst+tt.wantCount) {
				t.Errorf("Touches(%d) = true past the run", tt.wantFirst+tt.wantCount)
			}
		})
	}
}

func TestRecord_BulkChangeUpdatesValues(t *testing.T) {
	r, _, b, _ := newTwoSourceRecord()
	r.Activate()

	b.replace(0, "p", "q")

	if diff := cmp.Diff([]any{1, 2, 3, "p", "q"}, datums(r.Values())); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestRecord_Incubation(t *testing.T) {
	r, a, b, log := newTwoSourceRecord()
	r.Activate()

	if r.BeenIncubated() {
		t.Fatal("BeenIncubated() = true before any source incubated")
	}

	a.MarkIncubated()
	if r.BeenIncubated() {
		t.Error("BeenIncubated() = true with one of two sources incubated")
	}
	if len(log.events) != 0 {
		t.Errorf("unexpected events: %+v", log.events)
	}

	b.MarkIncubated()
	if !r.BeenIncubated() {
		t.Fatal("BeenIncubated() = false after all sources incubated")
	}
	if len(log.events) != 1 || log.events[0].Kind != EventIncubated {
		t.Fatalf("events = %+v, want one incubated event", log.events)
	}

	b.set(1, "later")
	b.MarkIncubated()
	if !r.BeenIncubated() {
		t.Error("BeenIncubated() reverted after data change")
	}
	incubated := 0
	for _, e := range log.events {
		if e.Kind == EventIncubated {
			incubated++
		}
	}
	if incubated != 1 {
		t.Errorf("incubated events = %d, want 1", incubated)
	}
}

func TestRecord_IncubatedDuringActivation(t *testing.T) {
	a := newStubSource(1)
	a.incubateOnActivate = true
	b := newStubSource(2)
	b.incubateOnActivate = true

	r := New(0)
	r.AddSource(a)
	r.AddSource(b)
	log := &eventLog{}
	r.SetListener(log)
	r.Activate()

	if !r.BeenIncubated() {
		t.Error("BeenIncubated() = false after activation of incubated sources")
	}
	if len(log.events) != 0 {
		t.Errorf("activation emitted events: %+v", log.events)
	}
}

func TestRecord_AllValues(t *testing.T) {
	single := newStubSource(1, 2)
	r := New(0)
	r.AddSource(single)
	r.Activate()

	got := r.AllValues()
	if &got[0] != &single.values[0] {
		t.Error("single-source AllValues() did not return the source snapshot")
	}

	multi, _, _, _ := newTwoSourceRecord()
	multi.Activate()
	if diff := cmp.Diff([]any{1, 2, 3, "x", "y"}, datums(multi.AllValues())); diff != "" {
		t.Errorf("AllValues mismatch (-want +got):\n%s", diff)
	}
}

func TestRecord_ClearRendering(t *testing.T) {
	calls := 0
	counting := func(d any) string { calls++; return value.Format(d) }

	s := &stubSource{SourceBase: NewSourceBase(2)}
	s.values = []*value.Value{value.New(1, counting), value.New(2, counting)}
	r := New(0)
	r.AddSource(s)
	r.Activate()

	for _, v := range r.Values() {
		v.RenderValue()
	}
	r.ClearRendering()
	for _, v := range r.Values() {
		v.RenderValue()
		v.RenderValue()
	}

	if calls != 4 {
		t.Errorf("projector calls = %d, want 4", calls)
	}
}

func TestRecord_UnboundSourceNotificationsDropped(t *testing.T) {
	s := newStubSource(1)
	s.set(0, 2)
	s.MarkIncubated()
	if !s.Incubated() {
		t.Error("Incubated() = false after MarkIncubated()")
	}
}

func TestRecord_IDsUnique(t *testing.T) {
	if New(0).ID() == New(1).ID() {
		t.Error("records share an ID")
	}
}
