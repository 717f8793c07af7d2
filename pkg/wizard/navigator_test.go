package wizard_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formwizard/pkg/events"
	"github.com/goliatone/go-formwizard/pkg/form"
	"github.com/goliatone/go-formwizard/pkg/store"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

func fixture() (*form.Document, []wizard.Step) {
	doc := form.MustDocument(
		&form.Element{ID: "step-0-form", Kind: form.KindStep},
		&form.Element{ID: "step-1-form", Kind: form.KindStep, Children: []*form.Element{
			{ID: "s1q1-op1", Kind: form.KindRadio, Name: "s1q1", Value: "Yes"},
			{ID: "s1q1-op2", Kind: form.KindRadio, Name: "s1q1", Value: "No"},
			{ID: "s1-note", Kind: form.KindTextArea, Name: "note"},
			{ID: "s1-anon", Kind: form.KindText},
		}},
		&form.Element{ID: "step-2-form", Kind: form.KindStep, Children: []*form.Element{
			{ID: "s2-desc", Kind: form.KindText, Name: "desc"},
		}},
	)
	steps := []wizard.Step{
		{Index: 0, Title: "Before you begin", Root: "step-0-form"},
		{Index: 1, Title: "Pre-screening", Root: "step-1-form", HasExit: true},
		{Index: 2, Title: "Documents", Root: "step-2-form", Collection: "uploadedDocuments"},
	}
	return doc, steps
}

func newNavigator(t *testing.T, s *store.Store, doc *form.Document, steps []wizard.Step, options ...wizard.Option) *wizard.Navigator {
	t.Helper()
	w, err := s.Claim("navigator", wizard.StepKeyPrefix+"*", wizard.CurrentStepKey.Name)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	nav, err := wizard.New(doc, steps, w, options...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return nav
}

func TestNavigator_GoToPersistsCurrentStep(t *testing.T) {
	ctx := context.Background()
	s := store.New()
	doc, steps := fixture()
	nav := newNavigator(t, s, doc, steps)

	if err := nav.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if moved, err := nav.GoTo(ctx, wizard.Previous); moved || err != nil {
		t.Fatalf("GoTo before first step = %v, %v; want no-op", moved, err)
	}
	if _, err := nav.GoTo(ctx, wizard.Next); err != nil {
		t.Fatalf("GoTo: %v", err)
	}

	radio, _ := doc.ByID("s1q1-op2")
	radio.Checked = true
	note, _ := doc.ByID("s1-note")
	note.Value = "estate is small"
	anon, _ := doc.ByID("s1-anon")
	anon.Value = "never stored"

	if _, err := nav.GoTo(ctx, wizard.Next); err != nil {
		t.Fatalf("GoTo: %v", err)
	}
	rec, ok, err := nav.LoadRecord(ctx, 1)
	if err != nil || !ok {
		t.Fatalf("LoadRecord = %v, %v", ok, err)
	}
	if diff := cmp.Diff(form.Values{"s1q1": "No", "note": "estate is small"}, rec.Fields); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}
	if moved, _ := nav.GoTo(ctx, wizard.Next); moved {
		t.Fatalf("GoTo past the last step should be a no-op")
	}

	current, _, _ := wizard.CurrentStepKey.Load(ctx, s)
	if current != 2 {
		t.Fatalf("currentStep = %d, want 2", current)
	}
}

func TestNavigator_JumpDoesNotPersist(t *testing.T) {
	ctx := context.Background()
	s := store.New()
	doc, steps := fixture()
	nav := newNavigator(t, s, doc, steps)
	if err := nav.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}

	if moved, err := nav.Jump(ctx, 2); !moved || err != nil {
		t.Fatalf("Jump = %v, %v", moved, err)
	}
	if s.Has(ctx, wizard.StepKey(0)) {
		t.Fatalf("jump must not persist the step it leaves")
	}
	if moved, err := nav.Jump(ctx, 9); moved || err != nil {
		t.Fatalf("Jump out of range = %v, %v; want no-op", moved, err)
	}
	if nav.ActiveIndex() != 2 {
		t.Fatalf("active = %d, want 2", nav.ActiveIndex())
	}
}

func TestNavigator_RoundTripThroughFreshDocument(t *testing.T) {
	ctx := context.Background()
	s := store.New()
	doc, steps := fixture()
	nav := newNavigator(t, s, doc, steps)
	if err := nav.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if _, err := nav.Jump(ctx, 1); err != nil {
		t.Fatalf("Jump: %v", err)
	}
	radio, _ := doc.ByID("s1q1-op1")
	radio.Checked = true
	if err := nav.Persist(ctx, 1); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	want, _ := nav.Serialize(ctx, 1)

	// A reload builds a fresh document over the same store.
	freshDoc, _ := fixture()
	fresh, err := wizard.New(freshDoc, steps, mustWriter(t, s))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := fresh.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if fresh.ActiveIndex() != 1 {
		t.Fatalf("reload resumed at %d, want 1", fresh.ActiveIndex())
	}
	got, _ := fresh.Serialize(ctx, 1)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func mustWriter(t *testing.T, s *store.Store) *store.Writer {
	t.Helper()
	w, err := s.Claim("navigator", wizard.StepKeyPrefix+"*", wizard.CurrentStepKey.Name)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	return w
}

type countingController struct {
	activations, leaves int
}

func (c *countingController) OnActivate(context.Context) error { c.activations++; return nil }
func (c *countingController) OnLeave(context.Context) error    { c.leaves++; return nil }

func TestNavigator_ControllersAreCreatedOnce(t *testing.T) {
	ctx := context.Background()
	doc, steps := fixture()

	built := 0
	ctrl := &countingController{}
	reg := wizard.NewRegistry()
	if err := reg.Register(1, func(wizard.Step) (wizard.StepController, error) {
		built++
		return ctrl, nil
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	rec := &events.Recorder{}
	nav := newNavigator(t, store.New(), doc, steps, wizard.WithRegistry(reg), wizard.WithPublisher(rec))

	if err := nav.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if _, ok := nav.Controller(1); ok {
		t.Fatalf("controller must not exist before its step is activated")
	}
	for _, idx := range []int{1, 2, 1, 0} {
		if _, err := nav.Jump(ctx, idx); err != nil {
			t.Fatalf("Jump(%d): %v", idx, err)
		}
	}
	if built != 1 || ctrl.activations != 2 || ctrl.leaves != 2 {
		t.Fatalf("built=%d activations=%d leaves=%d", built, ctrl.activations, ctrl.leaves)
	}

	var got []events.StepActivated
	for _, ev := range rec.Events() {
		got = append(got, ev.(events.StepActivated))
	}
	want := []events.StepActivated{
		{Index: 0, Previous: -1},
		{Index: 1, Previous: 0},
		{Index: 2, Previous: 1},
		{Index: 1, Previous: 2},
		{Index: 0, Previous: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestNavigator_BadgesAndStatus(t *testing.T) {
	ctx := context.Background()
	doc, steps := fixture()
	nav := newNavigator(t, store.New(), doc, steps)
	if err := nav.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}

	labels := func() []string {
		var out []string
		for _, b := range nav.Badges() {
			out = append(out, b.Label)
		}
		return out
	}
	if diff := cmp.Diff([]string{"i", "1", "2"}, labels()); diff != "" {
		t.Fatalf("initial badges (-want +got):\n%s", diff)
	}
	if _, err := nav.Jump(ctx, 2); err != nil {
		t.Fatalf("Jump: %v", err)
	}
	if diff := cmp.Diff([]string{"✓", "✓", "2"}, labels()); diff != "" {
		t.Fatalf("badges at last step (-want +got):\n%s", diff)
	}
	if nav.Status(1) != wizard.StatusCompleted || nav.Status(2) != wizard.StatusActive {
		t.Fatalf("unexpected statuses %q %q", nav.Status(1), nav.Status(2))
	}
}

func TestNavigator_EmbedsCollectionSnapshot(t *testing.T) {
	ctx := context.Background()
	s := store.New()
	doc, steps := fixture()
	docs := []map[string]any{{"fileName": "will.pdf", "sizeKB": 500}}
	nav := newNavigator(t, s, doc, steps, wizard.WithCollection("uploadedDocuments", func(context.Context) (any, error) {
		return docs, nil
	}))
	desc, _ := doc.ByID("s2-desc")
	desc.Value = "scanned"

	if err := nav.Persist(ctx, 2); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	raw, _, err := s.Raw(ctx, wizard.StepKey(2))
	if err != nil {
		t.Fatalf("Raw: %v", err)
	}
	var flat map[string]any
	if err := json.Unmarshal(raw, &flat); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := map[string]any{
		"desc":              "scanned",
		"uploadedDocuments": []any{map[string]any{"fileName": "will.pdf", "sizeKB": float64(500)}},
	}
	if diff := cmp.Diff(want, flat); diff != "" {
		t.Fatalf("flattened record mismatch (-want +got):\n%s", diff)
	}

	rec, _, _ := nav.LoadRecord(ctx, 2)
	if _, ok := rec.Embedded["uploadedDocuments"]; !ok || rec.Fields["desc"] != "scanned" {
		t.Fatalf("record did not split back: %+v", rec)
	}
}

func TestNew_Validation(t *testing.T) {
	doc, steps := fixture()
	w := mustWriter(t, store.New())

	if _, err := wizard.New(doc, nil, w); err == nil {
		t.Fatalf("expected error for no steps")
	}
	bad := append([]wizard.Step(nil), steps...)
	bad[1].Index = 5
	if _, err := wizard.New(doc, bad, w); err == nil {
		t.Fatalf("expected error for non-contiguous index")
	}
	bad = append([]wizard.Step(nil), steps...)
	bad[2].Root = "missing"
	if _, err := wizard.New(doc, bad, w); err == nil {
		t.Fatalf("expected error for missing root")
	}

	nav, _ := wizard.New(doc, steps, w)
	if _, err := nav.GoTo(context.Background(), wizard.Next); !errors.Is(err, wizard.ErrNotInitialised) {
		t.Fatalf("GoTo before Init: %v", err)
	}
}

func TestNavigator_FailedControllerKeepsActiveStep(t *testing.T) {
	ctx := context.Background()
	doc, steps := fixture()
	s := store.New()

	first := &countingController{}
	reg := wizard.NewRegistry()
	if err := reg.Register(0, func(wizard.Step) (wizard.StepController, error) { return first, nil }); err != nil {
		t.Fatalf("Register: %v", err)
	}
	boom := errors.New("boom")
	if err := reg.Register(1, func(wizard.Step) (wizard.StepController, error) { return nil, boom }); err != nil {
		t.Fatalf("Register: %v", err)
	}
	nav := newNavigator(t, s, doc, steps, wizard.WithRegistry(reg))
	if err := nav.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}

	if _, err := nav.GoTo(ctx, wizard.Next); !errors.Is(err, boom) {
		t.Fatalf("GoTo err = %v, want %v", err, boom)
	}
	if got := nav.ActiveIndex(); got != 0 {
		t.Fatalf("active index = %d, want 0", got)
	}
	if first.leaves != 0 {
		t.Fatalf("active step was told it is left %d times", first.leaves)
	}
	current, ok, err := wizard.CurrentStepKey.Load(ctx, s)
	if err != nil || !ok || current != 0 {
		t.Fatalf("currentStep = %d, %v, %v; want 0", current, ok, err)
	}
}
