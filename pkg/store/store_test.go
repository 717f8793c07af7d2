package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formwizard/pkg/events"
	"github.com/goliatone/go-formwizard/pkg/store"
)

type deceased struct {
	Name string `json:"name"`
	SIN  string `json:"sin"`
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	rec := &events.Recorder{}
	s := store.New(store.WithPublisher(rec))

	w, err := s.Claim("seed", "deceasedInfo")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	key := store.NewKey[deceased]("deceasedInfo")

	if _, ok, err := key.Load(ctx, s); err != nil || ok {
		t.Fatalf("expected missing record, got ok=%v err=%v", ok, err)
	}

	want := deceased{Name: "John Doe", SIN: "123 456 789"}
	if err := key.Save(ctx, w, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := key.Load(ctx, s)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}

	wantEvents := []events.Event{events.RecordSaved{Key: "deceasedInfo", Owner: "seed"}}
	if diff := cmp.Diff(wantEvents, rec.Events()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_SingleWriterPerKey(t *testing.T) {
	ctx := context.Background()
	s := store.New()

	nav, err := s.Claim("navigator", "stepData_*")
	if err != nil {
		t.Fatalf("claim navigator: %v", err)
	}
	if _, err := s.Claim("documents", "stepData_5"); !errors.Is(err, store.ErrClaimed) {
		t.Fatalf("expected ErrClaimed for overlapping claim, got %v", err)
	}
	docs, err := s.Claim("documents", "uploadedDocuments")
	if err != nil {
		t.Fatalf("claim documents: %v", err)
	}

	if err := nav.Save(ctx, "stepData_5", map[string]string{"a": "b"}); err != nil {
		t.Fatalf("navigator save: %v", err)
	}
	if err := docs.Save(ctx, "stepData_5", map[string]string{}); !errors.Is(err, store.ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if err := nav.Save(ctx, "uploadedDocuments", []string{}); !errors.Is(err, store.ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}

	owner, ok := s.Owner("stepData_12")
	if !ok || owner != "navigator" {
		t.Fatalf("owner mismatch: %q %v", owner, ok)
	}
}

func TestStore_TeardownHonoursForwardingFlag(t *testing.T) {
	ctx := context.Background()
	s := store.New()
	w, _ := s.Claim("seed", "deceasedInfo")
	_ = w.Save(ctx, "deceasedInfo", deceased{Name: "x"})

	s.SetForwarding(true)
	cleared, err := s.Teardown(ctx)
	if err != nil || cleared {
		t.Fatalf("expected suppressed teardown, cleared=%v err=%v", cleared, err)
	}
	if !s.Has(ctx, "deceasedInfo") {
		t.Fatalf("record should survive a forwarded teardown")
	}
	if s.Forwarding() {
		t.Fatalf("forwarding flag should reset after teardown")
	}

	cleared, err = s.Teardown(ctx)
	if err != nil || !cleared {
		t.Fatalf("expected teardown to clear, cleared=%v err=%v", cleared, err)
	}
	if s.Has(ctx, "deceasedInfo") {
		t.Fatalf("record should be cleared")
	}
}

func TestStore_NullIsMissing(t *testing.T) {
	ctx := context.Background()
	s := store.New()
	w, _ := s.Claim("seed", "legalRepresentative")
	if err := w.Save(ctx, "legalRepresentative", nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	var dst map[string]string
	ok, err := s.Load(ctx, "legalRepresentative", &dst)
	if err != nil || ok {
		t.Fatalf("null record should read as missing, ok=%v err=%v", ok, err)
	}
}

func TestHandoff_ForwardSurvivesTeardown(t *testing.T) {
	ctx := context.Background()
	s := store.New()
	w, _ := s.Claim("seed", "deceasedInfo", "racUserName")
	_ = w.Save(ctx, "deceasedInfo", deceased{Name: "John"})
	_ = w.Save(ctx, "racUserName", "Sam Rep")

	h := store.NewHandoff()
	if err := h.Forward(ctx, s, "deceasedInfo", "legalRepresentative", "racUserName"); err != nil {
		t.Fatalf("forward: %v", err)
	}
	if _, err := s.Teardown(ctx); err != nil {
		t.Fatalf("teardown: %v", err)
	}

	var got deceased
	if ok, err := h.Take("deceasedInfo", &got); err != nil || !ok || got.Name != "John" {
		t.Fatalf("take deceasedInfo: ok=%v err=%v got=%+v", ok, err, got)
	}
	var rep map[string]string
	if ok, _ := h.Take("legalRepresentative", &rep); ok {
		t.Fatalf("missing legal rep should forward as absent")
	}
	if diff := cmp.Diff([]string{"deceasedInfo", "legalRepresentative", "racUserName"}, h.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_DecodeFailureIsTyped(t *testing.T) {
	ctx := context.Background()
	s := store.New()
	w, _ := s.Claim("documents", "uploadedDocuments")
	if err := w.Save(ctx, "uploadedDocuments", "placeholder"); err != nil {
		t.Fatalf("save: %v", err)
	}
	var dst []map[string]string
	_, err := s.Load(ctx, "uploadedDocuments", &dst)
	if !errors.Is(err, store.ErrDecode) {
		t.Fatalf("Load err = %v, want ErrDecode", err)
	}
}
