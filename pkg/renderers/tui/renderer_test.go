package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/goliatone/go-formwizard/pkg/render"
)

func sampleView() render.View {
	return render.View{
		Title:  "Representative's information",
		Notice: "Correspondence goes to everyone below.",
		Panels: []render.Panel{{
			Title:  "Legal representative",
			Rows:   []render.Row{{Label: "Name", Value: "Jane Doe"}, {Label: "Mailing address", Value: "1 Main St\nLondon"}},
			Edit:   true,
			Delete: true,
			Ref:    "legalRep",
		}},
		Tables: []render.Table{{
			ID:      "tb-upload-doc",
			Title:   "Uploaded documents",
			Headers: []string{"File", "Description"},
			Columns: []string{"file", "desc"},
			Rows:    []map[string]string{{"file": "will.pdf"}},
			Actions: true,
		}},
		Footer: []string{"Total size of uploaded files: 12 KB"},
	}
}

func TestRenderer_Metadata(t *testing.T) {
	r := New()
	if r.Name() != "text" {
		t.Fatalf("Name = %q", r.Name())
	}
	if !strings.HasPrefix(r.ContentType(), "text/plain") {
		t.Fatalf("ContentType = %q", r.ContentType())
	}
}

func TestRenderer_RenderView(t *testing.T) {
	out, err := New().Render(context.Background(), sampleView(), render.Options{Interactive: true})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	text := string(out)
	for _, want := range []string{
		"Representative's information",
		"! Correspondence goes to everyone below.",
		"Legal representative",
		"Name:",
		"Jane Doe",
		"1 Main St",
		"London",
		"[edit] [delete]",
		"will.pdf",
		render.NA,
		"#",
		"Total size of uploaded files: 12 KB",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestRenderer_StaticOmitsAffordances(t *testing.T) {
	out, err := New().Render(context.Background(), sampleView(), render.Options{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(string(out), "[edit]") {
		t.Fatalf("static render lists edit affordance:\n%s", out)
	}
}

func TestRenderer_ReviewPanelOffersChange(t *testing.T) {
	view := render.View{Panels: []render.Panel{{Title: "Pre-screening", Edit: true, Review: true, Ref: "1"}}}
	out, err := New().Render(context.Background(), view, render.Options{Interactive: true})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(string(out), "[change]") {
		t.Fatalf("review panel missing change affordance:\n%s", out)
	}
}

func TestRenderer_EmptyTableShowsPlaceholder(t *testing.T) {
	view := render.View{Tables: []render.Table{{Title: "Uploaded documents", Placeholder: "No documents uploaded"}}}
	out, err := New().Render(context.Background(), view, render.Options{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(string(out), "No documents uploaded") {
		t.Fatalf("placeholder missing:\n%s", out)
	}
}

func TestRenderer_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().Render(ctx, sampleView(), render.Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestTranslateSurveyErr(t *testing.T) {
	if err := translateSurveyErr(terminal.InterruptErr); !errors.Is(err, ErrAborted) {
		t.Fatalf("interrupt not translated: %v", err)
	}
	other := errors.New("boom")
	if err := translateSurveyErr(other); err != other {
		t.Fatalf("unexpected translation: %v", err)
	}
}
