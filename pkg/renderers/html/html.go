package html

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/flosch/pongo2/v6"
	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-formwizard/pkg/render"
)

//go:embed templates/*.tpl
var templatesFS embed.FS

// ViewTemplate is the entry template name.
const ViewTemplate = "view.tpl"

// Option configures the HTML renderer.
type Option func(*Renderer)

// WithTemplatesFS replaces the bundled templates. fsys must provide
// view.tpl and table.tpl at its root.
func WithTemplatesFS(fsys fs.FS) Option {
	return func(r *Renderer) {
		if fsys != nil {
			r.templates = fsys
		}
	}
}

// WithThemes registers theme manifests selectable through
// render.Options.Theme and Variant.
func WithThemes(manifests ...*theme.Manifest) Option {
	return func(r *Renderer) {
		for _, m := range manifests {
			if m != nil && m.Name != "" {
				r.themes[m.Name] = m
			}
		}
	}
}

// WithThemeConfig sets the configuration used when no registered theme is
// selected.
func WithThemeConfig(cfg *theme.RendererConfig) Option {
	return func(r *Renderer) {
		r.fallback = cfg
	}
}

// Renderer draws views as HTML fragments through pongo2 templates.
type Renderer struct {
	mu        sync.RWMutex
	templates fs.FS
	tmpl      *pongo2.Template
	themes    map[string]*theme.Manifest
	fallback  *theme.RendererConfig
}

var _ render.Renderer = (*Renderer)(nil)

// New parses the templates and returns a renderer.
func New(options ...Option) (*Renderer, error) {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("html: templates: %w", err)
	}
	r := &Renderer{
		templates: sub,
		themes:    make(map[string]*theme.Manifest),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}

	registerFilters()
	set := pongo2.NewSet("formwizard", pongo2.NewFSLoader(r.templates))
	tmpl, err := set.FromFile(ViewTemplate)
	if err != nil {
		return nil, fmt.Errorf("html: load template %q: %w", ViewTemplate, err)
	}
	r.tmpl = tmpl
	return r, nil
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return "html"
}

// ContentType reports the serialization format used by Render.
func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// Render executes the view template. Edit and delete buttons carry
// data-intent, data-ref and data-source attributes mirroring render.Intent.
func (r *Renderer) Render(ctx context.Context, view render.View, options render.Options) ([]byte, error) {
	if ctx == nil {
		return nil, errors.New("html: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := pongo2.Context{
		"view":        buildView(view),
		"theme":       buildTheme(r.themeConfig(options.Theme, options.Variant)),
		"interactive": options.Interactive,
	}

	var buf bytes.Buffer
	r.mu.RLock()
	err := r.tmpl.ExecuteWriter(data, &buf)
	r.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("html: execute template: %w", err)
	}
	return buf.Bytes(), nil
}

type viewData struct {
	Title  string
	Notice string
	Panels []panelData
	Tables []tableData
	Footer []string
}

type panelData struct {
	Title      string
	Rows       []render.Row
	Ref        string
	Edit       bool
	Delete     bool
	EditIntent string
	EditLabel  string
	SubTable   *tableData
}

type tableData struct {
	ID          string
	Title       string
	Headers     []string
	Rows        [][]string
	Placeholder string
	Actions     bool
	Span        int
}

func buildView(view render.View) viewData {
	out := viewData{
		Title:  view.Title,
		Notice: view.Notice,
		Footer: view.Footer,
	}
	for _, p := range view.Panels {
		intent := p.EditIntent()
		label := "Edit"
		if p.Review {
			label = "Change"
		}
		panel := panelData{
			Title:      p.Title,
			Rows:       p.Rows,
			Ref:        p.Ref,
			Edit:       p.Edit,
			Delete:     p.Delete,
			EditIntent: string(intent.Kind),
			EditLabel:  label,
		}
		if p.SubTable != nil {
			sub := buildTable(*p.SubTable)
			panel.SubTable = &sub
		}
		out.Panels = append(out.Panels, panel)
	}
	for _, t := range view.Tables {
		out.Tables = append(out.Tables, buildTable(t))
	}
	return out
}

func buildTable(t render.Table) tableData {
	rows := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		cells := make([]string, 0, len(t.Columns))
		for _, column := range t.Columns {
			cells = append(cells, t.Cell(row, column))
		}
		rows = append(rows, cells)
	}
	span := len(t.Headers)
	if t.Actions {
		span++
	}
	if span == 0 {
		span = 1
	}
	return tableData{
		ID:          t.ID,
		Title:       t.Title,
		Headers:     t.Headers,
		Rows:        rows,
		Placeholder: render.OrNA(t.Placeholder),
		Actions:     t.Actions,
		Span:        span,
	}
}
