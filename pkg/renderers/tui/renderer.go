package tui

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/goliatone/go-formwizard/pkg/render"
)

// Renderer implements render.Renderer for terminals and plain text exports.
type Renderer struct {
	theme Theme
	lg    *lipgloss.Renderer
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs a text renderer. Output is unstyled unless WithOutput
// points it at a colour capable terminal.
func New(options ...Option) *Renderer {
	r := &Renderer{
		theme: DefaultTheme(),
		lg:    lipgloss.NewRenderer(io.Discard),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	return r
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return "text"
}

// ContentType reports the serialization format used by Render.
func (r *Renderer) ContentType() string {
	return "text/plain; charset=utf-8"
}

type styles struct {
	title  lipgloss.Style
	notice lipgloss.Style
	panel  lipgloss.Style
	label  lipgloss.Style
	muted  lipgloss.Style
}

func (r *Renderer) styles() styles {
	colour := func(s lipgloss.Style, c string) lipgloss.Style {
		if c == "" {
			return s
		}
		return s.Foreground(lipgloss.Color(c))
	}
	return styles{
		title:  colour(r.lg.NewStyle().Bold(true), r.theme.Accent),
		notice: colour(r.lg.NewStyle(), r.theme.Warning),
		panel:  colour(r.lg.NewStyle().Bold(true), r.theme.Accent),
		label:  r.lg.NewStyle().Bold(true),
		muted:  colour(r.lg.NewStyle(), r.theme.Muted),
	}
}

// Render draws the view as text. Edit and delete affordances are listed
// only when options.Interactive is set.
func (r *Renderer) Render(ctx context.Context, view render.View, options render.Options) ([]byte, error) {
	if ctx == nil {
		return nil, errors.New("tui: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := r.styles()
	var b strings.Builder
	if view.Title != "" {
		b.WriteString(s.title.Render(view.Title))
		b.WriteByte('\n')
		b.WriteString(strings.Repeat("=", lipgloss.Width(view.Title)))
		b.WriteByte('\n')
	}
	if view.Notice != "" {
		b.WriteString(s.notice.Render(r.theme.NoticePrefix + view.Notice))
		b.WriteByte('\n')
	}
	for _, panel := range view.Panels {
		b.WriteByte('\n')
		r.writePanel(&b, s, panel, options)
	}
	for _, t := range view.Tables {
		b.WriteByte('\n')
		r.writeTable(&b, s, t, options)
	}
	if len(view.Footer) > 0 {
		b.WriteByte('\n')
		for _, line := range view.Footer {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return []byte(b.String()), nil
}

func (r *Renderer) writePanel(b *strings.Builder, s styles, panel render.Panel, options render.Options) {
	b.WriteString(s.panel.Render(panel.Title))
	b.WriteByte('\n')
	for _, row := range panel.Rows {
		prefix := "  " + row.Label + ": "
		indent := strings.Repeat(" ", lipgloss.Width(prefix))
		lines := strings.Split(row.Value, "\n")
		b.WriteString("  " + s.label.Render(row.Label+":") + " " + lines[0])
		b.WriteByte('\n')
		for _, line := range lines[1:] {
			b.WriteString(indent + line)
			b.WriteByte('\n')
		}
	}
	if panel.SubTable != nil {
		r.writeTable(b, s, *panel.SubTable, render.Options{})
	}
	if !options.Interactive {
		return
	}
	var actions []string
	if panel.Edit {
		if panel.Review {
			actions = append(actions, "[change]")
		} else {
			actions = append(actions, "[edit]")
		}
	}
	if panel.Delete {
		actions = append(actions, "[delete]")
	}
	if len(actions) > 0 {
		b.WriteString("  " + s.muted.Render(strings.Join(actions, " ")))
		b.WriteByte('\n')
	}
}

func (r *Renderer) writeTable(b *strings.Builder, s styles, t render.Table, options render.Options) {
	if t.Title != "" {
		b.WriteString(s.panel.Render(t.Title))
		b.WriteByte('\n')
	}
	if len(t.Rows) == 0 {
		b.WriteString(s.muted.Render(render.OrNA(t.Placeholder)))
		b.WriteByte('\n')
		return
	}
	numbered := options.Interactive && t.Actions
	headers := t.Headers
	if numbered {
		headers = append([]string{"#"}, headers...)
	}
	tbl := table.New().Border(lipgloss.NormalBorder()).Headers(headers...)
	for i, row := range t.Rows {
		cells := make([]string, 0, len(t.Columns)+1)
		if numbered {
			cells = append(cells, strconv.Itoa(i+1))
		}
		for _, column := range t.Columns {
			cells = append(cells, t.Cell(row, column))
		}
		tbl.Row(cells...)
	}
	b.WriteString(tbl.String())
	b.WriteByte('\n')
}
