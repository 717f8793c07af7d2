package tui

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/lipgloss"

	"github.com/goliatone/go-formwizard/pkg/render"
)

// Theme captures the colours and prefixes used when printing views. Colours
// are lipgloss colour strings; empty values leave text unstyled.
type Theme struct {
	Accent       string
	Muted        string
	Warning      string
	NoticePrefix string
	ErrorPrefix  string
}

// DefaultTheme is used when no theme is supplied.
func DefaultTheme() Theme {
	return Theme{
		Accent:       "#5B8DEF",
		Muted:        "#A0AEC0",
		Warning:      "#F7B801",
		NoticePrefix: "! ",
		ErrorPrefix:  "x ",
	}
}

// Option configures the text renderer.
type Option func(*Renderer)

// WithTheme replaces the default theme.
func WithTheme(theme Theme) Option {
	return func(r *Renderer) {
		r.theme = theme
	}
}

// WithOutput sizes colour support to out. Without it output is plain.
func WithOutput(out io.Writer) Option {
	return func(r *Renderer) {
		if out != nil {
			r.lg = lipgloss.NewRenderer(out)
		}
	}
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithPromptDriver overrides the prompt driver used by the runner.
func WithPromptDriver(driver PromptDriver) RunnerOption {
	return func(r *Runner) {
		if driver != nil {
			r.driver = driver
		}
	}
}

// WithRenderer overrides the renderer used to print each step.
func WithRenderer(renderer render.Renderer) RunnerOption {
	return func(r *Runner) {
		if renderer != nil {
			r.renderer = renderer
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}
