package formwizard

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formwizard/pkg/config"
	"github.com/goliatone/go-formwizard/pkg/intake"
	"github.com/goliatone/go-formwizard/pkg/render"
	"github.com/goliatone/go-formwizard/pkg/renderers/html"
	"github.com/goliatone/go-formwizard/pkg/renderers/tui"
)

// Task aliases intake.Task for callers that only use the root package.
type Task = intake.Task

// Wizard aliases the intake facade.
type Wizard = intake.Wizard

// LoadDefinition reads the wizard definition at path. An empty path returns
// the bundled estate-intake definition.
func LoadDefinition(path string) (*config.Definition, error) {
	if strings.TrimSpace(path) == "" {
		return config.Default()
	}
	return config.Load(path)
}

// LoadTask reads a task from a JSON or YAML file. An empty path yields a
// task at the default user level.
func LoadTask(path string) (Task, error) {
	task := Task{UserLevel: intake.DefaultUserLevel}
	if strings.TrimSpace(path) == "" {
		return task, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return task, fmt.Errorf("formwizard: read task %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &task)
	} else {
		err = yaml.Unmarshal(data, &task)
	}
	if err != nil {
		return task, fmt.Errorf("formwizard: parse task %s: %w", path, err)
	}
	return task, nil
}

// Open builds a wizard over def and starts it with task.
func Open(ctx context.Context, def *config.Definition, task Task, options ...intake.Option) (*Wizard, error) {
	w, err := intake.New(def, options...)
	if err != nil {
		return nil, err
	}
	if err := w.Start(ctx, task); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

// NewRenderers returns a registry holding the text and HTML renderers.
func NewRenderers(textOptions []tui.Option, htmlOptions ...html.Option) (*render.Registry, error) {
	htmlRenderer, err := html.New(htmlOptions...)
	if err != nil {
		return nil, err
	}
	return render.NewRegistry(tui.New(textOptions...), htmlRenderer)
}

// RenderView renders what the wizard currently shows with the named
// renderer, without interactive affordances.
func RenderView(ctx context.Context, registry *render.Registry, format string, w *Wizard, options render.Options) ([]byte, string, error) {
	options.Interactive = false
	return registry.Render(ctx, format, w.View(ctx), options)
}
