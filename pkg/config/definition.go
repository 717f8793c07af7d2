package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-formwizard/pkg/disclosure"
	"github.com/goliatone/go-formwizard/pkg/form"
	"github.com/goliatone/go-formwizard/pkg/review"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid definition")

// Controller kinds understood by the intake wizard.
const (
	ControllerNone            = ""
	ControllerPrescreening    = "prescreening"
	ControllerDeceased        = "deceased"
	ControllerRepresentatives = "representatives"
	ControllerDocuments       = "documents"
	ControllerReview          = "review"
)

// Evaluator names for out-condition rules.
const (
	EvaluatorExpr = "expr"
	EvaluatorCEL  = "cel"
)

// Definition is the complete, configuration-time description of a wizard:
// its steps and their form trees, the lightbox forms, the out conditions and
// the review layout.
type Definition struct {
	Name          string                    `json:"name" yaml:"name"`
	Title         string                    `json:"title" yaml:"title"`
	Evaluator     string                    `json:"evaluator,omitempty" yaml:"evaluator,omitempty"`
	Steps         []StepDefinition          `json:"steps" yaml:"steps"`
	Forms         Forms                     `json:"forms" yaml:"forms"`
	OutConditions []disclosure.OutCondition `json:"outConditions,omitempty" yaml:"outConditions,omitempty"`
	Review        []review.Section          `json:"review,omitempty" yaml:"review,omitempty"`

	// Source is the file the definition was read from.
	Source string `json:"-" yaml:"-"`
}

// StepDefinition describes one step. Its index is its position.
type StepDefinition struct {
	Title      string        `json:"title" yaml:"title"`
	HasExit    bool          `json:"hasExit,omitempty" yaml:"hasExit,omitempty"`
	Controller string        `json:"controller,omitempty" yaml:"controller,omitempty"`
	Collection string        `json:"collection,omitempty" yaml:"collection,omitempty"`
	Form       *form.Element `json:"form" yaml:"form"`
}

// Forms are the add/edit forms opened over a step.
type Forms struct {
	Representative *form.Element `json:"representative,omitempty" yaml:"representative,omitempty"`
	Document       *form.Element `json:"document,omitempty" yaml:"document,omitempty"`
}

// Validate checks the definition's structure.
func (d *Definition) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: definition is nil", ErrInvalid)
	}
	where := d.Source
	if where == "" {
		where = "<memory>"
	}
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: file %s: %s", ErrInvalid, where, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(d.Name) == "" {
		return fail("name is required")
	}
	switch d.Evaluator {
	case "", EvaluatorExpr, EvaluatorCEL:
	default:
		return fail("unknown evaluator %q", d.Evaluator)
	}
	if len(d.Steps) == 0 {
		return fail("at least one step is required")
	}
	for i, step := range d.Steps {
		if strings.TrimSpace(step.Title) == "" {
			return fail("steps[%d]: title is required", i)
		}
		if step.Form == nil || strings.TrimSpace(step.Form.ID) == "" {
			return fail("steps[%d]: form with an id is required", i)
		}
		switch step.Controller {
		case ControllerNone, ControllerPrescreening, ControllerDeceased, ControllerReview:
		case ControllerRepresentatives:
			if d.Forms.Representative == nil {
				return fail("steps[%d]: representatives controller needs forms.representative", i)
			}
		case ControllerDocuments:
			if d.Forms.Document == nil {
				return fail("steps[%d]: documents controller needs forms.document", i)
			}
		default:
			return fail("steps[%d]: unknown controller %q", i, step.Controller)
		}
	}
	for i, cond := range d.OutConditions {
		if len(cond.IDs) == 0 && strings.TrimSpace(cond.Rule) == "" {
			return fail("outConditions[%d]: ids or rule required", i)
		}
	}
	for i, section := range d.Review {
		if strings.TrimSpace(section.Key) == "" {
			return fail("review[%d]: key is required", i)
		}
		if section.Step < 0 || section.Step >= len(d.Steps) {
			return fail("review[%d]: step %d out of range", i, section.Step)
		}
	}
	if _, err := d.buildDocument(); err != nil {
		return fail("%v", err)
	}
	return nil
}

func (d *Definition) roots() []*form.Element {
	roots := make([]*form.Element, 0, len(d.Steps)+2)
	for _, step := range d.Steps {
		roots = append(roots, step.Form)
	}
	if d.Forms.Representative != nil {
		roots = append(roots, d.Forms.Representative)
	}
	if d.Forms.Document != nil {
		roots = append(roots, d.Forms.Document)
	}
	return roots
}

func (d *Definition) buildDocument() (*form.Document, error) {
	doc, err := form.NewDocument(d.roots()...)
	if err != nil {
		return nil, err
	}
	return doc.Clone(), nil
}

// Document builds a fresh form document holding every step form and
// lightbox form. Each call returns independent control state.
func (d *Definition) Document() (*form.Document, error) {
	doc, err := d.buildDocument()
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", d.Name, err)
	}
	return doc, nil
}

// WizardSteps converts the step definitions for the navigator.
func (d *Definition) WizardSteps() []wizard.Step {
	steps := make([]wizard.Step, len(d.Steps))
	for i, step := range d.Steps {
		steps[i] = wizard.Step{
			Index:      i,
			Title:      step.Title,
			Root:       step.Form.ID,
			HasExit:    step.HasExit,
			Collection: step.Collection,
		}
	}
	return steps
}

// StepIndex returns the index of the first step using controller.
func (d *Definition) StepIndex(controller string) (int, bool) {
	for i, step := range d.Steps {
		if step.Controller == controller {
			return i, true
		}
	}
	return -1, false
}
