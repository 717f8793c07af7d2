package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/goliatone/go-formwizard/pkg/form"
	"github.com/goliatone/go-formwizard/pkg/intake"
	"github.com/goliatone/go-formwizard/pkg/render"
)

// Outcome tells the caller how an interactive session ended.
type Outcome string

const (
	// OutcomeSubmitted means the application was submitted from the last
	// step.
	OutcomeSubmitted Outcome = "submitted"
	// OutcomeExited means the user left from the ineligible state. The
	// session records are gone.
	OutcomeExited Outcome = "exited"
	// OutcomeSaved means the user stopped early. Records stay in the store
	// so a later run resumes.
	OutcomeSaved Outcome = "saved"
)

// Menu labels.
const (
	LabelAnswer = "Answer the questions"
	LabelNext   = "Next"
	LabelBack   = "Back"
	LabelExit   = "Exit"
	LabelSubmit = "Submit"
	LabelSave   = "Save and quit"
)

// Runner walks an intake wizard in the terminal: it prints the active step,
// offers the available actions and asks the step's questions.
type Runner struct {
	wizard   *intake.Wizard
	driver   PromptDriver
	renderer render.Renderer
	logger   *slog.Logger
}

// NewRunner builds a runner over w. The survey driver is used unless
// WithPromptDriver overrides it.
func NewRunner(w *intake.Wizard, options ...RunnerOption) (*Runner, error) {
	if w == nil {
		return nil, errors.New("tui: wizard is required")
	}
	r := &Runner{
		wizard:   w,
		renderer: New(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	if r.driver == nil {
		r.driver = NewSurveyDriver(nil)
	}
	return r, nil
}

type choice struct {
	label string
	run   func(ctx context.Context) (Outcome, error)
}

// Run loops until the user submits, exits or saves. The wizard must have
// been started.
func (r *Runner) Run(ctx context.Context) (Outcome, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		view := r.wizard.View(ctx)
		out, err := r.renderer.Render(ctx, view, render.Options{Interactive: true})
		if err != nil {
			return "", err
		}
		if err := r.driver.Info(ctx, strings.TrimRight(string(out), "\n")); err != nil {
			return "", err
		}

		choices := r.choices(ctx, view)
		labels := make([]string, len(choices))
		for i, c := range choices {
			labels[i] = c.label
		}
		i, err := r.driver.Select(ctx, SelectConfig{Message: "What would you like to do?", Options: labels})
		if err != nil {
			return "", err
		}
		if i < 0 || i >= len(choices) {
			return "", ErrNoChoice
		}
		r.logger.Debug("menu choice", "step", r.wizard.Navigator().ActiveIndex(), "choice", choices[i].label)
		outcome, err := choices[i].run(ctx)
		if err != nil {
			return "", err
		}
		if outcome != "" {
			return outcome, nil
		}
	}
}

func (r *Runner) choices(ctx context.Context, view render.View) []choice {
	nav := r.wizard.Navigator()
	step, _ := nav.Active()

	var out []choice
	if r.hasQuestions(step.Root) {
		root := step.Root
		out = append(out, choice{label: LabelAnswer, run: func(ctx context.Context) (Outcome, error) {
			return "", r.fill(ctx, root)
		}})
	}
	for _, panel := range view.Panels {
		panel := panel
		if panel.Edit {
			verb := "Edit"
			if panel.Review {
				verb = "Change"
			}
			out = append(out, choice{label: verb + " " + panel.Title, run: func(ctx context.Context) (Outcome, error) {
				return "", r.edit(ctx, panel.EditIntent())
			}})
		}
		if panel.Delete {
			out = append(out, choice{label: "Delete " + panel.Title, run: func(ctx context.Context) (Outcome, error) {
				return "", r.remove(ctx, panel.Title, panel.DeleteIntent())
			}})
		}
	}
	for _, t := range view.Tables {
		if !t.Actions {
			continue
		}
		for i, row := range t.Rows {
			name := strconv.Itoa(i + 1)
			if len(t.Columns) > 0 {
				name = fmt.Sprintf("%d (%s)", i+1, t.Cell(row, t.Columns[0]))
			}
			ref, source := strconv.Itoa(i), t.ID
			out = append(out,
				choice{label: "Edit row " + name, run: func(ctx context.Context) (Outcome, error) {
					return "", r.edit(ctx, render.Intent{Kind: render.IntentEdit, Ref: ref, Source: source})
				}},
				choice{label: "Delete row " + name, run: func(ctx context.Context) (Outcome, error) {
					return "", r.remove(ctx, "row "+name, render.Intent{Kind: render.IntentDelete, Ref: ref, Source: source})
				}},
			)
		}
	}
	if label, ok := r.wizard.FormLabel(ctx); ok && label != "" {
		out = append(out, choice{label: label, run: r.add})
	}

	actions := r.wizard.Actions()
	last := nav.ActiveIndex() == nav.Len()-1
	if actions.Next && last {
		out = append(out, choice{label: LabelSubmit, run: r.submit})
	} else if actions.Next {
		out = append(out, choice{label: LabelNext, run: func(ctx context.Context) (Outcome, error) {
			r.wizard.Next(ctx)
			return "", nil
		}})
	}
	if actions.Back && nav.ActiveIndex() > 0 {
		out = append(out, choice{label: LabelBack, run: func(ctx context.Context) (Outcome, error) {
			r.wizard.Back(ctx)
			return "", nil
		}})
	}
	if actions.Exit {
		out = append(out, choice{label: LabelExit, run: func(ctx context.Context) (Outcome, error) {
			r.wizard.Exit(ctx)
			return OutcomeExited, nil
		}})
	}
	out = append(out, choice{label: LabelSave, run: r.save})
	return out
}

func (r *Runner) submit(ctx context.Context) (Outcome, error) {
	if err := r.wizard.Submit(ctx); err != nil {
		return "", err
	}
	return OutcomeSubmitted, nil
}

// save persists the active step so a later run resumes with its answers.
func (r *Runner) save(ctx context.Context) (Outcome, error) {
	nav := r.wizard.Navigator()
	if err := nav.Persist(ctx, nav.ActiveIndex()); err != nil {
		return "", err
	}
	return OutcomeSaved, nil
}

func (r *Runner) add(ctx context.Context) (Outcome, error) {
	id, ok := r.wizard.OpenForm(ctx)
	if !ok {
		return "", r.warn(ctx, "That form is not available.")
	}
	return "", r.complete(ctx, id)
}

func (r *Runner) edit(ctx context.Context, intent render.Intent) error {
	if !r.wizard.HandleIntent(ctx, intent) {
		return r.warn(ctx, "That entry cannot be changed.")
	}
	if intent.Kind == render.IntentNavigate {
		return nil
	}
	id, ok := r.wizard.FormID()
	if !ok {
		return nil
	}
	return r.complete(ctx, id)
}

func (r *Runner) remove(ctx context.Context, what string, intent render.Intent) error {
	ok, err := r.driver.Confirm(ctx, ConfirmConfig{Message: "Delete " + what + "?"})
	if err != nil || !ok {
		return err
	}
	if !r.wizard.HandleIntent(ctx, intent) {
		return r.warn(ctx, "That entry cannot be deleted.")
	}
	return nil
}

// complete asks the questions of form id and saves or discards the entry.
func (r *Runner) complete(ctx context.Context, id string) error {
	if err := r.fill(ctx, id); err != nil {
		r.wizard.CancelForm(ctx)
		return err
	}
	keep, err := r.driver.Confirm(ctx, ConfirmConfig{Message: "Save this entry?", Default: true})
	if err != nil {
		r.wizard.CancelForm(ctx)
		return err
	}
	if !keep {
		r.wizard.CancelForm(ctx)
		return nil
	}
	if !r.wizard.SubmitForm(ctx) {
		return r.warn(ctx, "The entry could not be saved.")
	}
	return nil
}

func (r *Runner) warn(ctx context.Context, msg string) error {
	return r.driver.Info(ctx, r.prefix()+msg)
}

func (r *Runner) prefix() string {
	if tr, ok := r.renderer.(*Renderer); ok {
		return tr.theme.ErrorPrefix
	}
	return DefaultTheme().ErrorPrefix
}

func (r *Runner) hasQuestions(rootID string) bool {
	root, ok := r.wizard.Document().ByID(rootID)
	if !ok {
		return false
	}
	return nextQuestion(root, nil) != nil
}

// fill asks every visible question under root in document order. The tree
// is rescanned after each answer so questions revealed by it are asked too.
func (r *Runner) fill(ctx context.Context, rootID string) error {
	root, ok := r.wizard.Document().ByID(rootID)
	if !ok {
		return fmt.Errorf("tui: form %q not found", rootID)
	}
	asked := make(map[string]bool)
	for {
		el := nextQuestion(root, asked)
		if el == nil {
			return nil
		}
		asked[groupKey(el)] = true
		if err := r.ask(ctx, el); err != nil {
			return err
		}
	}
}

func nextQuestion(root *form.Element, asked map[string]bool) *form.Element {
	for _, el := range root.Controls() {
		if el.Kind == form.KindHidden || el.HiddenInTree() || asked[groupKey(el)] {
			continue
		}
		return el
	}
	return nil
}

func groupKey(el *form.Element) string {
	if el.Kind == form.KindRadio && el.Name != "" {
		return "name:" + el.Name
	}
	return "id:" + el.ID
}

func (r *Runner) ask(ctx context.Context, el *form.Element) error {
	doc := r.wizard.Document()
	switch el.Kind {
	case form.KindRadio:
		members := []*form.Element{el}
		if el.Name != "" {
			members = members[:0]
			for _, m := range doc.Group(el.Name) {
				if m.Kind == form.KindRadio && !m.HiddenInTree() {
					members = append(members, m)
				}
			}
		}
		options := make([]string, len(members))
		current := 0
		for i, m := range members {
			options[i] = optionLabel(m)
			if m.Checked {
				current = i
			}
		}
		message := controlLabel(el)
		if el.Name != "" {
			message = doc.LabelFor(el.Name)
		}
		i, err := r.driver.Select(ctx, SelectConfig{Message: message, Options: options, DefaultIndex: current})
		if err != nil {
			return err
		}
		if i < 0 || i >= len(members) {
			return ErrNoChoice
		}
		r.wizard.Select(members[i].ID)
	case form.KindCheckbox:
		on, err := r.driver.Confirm(ctx, ConfirmConfig{Message: optionLabel(el), Default: el.Checked})
		if err != nil {
			return err
		}
		if on != el.Checked {
			r.wizard.Toggle(el.ID)
		}
	case form.KindSelect:
		if len(el.Options) == 0 {
			return r.input(ctx, el)
		}
		current := indexOf(el.Options, el.Value)
		if current < 0 {
			current = 0
		}
		i, err := r.driver.Select(ctx, SelectConfig{Message: controlLabel(el), Options: el.Options, DefaultIndex: current})
		if err != nil {
			return err
		}
		if i < 0 || i >= len(el.Options) {
			return ErrNoChoice
		}
		r.wizard.SetValue(el.ID, el.Options[i])
	case form.KindTextArea:
		value, err := r.driver.TextArea(ctx, TextAreaConfig{Message: controlLabel(el), Default: el.Value})
		if err != nil {
			return err
		}
		r.wizard.SetValue(el.ID, strings.TrimRight(value, "\n"))
	default:
		return r.input(ctx, el)
	}
	return nil
}

func (r *Runner) input(ctx context.Context, el *form.Element) error {
	cfg := InputConfig{Message: controlLabel(el), Default: el.Value}
	if el.Kind == form.KindNumber {
		cfg.Validator = validateNumber
	}
	value, err := r.driver.Input(ctx, cfg)
	if err != nil {
		return err
	}
	r.wizard.SetValue(el.ID, strings.TrimSpace(value))
	return nil
}

func validateNumber(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if _, err := strconv.ParseFloat(value, 64); err != nil {
		return fmt.Errorf("%q is not a number", value)
	}
	return nil
}

func controlLabel(el *form.Element) string {
	if label := form.CleanLabel(el.Label); label != "" {
		return label
	}
	if el.Name != "" {
		return el.Name
	}
	return el.ID
}

func optionLabel(el *form.Element) string {
	if label := form.CleanLabel(el.Label); label != "" {
		return label
	}
	if el.Value != "" {
		return el.Value
	}
	return el.ID
}
