package disclosure

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/goliatone/go-formwizard/pkg/events"
	"github.com/goliatone/go-formwizard/pkg/form"
	"github.com/goliatone/go-formwizard/pkg/visibility"
)

// ErrUnknownControl is returned when a change is reported for an id the
// document does not contain.
var ErrUnknownControl = errors.New("disclosure: unknown control")

// OutCondition marks the wizard ineligible. It holds when every id in IDs is
// checked and, if Rule is set, the rule evaluates to true.
type OutCondition struct {
	Name string   `json:"name,omitempty" yaml:"name,omitempty"`
	IDs  []string `json:"ids,omitempty" yaml:"ids,omitempty"`
	Rule string   `json:"rule,omitempty" yaml:"rule,omitempty"`
}

// Result describes the outcome of a single change.
type Result struct {
	Control    string
	Hidden     []string
	Revealed   []string
	Cleared    []string
	Ineligible bool
}

// Actions lists the navigation controls presented for the active step.
type Actions struct {
	Next bool
	Back bool
	Exit bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithOutConditions installs the terminal conditions.
func WithOutConditions(conds ...OutCondition) Option {
	return func(e *Engine) {
		e.outs = append(e.outs, conds...)
	}
}

// WithEvaluator sets the evaluator used for OutCondition.Rule.
func WithEvaluator(ev visibility.Evaluator) Option {
	return func(e *Engine) {
		if ev != nil {
			e.evaluator = ev
		}
	}
}

// WithExtras supplies session data exposed to rules as extras.
func WithExtras(fn func() map[string]any) Option {
	return func(e *Engine) {
		e.extras = fn
	}
}

// WithActiveStep reports the active step index for EligibilityChanged events.
func WithActiveStep(fn func() int) Option {
	return func(e *Engine) {
		e.activeStep = fn
	}
}

// WithPublisher routes events to pub.
func WithPublisher(pub events.Publisher) Option {
	return func(e *Engine) {
		if pub != nil {
			e.events = pub
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Engine applies show/hide/clear cascades to a form document and evaluates
// the terminal out conditions. It is not safe for concurrent use.
type Engine struct {
	doc        *form.Document
	outs       []OutCondition
	evaluator  visibility.Evaluator
	extras     func() map[string]any
	activeStep func() int
	events     events.Publisher
	logger     *slog.Logger

	ineligible bool
}

// New constructs an Engine over doc.
func New(doc *form.Document, options ...Option) *Engine {
	e := &Engine{
		doc:    doc,
		events: events.Discard,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range options {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Document returns the document the engine mutates.
func (e *Engine) Document() *form.Document { return e.doc }

// Select checks the control with id. Radios uncheck the rest of their group.
func (e *Engine) Select(id string) (Result, error) {
	el, ok := e.doc.ByID(id)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownControl, id)
	}
	if el.Kind == form.KindRadio && el.Name != "" {
		for _, member := range e.doc.Group(el.Name) {
			if member.Kind == form.KindRadio {
				member.Checked = false
			}
		}
	}
	if el.Checkable() {
		el.Checked = true
	}
	return e.Change(id)
}

// Toggle flips a checkbox. Radios behave like Select.
func (e *Engine) Toggle(id string) (Result, error) {
	el, ok := e.doc.ByID(id)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownControl, id)
	}
	if el.Kind == form.KindRadio {
		return e.Select(id)
	}
	if el.Checkable() {
		el.Checked = !el.Checked
	}
	return e.Change(id)
}

// SetValue writes value into a non-checkable control.
func (e *Engine) SetValue(id, value string) (Result, error) {
	el, ok := e.doc.ByID(id)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownControl, id)
	}
	if !el.Checkable() {
		el.Value = value
	}
	return e.Change(id)
}

// Change runs the disclosure cascade for a control whose state has already
// been updated, then re-evaluates the out conditions.
func (e *Engine) Change(id string) (Result, error) {
	el, ok := e.doc.ByID(id)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownControl, id)
	}
	c := &cascade{engine: e, visited: make(map[string]struct{}), cleared: make(map[string]struct{})}

	members := []*form.Element{el}
	if el.Name != "" {
		members = e.doc.Group(el.Name)
	}
	for _, member := range members {
		c.hideTargets(member)
	}

	if el.Name != "" {
		if fs := el.Closest(form.KindFieldset); fs != nil && fs.Hidden {
			for _, sibling := range fs.NextSiblings() {
				if sibling.Kind == form.KindFieldset {
					c.hide(sibling)
				}
			}
		}
	}

	if el.Checkable() && el.Checked {
		for _, target := range el.Toggles {
			node, ok := e.doc.ByID(target)
			if !ok {
				e.logger.Warn("disclosure target not found", "control", el.ID, "target", target)
				continue
			}
			node.Hidden = false
			c.result.Revealed = append(c.result.Revealed, target)
		}
	}

	res := c.result
	res.Control = el.ID
	e.events.Publish(events.DisclosureChanged{
		Control:  res.Control,
		Hidden:   res.Hidden,
		Revealed: res.Revealed,
		Cleared:  res.Cleared,
	})

	res.Ineligible = e.Evaluate()
	return res, nil
}

type cascade struct {
	engine  *Engine
	visited map[string]struct{}
	cleared map[string]struct{}
	result  Result
}

func (c *cascade) hideTargets(control *form.Element) {
	for _, target := range control.Toggles {
		node, ok := c.engine.doc.ByID(target)
		if !ok {
			c.engine.logger.Warn("disclosure target not found", "control", control.ID, "target", target)
			continue
		}
		c.hide(node)
	}
}

// hide marks node hidden, clears every control inside it and recursively
// hides the targets of nested toggling controls.
func (c *cascade) hide(node *form.Element) {
	key := node.ID
	if key == "" {
		key = fmt.Sprintf("%p", node)
	}
	if _, seen := c.visited[key]; seen {
		return
	}
	c.visited[key] = struct{}{}

	node.Hidden = true
	if node.ID != "" {
		c.result.Hidden = append(c.result.Hidden, node.ID)
	}

	var nested []*form.Element
	node.Walk(func(el *form.Element) bool {
		if !el.IsControl() {
			return true
		}
		el.Clear()
		if el.ID != "" {
			if _, done := c.cleared[el.ID]; !done {
				c.cleared[el.ID] = struct{}{}
				c.result.Cleared = append(c.result.Cleared, el.ID)
			}
		}
		if el != node && len(el.Toggles) > 0 {
			nested = append(nested, el)
		}
		return true
	})
	for _, el := range nested {
		c.hideTargets(el)
	}
}

// Ineligible reports whether any out condition currently holds. It has no
// side effects.
func (e *Engine) Ineligible() bool {
	checked := make(map[string]bool)
	for _, id := range e.doc.CheckedIDs() {
		checked[id] = true
	}
	var ctx *visibility.Context
	for _, cond := range e.outs {
		if len(cond.IDs) == 0 && cond.Rule == "" {
			continue
		}
		holds := true
		for _, id := range cond.IDs {
			if !checked[id] {
				holds = false
				break
			}
		}
		if holds && cond.Rule != "" {
			if ctx == nil {
				built := e.context()
				ctx = &built
			}
			holds = e.evalRule(cond, *ctx)
		}
		if holds {
			return true
		}
	}
	return false
}

func (e *Engine) evalRule(cond OutCondition, ctx visibility.Context) bool {
	if e.evaluator == nil {
		e.logger.Warn("out condition rule ignored: no evaluator", "condition", cond.Name)
		return false
	}
	ok, err := e.evaluator.Eval(cond.Name, cond.Rule, ctx)
	if err != nil {
		e.logger.Error("out condition rule failed", "condition", cond.Name, "error", err)
		return false
	}
	return ok
}

func (e *Engine) context() visibility.Context {
	values := make(map[string]any)
	for _, el := range e.doc.Controls() {
		if el.ID != "" {
			if el.Checkable() {
				values[el.ID] = el.Checked
			} else {
				values[el.ID] = el.Value
			}
		}
		if el.Name == "" {
			continue
		}
		if !el.Checkable() || el.Checked {
			values[el.Name] = el.Value
		}
	}
	var extras map[string]any
	if e.extras != nil {
		extras = e.extras()
	}
	return visibility.Context{Values: values, Extras: extras}
}

// Evaluate recomputes the terminal state and publishes EligibilityChanged
// when it differs from the last published value.
func (e *Engine) Evaluate() bool {
	out := e.Ineligible()
	if out != e.ineligible {
		e.ineligible = out
		step := -1
		if e.activeStep != nil {
			step = e.activeStep()
		}
		e.events.Publish(events.EligibilityChanged{Ineligible: out, Step: step})
	}
	return out
}

// Actions returns the navigation controls for a step. Steps without an exit
// control always present next and back.
func (e *Engine) Actions(hasExit bool) Actions {
	if !hasExit {
		return Actions{Next: true, Back: true}
	}
	if e.Ineligible() {
		return Actions{Exit: true}
	}
	return Actions{Next: true, Back: true}
}

// Restore reveals the targets of every checked control that is itself
// visible, in document order. It rebuilds the visible state after controls
// were hydrated from stored records; controls still hidden afterwards lose
// the values they were hydrated with.
func (e *Engine) Restore() []string {
	var revealed []string
	for _, el := range e.doc.Controls() {
		if !el.Checkable() || !el.Checked || el.HiddenInTree() {
			continue
		}
		for _, target := range el.Toggles {
			node, ok := e.doc.ByID(target)
			if !ok {
				e.logger.Warn("disclosure target not found", "control", el.ID, "target", target)
				continue
			}
			if node.Hidden {
				node.Hidden = false
				revealed = append(revealed, target)
			}
		}
	}
	for _, el := range e.doc.Controls() {
		if el.HiddenInTree() && !el.Empty() {
			e.logger.Debug("clearing hidden control after restore", "control", el.ID)
			el.Clear()
		}
	}
	e.Evaluate()
	return revealed
}

// Reset clears the controls under the element with id and re-hides elements
// flagged initHidden.
func (e *Engine) Reset(id string) error {
	root, ok := e.doc.ByID(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownControl, id)
	}
	form.Reset(root)
	e.Evaluate()
	return nil
}
