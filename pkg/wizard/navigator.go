package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/goliatone/go-formwizard/pkg/events"
	"github.com/goliatone/go-formwizard/pkg/form"
	"github.com/goliatone/go-formwizard/pkg/store"
)

var (
	// ErrNotInitialised is returned by operations that need an active step.
	ErrNotInitialised = errors.New("wizard: navigator not initialised")
	// ErrUnknownStep is returned for indices outside the registered steps.
	ErrUnknownStep = errors.New("wizard: unknown step")
)

// CurrentStepKey records the active step so a reload resumes where the user
// left off.
var CurrentStepKey = store.NewKey[int]("currentStep")

// StepKeyPrefix prefixes every step record key.
const StepKeyPrefix = "stepData_"

// StepKey returns the record key of step index.
func StepKey(index int) string {
	return StepKeyPrefix + strconv.Itoa(index)
}

// Direction selects the neighbour GoTo moves to.
type Direction int

const (
	Previous Direction = -1
	Next     Direction = 1
)

// SnapshotFunc returns the current contents of an entity collection for
// embedding in a step record.
type SnapshotFunc func(ctx context.Context) (any, error)

// Option configures a Navigator.
type Option func(*Navigator)

// WithRegistry sets the controller factories.
func WithRegistry(reg *Registry) Option {
	return func(n *Navigator) {
		n.registry = reg
	}
}

// WithCollection registers the snapshot source for the collection embedded
// under name.
func WithCollection(name string, fn SnapshotFunc) Option {
	return func(n *Navigator) {
		if fn != nil {
			n.snapshots[name] = fn
		}
	}
}

// WithPublisher routes StepActivated events to pub.
func WithPublisher(pub events.Publisher) Option {
	return func(n *Navigator) {
		if pub != nil {
			n.events = pub
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Navigator) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// Navigator is the step state machine. Exactly one step is active after
// Init. It is not safe for concurrent use.
type Navigator struct {
	doc       *form.Document
	steps     []Step
	writer    *store.Writer
	registry  *Registry
	snapshots map[string]SnapshotFunc
	events    events.Publisher
	logger    *slog.Logger

	active      int
	controllers map[int]StepController
}

// New validates steps and binds the navigator to w, which must own
// "stepData_*" and "currentStep". Steps must be indexed 0..N-1 in order.
func New(doc *form.Document, steps []Step, w *store.Writer, options ...Option) (*Navigator, error) {
	if doc == nil {
		return nil, errors.New("wizard: document is required")
	}
	if len(steps) == 0 {
		return nil, errors.New("wizard: at least one step is required")
	}
	for i, step := range steps {
		if step.Index != i {
			return nil, fmt.Errorf("wizard: step %q has index %d, want %d", step.Title, step.Index, i)
		}
		if step.Root != "" {
			if _, ok := doc.ByID(step.Root); !ok {
				return nil, fmt.Errorf("wizard: step %d root %q not found", i, step.Root)
			}
		}
	}
	n := &Navigator{
		doc:         doc,
		steps:       append([]Step(nil), steps...),
		writer:      w,
		snapshots:   make(map[string]SnapshotFunc),
		events:      events.Discard,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		active:      -1,
		controllers: make(map[int]StepController),
	}
	for _, opt := range options {
		if opt != nil {
			opt(n)
		}
	}
	return n, nil
}

// Init restores every step from the store and activates the step recorded
// in currentStep, or the first step.
func (n *Navigator) Init(ctx context.Context) error {
	if err := n.Hydrate(ctx); err != nil {
		return err
	}
	start := 0
	if saved, ok, err := CurrentStepKey.Load(ctx, n.writer.Store()); err != nil {
		n.logger.Warn("ignoring unreadable current step", "error", err)
	} else if ok && n.valid(saved) {
		start = saved
	}
	return n.Activate(ctx, start)
}

// Steps returns the step definitions.
func (n *Navigator) Steps() []Step {
	return append([]Step(nil), n.steps...)
}

// Len returns the number of steps.
func (n *Navigator) Len() int { return len(n.steps) }

// Step returns the definition of step index.
func (n *Navigator) Step(index int) (Step, bool) {
	if !n.valid(index) {
		return Step{}, false
	}
	return n.steps[index], true
}

// Active returns the active step.
func (n *Navigator) Active() (Step, bool) {
	return n.Step(n.active)
}

// ActiveIndex returns the active index, -1 before Init.
func (n *Navigator) ActiveIndex() int { return n.active }

func (n *Navigator) valid(index int) bool {
	return index >= 0 && index < len(n.steps)
}

// Activate makes index the active step: the step's controller is created on
// first use, the previous step's controller is told it is being left and
// currentStep is persisted. A controller that cannot be built leaves the
// navigator where it was.
func (n *Navigator) Activate(ctx context.Context, index int) error {
	if !n.valid(index) {
		return fmt.Errorf("%w: %d", ErrUnknownStep, index)
	}
	ctrl, err := n.controller(index)
	if err != nil {
		return err
	}
	previous := n.active
	if prev, ok := n.controllers[previous]; ok && previous != index {
		if err := prev.OnLeave(ctx); err != nil {
			n.logger.Warn("step controller leave failed", "step", previous, "error", err)
		}
	}
	n.active = index
	if err := CurrentStepKey.Save(ctx, n.writer, index); err != nil {
		n.logger.Error("persist current step failed", "step", index, "error", err)
	}

	if ctrl != nil {
		if err := ctrl.OnActivate(ctx); err != nil {
			n.logger.Warn("step controller activate failed", "step", index, "error", err)
		}
	}
	n.events.Publish(events.StepActivated{Index: index, Previous: previous})
	return nil
}

func (n *Navigator) controller(index int) (StepController, error) {
	if ctrl, ok := n.controllers[index]; ok {
		return ctrl, nil
	}
	factory, ok := n.registry.Lookup(index)
	if !ok {
		return nil, nil
	}
	ctrl, err := factory(n.steps[index])
	if err != nil {
		return nil, fmt.Errorf("wizard: build controller for step %d: %w", index, err)
	}
	n.controllers[index] = ctrl
	return ctrl, nil
}

// Controller returns the cached controller of step index, if it has been
// created.
func (n *Navigator) Controller(index int) (StepController, bool) {
	ctrl, ok := n.controllers[index]
	return ctrl, ok
}

// GoTo persists the active step and moves to its neighbour. Moving past
// either end is a no-op and reports false.
func (n *Navigator) GoTo(ctx context.Context, dir Direction) (bool, error) {
	if n.active < 0 {
		return false, ErrNotInitialised
	}
	target := n.active + int(dir)
	if !n.valid(target) {
		return false, nil
	}
	if err := n.Persist(ctx, n.active); err != nil {
		return false, err
	}
	return true, n.Activate(ctx, target)
}

// Jump activates index without persisting the active step. Out of range
// indices are a no-op.
func (n *Navigator) Jump(ctx context.Context, index int) (bool, error) {
	if !n.valid(index) {
		n.logger.Warn("ignoring jump to unknown step", "step", index)
		return false, nil
	}
	return true, n.Activate(ctx, index)
}

// Serialize builds the record of step index from the live document.
func (n *Navigator) Serialize(ctx context.Context, index int) (Record, error) {
	if !n.valid(index) {
		return Record{}, fmt.Errorf("%w: %d", ErrUnknownStep, index)
	}
	step := n.steps[index]
	rec := Record{Fields: form.Values{}}
	if step.Root != "" {
		root, _ := n.doc.ByID(step.Root)
		rec.Fields = form.Serialize(root)
	}
	if step.Collection == "" {
		return rec, nil
	}
	snapshot, ok := n.snapshots[step.Collection]
	if !ok {
		n.logger.Warn("no snapshot source for embedded collection", "step", index, "collection", step.Collection)
		return rec, nil
	}
	value, err := snapshot(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("wizard: snapshot %s: %w", step.Collection, err)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return Record{}, fmt.Errorf("wizard: encode snapshot %s: %w", step.Collection, err)
	}
	rec.Embedded = map[string]json.RawMessage{step.Collection: raw}
	delete(rec.Fields, step.Collection)
	return rec, nil
}

// Persist stores the record of step index under StepKey(index).
func (n *Navigator) Persist(ctx context.Context, index int) error {
	rec, err := n.Serialize(ctx, index)
	if err != nil {
		return err
	}
	if err := n.writer.Save(ctx, StepKey(index), rec); err != nil {
		return fmt.Errorf("wizard: persist step %d: %w", index, err)
	}
	return nil
}

// LoadRecord reads the persisted record of step index. A step never
// persisted reports false.
func (n *Navigator) LoadRecord(ctx context.Context, index int) (Record, bool, error) {
	var rec Record
	ok, err := n.writer.Store().Load(ctx, StepKey(index), &rec)
	if err != nil || !ok {
		return Record{}, false, err
	}
	return rec, true, nil
}

// Hydrate restores the controls of every persisted step. Embedded snapshots
// are left alone; collections reload from their own keys.
func (n *Navigator) Hydrate(ctx context.Context) error {
	for _, step := range n.steps {
		if step.Root == "" {
			continue
		}
		rec, ok, err := n.LoadRecord(ctx, step.Index)
		if err != nil {
			n.logger.Warn("skipping unreadable step record", "step", step.Index, "error", err)
			continue
		}
		if !ok {
			continue
		}
		root, _ := n.doc.ByID(step.Root)
		form.Hydrate(root, rec.Fields)
	}
	return nil
}

// Status derives the badge state of step index.
func (n *Navigator) Status(index int) Status {
	switch {
	case n.active < 0 || index > n.active:
		return StatusPending
	case index == n.active:
		return StatusActive
	default:
		return StatusCompleted
	}
}

// Badge is the step-number marker shown in the stepper.
type Badge struct {
	Index  int
	Title  string
	Status Status
	Label  string
}

// BadgeInfo and BadgeDone are the markers used instead of a number.
const (
	BadgeInfo = "i"
	BadgeDone = "✓"
)

// Badges returns the marker of every step: completed steps show a check, the
// first step shows an info marker otherwise, and the rest show their index.
func (n *Navigator) Badges() []Badge {
	out := make([]Badge, len(n.steps))
	for i, step := range n.steps {
		status := n.Status(i)
		label := strconv.Itoa(i)
		switch {
		case status == StatusCompleted:
			label = BadgeDone
		case i == 0:
			label = BadgeInfo
		}
		out[i] = Badge{Index: i, Title: step.Title, Status: status, Label: label}
	}
	return out
}
