// Package intake assembles the estate intake wizard: it wires the session
// store, the disclosure engine, the step navigator, the entity managers and
// the review aggregator from a config.Definition and exposes the operations a
// front end drives. Errors from the error taxonomy (missing targets, missing
// records, malformed references, unnamed controls) are logged and absorbed.
package intake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/goliatone/go-formwizard/pkg/config"
	"github.com/goliatone/go-formwizard/pkg/disclosure"
	"github.com/goliatone/go-formwizard/pkg/entity"
	"github.com/goliatone/go-formwizard/pkg/events"
	"github.com/goliatone/go-formwizard/pkg/form"
	"github.com/goliatone/go-formwizard/pkg/render"
	"github.com/goliatone/go-formwizard/pkg/review"
	"github.com/goliatone/go-formwizard/pkg/store"
	"github.com/goliatone/go-formwizard/pkg/visibility"
	"github.com/goliatone/go-formwizard/pkg/visibility/celexpr"
	"github.com/goliatone/go-formwizard/pkg/visibility/expr"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

// Option configures a Wizard.
type Option func(*Wizard)

// WithBackend sets the persistence backend of the session store.
func WithBackend(backend store.Backend) Option {
	return func(w *Wizard) {
		w.backend = backend
	}
}

// WithBus publishes every notification on bus so callers can subscribe
// (metrics, front ends).
func WithBus(bus *events.Bus) Option {
	return func(w *Wizard) {
		if bus != nil {
			w.bus = bus
		}
	}
}

// WithLogger attaches a structured logger to the wizard and every component.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Wizard) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithHandoff sets the channel records are forwarded on at submission.
func WithHandoff(h *store.Handoff) Option {
	return func(w *Wizard) {
		if h != nil {
			w.handoff = h
		}
	}
}

// WithEvaluator overrides the rule evaluator named by the definition.
func WithEvaluator(ev visibility.Evaluator) Option {
	return func(w *Wizard) {
		if ev != nil {
			w.evaluator = ev
		}
	}
}

// Wizard is the assembled intake wizard. It is not safe for concurrent use.
type Wizard struct {
	def       *config.Definition
	backend   store.Backend
	bus       *events.Bus
	handoff   *store.Handoff
	evaluator visibility.Evaluator
	logger    *slog.Logger

	store   *store.Store
	doc     *form.Document
	engine  *disclosure.Engine
	nav     *wizard.Navigator
	reps    *entity.Representatives
	docs    *entity.Documents
	review  *review.Aggregator
	session *store.Writer
	chooser *store.Writer

	cancels []func()
}

// New assembles a wizard for def.
func New(def *config.Definition, options ...Option) (*Wizard, error) {
	if def == nil {
		return nil, errors.New("intake: definition is required")
	}
	w := &Wizard{
		def:    def,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range options {
		if opt != nil {
			opt(w)
		}
	}
	if w.bus == nil {
		w.bus = events.NewBus()
	}
	if w.handoff == nil {
		w.handoff = store.NewHandoff()
	}
	if w.evaluator == nil {
		ev, err := evaluatorFor(def.Evaluator)
		if err != nil {
			return nil, err
		}
		w.evaluator = ev
	}

	w.store = store.New(store.WithBackend(w.backend), store.WithPublisher(w.bus), store.WithLogger(w.logger))
	writers, err := w.claim()
	if err != nil {
		return nil, err
	}
	w.session = writers[OwnerSession]
	w.chooser = writers[OwnerChooser]

	doc, err := def.Document()
	if err != nil {
		return nil, err
	}
	w.doc = doc
	w.engine = disclosure.New(doc,
		disclosure.WithOutConditions(def.OutConditions...),
		disclosure.WithEvaluator(w.evaluator),
		disclosure.WithExtras(w.extras),
		disclosure.WithActiveStep(w.activeIndex),
		disclosure.WithPublisher(w.bus),
		disclosure.WithLogger(w.logger),
	)
	entityOpts := []entity.Option{entity.WithPublisher(w.bus), entity.WithLogger(w.logger)}
	w.reps = entity.NewRepresentatives(writers[OwnerRepresentatives], entityOpts...)
	w.docs = entity.NewDocuments(writers[OwnerDocuments], entityOpts...)
	w.review = review.New(w.store, doc, def.Review, review.WithLogger(w.logger))

	registry, err := w.registry()
	if err != nil {
		return nil, err
	}
	w.nav, err = wizard.New(doc, def.WizardSteps(), writers[OwnerNavigator],
		wizard.WithRegistry(registry),
		wizard.WithCollection(entity.UploadedDocumentsKey.Name, w.documentsSnapshot),
		wizard.WithPublisher(w.bus),
		wizard.WithLogger(w.logger),
	)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func evaluatorFor(name string) (visibility.Evaluator, error) {
	switch name {
	case "", config.EvaluatorExpr:
		return expr.New(), nil
	case config.EvaluatorCEL:
		return celexpr.New()
	default:
		return nil, fmt.Errorf("intake: unknown evaluator %q", name)
	}
}

func (w *Wizard) claim() (map[string]*store.Writer, error) {
	claims := []struct {
		owner string
		keys  []string
	}{
		{OwnerNavigator, []string{wizard.StepKeyPrefix + "*", wizard.CurrentStepKey.Name}},
		{OwnerRepresentatives, []string{entity.LegalRepKey.Name, entity.MailRecipientsKey.Name}},
		{OwnerDocuments, []string{entity.UploadedDocumentsKey.Name}},
		{OwnerSession, []string{DeceasedInfoKey.Name, UserLevelKey.Name, RACUserNameKey.Name}},
		{OwnerChooser, []string{SelectedTaskKey.Name}},
	}
	writers := make(map[string]*store.Writer, len(claims))
	for _, c := range claims {
		writer, err := w.store.Claim(c.owner, c.keys...)
		if err != nil {
			return nil, fmt.Errorf("intake: %w", err)
		}
		writers[c.owner] = writer
	}
	return writers, nil
}

func (w *Wizard) documentsSnapshot(ctx context.Context) (any, error) {
	docs, err := w.docs.All(ctx)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []entity.Document{}
	}
	return docs, nil
}

func (w *Wizard) extras() map[string]any {
	return map[string]any{"userLevel": w.UserLevel(context.Background())}
}

func (w *Wizard) activeIndex() int {
	if w.nav == nil {
		return -1
	}
	return w.nav.ActiveIndex()
}

// SelectTask records the task picked on the chooser page.
func (w *Wizard) SelectTask(ctx context.Context, task Task) error {
	return SelectedTaskKey.Save(ctx, w.chooser, task)
}

// Seed writes the session records carried by task. A legal representative
// already on file is kept.
func (w *Wizard) Seed(ctx context.Context, task Task) error {
	if task.DeceasedInfo != nil {
		if err := DeceasedInfoKey.Save(ctx, w.session, *task.DeceasedInfo); err != nil {
			return err
		}
	}
	if err := UserLevelKey.Save(ctx, w.session, task.UserLevel); err != nil {
		return err
	}
	if task.LegalRepresentative != nil {
		if _, err := w.reps.SeedLegalRep(ctx, *task.LegalRepresentative); err != nil {
			return err
		}
	}
	if task.RACUserName != "" {
		if err := RACUserNameKey.Save(ctx, w.session, task.RACUserName); err != nil {
			return err
		}
	}
	return nil
}

// Bootstrap opens the wizard for the selected task: the session records are
// seeded, every step is restored from the store and the step saved in
// currentStep becomes active. ErrNoTask is returned when no task was
// selected.
func (w *Wizard) Bootstrap(ctx context.Context) error {
	task, ok, err := SelectedTaskKey.Load(ctx, w.store)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoTask
	}
	if err := w.Seed(ctx, task); err != nil {
		return err
	}
	if err := w.nav.Init(ctx); err != nil {
		return err
	}
	if revealed := w.engine.Restore(); len(revealed) > 0 {
		w.logger.Debug("restored disclosure state", "revealed", revealed)
	}
	return nil
}

// Start selects task and bootstraps the wizard.
func (w *Wizard) Start(ctx context.Context, task Task) error {
	if err := w.SelectTask(ctx, task); err != nil {
		return err
	}
	return w.Bootstrap(ctx)
}

// UserLevel returns the seeded user level, DefaultUserLevel when unset.
func (w *Wizard) UserLevel(ctx context.Context) int {
	level, ok, err := UserLevelKey.Load(ctx, w.store)
	if err != nil {
		w.logger.Warn("unreadable user level", "key", UserLevelKey.Name, "error", err)
	}
	if !ok || level <= 0 {
		return DefaultUserLevel
	}
	return level
}

// RepName returns the account user's name, DefaultRepName when unset.
func (w *Wizard) RepName(ctx context.Context) string {
	name, ok, err := RACUserNameKey.Load(ctx, w.store)
	if err != nil {
		w.logger.Warn("unreadable account user name", "key", RACUserNameKey.Name, "error", err)
	}
	if !ok || name == "" {
		return DefaultRepName
	}
	return name
}

// DeceasedName returns the deceased individual's name, empty when unknown.
func (w *Wizard) DeceasedName(ctx context.Context) string {
	info, _, err := DeceasedInfoKey.Load(ctx, w.store)
	if err != nil {
		w.logger.Warn("unreadable deceased information", "key", DeceasedInfoKey.Name, "error", err)
	}
	return info.Name
}

// Actions returns the navigation controls of the active step.
func (w *Wizard) Actions() disclosure.Actions {
	step, ok := w.nav.Active()
	if !ok {
		return disclosure.Actions{}
	}
	return w.engine.Actions(step.HasExit)
}

// Next persists the active step and moves forward. It does nothing when
// the active step does not offer a next control.
func (w *Wizard) Next(ctx context.Context) bool {
	if !w.Actions().Next {
		w.logger.Debug("next is not available", "step", w.activeIndex())
		return false
	}
	moved, err := w.nav.GoTo(ctx, wizard.Next)
	if err != nil {
		w.logger.Error("navigation failed", "step", w.activeIndex(), "error", err)
		return false
	}
	return moved
}

// Back persists the active step and moves backward.
func (w *Wizard) Back(ctx context.Context) bool {
	if !w.Actions().Back {
		w.logger.Debug("back is not available", "step", w.activeIndex())
		return false
	}
	moved, err := w.nav.GoTo(ctx, wizard.Previous)
	if err != nil {
		w.logger.Error("navigation failed", "step", w.activeIndex(), "error", err)
		return false
	}
	return moved
}

// Jump activates step index without persisting the active step.
func (w *Wizard) Jump(ctx context.Context, index int) bool {
	moved, err := w.nav.Jump(ctx, index)
	if err != nil {
		w.logger.Error("jump failed", "step", index, "error", err)
		return false
	}
	return moved
}

// Select checks a radio or checkbox and runs the disclosure cascade.
func (w *Wizard) Select(id string) disclosure.Result {
	res, err := w.engine.Select(id)
	if err != nil {
		w.logger.Warn("ignoring change", "control", id, "error", err)
	}
	return res
}

// Toggle flips a checkbox and runs the disclosure cascade.
func (w *Wizard) Toggle(id string) disclosure.Result {
	res, err := w.engine.Toggle(id)
	if err != nil {
		w.logger.Warn("ignoring change", "control", id, "error", err)
	}
	return res
}

// SetValue writes a text-like control and runs the disclosure cascade.
func (w *Wizard) SetValue(id, value string) disclosure.Result {
	res, err := w.engine.SetValue(id, value)
	if err != nil {
		w.logger.Warn("ignoring change", "control", id, "error", err)
	}
	return res
}

// View returns what the active step shows.
func (w *Wizard) View(ctx context.Context) render.View {
	step, ok := w.nav.Active()
	if !ok {
		return render.View{}
	}
	view := render.View{Title: step.Title}
	if v, ok := w.active().(viewer); ok {
		built, err := v.View(ctx)
		if err != nil {
			w.logger.Warn("step view failed", "step", step.Index, "error", err)
		} else {
			view = built
		}
	}
	if view.Title == "" {
		view.Title = step.Title
	}
	return view
}

// HandleIntent applies an edit, delete or navigate intent reported by a
// renderer. It reports whether the intent was applied.
func (w *Wizard) HandleIntent(ctx context.Context, intent render.Intent) bool {
	if intent.Kind == render.IntentNavigate {
		index, err := strconv.Atoi(intent.Ref)
		if err != nil {
			w.logger.Warn("ignoring malformed step reference", "ref", intent.Ref)
			return false
		}
		return w.Jump(ctx, index)
	}
	h, ok := w.active().(intentHandler)
	if !ok {
		w.logger.Warn("active step does not handle intents", "step", w.activeIndex(), "kind", intent.Kind)
		return false
	}
	if err := h.HandleIntent(ctx, intent); err != nil {
		w.logger.Warn("intent ignored", "step", w.activeIndex(), "kind", intent.Kind, "ref", intent.Ref, "error", err)
		return false
	}
	return true
}

// FormID returns the id of the add/edit form of the active step, if any.
func (w *Wizard) FormID() (string, bool) {
	f, ok := w.active().(formOwner)
	if !ok {
		return "", false
	}
	return f.FormID(), true
}

// FormLabel returns the caption of the active step's add control.
func (w *Wizard) FormLabel(ctx context.Context) (string, bool) {
	f, ok := w.active().(formOwner)
	if !ok {
		return "", false
	}
	return f.FormLabel(ctx), true
}

// OpenForm clears the active step's add/edit form for a new record.
func (w *Wizard) OpenForm(ctx context.Context) (string, bool) {
	f, ok := w.active().(formOwner)
	if !ok {
		return "", false
	}
	if err := f.OpenForm(ctx); err != nil {
		w.logger.Warn("open form failed", "form", f.FormID(), "error", err)
		return "", false
	}
	return f.FormID(), true
}

// SubmitForm commits the active step's add/edit form.
func (w *Wizard) SubmitForm(ctx context.Context) bool {
	f, ok := w.active().(formOwner)
	if !ok {
		return false
	}
	if err := f.SubmitForm(ctx); err != nil {
		w.logger.Error("submit form failed", "form", f.FormID(), "error", err)
		return false
	}
	return true
}

// CancelForm drops the active step's edit target and clears its form.
func (w *Wizard) CancelForm(ctx context.Context) {
	if f, ok := w.active().(formOwner); ok {
		f.CancelForm(ctx)
	}
}

// Submit forwards the records the confirmation page needs and marks the
// session as continuing so the next Leave keeps the store.
func (w *Wizard) Submit(ctx context.Context) error {
	w.store.SetForwarding(true)
	if err := w.handoff.Forward(ctx, w.store, ForwardedKeys...); err != nil {
		w.store.SetForwarding(false)
		return fmt.Errorf("intake: submit: %w", err)
	}
	w.logger.Info("application submitted", "forwarded", ForwardedKeys)
	return nil
}

// Leave ends the page session. The store is cleared unless Submit ran
// first. It reports whether records were cleared.
func (w *Wizard) Leave(ctx context.Context) bool {
	cleared, err := w.store.Teardown(ctx)
	if err != nil {
		w.logger.Error("teardown failed", "error", err)
	}
	return cleared
}

// Exit leaves the wizard from the terminal ineligible state without
// forwarding anything.
func (w *Wizard) Exit(ctx context.Context) bool {
	w.store.SetForwarding(false)
	return w.Leave(ctx)
}

// Close releases bus subscriptions held by step controllers.
func (w *Wizard) Close() {
	for _, cancel := range w.cancels {
		cancel()
	}
	w.cancels = nil
}

func (w *Wizard) active() wizard.StepController {
	ctrl, ok := w.nav.Controller(w.nav.ActiveIndex())
	if !ok {
		return nil
	}
	return ctrl
}

// fillForm resets form id and prefills it with values. Toggles checked by
// the values run their cascade before the values are written again, so
// revealed sections keep their prefilled controls.
func (w *Wizard) fillForm(id string, values form.Values) error {
	if err := w.engine.Reset(id); err != nil {
		return err
	}
	root, _ := w.doc.ByID(id)
	form.Populate(root, values)
	for _, el := range root.Controls() {
		if el.Checkable() && el.Checked && len(el.Toggles) > 0 {
			if _, err := w.engine.Change(el.ID); err != nil {
				return err
			}
		}
	}
	form.Populate(root, values)
	return nil
}

// Definition returns the wizard definition.
func (w *Wizard) Definition() *config.Definition { return w.def }

// Store returns the session store.
func (w *Wizard) Store() *store.Store { return w.store }

// Bus returns the notification bus.
func (w *Wizard) Bus() *events.Bus { return w.bus }

// Handoff returns the forwarding channel.
func (w *Wizard) Handoff() *store.Handoff { return w.handoff }

// Document returns the live form document.
func (w *Wizard) Document() *form.Document { return w.doc }

// Engine returns the disclosure engine.
func (w *Wizard) Engine() *disclosure.Engine { return w.engine }

// Navigator returns the step navigator.
func (w *Wizard) Navigator() *wizard.Navigator { return w.nav }

// Representatives returns the representatives book.
func (w *Wizard) Representatives() *entity.Representatives { return w.reps }

// Documents returns the uploaded documents manager.
func (w *Wizard) Documents() *entity.Documents { return w.docs }

// Review returns the review aggregator.
func (w *Wizard) Review() *review.Aggregator { return w.review }
