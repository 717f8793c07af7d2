package intake

import (
	"context"
	"fmt"

	"github.com/goliatone/go-formwizard/pkg/config"
	"github.com/goliatone/go-formwizard/pkg/entity"
	"github.com/goliatone/go-formwizard/pkg/events"
	"github.com/goliatone/go-formwizard/pkg/form"
	"github.com/goliatone/go-formwizard/pkg/render"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

// Notices shown above step content.
const (
	IneligibleNotice = "Based on your answers, you cannot use this service to represent the deceased. Select Exit to leave."
	NoLegalRepNotice = "There is no legal representative on file. Add the legal representative's information to continue."
	MailingNotice    = "Correspondence for the estate will be sent to the legal representative and to every mail recipient below."
)

// LegalRepInfoFieldset is shown to restricted users once a legal
// representative is on file.
const LegalRepInfoFieldset = "legalrepinfo-fieldset"

// DocumentFormLabel captions the document upload form.
const DocumentFormLabel = "Upload a document"

type viewer interface {
	View(ctx context.Context) (render.View, error)
}

type intentHandler interface {
	HandleIntent(ctx context.Context, intent render.Intent) error
}

type formOwner interface {
	FormID() string
	FormLabel(ctx context.Context) string
	OpenForm(ctx context.Context) error
	SubmitForm(ctx context.Context) error
	CancelForm(ctx context.Context)
}

func (w *Wizard) registry() (*wizard.Registry, error) {
	reg := wizard.NewRegistry()
	for i, def := range w.def.Steps {
		factory := w.factory(def)
		if factory == nil {
			continue
		}
		if err := reg.Register(i, factory); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func (w *Wizard) factory(def config.StepDefinition) wizard.Factory {
	switch def.Controller {
	case config.ControllerPrescreening:
		return func(step wizard.Step) (wizard.StepController, error) {
			return &prescreeningStep{w: w, step: step}, nil
		}
	case config.ControllerDeceased:
		return func(step wizard.Step) (wizard.StepController, error) {
			return &deceasedStep{w: w, step: step}, nil
		}
	case config.ControllerRepresentatives:
		return func(step wizard.Step) (wizard.StepController, error) {
			return newRepresentativesStep(w, step, w.def.Forms.Representative.ID)
		}
	case config.ControllerDocuments:
		return func(step wizard.Step) (wizard.StepController, error) {
			return newDocumentsStep(w, step, w.def.Forms.Document.ID)
		}
	case config.ControllerReview:
		return func(step wizard.Step) (wizard.StepController, error) {
			return &reviewStep{w: w, step: step}, nil
		}
	default:
		return nil
	}
}

type prescreeningStep struct {
	w    *Wizard
	step wizard.Step
}

func (s *prescreeningStep) OnActivate(context.Context) error {
	s.w.engine.Evaluate()
	return nil
}

func (s *prescreeningStep) OnLeave(context.Context) error { return nil }

func (s *prescreeningStep) View(context.Context) (render.View, error) {
	view := render.View{Title: s.step.Title}
	if s.step.HasExit && s.w.engine.Ineligible() {
		view.Notice = IneligibleNotice
	}
	return view, nil
}

type deceasedStep struct {
	w    *Wizard
	step wizard.Step
}

func (s *deceasedStep) OnActivate(context.Context) error { return nil }
func (s *deceasedStep) OnLeave(context.Context) error    { return nil }

func (s *deceasedStep) View(ctx context.Context) (render.View, error) {
	view := render.View{Title: s.step.Title}
	info, ok, err := DeceasedInfoKey.Load(ctx, s.w.store)
	if err != nil || !ok {
		return view, err
	}
	view.Panels = []render.Panel{{
		Title: "Deceased individual’s information on file",
		Rows:  render.BuildRows(info.Entries(), DeceasedLabels),
	}}
	return view, nil
}

type representativesStep struct {
	w      *Wizard
	step   wizard.Step
	formID string
}

func newRepresentativesStep(w *Wizard, step wizard.Step, formID string) (*representativesStep, error) {
	if _, ok := w.doc.ByID(formID); !ok {
		return nil, fmt.Errorf("intake: representative form %q not found", formID)
	}
	s := &representativesStep{w: w, step: step, formID: formID}
	cancel := w.bus.Subscribe(events.TopicEntityChanged, func(ev events.Event) {
		changed, ok := ev.(events.EntityChanged)
		if !ok {
			return
		}
		if changed.Collection == entity.LegalRepKey.Name || changed.Collection == entity.MailRecipientsKey.Name {
			s.refresh(context.Background())
		}
	})
	w.cancels = append(w.cancels, cancel)
	return s, nil
}

func (s *representativesStep) OnActivate(ctx context.Context) error {
	s.refresh(ctx)
	return nil
}

func (s *representativesStep) OnLeave(context.Context) error {
	s.w.reps.CancelEdit()
	return nil
}

// refresh shows the restricted user's information fieldset only while a
// legal representative is on file. Hiding it clears its controls.
func (s *representativesStep) refresh(ctx context.Context) {
	status, err := s.w.reps.Status(ctx, s.w.UserLevel(ctx))
	if err != nil {
		s.w.logger.Warn("representatives status unavailable", "error", err)
		return
	}
	fs, ok := s.w.doc.ByID(LegalRepInfoFieldset)
	if !ok {
		s.w.logger.Warn("disclosure target not found", "target", LegalRepInfoFieldset)
		return
	}
	fs.Hidden = !status.ShowLegalRepInfo
	if fs.Hidden {
		for _, el := range fs.Controls() {
			el.Clear()
		}
	}
}

func (s *representativesStep) View(ctx context.Context) (render.View, error) {
	level := s.w.UserLevel(ctx)
	status, err := s.w.reps.Status(ctx, level)
	if err != nil {
		return render.View{}, err
	}
	panels, err := s.w.reps.Panels(ctx, level)
	if err != nil {
		return render.View{}, err
	}
	view := render.View{
		Title:  s.step.Title,
		Notice: MailingNotice,
		Panels: panels,
		Footer: []string{status.AddLabel},
	}
	if !status.HasLegalRep {
		view.Notice = NoLegalRepNotice
	}
	return view, nil
}

func (s *representativesStep) HandleIntent(ctx context.Context, intent render.Intent) error {
	ref, err := entity.ParseRef(intent.Ref)
	if err != nil {
		return err
	}
	if ref.IsSingleton() && s.w.UserLevel(ctx) == entity.RestrictedUserLevel {
		return fmt.Errorf("intake: legal representative is read-only at user level %d", entity.RestrictedUserLevel)
	}
	switch intent.Kind {
	case render.IntentEdit:
		rep, err := s.w.reps.BeginEdit(ctx, ref)
		if err != nil {
			return err
		}
		return s.w.fillForm(s.formID, rep.Form())
	case render.IntentDelete:
		return s.w.reps.Delete(ctx, ref)
	default:
		return fmt.Errorf("intake: unsupported intent %q", intent.Kind)
	}
}

func (s *representativesStep) FormID() string { return s.formID }

func (s *representativesStep) FormLabel(ctx context.Context) string {
	status, err := s.w.reps.Status(ctx, s.w.UserLevel(ctx))
	if err != nil {
		s.w.logger.Warn("representatives status unavailable", "error", err)
		return ""
	}
	return status.AddLabel
}

func (s *representativesStep) OpenForm(context.Context) error {
	s.w.reps.CancelEdit()
	return s.w.engine.Reset(s.formID)
}

func (s *representativesStep) SubmitForm(ctx context.Context) error {
	root, _ := s.w.doc.ByID(s.formID)
	rep := entity.RepresentativeFromForm(form.Serialize(root))
	if _, err := s.w.reps.Submit(ctx, rep); err != nil {
		return err
	}
	return s.w.engine.Reset(s.formID)
}

func (s *representativesStep) CancelForm(context.Context) {
	s.w.reps.CancelEdit()
	if err := s.w.engine.Reset(s.formID); err != nil {
		s.w.logger.Warn("form reset failed", "form", s.formID, "error", err)
	}
}

type documentsStep struct {
	w      *Wizard
	step   wizard.Step
	formID string
}

func newDocumentsStep(w *Wizard, step wizard.Step, formID string) (*documentsStep, error) {
	if _, ok := w.doc.ByID(formID); !ok {
		return nil, fmt.Errorf("intake: document form %q not found", formID)
	}
	return &documentsStep{w: w, step: step, formID: formID}, nil
}

func (s *documentsStep) OnActivate(context.Context) error { return nil }

func (s *documentsStep) OnLeave(context.Context) error {
	s.w.docs.CancelEdit()
	return nil
}

func (s *documentsStep) View(ctx context.Context) (render.View, error) {
	table, err := s.w.docs.Table(ctx)
	if err != nil {
		return render.View{}, err
	}
	total, err := s.w.docs.TotalSize(ctx)
	if err != nil {
		return render.View{}, err
	}
	return render.View{
		Title:  s.step.Title,
		Tables: []render.Table{table},
		Footer: []string{"Total size of uploaded files: " + total},
	}, nil
}

func (s *documentsStep) HandleIntent(ctx context.Context, intent render.Intent) error {
	if intent.Source != "" && intent.Source != entity.DocumentsTableID {
		return fmt.Errorf("intake: intent for unknown table %q", intent.Source)
	}
	ref, err := entity.ParseRef(intent.Ref)
	if err != nil {
		return err
	}
	i, ok := ref.Index()
	if !ok {
		return fmt.Errorf("%w: %q is not a row", entity.ErrMalformedRef, intent.Ref)
	}
	switch intent.Kind {
	case render.IntentEdit:
		doc, err := s.w.docs.BeginEdit(ctx, i)
		if err != nil {
			return err
		}
		return s.w.fillForm(s.formID, doc.Form())
	case render.IntentDelete:
		return s.w.docs.Delete(ctx, i)
	default:
		return fmt.Errorf("intake: unsupported intent %q", intent.Kind)
	}
}

func (s *documentsStep) FormID() string { return s.formID }

func (s *documentsStep) FormLabel(context.Context) string { return DocumentFormLabel }

func (s *documentsStep) OpenForm(context.Context) error {
	s.w.docs.CancelEdit()
	return s.w.engine.Reset(s.formID)
}

func (s *documentsStep) SubmitForm(ctx context.Context) error {
	root, _ := s.w.doc.ByID(s.formID)
	doc := entity.DocumentFromForm(form.Serialize(root))
	if _, err := s.w.docs.Submit(ctx, doc); err != nil {
		return err
	}
	return s.w.engine.Reset(s.formID)
}

func (s *documentsStep) CancelForm(context.Context) {
	s.w.docs.CancelEdit()
	if err := s.w.engine.Reset(s.formID); err != nil {
		s.w.logger.Warn("form reset failed", "form", s.formID, "error", err)
	}
}

type reviewStep struct {
	w    *Wizard
	step wizard.Step
}

func (s *reviewStep) OnActivate(context.Context) error { return nil }
func (s *reviewStep) OnLeave(context.Context) error    { return nil }

func (s *reviewStep) View(ctx context.Context) (render.View, error) {
	panels, err := s.w.review.Panels(ctx)
	if err != nil {
		return render.View{}, err
	}
	return render.View{Title: s.step.Title, Panels: panels}, nil
}
