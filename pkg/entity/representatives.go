package entity

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-formwizard/pkg/form"
	"github.com/goliatone/go-formwizard/pkg/render"
	"github.com/goliatone/go-formwizard/pkg/store"
)

// Store keys owned by the representatives book.
var (
	LegalRepKey       = store.NewKey[Representative]("legalRepresentative")
	MailRecipientsKey = store.NewKey[[]Representative]("mailRecipients")
)

// Control names of the add/edit representative form.
const (
	FieldRepName     = "s3-repname"
	FieldCountry     = "s3-country"
	FieldCAddress    = "s3-caddress"
	FieldCity        = "s3-repcity"
	FieldProvince    = "s3-repprov"
	FieldPostalCode  = "s3-reppostcode"
	FieldIntlAddress = "s3-rep-iaddress"
	FieldPhone       = "s3-reptel1"
	FieldAltPhone    = "s3-reptel2"
	FieldRole        = "s3-reprole"

	CountryCanada  = "Canada"
	CountryOutside = "Outside of Canada"
)

// RestrictedUserLevel is the user level that may not edit the legal
// representative and sees a reduced panel.
const RestrictedUserLevel = 3

// Representative is a legal representative or mail recipient. Address lines
// are separated by "\n".
type Representative struct {
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Address  string `json:"address,omitempty" yaml:"address,omitempty"`
	Phone    string `json:"phone,omitempty" yaml:"phone,omitempty"`
	AltPhone string `json:"altPhone,omitempty" yaml:"altPhone,omitempty"`
	Role     string `json:"role,omitempty" yaml:"role,omitempty"`
}

// Entries lists the fields in panel order.
func (r Representative) Entries() []render.Entry {
	return []render.Entry{
		{Key: "name", Value: r.Name},
		{Key: "address", Value: r.Address},
		{Key: "phone", Value: r.Phone},
		{Key: "altPhone", Value: r.AltPhone},
		{Key: "role", Value: r.Role},
	}
}

// RepresentativeFromForm builds a representative from the add/edit form. A
// Canadian address is composed from its parts; any other country uses the
// free-form international address.
func RepresentativeFromForm(values form.Values) Representative {
	var address string
	switch values[FieldCountry] {
	case CountryCanada:
		address = fmt.Sprintf("%s\n%s, %s %s\n%s",
			values[FieldCAddress], values[FieldCity], values[FieldProvince], values[FieldPostalCode], CountryCanada)
	case CountryOutside:
		address = values[FieldIntlAddress]
	}
	return Representative{
		Name:     values[FieldRepName],
		Address:  address,
		Phone:    values[FieldPhone],
		AltPhone: values[FieldAltPhone],
		Role:     values[FieldRole],
	}
}

// Form returns the form values that prefill the edit form. Canadian
// addresses are split back into their parts.
func (r Representative) Form() form.Values {
	values := form.Values{
		FieldRepName:  r.Name,
		FieldPhone:    r.Phone,
		FieldAltPhone: r.AltPhone,
		FieldRole:     r.Role,
	}
	lines := strings.Split(r.Address, "\n")
	if len(lines) == 3 && lines[2] == CountryCanada {
		values[FieldCountry] = CountryCanada
		values[FieldCAddress] = lines[0]
		city, rest, _ := strings.Cut(lines[1], ", ")
		values[FieldCity] = city
		prov, postal, _ := strings.Cut(rest, " ")
		values[FieldProvince] = prov
		values[FieldPostalCode] = postal
		return values
	}
	if r.Address != "" {
		values[FieldCountry] = CountryOutside
		values[FieldIntlAddress] = r.Address
	}
	return values
}

// LegalRepLabels returns the panel labels for the legal representative.
func LegalRepLabels(userLevel int) []string {
	if userLevel == RestrictedUserLevel {
		return []string{"Name", "Mailing address"}
	}
	return MailRecipientLabels()
}

// MailRecipientLabels returns the panel labels for mail recipients.
func MailRecipientLabels() []string {
	return []string{"Name", "Mailing address", "Telephone number", "Alternate telephone number", "Role"}
}

// Representatives manages the legal representative (a singleton) and the
// mail recipients (a sequence). Both share one add/edit form, so at most one
// edit target is selected at a time.
type Representatives struct {
	legal      *Single[Representative]
	recipients *Collection[Representative]
	edit       Ref
}

// NewRepresentatives binds the book to w, which must own LegalRepKey and
// MailRecipientsKey.
func NewRepresentatives(w *store.Writer, options ...Option) *Representatives {
	return &Representatives{
		legal:      NewSingle("legalRepresentative", LegalRepKey, w, options...),
		recipients: NewCollection("mailRecipients", MailRecipientsKey, w, options...),
	}
}

// LegalRep returns the legal representative, false when none is recorded.
func (r *Representatives) LegalRep(ctx context.Context) (Representative, bool, error) {
	return r.legal.Get(ctx)
}

// Recipients returns the mail recipients in order.
func (r *Representatives) Recipients(ctx context.Context) ([]Representative, error) {
	return r.recipients.All(ctx)
}

// SeedLegalRep records rep as the legal representative unless one already
// exists. It reports whether rep was stored.
func (r *Representatives) SeedLegalRep(ctx context.Context, rep Representative) (bool, error) {
	_, ok, err := r.legal.Get(ctx)
	if err != nil || ok {
		return false, err
	}
	return true, r.legal.Set(ctx, rep)
}

// BeginEdit selects ref as the edit target and returns the record to prefill
// the form with.
func (r *Representatives) BeginEdit(ctx context.Context, ref Ref) (Representative, error) {
	rep, err := r.get(ctx, ref)
	if err != nil {
		return Representative{}, err
	}
	r.edit = ref
	return rep, nil
}

// CancelEdit drops the edit target.
func (r *Representatives) CancelEdit() { r.edit = Ref{} }

// EditTarget returns the current edit target.
func (r *Representatives) EditTarget() (Ref, bool) {
	return r.edit, !r.edit.IsZero()
}

// Submit commits the form. With an edit target the addressed record is
// replaced; otherwise the record becomes the legal representative when none
// exists yet and a new mail recipient after that. The edit target is
// cleared either way.
func (r *Representatives) Submit(ctx context.Context, rep Representative) (Ref, error) {
	target := r.edit
	r.edit = Ref{}

	if !target.IsZero() {
		if target.IsSingleton() {
			return target, r.legal.Set(ctx, rep)
		}
		i, _ := target.Index()
		return target, r.recipients.Update(ctx, i, rep)
	}

	_, hasLegal, err := r.legal.Get(ctx)
	if err != nil {
		return Ref{}, err
	}
	if !hasLegal {
		return Singleton(), r.legal.Set(ctx, rep)
	}
	i, err := r.recipients.Add(ctx, rep)
	if err != nil {
		return Ref{}, err
	}
	return At(i), nil
}

// Delete removes the addressed record. Deleting the legal representative
// clears its key; deleting a recipient shifts later recipients down.
func (r *Representatives) Delete(ctx context.Context, ref Ref) error {
	r.edit = Ref{}
	if ref.IsSingleton() {
		return r.legal.Clear(ctx)
	}
	i, ok := ref.Index()
	if !ok {
		return fmt.Errorf("%w: empty reference", ErrOutOfRange)
	}
	return r.recipients.Remove(ctx, i)
}

func (r *Representatives) get(ctx context.Context, ref Ref) (Representative, error) {
	if ref.IsSingleton() {
		rep, ok, err := r.legal.Get(ctx)
		if err != nil {
			return Representative{}, err
		}
		if !ok {
			return Representative{}, fmt.Errorf("%w: no legal representative", ErrOutOfRange)
		}
		return rep, nil
	}
	i, ok := ref.Index()
	if !ok {
		return Representative{}, fmt.Errorf("%w: empty reference", ErrOutOfRange)
	}
	return r.recipients.Get(ctx, i)
}

// Status summarises what the representatives step shows around the panels.
type Status struct {
	HasLegalRep bool
	// ShowLegalRepInfo reveals the restricted user's information fieldset.
	ShowLegalRepInfo bool
	// AddLabel is the caption of the add control and of the form.
	AddLabel string
}

// Status reports the current view state for userLevel.
func (r *Representatives) Status(ctx context.Context, userLevel int) (Status, error) {
	_, ok, err := r.legal.Get(ctx)
	if err != nil {
		return Status{}, err
	}
	if !ok {
		return Status{AddLabel: "Add legal representative information"}, nil
	}
	return Status{
		HasLegalRep:      true,
		ShowLegalRepInfo: userLevel == RestrictedUserLevel,
		AddLabel:         "Add additional mail recipient",
	}, nil
}

// Panels renders the legal representative followed by each mail recipient.
// Restricted users cannot edit or delete the legal representative.
func (r *Representatives) Panels(ctx context.Context, userLevel int) ([]render.Panel, error) {
	var panels []render.Panel
	legal, ok, err := r.legal.Get(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		editable := userLevel != RestrictedUserLevel
		panels = append(panels, render.Panel{
			Title:  "Legal representative",
			Rows:   render.BuildRows(legal.Entries(), LegalRepLabels(userLevel)),
			Edit:   editable,
			Delete: editable,
			Ref:    SingletonName,
		})
	}
	recipients, err := r.recipients.All(ctx)
	if err != nil {
		return nil, err
	}
	for i, rep := range recipients {
		panels = append(panels, render.Panel{
			Title:  fmt.Sprintf("Mail recipient %d", i+1),
			Rows:   render.BuildRows(rep.Entries(), MailRecipientLabels()),
			Edit:   true,
			Delete: true,
			Ref:    At(i).String(),
		})
	}
	return panels, nil
}
