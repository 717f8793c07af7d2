// Package review flattens the persisted wizard records into read-only panels
// shown on the final step.
package review

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-formwizard/pkg/entity"
	"github.com/goliatone/go-formwizard/pkg/form"
	"github.com/goliatone/go-formwizard/pkg/render"
	"github.com/goliatone/go-formwizard/pkg/store"
)

// Kind selects how a section's record is flattened.
type Kind string

const (
	KindPlain           Kind = "plain"
	KindRepresentatives Kind = "representatives"
	KindDocuments       Kind = "documents"
)

// Section configures one review panel. Key is the store record the panel is
// built from; the panel is skipped when it is absent. Labels override the
// label of the field at the same position, Fields fixes the field order
// (otherwise the order of controls under Root, then remaining names sorted).
type Section struct {
	Step       int      `json:"step" yaml:"step"`
	Title      string   `json:"title" yaml:"title"`
	Key        string   `json:"key" yaml:"key"`
	Kind       Kind     `json:"kind,omitempty" yaml:"kind,omitempty"`
	Root       string   `json:"root,omitempty" yaml:"root,omitempty"`
	Labels     []string `json:"labels,omitempty" yaml:"labels,omitempty"`
	Fields     []string `json:"fields,omitempty" yaml:"fields,omitempty"`
	Collection string   `json:"collection,omitempty" yaml:"collection,omitempty"`
}

// AttachmentsTitle titles the documents subtable.
const AttachmentsTitle = "Attachments"

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// Aggregator builds review panels from the store. It only reads.
type Aggregator struct {
	store    *store.Store
	doc      *form.Document
	sections []Section
	logger   *slog.Logger
}

// New constructs an Aggregator. doc resolves field labels and may be nil.
func New(s *store.Store, doc *form.Document, sections []Section, options ...Option) *Aggregator {
	a := &Aggregator{
		store:    s,
		doc:      doc,
		sections: append([]Section(nil), sections...),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range options {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Sections returns the configured sections.
func (a *Aggregator) Sections() []Section {
	return append([]Section(nil), a.sections...)
}

// Panels returns one review panel per section with a persisted record, in
// section order. Sections that fail to load are logged and skipped.
func (a *Aggregator) Panels(ctx context.Context) ([]render.Panel, error) {
	var panels []render.Panel
	for _, section := range a.sections {
		panel, ok, err := a.Panel(ctx, section)
		if err != nil {
			a.logger.Warn("review section skipped", "step", section.Step, "key", section.Key, "error", err)
			continue
		}
		if ok {
			panels = append(panels, panel)
		}
	}
	return panels, nil
}

// Panel builds the panel of a single section. It reports false when the
// section's record does not exist yet.
func (a *Aggregator) Panel(ctx context.Context, section Section) (render.Panel, bool, error) {
	var data map[string]json.RawMessage
	ok, err := a.store.Load(ctx, section.Key, &data)
	if err != nil || !ok {
		return render.Panel{}, false, err
	}

	panel := render.Panel{
		Title:  section.Title,
		Edit:   true,
		Ref:    strconv.Itoa(section.Step),
		Review: true,
	}

	switch section.Kind {
	case KindRepresentatives:
		rows, err := a.representativeRows(ctx)
		if err != nil {
			return render.Panel{}, false, err
		}
		panel.Rows = rows
		return panel, true, nil
	case KindDocuments:
		collection := section.Collection
		if collection == "" {
			collection = entity.UploadedDocumentsKey.Name
		}
		if raw, found := data[collection]; found {
			delete(data, collection)
			var docs []entity.Document
			if err := json.Unmarshal(raw, &docs); err != nil {
				return render.Panel{}, false, fmt.Errorf("review: decode %s: %w", collection, err)
			}
			if len(docs) > 0 {
				headers, columns := entity.DocumentColumns()
				panel.SubTable = &render.Table{
					Title:   AttachmentsTitle,
					Headers: headers,
					Columns: columns,
					Rows:    entity.DocumentRows(docs),
				}
			}
		}
	}

	panel.Rows = a.plainRows(section, data)
	return panel, true, nil
}

func (a *Aggregator) plainRows(section Section, data map[string]json.RawMessage) []render.Row {
	order := a.fieldOrder(section, data)
	entries := make([]render.Entry, 0, len(order))
	for i, name := range order {
		label := ""
		if i < len(section.Labels) {
			label = section.Labels[i]
		}
		if strings.TrimSpace(label) == "" {
			label = a.label(name)
		}
		entries = append(entries, render.Entry{Key: label, Value: scalar(data[name])})
	}
	return render.BuildRows(entries, nil)
}

func (a *Aggregator) label(name string) string {
	if a.doc == nil {
		return name
	}
	return a.doc.LabelFor(name)
}

func (a *Aggregator) fieldOrder(section Section, data map[string]json.RawMessage) []string {
	seen := make(map[string]struct{}, len(data))
	var order []string
	add := func(name string) {
		if _, ok := data[name]; !ok {
			return
		}
		if _, dup := seen[name]; dup {
			return
		}
		seen[name] = struct{}{}
		order = append(order, name)
	}

	for _, name := range section.Fields {
		add(name)
	}
	if len(section.Fields) == 0 && a.doc != nil && section.Root != "" {
		if root, ok := a.doc.ByID(section.Root); ok {
			for _, name := range a.doc.FieldOrder(root) {
				add(name)
			}
		}
	}
	rest := make([]string, 0, len(data))
	for name := range data {
		if _, done := seen[name]; !done {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		add(name)
	}
	return order
}

// scalar renders a JSON scalar as text. Objects and arrays render empty and
// are dropped from the panel.
func scalar(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

func (a *Aggregator) representativeRows(ctx context.Context) ([]render.Row, error) {
	var rows []render.Row
	legal, ok, err := entity.LegalRepKey.Load(ctx, a.store)
	if err != nil {
		return nil, err
	}
	if ok {
		rows = append(rows,
			render.Row{Label: "Legal Representative Name", Value: render.OrNA(legal.Name)},
			render.Row{Label: "Mailing Address", Value: render.OrNA(legal.Address)},
			render.Row{Label: "Role", Value: render.OrNA(legal.Role)},
			render.Row{Label: "Telephone Number", Value: render.OrNA(legal.Phone)},
			render.Row{Label: "Alternate Telephone Number", Value: render.OrNA(legal.AltPhone)},
		)
	}
	recipients, _, err := entity.MailRecipientsKey.Load(ctx, a.store)
	if err != nil {
		return nil, err
	}
	for i, rep := range recipients {
		prefix := fmt.Sprintf("Mail Recipient %d ", i+1)
		rows = append(rows,
			render.Row{Label: prefix + "Name", Value: render.OrNA(rep.Name)},
			render.Row{Label: prefix + "Mailing Address", Value: render.OrNA(rep.Address)},
			render.Row{Label: prefix + "Telephone Number", Value: render.OrNA(rep.Phone)},
		)
		if strings.TrimSpace(rep.AltPhone) != "" {
			rows = append(rows, render.Row{Label: prefix + "Alternate Telephone Number", Value: rep.AltPhone})
		}
	}
	return rows, nil
}
