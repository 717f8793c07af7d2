package entity

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-formwizard/pkg/form"
	"github.com/goliatone/go-formwizard/pkg/render"
	"github.com/goliatone/go-formwizard/pkg/store"
)

// UploadedDocumentsKey holds the supporting documents. The same name is the
// reserved field under which the documents step embeds its snapshot.
var UploadedDocumentsKey = store.NewKey[[]Document]("uploadedDocuments")

// Control names of the upload form, also used as table columns.
const (
	FieldFileName    = "s5-filename"
	FieldDescription = "s5-desc"
	FieldSize        = "s5-size"
)

// DocumentsTableID identifies the documents table in row intents.
const DocumentsTableID = "tb-upload-doc"

// Document is an uploaded supporting document. SizeKB is the raw size; the
// display form is always derived from it.
type Document struct {
	FileName    string `json:"fileName"`
	Description string `json:"description,omitempty"`
	SizeKB      int64  `json:"sizeKB"`
}

// DocumentFromForm reads the upload form. A missing or malformed size counts
// as zero.
func DocumentFromForm(values form.Values) Document {
	size, err := strconv.ParseInt(strings.TrimSpace(values[FieldSize]), 10, 64)
	if err != nil || size < 0 {
		size = 0
	}
	return Document{
		FileName:    values[FieldFileName],
		Description: values[FieldDescription],
		SizeKB:      size,
	}
}

// Form returns the values that prefill the upload form.
func (d Document) Form() form.Values {
	return form.Values{
		FieldFileName:    d.FileName,
		FieldDescription: d.Description,
		FieldSize:        strconv.FormatInt(d.SizeKB, 10),
	}
}

// Row returns the display row keyed by column name.
func (d Document) Row() map[string]string {
	return map[string]string{
		FieldFileName:    d.FileName,
		FieldDescription: d.Description,
		FieldSize:        FormatSize(d.SizeKB),
	}
}

// FormatSize renders a size in kilobytes: below 1024 as "N KB", otherwise as
// megabytes with two decimals.
func FormatSize(kb int64) string {
	if kb < 1024 {
		return fmt.Sprintf("%d KB", kb)
	}
	return fmt.Sprintf("%.2f MB", float64(kb)/1024)
}

// TotalSize sums the raw sizes and formats the result.
func TotalSize(docs []Document) string {
	var total int64
	for _, d := range docs {
		total += d.SizeKB
	}
	return FormatSize(total)
}

// DocumentColumns is the column spec shared by the documents table and the
// review attachments subtable.
func DocumentColumns() (headers, columns []string) {
	return []string{"Name", "Description", "File Size"}, []string{FieldFileName, FieldDescription, FieldSize}
}

// DocumentRows converts docs into table rows.
func DocumentRows(docs []Document) []map[string]string {
	rows := make([]map[string]string, len(docs))
	for i, d := range docs {
		rows[i] = d.Row()
	}
	return rows
}

// Documents manages the uploaded documents sequence and its edit target.
type Documents struct {
	items *Collection[Document]
	edit  Ref
}

// NewDocuments binds the manager to w, which must own UploadedDocumentsKey.
func NewDocuments(w *store.Writer, options ...Option) *Documents {
	return &Documents{items: NewCollection("uploadedDocuments", UploadedDocumentsKey, w, options...)}
}

// All returns the documents in order.
func (d *Documents) All(ctx context.Context) ([]Document, error) {
	return d.items.All(ctx)
}

// Replace overwrites the sequence, used when restoring a step snapshot.
func (d *Documents) Replace(ctx context.Context, docs []Document) error {
	return d.items.Replace(ctx, docs)
}

// BeginEdit selects row i for editing.
func (d *Documents) BeginEdit(ctx context.Context, i int) (Document, error) {
	doc, err := d.items.Get(ctx, i)
	if err != nil {
		return Document{}, err
	}
	d.edit = At(i)
	return doc, nil
}

// CancelEdit drops the edit target.
func (d *Documents) CancelEdit() { d.edit = Ref{} }

// EditTarget returns the current edit target.
func (d *Documents) EditTarget() (Ref, bool) {
	return d.edit, !d.edit.IsZero()
}

// Submit replaces the edited row or appends a new one.
func (d *Documents) Submit(ctx context.Context, doc Document) (Ref, error) {
	target := d.edit
	d.edit = Ref{}
	if i, ok := target.Index(); ok {
		return target, d.items.Update(ctx, i, doc)
	}
	i, err := d.items.Add(ctx, doc)
	if err != nil {
		return Ref{}, err
	}
	return At(i), nil
}

// Delete removes row i.
func (d *Documents) Delete(ctx context.Context, i int) error {
	d.edit = Ref{}
	return d.items.Remove(ctx, i)
}

// TotalSize formats the aggregate size of every document.
func (d *Documents) TotalSize(ctx context.Context) (string, error) {
	docs, err := d.items.All(ctx)
	if err != nil {
		return "", err
	}
	return TotalSize(docs), nil
}

// Table renders the documents table with per-row actions.
func (d *Documents) Table(ctx context.Context) (render.Table, error) {
	docs, err := d.items.All(ctx)
	if err != nil {
		return render.Table{}, err
	}
	headers, columns := DocumentColumns()
	return render.Table{
		ID:          DocumentsTableID,
		Title:       "Uploaded documents",
		Headers:     headers,
		Columns:     columns,
		Rows:        DocumentRows(docs),
		Placeholder: "No documents uploaded",
		Actions:     true,
	}, nil
}
