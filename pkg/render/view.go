package render

import (
	"strings"
	"unicode"
)

// NA is shown for missing values in flattened records and table cells.
const NA = "N/A"

// Row is one label/value line of a panel.
type Row struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Entry is a raw key/value pair before labels are resolved.
type Entry struct {
	Key   string
	Value string
}

// Table is an ordered list of records plus the column spec used to read
// them.
type Table struct {
	ID          string              `json:"id,omitempty"`
	Title       string              `json:"title,omitempty"`
	Headers     []string            `json:"headers"`
	Columns     []string            `json:"columns"`
	Rows        []map[string]string `json:"rows"`
	Placeholder string              `json:"placeholder,omitempty"`
	// Actions adds per-row edit/delete affordances keyed by row index.
	Actions bool `json:"actions,omitempty"`
}

// Cell returns the value of column in row, NA when empty.
func (t Table) Cell(row map[string]string, column string) string {
	if v := strings.TrimSpace(row[column]); v != "" {
		return v
	}
	return NA
}

// Panel is a titled block of rows with optional edit/delete affordances.
// Ref identifies what an intent emitted from the panel refers to: an entity
// reference for entity panels, a step index for review panels.
type Panel struct {
	Title    string `json:"title"`
	Rows     []Row  `json:"rows"`
	Edit     bool   `json:"edit,omitempty"`
	Delete   bool   `json:"delete,omitempty"`
	Ref      string `json:"ref,omitempty"`
	Review   bool   `json:"review,omitempty"`
	SubTable *Table `json:"subTable,omitempty"`
}

// EditIntent is the intent emitted by the panel's edit control. Review panels
// navigate to the step instead of opening an editor.
func (p Panel) EditIntent() Intent {
	if p.Review {
		return Intent{Kind: IntentNavigate, Ref: p.Ref}
	}
	return Intent{Kind: IntentEdit, Ref: p.Ref}
}

// DeleteIntent is the intent emitted by the panel's delete control.
func (p Panel) DeleteIntent() Intent {
	return Intent{Kind: IntentDelete, Ref: p.Ref}
}

// View is everything a renderer draws for one screen.
type View struct {
	Title  string   `json:"title,omitempty"`
	Notice string   `json:"notice,omitempty"`
	Panels []Panel  `json:"panels,omitempty"`
	Tables []Table  `json:"tables,omitempty"`
	Footer []string `json:"footer,omitempty"`
}

// IntentKind names a user action reported back by a renderer.
type IntentKind string

const (
	IntentEdit     IntentKind = "edit"
	IntentDelete   IntentKind = "delete"
	IntentNavigate IntentKind = "navigate"
)

// Intent is a user action on a panel or table row. Source names the table
// for row intents and is empty for panels.
type Intent struct {
	Kind   IntentKind `json:"kind"`
	Ref    string     `json:"ref"`
	Source string     `json:"source,omitempty"`
}

// BuildRows resolves labels for entries and drops empty values. Label i comes
// from labels[i] when present, otherwise from FormatKey. Positions are taken
// before empty values are dropped, so labels stay aligned with entries.
func BuildRows(entries []Entry, labels []string) []Row {
	rows := make([]Row, 0, len(entries))
	for i, entry := range entries {
		if strings.TrimSpace(entry.Value) == "" {
			continue
		}
		label := FormatKey(entry.Key)
		if i < len(labels) && strings.TrimSpace(labels[i]) != "" {
			label = labels[i]
		}
		rows = append(rows, Row{Label: label, Value: entry.Value})
	}
	return rows
}

// FormatKey turns a camelCase key into a display label: a space goes between
// a lower-case letter and the following upper-case one and the first letter
// is upper-cased. Runs of capitals (SIN) stay intact.
func FormatKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	runes := []rune(key)
	var b strings.Builder
	for i, r := range runes {
		if i > 0 && unicode.IsLower(runes[i-1]) && unicode.IsUpper(r) {
			b.WriteByte(' ')
		}
		if i == 0 {
			r = unicode.ToUpper(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// OrNA returns value or NA when it is blank.
func OrNA(value string) string {
	if strings.TrimSpace(value) == "" {
		return NA
	}
	return value
}
