package form

import (
	"errors"
	"fmt"
	"strings"
)

// Document indexes a tree of elements. It owns the live control state the
// disclosure engine mutates and the navigator serializes.
type Document struct {
	roots []*Element
	byID  map[string]*Element
}

// NewDocument links parents and indexes ids. Duplicate ids are rejected.
func NewDocument(roots ...*Element) (*Document, error) {
	doc := &Document{byID: make(map[string]*Element)}
	for _, root := range roots {
		if root == nil {
			continue
		}
		root.parent = nil
		doc.roots = append(doc.roots, root)
	}
	for _, root := range doc.roots {
		if err := doc.index(root); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// MustDocument panics when NewDocument fails. Intended for fixtures.
func MustDocument(roots ...*Element) *Document {
	doc, err := NewDocument(roots...)
	if err != nil {
		panic(err)
	}
	return doc
}

func (d *Document) index(el *Element) error {
	if el.Kind == "" {
		return fmt.Errorf("form: element %q has no kind", el.ID)
	}
	if id := strings.TrimSpace(el.ID); id != "" {
		if _, exists := d.byID[id]; exists {
			return fmt.Errorf("form: duplicate element id %q", id)
		}
		d.byID[id] = el
	}
	for _, child := range el.Children {
		if child == nil {
			return errors.New("form: nil child element")
		}
		child.parent = el
		if err := d.index(child); err != nil {
			return err
		}
	}
	return nil
}

// Roots returns the top level elements.
func (d *Document) Roots() []*Element {
	return append([]*Element(nil), d.roots...)
}

// ByID returns the element with the given id.
func (d *Document) ByID(id string) (*Element, bool) {
	el, ok := d.byID[strings.TrimSpace(id)]
	return el, ok
}

// Walk visits every element in document order.
func (d *Document) Walk(fn func(*Element) bool) {
	for _, root := range d.roots {
		root.Walk(fn)
	}
}

// Controls returns every control in the document.
func (d *Document) Controls() []*Element {
	var out []*Element
	d.Walk(func(el *Element) bool {
		if el.IsControl() {
			out = append(out, el)
		}
		return true
	})
	return out
}

// Group returns the controls sharing name, document wide.
func (d *Document) Group(name string) []*Element {
	if strings.TrimSpace(name) == "" {
		return nil
	}
	var out []*Element
	d.Walk(func(el *Element) bool {
		if el.IsControl() && el.Name == name {
			out = append(out, el)
		}
		return true
	})
	return out
}

// CheckedIDs returns the ids of every checked control.
func (d *Document) CheckedIDs() []string {
	var out []string
	d.Walk(func(el *Element) bool {
		if el.Checkable() && el.Checked && el.ID != "" {
			out = append(out, el.ID)
		}
		return true
	})
	return out
}

// LabelFor resolves the human label of the control named name: the control's
// own label, overridden by the legend of its fieldset (radio/checkbox groups
// are labelled by their legend). Asterisks are stripped. The raw name is
// returned when nothing is found.
func (d *Document) LabelFor(name string) string {
	group := d.Group(name)
	if len(group) == 0 {
		return name
	}
	first := group[0]
	label := first.Label
	if fs := first.Closest(KindFieldset); fs != nil && strings.TrimSpace(fs.Legend) != "" {
		label = fs.Legend
	}
	if cleaned := CleanLabel(label); cleaned != "" {
		return cleaned
	}
	return name
}

// FieldOrder returns the distinct control names under root in document
// order.
func (d *Document) FieldOrder(root *Element) []string {
	if root == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, el := range root.Controls() {
		if el.Name == "" {
			continue
		}
		if _, ok := seen[el.Name]; ok {
			continue
		}
		seen[el.Name] = struct{}{}
		out = append(out, el.Name)
	}
	return out
}

// Clone deep copies the document, producing an independent control state.
func (d *Document) Clone() *Document {
	roots := make([]*Element, len(d.roots))
	for i, root := range d.roots {
		roots[i] = root.clone(nil)
	}
	doc, err := NewDocument(roots...)
	if err != nil {
		// The source document already passed validation.
		panic(err)
	}
	return doc
}
