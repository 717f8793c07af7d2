package form

import "strings"

// Kind classifies an element in the form tree.
type Kind string

const (
	KindStep     Kind = "step"
	KindFieldset Kind = "fieldset"
	KindGroup    Kind = "group"
	KindText     Kind = "text"
	KindTextArea Kind = "textarea"
	KindSelect   Kind = "select"
	KindRadio    Kind = "radio"
	KindCheckbox Kind = "checkbox"
	KindHidden   Kind = "hidden"
	KindDate     Kind = "date"
	KindTel      Kind = "tel"
	KindNumber   Kind = "number"
)

// IsControl reports whether elements of this kind carry a value.
func (k Kind) IsControl() bool {
	switch k {
	case KindText, KindTextArea, KindSelect, KindRadio, KindCheckbox, KindHidden, KindDate, KindTel, KindNumber:
		return true
	default:
		return false
	}
}

// Checkable reports whether the kind uses a checked state instead of a free
// value.
func (k Kind) Checkable() bool {
	return k == KindRadio || k == KindCheckbox
}

// Element is a node in the form tree: either a container (step, fieldset,
// group) or a control. Controls sharing a Name form a group; Toggles lists
// the element ids a checkable control reveals when checked.
type Element struct {
	ID      string     `json:"id,omitempty" yaml:"id,omitempty"`
	Kind    Kind       `json:"kind" yaml:"kind"`
	Name    string     `json:"name,omitempty" yaml:"name,omitempty"`
	Value   string     `json:"value,omitempty" yaml:"value,omitempty"`
	Checked bool       `json:"checked,omitempty" yaml:"checked,omitempty"`
	Hidden  bool       `json:"hidden,omitempty" yaml:"hidden,omitempty"`
	Label   string     `json:"label,omitempty" yaml:"label,omitempty"`
	Legend  string     `json:"legend,omitempty" yaml:"legend,omitempty"`
	Toggles []string   `json:"toggles,omitempty" yaml:"toggles,omitempty"`
	Options []string   `json:"options,omitempty" yaml:"options,omitempty"`
	// InitHidden marks elements a form reset hides again.
	InitHidden bool       `json:"initHidden,omitempty" yaml:"initHidden,omitempty"`
	Required   bool       `json:"required,omitempty" yaml:"required,omitempty"`
	Children   []*Element `json:"children,omitempty" yaml:"children,omitempty"`

	parent *Element
}

// IsControl reports whether the element carries a value.
func (e *Element) IsControl() bool {
	return e != nil && e.Kind.IsControl()
}

// Checkable reports whether the element is a radio or checkbox.
func (e *Element) Checkable() bool {
	return e != nil && e.Kind.Checkable()
}

// Parent returns the containing element, nil for roots.
func (e *Element) Parent() *Element {
	if e == nil {
		return nil
	}
	return e.parent
}

// Clear resets a control to its empty state: checkables are unchecked, other
// controls lose their value. Containers are left untouched.
func (e *Element) Clear() {
	if !e.IsControl() {
		return
	}
	if e.Checkable() {
		e.Checked = false
		return
	}
	e.Value = ""
}

// Empty reports whether a control holds no input.
func (e *Element) Empty() bool {
	if !e.IsControl() {
		return true
	}
	if e.Checkable() {
		return !e.Checked
	}
	return e.Value == ""
}

// Walk visits e and its descendants in document order. Returning false from
// fn skips the node's children.
func (e *Element) Walk(fn func(*Element) bool) {
	if e == nil {
		return
	}
	if !fn(e) {
		return
	}
	for _, child := range e.Children {
		child.Walk(fn)
	}
}

// Controls returns the controls strictly inside e, in document order.
func (e *Element) Controls() []*Element {
	var out []*Element
	for _, child := range e.Children {
		child.Walk(func(el *Element) bool {
			if el.IsControl() {
				out = append(out, el)
			}
			return true
		})
	}
	return out
}

// Closest returns the nearest ancestor (excluding e) of the given kind.
func (e *Element) Closest(kind Kind) *Element {
	for p := e.Parent(); p != nil; p = p.parent {
		if p.Kind == kind {
			return p
		}
	}
	return nil
}

// NextSiblings returns the siblings after e in document order.
func (e *Element) NextSiblings() []*Element {
	p := e.Parent()
	if p == nil {
		return nil
	}
	for i, child := range p.Children {
		if child == e {
			return append([]*Element(nil), p.Children[i+1:]...)
		}
	}
	return nil
}

// HiddenInTree reports whether e or any ancestor is hidden.
func (e *Element) HiddenInTree() bool {
	for el := e; el != nil; el = el.parent {
		if el.Hidden {
			return true
		}
	}
	return false
}

func (e *Element) clone(parent *Element) *Element {
	if e == nil {
		return nil
	}
	out := *e
	out.parent = parent
	out.Toggles = append([]string(nil), e.Toggles...)
	out.Options = append([]string(nil), e.Options...)
	out.Children = make([]*Element, len(e.Children))
	for i, child := range e.Children {
		out.Children[i] = child.clone(&out)
	}
	if len(out.Children) == 0 {
		out.Children = nil
	}
	return &out
}

// CleanLabel strips asterisk decoration and surrounding whitespace from label
// text.
func CleanLabel(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, "*", ""))
}
