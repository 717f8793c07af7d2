package form

// Values maps control names to their serialized string values.
type Values map[string]string

// Clone returns a copy of v.
func (v Values) Clone() Values {
	if v == nil {
		return nil
	}
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Serialize reads every named control under root. Checkable controls
// contribute their value only when checked; unnamed controls are skipped.
// When several non-checkable controls share a name the last one wins.
func Serialize(root *Element) Values {
	out := make(Values)
	if root == nil {
		return out
	}
	for _, el := range root.Controls() {
		if el.Name == "" {
			continue
		}
		if el.Checkable() {
			if el.Checked {
				out[el.Name] = el.Value
			}
			continue
		}
		out[el.Name] = el.Value
	}
	return out
}

// Hydrate restores control state under root from values. Checkable controls
// are checked only when their value matches exactly; text-like controls take
// the stored value. Names absent from values are left untouched.
func Hydrate(root *Element, values Values) {
	if root == nil || len(values) == 0 {
		return
	}
	for _, el := range root.Controls() {
		stored, ok := values[el.Name]
		if el.Name == "" || !ok {
			continue
		}
		if el.Checkable() {
			if el.Value == stored {
				el.Checked = true
			} else if el.Kind == KindRadio {
				el.Checked = false
			}
			continue
		}
		el.Value = stored
	}
}

// Populate writes values into matching controls under root without touching
// checkable state unless the value matches. It is used to prefill an edit
// form from an entity record.
func Populate(root *Element, values Values) {
	if root == nil {
		return
	}
	for _, el := range root.Controls() {
		stored, ok := values[el.Name]
		if el.Name == "" || !ok {
			continue
		}
		if el.Checkable() {
			el.Checked = el.Value == stored
			continue
		}
		el.Value = stored
	}
}

// Reset clears every control under root and hides elements flagged
// InitHidden.
func Reset(root *Element) {
	if root == nil {
		return
	}
	for _, child := range root.Children {
		child.Walk(func(el *Element) bool {
			el.Clear()
			if el.InitHidden {
				el.Hidden = true
			}
			return true
		})
	}
}
