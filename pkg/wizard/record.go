package wizard

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/goliatone/go-formwizard/pkg/form"
)

// Record is the persisted state of one step: the serialized controls plus
// any embedded collection snapshots. It encodes as a single flat JSON
// object; string members are fields and every other member is embedded.
type Record struct {
	Fields   form.Values
	Embedded map[string]json.RawMessage
}

// MarshalJSON flattens fields and embedded values into one object.
func (r Record) MarshalJSON() ([]byte, error) {
	flat := make(map[string]json.RawMessage, len(r.Fields)+len(r.Embedded))
	for name, value := range r.Fields {
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		flat[name] = raw
	}
	for name, raw := range r.Embedded {
		if _, clash := r.Fields[name]; clash {
			return nil, fmt.Errorf("wizard: record field %q is reserved for an embedded value", name)
		}
		flat[name] = raw
	}
	return json.Marshal(flat)
}

// UnmarshalJSON splits a flat object back into fields and embedded values.
func (r *Record) UnmarshalJSON(data []byte) error {
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	r.Fields = make(form.Values)
	r.Embedded = nil
	for name, raw := range flat {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			r.Fields[name] = s
			continue
		}
		if r.Embedded == nil {
			r.Embedded = make(map[string]json.RawMessage)
		}
		r.Embedded[name] = append(json.RawMessage(nil), raw...)
	}
	return nil
}

// Names returns the field names in lexical order.
func (r Record) Names() []string {
	names := make([]string, 0, len(r.Fields))
	for name := range r.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
