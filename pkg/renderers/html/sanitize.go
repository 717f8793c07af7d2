package html

import (
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
	"github.com/microcosm-cc/bluemonday"
)

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy

	filtersOnce sync.Once
)

// Multiline strips markup from value, escapes it and turns line breaks into
// <br> so stored addresses keep their layout.
func Multiline(value string) string {
	value = strings.ReplaceAll(value, "\r\n", "\n")
	cleaned := textSanitizer().Sanitize(value)
	return strings.ReplaceAll(cleaned, "\n", "<br>")
}

func textSanitizer() *bluemonday.Policy {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return textPolicy
}

func registerFilters() {
	filtersOnce.Do(func() {
		if !pongo2.FilterExists("multiline") {
			_ = pongo2.RegisterFilter("multiline", filterMultiline)
		}
	})
}

func filterMultiline(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if in == nil || in.IsNil() {
		return pongo2.AsSafeValue(""), nil
	}
	return pongo2.AsSafeValue(Multiline(in.String())), nil
}
