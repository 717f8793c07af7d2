package render

// Options carry per-render settings that do not belong in the View itself.
type Options struct {
	// Theme selects a named theme for renderers that support theming.
	Theme string
	// Variant selects a theme variant (for example "dark").
	Variant string
	// Interactive asks renderers to include edit/delete affordances. Static
	// exports leave it false.
	Interactive bool
}
