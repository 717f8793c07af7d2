package html

import (
	"path"
	"sort"
	"strings"

	theme "github.com/goliatone/go-theme"
)

// StylesheetAsset is the asset key resolved into the stylesheet link.
const StylesheetAsset = "html.stylesheet"

type themeData struct {
	Name         string
	Variant      string
	CSSVarsStyle string
	Stylesheet   string
}

// themeConfig resolves name/variant against the registered manifests,
// falling back to the configured renderer config.
func (r *Renderer) themeConfig(name, variant string) *theme.RendererConfig {
	m, ok := r.themes[name]
	if !ok {
		return r.fallback
	}
	return ConfigFromManifest(m, variant)
}

// ConfigFromManifest flattens a manifest and one of its variants into a
// renderer config. Variant tokens, templates and asset files override the
// base ones; every token becomes a CSS variable of the same name.
func ConfigFromManifest(m *theme.Manifest, variant string) *theme.RendererConfig {
	if m == nil {
		return nil
	}
	tokens := merge(m.Tokens, nil)
	partials := merge(m.Templates, nil)
	files := merge(m.Assets.Files, nil)
	prefix := m.Assets.Prefix
	if v, ok := m.Variants[variant]; ok {
		tokens = merge(tokens, v.Tokens)
		partials = merge(partials, v.Templates)
		files = merge(files, v.Assets.Files)
		if v.Assets.Prefix != "" {
			prefix = v.Assets.Prefix
		}
	} else {
		variant = ""
	}

	vars := make(map[string]string, len(tokens))
	for key, value := range tokens {
		vars["--"+key] = value
	}
	return &theme.RendererConfig{
		Theme:    m.Name,
		Variant:  variant,
		Tokens:   tokens,
		Partials: partials,
		CSSVars:  vars,
		AssetURL: func(key string) string {
			file := files[key]
			if file == "" {
				return ""
			}
			if prefix == "" {
				return file
			}
			return path.Join(prefix, file)
		},
	}
}

func merge(base, over map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

func buildTheme(cfg *theme.RendererConfig) themeData {
	if cfg == nil {
		return themeData{}
	}
	data := themeData{
		Name:         cfg.Theme,
		Variant:      cfg.Variant,
		CSSVarsStyle: cssVarsStyle(cfg.CSSVars),
	}
	if cfg.AssetURL != nil {
		data.Stylesheet = cfg.AssetURL(StylesheetAsset)
	}
	return data
}

func cssVarsStyle(vars map[string]string) string {
	if len(vars) == 0 {
		return ""
	}
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+vars[key])
	}
	return strings.Join(parts, "; ")
}
