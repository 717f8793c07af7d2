package render

import "context"

// Renderer turns a View into bytes (plain text, HTML, ...). Renderers are
// collaborators of the wizard core: they only read the View and report user
// actions back as Intents.
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, view View, options Options) ([]byte, error)
}
