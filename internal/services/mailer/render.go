package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/NordCoder/tifi/internal/domain/delivery"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer turns a delivery template and its context into an HTML body.
// Every template shares templates/layout.html.
type Renderer struct {
	sets map[delivery.Template]*template.Template
}

func NewRenderer() (*Renderer, error) {
	r := &Renderer{sets: make(map[delivery.Template]*template.Template, len(delivery.Templates))}
	for _, tpl := range delivery.Templates {
		t, err := template.New(tpl.File()).
			Option("missingkey=error").
			ParseFS(templateFS, "templates/layout.html", "templates/"+tpl.File())
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", tpl, err)
		}
		r.sets[tpl] = t
	}
	return r, nil
}

func (r *Renderer) Render(tpl delivery.Template, data map[string]any) (string, error) {
	t, ok := r.sets[tpl]
	if !ok {
		return "", fmt.Errorf("%w: %q", delivery.ErrUnknownTemplate, tpl)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("render %s: %w", tpl, err)
	}
	return buf.String(), nil
}
