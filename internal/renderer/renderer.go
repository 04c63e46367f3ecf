package renderer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/dpshade/pocket-doc/internal/models"
)

// Renderer produces output for a document, applying its template when one
// is attached
type Renderer struct {
	doc      *models.Document
	template *models.Template
}

// NewRenderer creates a new renderer instance. tmpl may be nil for
// template-less documents.
func NewRenderer(doc *models.Document, tmpl *models.Template) *Renderer {
	return &Renderer{
		doc:      doc,
		template: tmpl,
	}
}

// RenderMarkdown renders the document as markdown. With a template attached
// the template body is executed against the document's fields; otherwise the
// document's own content is returned.
func (r *Renderer) RenderMarkdown() (string, error) {
	if r.template == nil {
		return r.doc.Content, nil
	}
	return r.applyTemplate()
}

// RenderJSON renders the document as a JSON envelope for API consumers
func (r *Renderer) RenderJSON() (string, error) {
	markdown, err := r.RenderMarkdown()
	if err != nil {
		return "", err
	}

	envelope := map[string]any{
		"id":       r.doc.ID,
		"title":    r.doc.Title,
		"status":   r.doc.Status,
		"fields":   r.doc.Fields,
		"rendered": markdown,
	}
	if r.doc.TemplateID != "" {
		envelope["template"] = r.doc.TemplateID
	}

	jsonBytes, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal to JSON: %w", err)
	}

	return string(jsonBytes), nil
}

// applyTemplate executes the template body against the document's fields
func (r *Renderer) applyTemplate() (string, error) {
	tmpl, err := template.New("document").Parse(r.template.Content)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	// Seed every declared slot so optional, unfilled slots render empty
	// instead of "<no value>"
	data := make(map[string]any)
	for _, slot := range r.template.Slots {
		data[slot.Name] = ""
	}
	for name, value := range r.doc.Fields {
		data[name] = value
	}

	// The document's title and notes are available as special slots
	data["title"] = r.doc.Title
	data["content"] = r.doc.Content

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}
