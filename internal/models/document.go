package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the document lifecycle state
type Status string

const (
	StatusDraft     Status = "draft"
	StatusValidated Status = "validated"
	StatusFinal     Status = "final"
)

// Document is a concrete instance of user data, usually filled in against a
// template. Fields are untyped at rest; typing is enforced at validation time.
type Document struct {
	// Frontmatter fields
	ID         string         `yaml:"id" json:"doc_id"`
	TemplateID string         `yaml:"template,omitempty" json:"template_id,omitempty"`
	Title      string         `yaml:"title" json:"title"`
	Fields     map[string]any `yaml:"fields" json:"fields"`
	Meta       Meta           `yaml:"metadata" json:"metadata"`
	Status     Status         `yaml:"status" json:"status"`

	// Content fields
	Content  string `yaml:"-" json:"content,omitempty"` // Free-form markdown notes after frontmatter
	FilePath string `yaml:"-" json:"-"`                 // Path to the file
}

// NewDocument creates a draft document. templateID may be empty for
// template-less documents.
func NewDocument(templateID, title, author string) *Document {
	return &Document{
		ID:         uuid.NewString(),
		TemplateID: templateID,
		Title:      title,
		Fields:     make(map[string]any),
		Meta:       NewMeta(author),
		Status:     StatusDraft,
	}
}

// Touch refreshes the updated timestamp. Every mutation of Fields, Status or
// Meta content must be followed by a Touch; CreatedAt never changes.
func (d *Document) Touch() {
	d.Meta.UpdatedAt = time.Now().UTC()
}

// SetField stores a field value and touches the document
func (d *Document) SetField(name string, value any) {
	if d.Fields == nil {
		d.Fields = make(map[string]any)
	}
	d.Fields[name] = value
	d.Touch()
}

// UnsetField removes a field and touches the document
func (d *Document) UnsetField(name string) {
	delete(d.Fields, name)
	d.Touch()
}

// SetStatus applies a lifecycle transition and touches the document. The
// workflow layer decides when transitions are allowed; the model only knows
// the three states.
func (d *Document) SetStatus(status Status) {
	d.Status = status
	d.Touch()
}

// Summary returns a one-line description used by list views
func (d *Document) Summary() string {
	desc := fmt.Sprintf("[%s]", d.Status)
	if d.TemplateID != "" {
		desc += " from " + d.TemplateID
	}
	if !d.Meta.UpdatedAt.IsZero() {
		desc += " • edited " + d.Meta.UpdatedAt.Format("2006-01-02 15:04")
	}
	return desc
}
