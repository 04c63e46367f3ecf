package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// SlotType enumerates the value kinds a slot can declare
type SlotType string

const (
	SlotString     SlotType = "string"
	SlotNumber     SlotType = "number"
	SlotBoolean    SlotType = "boolean"
	SlotStringList SlotType = "list_of_string"
)

// Slot represents one named, typed input a template expects from a document
type Slot struct {
	Name        string   `yaml:"name" json:"name"`
	Required    bool     `yaml:"required" json:"required"`
	Type        SlotType `yaml:"type" json:"type"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Example     string   `yaml:"example,omitempty" json:"example,omitempty"`
}

// UnmarshalYAML applies slot defaults: slots are required unless the
// frontmatter says otherwise, and untyped slots hold strings
func (s *Slot) UnmarshalYAML(node *yaml.Node) error {
	type rawSlot Slot
	raw := rawSlot{Required: true, Type: SlotString}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*s = Slot(raw)
	return nil
}

// UnmarshalJSON applies the same defaults as the YAML path, so slots
// arriving over the API behave like slots read from frontmatter
func (s *Slot) UnmarshalJSON(data []byte) error {
	type rawSlot Slot
	raw := rawSlot{Required: true, Type: SlotString}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Slot(raw)
	return nil
}

// Meta carries timestamps and collaboration info shared by templates and documents
type Meta struct {
	CreatedAt     time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt     time.Time `yaml:"updated_at" json:"updated_at"`
	Author        string    `yaml:"author,omitempty" json:"author,omitempty"`
	Collaborators []string  `yaml:"collaborators,omitempty" json:"collaborators,omitempty"`
}

// NewMeta creates metadata stamped with the current UTC time
func NewMeta(author string) Meta {
	now := time.Now().UTC()
	return Meta{
		CreatedAt: now,
		UpdatedAt: now,
		Author:    author,
	}
}

// Template represents a reusable document scaffold with typed slots
type Template struct {
	// Frontmatter fields
	ID          string `yaml:"id" json:"template_id"`
	DisplayName string `yaml:"name" json:"display_name"`
	Version     string `yaml:"version" json:"version"`
	Slots       []Slot `yaml:"slots" json:"slots"`
	Meta        Meta   `yaml:"metadata" json:"metadata"`

	// Content fields
	Content  string `yaml:"-" json:"content,omitempty"` // The template markdown content
	FilePath string `yaml:"-" json:"-"`                 // Path to the file
}

// NewTemplate creates a template and enforces the slot-name uniqueness
// invariant at construction time
func NewTemplate(id, displayName, version string, slots []Slot) (*Template, error) {
	t := &Template{
		ID:          id,
		DisplayName: displayName,
		Version:     version,
		Slots:       slots,
		Meta:        NewMeta(""),
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks the template definition itself: non-empty id, non-empty
// slot names, no duplicate slot names. SlotMap is only well-defined when
// this passes.
func (t *Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("template id must not be empty")
	}
	seen := make(map[string]bool, len(t.Slots))
	for _, slot := range t.Slots {
		if slot.Name == "" {
			return fmt.Errorf("template %q has a slot with an empty name", t.ID)
		}
		if seen[slot.Name] {
			return fmt.Errorf("template %q declares slot %q more than once", t.ID, slot.Name)
		}
		seen[slot.Name] = true

		switch slot.Type {
		case SlotString, SlotNumber, SlotBoolean, SlotStringList:
		default:
			return fmt.Errorf("template %q slot %q has unknown type %q", t.ID, slot.Name, slot.Type)
		}
	}
	return nil
}

// RequiredSlots returns the names of all required slots in declaration order
func (t *Template) RequiredSlots() []string {
	var names []string
	for _, slot := range t.Slots {
		if slot.Required {
			names = append(names, slot.Name)
		}
	}
	return names
}

// SlotMap returns a name-keyed lookup of the template's slots. Callers rely
// on Validate having rejected duplicate names.
func (t *Template) SlotMap() map[string]Slot {
	m := make(map[string]Slot, len(t.Slots))
	for _, slot := range t.Slots {
		m[slot.Name] = slot
	}
	return m
}

// Touch refreshes the template's updated timestamp
func (t *Template) Touch() {
	t.Meta.UpdatedAt = time.Now().UTC()
}

// Implement list.Item interface for bubbles list component

// FilterValue returns the value used for filtering in lists
func (t Template) FilterValue() string {
	return t.DisplayName
}

// Title satisfies the list.Item interface
func (t Template) Title() string {
	if t.DisplayName != "" {
		return t.DisplayName
	}
	return t.ID
}

// Description satisfies the list.Item interface
func (t Template) Description() string {
	desc := fmt.Sprintf("%d slots (%d required)", len(t.Slots), len(t.RequiredSlots()))
	if t.Version != "" {
		desc += " • v" + t.Version
	}
	return desc
}
