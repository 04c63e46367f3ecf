package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dpshade/pocket-doc/internal/models"
)

// DocumentForm collects a document's title and slot values. The slot
// inputs are generated from the template's declarations; template-less
// documents only get the title and notes fields.
type DocumentForm struct {
	template  *models.Template
	titleIn   textinput.Model
	authorIn  textinput.Model
	slotIns   []textinput.Model
	notes     textarea.Model
	focused   int
	submitted bool
	cancelled bool
}

// Field layout: title, author, then one input per slot, then notes.
const (
	formTitleField = iota
	formAuthorField
	formFirstSlotField
)

// NewDocumentForm builds a form for the given template. tmpl may be nil.
func NewDocumentForm(tmpl *models.Template, doc *models.Document) *DocumentForm {
	titleIn := textinput.New()
	titleIn.Placeholder = "Document title"
	titleIn.CharLimit = 120
	titleIn.Width = 50
	titleIn.Focus()

	authorIn := textinput.New()
	authorIn.Placeholder = "Author (optional)"
	authorIn.CharLimit = 80
	authorIn.Width = 40

	var slotIns []textinput.Model
	if tmpl != nil {
		slotIns = make([]textinput.Model, len(tmpl.Slots))
		for i, slot := range tmpl.Slots {
			in := textinput.New()
			in.Placeholder = slotPlaceholder(slot)
			in.CharLimit = 0
			in.Width = 50
			slotIns[i] = in
		}
	}

	notes := textarea.New()
	notes.Placeholder = "Free-form notes (markdown)"
	notes.CharLimit = 0
	notes.MaxHeight = 0
	notes.ShowLineNumbers = false
	notes.SetWidth(70)
	notes.SetHeight(6)

	f := &DocumentForm{
		template: tmpl,
		titleIn:  titleIn,
		authorIn: authorIn,
		slotIns:  slotIns,
		notes:    notes,
	}

	if doc != nil {
		f.prefill(doc)
	}
	return f
}

// prefill loads an existing document's values into the form for editing
func (f *DocumentForm) prefill(doc *models.Document) {
	f.titleIn.SetValue(doc.Title)
	f.authorIn.SetValue(doc.Meta.Author)
	f.notes.SetValue(doc.Content)

	if f.template == nil {
		return
	}
	for i, slot := range f.template.Slots {
		value, ok := doc.Fields[slot.Name]
		if !ok {
			continue
		}
		f.slotIns[i].SetValue(fieldToInput(value))
	}
}

// slotPlaceholder describes the expected value for a slot input
func slotPlaceholder(slot models.Slot) string {
	var hint string
	switch slot.Type {
	case models.SlotNumber:
		hint = "number"
	case models.SlotBoolean:
		hint = "true/false"
	case models.SlotStringList:
		hint = "comma-separated list"
	default:
		hint = "text"
	}
	if slot.Example != "" {
		hint += ", e.g. " + slot.Example
	}
	if !slot.Required {
		hint += " (optional)"
	}
	return hint
}

// fieldToInput formats a stored field value for editing
func fieldToInput(value any) string {
	switch v := value.(type) {
	case []string:
		return strings.Join(v, ", ")
	case []any:
		parts := make([]string, len(v))
		for i, elem := range v {
			parts[i] = fmt.Sprintf("%v", elem)
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (f *DocumentForm) fieldCount() int {
	// title + author + slots + notes
	return 2 + len(f.slotIns) + 1
}

func (f *DocumentForm) notesField() int {
	return formFirstSlotField + len(f.slotIns)
}

// Update handles form input
func (f *DocumentForm) Update(msg tea.Msg) tea.Cmd {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "tab":
			f.nextField()
			return nil
		case "shift+tab":
			f.prevField()
			return nil
		case "ctrl+s":
			f.submitted = true
			return nil
		case "esc":
			f.cancelled = true
			return nil
		case "enter", "down":
			if f.focused != f.notesField() {
				f.nextField()
				return nil
			}
		case "up":
			if f.focused != f.notesField() {
				f.prevField()
				return nil
			}
		}
	}

	var cmd tea.Cmd
	switch {
	case f.focused == formTitleField:
		f.titleIn, cmd = f.titleIn.Update(msg)
	case f.focused == formAuthorField:
		f.authorIn, cmd = f.authorIn.Update(msg)
	case f.focused == f.notesField():
		f.notes, cmd = f.notes.Update(msg)
	default:
		idx := f.focused - formFirstSlotField
		f.slotIns[idx], cmd = f.slotIns[idx].Update(msg)
	}
	return cmd
}

func (f *DocumentForm) nextField() {
	f.blurAll()
	f.focused = (f.focused + 1) % f.fieldCount()
	f.focusCurrent()
}

func (f *DocumentForm) prevField() {
	f.blurAll()
	f.focused--
	if f.focused < 0 {
		f.focused = f.fieldCount() - 1
	}
	f.focusCurrent()
}

func (f *DocumentForm) blurAll() {
	f.titleIn.Blur()
	f.authorIn.Blur()
	for i := range f.slotIns {
		f.slotIns[i].Blur()
	}
	f.notes.Blur()
}

func (f *DocumentForm) focusCurrent() {
	switch {
	case f.focused == formTitleField:
		f.titleIn.Focus()
	case f.focused == formAuthorField:
		f.authorIn.Focus()
	case f.focused == f.notesField():
		f.notes.Focus()
	default:
		f.slotIns[f.focused-formFirstSlotField].Focus()
	}
}

// Submitted reports whether the form was submitted with ctrl+s
func (f *DocumentForm) Submitted() bool { return f.submitted }

// Cancelled reports whether the form was abandoned with esc
func (f *DocumentForm) Cancelled() bool { return f.cancelled }

// Title returns the entered title
func (f *DocumentForm) Title() string { return strings.TrimSpace(f.titleIn.Value()) }

// Author returns the entered author
func (f *DocumentForm) Author() string { return strings.TrimSpace(f.authorIn.Value()) }

// Notes returns the free-form markdown body
func (f *DocumentForm) Notes() string { return f.notes.Value() }

// SlotValues returns the raw entered value per slot name. Empty inputs are
// omitted so optional slots stay unset.
func (f *DocumentForm) SlotValues() map[string]string {
	values := make(map[string]string)
	if f.template == nil {
		return values
	}
	for i, slot := range f.template.Slots {
		raw := strings.TrimSpace(f.slotIns[i].Value())
		if raw == "" {
			continue
		}
		values[slot.Name] = raw
	}
	return values
}

// View renders the form
func (f *DocumentForm) View() string {
	var b strings.Builder

	title := "New Document"
	if f.template != nil {
		title = fmt.Sprintf("New %s Document", f.template.DisplayName)
	}
	b.WriteString(CreateHeader(title))
	b.WriteString("\n\n")

	b.WriteString(StyleFormLabel.Render("Title"))
	b.WriteString("\n")
	b.WriteString(f.titleIn.View())
	b.WriteString("\n\n")

	b.WriteString(StyleFormLabel.Render("Author"))
	b.WriteString("\n")
	b.WriteString(f.authorIn.View())
	b.WriteString("\n\n")

	if f.template != nil {
		for i, slot := range f.template.Slots {
			label := slot.Name
			if slot.Required {
				label += " *"
			}
			b.WriteString(StyleFormLabel.Render(label))
			b.WriteString(StyleTextDim.Render("  " + string(slot.Type)))
			b.WriteString("\n")
			b.WriteString(f.slotIns[i].View())
			if slot.Description != "" {
				b.WriteString("\n")
				b.WriteString(StyleFormHelp.Render(slot.Description))
			}
			b.WriteString("\n\n")
		}
	}

	b.WriteString(StyleFormLabel.Render("Notes"))
	b.WriteString("\n")
	b.WriteString(f.notes.View())
	b.WriteString("\n\n")

	b.WriteString(StyleTextDim.Render("tab/shift+tab navigate • ctrl+s save • esc cancel"))
	return b.String()
}
