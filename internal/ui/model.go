// Package ui implements the interactive terminal interface. It is a thin
// front end over the service layer: every state change goes through
// service calls and the model re-reads from storage afterwards.
package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/dpshade/pocket-doc/internal/clipboard"
	apperrors "github.com/dpshade/pocket-doc/internal/errors"
	"github.com/dpshade/pocket-doc/internal/models"
	"github.com/dpshade/pocket-doc/internal/renderer"
	"github.com/dpshade/pocket-doc/internal/service"
)

// createGlamourRenderer creates a glamour renderer matched to the terminal
func createGlamourRenderer(wordWrap int) (*glamour.TermRenderer, error) {
	if style := os.Getenv("GLAMOUR_STYLE"); style != "" {
		return glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(wordWrap),
		)
	}

	profile := termenv.ColorProfile()

	var styleOption glamour.TermRendererOption
	if lipgloss.HasDarkBackground() {
		styleOption = glamour.WithStandardStyle("dark")
	} else {
		styleOption = glamour.WithStandardStyle("light")
	}
	if profile == termenv.Ascii {
		styleOption = glamour.WithAutoStyle()
	}

	return glamour.NewTermRenderer(
		styleOption,
		glamour.WithColorProfile(profile),
		glamour.WithWordWrap(wordWrap),
	)
}

// loadCompleteMsg carries the library contents after a (re)load
type loadCompleteMsg struct {
	documents []*models.Document
	templates []*models.Template
	err       error
}

// loadLibraryCmd loads documents and templates
func loadLibraryCmd(svc *service.Service) tea.Cmd {
	return func() tea.Msg {
		documents, docErr := svc.ListDocuments()
		if docErr != nil {
			documents = []*models.Document{}
		}
		templates, tmplErr := svc.ListTemplates()
		if tmplErr != nil {
			templates = []*models.Template{}
		}

		var err error
		if docErr != nil {
			err = docErr
		} else if tmplErr != nil {
			err = tmplErr
		}

		return loadCompleteMsg{documents: documents, templates: templates, err: err}
	}
}

// ViewMode represents the current view in the TUI
type ViewMode int

const (
	ViewLibrary ViewMode = iota
	ViewDocumentDetail
	ViewTemplatePicker
	ViewDocumentForm
	ViewTemplateList
)

// docItem adapts a Document to the bubbles list.Item interface
type docItem struct {
	doc *models.Document
}

func (i docItem) Title() string       { return i.doc.Title }
func (i docItem) Description() string { return i.doc.Summary() }
func (i docItem) FilterValue() string { return i.doc.Title + " " + i.doc.ID }

// templateItem adapts a Template for the template picker list
type templateItem struct {
	tmpl *models.Template // nil means "no template"
}

func (i templateItem) Title() string {
	if i.tmpl == nil {
		return "No template"
	}
	return i.tmpl.DisplayName
}

func (i templateItem) Description() string {
	if i.tmpl == nil {
		return "Free-form document without slot checking"
	}
	return i.tmpl.Description()
}

func (i templateItem) FilterValue() string {
	if i.tmpl == nil {
		return "no template"
	}
	return i.tmpl.FilterValue()
}

// Model represents the TUI application state
type Model struct {
	service  *service.Service
	viewMode ViewMode

	docList      list.Model
	templateList list.Model
	viewport     viewport.Model

	documents []*models.Document
	templates []*models.Template
	loading   bool

	selectedDoc      *models.Document
	selectedTemplate *models.Template

	form     *DocumentForm
	editMode bool

	deleteConfirm bool

	lastResult      *models.Result
	renderedContent string
	glamourRenderer *glamour.TermRenderer

	width  int
	height int

	statusMsg string
	err       error

	errHandler *apperrors.TUIErrorHandler
}

// fail logs the error and formats it for the status line
func (m *Model) fail(prefix string, err error) {
	m.errHandler.HandleError(err)
	m.statusMsg = prefix + ": " + m.errHandler.FormatError(err)
}

// NewModel creates the initial TUI model
func NewModel(svc *service.Service) Model {
	initializeColors()

	delegate := list.NewDefaultDelegate()
	docList := list.New([]list.Item{}, delegate, 0, 0)
	docList.Title = "Documents"
	docList.SetShowStatusBar(false)

	templateList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	templateList.Title = "Templates"
	templateList.SetShowStatusBar(false)

	glamourRenderer, _ := createGlamourRenderer(80)

	return Model{
		service:         svc,
		viewMode:        ViewLibrary,
		docList:         docList,
		templateList:    templateList,
		viewport:        viewport.New(0, 0),
		loading:         true,
		glamourRenderer: glamourRenderer,
		errHandler:      apperrors.NewTUIErrorHandler(false),
	}
}

// Init kicks off the initial library load
func (m Model) Init() tea.Cmd {
	return loadLibraryCmd(m.service)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.docList.SetSize(msg.Width-4, msg.Height-4)
		m.templateList.SetSize(msg.Width-4, msg.Height-4)
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = msg.Height - 6
		return m, nil

	case loadCompleteMsg:
		m.loading = false
		m.err = msg.err
		m.documents = msg.documents
		m.templates = msg.templates
		m.refreshLists()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateActiveComponent(msg)
}

// refreshLists rebuilds the list items after a reload
func (m *Model) refreshLists() {
	docItems := make([]list.Item, len(m.documents))
	for i, doc := range m.documents {
		docItems[i] = docItem{doc: doc}
	}
	m.docList.SetItems(docItems)

	tmplItems := make([]list.Item, len(m.templates))
	for i, tmpl := range m.templates {
		tmplItems[i] = templateItem{tmpl: tmpl}
	}
	m.templateList.SetItems(tmplItems)
}

// pickerItems returns the template picker contents, with a leading
// "no template" entry
func (m *Model) pickerItems() []list.Item {
	items := make([]list.Item, 0, len(m.templates)+1)
	items = append(items, templateItem{tmpl: nil})
	for _, tmpl := range m.templates {
		items = append(items, templateItem{tmpl: tmpl})
	}
	return items
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Forms swallow nearly all keys
	if m.viewMode == ViewDocumentForm && m.form != nil {
		cmd := m.form.Update(msg)
		if m.form.Cancelled() {
			m.form = nil
			m.viewMode = ViewLibrary
			return m, nil
		}
		if m.form.Submitted() {
			return m.submitForm()
		}
		return m, cmd
	}

	// Let the list's filter input consume keys while filtering
	if m.viewMode == ViewLibrary && m.docList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.docList, cmd = m.docList.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "ctrl+c", "q":
		if m.viewMode == ViewLibrary {
			return m, tea.Quit
		}
		m.backToLibrary()
		return m, nil
	case "esc":
		if m.deleteConfirm {
			m.deleteConfirm = false
			return m, nil
		}
		if m.viewMode != ViewLibrary {
			m.backToLibrary()
			return m, nil
		}
	}

	switch m.viewMode {
	case ViewLibrary:
		return m.handleLibraryKey(msg)
	case ViewDocumentDetail:
		return m.handleDetailKey(msg)
	case ViewTemplatePicker:
		return m.handlePickerKey(msg)
	case ViewTemplateList:
		var cmd tea.Cmd
		m.templateList, cmd = m.templateList.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) backToLibrary() {
	m.viewMode = ViewLibrary
	m.selectedDoc = nil
	m.lastResult = nil
	m.renderedContent = ""
	m.deleteConfirm = false
	m.statusMsg = ""
}

func (m Model) handleLibraryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if item, ok := m.docList.SelectedItem().(docItem); ok {
			return m.openDocument(item.doc)
		}
	case "n":
		m.viewMode = ViewTemplatePicker
		m.templateList.SetItems(m.pickerItems())
		m.templateList.Title = "Choose a template"
		return m, nil
	case "t":
		m.viewMode = ViewTemplateList
		m.refreshLists()
		m.templateList.Title = "Templates"
		return m, nil
	case "d":
		if item, ok := m.docList.SelectedItem().(docItem); ok {
			if !m.deleteConfirm {
				m.deleteConfirm = true
				m.statusMsg = fmt.Sprintf("Delete '%s'? Press d again to confirm, esc to cancel", item.doc.Title)
				return m, nil
			}
			m.deleteConfirm = false
			if err := m.service.DeleteDocument(item.doc.ID); err != nil {
				m.fail("Delete failed", err)
				return m, nil
			}
			m.statusMsg = "Deleted " + item.doc.Title
			return m, loadLibraryCmd(m.service)
		}
	case "A":
		if item, ok := m.docList.SelectedItem().(docItem); ok {
			if err := m.service.ArchiveDocument(item.doc.ID); err != nil {
				m.fail("Archive failed", err)
				return m, nil
			}
			m.statusMsg = "Archived " + item.doc.Title
			return m, loadLibraryCmd(m.service)
		}
	}

	var cmd tea.Cmd
	m.docList, cmd = m.docList.Update(msg)
	return m, cmd
}

// openDocument loads a document into the detail view, rendering it
// through its template and running validation when one is attached
func (m Model) openDocument(doc *models.Document) (tea.Model, tea.Cmd) {
	loaded, err := m.service.GetDocument(doc.ID)
	if err != nil {
		m.fail("Failed to load document", err)
		return m, nil
	}
	m.selectedDoc = loaded
	m.lastResult = nil
	m.selectedTemplate = nil

	if loaded.TemplateID != "" {
		tmpl, err := m.service.GetTemplate(loaded.TemplateID)
		if err == nil {
			m.selectedTemplate = tmpl
		}
		if result, err := m.service.Validate(loaded.ID); err == nil {
			m.lastResult = result
		}
	}

	markdown, err := renderer.NewRenderer(loaded, m.selectedTemplate).RenderMarkdown()
	if err != nil {
		markdown = loaded.Content
	}
	m.renderedContent = markdown

	display := markdown
	if m.glamourRenderer != nil {
		if pretty, err := m.glamourRenderer.Render(markdown); err == nil {
			display = pretty
		}
	}
	m.viewport.SetContent(display)
	m.viewport.GotoTop()

	m.viewMode = ViewDocumentDetail
	return m, nil
}

func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	doc := m.selectedDoc
	if doc == nil {
		m.backToLibrary()
		return m, nil
	}

	switch msg.String() {
	case "e":
		m.form = NewDocumentForm(m.selectedTemplate, doc)
		m.editMode = true
		m.viewMode = ViewDocumentForm
		return m, nil
	case "v":
		if doc.TemplateID == "" {
			m.statusMsg = "Document has no template to validate against"
			return m, nil
		}
		result, err := m.service.Validate(doc.ID)
		if err != nil {
			m.fail("Validation failed", err)
			return m, nil
		}
		m.lastResult = result
		if result.Valid() {
			m.statusMsg = "Document is valid"
		} else {
			m.statusMsg = fmt.Sprintf("%d missing, %d errors, %d warnings",
				len(result.Missing), len(result.Errors), len(result.Warnings))
		}
		return m, nil
	case "a":
		result, err := m.service.MarkValidated(doc.ID)
		m.lastResult = result
		if err != nil {
			m.fail("Not validated", err)
			return m, nil
		}
		m.statusMsg = "Marked as validated"
		return m.reopenSelected()
	case "f":
		if _, err := m.service.Finalize(doc.ID); err != nil {
			m.fail("Finalize failed", err)
			return m, nil
		}
		m.statusMsg = "Marked as final"
		return m.reopenSelected()
	case "c", "y":
		msg, err := clipboard.CopyWithFallback(m.renderedContent)
		if err != nil {
			m.fail("Copy failed", err)
		} else {
			m.statusMsg = msg
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// reopenSelected reloads the current document so the detail view shows
// the post-mutation state
func (m Model) reopenSelected() (tea.Model, tea.Cmd) {
	doc := m.selectedDoc
	model, _ := m.openDocument(doc)
	next := model.(Model)
	return next, loadLibraryCmd(next.service)
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "enter" {
		if item, ok := m.templateList.SelectedItem().(templateItem); ok {
			m.selectedTemplate = item.tmpl
			m.form = NewDocumentForm(item.tmpl, nil)
			m.editMode = false
			m.viewMode = ViewDocumentForm
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.templateList, cmd = m.templateList.Update(msg)
	return m, cmd
}

// submitForm persists the form contents through the service layer
func (m Model) submitForm() (tea.Model, tea.Cmd) {
	form := m.form
	m.form = nil

	if form.Title() == "" {
		m.statusMsg = "Title is required"
		m.viewMode = ViewLibrary
		return m, nil
	}

	var doc *models.Document
	var err error
	if m.editMode && m.selectedDoc != nil {
		doc = m.selectedDoc
		doc.Title = form.Title()
		doc.Meta.Author = form.Author()
	} else {
		templateID := ""
		if m.selectedTemplate != nil {
			templateID = m.selectedTemplate.ID
		}
		doc, err = m.service.CreateDocument(templateID, form.Title(), form.Author())
		if err != nil {
			m.fail("Create failed", err)
			m.viewMode = ViewLibrary
			return m, nil
		}
	}

	doc.Content = form.Notes()
	doc.Touch()
	if err := m.service.SaveDocument(doc); err != nil {
		m.fail("Save failed", err)
		m.viewMode = ViewLibrary
		return m, loadLibraryCmd(m.service)
	}

	// Slot values go through SetField so they get coerced per slot type
	for name, raw := range form.SlotValues() {
		if _, err := m.service.SetField(doc.ID, name, raw); err != nil {
			m.statusMsg = fmt.Sprintf("Field %s: %v", name, err)
		}
	}

	if m.statusMsg == "" {
		m.statusMsg = "Saved " + doc.Title
	}
	m.editMode = false
	m.viewMode = ViewLibrary
	return m, loadLibraryCmd(m.service)
}

func (m Model) updateActiveComponent(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.viewMode {
	case ViewLibrary:
		m.docList, cmd = m.docList.Update(msg)
	case ViewDocumentDetail:
		m.viewport, cmd = m.viewport.Update(msg)
	case ViewTemplatePicker, ViewTemplateList:
		m.templateList, cmd = m.templateList.Update(msg)
	}
	return m, cmd
}

// View renders the current view
func (m Model) View() string {
	if m.loading {
		return AddMainPadding(StyleTextMuted.Render("Loading library..."))
	}
	if m.err != nil {
		return AddMainPadding(StyleError.Render("Error: " + m.err.Error()))
	}

	switch m.viewMode {
	case ViewDocumentDetail:
		return m.detailView()
	case ViewDocumentForm:
		if m.form != nil {
			return AddMainPadding(m.form.View())
		}
	case ViewTemplatePicker, ViewTemplateList:
		return AddMainPadding(JoinLines(
			m.templateList.View(),
			m.statusLine(),
		))
	}

	return AddMainPadding(JoinLines(
		m.docList.View(),
		m.statusLine(),
		CreateHelp("enter open • n new • t templates • A archive • d delete • / filter • q quit", m.width),
	))
}

// detailView renders a document with its status, validation report and
// rendered body
func (m Model) detailView() string {
	doc := m.selectedDoc
	if doc == nil {
		return ""
	}

	header := CreateHeader(doc.Title) + " " + RenderStatus(string(doc.Status))
	meta := StyleTextMuted.Render(fmt.Sprintf("  %s", doc.Summary()))

	var report string
	if m.lastResult != nil {
		var b strings.Builder
		if m.lastResult.Valid() {
			b.WriteString(StyleSuccess.Render("✓ valid"))
		} else {
			b.WriteString(StyleError.Render("✗ invalid"))
		}
		for _, issue := range m.lastResult.AllIssues() {
			b.WriteString("\n  ")
			b.WriteString(RenderIssueLine(string(issue.Severity), issue.FieldName, issue.Message))
		}
		report = b.String()
	}

	return AddMainPadding(JoinLines(
		header,
		meta,
		report,
		m.viewport.View(),
		m.statusLine(),
		CreateHelp("e edit • v validate • a approve • f finalize • c copy • esc back", m.width),
	))
}

func (m Model) statusLine() string {
	if m.statusMsg == "" {
		return ""
	}
	return StyleTextMuted.Render(m.statusMsg)
}
