// Package cli provides the headless command-line interface. Commands go
// through the service layer; nothing here touches storage directly.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dpshade/pocket-doc/internal/clipboard"
	apperrors "github.com/dpshade/pocket-doc/internal/errors"
	"github.com/dpshade/pocket-doc/internal/models"
	"github.com/dpshade/pocket-doc/internal/renderer"
	"github.com/dpshade/pocket-doc/internal/service"
)

// CLI provides headless command-line interface functionality
type CLI struct {
	service      *service.Service
	errorHandler *apperrors.CLIErrorHandler
}

// NewCLI creates a new CLI instance
func NewCLI(svc *service.Service) *CLI {
	return &CLI{
		service:      svc,
		errorHandler: apperrors.NewCLIErrorHandler(os.Getenv("VERBOSE") == "true"),
	}
}

// ExecuteCommand dispatches a command with its arguments
func (c *CLI) ExecuteCommand(args []string) error {
	if len(args) == 0 {
		return c.printUsage()
	}

	command := args[0]
	commandArgs := args[1:]

	var err error
	switch command {
	case "list", "ls":
		err = c.listDocuments(commandArgs)
	case "search":
		err = c.searchDocuments(commandArgs)
	case "get", "show":
		err = c.showDocument(commandArgs)
	case "create", "new":
		err = c.createDocument(commandArgs)
	case "set":
		err = c.setField(commandArgs)
	case "unset":
		err = c.unsetField(commandArgs)
	case "validate":
		err = c.validateDocument(commandArgs)
	case "approve":
		err = c.approveDocument(commandArgs)
	case "finalize":
		err = c.finalizeDocument(commandArgs)
	case "render":
		err = c.renderDocument(commandArgs)
	case "archive":
		err = c.archiveDocument(commandArgs)
	case "delete", "rm":
		err = c.deleteDocument(commandArgs)
	case "templates":
		err = c.listTemplates(commandArgs)
	case "template":
		err = c.handleTemplate(commandArgs)
	case "help":
		err = c.printUsage()
	default:
		err = apperrors.CommandNotFoundError(command)
	}

	if err != nil {
		return c.errorHandler.HandleError(err)
	}
	return nil
}

// parseFlag extracts the value following a flag from an argument list
func parseFlag(args []string, names ...string) string {
	for i, arg := range args {
		for _, name := range names {
			if arg == name && i+1 < len(args) {
				return args[i+1]
			}
		}
	}
	return ""
}

func hasFlag(args []string, names ...string) bool {
	for _, arg := range args {
		for _, name := range names {
			if arg == name {
				return true
			}
		}
	}
	return false
}

// listDocuments lists all documents
func (c *CLI) listDocuments(args []string) error {
	format := parseFlag(args, "--format", "-f")

	var docs []*models.Document
	var err error
	if hasFlag(args, "--archived", "-a") {
		docs, err = c.service.ListArchivedDocuments()
	} else {
		docs, err = c.service.ListDocuments()
	}
	if err != nil {
		return err
	}

	return c.formatOutput(docs, format)
}

// searchDocuments performs fuzzy search over document titles
func (c *CLI) searchDocuments(args []string) error {
	if len(args) == 0 {
		return apperrors.InvalidCommandError("search", "requires a query")
	}
	format := parseFlag(args, "--format", "-f")

	var queryParts []string
	for i := 0; i < len(args); i++ {
		if args[i] == "--format" || args[i] == "-f" {
			i++
			continue
		}
		queryParts = append(queryParts, args[i])
	}

	docs, err := c.service.SearchDocuments(strings.Join(queryParts, " "))
	if err != nil {
		return err
	}
	return c.formatOutput(docs, format)
}

// showDocument displays a specific document
func (c *CLI) showDocument(args []string) error {
	if len(args) == 0 {
		return apperrors.InvalidCommandError("show", "requires a document ID")
	}

	doc, err := c.service.GetDocument(args[0])
	if err != nil {
		return err
	}
	return c.formatSingleDocument(doc, parseFlag(args[1:], "--format", "-f"))
}

// createDocument creates a new document
func (c *CLI) createDocument(args []string) error {
	title := parseFlag(args, "--title")
	if title == "" && len(args) > 0 && !strings.HasPrefix(args[0], "--") {
		title = args[0]
	}
	if title == "" {
		return apperrors.InvalidCommandError("create", "requires a title")
	}

	templateID := parseFlag(args, "--template")
	author := parseFlag(args, "--author")

	doc, err := c.service.CreateDocument(templateID, title, author)
	if err != nil {
		return err
	}

	fmt.Printf("Created document %s\n", doc.ID)
	if templateID != "" {
		tmpl, err := c.service.GetTemplate(templateID)
		if err == nil && len(tmpl.RequiredSlots()) > 0 {
			fmt.Printf("Required slots: %s\n", strings.Join(tmpl.RequiredSlots(), ", "))
		}
	}
	return nil
}

// setField sets a field value on a document
func (c *CLI) setField(args []string) error {
	if len(args) < 3 {
		return apperrors.InvalidCommandError("set", "usage: set <doc-id> <field> <value>")
	}

	doc, err := c.service.SetField(args[0], args[1], strings.Join(args[2:], " "))
	if err != nil {
		return err
	}
	fmt.Printf("Set %s on %s\n", args[1], doc.ID)
	return nil
}

// unsetField removes a field from a document
func (c *CLI) unsetField(args []string) error {
	if len(args) < 2 {
		return apperrors.InvalidCommandError("unset", "usage: unset <doc-id> <field>")
	}

	doc, err := c.service.UnsetField(args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Printf("Removed %s from %s\n", args[1], doc.ID)
	return nil
}

// validateDocument runs validation and prints the report
func (c *CLI) validateDocument(args []string) error {
	if len(args) == 0 {
		return apperrors.InvalidCommandError("validate", "requires a document ID")
	}

	result, err := c.service.Validate(args[0])
	if err != nil {
		return err
	}

	format := parseFlag(args[1:], "--format", "-f")
	if format == "json" {
		return json.NewEncoder(os.Stdout).Encode(result)
	}

	c.printResult(os.Stdout, result)
	return nil
}

// printResult renders a validation report for the terminal
func (c *CLI) printResult(w io.Writer, result *models.Result) {
	if result.Valid() {
		fmt.Fprintln(w, "✓ valid")
	} else {
		fmt.Fprintln(w, "✗ invalid")
	}
	for _, issue := range result.Missing {
		fmt.Fprintf(w, "  missing  %s: %s\n", issue.FieldName, issue.Message)
	}
	for _, issue := range result.Errors {
		fmt.Fprintf(w, "  error    %s: %s\n", issue.FieldName, issue.Message)
	}
	for _, issue := range result.Warnings {
		fmt.Fprintf(w, "  warning  %s: %s\n", issue.FieldName, issue.Message)
	}
}

// approveDocument validates and marks a document as validated
func (c *CLI) approveDocument(args []string) error {
	if len(args) == 0 {
		return apperrors.InvalidCommandError("approve", "requires a document ID")
	}

	result, err := c.service.MarkValidated(args[0])
	if err != nil {
		if result != nil {
			c.printResult(os.Stderr, result)
		}
		return err
	}
	fmt.Printf("Document %s marked as validated\n", args[0])
	return nil
}

// finalizeDocument marks a document as final
func (c *CLI) finalizeDocument(args []string) error {
	if len(args) == 0 {
		return apperrors.InvalidCommandError("finalize", "requires a document ID")
	}

	doc, err := c.service.Finalize(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Document %s marked as final\n", doc.ID)
	return nil
}

// renderDocument renders a document through its template
func (c *CLI) renderDocument(args []string) error {
	if len(args) == 0 {
		return apperrors.InvalidCommandError("render", "requires a document ID")
	}

	doc, err := c.service.GetDocument(args[0])
	if err != nil {
		return err
	}

	var tmpl *models.Template
	if doc.TemplateID != "" {
		tmpl, err = c.service.GetTemplate(doc.TemplateID)
		if err != nil {
			return err
		}
	}

	r := renderer.NewRenderer(doc, tmpl)

	var out string
	if parseFlag(args[1:], "--format", "-f") == "json" {
		out, err = r.RenderJSON()
	} else {
		out, err = r.RenderMarkdown()
	}
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeCommandFailed, "Failed to render document")
	}

	if hasFlag(args, "--copy", "-c") {
		msg, err := clipboard.CopyWithFallback(out)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeCommandFailed, "Failed to copy to clipboard")
		}
		fmt.Println(msg)
		return nil
	}

	fmt.Println(out)
	return nil
}

// archiveDocument moves a document to the archive
func (c *CLI) archiveDocument(args []string) error {
	if len(args) == 0 {
		return apperrors.InvalidCommandError("archive", "requires a document ID")
	}
	if err := c.service.ArchiveDocument(args[0]); err != nil {
		return err
	}
	fmt.Printf("Archived document %s\n", args[0])
	return nil
}

// deleteDocument removes a document
func (c *CLI) deleteDocument(args []string) error {
	if len(args) == 0 {
		return apperrors.InvalidCommandError("delete", "requires a document ID")
	}
	if err := c.service.DeleteDocument(args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted document %s\n", args[0])
	return nil
}

// listTemplates lists all templates
func (c *CLI) listTemplates(args []string) error {
	templates, err := c.service.ListTemplates()
	if err != nil {
		return err
	}

	if parseFlag(args, "--format", "-f") == "json" {
		return json.NewEncoder(os.Stdout).Encode(templates)
	}

	for _, tmpl := range templates {
		fmt.Printf("%s - %s (v%s)\n", tmpl.ID, tmpl.DisplayName, tmpl.Version)
		for _, slot := range tmpl.Slots {
			marker := "optional"
			if slot.Required {
				marker = "required"
			}
			fmt.Printf("  %-20s %-16s %s\n", slot.Name, slot.Type, marker)
		}
		fmt.Println()
	}
	return nil
}

// handleTemplate handles template subcommands
func (c *CLI) handleTemplate(args []string) error {
	if len(args) == 0 {
		return apperrors.InvalidCommandError("template", "usage: template <new|show|delete> ...")
	}

	switch args[0] {
	case "new", "create":
		return c.createTemplate(args[1:])
	case "show", "get":
		return c.showTemplate(args[1:])
	case "delete", "rm":
		return c.deleteTemplate(args[1:])
	default:
		return apperrors.InvalidCommandError("template", fmt.Sprintf("unknown subcommand '%s'", args[0]))
	}
}

// createTemplate creates a template. Slots are declared as
// name:type[:optional] specs, e.g. --slot client:string --slot cc:list_of_string:optional
func (c *CLI) createTemplate(args []string) error {
	if len(args) == 0 {
		return apperrors.InvalidCommandError("template new", "requires a template ID")
	}

	id := args[0]
	name := parseFlag(args, "--name")
	if name == "" {
		name = id
	}
	version := parseFlag(args, "--version")
	if version == "" {
		version = "1.0.0"
	}

	var slots []models.Slot
	for i := 1; i < len(args); i++ {
		if args[i] != "--slot" || i+1 >= len(args) {
			continue
		}
		slot, err := parseSlotSpec(args[i+1])
		if err != nil {
			return apperrors.InvalidCommandError("template new", err.Error())
		}
		slots = append(slots, slot)
		i++
	}

	content := parseFlag(args, "--content")
	if hasFlag(args, "--stdin") {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeCommandFailed, "Failed to read stdin")
		}
		content = string(data)
	}

	tmpl, err := c.service.CreateTemplate(id, name, version, slots, content)
	if err != nil {
		return err
	}
	fmt.Printf("Created template %s with %d slots\n", tmpl.ID, len(tmpl.Slots))
	return nil
}

// parseSlotSpec parses a name:type[:optional] slot declaration
func parseSlotSpec(spec string) (models.Slot, error) {
	parts := strings.Split(spec, ":")
	if parts[0] == "" {
		return models.Slot{}, fmt.Errorf("slot spec '%s' has no name", spec)
	}

	slot := models.Slot{Name: parts[0], Required: true, Type: models.SlotString}
	if len(parts) > 1 && parts[1] != "" {
		switch t := models.SlotType(parts[1]); t {
		case models.SlotString, models.SlotNumber, models.SlotBoolean, models.SlotStringList:
			slot.Type = t
		default:
			return models.Slot{}, fmt.Errorf("unknown slot type '%s'", parts[1])
		}
	}
	if len(parts) > 2 {
		if parts[2] != "optional" {
			return models.Slot{}, fmt.Errorf("slot spec '%s': expected 'optional', got '%s'", spec, parts[2])
		}
		slot.Required = false
	}
	return slot, nil
}

// showTemplate displays a specific template
func (c *CLI) showTemplate(args []string) error {
	if len(args) == 0 {
		return apperrors.InvalidCommandError("template show", "requires a template ID")
	}

	tmpl, err := c.service.GetTemplate(args[0])
	if err != nil {
		return err
	}

	if parseFlag(args[1:], "--format", "-f") == "json" {
		return json.NewEncoder(os.Stdout).Encode(tmpl)
	}

	fmt.Printf("ID: %s\n", tmpl.ID)
	fmt.Printf("Name: %s\n", tmpl.DisplayName)
	fmt.Printf("Version: %s\n", tmpl.Version)
	fmt.Printf("Created: %s\n", tmpl.Meta.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Printf("Updated: %s\n", tmpl.Meta.UpdatedAt.Format("2006-01-02 15:04"))
	fmt.Println("Slots:")
	for _, slot := range tmpl.Slots {
		marker := "optional"
		if slot.Required {
			marker = "required"
		}
		fmt.Printf("  %-20s %-16s %s", slot.Name, slot.Type, marker)
		if slot.Description != "" {
			fmt.Printf("  %s", slot.Description)
		}
		fmt.Println()
	}
	if tmpl.Content != "" {
		fmt.Printf("\nContent:\n%s\n", tmpl.Content)
	}
	return nil
}

// deleteTemplate removes a template
func (c *CLI) deleteTemplate(args []string) error {
	if len(args) == 0 {
		return apperrors.InvalidCommandError("template delete", "requires a template ID")
	}
	if err := c.service.DeleteTemplate(args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted template %s\n", args[0])
	return nil
}

// formatOutput formats a document list for output
func (c *CLI) formatOutput(docs []*models.Document, format string) error {
	switch format {
	case "json":
		return json.NewEncoder(os.Stdout).Encode(docs)
	case "ids":
		for _, d := range docs {
			fmt.Println(d.ID)
		}
	case "table":
		fmt.Printf("%-38s %-30s %-10s %s\n", "ID", "Title", "Status", "Updated")
		fmt.Println(strings.Repeat("-", 90))
		for _, d := range docs {
			title := d.Title
			if len(title) > 30 {
				title = title[:27] + "..."
			}
			fmt.Printf("%-38s %-30s %-10s %s\n",
				d.ID, title, d.Status, d.Meta.UpdatedAt.Format("2006-01-02"))
		}
	default:
		for _, d := range docs {
			fmt.Printf("%s - %s\n", d.ID, d.Title)
			fmt.Printf("  %s\n\n", d.Summary())
		}
	}
	return nil
}

// formatSingleDocument formats a single document for output
func (c *CLI) formatSingleDocument(doc *models.Document, format string) error {
	switch format {
	case "json":
		return json.NewEncoder(os.Stdout).Encode(doc)
	default:
		fmt.Printf("ID: %s\n", doc.ID)
		fmt.Printf("Title: %s\n", doc.Title)
		fmt.Printf("Status: %s\n", doc.Status)
		if doc.TemplateID != "" {
			fmt.Printf("Template: %s\n", doc.TemplateID)
		}
		if doc.Meta.Author != "" {
			fmt.Printf("Author: %s\n", doc.Meta.Author)
		}
		fmt.Printf("Created: %s\n", doc.Meta.CreatedAt.Format("2006-01-02 15:04"))
		fmt.Printf("Updated: %s\n", doc.Meta.UpdatedAt.Format("2006-01-02 15:04"))
		if len(doc.Fields) > 0 {
			fmt.Println("Fields:")
			for _, name := range sortedFieldNames(doc.Fields) {
				fmt.Printf("  %s: %v\n", name, doc.Fields[name])
			}
		}
		if doc.Content != "" {
			fmt.Printf("\nNotes:\n%s\n", doc.Content)
		}
	}
	return nil
}

func sortedFieldNames(fields map[string]any) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	// Stable output for scripts and tests
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j] < names[j-1]; j-- {
			names[j], names[j-1] = names[j-1], names[j]
		}
	}
	return names
}

func (c *CLI) printUsage() error {
	fmt.Println(`pocket-doc - Template-driven document workflow

DOCUMENT COMMANDS:
    list, ls [--archived] [--format json|table|ids]
    search <query> [--format ...]
    show <doc-id> [--format json]
    create <title> [--template id] [--author name]
    set <doc-id> <field> <value>
    unset <doc-id> <field>
    validate <doc-id> [--format json]
    approve <doc-id>            Validate and mark as validated
    finalize <doc-id>           Mark as final
    render <doc-id> [--format json] [--copy]
    archive <doc-id>
    delete, rm <doc-id>

TEMPLATE COMMANDS:
    templates [--format json]
    template new <id> [--name n] [--version v] [--slot name:type[:optional]]... [--content md | --stdin]
    template show <id> [--format json]
    template delete <id>

Slot types: string, number, boolean, list_of_string`)
	return nil
}
