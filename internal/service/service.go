// Package service provides business logic for document and template
// management. It is the only layer that talks to storage; the CLI, TUI and
// HTTP interfaces all go through it.
package service

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	apperrors "github.com/dpshade/pocket-doc/internal/errors"
	"github.com/dpshade/pocket-doc/internal/models"
	"github.com/dpshade/pocket-doc/internal/storage"
	"github.com/dpshade/pocket-doc/internal/validation"
	"github.com/sahilm/fuzzy"
)

// Service provides business logic for the document workflow
type Service struct {
	storage *storage.Storage
}

// NewService creates a new service instance rooted at libraryDir
func NewService(libraryDir string) (*Service, error) {
	store, err := storage.NewStorage(libraryDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	return &Service{storage: store}, nil
}

// InitLibrary initializes a new document library
func (s *Service) InitLibrary() error {
	return s.storage.InitLibrary()
}

// BaseDir returns the library root
func (s *Service) BaseDir() string {
	return s.storage.GetBaseDir()
}

// Template operations

// CreateTemplate builds, checks and persists a new template
func (s *Service) CreateTemplate(id, displayName, version string, slots []models.Slot, content string) (*models.Template, error) {
	if _, err := s.GetTemplate(id); err == nil {
		return nil, apperrors.AlreadyExistsError(fmt.Sprintf("Template '%s'", id))
	}

	tmpl, err := models.NewTemplate(id, displayName, version, slots)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDuplicateSlot, "Invalid template definition")
	}
	tmpl.Content = content

	if err := s.storage.SaveTemplate(tmpl); err != nil {
		return nil, apperrors.StorageError("save template", err)
	}
	return tmpl, nil
}

// GetTemplate loads a template by id
func (s *Service) GetTemplate(id string) (*models.Template, error) {
	tmpl, err := s.storage.LoadTemplate(storage.TemplatePath(id))
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.NotFoundError(fmt.Sprintf("Template '%s'", id))
		}
		return nil, apperrors.StorageError("load template", err)
	}
	return tmpl, nil
}

// ListTemplates returns all templates in the library
func (s *Service) ListTemplates() ([]*models.Template, error) {
	templates, err := s.storage.ListTemplates()
	if err != nil {
		return nil, apperrors.StorageError("list templates", err)
	}
	return templates, nil
}

// SaveTemplate persists template changes and refreshes its timestamp
func (s *Service) SaveTemplate(tmpl *models.Template) error {
	tmpl.Touch()
	if err := s.storage.SaveTemplate(tmpl); err != nil {
		return apperrors.StorageError("save template", err)
	}
	return nil
}

// DeleteTemplate removes a template from the library. Documents keep their
// template reference; they simply stop validating until the id exists again.
func (s *Service) DeleteTemplate(id string) error {
	tmpl, err := s.GetTemplate(id)
	if err != nil {
		return err
	}
	if err := s.storage.DeleteTemplate(tmpl); err != nil {
		return apperrors.StorageError("delete template", err)
	}
	return nil
}

// SearchTemplates performs fuzzy search over template names and ids
func (s *Service) SearchTemplates(query string) ([]*models.Template, error) {
	templates, err := s.ListTemplates()
	if err != nil {
		return nil, err
	}
	if query == "" {
		return templates, nil
	}

	targets := make([]string, len(templates))
	for i, tmpl := range templates {
		targets[i] = tmpl.DisplayName + " " + tmpl.ID
	}

	var results []*models.Template
	for _, match := range fuzzy.Find(query, targets) {
		results = append(results, templates[match.Index])
	}
	return results, nil
}

// Document operations

// CreateDocument instantiates a document, optionally from a template. When a
// template id is given the template must exist.
func (s *Service) CreateDocument(templateID, title, author string) (*models.Document, error) {
	if templateID != "" {
		if _, err := s.GetTemplate(templateID); err != nil {
			return nil, err
		}
	}

	doc := models.NewDocument(templateID, title, author)
	if err := s.storage.SaveDocument(doc); err != nil {
		return nil, apperrors.StorageError("save document", err)
	}
	return doc, nil
}

// GetDocument loads a document by id, checking the archive as a fallback
func (s *Service) GetDocument(id string) (*models.Document, error) {
	doc, err := s.storage.LoadDocument(storage.DocumentPath(id))
	if err == nil {
		return doc, nil
	}

	doc, archiveErr := s.storage.LoadDocument(filepath.Join("archive", id+".md"))
	if archiveErr == nil {
		return doc, nil
	}

	if stderrors.Is(err, fs.ErrNotExist) {
		return nil, apperrors.NotFoundError(fmt.Sprintf("Document '%s'", id))
	}
	return nil, apperrors.StorageError("load document", err)
}

// ListDocuments returns all non-archived documents
func (s *Service) ListDocuments() ([]*models.Document, error) {
	docs, err := s.storage.ListDocuments()
	if err != nil {
		return nil, apperrors.StorageError("list documents", err)
	}
	return docs, nil
}

// ListArchivedDocuments returns all archived documents
func (s *Service) ListArchivedDocuments() ([]*models.Document, error) {
	docs, err := s.storage.ListArchivedDocuments()
	if err != nil {
		return nil, apperrors.StorageError("list archived documents", err)
	}
	return docs, nil
}

// SaveDocument persists document changes
func (s *Service) SaveDocument(doc *models.Document) error {
	if err := s.storage.SaveDocument(doc); err != nil {
		return apperrors.StorageError("save document", err)
	}
	return nil
}

// DeleteDocument removes a document from the library
func (s *Service) DeleteDocument(id string) error {
	doc, err := s.GetDocument(id)
	if err != nil {
		return err
	}
	if err := s.storage.DeleteDocument(doc); err != nil {
		return apperrors.StorageError("delete document", err)
	}
	return nil
}

// ArchiveDocument moves a document into the archive directory
func (s *Service) ArchiveDocument(id string) error {
	doc, err := s.GetDocument(id)
	if err != nil {
		return err
	}
	if strings.HasPrefix(doc.FilePath, "archive"+string(filepath.Separator)) {
		return apperrors.AlreadyExistsError(fmt.Sprintf("Archived document '%s'", id))
	}

	oldPath := filepath.Join(s.storage.GetBaseDir(), doc.FilePath)
	doc.FilePath = filepath.Join("archive", id+".md")
	doc.Touch()
	if err := s.storage.SaveDocument(doc); err != nil {
		return apperrors.StorageError("archive document", err)
	}
	if err := os.Remove(oldPath); err != nil {
		return apperrors.StorageError("remove original document", err)
	}
	return nil
}

// SetField coerces a raw text value to the slot's declared type and stores
// it on the document. Fields without a slot definition (template-less
// documents or undeclared fields) are stored as plain strings; validation
// will warn about the latter.
func (s *Service) SetField(docID, field, raw string) (*models.Document, error) {
	doc, err := s.GetDocument(docID)
	if err != nil {
		return nil, err
	}

	value := any(raw)
	if doc.TemplateID != "" {
		tmpl, err := s.GetTemplate(doc.TemplateID)
		if err != nil {
			return nil, err
		}
		if slot, ok := tmpl.SlotMap()[field]; ok {
			value, err = coerceValue(slot.Type, raw)
			if err != nil {
				return nil, apperrors.ValidationError(err.Error())
			}
		}
	}

	doc.SetField(field, value)
	if err := s.SaveDocument(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// UnsetField removes a field from the document
func (s *Service) UnsetField(docID, field string) (*models.Document, error) {
	doc, err := s.GetDocument(docID)
	if err != nil {
		return nil, err
	}
	doc.UnsetField(field)
	if err := s.SaveDocument(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Validate checks a document against its template's slot contract. Documents
// without a template reference cannot be validated.
func (s *Service) Validate(docID string) (*models.Result, error) {
	doc, err := s.GetDocument(docID)
	if err != nil {
		return nil, err
	}
	if doc.TemplateID == "" {
		return nil, apperrors.ValidationError(
			fmt.Sprintf("document '%s' has no template to validate against", docID))
	}

	tmpl, err := s.GetTemplate(doc.TemplateID)
	if err != nil {
		return nil, err
	}

	return validation.ValidateDocument(tmpl, doc)
}

// MarkValidated runs validation and, if it passes, transitions the document
// to validated. The failed result comes back with the error so callers can
// show what blocked the transition.
func (s *Service) MarkValidated(docID string) (*models.Result, error) {
	result, err := s.Validate(docID)
	if err != nil {
		return nil, err
	}
	if !result.Valid() {
		return result, apperrors.ValidationError(
			fmt.Sprintf("document '%s' failed validation (%d missing, %d errors)",
				docID, len(result.Missing), len(result.Errors)))
	}

	doc, err := s.GetDocument(docID)
	if err != nil {
		return result, err
	}
	doc.SetStatus(models.StatusValidated)
	if err := s.SaveDocument(doc); err != nil {
		return result, err
	}
	return result, nil
}

// Finalize transitions a document to final. Sign-off is an external
// decision, so no validation gate applies here.
func (s *Service) Finalize(docID string) (*models.Document, error) {
	doc, err := s.GetDocument(docID)
	if err != nil {
		return nil, err
	}
	doc.SetStatus(models.StatusFinal)
	if err := s.SaveDocument(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// SearchDocuments performs fuzzy search over document titles and ids
func (s *Service) SearchDocuments(query string) ([]*models.Document, error) {
	docs, err := s.ListDocuments()
	if err != nil {
		return nil, err
	}
	if query == "" {
		return docs, nil
	}

	targets := make([]string, len(docs))
	for i, doc := range docs {
		targets[i] = doc.Title + " " + doc.ID
	}

	var results []*models.Document
	for _, match := range fuzzy.Find(query, targets) {
		results = append(results, docs[match.Index])
	}
	return results, nil
}

// coerceValue converts raw CLI/form input to the slot's declared type
func coerceValue(slotType models.SlotType, raw string) (any, error) {
	switch slotType {
	case models.SlotNumber:
		if intVal, err := strconv.Atoi(raw); err == nil {
			return intVal, nil
		}
		if floatVal, err := strconv.ParseFloat(raw, 64); err == nil {
			return floatVal, nil
		}
		return nil, fmt.Errorf("'%s' is not a number", raw)

	case models.SlotBoolean:
		boolVal, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("'%s' is not a boolean", raw)
		}
		return boolVal, nil

	case models.SlotStringList:
		if raw == "" {
			return []string{}, nil
		}
		parts := strings.Split(raw, ",")
		for i, part := range parts {
			parts[i] = strings.TrimSpace(part)
		}
		return parts, nil

	default:
		return raw, nil
	}
}
