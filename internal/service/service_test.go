package service

import (
	"os"
	"testing"

	apperrors "github.com/dpshade/pocket-doc/internal/errors"
	"github.com/dpshade/pocket-doc/internal/models"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "pocket-doc-service-test")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	svc, err := NewService(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}
	if err := svc.InitLibrary(); err != nil {
		t.Fatalf("Failed to init library: %v", err)
	}
	return svc
}

func seedInvoiceTemplate(t *testing.T, svc *Service) *models.Template {
	t.Helper()
	tmpl, err := svc.CreateTemplate("invoice", "Invoice", "1.0.0", []models.Slot{
		{Name: "client", Required: true, Type: models.SlotString},
		{Name: "amount", Required: true, Type: models.SlotNumber},
		{Name: "approved", Required: false, Type: models.SlotBoolean},
		{Name: "line_items", Required: false, Type: models.SlotStringList},
	}, "# Invoice for {{.client}}\n")
	if err != nil {
		t.Fatalf("Failed to create template: %v", err)
	}
	return tmpl
}

func TestCreateTemplateRejectsDuplicateID(t *testing.T) {
	svc := newTestService(t)
	seedInvoiceTemplate(t, svc)

	_, err := svc.CreateTemplate("invoice", "Invoice Again", "2", nil, "")
	if err == nil {
		t.Fatal("Expected duplicate template id to fail")
	}
	if apperrors.GetAppError(err).Code != apperrors.ErrCodeAlreadyExists {
		t.Errorf("Expected ALREADY_EXISTS, got %s", apperrors.GetAppError(err).Code)
	}
}

func TestCreateDocumentRequiresTemplate(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreateDocument("missing-template", "Doc", "")
	if err == nil {
		t.Fatal("Expected unknown template to fail document creation")
	}
	if apperrors.GetAppError(err).Code != apperrors.ErrCodeNotFound {
		t.Errorf("Expected NOT_FOUND, got %s", apperrors.GetAppError(err).Code)
	}

	// Template-less documents are allowed
	doc, err := svc.CreateDocument("", "Free Doc", "")
	if err != nil {
		t.Fatalf("Template-less document should be allowed: %v", err)
	}
	if doc.TemplateID != "" {
		t.Errorf("TemplateID = '%s', want empty", doc.TemplateID)
	}
}

func TestSetFieldCoercesBySlotType(t *testing.T) {
	svc := newTestService(t)
	seedInvoiceTemplate(t, svc)
	doc, err := svc.CreateDocument("invoice", "Q3 Invoice", "dana")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.SetField(doc.ID, "amount", "500"); err != nil {
		t.Fatalf("Failed to set amount: %v", err)
	}
	if _, err := svc.SetField(doc.ID, "approved", "true"); err != nil {
		t.Fatalf("Failed to set approved: %v", err)
	}
	if _, err := svc.SetField(doc.ID, "line_items", "consulting, support"); err != nil {
		t.Fatalf("Failed to set line_items: %v", err)
	}

	loaded, err := svc.GetDocument(doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Fields["amount"] != 500 {
		t.Errorf("amount = %v (%T), want 500 (int)", loaded.Fields["amount"], loaded.Fields["amount"])
	}
	if loaded.Fields["approved"] != true {
		t.Errorf("approved = %v, want true", loaded.Fields["approved"])
	}

	if _, err := svc.SetField(doc.ID, "amount", "not-a-number"); err == nil {
		t.Error("Expected non-numeric amount to fail coercion")
	}
}

func TestValidateWorkflow(t *testing.T) {
	svc := newTestService(t)
	seedInvoiceTemplate(t, svc)
	doc, err := svc.CreateDocument("invoice", "Q3 Invoice", "")
	if err != nil {
		t.Fatal(err)
	}

	// Fresh document misses both required slots
	result, err := svc.Validate(doc.ID)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if result.Valid() {
		t.Error("Expected fresh document to be invalid")
	}
	if len(result.Missing) != 2 {
		t.Errorf("Expected 2 missing slots, got %d", len(result.Missing))
	}

	// MarkValidated must refuse while invalid
	if _, err := svc.MarkValidated(doc.ID); err == nil {
		t.Fatal("Expected MarkValidated to fail on invalid document")
	}
	loaded, _ := svc.GetDocument(doc.ID)
	if loaded.Status != models.StatusDraft {
		t.Errorf("Status = '%s', want draft after failed validation", loaded.Status)
	}

	// Fill the required slots and try again
	if _, err := svc.SetField(doc.ID, "client", "Acme"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SetField(doc.ID, "amount", "500"); err != nil {
		t.Fatal(err)
	}

	result, err = svc.MarkValidated(doc.ID)
	if err != nil {
		t.Fatalf("MarkValidated failed on valid document: %v", err)
	}
	if !result.Valid() {
		t.Error("Expected valid result")
	}

	loaded, _ = svc.GetDocument(doc.ID)
	if loaded.Status != models.StatusValidated {
		t.Errorf("Status = '%s', want validated", loaded.Status)
	}

	// Sign-off
	if _, err := svc.Finalize(doc.ID); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	loaded, _ = svc.GetDocument(doc.ID)
	if loaded.Status != models.StatusFinal {
		t.Errorf("Status = '%s', want final", loaded.Status)
	}
}

func TestValidateTemplatelessDocumentFails(t *testing.T) {
	svc := newTestService(t)
	doc, err := svc.CreateDocument("", "Free Doc", "")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Validate(doc.ID); err == nil {
		t.Error("Expected validation of a template-less document to fail")
	}
}

func TestArchiveDocument(t *testing.T) {
	svc := newTestService(t)
	doc, err := svc.CreateDocument("", "Old Doc", "")
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.ArchiveDocument(doc.ID); err != nil {
		t.Fatalf("Failed to archive: %v", err)
	}

	active, err := svc.ListDocuments()
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 0 {
		t.Errorf("Expected no active documents, got %d", len(active))
	}

	archived, err := svc.ListArchivedDocuments()
	if err != nil {
		t.Fatal(err)
	}
	if len(archived) != 1 {
		t.Errorf("Expected 1 archived document, got %d", len(archived))
	}

	// Archived documents remain loadable by id
	if _, err := svc.GetDocument(doc.ID); err != nil {
		t.Errorf("Archived document should still load: %v", err)
	}
}

func TestSearchDocuments(t *testing.T) {
	svc := newTestService(t)
	for _, title := range []string{"Quarterly Invoice", "Weekly Memo", "Incident Report"} {
		if _, err := svc.CreateDocument("", title, ""); err != nil {
			t.Fatal(err)
		}
	}

	results, err := svc.SearchDocuments("invoice")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 match, got %d", len(results))
	}
	if results[0].Title != "Quarterly Invoice" {
		t.Errorf("Match = '%s', want 'Quarterly Invoice'", results[0].Title)
	}

	// Empty query returns everything
	all, err := svc.SearchDocuments("")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("Expected 3 documents, got %d", len(all))
	}
}
