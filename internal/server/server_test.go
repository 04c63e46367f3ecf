package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/dpshade/pocket-doc/internal/models"
	"github.com/dpshade/pocket-doc/internal/service"
)

func newTestServer(t *testing.T) (*Server, *service.Service) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "pocket-doc-server-test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	svc, err := service.NewService(tempDir)
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}
	if err := svc.InitLibrary(); err != nil {
		t.Fatalf("Failed to init library: %v", err)
	}

	return NewServer(svc, 0), svc
}

func doRequest(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = &bytes.Buffer{}
	}

	req := httptest.NewRequest(method, path, reqBody)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()

	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v\nbody: %s", err, rec.Body.String())
	}
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, "GET", "/api/v1/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}

	resp := decodeResponse(t, rec)
	if !resp.Success {
		t.Error("Expected success=true")
	}
}

func TestCreateAndGetDocument(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, "POST", "/api/v1/documents", map[string]any{
		"title":  "Quarterly Report",
		"author": "dana",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	resp := decodeResponse(t, rec)
	created, ok := resp.Data.(map[string]any)
	if !ok {
		t.Fatalf("Expected document object in response data, got %T", resp.Data)
	}
	id, _ := created["doc_id"].(string)
	if id == "" {
		t.Fatal("Expected doc_id in created document")
	}

	rec = doRequest(t, srv, "GET", "/api/v1/documents/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	resp = decodeResponse(t, rec)
	doc := resp.Data.(map[string]any)
	if doc["title"] != "Quarterly Report" {
		t.Errorf("Expected title 'Quarterly Report', got %v", doc["title"])
	}
	if doc["status"] != "draft" {
		t.Errorf("Expected status 'draft', got %v", doc["status"])
	}
}

func TestCreateDocumentRequiresTitle(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, "POST", "/api/v1/documents", map[string]any{
		"author": "dana",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestGetMissingDocumentReturns404(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, "GET", "/api/v1/documents/no-such-doc", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestValidateEndpointReportsMissingSlots(t *testing.T) {
	srv, svc := newTestServer(t)

	_, err := svc.CreateTemplate("invoice", "Invoice", "1.0.0", []models.Slot{
		{Name: "client", Required: true, Type: models.SlotString},
		{Name: "amount", Required: true, Type: models.SlotNumber},
	}, "")
	if err != nil {
		t.Fatalf("Failed to create template: %v", err)
	}

	doc, err := svc.CreateDocument("invoice", "March Invoice", "")
	if err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}

	rec := doRequest(t, srv, "POST", fmt.Sprintf("/api/v1/documents/%s/validate", doc.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	resp := decodeResponse(t, rec)
	result := resp.Data.(map[string]any)
	if valid, _ := result["valid"].(bool); valid {
		t.Error("Expected valid=false for document with missing slots")
	}
	missing, _ := result["missing"].([]any)
	if len(missing) != 2 {
		t.Errorf("Expected 2 missing issues, got %d", len(missing))
	}
}

func TestApproveRejectsInvalidDocument(t *testing.T) {
	srv, svc := newTestServer(t)

	_, err := svc.CreateTemplate("memo", "Memo", "1.0.0", []models.Slot{
		{Name: "subject", Required: true, Type: models.SlotString},
	}, "")
	if err != nil {
		t.Fatalf("Failed to create template: %v", err)
	}
	doc, err := svc.CreateDocument("memo", "Empty Memo", "")
	if err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}

	rec := doRequest(t, srv, "POST", fmt.Sprintf("/api/v1/documents/%s/approve", doc.ID), nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422, got %d: %s", rec.Code, rec.Body.String())
	}

	reloaded, err := svc.GetDocument(doc.ID)
	if err != nil {
		t.Fatalf("Failed to reload document: %v", err)
	}
	if reloaded.Status != models.StatusDraft {
		t.Errorf("Expected document to stay draft, got %s", reloaded.Status)
	}
}

func TestApproveThenFinalize(t *testing.T) {
	srv, svc := newTestServer(t)

	_, err := svc.CreateTemplate("memo", "Memo", "1.0.0", []models.Slot{
		{Name: "subject", Required: true, Type: models.SlotString},
	}, "")
	if err != nil {
		t.Fatalf("Failed to create template: %v", err)
	}
	doc, err := svc.CreateDocument("memo", "Staffing Memo", "")
	if err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}
	if _, err := svc.SetField(doc.ID, "subject", "Q3 staffing"); err != nil {
		t.Fatalf("Failed to set field: %v", err)
	}

	rec := doRequest(t, srv, "POST", fmt.Sprintf("/api/v1/documents/%s/approve", doc.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, srv, "POST", fmt.Sprintf("/api/v1/documents/%s/finalize", doc.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	reloaded, err := svc.GetDocument(doc.ID)
	if err != nil {
		t.Fatalf("Failed to reload document: %v", err)
	}
	if reloaded.Status != models.StatusFinal {
		t.Errorf("Expected status final, got %s", reloaded.Status)
	}
}

func TestRenderEndpoint(t *testing.T) {
	srv, svc := newTestServer(t)

	_, err := svc.CreateTemplate("letter", "Letter", "1.0.0", []models.Slot{
		{Name: "recipient", Required: true, Type: models.SlotString},
	}, "Dear {{.recipient}},\n\n{{.content}}")
	if err != nil {
		t.Fatalf("Failed to create template: %v", err)
	}
	doc, err := svc.CreateDocument("letter", "Welcome Letter", "")
	if err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}
	if _, err := svc.SetField(doc.ID, "recipient", "Avery"); err != nil {
		t.Fatalf("Failed to set field: %v", err)
	}

	rec := doRequest(t, srv, "GET", fmt.Sprintf("/api/v1/documents/%s/render?raw=true", doc.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Dear Avery,") {
		t.Errorf("Expected rendered output to contain greeting, got: %s", rec.Body.String())
	}
}

func TestUpdateDocumentFields(t *testing.T) {
	srv, svc := newTestServer(t)

	doc, err := svc.CreateDocument("", "Scratch Notes", "")
	if err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}

	newTitle := "Meeting Notes"
	rec := doRequest(t, srv, "PUT", "/api/v1/documents/"+doc.ID, map[string]any{
		"title":  newTitle,
		"fields": map[string]any{"attendees": []string{"a", "b"}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	reloaded, err := svc.GetDocument(doc.ID)
	if err != nil {
		t.Fatalf("Failed to reload document: %v", err)
	}
	if reloaded.Title != newTitle {
		t.Errorf("Expected title %q, got %q", newTitle, reloaded.Title)
	}
	if _, ok := reloaded.Fields["attendees"]; !ok {
		t.Error("Expected attendees field to be set")
	}
}

func TestArchiveEndpoint(t *testing.T) {
	srv, svc := newTestServer(t)

	doc, err := svc.CreateDocument("", "Old Notes", "")
	if err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}

	rec := doRequest(t, srv, "POST", fmt.Sprintf("/api/v1/documents/%s/archive", doc.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, srv, "GET", "/api/v1/documents?archived=true", nil)
	resp := decodeResponse(t, rec)
	docs, _ := resp.Data.([]any)
	if len(docs) != 1 {
		t.Errorf("Expected 1 archived document, got %d", len(docs))
	}
}

func TestCreateTemplateAppliesSlotDefaults(t *testing.T) {
	srv, svc := newTestServer(t)

	rec := doRequest(t, srv, "POST", "/api/v1/templates", map[string]any{
		"id": "invoice",
		"slots": []map[string]any{
			{"name": "client", "type": "string"},
			{"name": "amount"},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	tmpl, err := svc.GetTemplate("invoice")
	if err != nil {
		t.Fatalf("Failed to reload template: %v", err)
	}
	for _, slot := range tmpl.Slots {
		if !slot.Required {
			t.Errorf("Slot '%s' created without a required flag must default to required", slot.Name)
		}
	}
	if got := tmpl.Slots[1].Type; got != models.SlotString {
		t.Errorf("Slot without a type must default to string, got '%s'", got)
	}

	// A declared type survives validation on the way in
	if got := tmpl.Slots[0].Type; got != models.SlotString {
		t.Errorf("Expected string type for client slot, got '%s'", got)
	}
}

func TestCreateTemplateRejectsUnknownSlotType(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, "POST", "/api/v1/templates", map[string]any{
		"id": "invoice",
		"slots": []map[string]any{
			{"name": "amount", "type": "integer"},
		},
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown slot type, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestTemplateEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, "POST", "/api/v1/templates", map[string]any{
		"id":      "invoice",
		"version": "1.0.0",
		"slots": []map[string]any{
			{"name": "client", "required": true, "type": "string"},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, srv, "GET", "/api/v1/templates/invoice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	tmpl := resp.Data.(map[string]any)
	if tmpl["template_id"] != "invoice" {
		t.Errorf("Expected template_id 'invoice', got %v", tmpl["template_id"])
	}
	// Display name defaults to the id when omitted
	if tmpl["display_name"] != "invoice" {
		t.Errorf("Expected display_name 'invoice', got %v", tmpl["display_name"])
	}

	rec = doRequest(t, srv, "DELETE", "/api/v1/templates/invoice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	rec = doRequest(t, srv, "GET", "/api/v1/templates/invoice", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", rec.Code)
	}
}
