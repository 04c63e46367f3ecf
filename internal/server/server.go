// Package server exposes the document workflow over a small JSON API.
//
// Endpoints:
//   - /api/v1/documents: document CRUD, archive, search
//   - /api/v1/documents/{id}/validate: validation report
//   - /api/v1/documents/{id}/render: template rendering
//   - /api/v1/templates: template listing and CRUD
//   - /api/v1/health: liveness probe
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/dpshade/pocket-doc/internal/errors"
	"github.com/dpshade/pocket-doc/internal/models"
	"github.com/dpshade/pocket-doc/internal/renderer"
	"github.com/dpshade/pocket-doc/internal/service"
)

// Server provides the HTTP API with middleware support
type Server struct {
	service      *service.Service
	errorHandler *errors.HTTPErrorHandler
	port         int
	server       *http.Server
	ctx          context.Context
	cancel       context.CancelFunc
}

// NewServer creates a new API server instance
func NewServer(svc *service.Service, port int) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		service:      svc,
		errorHandler: errors.NewHTTPErrorHandler(true),
		port:         port,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start begins serving HTTP requests with middleware
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("API server starting on http://localhost:%d", s.port)
	return s.server.ListenAndServe()
}

// Handler builds the route table. Exposed separately so tests can drive
// the mux with httptest without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/documents", s.withMiddleware(s.handleDocuments))
	mux.HandleFunc("/api/v1/documents/", s.withMiddleware(s.handleDocumentsWithID))
	mux.HandleFunc("/api/v1/search", s.withMiddleware(s.handleSearch))
	mux.HandleFunc("/api/v1/templates", s.withMiddleware(s.handleTemplates))
	mux.HandleFunc("/api/v1/templates/", s.withMiddleware(s.handleTemplatesWithID))
	mux.HandleFunc("/api/v1/health", s.withMiddleware(s.handleHealth))

	return mux
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	s.cancel()
	return s.server.Shutdown(ctx)
}

// withMiddleware applies middleware to HTTP handlers
func (s *Server) withMiddleware(handler http.HandlerFunc) http.HandlerFunc {
	return s.loggingMiddleware(
		s.corsMiddleware(
			s.contentTypeMiddleware(
				s.recoveryMiddleware(handler),
			),
		),
	)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next(w, r)
		duration := time.Since(start)
		log.Printf("[%s] %s %s - %v", r.Method, r.URL.Path, r.RemoteAddr, duration)
	}
}

// corsMiddleware handles CORS headers
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

// contentTypeMiddleware sets default content type
func (s *Server) contentTypeMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next(w, r)
	}
}

// recoveryMiddleware handles panics in handlers
func (s *Server) recoveryMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("Panic in handler: %v", err)
				appErr := errors.InternalError("Internal server error")
				s.errorHandler.WriteHTTPError(w, appErr)
			}
		}()
		next(w, r)
	}
}

// APIResponse represents a standardized API response
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// writeResponse writes a standardized JSON response
func (s *Server) writeResponse(w http.ResponseWriter, data interface{}, message string, statusCode int) {
	response := APIResponse{
		Success:   statusCode < 400,
		Data:      data,
		Message:   message,
		Timestamp: time.Now(),
	}

	w.WriteHeader(statusCode)

	jsonData, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		json.NewEncoder(w).Encode(response)
		return
	}
	w.Write(jsonData)
}

// writeError writes an error response using the error handler
func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.errorHandler.WriteHTTPError(w, err)
}

// handleDocuments handles /api/v1/documents
func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		s.handleListDocuments(w, r)
	case "POST":
		s.handleCreateDocument(w, r)
	default:
		s.writeError(w, errors.NewAppError(errors.ErrCodeInvalidCommand, "Method not allowed"))
	}
}

// handleDocumentsWithID handles /api/v1/documents/{id} and its
// /validate and /render sub-resources
func (s *Server) handleDocumentsWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/documents/")
	if path == "" {
		s.writeError(w, errors.ValidationError("Document ID is required"))
		return
	}

	id, action, _ := strings.Cut(path, "/")

	switch action {
	case "":
		switch r.Method {
		case "GET":
			s.handleGetDocument(w, r, id)
		case "PUT":
			s.handleUpdateDocument(w, r, id)
		case "DELETE":
			s.handleDeleteDocument(w, r, id)
		default:
			s.writeError(w, errors.NewAppError(errors.ErrCodeInvalidCommand, "Method not allowed"))
		}
	case "validate":
		s.handleValidateDocument(w, r, id)
	case "approve":
		s.handleApproveDocument(w, r, id)
	case "finalize":
		s.handleFinalizeDocument(w, r, id)
	case "render":
		s.handleRenderDocument(w, r, id)
	case "archive":
		s.handleArchiveDocument(w, r, id)
	default:
		s.writeError(w, errors.NotFoundError(fmt.Sprintf("endpoint '%s'", action)))
	}
}

// handleListDocuments handles GET /api/v1/documents
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	var docs []*models.Document
	var err error

	if r.URL.Query().Get("archived") == "true" {
		docs, err = s.service.ListArchivedDocuments()
	} else {
		docs, err = s.service.ListDocuments()
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	if status := r.URL.Query().Get("status"); status != "" {
		filtered := docs[:0]
		for _, doc := range docs {
			if string(doc.Status) == status {
				filtered = append(filtered, doc)
			}
		}
		docs = filtered
	}

	s.writeResponse(w, docs, fmt.Sprintf("Found %d documents", len(docs)), http.StatusOK)
}

// createDocumentRequest is the POST /api/v1/documents body
type createDocumentRequest struct {
	Title      string         `json:"title"`
	TemplateID string         `json:"template_id"`
	Author     string         `json:"author"`
	Fields     map[string]any `json:"fields"`
}

// handleCreateDocument handles POST /api/v1/documents
func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var req createDocumentRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Title == "" {
		s.writeError(w, errors.ValidationError("Document title is required"))
		return
	}

	doc, err := s.service.CreateDocument(req.TemplateID, req.Title, req.Author)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if len(req.Fields) > 0 {
		for name, value := range req.Fields {
			doc.SetField(name, value)
		}
		if err := s.service.SaveDocument(doc); err != nil {
			s.writeError(w, err)
			return
		}
	}

	s.writeResponse(w, doc, "Document created", http.StatusCreated)
}

// handleGetDocument handles GET /api/v1/documents/{id}
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request, id string) {
	doc, err := s.service.GetDocument(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, doc, "", http.StatusOK)
}

// updateDocumentRequest is the PUT /api/v1/documents/{id} body.
// Nil maps leave the corresponding section untouched.
type updateDocumentRequest struct {
	Title  *string        `json:"title"`
	Fields map[string]any `json:"fields"`
	Unset  []string       `json:"unset"`
}

// handleUpdateDocument handles PUT /api/v1/documents/{id}
func (s *Server) handleUpdateDocument(w http.ResponseWriter, r *http.Request, id string) {
	var req updateDocumentRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	doc, err := s.service.GetDocument(id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if req.Title != nil {
		doc.Title = *req.Title
	}
	for name, value := range req.Fields {
		doc.SetField(name, value)
	}
	for _, name := range req.Unset {
		doc.UnsetField(name)
	}
	doc.Touch()

	if err := s.service.SaveDocument(doc); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, doc, "Document updated", http.StatusOK)
}

// handleDeleteDocument handles DELETE /api/v1/documents/{id}
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.service.DeleteDocument(id); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, nil, "Document deleted", http.StatusOK)
}

// handleValidateDocument handles POST /api/v1/documents/{id}/validate
func (s *Server) handleValidateDocument(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != "POST" && r.Method != "GET" {
		s.writeError(w, errors.NewAppError(errors.ErrCodeInvalidCommand, "Method not allowed"))
		return
	}

	result, err := s.service.Validate(id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	msg := "Document is valid"
	if !result.Valid() {
		msg = "Document has validation issues"
	}
	s.writeResponse(w, result, msg, http.StatusOK)
}

// handleApproveDocument handles POST /api/v1/documents/{id}/approve
func (s *Server) handleApproveDocument(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != "POST" {
		s.writeError(w, errors.NewAppError(errors.ErrCodeInvalidCommand, "Method not allowed"))
		return
	}

	result, err := s.service.MarkValidated(id)
	if err != nil {
		if result != nil {
			// Validation report travels with the error so clients can
			// show what is missing
			s.writeResponse(w, result, "Document failed validation", http.StatusUnprocessableEntity)
			return
		}
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, result, "Document marked as validated", http.StatusOK)
}

// handleFinalizeDocument handles POST /api/v1/documents/{id}/finalize
func (s *Server) handleFinalizeDocument(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != "POST" {
		s.writeError(w, errors.NewAppError(errors.ErrCodeInvalidCommand, "Method not allowed"))
		return
	}

	doc, err := s.service.Finalize(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, doc, "Document marked as final", http.StatusOK)
}

// handleRenderDocument handles GET /api/v1/documents/{id}/render
func (s *Server) handleRenderDocument(w http.ResponseWriter, r *http.Request, id string) {
	doc, err := s.service.GetDocument(id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var tmpl *models.Template
	if doc.TemplateID != "" {
		tmpl, err = s.service.GetTemplate(doc.TemplateID)
		if err != nil {
			s.writeError(w, err)
			return
		}
	}

	rendered, err := renderer.NewRenderer(doc, tmpl).RenderMarkdown()
	if err != nil {
		s.writeError(w, errors.Wrap(err, errors.ErrCodeCommandFailed, "Failed to render document"))
		return
	}

	if r.URL.Query().Get("raw") == "true" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		io.WriteString(w, rendered)
		return
	}

	s.writeResponse(w, map[string]string{"id": doc.ID, "rendered": rendered}, "", http.StatusOK)
}

// handleArchiveDocument handles POST /api/v1/documents/{id}/archive
func (s *Server) handleArchiveDocument(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != "POST" {
		s.writeError(w, errors.NewAppError(errors.ErrCodeInvalidCommand, "Method not allowed"))
		return
	}

	if err := s.service.ArchiveDocument(id); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, nil, "Document archived", http.StatusOK)
}

// handleSearch handles GET /api/v1/search
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		s.writeError(w, errors.ValidationError("Query parameter 'q' is required"))
		return
	}

	docs, err := s.service.SearchDocuments(query)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, docs, fmt.Sprintf("Found %d documents", len(docs)), http.StatusOK)
}

// handleTemplates handles /api/v1/templates
func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		templates, err := s.service.ListTemplates()
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeResponse(w, templates, fmt.Sprintf("Found %d templates", len(templates)), http.StatusOK)
	case "POST":
		s.handleCreateTemplate(w, r)
	default:
		s.writeError(w, errors.NewAppError(errors.ErrCodeInvalidCommand, "Method not allowed"))
	}
}

// createTemplateRequest is the POST /api/v1/templates body
type createTemplateRequest struct {
	ID          string        `json:"id"`
	DisplayName string        `json:"display_name"`
	Version     string        `json:"version"`
	Slots       []models.Slot `json:"slots"`
	Content     string        `json:"content"`
}

// handleCreateTemplate handles POST /api/v1/templates
func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req createTemplateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.ID == "" {
		s.writeError(w, errors.ValidationError("Template ID is required"))
		return
	}
	if req.DisplayName == "" {
		req.DisplayName = req.ID
	}

	tmpl, err := s.service.CreateTemplate(req.ID, req.DisplayName, req.Version, req.Slots, req.Content)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, tmpl, "Template created", http.StatusCreated)
}

// handleTemplatesWithID handles /api/v1/templates/{id}
func (s *Server) handleTemplatesWithID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/templates/")
	if id == "" {
		s.writeError(w, errors.ValidationError("Template ID is required"))
		return
	}

	switch r.Method {
	case "GET":
		tmpl, err := s.service.GetTemplate(id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeResponse(w, tmpl, "", http.StatusOK)
	case "DELETE":
		if err := s.service.DeleteTemplate(id); err != nil {
			s.writeError(w, err)
			return
		}
		s.writeResponse(w, nil, "Template deleted", http.StatusOK)
	default:
		s.writeError(w, errors.NewAppError(errors.ErrCodeInvalidCommand, "Method not allowed"))
	}
}

// handleHealth handles GET /api/v1/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeResponse(w, map[string]string{
		"status":  "healthy",
		"service": "pocket-doc",
	}, "", http.StatusOK)
}

// decodeJSON reads and decodes a JSON request body
func decodeJSON(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return errors.ValidationError("Failed to read request body")
	}
	if len(body) == 0 {
		return errors.ValidationError("Request body is required")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errors.ValidationError(fmt.Sprintf("Invalid JSON: %v", err))
	}
	return nil
}
