package handler

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"documind-api/internal/domain"

	"github.com/gorilla/mux"
)

// multipartOverhead is the room left for form fields and boundaries on top of the file itself.
const multipartOverhead = 1 << 20

// DocumentHandler serves document upload, listing, deletion and Q&A.
type DocumentHandler struct {
	documentService domain.DocumentService
	maxFileSize     int64
	logger          domain.Logger
}

func NewDocumentHandler(documentService domain.DocumentService, maxFileSize int64, logger domain.Logger) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
		maxFileSize:     maxFileSize,
		logger:          logger,
	}
}

// GetDocuments returns the user's documents, newest first.
func (h *DocumentHandler) GetDocuments(w http.ResponseWriter, r *http.Request) {
	user, token, ok := requestIdentity(w, r)
	if !ok {
		return
	}

	docs, err := h.documentService.List(r.Context(), user.ID, token)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to list documents", err, "user_id", user.ID)
		return
	}
	if docs == nil {
		docs = []*domain.Document{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"documents": docs})
}

func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	user, token, ok := requestIdentity(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+multipartOverhead)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		writeError(w, http.StatusBadRequest, "File is required")
		return
	}
	defer file.Close()

	// strip any path components
	name := strings.TrimSpace(filepath.Base(header.Filename))
	if name == "." || name == string(filepath.Separator) {
		name = ""
	}

	doc, err := h.documentService.Upload(r.Context(), user.ID, domain.UploadRequest{
		FileName:    name,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}, token)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to upload document", err, "user_id", user.ID, "file_name", name)
		return
	}

	writeJSON(w, http.StatusCreated, doc)
}

func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	user, token, ok := requestIdentity(w, r)
	if !ok {
		return
	}

	documentID := mux.Vars(r)["id"]
	if err := h.documentService.Delete(r.Context(), user.ID, documentID, token); err != nil {
		writeServiceError(w, h.logger, "Failed to delete document", err, "document_id", documentID)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Document deleted"})
}

// GetQuestions returns the Q&A history of one document.
func (h *DocumentHandler) GetQuestions(w http.ResponseWriter, r *http.Request) {
	user, token, ok := requestIdentity(w, r)
	if !ok {
		return
	}

	documentID := mux.Vars(r)["id"]
	entries, err := h.documentService.History(r.Context(), user.ID, documentID, token)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to load question history", err, "document_id", documentID)
		return
	}
	if entries == nil {
		entries = []*domain.QAEntry{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"questions": entries})
}

func (h *DocumentHandler) Ask(w http.ResponseWriter, r *http.Request) {
	user, token, ok := requestIdentity(w, r)
	if !ok {
		return
	}

	var req domain.AskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.documentService.Ask(r.Context(), user.ID, req, token)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to answer question", err, "document_id", req.DocumentID)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// requestIdentity reads the user and token placed by AuthMiddleware and writes 401 when either is missing.
func requestIdentity(w http.ResponseWriter, r *http.Request) (*domain.SupabaseUser, string, bool) {
	user, ok := GetUserFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "User not found in context")
		return nil, "", false
	}
	token, ok := GetTokenFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Token not found in context")
		return nil, "", false
	}
	return user, token, true
}
