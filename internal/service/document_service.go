package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"documind-api/internal/domain"
	apperrors "documind-api/pkg/errors"
)

const pdfContentType = "application/pdf"

type DocumentService struct {
	repo        domain.DocumentRepository
	storage     domain.FileStorage
	limits      domain.LimitService
	ai          domain.AIBackend
	inspector   domain.PDFInspector
	bucket      string
	maxFileSize int64
	logger      domain.Logger
	now         func() time.Time
}

func NewDocumentService(
	repo domain.DocumentRepository,
	storage domain.FileStorage,
	limits domain.LimitService,
	ai domain.AIBackend,
	inspector domain.PDFInspector,
	bucket string,
	maxFileSize int64,
	logger domain.Logger,
) *DocumentService {
	return &DocumentService{
		repo:        repo,
		storage:     storage,
		limits:      limits,
		ai:          ai,
		inspector:   inspector,
		bucket:      bucket,
		maxFileSize: maxFileSize,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *DocumentService) List(ctx context.Context, userID string, token string) ([]*domain.Document, error) {
	return s.repo.ListByUser(ctx, userID, token)
}

// Upload stores a PDF, records it and hands it to the AI backend.
// Ingestion failures are logged; the document is kept either way.
func (s *DocumentService) Upload(ctx context.Context, userID string, req domain.UploadRequest, token string) (*domain.Document, error) {
	if req.Body == nil || req.FileName == "" {
		return nil, apperrors.NewValidationError("No file provided")
	}
	if !isPDFUpload(req) {
		return nil, fmt.Errorf("%w: only PDF files are allowed", domain.ErrInvalidFile)
	}
	if s.maxFileSize > 0 && req.Size > s.maxFileSize {
		return nil, domain.ErrFileTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(req.Body, s.readLimit()))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if s.maxFileSize > 0 && int64(len(data)) > s.maxFileSize {
		return nil, domain.ErrFileTooLarge
	}
	size := int64(len(data))

	decision := s.limits.Evaluate(ctx, userID)
	if !decision.CanUploadDocument {
		return nil, domain.ErrDocumentLimitReached
	}
	if !decision.CanStore(size) {
		return nil, domain.ErrStorageLimitExceeded
	}

	info, err := s.inspector.Inspect(data)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("%s/%d.pdf", userID, s.now().UnixMilli())
	fileURL, err := s.storage.Upload(ctx, path, bytes.NewReader(data), pdfContentType, token)
	if err != nil {
		s.logger.Error("Failed to upload file", err, "user_id", userID, "path", path)
		return nil, err
	}

	title := documentTitle(req.FileName)
	if title == "" {
		title = info.Title
	}

	doc, err := s.repo.Create(ctx, &domain.Document{
		UserID:    userID,
		Title:     title,
		FileName:  req.FileName,
		FileSize:  &size,
		FileURL:   fileURL,
		PageCount: &info.PageCount,
	}, token)
	if err != nil {
		s.logger.Error("Failed to save document metadata", err, "user_id", userID, "path", path)
		if rmErr := s.storage.Remove(ctx, []string{path}, token); rmErr != nil {
			s.logger.Error("Failed to remove orphaned upload", rmErr, "path", path)
		}
		return nil, err
	}

	if err := s.ai.Ingest(ctx, domain.IngestRequest{
		UserID:     userID,
		DocumentID: doc.ID,
		Title:      doc.Title,
		FileName:   req.FileName,
		FileSize:   size,
		FileURL:    fileURL,
		File:       bytes.NewReader(data),
	}); err != nil {
		s.logger.Error("Backend ingestion failed", err, "doc_id", doc.ID)
	} else {
		s.logger.Info("Document ingested", "doc_id", doc.ID, "page_count", info.PageCount)
	}

	return doc, nil
}

// Delete removes the stored file and the AI index entry on a best-effort basis, then the row.
func (s *DocumentService) Delete(ctx context.Context, userID, documentID string, token string) error {
	doc, err := s.ownedDocument(ctx, userID, documentID, token)
	if err != nil {
		return err
	}

	if path := doc.StoragePath(s.bucket); path != "" {
		if err := s.storage.Remove(ctx, []string{path}, token); err != nil {
			s.logger.Warn("Failed to remove document file", "doc_id", documentID, "path", path, "error", err)
		}
	}

	if err := s.ai.DeleteDocument(ctx, userID, documentID); err != nil {
		s.logger.Warn("Failed to delete document from AI backend", "doc_id", documentID, "error", err)
	}

	if err := s.repo.Delete(ctx, documentID, token); err != nil {
		return err
	}
	s.logger.Info("Document deleted", "doc_id", documentID, "user_id", userID)
	return nil
}

func (s *DocumentService) Ask(ctx context.Context, userID string, req domain.AskRequest, token string) (*domain.AskResponse, error) {
	req.Question = strings.TrimSpace(req.Question)
	if err := ValidateStruct(req); err != nil {
		return nil, err
	}

	decision := s.limits.Evaluate(ctx, userID)
	if !decision.CanAskQuestion {
		return nil, domain.ErrQuestionLimitReached
	}

	if _, err := s.ownedDocument(ctx, userID, req.DocumentID, token); err != nil {
		return nil, err
	}

	answer, err := s.ai.Query(ctx, userID, req.DocumentID, req.Question)
	if err != nil {
		s.logger.Error("AI query failed", err, "doc_id", req.DocumentID)
		return nil, err
	}

	resp := &domain.AskResponse{Answer: answer, DocumentID: req.DocumentID}
	entry, err := s.repo.InsertQA(ctx, &domain.QAEntry{
		UserID:     userID,
		DocumentID: req.DocumentID,
		Question:   req.Question,
		Answer:     answer,
	}, token)
	if err != nil {
		// The answer is still returned; only the history row is lost.
		s.logger.Error("Failed to save Q&A history", err, "doc_id", req.DocumentID)
		return resp, nil
	}
	resp.QAID = entry.ID
	return resp, nil
}

func (s *DocumentService) History(ctx context.Context, userID, documentID string, token string) ([]*domain.QAEntry, error) {
	if _, err := s.ownedDocument(ctx, userID, documentID, token); err != nil {
		return nil, err
	}
	return s.repo.ListQA(ctx, userID, documentID, token)
}

func (s *DocumentService) ownedDocument(ctx context.Context, userID, documentID, token string) (*domain.Document, error) {
	doc, err := s.repo.GetByID(ctx, documentID, token)
	if err != nil {
		return nil, err
	}
	if doc.UserID != userID {
		return nil, domain.ErrAccessDenied
	}
	return doc, nil
}

func (s *DocumentService) readLimit() int64 {
	if s.maxFileSize <= 0 {
		return 1 << 40
	}
	return s.maxFileSize + 1
}

func isPDFUpload(req domain.UploadRequest) bool {
	contentType := strings.ToLower(strings.TrimSpace(strings.SplitN(req.ContentType, ";", 2)[0]))
	if contentType == pdfContentType {
		return true
	}
	isPDFName := strings.EqualFold(filepath.Ext(req.FileName), ".pdf")
	return isPDFName && (contentType == "" || contentType == "application/octet-stream")
}

// documentTitle is the file name without its .pdf extension.
func documentTitle(fileName string) string {
	name := filepath.Base(fileName)
	if strings.EqualFold(filepath.Ext(name), ".pdf") {
		name = name[:len(name)-len(".pdf")]
	}
	return strings.TrimSpace(name)
}
