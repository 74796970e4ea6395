package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"documind-api/internal/domain"
	apperrors "documind-api/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type documentFixture struct {
	repo      *mockDocumentRepository
	storage   *mockFileStorage
	limits    *mockLimitService
	ai        *mockAIBackend
	inspector *mockPDFInspector
	logger    *MockLogger
	svc       *DocumentService
}

func newDocumentFixture() *documentFixture {
	f := &documentFixture{
		repo:      newMockDocumentRepository(),
		storage:   newMockFileStorage(),
		limits:    &mockLimitService{decision: allowAll()},
		ai:        &mockAIBackend{answer: "It is about tax."},
		inspector: &mockPDFInspector{info: &domain.PDFInfo{PageCount: 3, Title: "Embedded title"}},
		logger:    NewMockLogger(),
	}
	f.svc = NewDocumentService(f.repo, f.storage, f.limits, f.ai, f.inspector, "documents", 1024, f.logger)
	f.svc.now = func() time.Time { return time.UnixMilli(1741082400000) }
	return f
}

func pdfUpload(name string, size int) domain.UploadRequest {
	return domain.UploadRequest{
		FileName:    name,
		ContentType: "application/pdf",
		Size:        int64(size),
		Body:        bytes.NewReader(append([]byte("%PDF-1.7\n"), make([]byte, size-9)...)),
	}
}

func TestDocumentService_Upload(t *testing.T) {
	f := newDocumentFixture()

	doc, err := f.svc.Upload(context.Background(), "user-1", pdfUpload("Tax Return.PDF", 100), "token")
	require.NoError(t, err)

	assert.Equal(t, "Tax Return", doc.Title)
	assert.Equal(t, "Tax Return.PDF", doc.FileName)
	assert.Equal(t, int64(100), *doc.FileSize)
	assert.Equal(t, 3, *doc.PageCount)
	assert.Contains(t, f.storage.files, "user-1/1741082400000.pdf")
	assert.Equal(t, "user-1/1741082400000.pdf", doc.StoragePath("documents"))

	require.Len(t, f.ai.ingested, 1)
	assert.Equal(t, doc.ID, f.ai.ingested[0].DocumentID)
	assert.Equal(t, doc.FileURL, f.ai.ingested[0].FileURL)
}

func TestDocumentService_UploadRejections(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(f *documentFixture)
		req     domain.UploadRequest
		wantErr error
	}{
		{
			name:    "not a pdf",
			req:     domain.UploadRequest{FileName: "notes.txt", ContentType: "text/plain", Size: 5, Body: bytes.NewReader([]byte("hello"))},
			wantErr: domain.ErrInvalidFile,
		},
		{
			name:    "too large",
			req:     pdfUpload("big.pdf", 2048),
			wantErr: domain.ErrFileTooLarge,
		},
		{
			name: "document limit",
			setup: func(f *documentFixture) {
				f.limits.decision.CanUploadDocument = false
			},
			req:     pdfUpload("a.pdf", 100),
			wantErr: domain.ErrDocumentLimitReached,
		},
		{
			name: "storage limit",
			setup: func(f *documentFixture) {
				max := int64(150)
				f.limits.decision.MaxStorageBytes = &max
				f.limits.decision.StorageUsed = 60
			},
			req:     pdfUpload("a.pdf", 100),
			wantErr: domain.ErrStorageLimitExceeded,
		},
		{
			name: "unreadable pdf",
			setup: func(f *documentFixture) {
				f.inspector.err = fmt.Errorf("%w: broken xref", domain.ErrInvalidFile)
			},
			req:     pdfUpload("a.pdf", 100),
			wantErr: domain.ErrInvalidFile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDocumentFixture()
			if tt.setup != nil {
				tt.setup(f)
			}

			_, err := f.svc.Upload(context.Background(), "user-1", tt.req, "token")
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, f.storage.files)
			assert.Empty(t, f.repo.documents)
		})
	}
}

func TestDocumentService_UploadRemovesFileWhenInsertFails(t *testing.T) {
	f := newDocumentFixture()
	f.repo.createErr = errors.New("insert failed")

	_, err := f.svc.Upload(context.Background(), "user-1", pdfUpload("a.pdf", 100), "token")
	require.Error(t, err)
	assert.Equal(t, []string{"user-1/1741082400000.pdf"}, f.storage.removed)
	assert.Empty(t, f.storage.files)
	assert.Empty(t, f.ai.ingested)
}

func TestDocumentService_UploadSucceedsWhenIngestFails(t *testing.T) {
	f := newDocumentFixture()
	f.ai.ingestErr = domain.ErrAIBackendUnavailable

	doc, err := f.svc.Upload(context.Background(), "user-1", pdfUpload("a.pdf", 100), "token")
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)
	assert.True(t, f.logger.contains("Backend ingestion failed"))
}

func TestDocumentService_Delete(t *testing.T) {
	f := newDocumentFixture()
	doc, err := f.svc.Upload(context.Background(), "user-1", pdfUpload("a.pdf", 100), "token")
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Delete(context.Background(), "user-2", doc.ID, "token"), domain.ErrAccessDenied)
	assert.ErrorIs(t, f.svc.Delete(context.Background(), "user-1", "doc-404", "token"), domain.ErrDocumentNotFound)

	f.ai.deleteErr = errors.New("404")
	require.NoError(t, f.svc.Delete(context.Background(), "user-1", doc.ID, "token"))
	assert.Equal(t, []string{"user-1/1741082400000.pdf"}, f.storage.removed)
	assert.Equal(t, []string{doc.ID}, f.ai.deleted)
	assert.Empty(t, f.repo.documents)
}

func TestDocumentService_Ask(t *testing.T) {
	f := newDocumentFixture()
	doc, err := f.svc.Upload(context.Background(), "user-1", pdfUpload("a.pdf", 100), "token")
	require.NoError(t, err)

	resp, err := f.svc.Ask(context.Background(), "user-1", domain.AskRequest{DocumentID: doc.ID, Question: "  What is this about?  "}, "token")
	require.NoError(t, err)
	assert.Equal(t, "It is about tax.", resp.Answer)
	assert.Equal(t, "qa-1", resp.QAID)
	require.Len(t, f.repo.qa, 1)
	assert.Equal(t, "What is this about?", f.repo.qa[0].Question)

	history, err := f.svc.History(context.Background(), "user-1", doc.ID, "token")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestDocumentService_AskRejections(t *testing.T) {
	f := newDocumentFixture()
	doc, err := f.svc.Upload(context.Background(), "user-1", pdfUpload("a.pdf", 100), "token")
	require.NoError(t, err)

	_, err = f.svc.Ask(context.Background(), "user-1", domain.AskRequest{DocumentID: doc.ID, Question: "   "}, "token")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = f.svc.Ask(context.Background(), "user-2", domain.AskRequest{DocumentID: doc.ID, Question: "Why?"}, "token")
	assert.ErrorIs(t, err, domain.ErrAccessDenied)

	f.limits.decision.CanAskQuestion = false
	_, err = f.svc.Ask(context.Background(), "user-1", domain.AskRequest{DocumentID: doc.ID, Question: "Why?"}, "token")
	assert.ErrorIs(t, err, domain.ErrQuestionLimitReached)
	assert.Empty(t, f.repo.qa)
}

func TestDocumentService_AskKeepsAnswerWhenHistoryInsertFails(t *testing.T) {
	f := newDocumentFixture()
	doc, err := f.svc.Upload(context.Background(), "user-1", pdfUpload("a.pdf", 100), "token")
	require.NoError(t, err)
	f.repo.qaErr = errors.New("rls violation")

	resp, err := f.svc.Ask(context.Background(), "user-1", domain.AskRequest{DocumentID: doc.ID, Question: "Why?"}, "token")
	require.NoError(t, err)
	assert.Equal(t, "It is about tax.", resp.Answer)
	assert.Empty(t, resp.QAID)
}

func TestPDFProcessor_RejectsNonPDF(t *testing.T) {
	p := NewPDFProcessor(NewMockLogger())

	_, err := p.Inspect([]byte("definitely not a pdf"))
	assert.ErrorIs(t, err, domain.ErrInvalidFile)
}
