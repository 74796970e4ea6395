package domain

import (
	"context"
	"io"
	"strings"
	"time"
)

// Document is an uploaded PDF owned by a user.
type Document struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	FileName  string    `json:"file_name"`
	FileSize  *int64    `json:"file_size"`
	FileURL   string    `json:"file_url"`
	PageCount *int      `json:"page_count,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StoragePath returns the object path inside the documents bucket, derived from the public URL.
func (d *Document) StoragePath(bucket string) string {
	parts := strings.Split(d.FileURL, "/"+bucket+"/")
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-1]
}

// QAEntry is one question answered about a document.
type QAEntry struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	DocumentID string    `json:"document_id"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	CreatedAt  time.Time `json:"created_at"`
}

// DocumentRepository defines persistence operations for documents and their Q&A history.
type DocumentRepository interface {
	Create(ctx context.Context, doc *Document, token string) (*Document, error)
	GetByID(ctx context.Context, id string, token string) (*Document, error)
	ListByUser(ctx context.Context, userID string, token string) ([]*Document, error)
	Delete(ctx context.Context, id string, token string) error

	InsertQA(ctx context.Context, entry *QAEntry, token string) (*QAEntry, error)
	ListQA(ctx context.Context, userID, documentID string, token string) ([]*QAEntry, error)
}

// FileStorage stores uploaded files in the object store.
type FileStorage interface {
	Upload(ctx context.Context, path string, file io.Reader, contentType string, token string) (string, error)
	Remove(ctx context.Context, paths []string, token string) error
}

type PDFInfo struct {
	PageCount int
	Title     string
	Author    string
}

// PDFInspector checks that bytes are a readable PDF.
type PDFInspector interface {
	Inspect(data []byte) (*PDFInfo, error)
}

type UploadRequest struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// DocumentService defines the use-case operations for documents.
type DocumentService interface {
	List(ctx context.Context, userID string, token string) ([]*Document, error)
	Upload(ctx context.Context, userID string, req UploadRequest, token string) (*Document, error)
	Delete(ctx context.Context, userID, documentID string, token string) error
	Ask(ctx context.Context, userID string, req AskRequest, token string) (*AskResponse, error)
	History(ctx context.Context, userID, documentID string, token string) ([]*QAEntry, error)
}
