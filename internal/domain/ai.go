package domain

import (
	"context"
	"io"
)

// AskRequest is a question about one of the user's documents.
type AskRequest struct {
	DocumentID string `json:"document_id" validate:"required"`
	Question   string `json:"question" validate:"required,max=2000"`
}

type AskResponse struct {
	Answer     string `json:"answer"`
	QAID       string `json:"qa_id,omitempty"`
	DocumentID string `json:"document_id"`
}

// IngestRequest carries an uploaded document to the AI backend.
type IngestRequest struct {
	UserID     string
	DocumentID string
	Title      string
	FileName   string
	FileSize   int64
	FileURL    string
	File       io.Reader
}

// AIBackend is the external Q&A service that owns extraction, embeddings and answer generation.
type AIBackend interface {
	Query(ctx context.Context, userID, documentID, question string) (string, error)
	Ingest(ctx context.Context, req IngestRequest) error
	DeleteDocument(ctx context.Context, userID, documentID string) error
}
