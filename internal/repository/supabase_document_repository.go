package repository

import (
	"context"
	"fmt"
	"time"

	"documind-api/internal/domain"

	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"
)

const (
	documentsTable = "documents"
	qaHistoryTable = "qa_history"
)

// SupabaseDocumentRepository implements domain.DocumentRepository and domain.UsageRepository.
// Document reads and writes run as the requesting user so row level security applies.
// Usage counts run on the service-role client and always filter by user_id.
type SupabaseDocumentRepository struct {
	supabaseClient domain.SupabaseClient
	logger         domain.Logger
}

// NewSupabaseDocumentRepository creates a new Supabase document repository
func NewSupabaseDocumentRepository(supabaseClient domain.SupabaseClient, logger domain.Logger) *SupabaseDocumentRepository {
	return &SupabaseDocumentRepository{
		supabaseClient: supabaseClient,
		logger:         logger,
	}
}

type documentInsert struct {
	UserID   string `json:"user_id"`
	Title    string `json:"title"`
	FileName string `json:"file_name"`
	FileSize *int64 `json:"file_size"`
	FileURL  string `json:"file_url"`
}

type qaInsert struct {
	UserID     string `json:"user_id"`
	DocumentID string `json:"document_id"`
	Question   string `json:"question"`
	Answer     string `json:"answer"`
}

func (r *SupabaseDocumentRepository) userClient(token string) (*supabase.Client, error) {
	client, err := r.supabaseClient.GetClientWithToken(token)
	if err != nil {
		return nil, fmt.Errorf("failed to get client with token: %w", err)
	}
	return client, nil
}

// Create inserts the document row and returns it as stored.
func (r *SupabaseDocumentRepository) Create(ctx context.Context, doc *domain.Document, token string) (*domain.Document, error) {
	client, err := r.userClient(token)
	if err != nil {
		return nil, err
	}

	row := documentInsert{
		UserID:   doc.UserID,
		Title:    doc.Title,
		FileName: doc.FileName,
		FileSize: doc.FileSize,
		FileURL:  doc.FileURL,
	}

	var saved domain.Document
	if _, err := client.From(documentsTable).
		Insert(row, false, "", "representation", "").
		Single().
		ExecuteTo(&saved); err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	saved.PageCount = doc.PageCount
	return &saved, nil
}

// GetByID retrieves a document by ID
func (r *SupabaseDocumentRepository) GetByID(ctx context.Context, id string, token string) (*domain.Document, error) {
	client, err := r.userClient(token)
	if err != nil {
		return nil, err
	}

	var documents []*domain.Document
	if _, err := client.From(documentsTable).
		Select("*", "", false).
		Eq("id", id).
		ExecuteTo(&documents); err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	if len(documents) == 0 {
		return nil, domain.ErrDocumentNotFound
	}
	return documents[0], nil
}

// ListByUser returns the user's documents, newest first.
func (r *SupabaseDocumentRepository) ListByUser(ctx context.Context, userID string, token string) ([]*domain.Document, error) {
	client, err := r.userClient(token)
	if err != nil {
		return nil, err
	}

	documents := []*domain.Document{}
	if _, err := client.From(documentsTable).
		Select("*", "", false).
		Eq("user_id", userID).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		ExecuteTo(&documents); err != nil {
		return nil, fmt.Errorf("failed to get documents: %w", err)
	}
	return documents, nil
}

// Delete deletes a document row. Q&A history cascades in the database.
func (r *SupabaseDocumentRepository) Delete(ctx context.Context, id string, token string) error {
	client, err := r.userClient(token)
	if err != nil {
		return err
	}

	if _, _, err := client.From(documentsTable).
		Delete("", "").
		Eq("id", id).
		Execute(); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

func (r *SupabaseDocumentRepository) InsertQA(ctx context.Context, entry *domain.QAEntry, token string) (*domain.QAEntry, error) {
	client, err := r.userClient(token)
	if err != nil {
		return nil, err
	}

	row := qaInsert{
		UserID:     entry.UserID,
		DocumentID: entry.DocumentID,
		Question:   entry.Question,
		Answer:     entry.Answer,
	}

	var saved domain.QAEntry
	if _, err := client.From(qaHistoryTable).
		Insert(row, false, "", "representation", "").
		Single().
		ExecuteTo(&saved); err != nil {
		return nil, fmt.Errorf("failed to save q&a history: %w", err)
	}
	return &saved, nil
}

// ListQA returns the questions asked about a document, newest first.
func (r *SupabaseDocumentRepository) ListQA(ctx context.Context, userID, documentID string, token string) ([]*domain.QAEntry, error) {
	client, err := r.userClient(token)
	if err != nil {
		return nil, err
	}

	entries := []*domain.QAEntry{}
	if _, err := client.From(qaHistoryTable).
		Select("*", "", false).
		Eq("user_id", userID).
		Eq("document_id", documentID).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		ExecuteTo(&entries); err != nil {
		return nil, fmt.Errorf("failed to get q&a history: %w", err)
	}
	return entries, nil
}

func (r *SupabaseDocumentRepository) CountDocuments(ctx context.Context, userID string) (int64, error) {
	client, err := r.supabaseClient.ServiceRoleClient()
	if err != nil {
		return 0, err
	}

	_, count, err := client.From(documentsTable).
		Select("id", "exact", true).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

// CountQuestionsSince counts qa_history rows created at or after since.
func (r *SupabaseDocumentRepository) CountQuestionsSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	client, err := r.supabaseClient.ServiceRoleClient()
	if err != nil {
		return 0, err
	}

	_, count, err := client.From(qaHistoryTable).
		Select("id", "exact", true).
		Eq("user_id", userID).
		Gte("created_at", since.UTC().Format(time.RFC3339)).
		Execute()
	if err != nil {
		return 0, fmt.Errorf("failed to count questions: %w", err)
	}
	return count, nil
}

// SumStorageBytes adds up file_size over the user's documents. Missing sizes count as zero.
func (r *SupabaseDocumentRepository) SumStorageBytes(ctx context.Context, userID string) (int64, error) {
	client, err := r.supabaseClient.ServiceRoleClient()
	if err != nil {
		return 0, err
	}

	var sizes []struct {
		FileSize *int64 `json:"file_size"`
	}
	if _, err := client.From(documentsTable).
		Select("file_size", "", false).
		Eq("user_id", userID).
		ExecuteTo(&sizes); err != nil {
		return 0, fmt.Errorf("failed to sum storage: %w", err)
	}

	var total int64
	for _, s := range sizes {
		if s.FileSize != nil {
			total += *s.FileSize
		}
	}
	return total, nil
}
