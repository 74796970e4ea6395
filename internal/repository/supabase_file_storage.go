package repository

import (
	"context"
	"fmt"
	"io"

	"documind-api/internal/domain"

	storage_go "github.com/supabase-community/storage-go"
)

// DocumentsBucket is the storage bucket holding uploaded PDFs.
const DocumentsBucket = "documents"

// SupabaseFileStorage implements domain.FileStorage on Supabase Storage.
type SupabaseFileStorage struct {
	supabaseClient domain.SupabaseClient
	bucket         string
	logger         domain.Logger
}

func NewSupabaseFileStorage(supabaseClient domain.SupabaseClient, logger domain.Logger) *SupabaseFileStorage {
	return &SupabaseFileStorage{
		supabaseClient: supabaseClient,
		bucket:         DocumentsBucket,
		logger:         logger,
	}
}

// Upload stores the file at path and returns its public URL. Existing objects are not overwritten.
func (s *SupabaseFileStorage) Upload(ctx context.Context, path string, file io.Reader, contentType string, token string) (string, error) {
	client, err := s.supabaseClient.GetClientWithToken(token)
	if err != nil {
		return "", fmt.Errorf("failed to get client with token: %w", err)
	}

	upsert := false
	if _, err := client.Storage.UploadFile(s.bucket, path, file, storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	}); err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}

	return client.Storage.GetPublicUrl(s.bucket, path).SignedURL, nil
}

func (s *SupabaseFileStorage) Remove(ctx context.Context, paths []string, token string) error {
	client, err := s.supabaseClient.GetClientWithToken(token)
	if err != nil {
		return fmt.Errorf("failed to get client with token: %w", err)
	}

	if _, err := client.Storage.RemoveFile(s.bucket, paths); err != nil {
		return fmt.Errorf("failed to remove files: %w", err)
	}
	s.logger.Debug("Removed storage objects", "count", len(paths))
	return nil
}
