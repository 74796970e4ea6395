// Package aiqna is the HTTP client for the external document Q&A backend.
package aiqna

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"documind-api/internal/domain"
)

// NoAnswer is used when the backend responds without an answer.
const NoAnswer = "No answer received from backend."

// Client implements domain.AIBackend.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     domain.Logger
}

func NewClient(endpoint string, logger domain.Logger) *Client {
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
	}
}

type queryRequest struct {
	Question   string `json:"question"`
	DocumentID string `json:"document_id"`
	UserID     string `json:"user_id"`
}

type queryResponse struct {
	Answer string `json:"answer"`
}

// Query asks the backend a question scoped to one document.
func (c *Client) Query(ctx context.Context, userID, documentID, question string) (string, error) {
	payload, err := json.Marshal(queryRequest{Question: question, DocumentID: documentID, UserID: userID})
	if err != nil {
		return "", fmt.Errorf("failed to marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/query", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", userID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrAIBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: backend returned %d", domain.ErrAIBackendUnavailable, resp.StatusCode)
	}

	var out queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode query response: %w", err)
	}
	if out.Answer == "" {
		return NoAnswer, nil
	}
	return out.Answer, nil
}

// Ingest forwards an uploaded PDF to the backend's /upload endpoint.
func (c *Client) Ingest(ctx context.Context, in domain.IngestRequest) error {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	part, err := w.CreateFormFile("file", in.FileName)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, in.File); err != nil {
		return fmt.Errorf("failed to copy file: %w", err)
	}

	fields := map[string]string{
		"user_id":     in.UserID,
		"document_id": in.DocumentID,
		"title":       in.Title,
		"file_size":   strconv.FormatInt(in.FileSize, 10),
		"file_url":    in.FileURL,
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return fmt.Errorf("failed to write field %s: %w", k, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/upload", &body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("X-User-ID", in.UserID)

	return c.send(req)
}

// DeleteDocument drops the document's vectors from the backend.
func (c *Client) DeleteDocument(ctx context.Context, userID, documentID string) error {
	u := fmt.Sprintf("%s/documents/%s?user_id=%s", c.endpoint, url.PathEscape(documentID), url.QueryEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-User-ID", userID)

	return c.send(req)
}

func (c *Client) send(req *http.Request) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrAIBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: backend returned %d: %s", domain.ErrAIBackendUnavailable, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
