// Package telegram sends contact form messages through the Telegram Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"documind-api/internal/domain"
)

const DefaultBaseURL = "https://api.telegram.org"

// APIError is the error body Telegram returns with ok=false.
type APIError struct {
	ErrorCode   int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram API error %d: %s", e.ErrorCode, e.Description)
}

// Client implements domain.ContactNotifier.
type Client struct {
	chatID     string
	baseURL    string
	httpClient *http.Client
	logger     domain.Logger
}

// NewClient returns domain.ErrContactUnavailable when the bot token or chat id is missing.
func NewClient(botToken, chatID, baseURL string, logger domain.Logger) (*Client, error) {
	if botToken == "" || chatID == "" {
		return nil, domain.ErrContactUnavailable
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		chatID:  chatID,
		baseURL: fmt.Sprintf("%s/bot%s", strings.TrimRight(baseURL, "/"), botToken),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}, nil
}

func (c *Client) SendContact(ctx context.Context, msg domain.ContactMessage) error {
	return c.sendMarkdown(ctx, formatContact(msg))
}

func formatContact(msg domain.ContactMessage) string {
	var b strings.Builder
	b.WriteString("📧 *New Contact Form Submission*\n\n")
	fmt.Fprintf(&b, "👤 *Name:* %s\n", escapeMarkdown(msg.Name))
	fmt.Fprintf(&b, "📮 *Email:* %s\n", escapeMarkdown(msg.Email))
	fmt.Fprintf(&b, "💬 *Message:*\n%s\n\n", escapeMarkdown(msg.Message))
	b.WriteString("_Sent from DocuMind AI Contact Form_")
	return b.String()
}

// escapeMarkdown escapes the Markdown (v1) control characters _ * ` [.
func escapeMarkdown(s string) string {
	return strings.NewReplacer(`_`, `\_`, `*`, `\*`, "`", "\\`", `[`, `\[`).Replace(s)
}

func (c *Client) sendMarkdown(ctx context.Context, text string) error {
	body, err := json.Marshal(map[string]any{
		"chat_id":    c.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sendMessage", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var result struct {
		OK          bool   `json:"ok"`
		ErrorCode   int    `json:"error_code"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || !result.OK {
		apiErr := &APIError{ErrorCode: result.ErrorCode, Description: result.Description}
		if apiErr.ErrorCode == 0 {
			apiErr.ErrorCode = resp.StatusCode
		}
		c.logger.Warn("Telegram rejected message", "status", resp.StatusCode, "description", result.Description)
		return apiErr
	}
	return nil
}
