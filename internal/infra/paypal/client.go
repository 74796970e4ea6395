// Package paypal talks to the PayPal Orders v2 API.
package paypal

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

	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const brandName = "DocuMind AI"

// Client implements domain.PayPalGateway.
type Client struct {
	baseURL    string
	appURL     string
	httpClient *http.Client
	logger     domain.Logger
}

// NewClient returns a client whose HTTP transport fetches and refreshes the
// client-credentials token from /v1/oauth2/token.
func NewClient(clientID, clientSecret, baseURL, appURL string, logger domain.Logger) (*Client, error) {
	if clientID == "" || clientSecret == "" {
		return nil, domain.ErrProviderUnavailable
	}
	baseURL = strings.TrimRight(baseURL, "/")

	creds := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     baseURL + "/v1/oauth2/token",
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: 30 * time.Second})
	httpClient := creds.Client(ctx)
	httpClient.Timeout = 30 * time.Second

	return &Client{
		baseURL:    baseURL,
		appURL:     strings.TrimRight(appURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

type money struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type createOrderBody struct {
	Intent             string             `json:"intent"`
	PurchaseUnits      []purchaseUnit     `json:"purchase_units"`
	ApplicationContext applicationContext `json:"application_context"`
}

type purchaseUnit struct {
	Amount      money  `json:"amount"`
	Description string `json:"description,omitempty"`
	CustomID    string `json:"custom_id,omitempty"`
}

type applicationContext struct {
	BrandName   string `json:"brand_name"`
	LandingPage string `json:"landing_page"`
	UserAction  string `json:"user_action"`
	ReturnURL   string `json:"return_url"`
	CancelURL   string `json:"cancel_url"`
}

type link struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

type orderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []link `json:"links"`
	Payer  struct {
		PayerID      string `json:"payer_id"`
		EmailAddress string `json:"email_address"`
	} `json:"payer"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID     string `json:"id"`
				Status string `json:"status"`
				Amount money  `json:"amount"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

// CreateOrder creates a CAPTURE-intent order and returns the buyer approval link.
func (c *Client) CreateOrder(ctx context.Context, req domain.PayPalOrderRequest) (*domain.PayPalOrder, error) {
	body := createOrderBody{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnit{{
			Amount: money{
				CurrencyCode: strings.ToUpper(req.Currency),
				Value:        req.Amount.StringFixed(2),
			},
			Description: req.Description,
			CustomID:    req.CustomID,
		}},
		ApplicationContext: applicationContext{
			BrandName:   brandName,
			LandingPage: "BILLING",
			UserAction:  "PAY_NOW",
			ReturnURL:   c.appURL + "/checkout/success",
			CancelURL:   c.appURL + "/checkout/cancel",
		},
	}

	var out orderResponse
	if err := c.do(ctx, http.MethodPost, "/v2/checkout/orders", body, &out); err != nil {
		return nil, fmt.Errorf("failed to create paypal order: %w", err)
	}

	order := &domain.PayPalOrder{ID: out.ID, Status: out.Status}
	for _, l := range out.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			order.ApprovalURL = l.Href
			break
		}
	}

	c.logger.Info("PayPal order created", "paypal_order_id", out.ID, "status", out.Status)
	return order, nil
}

// CaptureOrder captures an approved order. A non-COMPLETED status is returned, not treated as an error.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (*domain.PayPalCapture, error) {
	var out orderResponse
	if err := c.do(ctx, http.MethodPost, "/v2/checkout/orders/"+orderID+"/capture", nil, &out); err != nil {
		return nil, fmt.Errorf("failed to capture paypal order: %w", err)
	}

	capture := &domain.PayPalCapture{
		OrderID:    out.ID,
		Status:     out.Status,
		PayerID:    out.Payer.PayerID,
		PayerEmail: out.Payer.EmailAddress,
	}
	if len(out.PurchaseUnits) > 0 && len(out.PurchaseUnits[0].Payments.Captures) > 0 {
		first := out.PurchaseUnits[0].Payments.Captures[0]
		capture.CaptureID = first.ID
		capture.Currency = first.Amount.CurrencyCode
		amount, err := decimal.NewFromString(first.Amount.Value)
		if err != nil {
			return nil, fmt.Errorf("invalid capture amount %q: %w", first.Amount.Value, err)
		}
		capture.Amount = amount
	}

	return capture, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call paypal: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("paypal returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode paypal response: %w", err)
	}
	return nil
}
