package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// CardIntentRequest describes a card charge to be created at the card processor.
type CardIntentRequest struct {
	Amount   decimal.Decimal
	Currency string
	Metadata map[string]string
}

// CardIntent is the processor's view of a card charge.
type CardIntent struct {
	ID           string
	ClientSecret string
	Amount       decimal.Decimal
	Currency     string
	Status       string
	Metadata     map[string]string
	Card         *CardDetails
	MethodID     string
}

type CardDetails struct {
	Brand    string
	Last4    string
	ExpMonth int
	ExpYear  int
}

// CardGateway is the card-rail processor.
type CardGateway interface {
	CreateIntent(ctx context.Context, req CardIntentRequest) (*CardIntent, error)
	GetIntent(ctx context.Context, id string) (*CardIntent, error)
}

// PayPalOrderRequest describes an order to be created at PayPal.
type PayPalOrderRequest struct {
	Amount      decimal.Decimal
	Currency    string
	Description string
	CustomID    string
}

type PayPalOrder struct {
	ID          string
	Status      string
	ApprovalURL string
}

// PayPalCapture is the result of capturing an approved order.
type PayPalCapture struct {
	OrderID    string
	Status     string
	CaptureID  string
	Amount     decimal.Decimal
	Currency   string
	PayerID    string
	PayerEmail string
}

// PayPalGateway is the PayPal-rail processor.
type PayPalGateway interface {
	CreateOrder(ctx context.Context, req PayPalOrderRequest) (*PayPalOrder, error)
	CaptureOrder(ctx context.Context, orderID string) (*PayPalCapture, error)
}

// CheckoutRequest is what the client asks to buy. Only the plan name and period are taken from it.
type CheckoutRequest struct {
	PlanName      string        `json:"plan_name" validate:"required,max=100"`
	BillingPeriod BillingPeriod `json:"billing_period" validate:"required,oneof=monthly yearly"`
}

type CryptoCheckoutRequest struct {
	CheckoutRequest
	Network PaymentMethodKind `json:"network" validate:"required,oneof=btc eth sol"`
}

type CardCheckout struct {
	OrderID         string          `json:"order_id"`
	PaymentIntentID string          `json:"payment_intent_id"`
	ClientSecret    string          `json:"client_secret"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
}

type PayPalCheckout struct {
	OrderID       string `json:"order_id"`
	PayPalOrderID string `json:"paypal_order_id"`
	ApprovalURL   string `json:"approval_url"`
}

type CryptoCheckout struct {
	OrderID       string            `json:"order_id"`
	Network       PaymentMethodKind `json:"network"`
	WalletAddress string            `json:"wallet_address"`
	Amount        decimal.Decimal   `json:"amount"`
	Currency      string            `json:"currency"`
	ExpiresAt     string            `json:"expires_at"`
}

// CheckoutService drives the three checkout rails.
type CheckoutService interface {
	StartCardCheckout(ctx context.Context, user *SupabaseUser, req CheckoutRequest) (*CardCheckout, error)
	ConfirmCardPayment(ctx context.Context, userID, paymentIntentID string) (*CheckoutResult, error)

	StartPayPalCheckout(ctx context.Context, user *SupabaseUser, req CheckoutRequest) (*PayPalCheckout, error)
	CapturePayPalOrder(ctx context.Context, userID, paypalOrderID string) (*CheckoutResult, error)

	StartCryptoCheckout(ctx context.Context, user *SupabaseUser, req CryptoCheckoutRequest) (*CryptoCheckout, error)
	ConfirmCryptoPayment(ctx context.Context, orderID, transactionRef string) (*CheckoutResult, error)
}
