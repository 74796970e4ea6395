package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// FreePlanName is the plan users are enrolled on when they have no active subscription.
const FreePlanName = "Free"

// DefaultCurrency is used for ledger entries and orders when the provider reports none.
const DefaultCurrency = "USD"

type BillingPeriod string

const (
	BillingPeriodMonthly BillingPeriod = "monthly"
	BillingPeriodYearly  BillingPeriod = "yearly"
)

// Valid reports whether the billing period is one we can charge for.
func (p BillingPeriod) Valid() bool {
	return p == BillingPeriodMonthly || p == BillingPeriodYearly
}

// PeriodEnd returns the end of a billing window that starts at start.
func (p BillingPeriod) PeriodEnd(start time.Time) time.Time {
	if p == BillingPeriodYearly {
		return start.AddDate(1, 0, 0)
	}
	return start.AddDate(0, 1, 0)
}

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusPastDue   SubscriptionStatus = "past_due"
)

type BillingStatus string

const (
	BillingStatusPending  BillingStatus = "pending"
	BillingStatusPaid     BillingStatus = "paid"
	BillingStatusFailed   BillingStatus = "failed"
	BillingStatusRefunded BillingStatus = "refunded"
)

type PaymentMethodKind string

const (
	PaymentMethodCard   PaymentMethodKind = "card"
	PaymentMethodPayPal PaymentMethodKind = "paypal"
	PaymentMethodBTC    PaymentMethodKind = "btc"
	PaymentMethodETH    PaymentMethodKind = "eth"
	PaymentMethodSOL    PaymentMethodKind = "sol"
)

// IsCrypto reports whether the kind is one of the wallet networks.
func (k PaymentMethodKind) IsCrypto() bool {
	return k == PaymentMethodBTC || k == PaymentMethodETH || k == PaymentMethodSOL
}

const (
	ProviderStripe = "stripe"
	ProviderPayPal = "paypal"
	ProviderCrypto = "crypto"
)

// Plan is a subscription tier. Nil limits mean unlimited.
type Plan struct {
	ID                   string          `json:"id"`
	Name                 string          `json:"name"`
	Description          string          `json:"description"`
	PriceMonthly         decimal.Decimal `json:"price_monthly"`
	PriceYearly          decimal.Decimal `json:"price_yearly"`
	MaxDocuments         *int64          `json:"max_documents"`
	MaxQuestionsPerMonth *int64          `json:"max_questions_per_month"`
	MaxStorageBytes      *int64          `json:"max_storage_bytes"`
	Features             []string        `json:"features"`
	IsActive             bool            `json:"is_active"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// Price returns the plan price for the given billing period.
func (p *Plan) Price(period BillingPeriod) decimal.Decimal {
	if period == BillingPeriodYearly {
		return p.PriceYearly
	}
	return p.PriceMonthly
}

// Subscription is a user's enrollment in a plan. There is at most one row per user.
type Subscription struct {
	ID                   string             `json:"id"`
	UserID               string             `json:"user_id"`
	PlanID               string             `json:"plan_id"`
	BillingPeriod        BillingPeriod      `json:"billing_period"`
	Status               SubscriptionStatus `json:"status"`
	CurrentPeriodStart   time.Time          `json:"current_period_start"`
	CurrentPeriodEnd     time.Time          `json:"current_period_end"`
	CancelAtPeriodEnd    bool               `json:"cancel_at_period_end"`
	CancelledAt          *time.Time         `json:"cancelled_at,omitempty"`
	StripeSubscriptionID *string            `json:"stripe_subscription_id,omitempty"`
	StripeCustomerID     *string            `json:"stripe_customer_id,omitempty"`
	PayPalSubscriptionID *string            `json:"paypal_subscription_id,omitempty"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`

	Plan *Plan `json:"plan,omitempty"`
}

// BillingHistoryEntry is one charge attempt. Entries are never updated.
type BillingHistoryEntry struct {
	ID                    string                 `json:"id"`
	UserID                string                 `json:"user_id"`
	SubscriptionID        *string                `json:"subscription_id,omitempty"`
	PlanID                string                 `json:"plan_id"`
	Amount                decimal.Decimal        `json:"amount"`
	Currency              string                 `json:"currency"`
	BillingPeriod         BillingPeriod          `json:"billing_period"`
	PaymentMethod         PaymentMethodKind      `json:"payment_method"`
	PaymentProvider       string                 `json:"payment_provider"`
	ProviderTransactionID string                 `json:"provider_transaction_id"`
	Status                BillingStatus          `json:"status"`
	InvoiceURL            *string                `json:"invoice_url,omitempty"`
	Metadata              map[string]interface{} `json:"metadata,omitempty"`
	PaidAt                *time.Time             `json:"paid_at,omitempty"`
	CreatedAt             time.Time              `json:"created_at"`
}

// PaymentMethod is a saved instrument. Rows are soft deleted.
type PaymentMethod struct {
	ID                      string                 `json:"id"`
	UserID                  string                 `json:"user_id"`
	Type                    PaymentMethodKind      `json:"type"`
	Provider                string                 `json:"provider"`
	ProviderPaymentMethodID string                 `json:"provider_payment_method_id"`
	IsDefault               bool                   `json:"is_default"`
	CardBrand               *string                `json:"card_brand,omitempty"`
	CardLast4               *string                `json:"card_last4,omitempty"`
	CardExpMonth            *int                   `json:"card_exp_month,omitempty"`
	CardExpYear             *int                   `json:"card_exp_year,omitempty"`
	PayPalEmail             *string                `json:"paypal_email,omitempty"`
	CryptoAddress           *string                `json:"crypto_address,omitempty"`
	Metadata                map[string]interface{} `json:"metadata,omitempty"`
	DeletedAt               *time.Time             `json:"-"`
	CreatedAt               time.Time              `json:"created_at"`
	UpdatedAt               time.Time              `json:"updated_at"`
}

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusExpired   OrderStatus = "expired"
)

// CheckoutOrder is the server-held record of what a checkout is paying for.
// Plan, period and amount are pinned when the order is created.
type CheckoutOrder struct {
	ID                    string            `json:"id"`
	UserID                string            `json:"user_id"`
	PlanID                string            `json:"plan_id"`
	PlanName              string            `json:"plan_name"`
	BillingPeriod         BillingPeriod     `json:"billing_period"`
	Amount                decimal.Decimal   `json:"amount"`
	Currency              string            `json:"currency"`
	Provider              string            `json:"provider"`
	PaymentMethod         PaymentMethodKind `json:"payment_method"`
	ProviderOrderID       string            `json:"provider_order_id"`
	ProviderTransactionID *string           `json:"provider_transaction_id,omitempty"`
	Status                OrderStatus       `json:"status"`
	ExpiresAt             time.Time         `json:"expires_at"`
	CompletedAt           *time.Time        `json:"completed_at,omitempty"`
	CreatedAt             time.Time         `json:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at"`
}

// IsExpired reports whether a pending order can no longer be paid.
func (o *CheckoutOrder) IsExpired(now time.Time) bool {
	return o.Status == OrderStatusPending && now.After(o.ExpiresAt)
}

// UsageSnapshot is computed on demand, never stored.
type UsageSnapshot struct {
	DocumentsUsed          int64 `json:"documents_used"`
	QuestionsUsedThisMonth int64 `json:"questions_used_this_month"`
	StorageUsed            int64 `json:"storage_used"`
}

// LimitDecision tells callers whether an upload or a question is allowed.
type LimitDecision struct {
	PlanName               string `json:"plan_name,omitempty"`
	CanUploadDocument      bool   `json:"can_upload_document"`
	CanAskQuestion         bool   `json:"can_ask_question"`
	MaxDocuments           *int64 `json:"max_documents"`
	MaxQuestionsPerMonth   *int64 `json:"max_questions_per_month"`
	MaxStorageBytes        *int64 `json:"max_storage_bytes"`
	DocumentsUsed          int64  `json:"documents_used"`
	QuestionsUsedThisMonth int64  `json:"questions_used_this_month"`
	StorageUsed            int64  `json:"storage_used"`
}

// SafeDenyDecision is returned whenever the plan or usage cannot be resolved.
func SafeDenyDecision() LimitDecision {
	zero := int64(0)
	maxDocs, maxQuestions, maxStorage := zero, zero, zero
	return LimitDecision{
		MaxDocuments:         &maxDocs,
		MaxQuestionsPerMonth: &maxQuestions,
		MaxStorageBytes:      &maxStorage,
	}
}

// CanStore reports whether size more bytes fit in the storage allowance.
func (d LimitDecision) CanStore(size int64) bool {
	if d.MaxStorageBytes == nil {
		return true
	}
	return d.StorageUsed+size <= *d.MaxStorageBytes
}

// Charge is a provider-confirmed payment.
type Charge struct {
	ID       string          `json:"id"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Status   string          `json:"status"`
}

// Activation is everything written when a paid order turns into an active subscription.
type Activation struct {
	Order         *CheckoutOrder
	Charge        Charge
	PaymentMethod *PaymentMethod
	Metadata      map[string]interface{}
}

// CheckoutResult is returned to the client after confirm or capture.
type CheckoutResult struct {
	Success      bool              `json:"success"`
	Status       string            `json:"status,omitempty"`
	OrderID      string            `json:"order_id"`
	Subscription *SubscriptionView `json:"subscription,omitempty"`
	Charge       *Charge           `json:"charge,omitempty"`
}

type SubscriptionView struct {
	ID               string             `json:"id"`
	PlanName         string             `json:"plan_name"`
	Status           SubscriptionStatus `json:"status"`
	BillingPeriod    BillingPeriod      `json:"billing_period"`
	CurrentPeriodEnd time.Time          `json:"current_period_end"`
}

// SweepResult counts rows moved by a lifecycle sweep.
type SweepResult struct {
	Cancelled     int64 `json:"cancelled"`
	Expired       int64 `json:"expired"`
	OrdersExpired int64 `json:"orders_expired"`
}

// BillingStore is the set of billing writes that can share a transaction.
type BillingStore interface {
	GetPlanByID(ctx context.Context, id string) (*Plan, error)
	GetPlanByName(ctx context.Context, name string) (*Plan, error)
	UpsertSubscription(ctx context.Context, sub *Subscription) (*Subscription, error)
	InsertBillingEntry(ctx context.Context, entry *BillingHistoryEntry) (*BillingHistoryEntry, error)
	UpsertPaymentMethod(ctx context.Context, pm *PaymentMethod) (*PaymentMethod, error)
	CreateOrder(ctx context.Context, order *CheckoutOrder) (*CheckoutOrder, error)
	// CompleteOrder marks a pending or expired order completed. ErrOrderNotPending otherwise.
	CompleteOrder(ctx context.Context, orderID, transactionID string, at time.Time) error
}

// BillingRepository persists plans, subscriptions, the ledger, payment methods and orders.
type BillingRepository interface {
	BillingStore

	// WithTx runs fn inside a single transaction.
	WithTx(ctx context.Context, fn func(store BillingStore) error) error

	ListActivePlans(ctx context.Context) ([]*Plan, error)
	GetActiveSubscription(ctx context.Context, userID string) (*Subscription, error)
	// EnsureSubscription inserts sub unless the user already has an active row, and returns the user's row.
	EnsureSubscription(ctx context.Context, sub *Subscription) (*Subscription, error)
	CancelSubscription(ctx context.Context, userID string, at time.Time) (*Subscription, error)

	ListBillingHistory(ctx context.Context, userID string, limit int) ([]*BillingHistoryEntry, error)

	ListPaymentMethods(ctx context.Context, userID string) ([]*PaymentMethod, error)
	GetPaymentMethod(ctx context.Context, id string) (*PaymentMethod, error)
	DeletePaymentMethod(ctx context.Context, id string, at time.Time) error
	SetDefaultPaymentMethod(ctx context.Context, id string) error

	GetOrder(ctx context.Context, id string) (*CheckoutOrder, error)
	GetOrderByProviderRef(ctx context.Context, provider, providerOrderID string) (*CheckoutOrder, error)
	SetOrderProviderRef(ctx context.Context, orderID, providerOrderID string) error
	RecordOrderTransaction(ctx context.Context, orderID, transactionID string) error

	SweepSubscriptions(ctx context.Context, now time.Time) (*SweepResult, error)
}

// PlanCache caches the active plan catalog.
type PlanCache interface {
	GetPlans(ctx context.Context) ([]*Plan, error)
	SetPlans(ctx context.Context, plans []*Plan) error
	Invalidate(ctx context.Context) error
}

// UsageRepository reads the document and Q&A corpus for usage counting.
type UsageRepository interface {
	CountDocuments(ctx context.Context, userID string) (int64, error)
	CountQuestionsSince(ctx context.Context, userID string, since time.Time) (int64, error)
	SumStorageBytes(ctx context.Context, userID string) (int64, error)
}

// LimitService evaluates plan limits against current usage.
type LimitService interface {
	Evaluate(ctx context.Context, userID string) LimitDecision
}

// SubscriptionService covers the plan catalog, the user's subscription and billing records.
type SubscriptionService interface {
	ListPlans(ctx context.Context) ([]*Plan, error)
	GetSubscription(ctx context.Context, userID string) (*Subscription, error)
	Cancel(ctx context.Context, userID string) (*Subscription, error)
	BillingHistory(ctx context.Context, userID string) ([]*BillingHistoryEntry, error)
	PaymentMethods(ctx context.Context, userID string) ([]*PaymentMethod, error)
	DeletePaymentMethod(ctx context.Context, userID, id string) error
	SetDefaultPaymentMethod(ctx context.Context, userID, id string) error
	Sweep(ctx context.Context) (*SweepResult, error)
}
