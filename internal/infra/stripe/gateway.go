// Package stripe adapts the Stripe PaymentIntents API to domain.CardGateway.
package stripe

import (
	"context"
	"fmt"
	"strings"

	"documind-api/internal/domain"

	"github.com/shopspring/decimal"
	stripeapi "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/paymentintent"
)

// Gateway implements domain.CardGateway.
type Gateway struct {
	intents paymentintent.Client
	logger  domain.Logger
}

// NewGateway creates a gateway for the given secret key. baseURL is only set in tests.
func NewGateway(secretKey, baseURL string, logger domain.Logger) (*Gateway, error) {
	if secretKey == "" {
		return nil, domain.ErrProviderUnavailable
	}

	cfg := &stripeapi.BackendConfig{
		LeveledLogger: &leveledLogger{log: logger},
	}
	if baseURL != "" {
		cfg.URL = stripeapi.String(baseURL)
		cfg.MaxNetworkRetries = stripeapi.Int64(0)
	}

	return &Gateway{
		intents: paymentintent.Client{
			B:   stripeapi.GetBackendWithConfig(stripeapi.APIBackend, cfg),
			Key: secretKey,
		},
		logger: logger,
	}, nil
}

// CreateIntent creates a PaymentIntent with automatic payment methods enabled.
func (g *Gateway) CreateIntent(ctx context.Context, req domain.CardIntentRequest) (*domain.CardIntent, error) {
	params := &stripeapi.PaymentIntentParams{
		Amount:   stripeapi.Int64(toMinorUnits(req.Amount)),
		Currency: stripeapi.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripeapi.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripeapi.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := g.intents.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	g.logger.Info("Payment intent created", "payment_intent_id", pi.ID, "amount", pi.Amount)
	return toCardIntent(pi), nil
}

// GetIntent retrieves a PaymentIntent with its payment method expanded.
func (g *Gateway) GetIntent(ctx context.Context, id string) (*domain.CardIntent, error) {
	params := &stripeapi.PaymentIntentParams{}
	params.Context = ctx
	params.AddExpand("payment_method")

	pi, err := g.intents.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve payment intent: %w", err)
	}
	return toCardIntent(pi), nil
}

func toCardIntent(pi *stripeapi.PaymentIntent) *domain.CardIntent {
	intent := &domain.CardIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       fromMinorUnits(pi.Amount),
		Currency:     strings.ToUpper(string(pi.Currency)),
		Status:       string(pi.Status),
		Metadata:     pi.Metadata,
	}

	if pm := pi.PaymentMethod; pm != nil {
		intent.MethodID = pm.ID
		if pm.Card != nil {
			intent.Card = &domain.CardDetails{
				Brand:    string(pm.Card.Brand),
				Last4:    pm.Card.Last4,
				ExpMonth: int(pm.Card.ExpMonth),
				ExpYear:  int(pm.Card.ExpYear),
			}
		}
	}
	return intent
}

func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func fromMinorUnits(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}

// leveledLogger routes stripe-go's own logging into the application logger.
type leveledLogger struct {
	log domain.Logger
}

func (l *leveledLogger) Debugf(format string, v ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, v...))
}

func (l *leveledLogger) Infof(format string, v ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, v...))
}

func (l *leveledLogger) Warnf(format string, v ...interface{}) {
	l.log.Warn(fmt.Sprintf(format, v...))
}

func (l *leveledLogger) Errorf(format string, v ...interface{}) {
	l.log.Error(fmt.Sprintf(format, v...), nil)
}
