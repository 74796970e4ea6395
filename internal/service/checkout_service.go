package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"documind-api/internal/domain"
	apperrors "documind-api/pkg/errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	cardStatusSucceeded     = "succeeded"
	paypalStatusCompleted   = "COMPLETED"
	defaultCheckoutOrderTTL = 30 * time.Minute
)

type CheckoutService struct {
	billing  domain.BillingRepository
	cards    domain.CardGateway
	paypal   domain.PayPalGateway
	wallets  map[domain.PaymentMethodKind]string
	orderTTL time.Duration
	logger   domain.Logger
	now      func() time.Time
}

// NewCheckoutService wires the three rails. A nil gateway turns its rail off.
func NewCheckoutService(
	billing domain.BillingRepository,
	cards domain.CardGateway,
	paypal domain.PayPalGateway,
	wallets map[domain.PaymentMethodKind]string,
	orderTTL time.Duration,
	logger domain.Logger,
) *CheckoutService {
	if orderTTL <= 0 {
		orderTTL = defaultCheckoutOrderTTL
	}
	return &CheckoutService{
		billing:  billing,
		cards:    cards,
		paypal:   paypal,
		wallets:  wallets,
		orderTTL: orderTTL,
		logger:   logger,
		now:      time.Now,
	}
}

// purchasablePlan resolves the requested plan from the catalog. Price always comes from here.
func (s *CheckoutService) purchasablePlan(ctx context.Context, req domain.CheckoutRequest) (*domain.Plan, error) {
	if err := ValidateStruct(req); err != nil {
		return nil, err
	}
	plan, err := s.billing.GetPlanByName(ctx, req.PlanName)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(plan.Name, domain.FreePlanName) || !plan.Price(req.BillingPeriod).IsPositive() {
		return nil, domain.ErrFreePlanNotPurchasable
	}
	return plan, nil
}

func (s *CheckoutService) newOrder(user *domain.SupabaseUser, plan *domain.Plan, period domain.BillingPeriod, provider string, kind domain.PaymentMethodKind) *domain.CheckoutOrder {
	return &domain.CheckoutOrder{
		ID:            uuid.NewString(),
		UserID:        user.ID,
		PlanID:        plan.ID,
		PlanName:      plan.Name,
		BillingPeriod: period,
		Amount:        plan.Price(period),
		Currency:      domain.DefaultCurrency,
		Provider:      provider,
		PaymentMethod: kind,
		ExpiresAt:     s.now().UTC().Add(s.orderTTL),
	}
}

// Card

func (s *CheckoutService) StartCardCheckout(ctx context.Context, user *domain.SupabaseUser, req domain.CheckoutRequest) (*domain.CardCheckout, error) {
	if user == nil {
		return nil, apperrors.NewUnauthorizedError("Unauthorized")
	}
	if s.cards == nil {
		return nil, domain.ErrProviderUnavailable
	}
	plan, err := s.purchasablePlan(ctx, req)
	if err != nil {
		return nil, err
	}

	order := s.newOrder(user, plan, req.BillingPeriod, domain.ProviderStripe, domain.PaymentMethodCard)
	intent, err := s.cards.CreateIntent(ctx, domain.CardIntentRequest{
		Amount:   order.Amount,
		Currency: order.Currency,
		Metadata: map[string]string{
			"user_id":        user.ID,
			"user_email":     user.Email,
			"order_id":       order.ID,
			"plan_name":      plan.Name,
			"billing_period": string(req.BillingPeriod),
		},
	})
	if err != nil {
		s.logger.Error("Failed to create payment intent", err, "user_id", user.ID, "plan", plan.Name)
		return nil, apperrors.NewNetworkError("Failed to create payment intent", err)
	}

	order.ProviderOrderID = intent.ID
	saved, err := s.billing.CreateOrder(ctx, order)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Card checkout started", "user_id", user.ID, "order_id", saved.ID, "payment_intent_id", intent.ID)
	return &domain.CardCheckout{
		OrderID:         saved.ID,
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		Amount:          saved.Amount,
		Currency:        saved.Currency,
	}, nil
}

func (s *CheckoutService) ConfirmCardPayment(ctx context.Context, userID, paymentIntentID string) (*domain.CheckoutResult, error) {
	if userID == "" {
		return nil, apperrors.NewUnauthorizedError("Unauthorized")
	}
	if paymentIntentID == "" {
		return nil, apperrors.NewValidationError("payment_intent_id is required")
	}
	if s.cards == nil {
		return nil, domain.ErrProviderUnavailable
	}

	order, err := s.billing.GetOrderByProviderRef(ctx, domain.ProviderStripe, paymentIntentID)
	if err != nil {
		return nil, err
	}
	if res, done, err := s.claimOrder(ctx, order, userID); done || err != nil {
		return res, err
	}

	// The client secret outlives the order, so the intent decides before the TTL does.
	intent, err := s.cards.GetIntent(ctx, paymentIntentID)
	if err != nil {
		s.logger.Error("Failed to retrieve payment intent", err, "payment_intent_id", paymentIntentID)
		return nil, apperrors.NewNetworkError("Failed to retrieve payment intent", err)
	}
	if intent.Metadata["user_id"] != userID {
		s.logger.Warn("Payment intent belongs to another user", "payment_intent_id", paymentIntentID, "user_id", userID)
		return nil, domain.ErrAccessDenied
	}
	if intent.Status != cardStatusSucceeded {
		if err := s.requireOpen(order); err != nil {
			return nil, err
		}
		return &domain.CheckoutResult{Success: false, Status: intent.Status, OrderID: order.ID}, nil
	}
	if err := s.matchCharge(order, intent.ID, intent.Amount, intent.Currency); err != nil {
		return nil, err
	}
	if order.Status == domain.OrderStatusExpired || order.IsExpired(s.now()) {
		s.logger.Warn("Activating expired order with a settled charge", "order_id", order.ID, "payment_intent_id", intent.ID)
	}

	act := domain.Activation{
		Order: order,
		Charge: domain.Charge{
			ID:       intent.ID,
			Amount:   intent.Amount,
			Currency: intent.Currency,
			Status:   intent.Status,
		},
		Metadata: map[string]interface{}{"order_id": order.ID, "payment_intent_id": intent.ID},
	}
	if intent.Card != nil && intent.MethodID != "" {
		act.PaymentMethod = &domain.PaymentMethod{
			UserID:                  userID,
			Type:                    domain.PaymentMethodCard,
			Provider:                domain.ProviderStripe,
			ProviderPaymentMethodID: intent.MethodID,
			IsDefault:               true,
			CardBrand:               stringPtr(intent.Card.Brand),
			CardLast4:               stringPtr(intent.Card.Last4),
			CardExpMonth:            intPtr(intent.Card.ExpMonth),
			CardExpYear:             intPtr(intent.Card.ExpYear),
		}
	}
	return s.activate(ctx, act)
}

// PayPal

func (s *CheckoutService) StartPayPalCheckout(ctx context.Context, user *domain.SupabaseUser, req domain.CheckoutRequest) (*domain.PayPalCheckout, error) {
	if user == nil {
		return nil, apperrors.NewUnauthorizedError("Unauthorized")
	}
	if s.paypal == nil {
		return nil, domain.ErrProviderUnavailable
	}
	plan, err := s.purchasablePlan(ctx, req)
	if err != nil {
		return nil, err
	}

	order, err := s.billing.CreateOrder(ctx, s.newOrder(user, plan, req.BillingPeriod, domain.ProviderPayPal, domain.PaymentMethodPayPal))
	if err != nil {
		return nil, err
	}

	ppOrder, err := s.paypal.CreateOrder(ctx, domain.PayPalOrderRequest{
		Amount:      order.Amount,
		Currency:    order.Currency,
		Description: plan.Name,
		CustomID:    order.ID,
	})
	if err != nil {
		s.logger.Error("Failed to create PayPal order", err, "user_id", user.ID, "order_id", order.ID)
		return nil, apperrors.NewNetworkError("Failed to create PayPal order", err)
	}

	if err := s.billing.SetOrderProviderRef(ctx, order.ID, ppOrder.ID); err != nil {
		return nil, err
	}

	s.logger.Info("PayPal checkout started", "user_id", user.ID, "order_id", order.ID, "paypal_order_id", ppOrder.ID)
	return &domain.PayPalCheckout{
		OrderID:       order.ID,
		PayPalOrderID: ppOrder.ID,
		ApprovalURL:   ppOrder.ApprovalURL,
	}, nil
}

func (s *CheckoutService) CapturePayPalOrder(ctx context.Context, userID, paypalOrderID string) (*domain.CheckoutResult, error) {
	if userID == "" {
		return nil, apperrors.NewUnauthorizedError("Unauthorized")
	}
	if s.paypal == nil {
		return nil, domain.ErrProviderUnavailable
	}

	order, err := s.billing.GetOrderByProviderRef(ctx, domain.ProviderPayPal, paypalOrderID)
	if err != nil {
		return nil, err
	}
	if res, done, err := s.claimOrder(ctx, order, userID); done || err != nil {
		return res, err
	}

	// Captured earlier but never activated. PayPal refuses a second capture, and the money is already taken.
	if order.ProviderTransactionID != nil && *order.ProviderTransactionID != "" {
		return s.activate(ctx, domain.Activation{
			Order: order,
			Charge: domain.Charge{
				ID:       *order.ProviderTransactionID,
				Amount:   order.Amount,
				Currency: order.Currency,
				Status:   paypalStatusCompleted,
			},
			Metadata: map[string]interface{}{"order_id": order.ID, "paypal_order_id": paypalOrderID},
		})
	}

	if err := s.requireOpen(order); err != nil {
		return nil, err
	}

	capture, err := s.paypal.CaptureOrder(ctx, paypalOrderID)
	if err != nil {
		s.logger.Error("Failed to capture PayPal order", err, "paypal_order_id", paypalOrderID)
		return nil, apperrors.NewNetworkError("Failed to capture PayPal order", err)
	}
	if capture.Status != paypalStatusCompleted {
		return &domain.CheckoutResult{Success: false, Status: capture.Status, OrderID: order.ID}, nil
	}

	charge := domain.Charge{
		ID:       capture.CaptureID,
		Amount:   capture.Amount,
		Currency: capture.Currency,
		Status:   capture.Status,
	}
	if charge.ID == "" {
		charge.ID = capture.OrderID
	}
	if charge.Amount.IsZero() {
		charge.Amount = order.Amount
	}
	if charge.Currency == "" {
		charge.Currency = order.Currency
	}
	if err := s.matchCharge(order, charge.ID, charge.Amount, charge.Currency); err != nil {
		return nil, err
	}

	act := domain.Activation{
		Order:    order,
		Charge:   charge,
		Metadata: map[string]interface{}{"order_id": order.ID, "paypal_order_id": paypalOrderID},
	}
	if capture.PayerID != "" {
		act.PaymentMethod = &domain.PaymentMethod{
			UserID:                  userID,
			Type:                    domain.PaymentMethodPayPal,
			Provider:                domain.ProviderPayPal,
			ProviderPaymentMethodID: capture.PayerID,
			IsDefault:               true,
			PayPalEmail:             stringPtr(capture.PayerEmail),
		}
	}
	return s.activate(ctx, act)
}

// Crypto

func (s *CheckoutService) StartCryptoCheckout(ctx context.Context, user *domain.SupabaseUser, req domain.CryptoCheckoutRequest) (*domain.CryptoCheckout, error) {
	if user == nil {
		return nil, apperrors.NewUnauthorizedError("Unauthorized")
	}
	if err := ValidateStruct(req); err != nil {
		return nil, err
	}
	wallet := s.wallets[req.Network]
	if wallet == "" {
		return nil, domain.ErrProviderUnavailable
	}
	plan, err := s.purchasablePlan(ctx, req.CheckoutRequest)
	if err != nil {
		return nil, err
	}

	var order *domain.CheckoutOrder
	err = s.billing.WithTx(ctx, func(store domain.BillingStore) error {
		var err error
		order, err = store.CreateOrder(ctx, s.newOrder(user, plan, req.BillingPeriod, domain.ProviderCrypto, req.Network))
		if err != nil {
			return err
		}
		_, err = store.InsertBillingEntry(ctx, &domain.BillingHistoryEntry{
			UserID:                user.ID,
			PlanID:                plan.ID,
			Amount:                order.Amount,
			Currency:              order.Currency,
			BillingPeriod:         order.BillingPeriod,
			PaymentMethod:         req.Network,
			PaymentProvider:       domain.ProviderCrypto,
			ProviderTransactionID: order.ID,
			Status:                domain.BillingStatusPending,
			Metadata:              map[string]interface{}{"order_id": order.ID, "wallet_address": wallet},
		})
		return err
	})
	if err != nil {
		s.logger.Error("Failed to start crypto checkout", err, "user_id", user.ID, "network", req.Network)
		return nil, err
	}

	s.logger.Info("Crypto checkout started", "user_id", user.ID, "order_id", order.ID, "network", req.Network)
	return &domain.CryptoCheckout{
		OrderID:       order.ID,
		Network:       req.Network,
		WalletAddress: wallet,
		Amount:        order.Amount,
		Currency:      order.Currency,
		ExpiresAt:     order.ExpiresAt.UTC().Format(time.RFC3339),
	}, nil
}

// ConfirmCryptoPayment is called by an admin once the transfer has been seen on chain.
// An order that is still pending can be confirmed after its expiry.
func (s *CheckoutService) ConfirmCryptoPayment(ctx context.Context, orderID, transactionRef string) (*domain.CheckoutResult, error) {
	order, err := s.billing.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Provider != domain.ProviderCrypto {
		return nil, apperrors.NewValidationError("Order is not a crypto order")
	}
	switch order.Status {
	case domain.OrderStatusCompleted:
		return s.completedResult(ctx, order)
	case domain.OrderStatusPending:
	default:
		return nil, domain.ErrOrderExpired
	}

	if transactionRef == "" {
		transactionRef = "manual_" + uuid.NewString()
	}
	return s.activate(ctx, domain.Activation{
		Order: order,
		Charge: domain.Charge{
			ID:       transactionRef,
			Amount:   order.Amount,
			Currency: order.Currency,
			Status:   string(domain.BillingStatusPaid),
		},
		Metadata: map[string]interface{}{"order_id": order.ID, "confirmed_manually": true},
	})
}

// claimOrder enforces ownership. done is true when the order was already
// completed and res holds the stored result.
func (s *CheckoutService) claimOrder(ctx context.Context, order *domain.CheckoutOrder, userID string) (res *domain.CheckoutResult, done bool, err error) {
	if order.UserID != userID {
		return nil, false, domain.ErrAccessDenied
	}
	if order.Status == domain.OrderStatusCompleted {
		res, err := s.completedResult(ctx, order)
		return res, true, err
	}
	return nil, false, nil
}

// requireOpen rejects orders that can no longer take a new payment.
func (s *CheckoutService) requireOpen(order *domain.CheckoutOrder) error {
	if order.Status != domain.OrderStatusPending || order.IsExpired(s.now()) {
		return domain.ErrOrderExpired
	}
	return nil
}

// matchCharge compares what the provider settled with what the order asked for.
func (s *CheckoutService) matchCharge(order *domain.CheckoutOrder, chargeID string, amount decimal.Decimal, currency string) error {
	if amount.Equal(order.Amount) && strings.EqualFold(currency, order.Currency) {
		return nil
	}
	s.logger.Error("Settled charge does not match the order", nil,
		"order_id", order.ID,
		"charge_id", chargeID,
		"charged", amount.String()+" "+currency,
		"expected", order.Amount.String()+" "+order.Currency,
	)
	return apperrors.NewPaymentError("Charged amount does not match the order", nil)
}

// activate turns a paid order into an active subscription. Every write shares one transaction.
func (s *CheckoutService) activate(ctx context.Context, act domain.Activation) (*domain.CheckoutResult, error) {
	order := act.Order
	if act.Charge.Currency == "" {
		act.Charge.Currency = order.Currency
	}

	if order.Provider != domain.ProviderCrypto {
		if err := s.billing.RecordOrderTransaction(ctx, order.ID, act.Charge.ID); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	var (
		plan *domain.Plan
		sub  *domain.Subscription
	)
	err := s.billing.WithTx(ctx, func(store domain.BillingStore) error {
		var err error
		plan, err = store.GetPlanByID(ctx, order.PlanID)
		if err != nil {
			return err
		}

		sub, err = store.UpsertSubscription(ctx, &domain.Subscription{
			UserID:             order.UserID,
			PlanID:             plan.ID,
			BillingPeriod:      order.BillingPeriod,
			Status:             domain.SubscriptionStatusActive,
			CurrentPeriodStart: now,
			CurrentPeriodEnd:   order.BillingPeriod.PeriodEnd(now),
		})
		if err != nil {
			return err
		}

		if _, err := store.InsertBillingEntry(ctx, &domain.BillingHistoryEntry{
			UserID:                order.UserID,
			SubscriptionID:        &sub.ID,
			PlanID:                plan.ID,
			Amount:                act.Charge.Amount,
			Currency:              strings.ToUpper(act.Charge.Currency),
			BillingPeriod:         order.BillingPeriod,
			PaymentMethod:         order.PaymentMethod,
			PaymentProvider:       order.Provider,
			ProviderTransactionID: act.Charge.ID,
			Status:                domain.BillingStatusPaid,
			Metadata:              act.Metadata,
			PaidAt:                &now,
		}); err != nil {
			return err
		}

		if act.PaymentMethod != nil {
			if _, err := store.UpsertPaymentMethod(ctx, act.PaymentMethod); err != nil {
				return err
			}
		}

		return store.CompleteOrder(ctx, order.ID, act.Charge.ID, now)
	})
	if errors.Is(err, domain.ErrOrderNotPending) {
		// Lost the race to a concurrent confirm of the same order.
		latest, getErr := s.billing.GetOrder(ctx, order.ID)
		if getErr != nil {
			return nil, getErr
		}
		if latest.Status == domain.OrderStatusCompleted {
			return s.completedResult(ctx, latest)
		}
		return nil, domain.ErrOrderExpired
	}
	if err != nil {
		s.logger.Error("Failed to activate subscription", err, "order_id", order.ID, "user_id", order.UserID)
		return nil, fmt.Errorf("failed to activate subscription: %w", err)
	}

	s.logger.Info("Subscription activated",
		"user_id", order.UserID,
		"order_id", order.ID,
		"plan", plan.Name,
		"billing_period", order.BillingPeriod,
		"provider", order.Provider,
	)

	charge := act.Charge
	return &domain.CheckoutResult{
		Success:      true,
		Status:       charge.Status,
		OrderID:      order.ID,
		Subscription: subscriptionView(sub, plan.Name),
		Charge:       &charge,
	}, nil
}

// completedResult rebuilds the response for an order that was already activated.
func (s *CheckoutService) completedResult(ctx context.Context, order *domain.CheckoutOrder) (*domain.CheckoutResult, error) {
	res := &domain.CheckoutResult{
		Success: true,
		Status:  string(domain.OrderStatusCompleted),
		OrderID: order.ID,
		Charge: &domain.Charge{
			Amount:   order.Amount,
			Currency: order.Currency,
			Status:   string(domain.OrderStatusCompleted),
		},
	}
	if order.ProviderTransactionID != nil {
		res.Charge.ID = *order.ProviderTransactionID
	}

	sub, err := s.billing.GetActiveSubscription(ctx, order.UserID)
	if errors.Is(err, domain.ErrSubscriptionNotFound) {
		return res, nil
	}
	if err != nil {
		return nil, err
	}
	planName := order.PlanName
	if sub.Plan != nil {
		planName = sub.Plan.Name
	}
	res.Subscription = subscriptionView(sub, planName)
	return res, nil
}

func subscriptionView(sub *domain.Subscription, planName string) *domain.SubscriptionView {
	return &domain.SubscriptionView{
		ID:               sub.ID,
		PlanName:         planName,
		Status:           sub.Status,
		BillingPeriod:    sub.BillingPeriod,
		CurrentPeriodEnd: sub.CurrentPeriodEnd,
	}
}

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func intPtr(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}
