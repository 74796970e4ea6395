package service

import (
	"context"
	"time"

	"documind-api/internal/domain"
)

const billingHistoryLimit = 50

type SubscriptionService struct {
	billing domain.BillingRepository
	cache   domain.PlanCache
	logger  domain.Logger
	now     func() time.Time
}

// NewSubscriptionService builds the service. cache may be nil when Redis is not configured.
func NewSubscriptionService(
	billing domain.BillingRepository,
	cache domain.PlanCache,
	logger domain.Logger,
) *SubscriptionService {
	return &SubscriptionService{
		billing: billing,
		cache:   cache,
		logger:  logger,
		now:     time.Now,
	}
}

// ListPlans serves the active catalog, from the cache when it is warm.
// Cache failures are logged and fall through to the database.
func (s *SubscriptionService) ListPlans(ctx context.Context) ([]*domain.Plan, error) {
	if s.cache != nil {
		plans, err := s.cache.GetPlans(ctx)
		if err != nil {
			s.logger.Warn("Plan cache read failed", "error", err)
		} else if plans != nil {
			return plans, nil
		}
	}

	plans, err := s.billing.ListActivePlans(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetPlans(ctx, plans); err != nil {
			s.logger.Warn("Plan cache write failed", "error", err)
		}
	}
	return plans, nil
}

func (s *SubscriptionService) GetSubscription(ctx context.Context, userID string) (*domain.Subscription, error) {
	return s.billing.GetActiveSubscription(ctx, userID)
}

// Cancel keeps the subscription active until the end of the paid period.
func (s *SubscriptionService) Cancel(ctx context.Context, userID string) (*domain.Subscription, error) {
	sub, err := s.billing.CancelSubscription(ctx, userID, s.now().UTC())
	if err != nil {
		return nil, err
	}
	s.logger.Info("Subscription set to cancel at period end", "user_id", userID, "period_end", sub.CurrentPeriodEnd)
	return sub, nil
}

func (s *SubscriptionService) BillingHistory(ctx context.Context, userID string) ([]*domain.BillingHistoryEntry, error) {
	return s.billing.ListBillingHistory(ctx, userID, billingHistoryLimit)
}

func (s *SubscriptionService) PaymentMethods(ctx context.Context, userID string) ([]*domain.PaymentMethod, error) {
	return s.billing.ListPaymentMethods(ctx, userID)
}

func (s *SubscriptionService) DeletePaymentMethod(ctx context.Context, userID, id string) error {
	if _, err := s.ownedPaymentMethod(ctx, userID, id); err != nil {
		return err
	}
	if err := s.billing.DeletePaymentMethod(ctx, id, s.now().UTC()); err != nil {
		return err
	}
	s.logger.Info("Payment method deleted", "user_id", userID, "payment_method_id", id)
	return nil
}

func (s *SubscriptionService) SetDefaultPaymentMethod(ctx context.Context, userID, id string) error {
	if _, err := s.ownedPaymentMethod(ctx, userID, id); err != nil {
		return err
	}
	return s.billing.SetDefaultPaymentMethod(ctx, id)
}

func (s *SubscriptionService) ownedPaymentMethod(ctx context.Context, userID, id string) (*domain.PaymentMethod, error) {
	pm, err := s.billing.GetPaymentMethod(ctx, id)
	if err != nil {
		return nil, err
	}
	if pm.UserID != userID {
		return nil, domain.ErrAccessDenied
	}
	return pm, nil
}

// Sweep ends lapsed subscriptions and expires stale checkout orders.
func (s *SubscriptionService) Sweep(ctx context.Context) (*domain.SweepResult, error) {
	result, err := s.billing.SweepSubscriptions(ctx, s.now().UTC())
	if err != nil {
		return nil, err
	}
	s.logger.Info("Subscription sweep finished",
		"cancelled", result.Cancelled,
		"expired", result.Expired,
		"orders_expired", result.OrdersExpired,
	)
	return result, nil
}
