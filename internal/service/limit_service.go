package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"documind-api/internal/domain"

	"golang.org/x/sync/errgroup"
)

type LimitService struct {
	billing domain.BillingRepository
	usage   domain.UsageRepository
	logger  domain.Logger
	now     func() time.Time
}

func NewLimitService(
	billing domain.BillingRepository,
	usage domain.UsageRepository,
	logger domain.Logger,
) *LimitService {
	return &LimitService{
		billing: billing,
		usage:   usage,
		logger:  logger,
		now:     time.Now,
	}
}

// Evaluate never fails. When the plan or the usage cannot be resolved the
// caller gets a decision that denies everything.
func (s *LimitService) Evaluate(ctx context.Context, userID string) domain.LimitDecision {
	plan, err := s.resolvePlan(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to resolve plan for limits", err, "user_id", userID)
		return domain.SafeDenyDecision()
	}

	usage, err := s.snapshot(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to compute usage snapshot", err, "user_id", userID)
		return domain.SafeDenyDecision()
	}

	return domain.LimitDecision{
		PlanName:               plan.Name,
		CanUploadDocument:      underLimit(usage.DocumentsUsed, plan.MaxDocuments),
		CanAskQuestion:         underLimit(usage.QuestionsUsedThisMonth, plan.MaxQuestionsPerMonth),
		MaxDocuments:           plan.MaxDocuments,
		MaxQuestionsPerMonth:   plan.MaxQuestionsPerMonth,
		MaxStorageBytes:        plan.MaxStorageBytes,
		DocumentsUsed:          usage.DocumentsUsed,
		QuestionsUsedThisMonth: usage.QuestionsUsedThisMonth,
		StorageUsed:            usage.StorageUsed,
	}
}

// resolvePlan returns the plan of the user's active subscription, enrolling
// the user on Free when there is none.
func (s *LimitService) resolvePlan(ctx context.Context, userID string) (*domain.Plan, error) {
	sub, err := s.billing.GetActiveSubscription(ctx, userID)
	switch {
	case err == nil && sub.Plan != nil:
		return sub.Plan, nil
	case err == nil:
		return s.billing.GetPlanByID(ctx, sub.PlanID)
	case !errors.Is(err, domain.ErrSubscriptionNotFound):
		return nil, err
	}

	free, err := s.billing.GetPlanByName(ctx, domain.FreePlanName)
	if err != nil {
		return nil, fmt.Errorf("free plan unavailable: %w", err)
	}

	start := s.now().UTC()
	enrolled, err := s.billing.EnsureSubscription(ctx, &domain.Subscription{
		UserID:             userID,
		PlanID:             free.ID,
		BillingPeriod:      domain.BillingPeriodMonthly,
		Status:             domain.SubscriptionStatusActive,
		CurrentPeriodStart: start,
		CurrentPeriodEnd:   domain.BillingPeriodMonthly.PeriodEnd(start),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enroll user on free plan: %w", err)
	}

	// A concurrent checkout may have won the race.
	if enrolled.PlanID != free.ID {
		if enrolled.Plan != nil {
			return enrolled.Plan, nil
		}
		return s.billing.GetPlanByID(ctx, enrolled.PlanID)
	}

	s.logger.Info("User enrolled on free plan", "user_id", userID)
	return free, nil
}

func (s *LimitService) snapshot(ctx context.Context, userID string) (domain.UsageSnapshot, error) {
	var usage domain.UsageSnapshot
	monthStart := startOfMonth(s.now())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.usage.CountDocuments(gctx, userID)
		usage.DocumentsUsed = n
		return err
	})
	g.Go(func() error {
		n, err := s.usage.CountQuestionsSince(gctx, userID, monthStart)
		usage.QuestionsUsedThisMonth = n
		return err
	})
	g.Go(func() error {
		n, err := s.usage.SumStorageBytes(gctx, userID)
		usage.StorageUsed = n
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.UsageSnapshot{}, err
	}
	return usage, nil
}

func underLimit(used int64, max *int64) bool {
	return max == nil || used < *max
}

// startOfMonth is the first instant of t's calendar month in UTC.
func startOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
