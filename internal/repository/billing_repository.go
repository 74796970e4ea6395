package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"documind-api/internal/domain"
	"documind-api/internal/infra/postgres"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const historyPageSize = 50

const (
	planColumns = `id, name, description, price_monthly, price_yearly, max_documents,
		max_questions_per_month, max_storage_bytes, features, is_active, created_at, updated_at`
	subscriptionColumns = `id, user_id, plan_id, billing_period, status, current_period_start,
		current_period_end, cancel_at_period_end, cancelled_at, stripe_subscription_id,
		stripe_customer_id, paypal_subscription_id, created_at, updated_at`
	billingColumns = `id, user_id, subscription_id, plan_id, amount, currency, billing_period,
		payment_method, payment_provider, provider_transaction_id, status, invoice_url,
		metadata, paid_at, created_at`
	paymentMethodColumns = `id, user_id, type, provider, provider_payment_method_id, is_default,
		card_brand, card_last4, card_exp_month, card_exp_year, paypal_email, crypto_address,
		metadata, deleted_at, created_at, updated_at`
	orderColumns = `id, user_id, plan_id, plan_name, billing_period, amount, currency, provider,
		payment_method, provider_order_id, provider_transaction_id, status, expires_at,
		completed_at, created_at, updated_at`
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// billingStore holds the statements that may run inside a transaction.
type billingStore struct {
	q querier
}

// PostgresBillingRepository implements domain.BillingRepository on pgx.
type PostgresBillingRepository struct {
	billingStore
	pool   *pgxpool.Pool
	logger domain.Logger
}

func NewPostgresBillingRepository(pool *pgxpool.Pool, logger domain.Logger) *PostgresBillingRepository {
	return &PostgresBillingRepository{
		billingStore: billingStore{q: pool},
		pool:         pool,
		logger:       logger,
	}
}

// WithTx commits when fn returns nil and rolls back otherwise.
func (r *PostgresBillingRepository) WithTx(ctx context.Context, fn func(store domain.BillingStore) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			r.logger.Error("Failed to roll back transaction", rbErr)
		}
	}()

	if err := fn(&billingStore{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Plans

func (s *billingStore) GetPlanByID(ctx context.Context, id string) (*domain.Plan, error) {
	if !isUUID(id) {
		return nil, domain.ErrPlanNotFound
	}
	row := s.q.QueryRow(ctx, `SELECT `+planColumns+` FROM subscription_plans WHERE id = $1 AND is_active`, id)
	plan, err := scanPlan(row)
	if postgres.IsNotFoundError(err) {
		return nil, domain.ErrPlanNotFound
	}
	return plan, err
}

func (s *billingStore) GetPlanByName(ctx context.Context, name string) (*domain.Plan, error) {
	row := s.q.QueryRow(ctx, `SELECT `+planColumns+` FROM subscription_plans WHERE name = $1 AND is_active`, name)
	plan, err := scanPlan(row)
	if postgres.IsNotFoundError(err) {
		return nil, domain.ErrPlanNotFound
	}
	return plan, err
}

func (r *PostgresBillingRepository) ListActivePlans(ctx context.Context) ([]*domain.Plan, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+planColumns+` FROM subscription_plans
		WHERE is_active ORDER BY price_monthly ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Plan, error) {
		return scanPlan(row)
	})
}

// Subscriptions

func (s *billingStore) UpsertSubscription(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error) {
	row := s.q.QueryRow(ctx, `
		INSERT INTO user_subscriptions (user_id, plan_id, billing_period, status,
			current_period_start, current_period_end, cancel_at_period_end, cancelled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE SET
			plan_id = EXCLUDED.plan_id,
			billing_period = EXCLUDED.billing_period,
			status = EXCLUDED.status,
			current_period_start = EXCLUDED.current_period_start,
			current_period_end = EXCLUDED.current_period_end,
			cancel_at_period_end = EXCLUDED.cancel_at_period_end,
			cancelled_at = EXCLUDED.cancelled_at,
			updated_at = NOW()
		RETURNING `+subscriptionColumns,
		sub.UserID, sub.PlanID, sub.BillingPeriod, sub.Status,
		sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.CancelAtPeriodEnd, sub.CancelledAt)

	saved, err := scanSubscription(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert subscription: %w", err)
	}
	return saved, nil
}

// EnsureSubscription never replaces an active row, so a concurrent checkout is not overwritten.
func (r *PostgresBillingRepository) EnsureSubscription(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO user_subscriptions (user_id, plan_id, billing_period, status,
			current_period_start, current_period_end, cancel_at_period_end, cancelled_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, NULL)
		ON CONFLICT (user_id) DO UPDATE SET
			plan_id = EXCLUDED.plan_id,
			billing_period = EXCLUDED.billing_period,
			status = EXCLUDED.status,
			current_period_start = EXCLUDED.current_period_start,
			current_period_end = EXCLUDED.current_period_end,
			cancel_at_period_end = FALSE,
			cancelled_at = NULL,
			updated_at = NOW()
		WHERE user_subscriptions.status <> 'active'
		RETURNING `+subscriptionColumns,
		sub.UserID, sub.PlanID, sub.BillingPeriod, sub.Status, sub.CurrentPeriodStart, sub.CurrentPeriodEnd)

	saved, err := scanSubscription(row)
	if err == nil {
		return saved, nil
	}
	if !postgres.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to enroll subscription: %w", err)
	}

	return r.GetActiveSubscription(ctx, sub.UserID)
}

func (r *PostgresBillingRepository) GetActiveSubscription(ctx context.Context, userID string) (*domain.Subscription, error) {
	if !isUUID(userID) {
		return nil, domain.ErrSubscriptionNotFound
	}
	row := r.pool.QueryRow(ctx, `SELECT `+subscriptionColumns+` FROM user_subscriptions
		WHERE user_id = $1 AND status = 'active'`, userID)
	sub, err := scanSubscription(row)
	if postgres.IsNotFoundError(err) {
		return nil, domain.ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	plan, err := r.getPlanAnyState(ctx, sub.PlanID)
	if err != nil {
		return nil, err
	}
	sub.Plan = plan
	return sub, nil
}

// getPlanAnyState also returns deactivated plans, for displaying existing subscriptions.
func (r *PostgresBillingRepository) getPlanAnyState(ctx context.Context, id string) (*domain.Plan, error) {
	plan, err := scanPlan(r.pool.QueryRow(ctx, `SELECT `+planColumns+` FROM subscription_plans WHERE id = $1`, id))
	if postgres.IsNotFoundError(err) {
		return nil, domain.ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return plan, nil
}

func (r *PostgresBillingRepository) CancelSubscription(ctx context.Context, userID string, at time.Time) (*domain.Subscription, error) {
	if !isUUID(userID) {
		return nil, domain.ErrSubscriptionNotFound
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE user_subscriptions
		SET cancel_at_period_end = TRUE, cancelled_at = $2, updated_at = NOW()
		WHERE user_id = $1 AND status = 'active'
		RETURNING `+subscriptionColumns, userID, at)

	sub, err := scanSubscription(row)
	if postgres.IsNotFoundError(err) {
		return nil, domain.ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to cancel subscription: %w", err)
	}
	return sub, nil
}

// SweepSubscriptions ends subscriptions past their period and expires stale pending orders.
func (r *PostgresBillingRepository) SweepSubscriptions(ctx context.Context, now time.Time) (*domain.SweepResult, error) {
	result := &domain.SweepResult{}

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			UPDATE user_subscriptions
			SET status = CASE WHEN cancel_at_period_end THEN 'cancelled' ELSE 'expired' END,
				updated_at = NOW()
			WHERE status = 'active' AND current_period_end < $1
			RETURNING status`, now)
		if err != nil {
			return err
		}
		statuses, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return err
		}
		for _, st := range statuses {
			if domain.SubscriptionStatus(st) == domain.SubscriptionStatusCancelled {
				result.Cancelled++
			} else {
				result.Expired++
			}
		}

		tag, err := tx.Exec(ctx, `
			UPDATE checkout_orders SET status = 'expired', updated_at = NOW()
			WHERE status = 'pending' AND expires_at < $1`, now)
		if err != nil {
			return err
		}
		result.OrdersExpired = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sweep subscriptions: %w", err)
	}
	return result, nil
}

// Ledger

func (s *billingStore) InsertBillingEntry(ctx context.Context, e *domain.BillingHistoryEntry) (*domain.BillingHistoryEntry, error) {
	currency := e.Currency
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	row := s.q.QueryRow(ctx, `
		INSERT INTO billing_history (user_id, subscription_id, plan_id, amount, currency, billing_period,
			payment_method, payment_provider, provider_transaction_id, status, invoice_url, metadata, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+billingColumns,
		e.UserID, e.SubscriptionID, e.PlanID, e.Amount, currency, e.BillingPeriod,
		e.PaymentMethod, e.PaymentProvider, e.ProviderTransactionID, e.Status, e.InvoiceURL,
		jsonObject(e.Metadata), e.PaidAt)

	saved, err := scanBillingEntry(row)
	if err != nil {
		return nil, fmt.Errorf("failed to insert billing entry: %w", err)
	}
	return saved, nil
}

func (r *PostgresBillingRepository) ListBillingHistory(ctx context.Context, userID string, limit int) ([]*domain.BillingHistoryEntry, error) {
	if limit <= 0 || limit > historyPageSize {
		limit = historyPageSize
	}
	rows, err := r.pool.Query(ctx, `SELECT `+billingColumns+` FROM billing_history
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list billing history: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.BillingHistoryEntry, error) {
		return scanBillingEntry(row)
	})
}

// Payment methods

// UpsertPaymentMethod also clears other defaults of the same kind when pm is the default.
func (s *billingStore) UpsertPaymentMethod(ctx context.Context, pm *domain.PaymentMethod) (*domain.PaymentMethod, error) {
	row := s.q.QueryRow(ctx, `
		INSERT INTO payment_methods (user_id, type, provider, provider_payment_method_id, is_default,
			card_brand, card_last4, card_exp_month, card_exp_year, paypal_email, crypto_address, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id, provider_payment_method_id) WHERE deleted_at IS NULL DO UPDATE SET
			type = EXCLUDED.type,
			provider = EXCLUDED.provider,
			is_default = EXCLUDED.is_default,
			card_brand = EXCLUDED.card_brand,
			card_last4 = EXCLUDED.card_last4,
			card_exp_month = EXCLUDED.card_exp_month,
			card_exp_year = EXCLUDED.card_exp_year,
			paypal_email = EXCLUDED.paypal_email,
			crypto_address = EXCLUDED.crypto_address,
			metadata = EXCLUDED.metadata,
			updated_at = NOW()
		RETURNING `+paymentMethodColumns,
		pm.UserID, pm.Type, pm.Provider, pm.ProviderPaymentMethodID, pm.IsDefault,
		pm.CardBrand, pm.CardLast4, pm.CardExpMonth, pm.CardExpYear, pm.PayPalEmail, pm.CryptoAddress,
		jsonObject(pm.Metadata))

	saved, err := scanPaymentMethod(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert payment method: %w", err)
	}

	if saved.IsDefault {
		if _, err := s.q.Exec(ctx, `
			UPDATE payment_methods SET is_default = FALSE, updated_at = NOW()
			WHERE user_id = $1 AND type = $2 AND id <> $3 AND is_default AND deleted_at IS NULL`,
			saved.UserID, saved.Type, saved.ID); err != nil {
			return nil, fmt.Errorf("failed to clear default payment methods: %w", err)
		}
	}
	return saved, nil
}

func (r *PostgresBillingRepository) ListPaymentMethods(ctx context.Context, userID string) ([]*domain.PaymentMethod, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+paymentMethodColumns+` FROM payment_methods
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY is_default DESC, created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment methods: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.PaymentMethod, error) {
		return scanPaymentMethod(row)
	})
}

func (r *PostgresBillingRepository) GetPaymentMethod(ctx context.Context, id string) (*domain.PaymentMethod, error) {
	if !isUUID(id) {
		return nil, domain.ErrPaymentMethodNotFound
	}
	pm, err := scanPaymentMethod(r.pool.QueryRow(ctx, `SELECT `+paymentMethodColumns+` FROM payment_methods
		WHERE id = $1 AND deleted_at IS NULL`, id))
	if postgres.IsNotFoundError(err) {
		return nil, domain.ErrPaymentMethodNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment method: %w", err)
	}
	return pm, nil
}

func (r *PostgresBillingRepository) DeletePaymentMethod(ctx context.Context, id string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE payment_methods SET deleted_at = $2, is_default = FALSE, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, id, at)
	if err != nil {
		return fmt.Errorf("failed to delete payment method: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPaymentMethodNotFound
	}
	return nil
}

// SetDefaultPaymentMethod marks id as the default and unsets every other method of its kind in one statement.
func (r *PostgresBillingRepository) SetDefaultPaymentMethod(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE payment_methods pm
		SET is_default = (pm.id = target.id), updated_at = NOW()
		FROM (SELECT id, user_id, type FROM payment_methods WHERE id = $1 AND deleted_at IS NULL) AS target
		WHERE pm.user_id = target.user_id AND pm.type = target.type AND pm.deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("failed to set default payment method: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPaymentMethodNotFound
	}
	return nil
}

// Orders

func (s *billingStore) CreateOrder(ctx context.Context, o *domain.CheckoutOrder) (*domain.CheckoutOrder, error) {
	var providerOrderID *string
	if o.ProviderOrderID != "" {
		providerOrderID = &o.ProviderOrderID
	}
	currency := o.Currency
	if currency == "" {
		currency = domain.DefaultCurrency
	}

	row := s.q.QueryRow(ctx, `
		INSERT INTO checkout_orders (id, user_id, plan_id, plan_name, billing_period, amount, currency,
			provider, payment_method, provider_order_id, status, expires_at)
		VALUES (COALESCE($1::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+orderColumns,
		nullableUUID(o.ID), o.UserID, o.PlanID, o.PlanName, o.BillingPeriod, o.Amount, currency,
		o.Provider, o.PaymentMethod, providerOrderID, domain.OrderStatusPending, o.ExpiresAt)

	saved, err := scanOrder(row)
	if postgres.IsDuplicateKeyError(err) {
		return nil, fmt.Errorf("checkout order already exists: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout order: %w", err)
	}
	return saved, nil
}

func (r *PostgresBillingRepository) GetOrder(ctx context.Context, id string) (*domain.CheckoutOrder, error) {
	if !isUUID(id) {
		return nil, domain.ErrOrderNotFound
	}
	order, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM checkout_orders WHERE id = $1`, id))
	if postgres.IsNotFoundError(err) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get checkout order: %w", err)
	}
	return order, nil
}

func (r *PostgresBillingRepository) GetOrderByProviderRef(ctx context.Context, provider, providerOrderID string) (*domain.CheckoutOrder, error) {
	order, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM checkout_orders
		WHERE provider = $1 AND provider_order_id = $2`, provider, providerOrderID))
	if postgres.IsNotFoundError(err) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get checkout order: %w", err)
	}
	return order, nil
}

func (r *PostgresBillingRepository) SetOrderProviderRef(ctx context.Context, orderID, providerOrderID string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE checkout_orders SET provider_order_id = $2, updated_at = NOW()
		WHERE id = $1`, orderID, providerOrderID)
	if err != nil {
		return fmt.Errorf("failed to set provider reference: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

// RecordOrderTransaction keeps the provider transaction id on an open order so a retry can complete it.
func (r *PostgresBillingRepository) RecordOrderTransaction(ctx context.Context, orderID, transactionID string) error {
	_, err := r.pool.Exec(ctx, `UPDATE checkout_orders SET provider_transaction_id = $2, updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'expired')`, orderID, transactionID)
	if err != nil {
		return fmt.Errorf("failed to record order transaction: %w", err)
	}
	return nil
}

// CompleteOrder also accepts an expired order: a charge the provider already settled wins over the TTL.
func (s *billingStore) CompleteOrder(ctx context.Context, orderID, transactionID string, at time.Time) error {
	tag, err := s.q.Exec(ctx, `
		UPDATE checkout_orders
		SET status = 'completed', provider_transaction_id = $2, completed_at = $3, updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'expired')`, orderID, transactionID, at)
	if err != nil {
		return fmt.Errorf("failed to complete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotPending
	}
	return nil
}

// Scanning

func scanPlan(row pgx.Row) (*domain.Plan, error) {
	p := &domain.Plan{}
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.PriceMonthly, &p.PriceYearly, &p.MaxDocuments,
		&p.MaxQuestionsPerMonth, &p.MaxStorageBytes, &p.Features, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func scanSubscription(row pgx.Row) (*domain.Subscription, error) {
	s := &domain.Subscription{}
	err := row.Scan(&s.ID, &s.UserID, &s.PlanID, &s.BillingPeriod, &s.Status, &s.CurrentPeriodStart,
		&s.CurrentPeriodEnd, &s.CancelAtPeriodEnd, &s.CancelledAt, &s.StripeSubscriptionID,
		&s.StripeCustomerID, &s.PayPalSubscriptionID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func scanBillingEntry(row pgx.Row) (*domain.BillingHistoryEntry, error) {
	e := &domain.BillingHistoryEntry{}
	err := row.Scan(&e.ID, &e.UserID, &e.SubscriptionID, &e.PlanID, &e.Amount, &e.Currency, &e.BillingPeriod,
		&e.PaymentMethod, &e.PaymentProvider, &e.ProviderTransactionID, &e.Status, &e.InvoiceURL,
		&e.Metadata, &e.PaidAt, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func scanPaymentMethod(row pgx.Row) (*domain.PaymentMethod, error) {
	pm := &domain.PaymentMethod{}
	err := row.Scan(&pm.ID, &pm.UserID, &pm.Type, &pm.Provider, &pm.ProviderPaymentMethodID, &pm.IsDefault,
		&pm.CardBrand, &pm.CardLast4, &pm.CardExpMonth, &pm.CardExpYear, &pm.PayPalEmail, &pm.CryptoAddress,
		&pm.Metadata, &pm.DeletedAt, &pm.CreatedAt, &pm.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return pm, nil
}

func scanOrder(row pgx.Row) (*domain.CheckoutOrder, error) {
	o := &domain.CheckoutOrder{}
	var providerOrderID *string
	err := row.Scan(&o.ID, &o.UserID, &o.PlanID, &o.PlanName, &o.BillingPeriod, &o.Amount, &o.Currency,
		&o.Provider, &o.PaymentMethod, &providerOrderID, &o.ProviderTransactionID, &o.Status, &o.ExpiresAt,
		&o.CompletedAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if providerOrderID != nil {
		o.ProviderOrderID = *providerOrderID
	}
	return o, nil
}

func isUUID(s string) bool {
	return uuid.Validate(s) == nil
}

func nullableUUID(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func jsonObject(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	return m
}
