package domain

import "errors"

// Domain errors
var (
	ErrDocumentNotFound       = errors.New("document not found")
	ErrAccessDenied           = errors.New("access denied")
	ErrUserNotFound           = errors.New("user not found")
	ErrInvalidToken           = errors.New("invalid token")
	ErrInvalidFile            = errors.New("invalid file")
	ErrFileTooLarge           = errors.New("file too large")
	ErrDocumentLimitReached   = errors.New("document limit reached")
	ErrStorageLimitExceeded   = errors.New("storage limit reached")
	ErrQuestionLimitReached   = errors.New("monthly question limit reached")
	ErrPlanNotFound           = errors.New("plan not found")
	ErrFreePlanNotPurchasable = errors.New("free plan cannot be purchased")
	ErrSubscriptionNotFound   = errors.New("subscription not found")
	ErrOrderNotFound          = errors.New("order not found")
	ErrOrderExpired           = errors.New("order expired")
	ErrOrderNotPending        = errors.New("order is no longer pending")
	ErrPaymentMethodNotFound  = errors.New("payment method not found")
	ErrPaymentNotCompleted    = errors.New("payment not completed")
	ErrProviderUnavailable    = errors.New("payment provider not configured")
	ErrAIBackendUnavailable   = errors.New("ai backend unavailable")
	ErrInvalidRole            = errors.New("invalid role")
)
