package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"documind-api/internal/domain"
	apperrors "documind-api/pkg/errors"
)

type contextKey string

const (
	userContextKey  contextKey = "user"
	tokenContextKey contextKey = "token"
)

// GetUserFromContext extracts the authenticated user from request context
func GetUserFromContext(r *http.Request) (*domain.SupabaseUser, bool) {
	user, ok := r.Context().Value(userContextKey).(*domain.SupabaseUser)
	return user, ok
}

// GetTokenFromContext extracts the authentication token from request context
func GetTokenFromContext(r *http.Request) (string, bool) {
	token, ok := r.Context().Value(tokenContextKey).(string)
	return token, ok
}

// writeError writes an error response (helper function)
func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(dst)
}

// errorResponse maps service errors to a status code and a client-facing message.
func errorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrDocumentNotFound):
		return http.StatusNotFound, "Document not found"
	case errors.Is(err, domain.ErrPlanNotFound):
		return http.StatusNotFound, "Plan not found"
	case errors.Is(err, domain.ErrOrderNotFound):
		return http.StatusNotFound, "Order not found"
	case errors.Is(err, domain.ErrSubscriptionNotFound):
		return http.StatusNotFound, "No active subscription"
	case errors.Is(err, domain.ErrPaymentMethodNotFound):
		return http.StatusNotFound, "Payment method not found"
	case errors.Is(err, domain.ErrAccessDenied):
		return http.StatusForbidden, "Access denied"
	case errors.Is(err, domain.ErrDocumentLimitReached):
		return http.StatusForbidden, "Document limit reached"
	case errors.Is(err, domain.ErrStorageLimitExceeded):
		return http.StatusForbidden, "Storage limit reached"
	case errors.Is(err, domain.ErrQuestionLimitReached):
		return http.StatusForbidden, "Monthly question limit reached"
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "File too large"
	case errors.Is(err, domain.ErrInvalidFile):
		return http.StatusBadRequest, "Only valid PDF files are allowed"
	case errors.Is(err, domain.ErrFreePlanNotPurchasable):
		return http.StatusBadRequest, "Free plan cannot be purchased"
	case errors.Is(err, domain.ErrInvalidRole):
		return http.StatusBadRequest, "Invalid role"
	case errors.Is(err, domain.ErrOrderExpired):
		return http.StatusGone, "Checkout order expired"
	case errors.Is(err, domain.ErrProviderUnavailable):
		return http.StatusServiceUnavailable, "Payment provider not configured"
	case errors.Is(err, domain.ErrAIBackendUnavailable):
		return http.StatusBadGateway, "AI backend unavailable"
	case errors.Is(err, domain.ErrContactUnavailable):
		return http.StatusInternalServerError, "Telegram service not configured"
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode, appErr.Message
	}
	return http.StatusInternalServerError, "Internal server error"
}

// writeServiceError logs server-side failures and writes the mapped error.
func writeServiceError(w http.ResponseWriter, logger domain.Logger, msg string, err error, fields ...interface{}) {
	status, message := errorResponse(err)
	if status >= http.StatusInternalServerError {
		logger.Error(msg, err, fields...)
	} else {
		logger.Debug(msg, append(fields, "error", err.Error())...)
	}
	writeError(w, status, message)
}
