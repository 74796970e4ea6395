package handler

import (
	"net/http"

	"documind-api/internal/domain"

	"github.com/gorilla/mux"
)

// BillingHandler serves the plan catalog, the user's subscription, limits and billing records.
type BillingHandler struct {
	subscriptions domain.SubscriptionService
	limits        domain.LimitService
	logger        domain.Logger
}

func NewBillingHandler(subscriptions domain.SubscriptionService, limits domain.LimitService, logger domain.Logger) *BillingHandler {
	return &BillingHandler{
		subscriptions: subscriptions,
		limits:        limits,
		logger:        logger,
	}
}

// ListPlans is public.
func (h *BillingHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.subscriptions.ListPlans(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "Failed to list plans", err)
		return
	}
	if plans == nil {
		plans = []*domain.Plan{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"plans": plans})
}

func (h *BillingHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	sub, err := h.subscriptions.GetSubscription(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to load subscription", err, "user_id", user.ID)
		return
	}

	writeJSON(w, http.StatusOK, sub)
}

// GetLimits never fails: an unresolvable plan yields the safe-deny decision.
func (h *BillingHandler) GetLimits(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	writeJSON(w, http.StatusOK, h.limits.Evaluate(r.Context(), user.ID))
}

func (h *BillingHandler) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	sub, err := h.subscriptions.Cancel(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to cancel subscription", err, "user_id", user.ID)
		return
	}

	writeJSON(w, http.StatusOK, sub)
}

func (h *BillingHandler) GetBillingHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	entries, err := h.subscriptions.BillingHistory(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to load billing history", err, "user_id", user.ID)
		return
	}
	if entries == nil {
		entries = []*domain.BillingHistoryEntry{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"history": entries})
}

func (h *BillingHandler) GetPaymentMethods(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	methods, err := h.subscriptions.PaymentMethods(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to load payment methods", err, "user_id", user.ID)
		return
	}
	if methods == nil {
		methods = []*domain.PaymentMethod{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"payment_methods": methods})
}

func (h *BillingHandler) DeletePaymentMethod(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	id := mux.Vars(r)["id"]
	if err := h.subscriptions.DeletePaymentMethod(r.Context(), user.ID, id); err != nil {
		writeServiceError(w, h.logger, "Failed to delete payment method", err, "payment_method_id", id)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Payment method removed"})
}

func (h *BillingHandler) SetDefaultPaymentMethod(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	id := mux.Vars(r)["id"]
	if err := h.subscriptions.SetDefaultPaymentMethod(r.Context(), user.ID, id); err != nil {
		writeServiceError(w, h.logger, "Failed to set default payment method", err, "payment_method_id", id)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Default payment method updated"})
}
