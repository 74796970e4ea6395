package handler

import (
	"net/http"
	"strings"

	"documind-api/internal/domain"

	"github.com/gorilla/mux"
)

// PaymentHandler drives the card, PayPal and crypto checkout rails.
type PaymentHandler struct {
	checkout domain.CheckoutService
	logger   domain.Logger
}

func NewPaymentHandler(checkout domain.CheckoutService, logger domain.Logger) *PaymentHandler {
	return &PaymentHandler{
		checkout: checkout,
		logger:   logger,
	}
}

type confirmCardRequest struct {
	PaymentIntentID string `json:"payment_intent_id"`
}

func (h *PaymentHandler) CreateCardIntent(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	var req domain.CheckoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	checkout, err := h.checkout.StartCardCheckout(r.Context(), user, req)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to start card checkout", err, "user_id", user.ID, "plan", req.PlanName)
		return
	}

	writeJSON(w, http.StatusOK, checkout)
}

// ConfirmCardPayment answers 400 with the processor status when the intent has not succeeded.
func (h *PaymentHandler) ConfirmCardPayment(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	var req confirmCardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.PaymentIntentID = strings.TrimSpace(req.PaymentIntentID)
	if req.PaymentIntentID == "" {
		writeError(w, http.StatusBadRequest, "payment_intent_id is required")
		return
	}

	result, err := h.checkout.ConfirmCardPayment(r.Context(), user.ID, req.PaymentIntentID)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to confirm card payment", err, "payment_intent_id", req.PaymentIntentID)
		return
	}
	if !result.Success {
		writeJSON(w, http.StatusBadRequest, result)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *PaymentHandler) CreatePayPalOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	var req domain.CheckoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	checkout, err := h.checkout.StartPayPalCheckout(r.Context(), user, req)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to create PayPal order", err, "user_id", user.ID, "plan", req.PlanName)
		return
	}

	writeJSON(w, http.StatusOK, checkout)
}

// CapturePayPalOrder answers 200 with success false when PayPal did not complete the capture.
func (h *PaymentHandler) CapturePayPalOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	paypalOrderID := mux.Vars(r)["paypalOrderID"]
	result, err := h.checkout.CapturePayPalOrder(r.Context(), user.ID, paypalOrderID)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to capture PayPal order", err, "paypal_order_id", paypalOrderID)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *PaymentHandler) CreateCryptoCheckout(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	var req domain.CryptoCheckoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	checkout, err := h.checkout.StartCryptoCheckout(r.Context(), user, req)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to start crypto checkout", err, "user_id", user.ID, "network", req.Network)
		return
	}

	writeJSON(w, http.StatusOK, checkout)
}
