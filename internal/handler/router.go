package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(
	healthHandler *HealthHandler,
	authHandler *AuthHandler,
	documentHandler *DocumentHandler,
	billingHandler *BillingHandler,
	paymentHandler *PaymentHandler,
	adminHandler *AdminHandler,
	contactHandler *ContactHandler,
	authMiddleware mux.MiddlewareFunc,
	adminMiddleware mux.MiddlewareFunc,
	allowedOrigins []string,
) http.Handler {
	router := mux.NewRouter()

	// Health check endpoints (no auth required)
	router.HandleFunc("/health", healthHandler.Live).Methods(http.MethodGet)
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/plans", billingHandler.ListPlans).Methods(http.MethodGet)
	api.HandleFunc("/contact", contactHandler.Submit).Methods(http.MethodPost)

	// Protected routes (require authentication)
	protected := api.PathPrefix("").Subrouter()
	protected.Use(authMiddleware)

	protected.HandleFunc("/auth/profile", authHandler.GetProfile).Methods(http.MethodGet)

	protected.HandleFunc("/documents", documentHandler.GetDocuments).Methods(http.MethodGet)
	protected.HandleFunc("/documents", documentHandler.UploadDocument).Methods(http.MethodPost)
	protected.HandleFunc("/documents/{id}", documentHandler.DeleteDocument).Methods(http.MethodDelete)
	protected.HandleFunc("/documents/{id}/questions", documentHandler.GetQuestions).Methods(http.MethodGet)
	protected.HandleFunc("/ask", documentHandler.Ask).Methods(http.MethodPost)

	protected.HandleFunc("/subscription", billingHandler.GetSubscription).Methods(http.MethodGet)
	protected.HandleFunc("/subscription/limits", billingHandler.GetLimits).Methods(http.MethodGet)
	protected.HandleFunc("/subscription/cancel", billingHandler.CancelSubscription).Methods(http.MethodPost)

	protected.HandleFunc("/billing/history", billingHandler.GetBillingHistory).Methods(http.MethodGet)
	protected.HandleFunc("/billing/payment-methods", billingHandler.GetPaymentMethods).Methods(http.MethodGet)
	protected.HandleFunc("/billing/payment-methods/{id}", billingHandler.DeletePaymentMethod).Methods(http.MethodDelete)
	protected.HandleFunc("/billing/payment-methods/{id}/default", billingHandler.SetDefaultPaymentMethod).Methods(http.MethodPut)

	protected.HandleFunc("/payments/card/intents", paymentHandler.CreateCardIntent).Methods(http.MethodPost)
	protected.HandleFunc("/payments/card/confirm", paymentHandler.ConfirmCardPayment).Methods(http.MethodPost)
	protected.HandleFunc("/payments/paypal/orders", paymentHandler.CreatePayPalOrder).Methods(http.MethodPost)
	protected.HandleFunc("/payments/paypal/orders/{paypalOrderID}/capture", paymentHandler.CapturePayPalOrder).Methods(http.MethodPost)
	protected.HandleFunc("/payments/crypto/checkout", paymentHandler.CreateCryptoCheckout).Methods(http.MethodPost)

	// Admin routes (authenticated, role admin)
	admin := protected.PathPrefix("/admin").Subrouter()
	admin.Use(adminMiddleware)
	admin.HandleFunc("/users", adminHandler.ListUsers).Methods(http.MethodGet)
	admin.HandleFunc("/roles", adminHandler.SetRole).Methods(http.MethodPut)
	admin.HandleFunc("/orders/{id}/confirm", adminHandler.ConfirmOrder).Methods(http.MethodPost)

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-CSRF-Token",
		},
		ExposedHeaders: []string{
			"Link",
		},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	})

	return c.Handler(router)
}
