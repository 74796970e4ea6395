package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"documind-api/internal/config"
	"documind-api/internal/handler"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Wiring
	container, err := config.NewContainer()
	if err != nil {
		return err
	}
	if err := container.Wire(ctx); err != nil {
		container.Logger.Error("Failed to wire dependencies", err)
		container.Close()
		return err
	}
	defer container.Close()

	logger := container.Logger
	checks := make(map[string]handler.ReadinessCheck)
	for name, check := range container.ReadinessChecks() {
		checks[name] = check
	}

	// Handlers
	authMiddleware := handler.NewAuthMiddleware(container.AuthService, logger)
	router := handler.NewRouter(
		handler.NewHealthHandler(checks, logger),
		handler.NewAuthHandler(container.AuthService, logger),
		handler.NewDocumentHandler(container.DocumentService, container.Config.GetMaxFileSize(), logger),
		handler.NewBillingHandler(container.SubscriptionService, container.LimitService, logger),
		handler.NewPaymentHandler(container.CheckoutService, logger),
		handler.NewAdminHandler(container.AdminService, logger),
		handler.NewContactHandler(container.ContactService, logger),
		authMiddleware.Middleware,
		authMiddleware.RequireAdmin,
		container.Config.GetAllowedOrigins(),
	)

	server := &http.Server{
		Addr:              ":" + container.Config.GetServerPort(),
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Graceful shutdown
	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error("Server failed to start", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", err)
		_ = server.Close()
	}

	logger.Info("Server exited")
	return nil
}
