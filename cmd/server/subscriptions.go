package main

import (
	"documind-api/internal/config"
	"documind-api/internal/repository"
	"documind-api/internal/service"

	"github.com/spf13/cobra"
)

func newSubscriptionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subscriptions",
		Short: "Subscription maintenance",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "sweep",
		Short: "Expire lapsed subscriptions and stale checkout orders",
		Long: `Cancels subscriptions whose period ended with cancel_at_period_end set, expires the
remaining lapsed ones and marks pending checkout orders past their TTL as expired.
Meant to be run from a scheduler.`,
		Args: cobra.NoArgs,
		RunE: runSweep,
	})

	return cmd
}

func runSweep(cmd *cobra.Command, args []string) error {
	container, err := config.NewContainer()
	if err != nil {
		return err
	}
	if err := container.ConnectDatabase(cmd.Context()); err != nil {
		container.Logger.Error("Database unavailable", err)
		return err
	}
	defer container.Close()

	billing := repository.NewPostgresBillingRepository(container.Pool, container.Logger)
	result, err := service.NewSubscriptionService(billing, nil, container.Logger).Sweep(cmd.Context())
	if err != nil {
		container.Logger.Error("Subscription sweep failed", err)
		return err
	}

	cmd.Printf("cancelled=%d expired=%d orders_expired=%d\n", result.Cancelled, result.Expired, result.OrdersExpired)
	return nil
}
