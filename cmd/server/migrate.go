package main

import (
	"documind-api/internal/config"
	"documind-api/internal/infra/postgres"

	"github.com/spf13/cobra"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
		Long:  `Apply, roll back or inspect the billing schema migrations embedded in the binary.`,
	}

	cmd.AddCommand(
		newMigrationCommand("up", "Run all pending migrations", postgres.MigrateUp),
		newMigrationCommand("down", "Roll back the latest migration", postgres.MigrateDown),
		newMigrationCommand("status", "Show migration status", postgres.MigrateStatus),
	)

	return cmd
}

func newMigrationCommand(use, short string, direction postgres.MigrationDirection) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := config.NewContainer()
			if err != nil {
				return err
			}
			if err := container.ConnectDatabase(cmd.Context()); err != nil {
				container.Logger.Error("Database unavailable", err)
				return err
			}
			defer container.Close()

			container.Logger.Info("Running migrations", "direction", direction)
			if err := postgres.Migrate(cmd.Context(), container.Pool, container.Config.Database, direction, container.Logger); err != nil {
				container.Logger.Error("Migration failed", err, "direction", direction)
				return err
			}
			return nil
		},
	}
}
