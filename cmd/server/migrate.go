package main

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"rental-service/internal/database/postgres"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, cleanup, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()

			db, err := postgres.ConnectWithRetry(cmd.Context(), cfg.PostgresCfg, 5, 3*time.Second)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := postgres.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			slog.Info("schema is up to date", "database", cfg.PostgresCfg.DBname)
			return nil
		},
	}
}
