package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"rental-service/internal/config"
	"rental-service/internal/logging"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	root := &cobra.Command{
		Use:           "rental-service",
		Short:         "Property rental backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand(), newMigrateCommand(), newSweepCommand())

	if err := root.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// setup loads config and installs the logger shared by every subcommand.
func setup() (*config.RentalServiceConfig, func(), error) {
	cfg := config.New()
	closer, err := logging.Setup(cfg.LogDir)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if closer != nil {
			closer.Close()
		}
	}
	return cfg, cleanup, nil
}
