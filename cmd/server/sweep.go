package main

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"rental-service/internal/services"
)

func newSweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run the overdue billing sweep once and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, cleanup, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()

			a, err := buildApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.services.Sweep.Run(cmd.Context())
			if errors.Is(err, services.ErrSweepLocked) {
				cmd.PrintErrln("another sweep holds the lock, nothing to do")
				return nil
			}
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
}
