package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/arturoeanton/aio-tracker/internal/adapter/store"
	"github.com/arturoeanton/aio-tracker/pkg/config"
)

func migrateCmd(cfgPath *string) *cobra.Command {
	var steps int

	cmd := &cobra.Command{
		Use:       "migrate [up|down|version]",
		Short:     "Run database migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			setupLogger(cfg)
			if cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is required for migrations")
			}

			if args[0] == "version" {
				v, dirty, err := store.MigrationVersion(cfg.DatabaseURL)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", v, dirty)
				return nil
			}

			if err := store.Migrate(cfg.DatabaseURL, args[0], steps); err != nil {
				return err
			}
			slog.Info("migrations applied", "direction", args[0], "steps", steps)
			return nil
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 0, "number of steps (0 = all)")
	return cmd
}
