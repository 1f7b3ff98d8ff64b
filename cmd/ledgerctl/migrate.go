package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ledger/internal/backend"
)

func migrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long: `Create or update the schema and seed the default categories.

Running it twice is harmless. The memory backend has nothing to migrate.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.config()
			if err := cfg.Validate(); err != nil {
				return err
			}
			bcfg, err := backend.FromAppConfig(cfg)
			if err != nil {
				return err
			}

			a.logger.Info("Running migrations", "backend", bcfg.Type)
			if err := backend.Migrate(bcfg); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrations applied (%s)\n", bcfg.Type)
			return nil
		},
	}
}
