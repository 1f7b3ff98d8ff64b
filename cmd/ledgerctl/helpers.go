package main

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"ledger/internal/auth"
	"ledger/internal/backend"
	"ledger/internal/cli"
	"ledger/internal/config"
	"ledger/internal/core"
)

// withStore opens the configured backend, runs fn and closes the backend.
func (a *app) withStore(cmd *cobra.Command, fn func(ctx context.Context, cfg *config.Config, store backend.Store) error) error {
	cfg := a.config()
	if err := cfg.Validate(); err != nil {
		return err
	}
	res, err := a.openStore(cmd.Context(), a.logger, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := res.Cleanup(); cerr != nil {
			a.logger.Warn("Failed to close backend", "error", cerr)
		}
	}()
	return fn(cmd.Context(), cfg, res.Store)
}

// userContext attaches the --user flag as the acting identity.
func userContext(ctx context.Context, cmd *cobra.Command) (context.Context, error) {
	user, _ := cmd.Flags().GetString("user")
	user = strings.TrimSpace(user)
	if user == "" {
		return nil, errors.New("--user is required")
	}
	return auth.WithUser(ctx, user), nil
}

func clockFor(cfg *config.Config) core.Clock {
	return cli.Clock(cfg)
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
