package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ledger/internal/backend"
	"ledger/internal/config"
	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/services"
)

func transactionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "Inspect a user's transactions",
	}
	cmd.AddCommand(transactionsRecentCmd(a))
	return cmd
}

func transactionsRecentCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Most recent transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, err := userContext(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			asJSON, _ := cmd.Flags().GetBool("json")

			return a.withStore(cmd, func(_ context.Context, cfg *config.Config, store backend.Store) error {
				ledger := services.NewLedgerService(store, core.NewValidator(clockFor(cfg)),
					services.WithLedgerLogger(a.logger.WithComponent(applog.ComponentLedger)))
				rows, err := ledger.ListRecentTransactions(ctx, limit)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, rows)
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tDATE\tTYPE\tCATEGORY\tAMOUNT\tDESCRIPTION")
				for _, r := range rows {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
						r.ID, r.TransactionDate, r.CategoryType, r.CategoryName, money(r.Amount), r.Description)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().String("user", "", "user id (required)")
	cmd.Flags().Int("limit", services.DefaultRecentLimit, "number of transactions")
	cmd.Flags().Bool("json", false, "print JSON instead of a table")
	return cmd
}
