package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ledger/internal/backend"
	"ledger/internal/config"
	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/services"
)

func cashflowCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cashflow",
		Short: "Print cashflow reports for a user",
	}
	cmd.PersistentFlags().String("user", "", "user id to report on (required)")
	cmd.PersistentFlags().Bool("json", false, "print JSON instead of a table")
	cmd.AddCommand(cashflowAnnualCmd(a))
	cmd.AddCommand(cashflowYearsCmd(a))
	return cmd
}

func (a *app) cashflowService(cfg *config.Config, store backend.Store) *services.CashflowService {
	return services.NewCashflowService(store, clockFor(cfg),
		services.WithCashflowLogger(a.logger.WithComponent(applog.ComponentCashflow)))
}

func cashflowAnnualCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "annual",
		Short: "Twelve months of income, expense and net",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, err := userContext(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			year, _ := cmd.Flags().GetInt("year")
			asJSON, _ := cmd.Flags().GetBool("json")

			return a.withStore(cmd, func(_ context.Context, cfg *config.Config, store backend.Store) error {
				if year == 0 {
					year = clockFor(cfg).Now().Year()
				}
				series, err := a.cashflowService(cfg, store).AnnualCashflow(ctx, year)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, series)
				}
				return writeSeries(cmd, series)
			})
		},
	}
	cmd.Flags().Int("year", 0, "calendar year (default: current year)")
	return cmd
}

func cashflowYearsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "years",
		Short: "Years from the user's first transaction to today",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, err := userContext(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			asJSON, _ := cmd.Flags().GetBool("json")

			return a.withStore(cmd, func(_ context.Context, cfg *config.Config, store backend.Store) error {
				years, err := a.cashflowService(cfg, store).YearsRange(ctx)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, years)
				}
				for _, y := range years {
					fmt.Fprintln(cmd.OutOrStdout(), y)
				}
				return nil
			})
		},
	}
}

func writeSeries(cmd *cobra.Command, series []core.MonthlyCashflow) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "YEAR\tMONTH\tINCOME\tEXPENSE\tNET\t")
	for _, m := range series {
		fmt.Fprintf(w, "%d\t%02d\t%s\t%s\t%s\t\n", m.Year, m.Month, money(m.Income), money(m.Expense), money(m.Net()))
	}
	return w.Flush()
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
