package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ledger/internal/backend"
	"ledger/internal/config"
	"ledger/internal/core"
)

func categoriesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Inspect and extend the category registry",
	}
	cmd.AddCommand(categoriesListCmd(a))
	cmd.AddCommand(categoriesAddCmd(a))
	return cmd
}

func categoriesListCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List categories in id order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			only, _ := cmd.Flags().GetString("type")
			var filter core.CategoryType
			if only != "" {
				t, err := core.ParseCategoryType(only)
				if err != nil {
					return fmt.Errorf("--type: %w", err)
				}
				filter = t
			}

			return a.withStore(cmd, func(ctx context.Context, _ *config.Config, store backend.Store) error {
				cats, err := store.ListCategories(ctx)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tTYPE\tNAME")
				for _, c := range cats {
					if filter != "" && c.Type != filter {
						continue
					}
					fmt.Fprintf(w, "%d\t%s\t%s\n", c.ID, c.Type, c.Name)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().String("type", "", "only list income or expense categories")
	return cmd
}

func categoriesAddCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a category",
		Long: `Add a category to the registry. Its type cannot change afterwards.

Example:
  ledgerctl categories add --type expense "Pets"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			typ, _ := cmd.Flags().GetString("type")
			t, err := core.ParseCategoryType(typ)
			if err != nil {
				return fmt.Errorf("--type: %w", err)
			}
			cat := core.Category{Name: args[0], Type: t}
			if err := cat.Validate(); err != nil {
				return err
			}

			return a.withStore(cmd, func(ctx context.Context, _ *config.Config, store backend.Store) error {
				created, err := store.CreateCategory(ctx, cat.Name, cat.Type)
				if err != nil {
					return err
				}
				a.logger.Info("Category added", "category_id", created.ID, "name", created.Name, "type", created.Type)
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\n", created.ID, created.Type, created.Name)
				return nil
			})
		},
	}
	cmd.Flags().String("type", "", "income or expense (required)")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}
