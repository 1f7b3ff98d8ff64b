// Package sheets defines the outbound port for cashflow exports.
package sheets

import (
	"context"

	"ledger/internal/core"
)

// CashflowExporter publishes a user's cashflow series, every year the user
// has data for, replacing whatever was exported before.
type CashflowExporter interface {
	ExportCashflow(ctx context.Context, userID string, series []core.MonthlyCashflow) error
}

// Header is the column layout of an exported cashflow table.
var Header = []string{"Year", "Month", "Income", "Expense", "Net"}

// Rows renders series under Header. Amounts are display numbers.
func Rows(series []core.MonthlyCashflow) [][]any {
	rows := make([][]any, 0, len(series)+1)
	head := make([]any, len(Header))
	for i, h := range Header {
		head[i] = h
	}
	rows = append(rows, head)
	for _, m := range series {
		rows = append(rows, []any{
			m.Year,
			m.Month,
			core.DisplayAmount(m.Income),
			core.DisplayAmount(m.Expense),
			core.DisplayAmount(m.Net()),
		})
	}
	return rows
}
