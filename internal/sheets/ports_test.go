package sheets

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
)

func TestRows(t *testing.T) {
	series := []core.MonthlyCashflow{
		{Year: 2024, Month: 1, Income: decimal.RequireFromString("1000.50"), Expense: decimal.RequireFromString("200.25")},
		{Year: 2024, Month: 2, Income: decimal.Zero, Expense: decimal.RequireFromString("10")},
	}

	rows := Rows(series)
	require.Len(t, rows, 3)
	assert.Equal(t, []any{"Year", "Month", "Income", "Expense", "Net"}, rows[0])
	assert.Equal(t, []any{2024, 1, 1000.5, 200.25, 800.25}, rows[1])
	assert.Equal(t, []any{2024, 2, 0.0, 10.0, -10.0}, rows[2])
}

func TestRows_EmptySeriesKeepsHeader(t *testing.T) {
	rows := Rows(nil)
	require.Len(t, rows, 1)
	assert.Len(t, rows[0], len(Header))
}
