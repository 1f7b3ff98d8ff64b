// Package storetest is a behavioral suite shared by every ledger backend.
package storetest

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
	"ledger/internal/services"
)

// Factory returns an empty, migrated store. Run registers cleanup itself.
type Factory func(t *testing.T) services.Store

// Run exercises the Store contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("categories are seeded", func(t *testing.T) { testSeededCategories(t, newStore(t)) })
	t.Run("create and get", func(t *testing.T) { testCreateAndGet(t, newStore(t)) })
	t.Run("ownership isolation", func(t *testing.T) { testOwnership(t, newStore(t)) })
	t.Run("update replaces fields", func(t *testing.T) { testUpdate(t, newStore(t)) })
	t.Run("list by month ordering", func(t *testing.T) { testListByMonth(t, newStore(t)) })
	t.Run("list by year and recent", func(t *testing.T) { testListByYearAndRecent(t, newStore(t)) })
	t.Run("earliest date", func(t *testing.T) { testEarliest(t, newStore(t)) })
	t.Run("amounts stay exact", func(t *testing.T) { testExactAmounts(t, newStore(t)) })
}

func categoryByName(t *testing.T, s services.Store, name string) core.Category {
	t.Helper()
	cats, err := s.ListCategories(context.Background())
	require.NoError(t, err)
	for _, c := range cats {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("category %q not found", name)
	return core.Category{}
}

func payload(t *testing.T, c core.Category, amount, desc, date string) core.TransactionPayload {
	t.Helper()
	d, err := core.ParseDate(date)
	require.NoError(t, err)
	return core.TransactionPayload{
		Type:            c.Type,
		CategoryID:      c.ID,
		Amount:          decimal.RequireFromString(amount),
		Description:     desc,
		TransactionDate: d,
	}
}

func testSeededCategories(t *testing.T, s services.Store) {
	ctx := context.Background()
	cats, err := s.ListCategories(ctx)
	require.NoError(t, err)
	defaults := core.DefaultCategories()
	require.Len(t, cats, len(defaults))
	for i, c := range cats {
		assert.Equal(t, defaults[i].Name, c.Name)
		assert.Equal(t, defaults[i].Type, c.Type)
	}

	got, ok, err := s.GetCategory(ctx, cats[0].ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, cats[0], got)

	_, ok, err = s.GetCategory(ctx, 999999)
	require.NoError(t, err)
	assert.False(t, ok)
}

func testCreateAndGet(t *testing.T, s services.Store) {
	ctx := context.Background()
	food := categoryByName(t, s, "Food")

	created, err := s.CreateTransaction(ctx, "alice", payload(t, food, "12.34", "Lunch out", "2024-05-02"))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "alice", created.UserID)

	dup, err := s.CreateTransaction(ctx, "alice", payload(t, food, "12.34", "Lunch out", "2024-05-02"))
	require.NoError(t, err)
	assert.NotEqual(t, created.ID, dup.ID, "no duplicate detection")

	got, ok, err := s.GetTransaction(ctx, "alice", created.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "12.34", got.Amount.String())
	assert.Equal(t, "Lunch out", got.Description)
	assert.Equal(t, "2024-05-02", got.TransactionDate.String())
	assert.Equal(t, food.ID, got.CategoryID)
	assert.False(t, got.CreatedAt.IsZero())

	_, ok, err = s.GetTransaction(ctx, "alice", created.ID+1000)
	require.NoError(t, err)
	assert.False(t, ok)
}

func testOwnership(t *testing.T, s services.Store) {
	ctx := context.Background()
	food := categoryByName(t, s, "Food")
	tx, err := s.CreateTransaction(ctx, "bob", payload(t, food, "50", "Groceries", "2024-01-10"))
	require.NoError(t, err)

	_, ok, err := s.GetTransaction(ctx, "mallory", tx.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.UpdateTransaction(ctx, "mallory", tx.ID, payload(t, food, "1", "Hijacked", "2024-01-10")))
	require.NoError(t, s.DeleteTransaction(ctx, "mallory", tx.ID))

	got, ok, err := s.GetTransaction(ctx, "bob", tx.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Groceries", got.Description)
	assert.Equal(t, "50", got.Amount.String())

	rows, err := s.ListTransactionsByMonth(ctx, "mallory", 2024, 1)
	require.NoError(t, err)
	assert.Empty(t, rows)

	require.NoError(t, s.DeleteTransaction(ctx, "bob", tx.ID))
	_, ok, err = s.GetTransaction(ctx, "bob", tx.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.DeleteTransaction(ctx, "bob", tx.ID), "deleting twice is a no-op")
}

func testUpdate(t *testing.T, s services.Store) {
	ctx := context.Background()
	food := categoryByName(t, s, "Food")
	transport := categoryByName(t, s, "Transport")
	tx, err := s.CreateTransaction(ctx, "alice", payload(t, food, "10", "Pizza night", "2024-02-01"))
	require.NoError(t, err)

	require.NoError(t, s.UpdateTransaction(ctx, "alice", tx.ID, payload(t, transport, "2.20", "Bus ticket", "2024-03-15")))

	got, ok, err := s.GetTransaction(ctx, "alice", tx.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, transport.ID, got.CategoryID)
	assert.Equal(t, "2.2", got.Amount.String())
	assert.Equal(t, "Bus ticket", got.Description)
	assert.Equal(t, "2024-03-15", got.TransactionDate.String())
	assert.Equal(t, "alice", got.UserID)

	require.NoError(t, s.UpdateTransaction(ctx, "alice", tx.ID+1000, payload(t, food, "1", "Nothing here", "2024-03-15")))
}

func testListByMonth(t *testing.T, s services.Store) {
	ctx := context.Background()
	food := categoryByName(t, s, "Food")
	salary := categoryByName(t, s, "Salary")

	a, err := s.CreateTransaction(ctx, "alice", payload(t, food, "5", "First", "2024-04-10"))
	require.NoError(t, err)
	b, err := s.CreateTransaction(ctx, "alice", payload(t, salary, "2000", "Pay", "2024-04-30"))
	require.NoError(t, err)
	c, err := s.CreateTransaction(ctx, "alice", payload(t, food, "7", "Same day", "2024-04-10"))
	require.NoError(t, err)
	_, err = s.CreateTransaction(ctx, "alice", payload(t, food, "9", "Next month", "2024-05-01"))
	require.NoError(t, err)
	_, err = s.CreateTransaction(ctx, "alice", payload(t, food, "9", "Prev month", "2024-03-31"))
	require.NoError(t, err)

	rows, err := s.ListTransactionsByMonth(ctx, "alice", 2024, 4)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []int64{b.ID, c.ID, a.ID}, []int64{rows[0].ID, rows[1].ID, rows[2].ID})
	assert.Equal(t, "Salary", rows[0].CategoryName)
	assert.Equal(t, core.CategoryIncome, rows[0].CategoryType)
	assert.Equal(t, core.CategoryExpense, rows[1].CategoryType)

	again, err := s.ListTransactionsByMonth(ctx, "alice", 2024, 4)
	require.NoError(t, err)
	assert.Equal(t, rows, again)
}

func testListByYearAndRecent(t *testing.T, s services.Store) {
	ctx := context.Background()
	food := categoryByName(t, s, "Food")
	for _, date := range []string{"2023-12-31", "2024-01-01", "2024-06-15", "2024-12-31", "2025-01-01"} {
		_, err := s.CreateTransaction(ctx, "alice", payload(t, food, "1", "Entry "+date, date))
		require.NoError(t, err)
	}

	rows, err := s.ListTransactionsByYear(ctx, "alice", 2024)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for _, r := range rows {
		assert.Equal(t, 2024, r.TransactionDate.Year())
	}

	recent, err := s.ListRecentTransactions(ctx, "alice", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "2025-01-01", recent[0].TransactionDate.String())
	assert.Equal(t, "2024-12-31", recent[1].TransactionDate.String())

	none, err := s.ListRecentTransactions(ctx, "nobody", 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testEarliest(t *testing.T, s services.Store) {
	ctx := context.Background()
	_, ok, err := s.EarliestTransactionDate(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	food := categoryByName(t, s, "Food")
	for _, date := range []string{"2022-03-04", "2019-06-01", "2024-01-01"} {
		_, err := s.CreateTransaction(ctx, "alice", payload(t, food, "1", "Entry", date))
		require.NoError(t, err)
	}
	_, err = s.CreateTransaction(ctx, "bob", payload(t, food, "1", "Older but not mine", "2001-01-01"))
	require.NoError(t, err)

	d, ok, err := s.EarliestTransactionDate(ctx, "alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2019-06-01", d.String())
}

func testExactAmounts(t *testing.T, s services.Store) {
	ctx := context.Background()
	salary := categoryByName(t, s, "Salary")
	for i := 0; i < 3; i++ {
		_, err := s.CreateTransaction(ctx, "alice", payload(t, salary, "0.10", "Dime", "2024-01-05"))
		require.NoError(t, err)
	}
	rows, err := s.ListTransactionsByYear(ctx, "alice", 2024)
	require.NoError(t, err)
	series := core.BuildAnnualCashflow(2024, rows)
	assert.True(t, series[0].Income.Equal(decimal.RequireFromString("0.30")), "got %s", series[0].Income)
}
