package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
	"ledger/internal/services"
	"ledger/internal/storage/storetest"
)

func createTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository_Store(t *testing.T) {
	storetest.Run(t, func(t *testing.T) services.Store {
		return createTestRepository(t)
	})
}

func TestSQLiteRepository_MigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	repo, err = NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()

	cats, err := repo.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Len(t, cats, len(core.DefaultCategories()))
}

func TestSQLiteRepository_CreateCategory(t *testing.T) {
	repo := createTestRepository(t)
	ctx := context.Background()

	c, err := repo.CreateCategory(ctx, "  Gifts ", core.CategoryExpense)
	require.NoError(t, err)
	assert.Equal(t, "Gifts", c.Name)

	got, ok, err := repo.GetCategory(ctx, c.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, c, got)

	_, err = repo.CreateCategory(ctx, "Gifts", core.CategoryExpense)
	assert.Error(t, err, "name+type is unique")

	_, err = repo.CreateCategory(ctx, "Bonus", core.CategoryType("transfer"))
	assert.ErrorIs(t, err, core.ErrInvalidTransactionType)
}

func TestSQLiteRepository_RejectsUnknownCategory(t *testing.T) {
	repo := createTestRepository(t)
	_, err := repo.CreateTransaction(context.Background(), "alice", core.TransactionPayload{
		Type:            core.CategoryExpense,
		CategoryID:      424242,
		Description:     "Orphan",
		TransactionDate: core.NewDate(2024, 1, 1),
	})
	assert.Error(t, err, "foreign keys are enforced")
}
