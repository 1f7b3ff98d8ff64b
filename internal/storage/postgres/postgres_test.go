package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"ledger/internal/core"
	"ledger/internal/services"
	"ledger/internal/storage/storetest"
)

// Runs only against a disposable database named by LEDGER_TEST_DATABASE_URL.
func createTestRepository(t *testing.T) *Repository {
	t.Helper()
	url := os.Getenv("LEDGER_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("LEDGER_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	repo, err := New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	_, err = repo.pool.Exec(ctx, `TRUNCATE transactions`)
	require.NoError(t, err)
	_, err = repo.pool.Exec(ctx, `DELETE FROM categories WHERE id NOT IN (SELECT id FROM categories ORDER BY id LIMIT $1)`,
		len(core.DefaultCategories()))
	require.NoError(t, err)
	return repo
}

func TestRepository_Store(t *testing.T) {
	storetest.Run(t, func(t *testing.T) services.Store {
		return createTestRepository(t)
	})
}
