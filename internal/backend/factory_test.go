package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/config"
	"ledger/internal/core"
)

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets"})
	assert.ErrorIs(t, err, ErrUnsupportedBackend)

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:  "postgres",
		DatabaseURL:  "postgres://localhost/ledger",
		SQLiteDBPath: "ignored.db",
	})
	require.NoError(t, err)
	assert.Equal(t, Postgres, cfg.Type)
	assert.Equal(t, "postgres://localhost/ledger", cfg.DatabaseURL)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"sqlite with path", Config{Type: SQLite, SQLiteDBPath: "x.db"}, false},
		{"sqlite without path", Config{Type: SQLite}, true},
		{"postgres without url", Config{Type: Postgres}, true},
		{"memory", Config{Type: Memory}, false},
		{"unknown", Config{Type: "sheets"}, true},
		{"empty", Config{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			assert.Equal(t, tt.wantErr, err != nil, "Validate() error = %v", err)
		})
	}
}

func TestOpen_Memory(t *testing.T) {
	opened, err := NewFactory(nil).Open(context.Background(), Config{Type: Memory})
	require.NoError(t, err)
	defer opened.Cleanup()

	cats, err := opened.Store.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Len(t, cats, len(core.DefaultCategories()))
}

func TestOpen_MemoryFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "categories.txt")
	require.NoError(t, os.WriteFile(path, []byte("# seed\nincome,Bonus\nexpense,Travel\n"), 0644))

	opened, err := NewFactory(nil).Open(context.Background(), Config{Type: Memory, CategoriesFile: path})
	require.NoError(t, err)

	cats, err := opened.Store.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "Bonus", cats[0].Name)
	assert.Equal(t, core.CategoryIncome, cats[0].Type)
}

func TestOpen_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ledger.db")

	opened, err := NewFactory(nil).Open(context.Background(), Config{Type: SQLite, SQLiteDBPath: path})
	require.NoError(t, err)
	defer opened.Cleanup()

	require.NoError(t, opened.Store.Ping(context.Background()))
	cats, err := opened.Store.ListCategories(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, cats)
}

func TestMigrate_SQLiteIsIdempotent(t *testing.T) {
	cfg := Config{Type: SQLite, SQLiteDBPath: filepath.Join(t.TempDir(), "data", "ledger.db")}
	require.NoError(t, Migrate(cfg))
	require.NoError(t, Migrate(cfg))
	require.NoError(t, Migrate(Config{Type: Memory}))
}

func TestOpen_Invalid(t *testing.T) {
	_, err := NewFactory(nil).Open(context.Background(), Config{Type: "sheets"})
	assert.ErrorIs(t, err, ErrUnsupportedBackend)
}
