package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	applog "ledger/internal/log"
	"ledger/internal/storage"
	"ledger/internal/storage/memory"
	"ledger/internal/storage/postgres"
)

type DefaultFactory struct {
	logger *applog.Logger
}

func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.Default(applog.ComponentBackend)
	}
	return &DefaultFactory{logger: logger}
}

// Open connects to the configured backend, migrating SQL databases first.
func (f *DefaultFactory) Open(ctx context.Context, cfg Config) (*Opened, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		store Store
		err   error
	)
	switch cfg.Type {
	case SQLite:
		store, err = storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	case Postgres:
		store, err = postgres.New(ctx, cfg.DatabaseURL)
	case Memory:
		store = openMemory(cfg.CategoriesFile)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.Type, err)
	}

	f.logger.InfoContext(ctx, "Backend ready", "backend", cfg.Type)
	return &Opened{Store: store, Cleanup: store.Close}, nil
}

func openMemory(categoriesFile string) *memory.Store {
	if categoriesFile == "" {
		return memory.NewWithDefaults()
	}
	return memory.NewFromFile(categoriesFile)
}

// Migrate applies the schema for cfg without keeping a connection open.
// The memory backend has no schema.
func Migrate(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	switch cfg.Type {
	case SQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLiteDBPath), 0755); err != nil {
			return fmt.Errorf("create db directory: %w", err)
		}
		return storage.RunMigrations(cfg.SQLiteDBPath)
	case Postgres:
		return postgres.RunMigrations(cfg.DatabaseURL)
	}
	return nil
}
