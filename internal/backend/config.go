package backend

import (
	"errors"
	"fmt"

	"ledger/internal/config"
)

// ErrUnsupportedBackend is returned for a DATA_BACKEND outside Types.
var ErrUnsupportedBackend = errors.New("unsupported backend")

// Type names a storage backend.
type Type string

const (
	SQLite   Type = "sqlite"
	Postgres Type = "postgres"
	Memory   Type = "memory"
)

// Types lists the supported backends in preference order.
func Types() []Type {
	return []Type{SQLite, Postgres, Memory}
}

func (t Type) valid() bool {
	for _, known := range Types() {
		if t == known {
			return true
		}
	}
	return false
}

// Config selects and locates a backend.
type Config struct {
	Type           Type
	SQLiteDBPath   string
	DatabaseURL    string
	CategoriesFile string // memory only; empty seeds the default registry
}

// FromAppConfig picks the storage settings out of the process config.
func FromAppConfig(cfg *config.Config) (Config, error) {
	if cfg == nil {
		return Config{}, errors.New("app config is nil")
	}
	bc := Config{
		Type:           Type(cfg.DataBackend),
		SQLiteDBPath:   cfg.SQLiteDBPath,
		DatabaseURL:    cfg.DatabaseURL,
		CategoriesFile: cfg.CategoriesFile,
	}
	return bc, bc.Validate()
}

// Validate checks that the selected backend has what it needs to open.
func (c Config) Validate() error {
	switch {
	case !c.Type.valid():
		return fmt.Errorf("%w: %q", ErrUnsupportedBackend, c.Type)
	case c.Type == SQLite && c.SQLiteDBPath == "":
		return errors.New("sqlite backend needs a database path")
	case c.Type == Postgres && c.DatabaseURL == "":
		return errors.New("postgres backend needs a database URL")
	}
	return nil
}
