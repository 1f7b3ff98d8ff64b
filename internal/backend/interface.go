package backend

import (
	"context"

	"ledger/internal/services"
)

// Store is a ledger backend that also accepts operator-added categories.
type Store interface {
	services.Store
	services.CategoryWriter
}

// Opened is a live backend plus the function that releases it.
type Opened struct {
	Store   Store
	Cleanup func() error
}

// Factory opens backends.
type Factory interface {
	Open(ctx context.Context, cfg Config) (*Opened, error)
}
