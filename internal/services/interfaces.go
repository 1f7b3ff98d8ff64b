package services

import (
	"context"

	"ledger/internal/core"
)

// CategoryStore is the read side of the category registry.
type CategoryStore interface {
	ListCategories(ctx context.Context) ([]core.Category, error)
	GetCategory(ctx context.Context, id int64) (core.Category, bool, error)
}

// TransactionReader is everything the aggregator reads.
type TransactionReader interface {
	ListTransactionsByYear(ctx context.Context, userID string, year int) ([]core.TransactionRow, error)
	ListTransactionsByMonth(ctx context.Context, userID string, year, month int) ([]core.TransactionRow, error)
	EarliestTransactionDate(ctx context.Context, userID string) (core.Date, bool, error)
}

// TransactionStore persists transactions. Every method is scoped to userID;
// update and delete on an id the user does not own affect nothing and
// return nil.
type TransactionStore interface {
	TransactionReader
	CreateTransaction(ctx context.Context, userID string, p core.TransactionPayload) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, userID string, id int64, p core.TransactionPayload) error
	DeleteTransaction(ctx context.Context, userID string, id int64) error
	GetTransaction(ctx context.Context, userID string, id int64) (core.Transaction, bool, error)
	ListRecentTransactions(ctx context.Context, userID string, limit int) ([]core.TransactionRow, error)
}

// Store is a complete ledger backend.
type Store interface {
	CategoryStore
	TransactionStore
	Ping(ctx context.Context) error
	Close() error
}

// CategoryWriter is implemented by backends that accept operator-added categories.
type CategoryWriter interface {
	CreateCategory(ctx context.Context, name string, t core.CategoryType) (core.Category, error)
}

// Event kinds published after writes.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// Publisher announces ledger changes to other processes.
type Publisher interface {
	PublishTransactionChanged(ctx context.Context, userID string, transactionID int64, kind string) error
}

// ReportInvalidator drops cached reports for a user.
type ReportInvalidator interface {
	InvalidateUser(userID string)
}
