package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"ledger/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

// NewSQLiteRepository opens dbPath, creating its directory, and migrates it.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, queries: New(db)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	records, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	categories := make([]core.Category, 0, len(records))
	for _, rec := range records {
		categories = append(categories, ToCategory(rec))
	}
	return categories, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id int64) (core.Category, bool, error) {
	rec, err := r.queries.GetCategory(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, false, nil
	}
	if err != nil {
		return core.Category{}, false, fmt.Errorf("get category %d: %w", id, err)
	}
	return ToCategory(rec), true, nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, name string, categoryType core.CategoryType) (core.Category, error) {
	c := core.Category{Name: strings.TrimSpace(name), Type: categoryType}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	id, err := r.queries.CreateCategory(ctx, c.Name, string(c.Type))
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	c.ID = id
	slog.InfoContext(ctx, "Category created", "category_id", id, "name", c.Name, "type", c.Type)
	return c, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, userID string, p core.TransactionPayload) (core.Transaction, error) {
	id, createdAt, err := r.queries.CreateTransaction(ctx, CreateTransactionParams{
		UserID:          userID,
		CategoryID:      p.CategoryID,
		Amount:          p.Amount.String(),
		Description:     p.Description,
		TransactionDate: p.TransactionDate.String(),
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	created, err := parseTimestamp(createdAt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"transaction_id", id,
		"user_id", userID,
		"category_id", p.CategoryID,
		"amount", p.Amount.String(),
		"transaction_date", p.TransactionDate.String())

	return core.Transaction{
		ID:              id,
		UserID:          userID,
		CategoryID:      p.CategoryID,
		Amount:          p.Amount,
		Description:     p.Description,
		TransactionDate: p.TransactionDate,
		CreatedAt:       created,
	}, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, userID string, id int64, p core.TransactionPayload) error {
	n, err := r.queries.UpdateTransaction(ctx, UpdateTransactionParams{
		CategoryID:      p.CategoryID,
		Amount:          p.Amount.String(),
		Description:     p.Description,
		TransactionDate: p.TransactionDate.String(),
		ID:              id,
		UserID:          userID,
	})
	if err != nil {
		return fmt.Errorf("update transaction %d: %w", id, err)
	}
	if n == 0 {
		slog.WarnContext(ctx, "Update matched no transaction", "transaction_id", id, "user_id", userID)
	}
	return nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID string, id int64) error {
	n, err := r.queries.DeleteTransaction(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	if n == 0 {
		slog.WarnContext(ctx, "Delete matched no transaction", "transaction_id", id, "user_id", userID)
	}
	return nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID string, id int64) (core.Transaction, bool, error) {
	rec, err := r.queries.GetTransaction(ctx, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, false, nil
	}
	if err != nil {
		return core.Transaction{}, false, fmt.Errorf("get transaction %d: %w", id, err)
	}
	t, err := ToTransaction(rec)
	if err != nil {
		return core.Transaction{}, false, err
	}
	return t, true, nil
}

func (r *SQLiteRepository) ListTransactionsByMonth(ctx context.Context, userID string, year, month int) ([]core.TransactionRow, error) {
	from, to := core.MonthBounds(year, month)
	records, err := r.queries.ListTransactionsInRange(ctx, userID, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("list transactions %04d-%02d: %w", year, month, err)
	}
	return ToTransactionRows(records)
}

func (r *SQLiteRepository) ListTransactionsByYear(ctx context.Context, userID string, year int) ([]core.TransactionRow, error) {
	from, to := core.YearBounds(year)
	records, err := r.queries.ListTransactionsInRange(ctx, userID, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("list transactions %04d: %w", year, err)
	}
	return ToTransactionRows(records)
}

func (r *SQLiteRepository) ListRecentTransactions(ctx context.Context, userID string, limit int) ([]core.TransactionRow, error) {
	records, err := r.queries.ListRecentTransactions(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent transactions: %w", err)
	}
	return ToTransactionRows(records)
}

func (r *SQLiteRepository) EarliestTransactionDate(ctx context.Context, userID string) (core.Date, bool, error) {
	s, err := r.queries.EarliestTransactionDate(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Date{}, false, nil
	}
	if err != nil {
		return core.Date{}, false, fmt.Errorf("earliest transaction date: %w", err)
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, false, fmt.Errorf("parse earliest transaction date %q: %w", s, err)
	}
	return d, true, nil
}
