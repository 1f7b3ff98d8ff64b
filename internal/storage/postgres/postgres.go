// Package postgres is the PostgreSQL ledger backend.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"ledger/internal/core"
	"ledger/internal/storage"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	transactionColumns = `id, user_id, category_id, amount::text, description, transaction_date::text,
       to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS"Z"')`

	rowColumns = `t.id, t.category_id, t.description, t.amount::text, t.transaction_date::text,
       COALESCE(c.name, ''), COALESCE(c.type, '')
FROM transactions t
LEFT JOIN categories c ON c.id = t.category_id`
)

type Repository struct {
	pool *pgxpool.Pool
}

// New connects to databaseURL and applies the embedded migrations.
func New(ctx context.Context, databaseURL string) (*Repository, error) {
	if err := RunMigrations(databaseURL); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Repository{pool: pool}, nil
}

// RunMigrations applies the schema through database/sql on the pgx driver.
func RunMigrations(databaseURL string) error {
	db, err := sql.Open("pgx/v5", databaseURL)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}
	defer db.Close()

	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		return fmt.Errorf("create pgx driver: %w", err)
	}
	return storage.ApplyMigrations(migrationsFS, "pgx5", driver)
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, type FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (storage.CategoryRecord, error) {
		var c storage.CategoryRecord
		err := row.Scan(&c.ID, &c.Name, &c.Type)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, 0, len(records))
	for _, rec := range records {
		out = append(out, storage.ToCategory(rec))
	}
	return out, nil
}

func (r *Repository) GetCategory(ctx context.Context, id int64) (core.Category, bool, error) {
	var c storage.CategoryRecord
	err := r.pool.QueryRow(ctx, `SELECT id, name, type FROM categories WHERE id = $1`, id).Scan(&c.ID, &c.Name, &c.Type)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Category{}, false, nil
	}
	if err != nil {
		return core.Category{}, false, fmt.Errorf("get category %d: %w", id, err)
	}
	return storage.ToCategory(c), true, nil
}

func (r *Repository) CreateCategory(ctx context.Context, name string, t core.CategoryType) (core.Category, error) {
	c := core.Category{Name: strings.TrimSpace(name), Type: t}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	err := r.pool.QueryRow(ctx, `INSERT INTO categories (name, type) VALUES ($1, $2) RETURNING id`,
		c.Name, string(c.Type)).Scan(&c.ID)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	slog.InfoContext(ctx, "Category created", "category_id", c.ID, "name", c.Name, "type", c.Type)
	return c, nil
}

func (r *Repository) CreateTransaction(ctx context.Context, userID string, p core.TransactionPayload) (core.Transaction, error) {
	var rec storage.TransactionRecord
	err := r.pool.QueryRow(ctx, `INSERT INTO transactions (user_id, category_id, amount, description, transaction_date)
VALUES ($1, $2, $3::numeric, $4, $5::date)
RETURNING `+transactionColumns,
		userID, p.CategoryID, p.Amount.String(), p.Description, p.TransactionDate.String(),
	).Scan(&rec.ID, &rec.UserID, &rec.CategoryID, &rec.Amount, &rec.Description, &rec.TransactionDate, &rec.CreatedAt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	return storage.ToTransaction(rec)
}

func (r *Repository) UpdateTransaction(ctx context.Context, userID string, id int64, p core.TransactionPayload) error {
	tag, err := r.pool.Exec(ctx, `UPDATE transactions
SET category_id = $1, amount = $2::numeric, description = $3, transaction_date = $4::date
WHERE id = $5 AND user_id = $6`,
		p.CategoryID, p.Amount.String(), p.Description, p.TransactionDate.String(), id, userID)
	if err != nil {
		return fmt.Errorf("update transaction %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		slog.WarnContext(ctx, "Update matched no transaction", "transaction_id", id, "user_id", userID)
	}
	return nil
}

func (r *Repository) DeleteTransaction(ctx context.Context, userID string, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		slog.WarnContext(ctx, "Delete matched no transaction", "transaction_id", id, "user_id", userID)
	}
	return nil
}

func (r *Repository) GetTransaction(ctx context.Context, userID string, id int64) (core.Transaction, bool, error) {
	var rec storage.TransactionRecord
	err := r.pool.QueryRow(ctx, `SELECT `+transactionColumns+`
FROM transactions WHERE id = $1 AND user_id = $2`, id, userID,
	).Scan(&rec.ID, &rec.UserID, &rec.CategoryID, &rec.Amount, &rec.Description, &rec.TransactionDate, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Transaction{}, false, nil
	}
	if err != nil {
		return core.Transaction{}, false, fmt.Errorf("get transaction %d: %w", id, err)
	}
	t, err := storage.ToTransaction(rec)
	if err != nil {
		return core.Transaction{}, false, err
	}
	return t, true, nil
}

func (r *Repository) ListTransactionsByMonth(ctx context.Context, userID string, year, month int) ([]core.TransactionRow, error) {
	from, to := core.MonthBounds(year, month)
	return r.listRange(ctx, userID, from, to)
}

func (r *Repository) ListTransactionsByYear(ctx context.Context, userID string, year int) ([]core.TransactionRow, error) {
	from, to := core.YearBounds(year)
	return r.listRange(ctx, userID, from, to)
}

func (r *Repository) ListRecentTransactions(ctx context.Context, userID string, limit int) ([]core.TransactionRow, error) {
	return r.listRows(ctx, `SELECT `+rowColumns+`
WHERE t.user_id = $1
ORDER BY t.transaction_date DESC, t.id DESC
LIMIT $2`, userID, limit)
}

func (r *Repository) EarliestTransactionDate(ctx context.Context, userID string) (core.Date, bool, error) {
	var s string
	err := r.pool.QueryRow(ctx, `SELECT MIN(transaction_date)::text FROM transactions WHERE user_id = $1 HAVING COUNT(*) > 0`, userID).Scan(&s)
	if errors.Is(err, pgx.ErrNoRows) {
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

func (r *Repository) listRange(ctx context.Context, userID string, from, to core.Date) ([]core.TransactionRow, error) {
	return r.listRows(ctx, `SELECT `+rowColumns+`
WHERE t.user_id = $1 AND t.transaction_date >= $2::date AND t.transaction_date < $3::date
ORDER BY t.transaction_date DESC, t.id DESC`, userID, from.String(), to.String())
}

func (r *Repository) listRows(ctx context.Context, query string, args ...any) ([]core.TransactionRow, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (storage.TransactionRowRecord, error) {
		var i storage.TransactionRowRecord
		err := row.Scan(&i.ID, &i.CategoryID, &i.Description, &i.Amount, &i.TransactionDate, &i.CategoryName, &i.CategoryType)
		return i, err
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return storage.ToTransactionRows(records)
}
