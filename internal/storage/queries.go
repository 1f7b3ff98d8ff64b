package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

const (
	listCategories = `SELECT id, name, type FROM categories ORDER BY id`

	getCategory = `SELECT id, name, type FROM categories WHERE id = ?`

	createCategory = `INSERT INTO categories (name, type) VALUES (?, ?) RETURNING id`

	createTransaction = `INSERT INTO transactions (user_id, category_id, amount, description, transaction_date)
VALUES (?, ?, ?, ?, ?)
RETURNING id, created_at`

	updateTransaction = `UPDATE transactions
SET category_id = ?, amount = ?, description = ?, transaction_date = ?
WHERE id = ? AND user_id = ?`

	deleteTransaction = `DELETE FROM transactions WHERE id = ? AND user_id = ?`

	getTransaction = `SELECT id, user_id, category_id, amount, description, transaction_date, created_at
FROM transactions
WHERE id = ? AND user_id = ?`

	selectTransactionRows = `SELECT t.id, t.category_id, t.description, t.amount, t.transaction_date,
       COALESCE(c.name, ''), COALESCE(c.type, '')
FROM transactions t
LEFT JOIN categories c ON c.id = t.category_id
`

	listTransactionsInRange = selectTransactionRows + `WHERE t.user_id = ? AND t.transaction_date >= ? AND t.transaction_date < ?
ORDER BY t.transaction_date DESC, t.id DESC`

	listRecentTransactions = selectTransactionRows + `WHERE t.user_id = ?
ORDER BY t.transaction_date DESC, t.id DESC
LIMIT ?`

	earliestTransactionDate = `SELECT transaction_date FROM transactions
WHERE user_id = ?
ORDER BY transaction_date ASC
LIMIT 1`
)

type CategoryRecord struct {
	ID   int64
	Name string
	Type string
}

type TransactionRecord struct {
	ID              int64
	UserID          string
	CategoryID      int64
	Amount          string
	Description     string
	TransactionDate string
	CreatedAt       string
}

type TransactionRowRecord struct {
	ID              int64
	CategoryID      int64
	Description     string
	Amount          string
	TransactionDate string
	CategoryName    string
	CategoryType    string
}

type CreateTransactionParams struct {
	UserID          string
	CategoryID      int64
	Amount          string
	Description     string
	TransactionDate string
}

type UpdateTransactionParams struct {
	CategoryID      int64
	Amount          string
	Description     string
	TransactionDate string
	ID              int64
	UserID          string
}

func (q *Queries) ListCategories(ctx context.Context) ([]CategoryRecord, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CategoryRecord
	for rows.Next() {
		var i CategoryRecord
		if err := rows.Scan(&i.ID, &i.Name, &i.Type); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

func (q *Queries) GetCategory(ctx context.Context, id int64) (CategoryRecord, error) {
	var i CategoryRecord
	err := q.db.QueryRowContext(ctx, getCategory, id).Scan(&i.ID, &i.Name, &i.Type)
	return i, err
}

func (q *Queries) CreateCategory(ctx context.Context, name, categoryType string) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createCategory, name, categoryType).Scan(&id)
	return id, err
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (int64, string, error) {
	var (
		id        int64
		createdAt string
	)
	err := q.db.QueryRowContext(ctx, createTransaction,
		arg.UserID, arg.CategoryID, arg.Amount, arg.Description, arg.TransactionDate,
	).Scan(&id, &createdAt)
	return id, createdAt, err
}

func (q *Queries) UpdateTransaction(ctx context.Context, arg UpdateTransactionParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateTransaction,
		arg.CategoryID, arg.Amount, arg.Description, arg.TransactionDate, arg.ID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) DeleteTransaction(ctx context.Context, id int64, userID string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) GetTransaction(ctx context.Context, id int64, userID string) (TransactionRecord, error) {
	var i TransactionRecord
	err := q.db.QueryRowContext(ctx, getTransaction, id, userID).Scan(
		&i.ID, &i.UserID, &i.CategoryID, &i.Amount, &i.Description, &i.TransactionDate, &i.CreatedAt)
	return i, err
}

func (q *Queries) ListTransactionsInRange(ctx context.Context, userID, from, to string) ([]TransactionRowRecord, error) {
	return q.listRows(ctx, listTransactionsInRange, userID, from, to)
}

func (q *Queries) ListRecentTransactions(ctx context.Context, userID string, limit int) ([]TransactionRowRecord, error) {
	return q.listRows(ctx, listRecentTransactions, userID, limit)
}

func (q *Queries) EarliestTransactionDate(ctx context.Context, userID string) (string, error) {
	var d string
	err := q.db.QueryRowContext(ctx, earliestTransactionDate, userID).Scan(&d)
	return d, err
}

func (q *Queries) listRows(ctx context.Context, query string, args ...any) ([]TransactionRowRecord, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TransactionRowRecord
	for rows.Next() {
		var i TransactionRowRecord
		if err := rows.Scan(&i.ID, &i.CategoryID, &i.Description, &i.Amount, &i.TransactionDate,
			&i.CategoryName, &i.CategoryType); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
