package storage

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
)

// ToCategory converts a category record; the type is trusted from the schema CHECK.
func ToCategory(r CategoryRecord) core.Category {
	return core.Category{ID: r.ID, Name: r.Name, Type: core.CategoryType(r.Type)}
}

// ToTransaction converts a stored transaction, parsing its decimal and date text.
func ToTransaction(r TransactionRecord) (core.Transaction, error) {
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse amount of transaction %d: %w", r.ID, err)
	}
	date, err := core.ParseDate(r.TransactionDate)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse date of transaction %d: %w", r.ID, err)
	}
	createdAt, err := parseTimestamp(r.CreatedAt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse created_at of transaction %d: %w", r.ID, err)
	}
	return core.Transaction{
		ID:              r.ID,
		UserID:          r.UserID,
		CategoryID:      r.CategoryID,
		Amount:          amount,
		Description:     r.Description,
		TransactionDate: date,
		CreatedAt:       createdAt,
	}, nil
}

// ToTransactionRows converts joined listing records.
func ToTransactionRows(records []TransactionRowRecord) ([]core.TransactionRow, error) {
	rows := make([]core.TransactionRow, 0, len(records))
	for _, r := range records {
		amount, err := decimal.NewFromString(r.Amount)
		if err != nil {
			return nil, fmt.Errorf("parse amount of transaction %d: %w", r.ID, err)
		}
		date, err := core.ParseDate(r.TransactionDate)
		if err != nil {
			return nil, fmt.Errorf("parse date of transaction %d: %w", r.ID, err)
		}
		rows = append(rows, core.TransactionRow{
			ID:              r.ID,
			CategoryID:      r.CategoryID,
			Description:     r.Description,
			Amount:          amount,
			TransactionDate: date,
			CategoryName:    r.CategoryName,
			CategoryType:    core.CategoryType(r.CategoryType),
		})
	}
	return rows, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
