package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	CategoryIncome  CategoryType = "income"
	CategoryExpense CategoryType = "expense"
)

type (
	CategoryType string

	Date struct {
		time.Time
	}

	Category struct {
		ID   int64        `json:"id"`
		Name string       `json:"name"`
		Type CategoryType `json:"type"`
	}

	// Transaction is a single dated monetary event owned by one user.
	Transaction struct {
		ID              int64           `json:"id"`
		UserID          string          `json:"userId"`
		CategoryID      int64           `json:"categoryId"`
		Amount          decimal.Decimal `json:"amount"`
		Description     string          `json:"description"`
		TransactionDate Date            `json:"transactionDate"`
		CreatedAt       time.Time       `json:"createdAt"`
	}

	// TransactionRow is the flat listing record: a transaction joined with
	// its category's name and type at read time.
	TransactionRow struct {
		ID              int64           `json:"id"`
		CategoryID      int64           `json:"categoryId"`
		Description     string          `json:"description"`
		Amount          decimal.Decimal `json:"amount"`
		TransactionDate Date            `json:"transactionDate"`
		CategoryName    string          `json:"categoryName"`
		CategoryType    CategoryType    `json:"categoryType"`
	}

	// TransactionPayload is validated, typed input for create and update.
	TransactionPayload struct {
		Type            CategoryType
		CategoryID      int64
		Amount          decimal.Decimal
		Description     string
		TransactionDate Date
	}
)

var (
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrInvalidCategory        = errors.New("invalid category")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInvalidDescription     = errors.New("invalid description")
	ErrInvalidDate            = errors.New("invalid date")
	ErrInvalidPeriod          = errors.New("invalid period")
	ErrUnauthorized           = errors.New("unauthorized")
)

func (t CategoryType) IsValid() bool {
	return t == CategoryIncome || t == CategoryExpense
}

// ParseCategoryType accepts "income" or "expense", case-insensitively.
func ParseCategoryType(s string) (CategoryType, error) {
	t := CategoryType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", ErrInvalidTransactionType
	}
	return t, nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("empty category name")
	}
	if !c.Type.IsValid() {
		return ErrInvalidTransactionType
	}
	return nil
}

// DefaultCategories is the registry every backend starts with.
func DefaultCategories() []Category {
	return []Category{
		{Name: "Salary", Type: CategoryIncome},
		{Name: "Freelance", Type: CategoryIncome},
		{Name: "Investments", Type: CategoryIncome},
		{Name: "Rental Income", Type: CategoryIncome},
		{Name: "Other Income", Type: CategoryIncome},
		{Name: "Housing", Type: CategoryExpense},
		{Name: "Food", Type: CategoryExpense},
		{Name: "Transport", Type: CategoryExpense},
		{Name: "Utilities", Type: CategoryExpense},
		{Name: "Health", Type: CategoryExpense},
		{Name: "Entertainment", Type: CategoryExpense},
		{Name: "Education", Type: CategoryExpense},
		{Name: "Shopping", Type: CategoryExpense},
		{Name: "Other Expense", Type: CategoryExpense},
	}
}
