package services

import (
	"context"
	"fmt"

	"ledger/internal/auth"
	"ledger/internal/core"
	applog "ledger/internal/log"
)

const (
	DefaultRecentLimit = 5
	MaxRecentLimit     = 100
)

// LedgerStore is the storage a LedgerService writes through.
type LedgerStore interface {
	CategoryStore
	TransactionStore
}

// LedgerService is the user-scoped entry point for transaction reads and
// writes. Every method fails with core.ErrUnauthorized before touching the
// store when ctx carries no identity.
type LedgerService struct {
	store       LedgerStore
	validator   core.Validator
	invalidator ReportInvalidator
	publisher   Publisher
	logger      *applog.Logger
	events      *applog.StructuredLogger
}

type LedgerOption func(*LedgerService)

func WithPublisher(p Publisher) LedgerOption {
	return func(s *LedgerService) { s.publisher = p }
}

func WithInvalidator(i ReportInvalidator) LedgerOption {
	return func(s *LedgerService) { s.invalidator = i }
}

func WithLedgerLogger(l *applog.Logger) LedgerOption {
	return func(s *LedgerService) { s.logger = l }
}

func NewLedgerService(store LedgerStore, validator core.Validator, opts ...LedgerOption) *LedgerService {
	s := &LedgerService{store: store, validator: validator}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = applog.Default(applog.ComponentLedger)
	}
	s.events = applog.NewStructuredLogger(s.logger)
	return s
}

func (s *LedgerService) CreateTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	userID, err := auth.RequireUser(ctx)
	if err != nil {
		return core.Transaction{}, err
	}
	p, err := s.validate(ctx, in)
	if err != nil {
		return core.Transaction{}, err
	}
	t, err := s.store.CreateTransaction(ctx, userID, p)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	s.events.LogTransactionWritten(ctx, applog.OpCreate, userID, t.ID, t.CategoryID, string(p.Type), t.Amount.String())
	s.afterWrite(ctx, userID, t.ID, EventCreated)
	return t, nil
}

// UpdateTransaction replaces the mutable fields of the caller's
// transaction id. An id the caller does not own is left untouched and no
// error is returned.
func (s *LedgerService) UpdateTransaction(ctx context.Context, id int64, in core.TransactionInput) error {
	userID, err := auth.RequireUser(ctx)
	if err != nil {
		return err
	}
	p, err := s.validate(ctx, in)
	if err != nil {
		return err
	}
	if err := s.store.UpdateTransaction(ctx, userID, id, p); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	s.events.LogTransactionWritten(ctx, applog.OpUpdate, userID, id, p.CategoryID, string(p.Type), p.Amount.String())
	s.afterWrite(ctx, userID, id, EventUpdated)
	return nil
}

// DeleteTransaction removes the caller's transaction id; a no-op otherwise.
func (s *LedgerService) DeleteTransaction(ctx context.Context, id int64) error {
	userID, err := auth.RequireUser(ctx)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTransaction(ctx, userID, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.events.LogTransactionWritten(ctx, applog.OpDelete, userID, id, 0, "", "")
	s.afterWrite(ctx, userID, id, EventDeleted)
	return nil
}

// GetTransaction reports false when id is missing or owned by someone else.
func (s *LedgerService) GetTransaction(ctx context.Context, id int64) (core.Transaction, bool, error) {
	userID, err := auth.RequireUser(ctx)
	if err != nil {
		return core.Transaction{}, false, err
	}
	t, ok, err := s.store.GetTransaction(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, false, fmt.Errorf("get transaction: %w", err)
	}
	return t, ok, nil
}

// ListCategories returns the registry, optionally restricted to one type.
func (s *LedgerService) ListCategories(ctx context.Context, only core.CategoryType) ([]core.Category, error) {
	if _, err := auth.RequireUser(ctx); err != nil {
		return nil, err
	}
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if only == "" {
		return cats, nil
	}
	filtered := make([]core.Category, 0, len(cats))
	for _, c := range cats {
		if c.Type == only {
			filtered = append(filtered, c)
		}
	}
	return filtered, nil
}

func (s *LedgerService) ListTransactionsByMonth(ctx context.Context, year, month int) ([]core.TransactionRow, error) {
	userID, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if month == 0 {
		return nil, core.ErrInvalidPeriod
	}
	if err := core.ValidatePeriod(year, month); err != nil {
		return nil, err
	}
	rows, err := s.store.ListTransactionsByMonth(ctx, userID, year, month)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return rows, nil
}

// ListRecentTransactions returns the newest transactions; limit defaults
// to DefaultRecentLimit and is capped at MaxRecentLimit.
func (s *LedgerService) ListRecentTransactions(ctx context.Context, limit int) ([]core.TransactionRow, error) {
	userID, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.ListRecentTransactions(ctx, userID, NormalizeRecentLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list recent transactions: %w", err)
	}
	return rows, nil
}

func NormalizeRecentLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultRecentLimit
	case limit > MaxRecentLimit:
		return MaxRecentLimit
	}
	return limit
}

// validate runs the input rules, then checks the category exists and has
// the submitted type.
func (s *LedgerService) validate(ctx context.Context, in core.TransactionInput) (core.TransactionPayload, error) {
	p, err := s.validator.Validate(in)
	if err != nil {
		return core.TransactionPayload{}, err
	}
	c, ok, err := s.store.GetCategory(ctx, p.CategoryID)
	if err != nil {
		return core.TransactionPayload{}, fmt.Errorf("load category %d: %w", p.CategoryID, err)
	}
	if !ok {
		return core.TransactionPayload{}, core.NewFieldError(core.FieldCategoryID, core.ErrInvalidCategory, "category does not exist")
	}
	if c.Type != p.Type {
		return core.TransactionPayload{}, core.NewFieldError(core.FieldCategoryID, core.ErrInvalidCategory,
			fmt.Sprintf("category %q is not an %s category", c.Name, p.Type))
	}
	return p, nil
}

func (s *LedgerService) afterWrite(ctx context.Context, userID string, id int64, kind string) {
	if s.invalidator != nil {
		s.invalidator.InvalidateUser(userID)
	}
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishTransactionChanged(ctx, userID, id, kind); err != nil {
		// the write is committed; export catches up on the next event
		s.events.LogError(ctx, "Failed to publish transaction event", err, applog.ErrorTypeNetwork, applog.OpPublish,
			applog.NewFields().WithUser(userID).WithTransaction(id, 0, "", ""))
	}
}
