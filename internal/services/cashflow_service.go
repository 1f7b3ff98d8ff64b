package services

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"ledger/internal/auth"
	"ledger/internal/cache"
	"ledger/internal/core"
	applog "ledger/internal/log"
)

// CashflowService produces dense, gap-filled cashflow reports for the
// authenticated user.
type CashflowService struct {
	store  TransactionReader
	clock  core.Clock
	cache  cache.Cache[[]core.MonthlyCashflow]
	logger *applog.Logger

	group singleflight.Group
	mu    sync.Mutex
	gens  map[string]uint64
}

type CashflowOption func(*CashflowService)

// WithReportCache caches annual series per user and year.
func WithReportCache(c cache.Cache[[]core.MonthlyCashflow]) CashflowOption {
	return func(s *CashflowService) { s.cache = c }
}

func WithCashflowLogger(l *applog.Logger) CashflowOption {
	return func(s *CashflowService) { s.logger = l }
}

func NewCashflowService(store TransactionReader, clock core.Clock, opts ...CashflowOption) *CashflowService {
	if clock == nil {
		clock = core.SystemClock{}
	}
	s := &CashflowService{
		store: store,
		clock: clock,
		gens:  make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = applog.Default(applog.ComponentCashflow)
	}
	return s
}

// AnnualCashflow returns exactly 12 entries for year, January first.
func (s *CashflowService) AnnualCashflow(ctx context.Context, year int) ([]core.MonthlyCashflow, error) {
	userID, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := core.ValidatePeriod(year, 0); err != nil {
		return nil, err
	}

	key := cacheKey(userID, year)
	if s.cache != nil {
		if series, ok := s.cache.Get(key); ok {
			return append([]core.MonthlyCashflow(nil), series...), nil
		}
	}

	gen := s.generation(userID)
	v, err, _ := s.group.Do(key+"#"+strconv.FormatUint(gen, 10), func() (any, error) {
		rows, err := s.store.ListTransactionsByYear(ctx, userID, year)
		if err != nil {
			return nil, fmt.Errorf("annual cashflow %d: %w", year, err)
		}
		series := core.BuildAnnualCashflow(year, rows)
		// a write since gen was read makes this result stale
		if s.cache != nil && s.generation(userID) == gen {
			s.cache.Set(key, series)
		}
		s.logger.DebugContext(ctx, "Annual cashflow computed",
			applog.NewFields().WithUser(userID).WithPeriod(year, 0).WithOperation(applog.OpAggregate).ToSlice()...)
		return series, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]core.MonthlyCashflow(nil), v.([]core.MonthlyCashflow)...), nil
}

// EarliestYear is the year of the user's oldest transaction, or the
// current year when there is none.
func (s *CashflowService) EarliestYear(ctx context.Context) (int, error) {
	userID, err := auth.RequireUser(ctx)
	if err != nil {
		return 0, err
	}
	return s.earliestYear(ctx, userID)
}

// YearsRange lists years from EarliestYear through the current year.
func (s *CashflowService) YearsRange(ctx context.Context) ([]int, error) {
	userID, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	earliest, err := s.earliestYear(ctx, userID)
	if err != nil {
		return nil, err
	}
	return core.YearRange(earliest, s.currentYear()), nil
}

// MonthSummary totals one month with a per-category breakdown.
func (s *CashflowService) MonthSummary(ctx context.Context, year, month int) (core.MonthSummary, error) {
	userID, err := auth.RequireUser(ctx)
	if err != nil {
		return core.MonthSummary{}, err
	}
	if month == 0 {
		return core.MonthSummary{}, core.ErrInvalidPeriod
	}
	if err := core.ValidatePeriod(year, month); err != nil {
		return core.MonthSummary{}, err
	}
	rows, err := s.store.ListTransactionsByMonth(ctx, userID, year, month)
	if err != nil {
		return core.MonthSummary{}, fmt.Errorf("month summary %04d-%02d: %w", year, month, err)
	}
	return core.BuildMonthSummary(year, month, rows), nil
}

// InvalidateUser drops every cached report of userID.
func (s *CashflowService) InvalidateUser(userID string) {
	s.mu.Lock()
	s.gens[userID]++
	s.mu.Unlock()
	if s.cache != nil {
		s.cache.DeletePrefix(userID + "\x00")
	}
}

func (s *CashflowService) earliestYear(ctx context.Context, userID string) (int, error) {
	d, ok, err := s.store.EarliestTransactionDate(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("earliest year: %w", err)
	}
	if !ok {
		return s.currentYear(), nil
	}
	return d.Year(), nil
}

func (s *CashflowService) currentYear() int {
	return core.Today(s.clock).Year()
}

func (s *CashflowService) generation(userID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens[userID]
}

func cacheKey(userID string, year int) string {
	return userID + "\x00" + strconv.Itoa(year)
}
