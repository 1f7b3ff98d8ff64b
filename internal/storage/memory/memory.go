// Package memory is an in-process ledger backend for development and tests.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"ledger/internal/core"
)

type Store struct {
	mu     sync.RWMutex
	cats   []core.Category
	items  map[int64]core.Transaction
	nextID int64
	now    func() time.Time
}

// New builds a store holding cats, ids assigned from 1 in order.
func New(cats []core.Category) *Store {
	s := &Store{items: make(map[int64]core.Transaction), now: time.Now}
	seen := map[string]struct{}{}
	for _, c := range cats {
		c.Name = strings.TrimSpace(c.Name)
		key := string(c.Type) + "\x00" + c.Name
		if _, dup := seen[key]; dup || c.Validate() != nil {
			continue
		}
		seen[key] = struct{}{}
		c.ID = int64(len(s.cats) + 1)
		s.cats = append(s.cats, c)
	}
	return s
}

// NewWithDefaults seeds the default category registry.
func NewWithDefaults() *Store {
	return New(core.DefaultCategories())
}

// NewFromFile seeds categories from "type,name" lines, falling back to the
// defaults when the file is missing or empty.
func NewFromFile(path string) *Store {
	cats := readCategories(path)
	if len(cats) == 0 {
		return NewWithDefaults()
	}
	return New(cats)
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Category(nil), s.cats...), nil
}

func (s *Store) GetCategory(_ context.Context, id int64) (core.Category, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.category(id)
	return c, ok, nil
}

func (s *Store) CreateCategory(_ context.Context, name string, t core.CategoryType) (core.Category, error) {
	c := core.Category{Name: strings.TrimSpace(name), Type: t}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.cats {
		if existing.Name == c.Name && existing.Type == c.Type {
			return core.Category{}, fmt.Errorf("category %q (%s) already exists", c.Name, c.Type)
		}
	}
	c.ID = int64(len(s.cats) + 1)
	s.cats = append(s.cats, c)
	return c, nil
}

func (s *Store) CreateTransaction(_ context.Context, userID string, p core.TransactionPayload) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.category(p.CategoryID); !ok {
		return core.Transaction{}, fmt.Errorf("create transaction: unknown category %d", p.CategoryID)
	}
	s.nextID++
	t := core.Transaction{
		ID:              s.nextID,
		UserID:          userID,
		CategoryID:      p.CategoryID,
		Amount:          p.Amount,
		Description:     p.Description,
		TransactionDate: p.TransactionDate,
		CreatedAt:       s.now().UTC().Truncate(time.Second),
	}
	s.items[t.ID] = t
	return t, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, userID string, id int64, p core.TransactionPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.items[id]
	if !ok || t.UserID != userID {
		slog.WarnContext(ctx, "Update matched no transaction", "transaction_id", id, "user_id", userID)
		return nil
	}
	if _, ok := s.category(p.CategoryID); !ok {
		return fmt.Errorf("update transaction %d: unknown category %d", id, p.CategoryID)
	}
	t.CategoryID = p.CategoryID
	t.Amount = p.Amount
	t.Description = p.Description
	t.TransactionDate = p.TransactionDate
	s.items[id] = t
	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, userID string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.items[id]; ok && t.UserID == userID {
		delete(s.items, id)
		return nil
	}
	slog.WarnContext(ctx, "Delete matched no transaction", "transaction_id", id, "user_id", userID)
	return nil
}

func (s *Store) GetTransaction(_ context.Context, userID string, id int64) (core.Transaction, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.items[id]
	if !ok || t.UserID != userID {
		return core.Transaction{}, false, nil
	}
	return t, true, nil
}

func (s *Store) ListTransactionsByMonth(_ context.Context, userID string, year, month int) ([]core.TransactionRow, error) {
	from, to := core.MonthBounds(year, month)
	return s.rows(userID, from, to, 0), nil
}

func (s *Store) ListTransactionsByYear(_ context.Context, userID string, year int) ([]core.TransactionRow, error) {
	from, to := core.YearBounds(year)
	return s.rows(userID, from, to, 0), nil
}

func (s *Store) ListRecentTransactions(_ context.Context, userID string, limit int) ([]core.TransactionRow, error) {
	return s.rows(userID, core.Date{}, core.Date{}, limit), nil
}

func (s *Store) EarliestTransactionDate(_ context.Context, userID string) (core.Date, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		earliest core.Date
		found    bool
	)
	for _, t := range s.items {
		if t.UserID != userID {
			continue
		}
		if !found || t.TransactionDate.Before(earliest.Time) {
			earliest, found = t.TransactionDate, true
		}
	}
	return earliest, found, nil
}

// rows lists the user's transactions in [from, to) (unbounded when zero),
// newest first, ties broken by id descending.
func (s *Store) rows(userID string, from, to core.Date, limit int) []core.TransactionRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []core.TransactionRow{}
	for _, t := range s.items {
		if t.UserID != userID {
			continue
		}
		if !from.IsZero() && t.TransactionDate.Before(from.Time) {
			continue
		}
		if !to.IsZero() && !t.TransactionDate.Before(to.Time) {
			continue
		}
		c, _ := s.category(t.CategoryID)
		out = append(out, core.TransactionRow{
			ID:              t.ID,
			CategoryID:      t.CategoryID,
			Description:     t.Description,
			Amount:          t.Amount,
			TransactionDate: t.TransactionDate,
			CategoryName:    c.Name,
			CategoryType:    c.Type,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TransactionDate.Equal(out[j].TransactionDate.Time) {
			return out[i].TransactionDate.After(out[j].TransactionDate.Time)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *Store) category(id int64) (core.Category, bool) {
	if id < 1 || id > int64(len(s.cats)) {
		return core.Category{}, false
	}
	return s.cats[id-1], true
}

func readCategories(path string) []core.Category {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []core.Category
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		typ, name, ok := strings.Cut(line, ",")
		if !ok {
			continue
		}
		t, err := core.ParseCategoryType(typ)
		if err != nil {
			continue
		}
		out = append(out, core.Category{Name: strings.TrimSpace(name), Type: t})
	}
	return out
}
