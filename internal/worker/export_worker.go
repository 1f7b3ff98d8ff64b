// Package worker keeps each user's exported cashflow in step with the
// ledger by reacting to transaction change events.
package worker

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"ledger/internal/amqp"
	"ledger/internal/auth"
	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/sheets"
)

// Reports is the slice of the cashflow service the worker needs. Calls are
// made with the event's user attached to ctx.
type Reports interface {
	YearsRange(ctx context.Context) ([]int, error)
	AnnualCashflow(ctx context.Context, year int) ([]core.MonthlyCashflow, error)
}

const yearConcurrency = 4

type ExportWorker struct {
	reports  Reports
	exporter sheets.CashflowExporter
	logger   *applog.Logger

	mu      sync.Mutex
	pending map[string]struct{}
}

func NewExportWorker(reports Reports, exporter sheets.CashflowExporter, logger *applog.Logger) *ExportWorker {
	if logger == nil {
		logger = applog.Default(applog.ComponentWorker)
	}
	return &ExportWorker{
		reports:  reports,
		exporter: exporter,
		logger:   logger,
		pending:  make(map[string]struct{}),
	}
}

// HandleEvent re-exports the event's user. It satisfies amqp.EventHandler.
func (w *ExportWorker) HandleEvent(ctx context.Context, event *amqp.TransactionEvent) error {
	w.logger.InfoContext(ctx, "Processing transaction event",
		applog.FieldMessageID, event.MessageID,
		applog.FieldEventKind, event.Kind,
		applog.FieldUserID, event.UserID,
		applog.FieldTransactionID, event.TransactionID)
	return w.ExportUser(ctx, event.UserID)
}

// ExportUser rebuilds and exports every year of userID's cashflow. A
// failed user is remembered for RetryPending.
func (w *ExportWorker) ExportUser(ctx context.Context, userID string) error {
	if err := w.export(auth.WithUser(ctx, userID), userID); err != nil {
		w.mu.Lock()
		w.pending[userID] = struct{}{}
		w.mu.Unlock()
		return err
	}
	w.mu.Lock()
	delete(w.pending, userID)
	w.mu.Unlock()
	return nil
}

func (w *ExportWorker) export(ctx context.Context, userID string) error {
	years, err := w.reports.YearsRange(ctx)
	if err != nil {
		return fmt.Errorf("years range for %s: %w", userID, err)
	}

	perYear := make([][]core.MonthlyCashflow, len(years))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(yearConcurrency)
	for i, year := range years {
		g.Go(func() error {
			s, err := w.reports.AnnualCashflow(gctx, year)
			if err != nil {
				return fmt.Errorf("annual cashflow %d for %s: %w", year, userID, err)
			}
			perYear[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	series := make([]core.MonthlyCashflow, 0, 12*len(years))
	for _, s := range perYear {
		series = append(series, s...)
	}
	if err := w.exporter.ExportCashflow(ctx, userID, series); err != nil {
		return fmt.Errorf("export cashflow for %s: %w", userID, err)
	}
	return nil
}

// Pending lists users whose last export failed, sorted.
func (w *ExportWorker) Pending() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	users := make([]string, 0, len(w.pending))
	for u := range w.pending {
		users = append(users, u)
	}
	sort.Strings(users)
	return users
}

// RetryPending retries every pending user once and returns how many
// succeeded.
func (w *ExportWorker) RetryPending(ctx context.Context) int {
	ok := 0
	for _, userID := range w.Pending() {
		if ctx.Err() != nil {
			break
		}
		if err := w.ExportUser(ctx, userID); err != nil {
			w.logger.WarnContext(ctx, "Export retry failed", applog.FieldUserID, userID, applog.FieldError, err)
			continue
		}
		ok++
	}
	return ok
}

// RunRetries calls RetryPending every interval until ctx is done.
func (w *ExportWorker) RunRetries(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := w.RetryPending(ctx); n > 0 {
				w.logger.InfoContext(ctx, "Retried pending exports", "succeeded", n)
			}
		}
	}
}
