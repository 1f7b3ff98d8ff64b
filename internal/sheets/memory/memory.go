// Package memory is an in-process CashflowExporter for development and tests.
package memory

import (
	"context"
	"sync"

	"ledger/internal/core"
)

type Exporter struct {
	mu      sync.Mutex
	exports map[string][]core.MonthlyCashflow
	calls   int
}

func New() *Exporter {
	return &Exporter{exports: make(map[string][]core.MonthlyCashflow)}
}

// ExportCashflow replaces the stored series for userID.
func (e *Exporter) ExportCashflow(ctx context.Context, userID string, series []core.MonthlyCashflow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.exports[userID] = append([]core.MonthlyCashflow(nil), series...)
	e.calls++
	return nil
}

// Exported returns the last series exported for userID.
func (e *Exporter) Exported(userID string) ([]core.MonthlyCashflow, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.exports[userID]
	return append([]core.MonthlyCashflow(nil), s...), ok
}

// Calls counts successful exports.
func (e *Exporter) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}
