package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/amqp"
	"ledger/internal/auth"
	"ledger/internal/core"
	"ledger/internal/services"
	sheetsmem "ledger/internal/sheets/memory"
	"ledger/internal/storage/memory"
)

type flakyExporter struct {
	mu    sync.Mutex
	fails int
	next  *sheetsmem.Exporter
}

func (f *flakyExporter) ExportCashflow(ctx context.Context, userID string, series []core.MonthlyCashflow) error {
	f.mu.Lock()
	if f.fails > 0 {
		f.fails--
		f.mu.Unlock()
		return errors.New("sheets unavailable")
	}
	f.mu.Unlock()
	return f.next.ExportCashflow(ctx, userID, series)
}

func seededReports(t *testing.T) *services.CashflowService {
	t.Helper()
	clock := core.FixedClock{T: time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)}
	store := memory.NewWithDefaults()
	ledger := services.NewLedgerService(store, core.NewValidator(clock))
	ctx := auth.WithUser(context.Background(), "alice")

	for _, in := range []core.TransactionInput{
		{TransactionType: "income", CategoryID: "1", Amount: "1000", Description: "Salary 2023", TransactionDate: "2023-12-20"},
		{TransactionType: "expense", CategoryID: "7", Amount: "40.5", Description: "Groceries", TransactionDate: "2024-02-10"},
	} {
		_, err := ledger.CreateTransaction(ctx, in)
		require.NoError(t, err)
	}
	return services.NewCashflowService(store, clock)
}

func TestExportWorker_HandleEventExportsEveryYear(t *testing.T) {
	exporter := sheetsmem.New()
	w := NewExportWorker(seededReports(t), exporter, nil)

	err := w.HandleEvent(context.Background(), amqp.NewTransactionEvent("alice", 2, "created"))
	require.NoError(t, err)

	series, ok := exporter.Exported("alice")
	require.True(t, ok)
	require.Len(t, series, 24)
	assert.Equal(t, 2023, series[0].Year)
	assert.Equal(t, 2024, series[12].Year)
	assert.Equal(t, "1000", series[11].Income.String())
	assert.Equal(t, "40.5", series[13].Expense.String())
	assert.Empty(t, w.Pending())
}

func TestExportWorker_FailureIsRetried(t *testing.T) {
	exporter := &flakyExporter{fails: 1, next: sheetsmem.New()}
	w := NewExportWorker(seededReports(t), exporter, nil)
	ctx := context.Background()

	err := w.ExportUser(ctx, "alice")
	require.Error(t, err)
	assert.Equal(t, []string{"alice"}, w.Pending())

	assert.Equal(t, 1, w.RetryPending(ctx))
	assert.Empty(t, w.Pending())
	_, ok := exporter.next.Exported("alice")
	assert.True(t, ok)
}

func TestExportWorker_UserWithoutDataGetsCurrentYear(t *testing.T) {
	exporter := sheetsmem.New()
	w := NewExportWorker(seededReports(t), exporter, nil)

	require.NoError(t, w.ExportUser(context.Background(), "bob"))
	series, ok := exporter.Exported("bob")
	require.True(t, ok)
	require.Len(t, series, 12)
	assert.Equal(t, 2024, series[0].Year)
}

func TestExportWorker_RunRetriesStopsWithContext(t *testing.T) {
	w := NewExportWorker(seededReports(t), sheetsmem.New(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.RunRetries(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunRetries did not stop")
	}
}
