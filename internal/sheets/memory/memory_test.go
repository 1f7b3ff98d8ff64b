package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
)

func TestExporterReplacesPreviousExport(t *testing.T) {
	e := New()
	ctx := context.Background()

	first := []core.MonthlyCashflow{{Year: 2024, Month: 1, Income: decimal.NewFromInt(10), Expense: decimal.Zero}}
	if err := e.ExportCashflow(ctx, "alice", first); err != nil {
		t.Fatalf("export: %v", err)
	}
	second := []core.MonthlyCashflow{
		{Year: 2024, Month: 1, Income: decimal.NewFromInt(20), Expense: decimal.Zero},
		{Year: 2024, Month: 2, Income: decimal.Zero, Expense: decimal.NewFromInt(5)},
	}
	if err := e.ExportCashflow(ctx, "alice", second); err != nil {
		t.Fatalf("export: %v", err)
	}

	got, ok := e.Exported("alice")
	if !ok || len(got) != 2 {
		t.Fatalf("unexpected export: ok=%v got=%v", ok, got)
	}
	if !got[0].Income.Equal(decimal.NewFromInt(20)) {
		t.Errorf("income = %s, want 20", got[0].Income)
	}
	if e.Calls() != 2 {
		t.Errorf("calls = %d, want 2", e.Calls())
	}
	if _, ok := e.Exported("bob"); ok {
		t.Error("bob should have no export")
	}
}

func TestExporterHonorsCancelledContext(t *testing.T) {
	e := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := e.ExportCashflow(ctx, "alice", nil); err == nil {
		t.Fatal("expected context error")
	}
	if e.Calls() != 0 {
		t.Error("cancelled export should not be recorded")
	}
}
