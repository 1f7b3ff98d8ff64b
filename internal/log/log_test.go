package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNew_JSONIncludesComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentLedger, Output: &buf})
	l.Info("hello", FieldUserID, "alice")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("invalid json %q: %v", buf.String(), err)
	}
	if rec[FieldComponent] != ComponentLedger || rec[FieldUserID] != "alice" {
		t.Fatalf("unexpected record: %v", rec)
	}
}

func TestWithComponent_ReplacesComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Format: "text", Component: ComponentApp, Output: &buf}).WithComponent(ComponentStorage)
	l.Info("x")
	out := buf.String()
	if !strings.Contains(out, "component=storage") || strings.Contains(out, "component=app") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestFromContext(t *testing.T) {
	if FromContext(context.Background()).Component() != "unknown" {
		t.Fatal("expected fallback logger")
	}
	l := New(DefaultConfig())
	if FromContext(WithContext(context.Background(), l)) != l {
		t.Fatal("expected stored logger")
	}
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Format: "text", Output: &buf}))
	sl.LogTransactionWritten(context.Background(), OpCreate, "bob", 12, 3, "expense", "9.99")
	sl.LogError(context.Background(), "boom", errors.New("db down"), ErrorTypeDatabase, OpList, nil)
	out := buf.String()
	for _, want := range []string{"Transaction created", "user_id=bob", "transaction_id=12", "amount=9.99", "error=\"db down\"", "error_type=database_error"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %s", want, out)
		}
	}
}

func TestToSliceSorted(t *testing.T) {
	s := NewFields().WithUser("u").WithOperation("op").WithPeriod(2024, 0).ToSlice()
	if len(s) != 6 || s[0] != FieldOperation || s[2] != FieldUserID || s[4] != FieldYear {
		t.Fatalf("unexpected order: %v", s)
	}
}
