package google

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ledger/internal/core"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{CredentialsJSON: "{}"})
	if err == nil || err.Error() != "missing spreadsheet id" {
		t.Fatalf("expected missing spreadsheet id error, got %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(context.Background(), Options{SpreadsheetID: "sheet"})
	if err == nil || !strings.Contains(err.Error(), "credentials") {
		t.Fatalf("expected credentials error, got %v", err)
	}
}

func TestNew_InvalidCredentialsJSON(t *testing.T) {
	_, err := New(context.Background(), Options{SpreadsheetID: "sheet", CredentialsJSON: "invalid-json"})
	if err == nil || !strings.Contains(err.Error(), "sheets service") {
		t.Fatalf("expected sheets service error, got %v", err)
	}
}

func TestLoadCredentials_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(path, []byte(`{"type":"service_account"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	b, err := loadCredentials(Options{CredentialsFile: path})
	if err != nil {
		t.Fatalf("loadCredentials: %v", err)
	}
	if string(b) != `{"type":"service_account"}` {
		t.Errorf("unexpected credentials %q", b)
	}

	if _, err := loadCredentials(Options{CredentialsFile: filepath.Join(t.TempDir(), "missing.json")}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestExportCashflow_Uninitialized(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	err := c.ExportCashflow(context.Background(), "alice", []core.MonthlyCashflow{})
	if err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Fatalf("expected not initialized error, got %v", err)
	}
}

func TestSheetTitle(t *testing.T) {
	c := newClient(nil, "test", "", nil)

	tests := []struct {
		user string
		want string
	}{
		{"alice", "Cashflow alice"},
		{"alice@example.com", "Cashflow alice@example.com"},
		{"a/b:c[d]*?\\", "Cashflow a_b_c_d____"},
		{"tab\there", "Cashflow tabhere"},
	}
	for _, tt := range tests {
		if got := c.sheetTitle(tt.user); got != tt.want {
			t.Errorf("sheetTitle(%q) = %q, want %q", tt.user, got, tt.want)
		}
	}

	long := c.sheetTitle(strings.Repeat("x", 300))
	if n := len([]rune(long)); n != maxTitleLength {
		t.Errorf("long title has %d runes, want %d", n, maxTitleLength)
	}
}

func TestSheetTitle_CustomPrefix(t *testing.T) {
	c := newClient(nil, "test", " Ledger ", nil)
	if got := c.sheetTitle("bob"); got != "Ledger bob" {
		t.Errorf("got %q", got)
	}
}

func TestA1Range(t *testing.T) {
	if got := a1Range("Cashflow o'brien", "A1"); got != "'Cashflow o''brien'!A1" {
		t.Errorf("got %q", got)
	}
}
