package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"ledger/internal/core"
)

func newBodyRequest(body, contentType string) (*httptest.ResponseRecorder, *http.Request) {
	req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return httptest.NewRecorder(), req
}

func TestParseTransactionInput_JSON(t *testing.T) {
	w, r := newBodyRequest(`{"transactionType":"income","categoryId":3,"amount":0.10,"description":" Bonus\u0000 ","transactionDate":"2024-06-01"}`, "application/json")

	in, err := ParseTransactionInput(w, r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := core.TransactionInput{
		TransactionType: "income",
		CategoryID:      "3",
		Amount:          "0.10",
		Description:     "Bonus",
		TransactionDate: "2024-06-01",
	}
	if in != want {
		t.Errorf("got %+v, want %+v", in, want)
	}
}

func TestParseTransactionInput_Form(t *testing.T) {
	form := url.Values{
		"transactionType": {"expense"},
		"categoryId":      {"7"},
		"amount":          {"12,34"},
		"description":     {"Lunch"},
		"transactionDate": {"2024-06-01"},
	}
	w, r := newBodyRequest(form.Encode(), "application/x-www-form-urlencoded")

	in, err := ParseTransactionInput(w, r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.Amount != "12,34" || in.CategoryID != "7" || in.Description != "Lunch" {
		t.Errorf("unexpected input %+v", in)
	}
}

func TestParseTransactionInput_Malformed(t *testing.T) {
	tests := map[string]struct{ body, contentType string }{
		"truncated":      {`{"amount":`, "application/json"},
		"trailing data":  {`{"amount":"1"} {"x":1}`, "application/json"},
		"empty json":     {``, "application/json"},
		"array not body": {`[1,2]`, "application/json"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			w, r := newBodyRequest(tt.body, tt.contentType)
			if _, err := ParseTransactionInput(w, r); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestParseTransactionInput_TooLarge(t *testing.T) {
	w, r := newBodyRequest(`{"description":"`+strings.Repeat("x", maxBodyBytes)+`"}`, "application/json")
	if _, err := ParseTransactionInput(w, r); err == nil {
		t.Error("expected an error for an oversized body")
	}
}

func TestParseMonthParams(t *testing.T) {
	today := core.NewDate(2024, 6, 15)

	tests := []struct {
		query   string
		want    MonthParams
		wantErr bool
	}{
		{"", MonthParams{2024, 6}, false},
		{"year=2023", MonthParams{2023, 6}, false},
		{"year=2023&month=2", MonthParams{2023, 2}, false},
		{"month=%20", MonthParams{2024, 6}, false},
		{"month=feb", MonthParams{}, true},
		{"year=20x4", MonthParams{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			got, err := ParseMonthParams(q, today)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  a\x00b\tc\n "); got != "ab\tc" {
		t.Errorf("got %q", got)
	}
}
