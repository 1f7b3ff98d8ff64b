package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/auth"
	"ledger/internal/cache"
	"ledger/internal/core"
	"ledger/internal/middleware/ratelimit"
	"ledger/internal/middleware/security"
	"ledger/internal/services"
	"ledger/internal/storage/memory"
)

var testNow = time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC)

type testServer struct {
	*Server
	store *memory.Store
}

// httptest requests come from 192.0.2.1, which the tests trust as the
// authenticating proxy.
func newTestServer(t *testing.T, rate int) testServer {
	t.Helper()
	trusted, err := security.ParseTrustedNetworks([]string{"192.0.2.0/24"})
	require.NoError(t, err)

	clock := core.FixedClock{T: testNow}
	store := memory.NewWithDefaults()
	reportCache := cache.NewLRUCache[[]core.MonthlyCashflow](16, time.Minute)
	cashflow := services.NewCashflowService(store, clock, services.WithReportCache(reportCache))
	ledger := services.NewLedgerService(store, core.NewValidator(clock), services.WithInvalidator(cashflow))

	srv := NewServer(Config{
		Addr:        ":0",
		Ledger:      ledger,
		Cashflow:    cashflow,
		Store:       store,
		Trusted:     trusted,
		RateLimit:   ratelimit.Config{RequestsPerMinute: rate},
		Clock:       clock,
		ReportCache: reportCache,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return testServer{Server: srv, store: store}
}

func (ts testServer) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set(auth.DefaultUserHeader, user)
	}
	rr := httptest.NewRecorder()
	ts.Handler.ServeHTTP(rr, req)
	return rr
}

func txBody(txType string, categoryID int, amount, desc, date string) map[string]any {
	return map[string]any{
		"transactionType": txType,
		"categoryId":      categoryID,
		"amount":          json.Number(amount),
		"description":     desc,
		"transactionDate": date,
	}
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t, 60)

	rr := ts.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decode[map[string]any](t, rr)["status"])

	rr = ts.do(t, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ready", decode[map[string]any](t, rr)["status"])
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("down") }

func TestReadyFailsWhenStoreDown(t *testing.T) {
	srv := NewServer(Config{Store: failingPinger{}, Clock: core.FixedClock{T: testNow}})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	ts := newTestServer(t, 60)
	rr := ts.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestAPIRequiresIdentity(t *testing.T) {
	ts := newTestServer(t, 60)
	paths := []string{
		"/api/categories",
		"/api/transactions",
		"/api/transactions/recent",
		"/api/transactions/1",
		"/api/cashflow/2024",
		"/api/cashflow/years",
		"/api/cashflow/2024/6",
		"/api/dashboard",
	}
	for _, p := range paths {
		t.Run(p, func(t *testing.T) {
			rr := ts.do(t, http.MethodGet, p, "", nil)
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.Equal(t, "unauthorized", decode[map[string]any](t, rr)["error"])
		})
	}
}

func TestIdentityHeaderIgnoredFromUntrustedPeer(t *testing.T) {
	ts := newTestServer(t, 60)
	req := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
	req.RemoteAddr = "203.0.113.9:4000"
	req.Header.Set(auth.DefaultUserHeader, "alice")
	rr := httptest.NewRecorder()
	ts.Handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestCreateGetUpdateDeleteTransaction(t *testing.T) {
	ts := newTestServer(t, 60)

	rr := ts.do(t, http.MethodPost, "/api/transactions", "alice", txBody("expense", 7, "12.50", "Groceries", "2024-06-14"))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[map[string]any](t, rr)
	assert.Equal(t, "12.5", created["amount"])
	assert.Equal(t, "2024-06-14", created["transactionDate"])
	id := strconv.FormatFloat(created["id"].(float64), 'f', 0, 64)

	rr = ts.do(t, http.MethodGet, "/api/transactions/"+id, "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Groceries", decode[map[string]any](t, rr)["description"])

	rr = ts.do(t, http.MethodGet, "/api/transactions/"+id, "bob", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not found", decode[map[string]any](t, rr)["error"])

	rr = ts.do(t, http.MethodPut, "/api/transactions/"+id, "bob", txBody("expense", 7, "99", "Hijack", "2024-06-14"))
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = ts.do(t, http.MethodDelete, "/api/transactions/"+id, "bob", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.do(t, http.MethodPut, "/api/transactions/"+id, "alice", txBody("expense", 7, "15", "Groceries and wine", "2024-06-14"))
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = ts.do(t, http.MethodGet, "/api/transactions/"+id, "alice", nil)
	got := decode[map[string]any](t, rr)
	assert.Equal(t, "15", got["amount"])
	assert.Equal(t, "Groceries and wine", got["description"])

	rr = ts.do(t, http.MethodDelete, "/api/transactions/"+id, "alice", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = ts.do(t, http.MethodGet, "/api/transactions/"+id, "alice", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCreateTransactionValidation(t *testing.T) {
	ts := newTestServer(t, 60)

	rr := ts.do(t, http.MethodPost, "/api/transactions", "alice", txBody("expense", 7, "0", "ab", "2024-06-17"))
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	body := decode[struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}](t, rr)
	assert.Equal(t, "validation failed", body.Error)
	assert.Contains(t, body.Fields, "amount")
	assert.Contains(t, body.Fields, "description")
	assert.Contains(t, body.Fields, "transactionDate")

	rr = ts.do(t, http.MethodPost, "/api/transactions", "alice", txBody("expense", 1, "10", "Wrong type", "2024-06-14"))
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "categoryId")
}

func TestMalformedRequests(t *testing.T) {
	ts := newTestServer(t, 60)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{"malformed json", http.MethodPost, "/api/transactions", `{"amount": `},
		{"non-numeric id", http.MethodGet, "/api/transactions/abc", nil},
		{"non-numeric year", http.MethodGet, "/api/cashflow/20x4", nil},
		{"non-numeric month query", http.MethodGet, "/api/transactions?month=june", nil},
		{"month out of range", http.MethodGet, "/api/transactions?year=2024&month=13", nil},
		{"bad category type", http.MethodGet, "/api/categories?type=gift", nil},
		{"bad limit", http.MethodGet, "/api/transactions/recent?limit=many", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.do(t, tt.method, tt.path, "alice", tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
		})
	}
}

func TestListCategories(t *testing.T) {
	ts := newTestServer(t, 60)

	rr := ts.do(t, http.MethodGet, "/api/categories", "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]core.Category](t, rr), len(core.DefaultCategories()))

	rr = ts.do(t, http.MethodGet, "/api/categories?type=expense", "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	for _, c := range decode[[]core.Category](t, rr) {
		assert.Equal(t, core.CategoryExpense, c.Type)
	}
}

func TestListTransactionsDefaultsToCurrentMonth(t *testing.T) {
	ts := newTestServer(t, 60)
	ts.do(t, http.MethodPost, "/api/transactions", "alice", txBody("expense", 7, "10", "June lunch", "2024-06-02"))
	ts.do(t, http.MethodPost, "/api/transactions", "alice", txBody("expense", 7, "10", "May lunch", "2024-05-02"))

	rr := ts.do(t, http.MethodGet, "/api/transactions", "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	rows := decode[[]map[string]any](t, rr)
	require.Len(t, rows, 1)
	assert.Equal(t, "June lunch", rows[0]["description"])
	assert.Equal(t, "Food", rows[0]["categoryName"])

	rr = ts.do(t, http.MethodGet, "/api/transactions?year=2023&month=1", "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]\n", rr.Body.String())
}

func TestRecentTransactions(t *testing.T) {
	ts := newTestServer(t, 60)
	for i := 1; i <= 7; i++ {
		ts.do(t, http.MethodPost, "/api/transactions", "alice", txBody("expense", 7, "1", "Coffee", "2024-06-0"+strconv.Itoa(i)))
	}

	rr := ts.do(t, http.MethodGet, "/api/transactions/recent", "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	rows := decode[[]map[string]any](t, rr)
	require.Len(t, rows, services.DefaultRecentLimit)
	assert.Equal(t, "2024-06-07", rows[0]["transactionDate"])

	rr = ts.do(t, http.MethodGet, "/api/transactions/recent?limit=2", "alice", nil)
	assert.Len(t, decode[[]map[string]any](t, rr), 2)
}

func TestCashflowEndpoints(t *testing.T) {
	ts := newTestServer(t, 60)
	ts.do(t, http.MethodPost, "/api/transactions", "alice", txBody("income", 1, "2500", "Salary", "2024-01-31"))
	ts.do(t, http.MethodPost, "/api/transactions", "alice", txBody("expense", 7, "0.10", "Gum", "2024-03-01"))
	ts.do(t, http.MethodPost, "/api/transactions", "alice", txBody("expense", 7, "0.20", "Gum", "2024-03-02"))
	ts.do(t, http.MethodPost, "/api/transactions", "alice", txBody("expense", 6, "700", "Rent", "2022-03-01"))

	rr := ts.do(t, http.MethodGet, "/api/cashflow/2024", "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	series := decode[[]map[string]float64](t, rr)
	require.Len(t, series, 12)
	assert.Equal(t, 2500.0, series[0]["income"])
	assert.Equal(t, 0.3, series[2]["expense"])
	assert.Equal(t, 12.0, series[11]["month"])

	rr = ts.do(t, http.MethodGet, "/api/cashflow/years", "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []int{2022, 2023, 2024}, decode[[]int](t, rr))

	rr = ts.do(t, http.MethodGet, "/api/cashflow/2024/3", "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	summary := decode[map[string]any](t, rr)
	assert.Equal(t, 0.3, summary["expense"])
	assert.Equal(t, -0.3, summary["net"])

	rr = ts.do(t, http.MethodGet, "/api/cashflow/2024/13", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestDashboard(t *testing.T) {
	ts := newTestServer(t, 60)
	ts.do(t, http.MethodPost, "/api/transactions", "alice", txBody("income", 1, "100", "Gift card", "2024-02-01"))

	rr := ts.do(t, http.MethodGet, "/api/dashboard", "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Year     int              `json:"year"`
		Recent   []map[string]any `json:"recent"`
		Cashflow []map[string]any `json:"cashflow"`
		Years    []int            `json:"years"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 2024, body.Year)
	assert.Len(t, body.Recent, 1)
	assert.Len(t, body.Cashflow, 12)
	assert.Equal(t, []int{2024}, body.Years)
}

func TestRateLimitAppliesToWritesOnly(t *testing.T) {
	ts := newTestServer(t, 2)

	for i := 0; i < 2; i++ {
		rr := ts.do(t, http.MethodPost, "/api/transactions", "alice", txBody("expense", 7, "1", "Coffee", "2024-06-01"))
		require.Equal(t, http.StatusCreated, rr.Code)
	}
	rr := ts.do(t, http.MethodPost, "/api/transactions", "alice", txBody("expense", 7, "1", "Coffee", "2024-06-01"))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))

	rr = ts.do(t, http.MethodGet, "/api/transactions/recent", "alice", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestMetrics(t *testing.T) {
	ts := newTestServer(t, 60)
	ts.do(t, http.MethodPost, "/api/transactions", "alice", txBody("expense", 7, "1", "Coffee", "2024-06-01"))

	rr := ts.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ledger_transactions_written_total 1")
	assert.Contains(t, rr.Body.String(), "http_requests_total")
}
