// Package http exposes the ledger as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"ledger/internal/auth"
	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/middleware/ratelimit"
	"ledger/internal/middleware/security"
	"ledger/internal/middleware/trace"
)

// LedgerAPI is the transaction side of the service layer.
type LedgerAPI interface {
	CreateTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, id int64, in core.TransactionInput) error
	DeleteTransaction(ctx context.Context, id int64) error
	GetTransaction(ctx context.Context, id int64) (core.Transaction, bool, error)
	ListCategories(ctx context.Context, only core.CategoryType) ([]core.Category, error)
	ListTransactionsByMonth(ctx context.Context, year, month int) ([]core.TransactionRow, error)
	ListRecentTransactions(ctx context.Context, limit int) ([]core.TransactionRow, error)
}

// CashflowAPI is the reporting side of the service layer.
type CashflowAPI interface {
	AnnualCashflow(ctx context.Context, year int) ([]core.MonthlyCashflow, error)
	YearsRange(ctx context.Context) ([]int, error)
	MonthSummary(ctx context.Context, year, month int) (core.MonthSummary, error)
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CacheSizer reports how many report entries are cached.
type CacheSizer interface {
	Size() int
}

type Config struct {
	Addr     string
	Ledger   LedgerAPI
	Cashflow CashflowAPI
	Store    Pinger
	Resolver auth.Resolver
	// Trusted proxies whose forwarding headers are honored for client IPs.
	Trusted   security.TrustedNetworks
	RateLimit ratelimit.Config
	Clock     core.Clock
	Logger    *applog.Logger
	// ReportCache is optional and only surfaces in /readyz and /metrics.
	ReportCache CacheSizer
}

type Server struct {
	http.Server
	ledger      LedgerAPI
	cashflow    CashflowAPI
	store       Pinger
	clock       core.Clock
	logger      *applog.Logger
	reportCache CacheSizer

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	tracer      *trace.Middleware
	appMetrics  *appMetrics

	shutdownOnce sync.Once
}

type appMetrics struct {
	transactionsWritten int64
	uptime              time.Time
}

// NewServer wires routes and middleware, returning a ready-to-run server.
// Call Shutdown to stop background cleanup.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = applog.Default(applog.ComponentHTTP)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = core.SystemClock{}
	}
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = auth.NewProxyHeaderResolver(auth.DefaultUserHeader, cfg.Trusted)
	}

	s := &Server{
		ledger:      cfg.Ledger,
		cashflow:    cfg.Cashflow,
		store:       cfg.Store,
		clock:       clock,
		logger:      logger,
		reportCache: cfg.ReportCache,
		rateLimiter: ratelimit.NewLimiter(cfg.RateLimit),
		detector:    security.NewDetector(cfg.Trusted),
		tracer:      trace.NewMiddleware(logger, cfg.Trusted.ClientIP),
		appMetrics:  &appMetrics{uptime: time.Now()},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/transactions/recent", s.handleRecentTransactions)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/cashflow/years", s.handleYearsRange)
	mux.HandleFunc("GET /api/cashflow/{year}", s.handleAnnualCashflow)
	mux.HandleFunc("GET /api/cashflow/{year}/{month}", s.handleMonthSummary)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)

	limited := s.rateLimiter.Middleware(cfg.Trusted.ClientIP, ratelimit.WritesOnly, func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, cfg.Trusted.ClientIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded").Write(w)
	})
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	var handler http.Handler = mux
	handler = auth.Middleware(resolver)(handler)
	handler = limited(handler)
	handler = s.detector.Middleware(handler)
	handler = headers.Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
