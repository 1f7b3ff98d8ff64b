package http

import (
	"net/http"

	"golang.org/x/sync/errgroup"

	"ledger/internal/core"
	applog "ledger/internal/log"
)

const dashboardRecentLimit = 5

func (s *Server) handleAnnualCashflow(w http.ResponseWriter, r *http.Request) {
	year, err := pathInt(r, "year")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	series, err := s.cashflow.AnnualCashflow(r.Context(), int(year))
	if err != nil {
		errorResponse(r, err, applog.OpAggregate).Write(w)
		return
	}
	NewJSONResponse().Body(series).Write(w)
}

func (s *Server) handleYearsRange(w http.ResponseWriter, r *http.Request) {
	years, err := s.cashflow.YearsRange(r.Context())
	if err != nil {
		errorResponse(r, err, applog.OpAggregate).Write(w)
		return
	}
	NewJSONResponse().Body(years).Write(w)
}

func (s *Server) handleMonthSummary(w http.ResponseWriter, r *http.Request) {
	year, err := pathInt(r, "year")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	month, err := pathInt(r, "month")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	summary, err := s.cashflow.MonthSummary(r.Context(), int(year), int(month))
	if err != nil {
		errorResponse(r, err, applog.OpAggregate).Write(w)
		return
	}
	NewJSONResponse().Body(summary).Write(w)
}

type dashboardResponse struct {
	Year     int                    `json:"year"`
	Recent   []core.TransactionRow  `json:"recent"`
	Cashflow []core.MonthlyCashflow `json:"cashflow"`
	Years    []int                  `json:"years"`
}

// handleDashboard loads recent transactions, the annual series and the
// year range concurrently.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	year, err := intParam(r.URL.Query(), "year", core.Today(s.clock).Year())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	resp := dashboardResponse{Year: year}
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		rows, err := s.ledger.ListRecentTransactions(ctx, dashboardRecentLimit)
		resp.Recent = nonNil(rows)
		return err
	})
	g.Go(func() error {
		series, err := s.cashflow.AnnualCashflow(ctx, year)
		resp.Cashflow = series
		return err
	})
	g.Go(func() error {
		years, err := s.cashflow.YearsRange(ctx)
		resp.Years = years
		return err
	})
	if err := g.Wait(); err != nil {
		errorResponse(r, err, applog.OpAggregate).Write(w)
		return
	}
	NewJSONResponse().Body(resp).Write(w)
}
