package http

import (
	"net/http"
	"strings"
	"sync/atomic"

	"ledger/internal/core"
	applog "ledger/internal/log"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	var only core.CategoryType
	if v := strings.TrimSpace(r.URL.Query().Get("type")); v != "" {
		t, err := core.ParseCategoryType(v)
		if err != nil {
			BadRequestError("type must be income or expense").Write(w)
			return
		}
		only = t
	}
	cats, err := s.ledger.ListCategories(r.Context(), only)
	if err != nil {
		errorResponse(r, err, applog.OpList).Write(w)
		return
	}
	NewJSONResponse().Body(cats).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	in, err := ParseTransactionInput(w, r)
	if err != nil {
		BadRequestError("malformed request body").Write(w)
		return
	}
	t, err := s.ledger.CreateTransaction(r.Context(), in)
	if err != nil {
		errorResponse(r, err, applog.OpCreate).Write(w)
		return
	}
	atomic.AddInt64(&s.appMetrics.transactionsWritten, 1)
	NewJSONResponse().Status(http.StatusCreated).Body(t).Write(w)
}

// handleUpdateTransaction answers 204 whether or not the id belongs to the
// caller.
func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	in, err := ParseTransactionInput(w, r)
	if err != nil {
		BadRequestError("malformed request body").Write(w)
		return
	}
	if err := s.ledger.UpdateTransaction(r.Context(), id, in); err != nil {
		errorResponse(r, err, applog.OpUpdate).Write(w)
		return
	}
	atomic.AddInt64(&s.appMetrics.transactionsWritten, 1)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err := s.ledger.DeleteTransaction(r.Context(), id); err != nil {
		errorResponse(r, err, applog.OpDelete).Write(w)
		return
	}
	atomic.AddInt64(&s.appMetrics.transactionsWritten, 1)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	t, ok, err := s.ledger.GetTransaction(r.Context(), id)
	if err != nil {
		errorResponse(r, err, applog.OpRead).Write(w)
		return
	}
	if !ok {
		NotFoundError().Write(w)
		return
	}
	NewJSONResponse().Body(t).Write(w)
}

// handleListTransactions lists one month, the current one by default.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	params, err := ParseMonthParams(r.URL.Query(), core.Today(s.clock))
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	rows, err := s.ledger.ListTransactionsByMonth(r.Context(), params.Year, params.Month)
	if err != nil {
		errorResponse(r, err, applog.OpList).Write(w)
		return
	}
	NewJSONResponse().Body(nonNil(rows)).Write(w)
}

func (s *Server) handleRecentTransactions(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query(), "limit", 0)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	rows, err := s.ledger.ListRecentTransactions(r.Context(), limit)
	if err != nil {
		errorResponse(r, err, applog.OpList).Write(w)
		return
	}
	NewJSONResponse().Body(nonNil(rows)).Write(w)
}

// nonNil keeps empty listings encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
