package core

import (
	"encoding/json"
	"sort"

	"github.com/shopspring/decimal"
)

// MonthlyCashflow is one entry of the dense annual series.
type MonthlyCashflow struct {
	Year    int
	Month   int // 1-12
	Income  decimal.Decimal
	Expense decimal.Decimal
}

func (m MonthlyCashflow) Net() decimal.Decimal {
	return m.Income.Sub(m.Expense)
}

func (m MonthlyCashflow) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Year    int     `json:"year"`
		Month   int     `json:"month"`
		Income  float64 `json:"income"`
		Expense float64 `json:"expense"`
	}{m.Year, m.Month, DisplayAmount(m.Income), DisplayAmount(m.Expense)})
}

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	CategoryID int64
	Name       string
	Type       CategoryType
	Amount     decimal.Decimal
}

func (c CategoryAmount) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		CategoryID int64        `json:"categoryId"`
		Name       string       `json:"name"`
		Type       CategoryType `json:"type"`
		Amount     float64      `json:"amount"`
	}{c.CategoryID, c.Name, c.Type, DisplayAmount(c.Amount)})
}

// MonthSummary is a compact summary for a specific year+month.
type MonthSummary struct {
	Year       int
	Month      int
	Income     decimal.Decimal
	Expense    decimal.Decimal
	ByCategory []CategoryAmount
}

func (s MonthSummary) Net() decimal.Decimal {
	return s.Income.Sub(s.Expense)
}

func (s MonthSummary) MarshalJSON() ([]byte, error) {
	byCategory := s.ByCategory
	if byCategory == nil {
		byCategory = []CategoryAmount{}
	}
	return json.Marshal(struct {
		Year       int              `json:"year"`
		Month      int              `json:"month"`
		Income     float64          `json:"income"`
		Expense    float64          `json:"expense"`
		Net        float64          `json:"net"`
		ByCategory []CategoryAmount `json:"byCategory"`
	}{s.Year, s.Month, DisplayAmount(s.Income), DisplayAmount(s.Expense), DisplayAmount(s.Net()), byCategory})
}

// BuildAnnualCashflow groups rows by calendar month and returns exactly 12
// entries, January first. Months without rows are zero. Rows outside year
// and rows whose category type is neither income nor expense are ignored.
func BuildAnnualCashflow(year int, rows []TransactionRow) []MonthlyCashflow {
	series := make([]MonthlyCashflow, 12)
	for i := range series {
		series[i] = MonthlyCashflow{Year: year, Month: i + 1, Income: decimal.Zero, Expense: decimal.Zero}
	}
	for _, r := range rows {
		if r.TransactionDate.Year() != year {
			continue
		}
		e := &series[r.TransactionDate.Month()-1]
		switch r.CategoryType {
		case CategoryIncome:
			e.Income = e.Income.Add(r.Amount)
		case CategoryExpense:
			e.Expense = e.Expense.Add(r.Amount)
		}
	}
	return series
}

// BuildMonthSummary totals one month of rows, with per-category amounts
// sorted by amount descending then name.
func BuildMonthSummary(year, month int, rows []TransactionRow) MonthSummary {
	s := MonthSummary{Year: year, Month: month, Income: decimal.Zero, Expense: decimal.Zero}
	index := make(map[int64]int)
	for _, r := range rows {
		if r.TransactionDate.Year() != year || r.TransactionDate.Month() != month {
			continue
		}
		switch r.CategoryType {
		case CategoryIncome:
			s.Income = s.Income.Add(r.Amount)
		case CategoryExpense:
			s.Expense = s.Expense.Add(r.Amount)
		default:
			continue
		}
		i, ok := index[r.CategoryID]
		if !ok {
			i = len(s.ByCategory)
			index[r.CategoryID] = i
			s.ByCategory = append(s.ByCategory, CategoryAmount{
				CategoryID: r.CategoryID,
				Name:       r.CategoryName,
				Type:       r.CategoryType,
				Amount:     decimal.Zero,
			})
		}
		s.ByCategory[i].Amount = s.ByCategory[i].Amount.Add(r.Amount)
	}
	sort.SliceStable(s.ByCategory, func(i, j int) bool {
		a, b := s.ByCategory[i], s.ByCategory[j]
		if c := a.Amount.Cmp(b.Amount); c != 0 {
			return c > 0
		}
		return a.Name < b.Name
	})
	return s
}

// YearRange lists every year from earliest through current. An earliest
// year after current collapses to [current].
func YearRange(earliest, current int) []int {
	if earliest > current {
		earliest = current
	}
	years := make([]int, 0, current-earliest+1)
	for y := earliest; y <= current; y++ {
		years = append(years, y)
	}
	return years
}
