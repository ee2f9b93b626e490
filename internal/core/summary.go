package core

import "github.com/shopspring/decimal"

// Summary aggregates transactions over a date range.
type Summary struct {
	From    Date // zero means unbounded
	To      Date
	Income  decimal.Decimal
	Expense decimal.Decimal
	Count   int
}

// Balance is what is left: income minus expense.
func (s Summary) Balance() decimal.Decimal {
	return s.Income.Sub(s.Expense)
}

// Add folds a single transaction into the summary.
func (s *Summary) Add(t Transaction) {
	switch t.Kind {
	case Income:
		s.Income = s.Income.Add(t.Amount)
	case Expense:
		s.Expense = s.Expense.Add(t.Amount)
	}
	s.Count++
}

// DailyTotal is the per-date income/expense pair kept in daily_totals.
type DailyTotal struct {
	Date    Date
	Income  decimal.Decimal
	Expense decimal.Decimal
}

func (d DailyTotal) Net() decimal.Decimal {
	return d.Income.Sub(d.Expense)
}

// DateRange bounds a query by date, both ends inclusive. Zero ends are open.
type DateRange struct {
	From Date
	To   Date
}

// Contains reports whether d falls in the range.
func (r DateRange) Contains(d Date) bool {
	if !r.From.IsZero() && d.Before(r.From.Time) {
		return false
	}
	if !r.To.IsZero() && d.After(r.To.Time) {
		return false
	}
	return true
}

func (r DateRange) Validate() error {
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From.Time) {
		return ErrInvalidDate
	}
	return nil
}
