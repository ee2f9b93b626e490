package storage

import (
	"context"
	"testing"

	"fintrack/internal/core"
)

func TestRefreshDailyTotal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	day := core.NewDate(2025, 4, 1)
	mustCreate(t, s, tx("Salary", "1000", core.Income, day))
	lunch := mustCreate(t, s, tx("Lunch", "12.50", core.Expense, day))
	mustCreate(t, s, tx("Coffee", "3.20", core.Expense, day))

	if err := s.RefreshDailyTotal(ctx, day); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	totals, err := s.DailyTotals(ctx, core.DateRange{})
	if err != nil {
		t.Fatalf("daily totals: %v", err)
	}
	if len(totals) != 1 {
		t.Fatalf("expected one day, got %d", len(totals))
	}
	got := totals[0]
	if got.Income.StringFixed(2) != "1000.00" || got.Expense.StringFixed(2) != "15.70" {
		t.Fatalf("unexpected totals %s / %s", got.Income, got.Expense)
	}
	if got.Net().StringFixed(2) != "984.30" {
		t.Fatalf("unexpected net %s", got.Net())
	}

	// Refreshing again after a delete reflects the change.
	if err := s.Delete(ctx, lunch); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.RefreshDailyTotal(ctx, day); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	totals, _ = s.DailyTotals(ctx, core.DateRange{})
	if totals[0].Expense.StringFixed(2) != "3.20" {
		t.Fatalf("expected 3.20 after delete, got %s", totals[0].Expense)
	}
}

func TestRefreshDailyTotalRemovesEmptyDay(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	day := core.NewDate(2025, 4, 2)
	id := mustCreate(t, s, tx("Lunch", "12.50", core.Expense, day))
	if err := s.RefreshDailyTotal(ctx, day); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if err := s.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.RefreshDailyTotal(ctx, day); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if n := count(t, s, `SELECT COUNT(*) FROM daily_totals`); n != 0 {
		t.Fatalf("expected no rows, got %d", n)
	}
}

func TestRebuildDailyTotals(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustCreate(t, s, tx("a", "10", core.Income, core.NewDate(2025, 1, 1)))
	mustCreate(t, s, tx("b", "4", core.Expense, core.NewDate(2025, 1, 1)))
	mustCreate(t, s, tx("c", "7.5", core.Expense, core.NewDate(2025, 1, 3)))

	days, err := s.RebuildDailyTotals(ctx)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if days != 2 {
		t.Fatalf("expected 2 days, got %d", days)
	}

	totals, err := s.DailyTotals(ctx, core.DateRange{From: core.NewDate(2025, 1, 2)})
	if err != nil {
		t.Fatalf("daily totals: %v", err)
	}
	if len(totals) != 1 || totals[0].Date.String() != "2025-01-03" {
		t.Fatalf("expected only 2025-01-03, got %+v", totals)
	}
	if totals[0].Expense.StringFixed(2) != "7.50" || !totals[0].Income.IsZero() {
		t.Fatalf("unexpected totals %+v", totals[0])
	}
}

func TestSummary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustCreate(t, s, tx("Salary", "2500", core.Income, core.NewDate(2025, 5, 1)))
	mustCreate(t, s, tx("Rent", "900.10", core.Expense, core.NewDate(2025, 5, 2)))
	mustCreate(t, s, tx("Old", "99", core.Expense, core.NewDate(2024, 12, 31)))

	all, err := s.Summary(ctx, core.DateRange{})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if all.Count != 3 || all.Balance().StringFixed(2) != "1500.90" {
		t.Fatalf("unexpected summary %+v balance %s", all, all.Balance())
	}

	may, err := s.Summary(ctx, core.DateRange{From: core.NewDate(2025, 5, 1), To: core.NewDate(2025, 5, 31)})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if may.Count != 2 || may.Expense.StringFixed(2) != "900.10" {
		t.Fatalf("unexpected may summary %+v", may)
	}
}
