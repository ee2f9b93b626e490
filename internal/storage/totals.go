package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

// RefreshDailyTotal recomputes the daily_totals row for one date from the
// transactions table. A date with no transactions left loses its row.
func (s *Store) RefreshDailyTotal(ctx context.Context, date core.Date) error {
	key := date.String()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		total, n, err := sumDate(ctx, tx, key)
		if err != nil {
			return err
		}
		if n == 0 {
			if _, err := tx.ExecContext(ctx, `DELETE FROM daily_totals WHERE date = ?`, key); err != nil {
				return fmt.Errorf("%w: clear daily total: %v", ErrWrite, err)
			}
			return nil
		}
		return upsertDailyTotal(ctx, tx, core.DailyTotal{Date: date, Income: total.Income, Expense: total.Expense})
	})
	if err != nil {
		return fmt.Errorf("refresh daily total %s: %w", key, err)
	}
	slog.DebugContext(ctx, "Daily total refreshed", "date", key)
	return nil
}

// RebuildDailyTotals drops and recomputes every daily_totals row.
func (s *Store) RebuildDailyTotals(ctx context.Context) (int, error) {
	var days int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT date, type, amount FROM transactions`)
		if err != nil {
			return fmt.Errorf("%w: scan transactions: %v", ErrRead, err)
		}
		defer rows.Close()

		byDate := map[string]*core.Summary{}
		var order []string
		for rows.Next() {
			var (
				date, kind string
				amount     decimal.Decimal
			)
			if err := rows.Scan(&date, &kind, &amount); err != nil {
				return fmt.Errorf("%w: scan transaction: %v", ErrRead, err)
			}
			sum, ok := byDate[date]
			if !ok {
				sum = &core.Summary{}
				byDate[date] = sum
				order = append(order, date)
			}
			sum.Add(core.Transaction{Kind: core.Kind(kind), Amount: amount})
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("%w: scan transactions: %v", ErrRead, err)
		}
		rows.Close()

		if _, err := tx.ExecContext(ctx, `DELETE FROM daily_totals`); err != nil {
			return fmt.Errorf("%w: clear daily totals: %v", ErrWrite, err)
		}
		for _, key := range order {
			d, err := core.ParseDate(key)
			if err != nil {
				slog.WarnContext(ctx, "Skipping transaction with unreadable date", "date", key)
				continue
			}
			sum := byDate[key]
			if err := upsertDailyTotal(ctx, tx, core.DailyTotal{Date: d, Income: sum.Income, Expense: sum.Expense}); err != nil {
				return err
			}
			days++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("rebuild daily totals: %w", err)
	}
	slog.InfoContext(ctx, "Daily totals rebuilt", "days", days)
	return days, nil
}

// DailyTotals reads daily_totals for the range, oldest first.
func (s *Store) DailyTotals(ctx context.Context, r core.DateRange) ([]core.DailyTotal, error) {
	where, args := rangeClause("date", r)
	query := `SELECT date, income, expense FROM daily_totals`
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY date"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("daily totals: %w: %v", ErrRead, err)
	}
	defer rows.Close()

	out := []core.DailyTotal{}
	for rows.Next() {
		var (
			date string
			dt   core.DailyTotal
		)
		if err := rows.Scan(&date, &dt.Income, &dt.Expense); err != nil {
			return nil, fmt.Errorf("daily totals: %w: scan: %v", ErrRead, err)
		}
		d, err := core.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("daily totals: %w: %v", ErrRead, err)
		}
		dt.Date = d
		out = append(out, dt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("daily totals: %w: %v", ErrRead, err)
	}
	return out, nil
}

// Summary totals income and expense over the range straight from the
// transactions table, so it never lags behind daily_totals.
func (s *Store) Summary(ctx context.Context, r core.DateRange) (core.Summary, error) {
	where, args := rangeClause("date", r)
	query := `SELECT type, amount FROM transactions`
	if where != "" {
		query += " WHERE " + where
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return core.Summary{}, fmt.Errorf("summary: %w: %v", ErrRead, err)
	}
	defer rows.Close()

	sum := core.Summary{From: r.From, To: r.To}
	for rows.Next() {
		var (
			kind   string
			amount decimal.Decimal
		)
		if err := rows.Scan(&kind, &amount); err != nil {
			return core.Summary{}, fmt.Errorf("summary: %w: scan: %v", ErrRead, err)
		}
		sum.Add(core.Transaction{Kind: core.Kind(kind), Amount: amount})
	}
	if err := rows.Err(); err != nil {
		return core.Summary{}, fmt.Errorf("summary: %w: %v", ErrRead, err)
	}
	return sum, nil
}

func sumDate(ctx context.Context, tx *sql.Tx, date string) (core.Summary, int, error) {
	rows, err := tx.QueryContext(ctx, `SELECT type, amount FROM transactions WHERE date = ?`, date)
	if err != nil {
		return core.Summary{}, 0, fmt.Errorf("%w: sum date: %v", ErrRead, err)
	}
	defer rows.Close()

	var sum core.Summary
	for rows.Next() {
		var (
			kind   string
			amount decimal.Decimal
		)
		if err := rows.Scan(&kind, &amount); err != nil {
			return core.Summary{}, 0, fmt.Errorf("%w: sum date: %v", ErrRead, err)
		}
		sum.Add(core.Transaction{Kind: core.Kind(kind), Amount: amount})
	}
	if err := rows.Err(); err != nil {
		return core.Summary{}, 0, fmt.Errorf("%w: sum date: %v", ErrRead, err)
	}
	return sum, sum.Count, nil
}

func upsertDailyTotal(ctx context.Context, tx *sql.Tx, dt core.DailyTotal) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO daily_totals(date, income, expense) VALUES (?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET income = excluded.income, expense = excluded.expense`,
		dt.Date.String(), dt.Income.String(), dt.Expense.String())
	if err != nil {
		return fmt.Errorf("%w: upsert daily total: %v", ErrWrite, err)
	}
	return nil
}
