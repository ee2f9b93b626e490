package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"fintrack/internal/core"
)

const selectTransactions = `SELECT t.id, t.title, t.amount, t.type, t.date FROM transactions t`

// Create inserts the transaction and links its tags in one database
// transaction. Tag names are trimmed, empty names dropped and duplicates
// collapsed. Nothing is visible unless every link succeeded.
func (s *Store) Create(ctx context.Context, t core.Transaction) (int64, error) {
	tags := core.NormalizeTags(t.Tags)

	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO transactions(title, amount, type, date) VALUES (?, ?, ?, ?)`,
			t.Title, t.Amount.String(), string(t.Kind), t.Date.String())
		if err != nil {
			return fmt.Errorf("%w: insert transaction: %v", ErrWrite, err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("%w: last insert id: %v", ErrWrite, err)
		}
		for _, name := range tags {
			if err := ensureLink(ctx, tx, id, name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", id,
		"title", t.Title,
		"amount", t.Amount.String(),
		"type", t.Kind,
		"date", t.Date.String(),
		"tags", len(tags))

	return id, nil
}

// GetAll returns every transaction, newest date first, each with its tags.
func (s *Store) GetAll(ctx context.Context) ([]core.Transaction, error) {
	out, err := s.list(ctx, "", nil)
	if err != nil {
		return nil, fmt.Errorf("get all transactions: %w", err)
	}
	return out, nil
}

// GetByTag returns the transactions linked to the exact tag name. Each one
// carries all of its tags, not just the matching one. An unknown tag yields
// an empty list.
func (s *Store) GetByTag(ctx context.Context, name string) ([]core.Transaction, error) {
	where := `t.id IN (
		SELECT tt.transaction_id FROM transaction_tags tt
		JOIN tags tg ON tg.id = tt.tag_id
		WHERE tg.name = ?)`
	out, err := s.list(ctx, where, []any{name})
	if err != nil {
		return nil, fmt.Errorf("get transactions by tag: %w", err)
	}
	return out, nil
}

// ListRange returns the transactions whose date falls in r.
func (s *Store) ListRange(ctx context.Context, r core.DateRange) ([]core.Transaction, error) {
	where, args := rangeClause("t.date", r)
	out, err := s.list(ctx, where, args)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

// Get returns one transaction or ErrNotFound.
func (s *Store) Get(ctx context.Context, id int64) (core.Transaction, error) {
	out, err := s.list(ctx, "t.id = ?", []any{id})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	if len(out) == 0 {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, ErrNotFound)
	}
	return out[0], nil
}

// Delete removes the transaction; its tag links go with it. Deleting an id
// that does not exist is not an error.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w: %v", id, ErrWrite, err)
	}
	n, _ := res.RowsAffected()
	slog.InfoContext(ctx, "Transaction deleted from SQLite", "id", id, "rows", n)
	return nil
}

// list runs two queries with the same filter: one for the transaction rows,
// one for their tag links in link insertion order. Links are grouped by
// transaction in memory, so tag names may contain any character.
func (s *Store) list(ctx context.Context, where string, args []any) ([]core.Transaction, error) {
	filter := ""
	if where != "" {
		filter = " WHERE " + where
	}

	rows, err := s.db.QueryContext(ctx,
		selectTransactions+filter+` ORDER BY t.date DESC, t.id DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query transactions: %v", ErrRead, err)
	}
	defer rows.Close()

	out := []core.Transaction{}
	index := make(map[int64]int)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		index[t.ID] = len(out)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: query transactions: %v", ErrRead, err)
	}
	rows.Close()

	if len(out) == 0 {
		return out, nil
	}

	links, err := s.db.QueryContext(ctx, `
		SELECT tt.transaction_id, tg.name
		FROM transaction_tags tt
		JOIN tags tg ON tg.id = tt.tag_id
		JOIN transactions t ON t.id = tt.transaction_id`+filter+`
		ORDER BY tt.rowid`, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query tags: %v", ErrRead, err)
	}
	defer links.Close()

	for links.Next() {
		var (
			txID int64
			name string
		)
		if err := links.Scan(&txID, &name); err != nil {
			return nil, fmt.Errorf("%w: scan tag link: %v", ErrRead, err)
		}
		// A row inserted between the two queries has no slot; skip it.
		if i, ok := index[txID]; ok {
			out[i].Tags = append(out[i].Tags, name)
		}
	}
	if err := links.Err(); err != nil {
		return nil, fmt.Errorf("%w: query tags: %v", ErrRead, err)
	}
	return out, nil
}

func scanTransaction(rows *sql.Rows) (core.Transaction, error) {
	var (
		t    core.Transaction
		kind string
		date string
	)
	if err := rows.Scan(&t.ID, &t.Title, &t.Amount, &kind, &date); err != nil {
		return core.Transaction{}, fmt.Errorf("%w: scan transaction: %v", ErrRead, err)
	}
	t.Kind = core.Kind(kind)
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: transaction %d: %v", ErrRead, t.ID, err)
	}
	t.Date = d
	t.Tags = []string{}
	return t, nil
}

// rangeClause builds a date filter for column; both ends are optional.
func rangeClause(column string, r core.DateRange) (string, []any) {
	var (
		parts []string
		args  []any
	)
	if !r.From.IsZero() {
		parts = append(parts, column+" >= ?")
		args = append(args, r.From.String())
	}
	if !r.To.IsZero() {
		parts = append(parts, column+" <= ?")
		args = append(args, r.To.String())
	}
	return strings.Join(parts, " AND "), args
}

// IsNotFound reports whether err is a missing single-item read.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
