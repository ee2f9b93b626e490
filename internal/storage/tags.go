package storage

import (
	"context"
	"database/sql"
	"fmt"

	"fintrack/internal/core"
)

// ensureLink makes sure tagName exists and is linked to transactionID. It must
// run inside the caller's transaction. Calling it twice with the same
// arguments is a no-op.
func ensureLink(ctx context.Context, tx *sql.Tx, transactionID int64, tagName string) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO tags(name) VALUES (?)`, tagName); err != nil {
		return fmt.Errorf("%w: insert tag %q: %v", ErrWrite, tagName, err)
	}

	var tagID int64
	if err := tx.QueryRowContext(ctx,
		`SELECT id FROM tags WHERE name = ?`, tagName).Scan(&tagID); err != nil {
		return fmt.Errorf("%w: resolve tag %q: %v", ErrWrite, tagName, err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO transaction_tags(transaction_id, tag_id) VALUES (?, ?)`,
		transactionID, tagID); err != nil {
		return fmt.Errorf("%w: link tag %q: %v", ErrWrite, tagName, err)
	}
	return nil
}

// ListTags returns every known tag with the number of transactions linked to
// it, ordered by name. Orphan tags are included with a zero count.
func (s *Store) ListTags(ctx context.Context) ([]core.TagCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tg.name, COUNT(tt.transaction_id)
		FROM tags tg
		LEFT JOIN transaction_tags tt ON tt.tag_id = tg.id
		GROUP BY tg.id, tg.name
		ORDER BY tg.name`)
	if err != nil {
		return nil, fmt.Errorf("%w: list tags: %v", ErrRead, err)
	}
	defer rows.Close()

	out := []core.TagCount{}
	for rows.Next() {
		var tc core.TagCount
		if err := rows.Scan(&tc.Name, &tc.Count); err != nil {
			return nil, fmt.Errorf("%w: scan tag: %v", ErrRead, err)
		}
		out = append(out, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list tags: %v", ErrRead, err)
	}
	return out, nil
}
