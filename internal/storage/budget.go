package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ConsumedOn reports how many actions were consumed on the given day key.
// Implements ratelimit.BudgetStore.
func (d *DB) ConsumedOn(ctx context.Context, day string) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx, `SELECT consumed FROM budget WHERE day = ?`, day).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("budget read %s: %w", day, err)
	}
	return n, nil
}

// AddConsumed adds n to the day's consumed counter, creating the row on
// first use. Implements ratelimit.BudgetStore.
func (d *DB) AddConsumed(ctx context.Context, day string, n int) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO budget(day, consumed) VALUES(?, ?)
		 ON CONFLICT(day) DO UPDATE SET consumed = consumed + excluded.consumed`,
		day, n)
	if err != nil {
		return fmt.Errorf("budget write %s: %w", day, err)
	}
	return nil
}
