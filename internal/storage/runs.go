package storage

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// RunRecord is one immutable audit row describing a finished run.
type RunRecord struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   time.Time
	DailyLimit   int
	DryRun       bool
	Attempted    int
	Succeeded    int
	Failed       int
	Skipped      int
	WouldAttempt int
	Reason       string
}

// AppendRun appends the record to the run audit log. Rows are never
// updated or deleted afterwards.
func (d *DB) AppendRun(ctx context.Context, r RunRecord) error {
	query, args, err := sq.Insert("runs").
		Columns("id", "started_at", "finished_at", "daily_limit", "dry_run",
			"attempted", "succeeded", "failed", "skipped", "would_attempt", "reason").
		Values(r.ID, r.StartedAt.Format(time.RFC3339Nano), r.FinishedAt.Format(time.RFC3339Nano),
			r.DailyLimit, r.DryRun, r.Attempted, r.Succeeded, r.Failed, r.Skipped,
			r.WouldAttempt, r.Reason).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := d.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("append run %s: %w", r.ID, err)
	}
	return nil
}

// RecentRuns returns up to n runs, newest first.
func (d *DB) RecentRuns(ctx context.Context, n int) ([]RunRecord, error) {
	if n <= 0 {
		n = 10
	}
	query, args, err := sq.Select("id", "started_at", "finished_at", "daily_limit", "dry_run",
		"attempted", "succeeded", "failed", "skipped", "would_attempt", "reason").
		From("runs").
		OrderBy("started_at DESC").
		Limit(uint64(n)).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		var started, finished string
		if err := rows.Scan(&r.ID, &started, &finished, &r.DailyLimit, &r.DryRun,
			&r.Attempted, &r.Succeeded, &r.Failed, &r.Skipped, &r.WouldAttempt, &r.Reason); err != nil {
			return nil, err
		}
		r.StartedAt = parseTime(started)
		r.FinishedAt = parseTime(finished)
		out = append(out, r)
	}
	return out, rows.Err()
}
