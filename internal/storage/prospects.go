package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"outreachbot/internal/prospect"
)

var prospectColumns = []string{
	"id", "url", "full_name", "first_name", "last_name", "headline",
	"company", "location", "source", "notes", "status", "attempts",
	"last_attempt_at", "last_failure", "discovered_at", "updated_at",
}

// CreateProspect inserts a new record. The profile URL is the unique key;
// inserting a duplicate fails.
func (d *DB) CreateProspect(ctx context.Context, p *prospect.Prospect) error {
	if p.Status == "" {
		p.Status = prospect.StatusDiscovered
	}
	if !p.Status.Valid() {
		return fmt.Errorf("invalid status %q", p.Status)
	}
	if p.DiscoveredAt.IsZero() {
		p.DiscoveredAt = time.Now()
	}

	query, args, err := sq.Insert("prospects").
		Columns("url", "full_name", "first_name", "last_name", "headline",
			"company", "location", "source", "notes", "status", "attempts",
			"last_attempt_at", "last_failure", "discovered_at", "updated_at").
		Values(p.URL, p.FullName, p.FirstName, p.LastName, p.Headline,
			p.Company, p.Location, p.Source, p.Notes, string(p.Status), p.Attempts,
			nullTime(p.LastAttempt), nullStr(p.LastFailure),
			p.DiscoveredAt.Format(time.RFC3339Nano), nullTime(p.UpdatedAt)).
		ToSql()
	if err != nil {
		return err
	}
	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("create prospect %s: %w", p.URL, err)
	}
	if id, err := res.LastInsertId(); err == nil {
		p.ID = id
	}
	return nil
}

// SaveProspect persists a state update by id. The write is synchronous and
// durable on return; the engine calls this after every performed action.
func (d *DB) SaveProspect(ctx context.Context, p *prospect.Prospect) error {
	if p.ID == 0 {
		return fmt.Errorf("save prospect %s: missing id", p.URL)
	}
	if !p.Status.Valid() {
		return fmt.Errorf("invalid status %q", p.Status)
	}
	p.UpdatedAt = time.Now()

	query, args, err := sq.Update("prospects").
		Set("full_name", p.FullName).
		Set("first_name", p.FirstName).
		Set("last_name", p.LastName).
		Set("headline", p.Headline).
		Set("company", p.Company).
		Set("location", p.Location).
		Set("notes", p.Notes).
		Set("status", string(p.Status)).
		Set("attempts", p.Attempts).
		Set("last_attempt_at", nullTime(p.LastAttempt)).
		Set("last_failure", nullStr(p.LastFailure)).
		Set("updated_at", nullTime(p.UpdatedAt)).
		Where(sq.Eq{"id": p.ID}).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := d.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save prospect %s: %w", p.URL, err)
	}
	return nil
}

// FindEligible returns action candidates ordered by (fewest attempts, then
// oldest discovery). Terminal prospects are never returned, and Failed
// prospects drop out once their attempt count reaches maxAttempts.
func (d *DB) FindEligible(ctx context.Context, maxAttempts, limit int) ([]prospect.Prospect, error) {
	b := sq.Select(prospectColumns...).
		From("prospects").
		Where(sq.Or{
			sq.Eq{"status": []string{string(prospect.StatusDiscovered), string(prospect.StatusQueued)}},
			sq.And{
				sq.Eq{"status": string(prospect.StatusFailed)},
				sq.Lt{"attempts": maxAttempts},
			},
		}).
		OrderBy("attempts ASC", "discovered_at ASC")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	return d.queryProspects(ctx, query, args)
}

// ListProspects returns everything, newest discoveries first.
func (d *DB) ListProspects(ctx context.Context) ([]prospect.Prospect, error) {
	query, args, err := sq.Select(prospectColumns...).
		From("prospects").
		OrderBy("discovered_at DESC").
		ToSql()
	if err != nil {
		return nil, err
	}
	return d.queryProspects(ctx, query, args)
}

func (d *DB) queryProspects(ctx context.Context, query string, args []any) ([]prospect.Prospect, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []prospect.Prospect
	for rows.Next() {
		p, err := scanProspect(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProspect(rows *sql.Rows) (prospect.Prospect, error) {
	var (
		p           prospect.Prospect
		status      string
		lastAttempt sql.NullString
		lastFailure sql.NullString
		updated     sql.NullString
		discovered  string
	)
	err := rows.Scan(&p.ID, &p.URL, &p.FullName, &p.FirstName, &p.LastName,
		&p.Headline, &p.Company, &p.Location, &p.Source, &p.Notes,
		&status, &p.Attempts, &lastAttempt, &lastFailure, &discovered, &updated)
	if err != nil {
		return prospect.Prospect{}, err
	}
	p.Status = prospect.Status(status)
	p.LastAttempt = parseTime(lastAttempt.String)
	p.LastFailure = lastFailure.String
	p.DiscoveredAt = parseTime(discovered)
	p.UpdatedAt = parseTime(updated.String)
	return p, nil
}

// Stats is the aggregation behind the stats command.
type Stats struct {
	Total    int
	ByStatus map[prospect.Status]int

	Runs           int
	TotalAttempted int
	TotalSucceeded int
}

func (d *DB) Stats(ctx context.Context) (Stats, error) {
	st := Stats{ByStatus: map[prospect.Status]int{}}

	query, args, err := sq.Select("status", "COUNT(*)").
		From("prospects").
		GroupBy("status").
		ToSql()
	if err != nil {
		return st, err
	}
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return st, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return st, err
		}
		st.ByStatus[prospect.Status(status)] = n
		st.Total += n
	}
	if err := rows.Err(); err != nil {
		return st, err
	}

	row := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(attempted),0), COALESCE(SUM(succeeded),0) FROM runs`)
	if err := row.Scan(&st.Runs, &st.TotalAttempted, &st.TotalSucceeded); err != nil {
		return st, err
	}
	return st, nil
}
