// Package ratelimit enforces the daily action budget.
//
// The limiter is the sole mutator of the budget window. Reserve and
// RecordConsumed are atomic with respect to each other, so two runs started
// by accident cannot overspend the day's budget between them.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// BudgetStore persists the per-day consumed counter. Days are keyed by
// calendar date ("2006-01-02") in the limiter's timezone.
type BudgetStore interface {
	ConsumedOn(ctx context.Context, day string) (int, error)
	AddConsumed(ctx context.Context, day string, n int) error
}

const dayFormat = "2006-01-02"

type Config struct {
	// DailyLimit is the maximum number of actions per calendar day.
	// Must be positive; checked at construction, never at call time.
	DailyLimit int

	// Location decides where the day boundary falls. Defaults to time.Local.
	Location *time.Location

	// Store backs the consumed counter across process restarts.
	// Defaults to an in-memory store (tests, dry runs).
	Store BudgetStore

	// Now is injectable for boundary tests. Defaults to time.Now.
	Now func() time.Time
}

type Limiter struct {
	mu    sync.Mutex
	limit int
	loc   *time.Location
	store BudgetStore
	now   func() time.Time

	// Cached state for the current day key. Reloaded lazily whenever a
	// call observes a day-boundary crossing; no background timer.
	day         string
	consumed    int
	outstanding int // granted but not yet recorded
}

func New(cfg Config) (*Limiter, error) {
	if cfg.DailyLimit <= 0 {
		return nil, fmt.Errorf("daily limit must be > 0 (got %d)", cfg.DailyLimit)
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	store := cfg.Store
	if store == nil {
		store = NewMemStore()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Limiter{limit: cfg.DailyLimit, loc: loc, store: store, now: now}, nil
}

// Reserve grants up to n action slots, never more than RemainingToday().
// The caller must call RecordConsumed exactly once per actually-attempted
// action; a skipped action does not consume its grant.
func (l *Limiter) Reserve(ctx context.Context, n int) (int, error) {
	if n <= 0 {
		return 0, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.rollLocked(ctx); err != nil {
		return 0, err
	}
	remaining := l.limit - l.consumed - l.outstanding
	if remaining <= 0 {
		return 0, nil
	}
	granted := n
	if granted > remaining {
		granted = remaining
	}
	l.outstanding += granted
	return granted, nil
}

// RecordConsumed marks n previously granted slots as spent and persists
// the new counter. Success and failure outcomes both count.
func (l *Limiter) RecordConsumed(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.rollLocked(ctx); err != nil {
		return err
	}
	if err := l.store.AddConsumed(ctx, l.day, n); err != nil {
		return fmt.Errorf("persist budget: %w", err)
	}
	l.consumed += n
	if l.outstanding >= n {
		l.outstanding -= n
	} else {
		l.outstanding = 0
	}
	return nil
}

// RemainingToday reports how many actions the current day still allows,
// counting outstanding grants as spent.
func (l *Limiter) RemainingToday(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.rollLocked(ctx); err != nil {
		return 0, err
	}
	remaining := l.limit - l.consumed - l.outstanding
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// rollLocked lazily re-keys the window when the calendar day changed.
// Crossing the boundary resets the counter to whatever the store holds for
// the new day (normally zero).
func (l *Limiter) rollLocked(ctx context.Context) error {
	key := l.now().In(l.loc).Format(dayFormat)
	if key == l.day {
		return nil
	}
	consumed, err := l.store.ConsumedOn(ctx, key)
	if err != nil {
		return fmt.Errorf("load budget: %w", err)
	}
	l.day = key
	l.consumed = consumed
	l.outstanding = 0
	return nil
}

// MemStore is an in-process BudgetStore for tests and dry runs.
type MemStore struct {
	mu   sync.Mutex
	days map[string]int
}

func NewMemStore() *MemStore {
	return &MemStore{days: map[string]int{}}
}

// Seed pre-loads a day's consumed count, e.g. a dry run snapshotting the
// durable counter without writing back to it.
func (m *MemStore) Seed(day string, consumed int) {
	m.mu.Lock()
	m.days[day] = consumed
	m.mu.Unlock()
}

func (m *MemStore) ConsumedOn(_ context.Context, day string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.days[day], nil
}

func (m *MemStore) AddConsumed(_ context.Context, day string, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.days[day] += n
	return nil
}

// DayKey formats t as a budget window key in loc.
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(dayFormat)
}
