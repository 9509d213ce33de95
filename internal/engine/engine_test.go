package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"outreachbot/internal/prospect"
	"outreachbot/internal/ratelimit"
	"outreachbot/pkg/logx"
)

// fakeStore is an in-memory ProspectStore recording every persisted state.
type fakeStore struct {
	mu       sync.Mutex
	eligible []prospect.Prospect
	saves    []prospect.Prospect
	byURL    map[string]prospect.Prospect

	findErr error
	saveErr func(p *prospect.Prospect) error
}

func newFakeStore(eligible ...prospect.Prospect) *fakeStore {
	return &fakeStore{eligible: eligible, byURL: map[string]prospect.Prospect{}}
}

func (s *fakeStore) FindEligible(_ context.Context, maxAttempts, limit int) ([]prospect.Prospect, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []prospect.Prospect
	for _, p := range s.eligible {
		// Selection reflects persisted state, like the real store.
		if cur, ok := s.byURL[p.URL]; ok {
			p = cur
		}
		if p.Eligible(maxAttempts) {
			out = append(out, p)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeStore) SaveProspect(_ context.Context, p *prospect.Prospect) error {
	if s.saveErr != nil {
		if err := s.saveErr(p); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves = append(s.saves, *p)
	s.byURL[p.URL] = *p
	return nil
}

func (s *fakeStore) final(url string) (prospect.Prospect, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byURL[url]
	return p, ok
}

// fakeExec simulates the action executor with per-URL outcomes.
type fakeExec struct {
	mu       sync.Mutex
	readyErr error
	fail     map[string]error
	onInvite func(p prospect.Prospect)
	calls    []string
}

func (f *fakeExec) Ready(context.Context) error { return f.readyErr }

func (f *fakeExec) SendInvite(_ context.Context, p prospect.Prospect, _ string) error {
	f.mu.Lock()
	f.calls = append(f.calls, p.URL)
	f.mu.Unlock()
	if f.onInvite != nil {
		f.onInvite(p)
	}
	if err, ok := f.fail[p.URL]; ok {
		return err
	}
	return nil
}

type sinkRecorder struct {
	mu   sync.Mutex
	recs []Summary
}

func (s *sinkRecorder) AppendRun(_ context.Context, sum Summary) error {
	s.mu.Lock()
	s.recs = append(s.recs, sum)
	s.mu.Unlock()
	return nil
}

func queued(url string, attempts int, discovered time.Time) prospect.Prospect {
	return prospect.Prospect{
		ID:           int64(len(url)), // nonzero; tests key by URL
		URL:          url,
		Status:       prospect.StatusQueued,
		Attempts:     attempts,
		DiscoveredAt: discovered,
	}
}

func testLimiter(t *testing.T, limit int, store ratelimit.BudgetStore) *ratelimit.Limiter {
	t.Helper()
	l, err := ratelimit.New(ratelimit.Config{
		DailyLimit: limit,
		Location:   time.UTC,
		Store:      store,
		Now:        func() time.Time { return time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("ratelimit.New() error = %v", err)
	}
	return l
}

func newTestEngine(t *testing.T, cfg Config, store *fakeStore, sink *sinkRecorder, limiter *ratelimit.Limiter, exec *fakeExec) *Engine {
	t.Helper()
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	opts := []Option{
		WithSleep(func(ctx context.Context, _ time.Duration) error { return ctx.Err() }),
		WithRand(rand.New(rand.NewSource(1))),
	}
	// A typed nil would defeat the constructor's executor check.
	var e *Engine
	var err error
	if exec == nil {
		e, err = New(cfg, store, sink, limiter, nil, logx.Nop(), opts...)
	} else {
		e, err = New(cfg, store, sink, limiter, exec, logx.Nop(), opts...)
	}
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
}

func TestRunStopsWhenBudgetExhausted(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	store := newFakeStore(
		queued("https://linkedin.com/in/p1", 0, base),
		queued("https://linkedin.com/in/p2", 0, base.Add(time.Minute)),
		queued("https://linkedin.com/in/p3", 0, base.Add(2*time.Minute)),
		queued("https://linkedin.com/in/p4", 0, base.Add(3*time.Minute)),
		queued("https://linkedin.com/in/p5", 0, base.Add(4*time.Minute)),
	)
	budget := ratelimit.NewMemStore()
	exec := &fakeExec{}
	sink := &sinkRecorder{}
	e := newTestEngine(t, Config{DailyLimit: 3, MinDelay: time.Second, MaxDelay: time.Minute},
		store, sink, testLimiter(t, 3, budget), exec)

	sum, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sum.Reason != ReasonBudgetExhausted {
		t.Fatalf("reason = %s, want %s", sum.Reason, ReasonBudgetExhausted)
	}
	if sum.Attempted != 3 || sum.Succeeded != 3 {
		t.Fatalf("attempted/succeeded = %d/%d, want 3/3", sum.Attempted, sum.Succeeded)
	}
	if len(exec.calls) != 3 {
		t.Fatalf("executor called %d times, want 3", len(exec.calls))
	}
	// Oldest-first within equal attempts.
	if exec.calls[0] != "https://linkedin.com/in/p1" || exec.calls[2] != "https://linkedin.com/in/p3" {
		t.Fatalf("action order = %v", exec.calls)
	}
	if n, _ := budget.ConsumedOn(context.Background(), "2025-06-01"); n != 3 {
		t.Fatalf("durable consumed = %d, want 3", n)
	}
	for _, url := range exec.calls {
		p, ok := store.final(url)
		if !ok || p.Status != prospect.StatusConnected {
			t.Errorf("%s final status = %v, want connected", url, p.Status)
		}
	}
	// Untouched candidates keep their queued state.
	if _, ok := store.final("https://linkedin.com/in/p4"); ok {
		p, _ := store.final("https://linkedin.com/in/p4")
		if p.Status != prospect.StatusQueued {
			t.Errorf("unattempted prospect mutated to %s", p.Status)
		}
	}
	if len(sink.recs) != 1 || sink.recs[0].Reason != ReasonBudgetExhausted {
		t.Fatalf("run record = %+v, want one budget_exhausted record", sink.recs)
	}
}

func TestRunNoEligibleProspects(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	exec := &fakeExec{}
	sink := &sinkRecorder{}
	e := newTestEngine(t, Config{DailyLimit: 5}, store, sink, testLimiter(t, 5, ratelimit.NewMemStore()), exec)

	sum, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sum.Reason != ReasonNoEligibleProspects {
		t.Fatalf("reason = %s, want %s", sum.Reason, ReasonNoEligibleProspects)
	}
	if len(exec.calls) != 0 {
		t.Fatalf("executor called %d times, want 0", len(exec.calls))
	}
	if len(sink.recs) != 1 {
		t.Fatal("missing run record")
	}
}

func TestRunFailureBelowCapStaysRetryable(t *testing.T) {
	t.Parallel()

	base := time.Now().UTC()
	url := "https://linkedin.com/in/flaky"
	store := newFakeStore(queued(url, 0, base))
	exec := &fakeExec{fail: map[string]error{url: errors.New("connect button not found")}}
	sink := &sinkRecorder{}
	e := newTestEngine(t, Config{DailyLimit: 5, MaxAttempts: 3}, store, sink,
		testLimiter(t, 5, ratelimit.NewMemStore()), exec)

	sum, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sum.Failed != 1 || sum.Skipped != 0 {
		t.Fatalf("failed/skipped = %d/%d, want 1/0", sum.Failed, sum.Skipped)
	}
	p, _ := store.final(url)
	if p.Status != prospect.StatusFailed || p.Attempts != 1 {
		t.Fatalf("final = %s attempts=%d, want failed attempts=1", p.Status, p.Attempts)
	}
	if p.LastFailure == "" {
		t.Fatal("failure reason not recorded")
	}
	// Within the run each prospect is attempted at most once.
	if len(exec.calls) != 1 {
		t.Fatalf("executor called %d times, want 1", len(exec.calls))
	}
}

func TestRunFailureAtCapSkipsPermanently(t *testing.T) {
	t.Parallel()

	base := time.Now().UTC()
	url := "https://linkedin.com/in/hopeless"
	p := queued(url, 2, base)
	p.Status = prospect.StatusFailed
	store := newFakeStore(p)
	exec := &fakeExec{fail: map[string]error{url: errors.New("still broken")}}
	sink := &sinkRecorder{}
	e := newTestEngine(t, Config{DailyLimit: 5, MaxAttempts: 3}, store, sink,
		testLimiter(t, 5, ratelimit.NewMemStore()), exec)

	sum, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sum.Failed != 1 || sum.Skipped != 1 {
		t.Fatalf("failed/skipped = %d/%d, want 1/1", sum.Failed, sum.Skipped)
	}
	got, _ := store.final(url)
	if got.Status != prospect.StatusSkipped || got.Attempts != 3 {
		t.Fatalf("final = %s attempts=%d, want skipped attempts=3", got.Status, got.Attempts)
	}
}

func TestRunFailuresConsumeBudget(t *testing.T) {
	t.Parallel()

	base := time.Now().UTC()
	store := newFakeStore(
		queued("https://linkedin.com/in/bad1", 0, base),
		queued("https://linkedin.com/in/bad2", 0, base.Add(time.Minute)),
	)
	exec := &fakeExec{fail: map[string]error{
		"https://linkedin.com/in/bad1": errors.New("boom"),
		"https://linkedin.com/in/bad2": errors.New("boom"),
	}}
	budget := ratelimit.NewMemStore()
	e := newTestEngine(t, Config{DailyLimit: 10}, store, &sinkRecorder{}, testLimiter(t, 10, budget), exec)

	if _, err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if n, _ := budget.ConsumedOn(context.Background(), "2025-06-01"); n != 2 {
		t.Fatalf("consumed = %d, want 2 (failures count)", n)
	}
}

func TestRunLimitCompletesNormally(t *testing.T) {
	t.Parallel()

	base := time.Now().UTC()
	store := newFakeStore(
		queued("https://linkedin.com/in/p1", 0, base),
		queued("https://linkedin.com/in/p2", 0, base.Add(time.Minute)),
		queued("https://linkedin.com/in/p3", 0, base.Add(2*time.Minute)),
	)
	exec := &fakeExec{}
	e := newTestEngine(t, Config{DailyLimit: 10, RunLimit: 2}, store, &sinkRecorder{},
		testLimiter(t, 10, ratelimit.NewMemStore()), exec)

	sum, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sum.Reason != ReasonCompletedNormally {
		t.Fatalf("reason = %s, want %s", sum.Reason, ReasonCompletedNormally)
	}
	if sum.Attempted != 2 {
		t.Fatalf("attempted = %d, want 2", sum.Attempted)
	}
}

func TestRunAbortsWhenExecutorNotReady(t *testing.T) {
	t.Parallel()

	store := newFakeStore(queued("https://linkedin.com/in/p1", 0, time.Now()))
	exec := &fakeExec{readyErr: errors.New("login failed")}
	sink := &sinkRecorder{}
	e := newTestEngine(t, Config{DailyLimit: 5}, store, sink, testLimiter(t, 5, ratelimit.NewMemStore()), exec)

	sum, err := e.Run(context.Background())
	if err == nil {
		t.Fatal("Run() error = nil, want error")
	}
	if sum.Reason != ReasonAborted {
		t.Fatalf("reason = %s, want %s", sum.Reason, ReasonAborted)
	}
	if len(exec.calls) != 0 {
		t.Fatal("executor acted despite failing readiness")
	}
	if len(sink.recs) != 1 || sink.recs[0].Reason != ReasonAborted {
		t.Fatal("aborted run not recorded")
	}
}

func TestRunAbortsFatallyOnSaveFailure(t *testing.T) {
	t.Parallel()

	base := time.Now().UTC()
	url1 := "https://linkedin.com/in/first"
	url2 := "https://linkedin.com/in/second"
	store := newFakeStore(queued(url1, 0, base), queued(url2, 0, base.Add(time.Minute)))
	// The save that marks the second prospect Connecting fails.
	store.saveErr = func(p *prospect.Prospect) error {
		if p.URL == url2 && p.Status == prospect.StatusConnecting {
			return errors.New("database is locked")
		}
		return nil
	}
	exec := &fakeExec{}
	sink := &sinkRecorder{}
	e := newTestEngine(t, Config{DailyLimit: 5}, store, sink, testLimiter(t, 5, ratelimit.NewMemStore()), exec)

	sum, err := e.Run(context.Background())
	if err == nil {
		t.Fatal("Run() error = nil, want fatal error")
	}
	if !IsFatal(err) {
		t.Fatalf("IsFatal(%v) = false, want true", err)
	}
	if sum.Reason != ReasonAborted {
		t.Fatalf("reason = %s, want %s", sum.Reason, ReasonAborted)
	}
	// The completed first action survives the abort.
	p, _ := store.final(url1)
	if p.Status != prospect.StatusConnected {
		t.Fatalf("first prospect status = %s, want connected", p.Status)
	}
	if sum.Attempted != 1 || sum.Succeeded != 1 {
		t.Fatalf("attempted/succeeded = %d/%d, want 1/1", sum.Attempted, sum.Succeeded)
	}
}

func TestRunDryRunTouchesNothing(t *testing.T) {
	t.Parallel()

	base := time.Now().UTC()
	store := newFakeStore(
		queued("https://linkedin.com/in/p1", 0, base),
		queued("https://linkedin.com/in/p2", 0, base.Add(time.Minute)),
		queued("https://linkedin.com/in/p3", 0, base.Add(2*time.Minute)),
	)
	budget := ratelimit.NewMemStore()
	budget.Seed("2025-06-01", 1)
	sink := &sinkRecorder{}
	e := newTestEngine(t, Config{DailyLimit: 3, DryRun: true}, store, sink, testLimiter(t, 3, budget), nil)

	sum, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	// 3 daily, 1 already consumed: the dry run reports 2 sends.
	if sum.WouldAttempt != 2 {
		t.Fatalf("WouldAttempt = %d, want 2", sum.WouldAttempt)
	}
	if sum.Reason != ReasonBudgetExhausted {
		t.Fatalf("reason = %s, want %s", sum.Reason, ReasonBudgetExhausted)
	}
	if sum.Attempted != 0 || sum.Succeeded != 0 {
		t.Fatalf("live counters moved in dry run: %+v", sum)
	}
	if len(store.saves) != 0 {
		t.Fatalf("dry run persisted %d prospect writes, want 0", len(store.saves))
	}
	// The audit record is still written.
	if len(sink.recs) != 1 || !sink.recs[0].DryRun {
		t.Fatal("dry run record missing or not flagged")
	}
}

func TestRunDryRunMatchesLiveOrdering(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	mk := func() []prospect.Prospect {
		return []prospect.Prospect{
			queued("https://linkedin.com/in/retry", 1, base),
			queued("https://linkedin.com/in/old", 0, base),
			queued("https://linkedin.com/in/new", 0, base.Add(time.Hour)),
		}
	}

	liveStore := newFakeStore(mk()...)
	liveExec := &fakeExec{}
	live := newTestEngine(t, Config{DailyLimit: 10}, liveStore, &sinkRecorder{},
		testLimiter(t, 10, ratelimit.NewMemStore()), liveExec)
	if _, err := live.Run(context.Background()); err != nil {
		t.Fatalf("live Run() error = %v", err)
	}

	wantOrder := []string{
		"https://linkedin.com/in/old",
		"https://linkedin.com/in/new",
		"https://linkedin.com/in/retry",
	}
	for i, w := range wantOrder {
		if liveExec.calls[i] != w {
			t.Fatalf("live order = %v, want %v", liveExec.calls, wantOrder)
		}
	}

	dryStore := newFakeStore(mk()...)
	dry := newTestEngine(t, Config{DailyLimit: 10, DryRun: true}, dryStore, &sinkRecorder{},
		testLimiter(t, 10, ratelimit.NewMemStore()), nil)
	sum, err := dry.Run(context.Background())
	if err != nil {
		t.Fatalf("dry Run() error = %v", err)
	}
	if sum.WouldAttempt != len(wantOrder) {
		t.Fatalf("dry WouldAttempt = %d, want %d", sum.WouldAttempt, len(wantOrder))
	}
}

func TestRunInterruptStopsBetweenActions(t *testing.T) {
	t.Parallel()

	base := time.Now().UTC()
	store := newFakeStore(
		queued("https://linkedin.com/in/p1", 0, base),
		queued("https://linkedin.com/in/p2", 0, base.Add(time.Minute)),
	)
	ctx, cancel := context.WithCancel(context.Background())
	exec := &fakeExec{onInvite: func(prospect.Prospect) { cancel() }}
	sink := &sinkRecorder{}
	e := newTestEngine(t, Config{DailyLimit: 5}, store, sink, testLimiter(t, 5, ratelimit.NewMemStore()), exec)

	sum, err := e.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if sum.Reason != ReasonAborted {
		t.Fatalf("reason = %s, want %s", sum.Reason, ReasonAborted)
	}
	// The in-flight action completed and its outcome is durable.
	if sum.Attempted != 1 || sum.Succeeded != 1 {
		t.Fatalf("attempted/succeeded = %d/%d, want 1/1", sum.Attempted, sum.Succeeded)
	}
	p, _ := store.final("https://linkedin.com/in/p1")
	if p.Status != prospect.StatusConnected {
		t.Fatalf("interrupted action status = %s, want connected", p.Status)
	}
	if len(exec.calls) != 1 {
		t.Fatalf("executor called %d times after cancel, want 1", len(exec.calls))
	}
	if len(sink.recs) != 1 {
		t.Fatal("aborted run not recorded")
	}
}

func TestRunIsIdempotentOnceBudgetIsSpent(t *testing.T) {
	t.Parallel()

	base := time.Now().UTC()
	store := newFakeStore(
		queued("https://linkedin.com/in/p1", 0, base),
		queued("https://linkedin.com/in/p2", 0, base.Add(time.Minute)),
		queued("https://linkedin.com/in/p3", 0, base.Add(2*time.Minute)),
	)
	limiter := testLimiter(t, 2, ratelimit.NewMemStore())
	exec := &fakeExec{}

	first := newTestEngine(t, Config{DailyLimit: 2}, store, &sinkRecorder{}, limiter, exec)
	if sum, err := first.Run(context.Background()); err != nil || sum.Attempted != 2 {
		t.Fatalf("first Run() = %+v, %v, want 2 attempts", sum, err)
	}

	second := newTestEngine(t, Config{DailyLimit: 2}, store, &sinkRecorder{}, limiter, exec)
	sum, err := second.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if sum.Attempted != 0 {
		t.Fatalf("second run attempted %d actions, want 0", sum.Attempted)
	}
	if sum.Reason != ReasonBudgetExhausted {
		t.Fatalf("second run reason = %s, want %s", sum.Reason, ReasonBudgetExhausted)
	}
	if len(exec.calls) != 2 {
		t.Fatalf("executor called %d times across both runs, want 2", len(exec.calls))
	}
}

func TestRunRetriesAcrossRunsUntilSkipped(t *testing.T) {
	t.Parallel()

	base := time.Now().UTC()
	urls := []string{"https://linkedin.com/in/a", "https://linkedin.com/in/b"}
	store := newFakeStore(queued(urls[0], 0, base), queued(urls[1], 0, base.Add(time.Minute)))
	exec := &fakeExec{fail: map[string]error{
		urls[0]: errors.New("boom"),
		urls[1]: errors.New("boom"),
	}}
	budget := ratelimit.NewMemStore()
	cfg := Config{DailyLimit: 10, MaxAttempts: 2}

	run := func() Summary {
		e := newTestEngine(t, cfg, store, &sinkRecorder{}, testLimiter(t, 10, budget), exec)
		sum, err := e.Run(context.Background())
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		return sum
	}

	run()
	for _, u := range urls {
		p, _ := store.final(u)
		if p.Status != prospect.StatusFailed || p.Attempts != 1 {
			t.Fatalf("after run 1: %s = %s attempts=%d, want failed/1", u, p.Status, p.Attempts)
		}
	}

	run()
	for _, u := range urls {
		p, _ := store.final(u)
		if p.Status != prospect.StatusSkipped || p.Attempts != 2 {
			t.Fatalf("after run 2: %s = %s attempts=%d, want skipped/2", u, p.Status, p.Attempts)
		}
	}

	sum := run()
	if sum.Reason != ReasonNoEligibleProspects || sum.Attempted != 0 {
		t.Fatalf("run 3 = %s with %d attempts, want no_eligible_prospects with 0", sum.Reason, sum.Attempted)
	}
}

func TestRunAbortsOnBudgetStoreFailure(t *testing.T) {
	t.Parallel()

	store := newFakeStore(queued("https://linkedin.com/in/p1", 0, time.Now()))
	limiter, err := ratelimit.New(ratelimit.Config{
		DailyLimit: 5,
		Location:   time.UTC,
		Store:      brokenBudget{},
	})
	if err != nil {
		t.Fatalf("ratelimit.New() error = %v", err)
	}
	e := newTestEngine(t, Config{DailyLimit: 5}, store, &sinkRecorder{}, limiter, &fakeExec{})

	sum, runErr := e.Run(context.Background())
	if runErr == nil || !IsFatal(runErr) {
		t.Fatalf("Run() error = %v, want fatal", runErr)
	}
	if sum.Reason != ReasonAborted {
		t.Fatalf("reason = %s, want %s", sum.Reason, ReasonAborted)
	}
}

type brokenBudget struct{}

func (brokenBudget) ConsumedOn(context.Context, string) (int, error) {
	return 0, fmt.Errorf("disk error")
}
func (brokenBudget) AddConsumed(context.Context, string, int) error {
	return fmt.Errorf("disk error")
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	limiter := testLimiter(t, 5, ratelimit.NewMemStore())

	tests := []struct {
		name string
		cfg  Config
		exec *fakeExec
	}{
		{"zero daily limit", Config{MaxAttempts: 3}, &fakeExec{}},
		{"zero max attempts", Config{DailyLimit: 5}, &fakeExec{}},
		{"inverted delays", Config{DailyLimit: 5, MaxAttempts: 3, MinDelay: time.Minute, MaxDelay: time.Second}, &fakeExec{}},
		{"nil executor on live run", Config{DailyLimit: 5, MaxAttempts: 3}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var err error
			if tt.exec == nil {
				_, err = New(tt.cfg, store, nil, limiter, nil, logx.Nop())
			} else {
				_, err = New(tt.cfg, store, nil, limiter, tt.exec, logx.Nop())
			}
			if err == nil {
				t.Fatal("New() error = nil, want error")
			}
		})
	}
}
