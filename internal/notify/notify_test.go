package notify

import (
	"strings"
	"testing"
	"time"

	"outreachbot/internal/engine"
	"outreachbot/pkg/logx"
)

func TestFormatSummary(t *testing.T) {
	t.Parallel()

	started := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	base := engine.Summary{
		RunID:      "run-1",
		Started:    started,
		Finished:   started.Add(7 * time.Minute),
		DailyLimit: 20,
		Eligible:   5,
		Attempted:  3,
		Succeeded:  2,
		Failed:     1,
		Reason:     engine.ReasonBudgetExhausted,
	}

	got := FormatSummary(base)
	for _, want := range []string{
		"Outreach run finished",
		"Run: run-1",
		"Duration: 7m0s",
		"Reason: budget_exhausted",
		"Attempted: 3, succeeded: 2, failed: 1",
		"Daily limit: 20",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("summary missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "dry run") {
		t.Errorf("live summary mentions dry run:\n%s", got)
	}
}

func TestFormatSummaryDryRun(t *testing.T) {
	t.Parallel()

	sum := engine.Summary{
		RunID:        "run-2",
		Started:      time.Now(),
		Finished:     time.Now(),
		DryRun:       true,
		WouldAttempt: 4,
		Reason:       engine.ReasonCompletedNormally,
	}

	got := FormatSummary(sum)
	if !strings.Contains(got, "(dry run)") {
		t.Errorf("dry-run summary missing marker:\n%s", got)
	}
	if !strings.Contains(got, "Would attempt: 4") {
		t.Errorf("dry-run summary missing would-attempt count:\n%s", got)
	}
	if strings.Contains(got, "Attempted:") {
		t.Errorf("dry-run summary shows live counters:\n%s", got)
	}
}

func TestNewTelegramValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewTelegram(Config{Token: "", ChatID: 1}, logx.Nop()); err == nil {
		t.Fatal("NewTelegram() with empty token: error = nil, want error")
	}
	if _, err := NewTelegram(Config{Token: "x", ChatID: 0}, logx.Nop()); err == nil {
		t.Fatal("NewTelegram() with zero chat id: error = nil, want error")
	}
}
