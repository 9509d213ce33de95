// Package notify pushes run summaries to an operator channel. Delivery
// is best effort: a notification failure never affects the run outcome.
package notify

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"outreachbot/internal/engine"
	"outreachbot/pkg/logx"
)

// Notifier delivers a finished run's summary.
type Notifier interface {
	RunFinished(sum engine.Summary) error
}

// Nop discards every notification.
type Nop struct{}

func (Nop) RunFinished(engine.Summary) error { return nil }

type Config struct {
	Token  string
	ChatID int64
}

// Telegram sends run summaries to a single chat.
type Telegram struct {
	bot  *tele.Bot
	chat *tele.Chat
	log  logx.Logger
}

func NewTelegram(cfg Config, log logx.Logger) (*Telegram, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat id is empty")
	}
	b, err := tele.NewBot(tele.Settings{
		Token: cfg.Token,
		// Send-only bot: no poller.
	})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Telegram{bot: b, chat: &tele.Chat{ID: cfg.ChatID}, log: log}, nil
}

func (t *Telegram) RunFinished(sum engine.Summary) error {
	_, err := t.bot.Send(t.chat, FormatSummary(sum))
	if err != nil {
		t.log.Warn("run summary notification failed", logx.Err(err))
	}
	return err
}

// FormatSummary renders a run summary as a short plain-text report.
func FormatSummary(sum engine.Summary) string {
	var b strings.Builder
	if sum.DryRun {
		b.WriteString("Outreach run finished (dry run)\n")
	} else {
		b.WriteString("Outreach run finished\n")
	}
	fmt.Fprintf(&b, "Run: %s\n", sum.RunID)
	fmt.Fprintf(&b, "Duration: %s\n", sum.Finished.Sub(sum.Started).Round(time.Second))
	fmt.Fprintf(&b, "Reason: %s\n", sum.Reason)
	fmt.Fprintf(&b, "Eligible: %d\n", sum.Eligible)
	if sum.DryRun {
		fmt.Fprintf(&b, "Would attempt: %d\n", sum.WouldAttempt)
	} else {
		fmt.Fprintf(&b, "Attempted: %d, succeeded: %d, failed: %d, skipped: %d\n",
			sum.Attempted, sum.Succeeded, sum.Failed, sum.Skipped)
	}
	fmt.Fprintf(&b, "Daily limit: %d", sum.DailyLimit)
	return b.String()
}
