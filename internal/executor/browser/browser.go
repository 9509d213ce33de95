// Package browser is the real action executor: a single authenticated
// headless-browser session that performs connection requests one at a time.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"golang.org/x/time/rate"

	"outreachbot/internal/prospect"
	"outreachbot/pkg/logx"
)

const (
	loginURL = "https://www.linkedin.com/login"

	// navSelector is present on every authenticated page; waiting for it
	// is the cheapest "are we logged in" signal.
	navSelector = ".global-nav"
)

type Config struct {
	Email    string
	Password string

	Headless   bool
	NavTimeout time.Duration

	// ActionsPerMinute is a hard floor on interaction spacing inside the
	// session, independent of the engine's randomized pacing.
	ActionsPerMinute int
}

// Session drives one browser. It is not safe for concurrent use; the
// engine is serial by design.
type Session struct {
	cfg Config
	log logx.Logger

	limiter *rate.Limiter

	mu          sync.Mutex
	browserCtx  context.Context
	cancelAlloc context.CancelFunc
	cancelCtx   context.CancelFunc
	authed      bool
}

func New(cfg Config, log logx.Logger) (*Session, error) {
	if strings.TrimSpace(cfg.Email) == "" || strings.TrimSpace(cfg.Password) == "" {
		return nil, errors.New("browser executor: credentials are required")
	}
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 45 * time.Second
	}
	if cfg.ActionsPerMinute <= 0 {
		cfg.ActionsPerMinute = 4
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	interval := time.Minute / time.Duration(cfg.ActionsPerMinute)
	return &Session{
		cfg:     cfg,
		log:     log,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}, nil
}

// Start launches the browser and signs in. Safe to call once per session.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browserCtx != nil {
		return nil
	}

	// The session outlives the caller's context: an operator interrupt
	// must not kill the browser under an in-flight action. Close owns
	// the shutdown.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(),
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", s.cfg.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	browserCtx, cancelCtx := chromedp.NewContext(allocCtx)

	s.browserCtx = browserCtx
	s.cancelAlloc = cancelAlloc
	s.cancelCtx = cancelCtx

	if err := s.login(); err != nil {
		s.closeLocked()
		return err
	}
	s.authed = true
	s.log.Info("browser session authenticated")
	return nil
}

func (s *Session) login() error {
	ctx, cancel := context.WithTimeout(s.browserCtx, s.cfg.NavTimeout)
	defer cancel()

	err := chromedp.Run(ctx,
		chromedp.Navigate(loginURL),
		chromedp.WaitVisible(`#username`),
		chromedp.SendKeys(`#username`, s.cfg.Email),
		chromedp.SendKeys(`#password`, s.cfg.Password),
		chromedp.Click(`button[type="submit"]`, chromedp.NodeVisible),
		chromedp.WaitVisible(navSelector),
	)
	if err != nil {
		return fmt.Errorf("login failed (check credentials, or complete any security check manually): %w", err)
	}
	return nil
}

// Ready implements executor.Executor.
func (s *Session) Ready(ctx context.Context) error {
	s.mu.Lock()
	started := s.browserCtx != nil
	authed := s.authed
	s.mu.Unlock()

	if !started {
		return s.Start(ctx)
	}
	if !authed {
		return errors.New("browser session not authenticated")
	}
	return nil
}

// SendInvite implements executor.Executor. Any error is a per-prospect
// action failure; the session stays usable for the next candidate.
func (s *Session) SendInvite(ctx context.Context, p prospect.Prospect, note string) error {
	if err := s.Ready(ctx); err != nil {
		return err
	}
	// Session-level pacing floor; the engine's randomized delay is on top.
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	actCtx, cancel := context.WithTimeout(s.browserCtx, s.cfg.NavTimeout)
	defer cancel()

	var html string
	err := chromedp.Run(actCtx,
		chromedp.Navigate(p.URL),
		chromedp.WaitReady("body"),
		chromedp.Sleep(2*time.Second),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return fmt.Errorf("profile navigation failed: %w", err)
	}

	profile, err := ParseProfile(html)
	if err != nil {
		return fmt.Errorf("profile page not recognized: %w", err)
	}
	s.log.Debug("on profile page",
		logx.String("prospect", p.URL),
		logx.String("name", profile.Name))

	if err := s.clickConnect(actCtx); err != nil {
		return err
	}
	if err := s.sendNoteOrConfirm(actCtx, note); err != nil {
		return err
	}
	return nil
}

// clickConnect tries the markup variants the Connect button shows up as.
func (s *Session) clickConnect(ctx context.Context) error {
	selectors := []string{
		`button[aria-label*="Invite"][aria-label*="connect"]`,
		`button[data-control-name="connect"]`,
		`main button.artdeco-button--primary`,
	}
	for _, sel := range selectors {
		cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := chromedp.Run(cctx, chromedp.Click(sel, chromedp.NodeVisible))
		cancel()
		if err == nil {
			return nil
		}
	}
	return errors.New("connect button not found (already connected, pending, or page layout changed)")
}

// sendNoteOrConfirm handles the modal that follows Connect: attach the
// note when asked for one, then confirm the send.
func (s *Session) sendNoteOrConfirm(ctx context.Context, note string) error {
	if note != "" {
		nctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := chromedp.Run(nctx,
			chromedp.Click(`button[aria-label="Add a note"]`, chromedp.NodeVisible),
			chromedp.WaitVisible(`textarea[name="message"]`),
			chromedp.SendKeys(`textarea[name="message"]`, note),
		)
		cancel()
		if err != nil {
			// Some profiles offer no note field; send plain instead.
			s.log.Debug("note field unavailable, sending without note")
		}
	}

	sctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	err := chromedp.Run(sctx,
		chromedp.Click(`button[aria-label*="Send"]`, chromedp.NodeVisible),
	)
	if err != nil {
		return fmt.Errorf("send confirmation failed: %w", err)
	}
	return nil
}

// Close shuts the browser down.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
	return nil
}

func (s *Session) closeLocked() {
	if s.cancelCtx != nil {
		s.cancelCtx()
		s.cancelCtx = nil
	}
	if s.cancelAlloc != nil {
		s.cancelAlloc()
		s.cancelAlloc = nil
	}
	s.browserCtx = nil
	s.authed = false
}
