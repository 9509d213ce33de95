package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"
)

// Defaults mirror the limits the original deployment ran with.
const (
	DefaultDailyLimit  = 20
	DefaultMaxAttempts = 3
	DefaultMinDelay    = 30 * time.Second
	DefaultMaxDelay    = 2 * time.Minute
	DefaultStoragePath = "data/outreachbot.db"
	DefaultNavTimeout  = 45 * time.Second
	DefaultActionsPM   = 4
)

// Default returns a Config with all defaults applied.
func Default() *Config {
	return &Config{
		Limits:  LimitsConfig{DailyLimit: DefaultDailyLimit, MaxAttempts: DefaultMaxAttempts},
		Pacing:  PacingConfig{MinDelay: DefaultMinDelay.String(), MaxDelay: DefaultMaxDelay.String()},
		Storage: StorageConfig{Path: DefaultStoragePath},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads, defaults, env-overrides and validates the config at path.
// A missing file is not an error: the defaults plus environment apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		dec := yaml.NewDecoder(strings.NewReader(string(b)))
		// Unknown keys are config mistakes; reject them early.
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// defaults + env only
	default:
		return nil, err
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Limits.DailyLimit == 0 {
		c.Limits.DailyLimit = DefaultDailyLimit
	}
	if c.Limits.MaxAttempts == 0 {
		c.Limits.MaxAttempts = DefaultMaxAttempts
	}
	if strings.TrimSpace(c.Pacing.MinDelay) == "" {
		c.Pacing.MinDelay = DefaultMinDelay.String()
	}
	if strings.TrimSpace(c.Pacing.MaxDelay) == "" {
		c.Pacing.MaxDelay = DefaultMaxDelay.String()
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		c.Storage.Path = DefaultStoragePath
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
	}
	if c.Browser.ActionsPerMinute == 0 {
		c.Browser.ActionsPerMinute = DefaultActionsPM
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("LINKEDIN_EMAIL"); v != "" {
		c.Credentials.Email = v
	}
	if v := os.Getenv("LINKEDIN_PASSWORD"); v != "" {
		c.Credentials.Password = v
	}
	if v := os.Getenv("OUTREACHBOT_DB"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("OUTREACHBOT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks everything that must hold before a run may start.
// All violations here are configuration errors: fatal at startup, never
// reported lazily at call time.
func (c *Config) Validate() error {
	if c.Limits.DailyLimit <= 0 {
		return fmt.Errorf("limits.daily_limit must be > 0 (got %d)", c.Limits.DailyLimit)
	}
	if c.Limits.MaxAttempts < 1 {
		return fmt.Errorf("limits.max_attempts must be >= 1 (got %d)", c.Limits.MaxAttempts)
	}
	minD, err := ParseDurationField("pacing.min_delay", c.Pacing.MinDelay)
	if err != nil {
		return err
	}
	maxD, err := ParseDurationField("pacing.max_delay", c.Pacing.MaxDelay)
	if err != nil {
		return err
	}
	if maxD < minD {
		return fmt.Errorf("pacing.max_delay (%s) must be >= pacing.min_delay (%s)", maxD, minD)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("browser.nav_timeout", c.Browser.NavTimeout); err != nil {
		return err
	}
	if c.Browser.ActionsPerMinute < 1 {
		return fmt.Errorf("browser.actions_per_minute must be >= 1 (got %d)", c.Browser.ActionsPerMinute)
	}
	if c.Notify.Telegram.Enabled {
		if strings.TrimSpace(c.Notify.Telegram.Token) == "" || c.Notify.Telegram.ChatID == 0 {
			return fmt.Errorf("notify.telegram: token and chat_id are required when enabled")
		}
	}
	return nil
}

// RequireCredentials is checked only when a real browser executor is used;
// dry runs and tests do not need a session.
func (c *Config) RequireCredentials() error {
	if strings.TrimSpace(c.Credentials.Email) == "" || strings.TrimSpace(c.Credentials.Password) == "" {
		return fmt.Errorf("credentials missing: set credentials in config or LINKEDIN_EMAIL / LINKEDIN_PASSWORD")
	}
	return nil
}

// MinDelay returns the validated pacing lower bound.
func (c *Config) MinDelay() time.Duration {
	d, _ := ParseDurationField("pacing.min_delay", c.Pacing.MinDelay)
	return d
}

// MaxDelay returns the validated pacing upper bound.
func (c *Config) MaxDelay() time.Duration {
	d, _ := ParseDurationOrDefault("pacing.max_delay", c.Pacing.MaxDelay, DefaultMaxDelay)
	return d
}

func (c *Config) NavTimeout() time.Duration {
	d, _ := ParseDurationOrDefault("browser.nav_timeout", c.Browser.NavTimeout, DefaultNavTimeout)
	return d
}

func (c *Config) BusyTimeout() time.Duration {
	d, _ := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout)
	return d
}

// Location resolves the configured timezone for day-boundary accounting.
func (c *Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Timezone)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(tz)
}

func (c *Config) Headless() bool {
	if c.Browser.Headless == nil {
		return true
	}
	return *c.Browser.Headless
}

func (c *Config) ConsoleLogging() bool {
	if c.Logging.Console == nil {
		return true
	}
	return *c.Logging.Console
}
