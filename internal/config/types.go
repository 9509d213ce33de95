package config

// Config is the full on-disk configuration.
//
// All durations are Go duration strings (e.g. "30s", "2m").
// Credentials can also come from the environment (LINKEDIN_EMAIL,
// LINKEDIN_PASSWORD), which wins over the file.
type Config struct {
	Credentials CredentialsConfig `yaml:"credentials"`
	Limits      LimitsConfig      `yaml:"limits"`
	Pacing      PacingConfig      `yaml:"pacing"`

	// Timezone controls the calendar-day boundary for the daily budget
	// (IANA name, "Local" or empty for the system zone).
	Timezone string `yaml:"timezone,omitempty"`

	// Message is the default note attached to connection requests.
	// The --message flag overrides it per run.
	Message string `yaml:"message,omitempty"`

	Storage StorageConfig `yaml:"storage"`
	Browser BrowserConfig `yaml:"browser"`
	Logging LoggingConfig `yaml:"logging"`
	Notify  NotifyConfig  `yaml:"notify,omitempty"`
}

type CredentialsConfig struct {
	Email    string `yaml:"email,omitempty"`
	Password string `yaml:"password,omitempty"` // do not log
}

// LimitsConfig carries the safety knobs.
//
// Defaults (when fields are omitted/zero):
//   - daily_limit: 20
//   - max_attempts: 3
type LimitsConfig struct {
	DailyLimit  int `yaml:"daily_limit,omitempty"`
	MaxAttempts int `yaml:"max_attempts,omitempty"`
}

// PacingConfig bounds the randomized delay between actions.
// Defaults to 30s..2m, mirroring typical human browsing cadence.
type PacingConfig struct {
	MinDelay string `yaml:"min_delay,omitempty"`
	MaxDelay string `yaml:"max_delay,omitempty"`
}

type StorageConfig struct {
	Path        string `yaml:"path,omitempty"`         // default: "data/outreachbot.db"
	BusyTimeout string `yaml:"busy_timeout,omitempty"` // sqlite busy_timeout
}

// BrowserConfig controls the real action executor.
//
// ActionsPerMinute is a hard pacing floor inside the browser session,
// independent of the randomized run pacing.
type BrowserConfig struct {
	Headless         *bool  `yaml:"headless,omitempty"` // pointer so "omitted" defaults to true
	NavTimeout       string `yaml:"nav_timeout,omitempty"`
	ActionsPerMinute int    `yaml:"actions_per_minute,omitempty"`
}

type LoggingConfig struct {
	Level   string      `yaml:"level,omitempty"`
	Console *bool       `yaml:"console,omitempty"` // default: true
	File    LoggingFile `yaml:"file,omitempty"`
}

type LoggingFile struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

// NotifyConfig controls the optional run-summary notification channel.
type NotifyConfig struct {
	Telegram TelegramNotifyConfig `yaml:"telegram,omitempty"`
}

type TelegramNotifyConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token,omitempty"` // do not log
	ChatID  int64  `yaml:"chat_id,omitempty"`
}
