package config

import (
	"fmt"
	"strings"
	"time"
)

// ConfigSource represents where a configuration value came from.
type ConfigSource string

const (
	SourceDefault  ConfigSource = "default"
	SourceUserFile ConfigSource = "user file"
	SourceProjFile ConfigSource = "project file"
	SourceDotEnv   ConfigSource = "dotenv file"
	SourceEnv      ConfigSource = "environment"
	SourceFlag     ConfigSource = "flag"
)

// ConfigWithSources holds configuration along with source information for each field.
type ConfigWithSources struct {
	Config  *Config
	Sources map[string]ConfigSource
	// Files lists the config files that were read, in load order.
	Files []string
	// Unknown lists keys present in config files that taskpad does not use.
	Unknown []string
}

// Default values.
const (
	DefaultDataDir                = "~/.taskpad"
	DefaultRefreshIntervalSeconds = 30
	DefaultMaxReminderDelay       = Duration(2147483647 * time.Millisecond)
	DefaultStorageQuotaBytes      = 5 * 1024 * 1024
	DefaultJournal                = true
	DefaultLogLevel               = "info"
	DefaultLogFormat              = "text"
)

// Notification permission overrides.
const (
	NotificationsStored  = ""
	NotificationsGranted = "granted"
	NotificationsDenied  = "denied"
	NotificationsDefault = "default"
)

// Config holds the full configuration for taskpad.
type Config struct {
	// Storage
	DataDir           string `toml:"data_dir"`
	StorageQuotaBytes int64  `toml:"storage_quota_bytes"`

	// Reminders
	// Notifications forces the permission state; empty uses the stored choice.
	Notifications          string   `toml:"notifications"`
	NotifyCommand          string   `toml:"notify_command"`
	MaxReminderDelay       Duration `toml:"max_reminder_delay"`
	RefreshIntervalSeconds int      `toml:"refresh_interval_seconds"`

	// Import
	ImportStrict bool `toml:"import_strict"`

	// Activity journal under <data_dir>/journal
	Journal bool `toml:"journal"`

	// Logging configuration
	LogLevel      string `toml:"log_level"`
	LogFormat     string `toml:"log_format"`
	LogTimestamps bool   `toml:"log_timestamps"`
	LogCaller     bool   `toml:"log_caller"`

	// Working directory (computed)
	ProjectRoot string `toml:"-"`
}

// RefreshInterval returns the refresh period for long-running views.
// Zero disables periodic refresh.
func (c *Config) RefreshInterval() time.Duration {
	if c.RefreshIntervalSeconds <= 0 {
		return 0
	}
	return time.Duration(c.RefreshIntervalSeconds) * time.Second
}

// Duration is a time.Duration written as a Go duration string ("36h", "90m")
// in config files, environment variables and flags.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// Set implements flag.Value.
func (d *Duration) Set(s string) error {
	v, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	return d.Set(string(text))
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}
