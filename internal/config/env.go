package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// DotEnvFile is read from the current directory before the environment.
const DotEnvFile = ".env"

// loadDotEnv copies the variables of path into the process environment
// without overriding anything already set. It returns the keys it applied.
// A missing file is not an error.
func loadDotEnv(path string) (map[string]bool, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, err
	}
	applied := make(map[string]bool)
	for k, v := range values {
		if _, ok := os.LookupEnv(k); ok {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return nil, fmt.Errorf("set %s: %w", k, err)
		}
		applied[k] = true
	}
	return applied, nil
}

// loadFromEnvWithSources loads TASKPAD_* variables. If sources is non-nil it
// records each value, attributing variables that came from the .env file
// to SourceDotEnv.
func loadFromEnvWithSources(cfg *Config, sources map[string]ConfigSource, dotenvKeys map[string]bool) {
	lookup := func(key, field string) (string, bool) {
		v := os.Getenv(key)
		if v == "" {
			return "", false
		}
		if sources != nil {
			if dotenvKeys[key] {
				sources[field] = SourceDotEnv
			} else {
				sources[field] = SourceEnv
			}
		}
		return v, true
	}

	if v, ok := lookup("TASKPAD_DATA_DIR", "data_dir"); ok {
		cfg.DataDir = v
	}
	if v, ok := lookup("TASKPAD_STORAGE_QUOTA", "storage_quota_bytes"); ok {
		var i int64
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			cfg.StorageQuotaBytes = i
		}
	}
	if v, ok := lookup("TASKPAD_NOTIFICATIONS", "notifications"); ok {
		cfg.Notifications = v
	}
	if v, ok := lookup("TASKPAD_NOTIFY_COMMAND", "notify_command"); ok {
		cfg.NotifyCommand = v
	}
	if v, ok := lookup("TASKPAD_MAX_REMINDER_DELAY", "max_reminder_delay"); ok {
		var d Duration
		if err := d.Set(v); err == nil {
			cfg.MaxReminderDelay = d
		}
	}
	if v, ok := lookup("TASKPAD_REFRESH_INTERVAL", "refresh_interval_seconds"); ok {
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			cfg.RefreshIntervalSeconds = i
		}
	}
	if v, ok := lookup("TASKPAD_IMPORT_STRICT", "import_strict"); ok {
		cfg.ImportStrict = boolFromString(v)
	}
	if v, ok := lookup("TASKPAD_JOURNAL", "journal"); ok {
		cfg.Journal = boolFromString(v)
	}

	// Logging configuration
	if v, ok := lookup("TASKPAD_LOG_LEVEL", "log_level"); ok {
		cfg.LogLevel = v
	}
	if v, ok := lookup("TASKPAD_LOG_FORMAT", "log_format"); ok {
		cfg.LogFormat = v
	}
	if v, ok := lookup("TASKPAD_LOG_TIMESTAMPS", "log_timestamps"); ok {
		cfg.LogTimestamps = boolFromString(v)
	}
	if v, ok := lookup("TASKPAD_LOG_CALLER", "log_caller"); ok {
		cfg.LogCaller = boolFromString(v)
	}
}

func boolFromString(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}
