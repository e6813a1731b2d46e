package config

import (
	"flag"
)

// parseFlagsWithSources defines the global flags on fs, parses args and
// applies the flags that were explicitly set. If sources is non-nil, it
// tracks the source of each value.
func parseFlagsWithSources(cfg *Config, fs *flag.FlagSet, args []string, sources map[string]ConfigSource) error {
	if fs == nil {
		fs = flag.NewFlagSet("taskpad", flag.ContinueOnError)
	}

	// Bound to locals so only explicitly set flags touch cfg.
	dataDir := cfg.DataDir
	quota := cfg.StorageQuotaBytes
	notifications := cfg.Notifications
	notifyCommand := cfg.NotifyCommand
	maxDelay := cfg.MaxReminderDelay
	refresh := cfg.RefreshIntervalSeconds
	importStrict := cfg.ImportStrict
	journal := cfg.Journal
	logLevel := cfg.LogLevel
	logFormat := cfg.LogFormat
	logTimestamps := cfg.LogTimestamps
	logCaller := cfg.LogCaller

	fs.StringVar(&dataDir, "data-dir", dataDir, "Data directory (slots and journal)")
	fs.Int64Var(&quota, "storage-quota", quota, "Storage quota in bytes (0 disables)")
	fs.StringVar(&notifications, "notifications", notifications, "Force notification permission (granted, denied, default)")
	fs.StringVar(&notifyCommand, "notify-command", notifyCommand, "Command run for each fired reminder")
	fs.Var(&maxDelay, "max-reminder-delay", "Longest delay a reminder is armed for (e.g. 72h)")
	fs.IntVar(&refresh, "refresh-interval", refresh, "Refresh interval for watch and tui (seconds, 0 disables)")
	fs.BoolVar(&importStrict, "import-strict", importStrict, "Validate imports against the task schema")
	fs.BoolVar(&journal, "journal", journal, "Record activity in the JSONL journal")
	fs.StringVar(&logLevel, "log-level", logLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&logFormat, "log-format", logFormat, "Log format (text, json, logfmt)")
	fs.BoolVar(&logTimestamps, "log-timestamps", logTimestamps, "Show timestamps in logs")
	fs.BoolVar(&logCaller, "log-caller", logCaller, "Show caller location in logs")

	if err := fs.Parse(args); err != nil {
		return err
	}

	flagToSource := map[string]string{
		"data-dir":           "data_dir",
		"storage-quota":      "storage_quota_bytes",
		"notifications":      "notifications",
		"notify-command":     "notify_command",
		"max-reminder-delay": "max_reminder_delay",
		"refresh-interval":   "refresh_interval_seconds",
		"import-strict":      "import_strict",
		"journal":            "journal",
		"log-level":          "log_level",
		"log-format":         "log_format",
		"log-timestamps":     "log_timestamps",
		"log-caller":         "log_caller",
	}

	fs.Visit(func(f *flag.Flag) {
		field, ok := flagToSource[f.Name]
		if !ok {
			return
		}
		if sources != nil {
			sources[field] = SourceFlag
		}
		switch f.Name {
		case "data-dir":
			cfg.DataDir = dataDir
		case "storage-quota":
			cfg.StorageQuotaBytes = quota
		case "notifications":
			cfg.Notifications = notifications
		case "notify-command":
			cfg.NotifyCommand = notifyCommand
		case "max-reminder-delay":
			cfg.MaxReminderDelay = maxDelay
		case "refresh-interval":
			cfg.RefreshIntervalSeconds = refresh
		case "import-strict":
			cfg.ImportStrict = importStrict
		case "journal":
			cfg.Journal = journal
		case "log-level":
			cfg.LogLevel = logLevel
		case "log-format":
			cfg.LogFormat = logFormat
		case "log-timestamps":
			cfg.LogTimestamps = logTimestamps
		case "log-caller":
			cfg.LogCaller = logCaller
		}
	})

	return nil
}
