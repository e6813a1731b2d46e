package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/nibzard/taskpad/internal/datadir"
)

// Load loads configuration from multiple sources in priority order:
// 1. Defaults
// 2. User config file (~/.taskpad/taskpad.toml or OS-specific config dir)
// 3. Project config file (taskpad.toml or .taskpad.toml in current directory)
// 4. .env file in the current directory (never overrides the real environment)
// 5. Environment variables
// 6. CLI flags
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	cws, err := LoadWithSources(fs, args)
	if err != nil {
		return nil, err
	}
	return cws.Config, nil
}

// LoadWithSources loads configuration and tracks the source of each value.
func LoadWithSources(fs *flag.FlagSet, args []string) (*ConfigWithSources, error) {
	sources := make(map[string]ConfigSource)
	cws := &ConfigWithSources{Sources: sources}
	cfg := &Config{}
	cws.Config = cfg

	// 1. Set defaults (all fields start with default source)
	setDefaults(cfg)
	for _, field := range configFields() {
		sources[field] = SourceDefault
	}

	// 2. Try to load from user config file
	if userConfigFile := findUserConfigFile(); userConfigFile != "" {
		if err := loadConfigFileWithSources(cws, userConfigFile, SourceUserFile); err != nil {
			return nil, fmt.Errorf("loading user config file %s: %w", userConfigFile, err)
		}
	}

	// 3. Try to load from project config file (overrides user config)
	if projectConfigFile := findProjectConfigFile(); projectConfigFile != "" {
		if err := loadConfigFileWithSources(cws, projectConfigFile, SourceProjFile); err != nil {
			return nil, fmt.Errorf("loading project config file %s: %w", projectConfigFile, err)
		}
	}

	// 4. Merge .env into the process environment
	dotenvKeys, err := loadDotEnv(DotEnvFile)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", DotEnvFile, err)
	}

	// 5. Override from environment
	loadFromEnvWithSources(cfg, sources, dotenvKeys)

	// 6. Parse CLI flags (they override everything)
	if err := parseFlagsWithSources(cfg, fs, args, sources); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	// 7. Compute derived values
	if err := finalizeConfig(cfg); err != nil {
		return nil, fmt.Errorf("finalizing config: %w", err)
	}

	return cws, nil
}

// configFields returns the list of configurable field names for source tracking.
func configFields() []string {
	return []string{
		"data_dir",
		"storage_quota_bytes",
		"notifications",
		"notify_command",
		"max_reminder_delay",
		"refresh_interval_seconds",
		"import_strict",
		"journal",
		"log_level",
		"log_format",
		"log_timestamps",
		"log_caller",
	}
}

// loadConfigFileWithSources loads TOML config over cws.Config and marks every
// key the file defines as coming from source.
func loadConfigFileWithSources(cws *ConfigWithSources, path string, source ConfigSource) error {
	md, err := toml.DecodeFile(path, cws.Config)
	if err != nil {
		return err
	}
	for _, field := range configFields() {
		if md.IsDefined(field) {
			cws.Sources[field] = source
		}
	}
	for _, key := range md.Undecoded() {
		cws.Unknown = append(cws.Unknown, key.String())
	}
	sort.Strings(cws.Unknown)
	cws.Files = append(cws.Files, path)
	return nil
}

// finalizeConfig computes derived values and validates settings.
func finalizeConfig(cfg *Config) error {
	if cfg.ProjectRoot == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}
		cfg.ProjectRoot = wd
	}

	// Expand ~ in paths and anchor relative ones at the working directory
	cfg.DataDir = datadir.Expand(strings.TrimSpace(cfg.DataDir))
	if cfg.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if !filepath.IsAbs(cfg.DataDir) {
		cfg.DataDir = filepath.Join(cfg.ProjectRoot, cfg.DataDir)
	}

	cfg.Notifications = strings.ToLower(strings.TrimSpace(cfg.Notifications))
	switch cfg.Notifications {
	case NotificationsStored, NotificationsGranted, NotificationsDenied, NotificationsDefault:
	default:
		return fmt.Errorf("invalid notifications %q, must be one of: granted, denied, default", cfg.Notifications)
	}
	if cfg.MaxReminderDelay <= 0 {
		return fmt.Errorf("max_reminder_delay must be positive, got %s", cfg.MaxReminderDelay)
	}
	if cfg.RefreshIntervalSeconds < 0 {
		return fmt.Errorf("refresh_interval_seconds must not be negative, got %d", cfg.RefreshIntervalSeconds)
	}
	if cfg.StorageQuotaBytes < 0 {
		return fmt.Errorf("storage_quota_bytes must not be negative, got %d", cfg.StorageQuotaBytes)
	}

	return nil
}
