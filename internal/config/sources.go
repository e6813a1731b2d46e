package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/nibzard/taskpad/internal/datadir"
)

// ProjectConfigFiles are checked, in order, in the current directory.
var ProjectConfigFiles = []string{datadir.ConfigFile, "." + datadir.ConfigFile}

// findProjectConfigFile returns the first project config file present in
// the current directory.
func findProjectConfigFile() string {
	return firstExisting(ProjectConfigFiles)
}

// findUserConfigFile returns the user config file: ~/.taskpad/taskpad.toml,
// then taskpad/taskpad.toml under the OS config directory.
func findUserConfigFile() string {
	var candidates []string
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, datadir.Dir, datadir.ConfigFile))
	}
	if dir := osUserConfigDir(); dir != "" {
		candidates = append(candidates, filepath.Join(dir, datadir.Name, datadir.ConfigFile))
	}
	return firstExisting(candidates)
}

func firstExisting(paths []string) string {
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// osUserConfigDir is os.UserConfigDir, except that on Linux and the BSDs
// an unset XDG_CONFIG_HOME falls back to ~/.config. Empty when unknown.
func osUserConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		return os.Getenv("APPDATA")
	case "darwin":
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, "Library", "Application Support")
		}
	case "linux", "openbsd", "freebsd", "netbsd":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return xdg
		}
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, ".config")
		}
	}
	return ""
}

// setDefaults applies default values to the config.
func setDefaults(cfg *Config) {
	cfg.DataDir = DefaultDataDir
	cfg.StorageQuotaBytes = DefaultStorageQuotaBytes
	cfg.Notifications = NotificationsStored
	cfg.MaxReminderDelay = DefaultMaxReminderDelay
	cfg.RefreshIntervalSeconds = DefaultRefreshIntervalSeconds
	cfg.Journal = DefaultJournal
	cfg.LogLevel = DefaultLogLevel
	cfg.LogFormat = DefaultLogFormat
}

// GetConfigFile returns the last config file read, which wins over the
// others, or "".
func (cws *ConfigWithSources) GetConfigFile() string {
	if len(cws.Files) == 0 {
		return ""
	}
	return cws.Files[len(cws.Files)-1]
}
