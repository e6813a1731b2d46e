// Package datadir describes the layout of the taskpad data directory.
package datadir

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	// Name is the application name used for OS config directories.
	Name = "taskpad"

	// Dir is the name of the per-user data directory under $HOME.
	Dir = ".taskpad"

	// ConfigFile is the config file name, both per-user and per-project.
	ConfigFile = "taskpad.toml"

	// SlotsDir holds one file per storage key.
	SlotsDir = "slots"

	// JournalDir holds the JSONL activity journals.
	JournalDir = "journal"

	// ExportFile is the file name written by export.
	ExportFile = "tasks.json"
)

// Layout resolves paths inside a data directory.
type Layout struct {
	Root string
}

// New returns the layout rooted at root, after ~ and environment expansion.
func New(root string) Layout {
	return Layout{Root: Expand(root)}
}

// Slots returns the storage slot directory.
func (l Layout) Slots() string {
	return filepath.Join(l.Root, SlotsDir)
}

// Journal returns the activity journal directory.
func (l Layout) Journal() string {
	return filepath.Join(l.Root, JournalDir)
}

// ConfigPath returns the per-user config file inside the data directory.
func (l Layout) ConfigPath() string {
	return filepath.Join(l.Root, ConfigFile)
}

// Ensure creates the data directory and its subdirectories.
func (l Layout) Ensure() error {
	for _, dir := range []string{l.Root, l.Slots(), l.Journal()} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// Expand expands a leading ~ and environment variables in p. On Windows it
// also accepts ~\ and %VAR%.
func Expand(p string) string {
	if p == "" {
		return p
	}

	expanded := expandEnv(p)
	if expanded == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			return home
		}
		return expanded
	}
	if strings.HasPrefix(expanded, "~/") || (runtime.GOOS == "windows" && strings.HasPrefix(expanded, `~\`)) {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, expanded[2:])
		}
	}
	return expanded
}

func expandEnv(p string) string {
	expanded := os.ExpandEnv(p)
	if runtime.GOOS != "windows" || !strings.Contains(expanded, "%") {
		return expanded
	}
	var b strings.Builder
	for i := 0; i < len(expanded); {
		if expanded[i] == '%' {
			if end := strings.IndexByte(expanded[i+1:], '%'); end > 0 {
				key := expanded[i+1 : i+1+end]
				if val, ok := os.LookupEnv(key); ok {
					b.WriteString(val)
				} else {
					b.WriteString("%" + key + "%")
				}
				i += end + 2
				continue
			}
		}
		b.WriteByte(expanded[i])
		i++
	}
	return b.String()
}
