// Package storage provides the local key-value slots that hold the task
// collection and user preferences.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
)

// ErrQuotaExceeded is returned when a write would grow the slots past the
// configured quota.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// DefaultQuota mirrors the per-origin budget browsers give local storage.
const DefaultQuota int64 = 5 * 1024 * 1024

// Slot is a string key-value store. Get reports ok=false for absent keys.
type Slot interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error
}

var validKey = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

func checkKey(key string) error {
	if !validKey.MatchString(key) || key == "." || key == ".." {
		return fmt.Errorf("invalid storage key %q", key)
	}
	return nil
}

// Dir is a Slot that keeps one file per key inside a directory. Writes go
// through a temporary file and a rename so a crash never leaves a torn
// value behind.
type Dir struct {
	path  string
	quota int64
	mu    sync.Mutex
}

// DirOption configures a Dir.
type DirOption func(*Dir)

// WithQuota sets the total size limit in bytes. Zero or negative disables it.
func WithQuota(bytes int64) DirOption {
	return func(d *Dir) {
		d.quota = bytes
	}
}

// OpenDir prepares a directory-backed slot, creating the directory if needed.
func OpenDir(path string, opts ...DirOption) (*Dir, error) {
	if path == "" {
		return nil, fmt.Errorf("storage dir is empty")
	}
	if err := os.MkdirAll(path, 0o700); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	d := &Dir{path: path, quota: DefaultQuota}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Path returns the directory holding the slot files.
func (d *Dir) Path() string {
	return d.path
}

// Get reads the value stored under key.
func (d *Dir) Get(key string) (string, bool, error) {
	if err := checkKey(key); err != nil {
		return "", false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	data, err := os.ReadFile(d.file(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read %s: %w", key, err)
	}
	return string(data), true, nil
}

// Set stores value under key, replacing any previous value.
func (d *Dir) Set(key, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.quota > 0 {
		used, err := d.usageExcluding(key)
		if err != nil {
			return err
		}
		if used+int64(len(key)+len(value)) > d.quota {
			return fmt.Errorf("write %s (%d bytes): %w", key, len(value), ErrQuotaExceeded)
		}
	}

	tmp, err := os.CreateTemp(d.path, "."+key+".*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := os.Rename(tmpName, d.file(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Remove deletes key. Removing an absent key is not an error.
func (d *Dir) Remove(key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.Remove(d.file(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// Keys lists the stored keys in lexical order.
func (d *Dir) Keys() ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, fmt.Errorf("read storage dir: %w", err)
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name[0] == '.' {
			continue
		}
		keys = append(keys, name)
	}
	sort.Strings(keys)
	return keys, nil
}

func (d *Dir) file(key string) string {
	return filepath.Join(d.path, key)
}

// usageExcluding sums key and value sizes of every stored key except skip.
func (d *Dir) usageExcluding(skip string) (int64, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return 0, fmt.Errorf("read storage dir: %w", err)
	}
	var total int64
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name[0] == '.' || name == skip {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		total += int64(len(name)) + info.Size()
	}
	return total, nil
}

// Memory is an in-process Slot, used by tests and ephemeral sessions.
type Memory struct {
	mu     sync.Mutex
	values map[string]string

	// FailWrites, when set, is returned by every Set and Remove.
	FailWrites error
}

// NewMemory returns an empty in-memory slot.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

// Get reads the value stored under key.
func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// Set stores value under key.
func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	m.values[key] = value
	return nil
}

// Remove deletes key.
func (m *Memory) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	delete(m.values, key)
	return nil
}
