// Package app ties the task store, the reminder scheduler and the user's
// preferences together behind the commands the CLI and TUI issue.
package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nibzard/taskpad/internal/clock"
	"github.com/nibzard/taskpad/internal/datadir"
	"github.com/nibzard/taskpad/internal/logging"
	"github.com/nibzard/taskpad/internal/query"
	"github.com/nibzard/taskpad/internal/reminder"
	"github.com/nibzard/taskpad/internal/storage"
	"github.com/nibzard/taskpad/internal/store"
	"github.com/nibzard/taskpad/internal/todo"
)

// Preference slot keys.
const (
	DarkModeKey      = "darkMode"
	NotificationsKey = "notifications"
)

// Permission is the notification permission state.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// ParsePermission normalizes s. Empty input yields PermissionDefault.
func ParsePermission(s string) (Permission, error) {
	p := Permission(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case "":
		return PermissionDefault, nil
	case PermissionDefault, PermissionGranted, PermissionDenied:
		return p, nil
	}
	return "", fmt.Errorf("invalid notification permission %q, must be one of: granted, denied, default", s)
}

// Options configures an App.
type Options struct {
	Slot    storage.Slot
	Clock   clock.Clock
	Logger  *log.Logger
	Journal *logging.Journal
	// Notifier receives fired reminders in addition to the journal.
	Notifier reminder.Notifier
	// ForcePermission overrides the stored permission when non-empty.
	ForcePermission  Permission
	MaxReminderDelay time.Duration
	ImportStrict     bool
	Location         *time.Location
	IDGenerator      func() string
}

// App is the application controller.
type App struct {
	slot         storage.Slot
	clock        clock.Clock
	logger       *log.Logger
	journal      *logging.Journal
	force        Permission
	importStrict bool

	store *store.Store
	sched *reminder.Scheduler

	mu     sync.Mutex
	filter query.Filter
}

// New opens the store on opts.Slot and arms reminders for it.
func New(opts Options) (*App, error) {
	if opts.Slot == nil {
		return nil, fmt.Errorf("app: storage slot is required")
	}
	if opts.ForcePermission != "" {
		if _, err := ParsePermission(string(opts.ForcePermission)); err != nil {
			return nil, err
		}
	}
	a := &App{
		slot:         opts.Slot,
		clock:        opts.Clock,
		logger:       opts.Logger,
		journal:      opts.Journal,
		force:        opts.ForcePermission,
		importStrict: opts.ImportStrict,
		filter:       query.DefaultFilter(),
	}
	if a.clock == nil {
		a.clock = clock.Real()
	}
	if a.logger == nil {
		a.logger = logging.Discard()
	}

	a.sched = reminder.New(reminder.Options{
		Clock:      a.clock,
		Permission: reminder.PermissionFunc(a.permissionGranted),
		Notifier:   reminder.Multi(reminder.NotifierFunc(a.journalReminder), opts.Notifier),
		Logger:     a.logger,
		MaxDelay:   opts.MaxReminderDelay,
		Location:   opts.Location,
	})

	storeOpts := []store.Option{
		store.WithNow(a.clock.Now),
		store.WithLogger(a.logger),
	}
	if opts.IDGenerator != nil {
		storeOpts = append(storeOpts, store.WithIDGenerator(opts.IDGenerator))
	}
	s, err := store.Open(a.slot, storeOpts...)
	if err != nil {
		return nil, err
	}
	a.store = s
	s.SetObserver(a.tasksChanged)
	s.Notify()
	return a, nil
}

func (a *App) tasksChanged(tasks []todo.Task) {
	a.sched.Reschedule(tasks, a.clock.Now())
}

func (a *App) journalReminder(r reminder.Reminder) {
	a.record(logging.Event{Type: logging.EventReminder, TaskID: r.TaskID, Title: r.Title, Message: r.DueDate})
}

func (a *App) record(e logging.Event) {
	if err := a.journal.Record(e); err != nil {
		a.logger.Warn("failed to write journal", "type", e.Type, "err", err)
	}
}

// Create adds a task built from d.
func (a *App) Create(d todo.Draft) (todo.Task, error) {
	task, err := a.store.Create(d)
	if task.ID != "" {
		a.record(logging.Event{Type: logging.EventCreated, TaskID: task.ID, Title: task.Title})
	}
	return task, err
}

// Update merges p into the task with the given id.
func (a *App) Update(id string, p todo.Patch) (todo.Task, bool, error) {
	task, found, err := a.store.Update(id, p)
	if found && task.ID != "" {
		a.record(logging.Event{Type: logging.EventUpdated, TaskID: id, Title: task.Title})
	}
	return task, found, err
}

// Delete removes the task with the given id.
func (a *App) Delete(id string) (bool, error) {
	found, err := a.store.Delete(id)
	if found {
		a.record(logging.Event{Type: logging.EventDeleted, TaskID: id})
	}
	return found, err
}

// ToggleComplete flips the completed flag of the task with the given id.
func (a *App) ToggleComplete(id string) (todo.Task, bool, error) {
	task, found, err := a.store.ToggleComplete(id)
	if found {
		done := task.Completed
		a.record(logging.Event{Type: logging.EventToggled, TaskID: id, Title: task.Title, Completed: &done})
	}
	return task, found, err
}

// Get returns the task with the given id.
func (a *App) Get(id string) (todo.Task, error) {
	return a.store.Get(id)
}

// Tasks returns every task in store order.
func (a *App) Tasks() []todo.Task {
	return a.store.Tasks()
}

// SetFilter normalizes and installs f.
func (a *App) SetFilter(f query.Filter) error {
	nf, err := f.Normalize()
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.filter = nf
	a.mu.Unlock()
	return nil
}

// Filter returns the current filter.
func (a *App) Filter() query.Filter {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.filter
}

// Visible returns the tasks passing the current filter.
func (a *App) Visible() []todo.Task {
	return query.Select(a.store.Tasks(), a.Filter())
}

// Categories returns the distinct tags in first-seen order.
func (a *App) Categories() []string {
	return a.store.ListCategories()
}

// Progress counts completed tasks across the whole collection, ignoring
// the filter.
func (a *App) Progress() query.Stats {
	return query.Progress(a.store.Tasks())
}

// Import replaces the collection with the JSON array read from r.
func (a *App) Import(r io.Reader) (int, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("read import: %w", err)
	}
	n, err := a.store.Import(data, a.importStrict)
	var parseErr *store.ImportParseError
	if errors.As(err, &parseErr) {
		return 0, err
	}
	a.record(logging.Event{Type: logging.EventImported, Count: n})
	return n, err
}

// Export writes the collection as indented JSON to w.
func (a *App) Export(w io.Writer) error {
	data, err := a.store.Export()
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

// ExportFile writes the export to tasks.json inside dir and returns its path.
func (a *App) ExportFile(dir string) (string, error) {
	data, err := a.store.Export()
	if err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, datadir.ExportFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}

// DarkMode reports the stored theme preference.
func (a *App) DarkMode() bool {
	v, ok, err := a.slot.Get(DarkModeKey)
	if err != nil {
		a.logger.Warn("failed to read theme preference", "err", err)
		return false
	}
	return ok && v == "1"
}

// SetDarkMode stores the theme preference.
func (a *App) SetDarkMode(on bool) error {
	v := "0"
	if on {
		v = "1"
	}
	if err := a.slot.Set(DarkModeKey, v); err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	return nil
}

// ToggleDarkMode flips the theme preference and returns the new value.
func (a *App) ToggleDarkMode() (bool, error) {
	on := !a.DarkMode()
	return on, a.SetDarkMode(on)
}

// NotificationPermission returns the effective permission: the forced value
// if one is configured, otherwise the stored one.
func (a *App) NotificationPermission() Permission {
	if a.force != "" {
		return a.force
	}
	v, ok, err := a.slot.Get(NotificationsKey)
	if err != nil {
		a.logger.Warn("failed to read notification permission", "err", err)
		return PermissionDefault
	}
	if !ok {
		return PermissionDefault
	}
	p, err := ParsePermission(v)
	if err != nil {
		return PermissionDefault
	}
	return p
}

// PermissionForced reports whether configuration pins the permission.
func (a *App) PermissionForced() bool {
	return a.force != ""
}

// SetNotificationPermission stores p and re-derives the armed reminders.
func (a *App) SetNotificationPermission(p Permission) error {
	p, err := ParsePermission(string(p))
	if err != nil {
		return err
	}
	if err := a.slot.Set(NotificationsKey, string(p)); err != nil {
		return fmt.Errorf("save notification permission: %w", err)
	}
	if a.force != "" {
		a.logger.Warn("notification permission is forced by configuration", "effective", a.force)
	}
	a.Reschedule()
	return nil
}

func (a *App) permissionGranted() bool {
	return a.NotificationPermission() == PermissionGranted
}

// Reschedule re-derives the armed reminders from the current collection and
// returns how many are armed.
func (a *App) Reschedule() int {
	a.store.Notify()
	return len(a.sched.Armed())
}

// Armed lists the reminders currently waiting to fire.
func (a *App) Armed() []reminder.Reminder {
	return a.sched.Armed()
}

// Refresh reloads the collection from the slot and re-derives reminders.
func (a *App) Refresh() error {
	return a.store.Reload()
}

// Close stops every reminder timer and closes the journal.
func (a *App) Close() error {
	a.sched.Stop()
	return a.journal.Close()
}
