// Package cmd provides tests for CLI command handlers.
package cmd

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/nibzard/taskpad/internal/store"
	"github.com/nibzard/taskpad/internal/todo"
)

type cli struct {
	t       *testing.T
	dataDir string
	out     *bytes.Buffer
	errOut  *bytes.Buffer
}

// newCLI isolates the config sources, points the data dir at a temp dir
// and captures the output streams.
func newCLI(t *testing.T) *cli {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("APPDATA", filepath.Join(home, "AppData"))
	for _, field := range []string{
		"TASKPAD_STORAGE_QUOTA", "TASKPAD_NOTIFICATIONS", "TASKPAD_NOTIFY_COMMAND",
		"TASKPAD_MAX_REMINDER_DELAY", "TASKPAD_REFRESH_INTERVAL", "TASKPAD_IMPORT_STRICT",
		"TASKPAD_JOURNAL", "TASKPAD_LOG_LEVEL", "TASKPAD_LOG_FORMAT",
		"TASKPAD_LOG_TIMESTAMPS", "TASKPAD_LOG_CALLER",
	} {
		t.Setenv(field, "")
		os.Unsetenv(field)
	}
	c := &cli{
		t:       t,
		dataDir: filepath.Join(t.TempDir(), "data"),
		out:     &bytes.Buffer{},
		errOut:  &bytes.Buffer{},
	}
	t.Setenv("TASKPAD_DATA_DIR", c.dataDir)
	t.Chdir(t.TempDir())

	oldIn, oldOut, oldErr := stdin, stdout, stderr
	stdout, stderr = c.out, c.errOut
	t.Cleanup(func() {
		stdin, stdout, stderr = oldIn, oldOut, oldErr
	})
	return c
}

func (c *cli) run(args ...string) (string, error) {
	c.out.Reset()
	err := Run(context.Background(), args)
	return c.out.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	if err != nil {
		c.t.Fatalf("taskpad %s: %v\nstderr: %s", strings.Join(args, " "), err, c.errOut.String())
	}
	return out
}

// add creates a task and returns its id.
func (c *cli) add(args ...string) string {
	c.t.Helper()
	out := c.mustRun(append([]string{"add"}, args...)...)
	fields := strings.Fields(out)
	if len(fields) < 2 || fields[0] != "Added" {
		c.t.Fatalf("unexpected add output %q", out)
	}
	return strings.TrimSuffix(fields[1], ":")
}

func (c *cli) importFixture(json string) {
	c.t.Helper()
	path := filepath.Join(c.t.TempDir(), "fixture.json")
	if err := os.WriteFile(path, []byte(json), 0o644); err != nil {
		c.t.Fatal(err)
	}
	c.mustRun("import", path)
}

const fixture = `[
  {"id":"alpha1","title":"Alpha one","description":"","dueDate":"","priority":"low","tags":["x"],"completed":false,"createdAt":"2025-01-01T00:00:00.000Z"},
  {"id":"alpha2","title":"Alpha two","description":"","dueDate":"","priority":"medium","tags":[],"completed":true,"createdAt":"2025-01-01T00:00:00.000Z"},
  {"id":"beta","title":"Beta","description":"","dueDate":"","priority":"high","tags":["y"],"completed":false,"createdAt":"2025-01-01T00:00:00.000Z"}
]`

// TestRun tests the main Run function.
func TestRun(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"help flag", []string{"--help"}, "Usage:"},
		{"short help flag", []string{"-h"}, "Usage:"},
		{"help command", []string{"help"}, "Commands:"},
		{"version flag", []string{"--version"}, "taskpad version dev"},
		{"short version flag", []string{"-v"}, "taskpad version dev"},
		{"version command", []string{"version"}, "taskpad version dev"},
		{"default command lists", nil, "No tasks found."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCLI(t)
			out := c.mustRun(tt.args...)
			if !strings.Contains(out, tt.want) {
				t.Errorf("output %q missing %q", out, tt.want)
			}
		})
	}

	t.Run("unknown command returns error", func(t *testing.T) {
		c := newCLI(t)
		_, err := c.run("unknown-command")
		if err == nil || !strings.Contains(err.Error(), "unknown command") {
			t.Errorf("expected 'unknown command' error, got %v", err)
		}
	})

	t.Run("bad global flag value returns error", func(t *testing.T) {
		c := newCLI(t)
		if _, err := c.run("-notifications", "sometimes", "ls"); err == nil {
			t.Error("expected error for invalid -notifications")
		}
	})
}

func TestTaskLifecycle(t *testing.T) {
	c := newCLI(t)

	milk := c.add("Buy", "milk", "-priority", "high", "-tags", "home, errands", "-desc", "2 litres")
	c.add("Write report", "-due", "2030-01-01T09:00", "-tags", "work")

	out := c.mustRun("ls")
	for _, want := range []string{"Buy milk", "(high)", "#home #errands", "Write report", "Due: 2030-01-01T09:00", "0 of 2 tasks completed"} {
		if !strings.Contains(out, want) {
			t.Errorf("ls output missing %q:\n%s", want, out)
		}
	}

	if out := c.mustRun("done", milk); !strings.HasPrefix(out, "Completed") {
		t.Errorf("done output %q", out)
	}
	out = c.mustRun("ls", "-status", "completed")
	if !strings.Contains(out, "[x]") || !strings.Contains(out, "Buy milk") || strings.Contains(out, "Write report") {
		t.Errorf("completed filter:\n%s", out)
	}
	if !strings.Contains(out, "1 of 2 tasks completed") {
		t.Errorf("progress should count the whole collection:\n%s", out)
	}

	if out := c.mustRun("edit", milk, "-title", "Buy oat milk", "-priority", "low"); !strings.Contains(out, "Updated") {
		t.Errorf("edit output %q", out)
	}
	out = c.mustRun("ls", "-search", "OAT", "-v")
	if !strings.Contains(out, "Buy oat milk") || !strings.Contains(out, "Description: 2 litres") || strings.Contains(out, "Write report") {
		t.Errorf("search:\n%s", out)
	}

	if out := c.mustRun("categories"); out != "home\nerrands\nwork\n" {
		t.Errorf("categories = %q", out)
	}

	if out := c.mustRun("rm", milk); !strings.HasPrefix(out, "Deleted") {
		t.Errorf("rm output %q", out)
	}
	if out := c.mustRun("ls"); strings.Contains(out, "oat") {
		t.Errorf("deleted task still listed:\n%s", out)
	}
}

func TestAddValidation(t *testing.T) {
	c := newCLI(t)
	tests := []struct {
		name string
		args []string
	}{
		{"missing title", []string{"add"}},
		{"blank title", []string{"add", "  "}},
		{"bad priority", []string{"add", "x", "-priority", "urgent"}},
		{"bad due date", []string{"add", "x", "-due", "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.run(tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}
	if out := c.mustRun("ls"); !strings.Contains(out, "No tasks found.") {
		t.Errorf("failed adds created tasks:\n%s", out)
	}
}

func TestIDResolution(t *testing.T) {
	c := newCLI(t)
	c.importFixture(fixture)

	if _, err := c.run("done", "bet"); err != nil {
		t.Errorf("unique prefix: %v", err)
	}
	if _, err := c.run("done", "alpha1"); err != nil {
		t.Errorf("exact id: %v", err)
	}
	_, err := c.run("done", "alp")
	if err == nil || !strings.Contains(err.Error(), "ambiguous") {
		t.Errorf("expected ambiguous id error, got %v", err)
	}
	_, err = c.run("rm", "zzz")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := c.run("edit", "beta"); err == nil || !strings.Contains(err.Error(), "nothing to change") {
		t.Errorf("expected nothing-to-change error, got %v", err)
	}
	if _, err := c.run("edit", "beta", "-priority", "huge"); err == nil {
		t.Error("expected error for invalid priority")
	}
}

func TestImportExport(t *testing.T) {
	c := newCLI(t)
	c.importFixture(fixture)

	out := c.mustRun("export")
	if strings.HasSuffix(out, "\n") || !strings.HasPrefix(out, "[\n  {\n    \"id\": \"alpha1\"") {
		t.Errorf("unexpected export layout:\n%s", out)
	}
	tasks, err := todo.UnmarshalTasks([]byte(out))
	if err != nil || len(tasks) != 3 {
		t.Fatalf("export did not round-trip: %v (%d tasks)", err, len(tasks))
	}

	dir := t.TempDir()
	if out := c.mustRun("export", "-o", dir); !strings.Contains(out, "Exported 3 tasks") {
		t.Errorf("export -o output %q", out)
	}
	data, err := os.ReadFile(filepath.Join(dir, "tasks.json"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != strings.TrimSpace(c.mustRun("export")) {
		t.Error("tasks.json differs from stdout export")
	}

	stdin = strings.NewReader("[]")
	if out := c.mustRun("import", "-"); out != "Imported 0 tasks\n" {
		t.Errorf("stdin import output %q", out)
	}
}

func TestImportRejects(t *testing.T) {
	c := newCLI(t)
	c.importFixture(fixture)

	bad := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(bad, []byte(`{"id":"x"}`), 0o644)
	_, err := c.run("import", bad)
	var parseErr *store.ImportParseError
	if !errors.As(err, &parseErr) {
		t.Errorf("expected ImportParseError, got %v", err)
	}

	dup := filepath.Join(t.TempDir(), "dup.json")
	os.WriteFile(dup, []byte(`[{"id":"a","title":"x"},{"id":"a","title":"y"}]`), 0o644)
	if _, err := c.run("import", "-strict", dup); err == nil {
		t.Error("strict import accepted duplicate ids")
	}
	if _, err := c.run("import", filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	if out := c.mustRun("ls"); !strings.Contains(out, "1 of 3 tasks completed") {
		t.Errorf("rejected imports changed the collection:\n%s", out)
	}
}

func TestThemeCommand(t *testing.T) {
	c := newCLI(t)
	steps := []struct {
		args []string
		want string
	}{
		{[]string{"theme"}, "Dark mode: off\n"},
		{[]string{"theme", "on"}, "Dark mode: on\n"},
		{[]string{"theme", "toggle"}, "Dark mode: off\n"},
		{[]string{"theme", "toggle"}, "Dark mode: on\n"},
		{[]string{"theme"}, "Dark mode: on\n"},
	}
	for _, s := range steps {
		if out := c.mustRun(s.args...); out != s.want {
			t.Errorf("%v: got %q, want %q", s.args, out, s.want)
		}
	}
	if _, err := c.run("theme", "purple"); err == nil {
		t.Error("expected error for unknown theme action")
	}
}

func TestNotifyCommand(t *testing.T) {
	c := newCLI(t)
	due := time.Now().Add(48 * time.Hour).Format("2006-01-02T15:04")
	c.add("Dentist", "-due", due)

	out := c.mustRun("notify")
	if !strings.Contains(out, "Notifications: default") || !strings.Contains(out, "Upcoming reminders: 0") {
		t.Errorf("initial status:\n%s", out)
	}
	out = c.mustRun("notify", "on")
	if !strings.Contains(out, "Notifications: granted") || !strings.Contains(out, "Upcoming reminders: 1") {
		t.Errorf("after on:\n%s", out)
	}
	out = c.mustRun("notify", "off")
	if !strings.Contains(out, "Notifications: denied") || !strings.Contains(out, "Upcoming reminders: 0") {
		t.Errorf("after off:\n%s", out)
	}
	out = c.mustRun("-notifications", "granted", "notify")
	if !strings.Contains(out, "granted (set by configuration)") {
		t.Errorf("forced permission:\n%s", out)
	}
	if _, err := c.run("notify", "maybe"); err == nil {
		t.Error("expected error for unknown notify action")
	}
}

func TestWatchCommand(t *testing.T) {
	c := newCLI(t)
	c.add("Later", "-due", time.Now().Add(48*time.Hour).Format("2006-01-02T15:04"))

	out := c.mustRun("watch", "-for", "20ms")
	if !strings.Contains(out, "Notifications are default") || !strings.Contains(out, "Watching 0 reminder(s)") {
		t.Errorf("watch without permission:\n%s", out)
	}

	c.mustRun("notify", "on")
	out = c.mustRun("watch", "-for", "20ms")
	if !strings.Contains(out, "Watching 1 reminder(s)") || !strings.Contains(out, "Later") {
		t.Errorf("watch with permission:\n%s", out)
	}
}

func TestWatchPrintsFiredReminder(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for a real timer")
	}
	c := newCLI(t)
	c.mustRun("notify", "on")
	c.add("Ping", "-desc", "ring ring", "-due", time.Now().Add(time.Second).Format(time.RFC3339Nano))

	out := c.mustRun("watch", "-for", "2500ms")
	if !strings.Contains(out, "Task Due: Ping") || !strings.Contains(out, "  ring ring") {
		t.Errorf("reminder not printed:\n%s", out)
	}
}

func TestDoctorCommand(t *testing.T) {
	t.Run("fresh data dir passes", func(t *testing.T) {
		c := newCLI(t)
		out := c.mustRun("doctor")
		if !strings.Contains(out, "All checks passed") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("reports stored tasks and journal", func(t *testing.T) {
		c := newCLI(t)
		c.add("checked")
		out := c.mustRun("doctor", "-v")
		for _, want := range []string{"✅ Valid", "Tasks: 1", "(1 events)", "data_dir (environment)"} {
			if !strings.Contains(out, want) {
				t.Errorf("doctor output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("flags unknown config keys", func(t *testing.T) {
		c := newCLI(t)
		os.WriteFile("taskpad.toml", []byte("theme = \"dark\"\n"), 0o644)
		out := c.mustRun("doctor")
		if !strings.Contains(out, "Unknown key: theme") {
			t.Errorf("unknown key not reported:\n%s", out)
		}
	})

	t.Run("fails on corrupt tasks", func(t *testing.T) {
		c := newCLI(t)
		slots := filepath.Join(c.dataDir, "slots")
		os.MkdirAll(slots, 0o700)
		os.WriteFile(filepath.Join(slots, store.TasksKey), []byte(`[{"id":"a","title":""}]`), 0o600)
		out, err := c.run("doctor")
		if err == nil || !strings.Contains(out, "Validation failed") {
			t.Errorf("expected validation failure, err=%v:\n%s", err, out)
		}
	})

	t.Run("fails on missing notify command", func(t *testing.T) {
		c := newCLI(t)
		_, err := c.run("-notify-command", filepath.Join(t.TempDir(), "nope"), "doctor")
		if err == nil {
			t.Error("expected doctor to fail")
		}
	})
}

func TestTailCommand(t *testing.T) {
	c := newCLI(t)
	if out := c.mustRun("tail"); !strings.Contains(out, "No journal files found.") {
		t.Errorf("empty journal: %q", out)
	}

	id := c.add("journaled")
	c.mustRun("ls")
	out := c.mustRun("tail")
	if !strings.Contains(out, `"type":"created"`) || !strings.Contains(out, id) {
		t.Errorf("tail output:\n%s", out)
	}

	c.mustRun("done", id)
	out = c.mustRun("tail", "-n", "1")
	if !strings.Contains(out, `"type":"toggled"`) || strings.Contains(out, `"type":"created"`) {
		t.Errorf("tail -n 1 output:\n%s", out)
	}
}

func TestJournalCanBeDisabled(t *testing.T) {
	c := newCLI(t)
	c.add("loud")
	c.mustRun("-journal=false", "add", "quiet")
	if entries, _ := os.ReadDir(filepath.Join(c.dataDir, "journal")); len(entries) != 1 {
		t.Errorf("expected only the first run to be journaled, got %d files", len(entries))
	}
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantPos  []string
		wantFlag string
	}{
		{"flags after title", []string{"Buy", "milk", "-due", "x"}, []string{"Buy", "milk"}, "x"},
		{"flags before title", []string{"-due", "x", "Buy"}, []string{"Buy"}, "x"},
		{"double dash ends flags", []string{"a", "--", "-due", "y"}, []string{"a", "-due", "y"}, ""},
		{"no args", nil, nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := flag.NewFlagSet("test", flag.ContinueOnError)
			due := fs.String("due", "", "")
			got, err := parseArgs(fs, tt.args)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, tt.wantPos) {
				t.Errorf("positional = %q, want %q", got, tt.wantPos)
			}
			if *due != tt.wantFlag {
				t.Errorf("due = %q, want %q", *due, tt.wantFlag)
			}
		})
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("0123456789abcdef"); got != "01234567" {
		t.Errorf("got %q", got)
	}
	if got := shortID("beta"); got != "beta" {
		t.Errorf("got %q", got)
	}
}
