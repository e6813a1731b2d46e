package hooks

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/nibzard/taskpad/internal/reminder"
)

func sampleReminder() reminder.Reminder {
	return reminder.Reminder{
		TaskID:      "T001",
		Title:       "Pay rent",
		Description: "transfer to landlord",
		DueDate:     "2025-04-01T09:00",
		Due:         time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC),
	}
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "hook.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestInvokeEmptyCommand(t *testing.T) {
	result, err := Invoke(context.Background(), Options{Reminder: sampleReminder()})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Ran {
		t.Error("expected Ran to be false")
	}
}

func TestInvokePassesArguments(t *testing.T) {
	script := writeScript(t, `for a in "$@"; do printf '[%s]' "$a"; done; printf '{%s}' "$TASKPAD_TASK_ID"`)
	var out bytes.Buffer

	result, err := Invoke(context.Background(), Options{
		Command:  script,
		Reminder: sampleReminder(),
		Stdout:   &out,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !result.Ran || result.ExitCode != 0 || result.TaskID != "T001" {
		t.Errorf("unexpected result %+v", result)
	}
	want := "[T001][Task Due: Pay rent][transfer to landlord\nDue: 2025-04-01T09:00][2025-04-01T09:00:00Z]{T001}"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestInvokeHookFailure(t *testing.T) {
	script := writeScript(t, "exit 42")

	result, err := Invoke(context.Background(), Options{Command: script, Reminder: sampleReminder()})
	if err == nil {
		t.Fatal("expected error for failed hook, got nil")
	}
	if !result.Ran {
		t.Error("expected Ran to be true")
	}
	if result.ExitCode != 42 {
		t.Errorf("expected ExitCode 42, got %d", result.ExitCode)
	}
}

func TestInvokeWithWorkDir(t *testing.T) {
	workDir := t.TempDir()
	script := writeScript(t, "pwd")
	var out bytes.Buffer

	if _, err := Invoke(context.Background(), Options{
		Command:  script,
		Reminder: sampleReminder(),
		WorkDir:  workDir,
		Stdout:   &out,
	}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	resolved, _ := filepath.EvalSymlinks(workDir)
	got := strings.TrimSpace(out.String())
	if got != workDir && got != resolved {
		t.Errorf("pwd = %q, want %q", got, workDir)
	}
}

func TestInvokeContextCancellation(t *testing.T) {
	script := writeScript(t, "sleep 10")
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	result, err := Invoke(ctx, Options{Command: script, Reminder: sampleReminder()})
	if err == nil {
		t.Fatal("expected error from cancelled hook")
	}
	if !result.Ran {
		t.Error("expected Ran to be true")
	}
	if time.Since(start) > 5*time.Second {
		t.Error("hook was not killed on cancellation")
	}
}

func TestArgsWithoutParsedDue(t *testing.T) {
	r := sampleReminder()
	r.Due = time.Time{}
	args := Args(r)
	if len(args) != 4 || args[3] != "2025-04-01T09:00" {
		t.Errorf("Args() = %q", args)
	}
}

func TestNotifierSwallowsFailures(t *testing.T) {
	script := writeScript(t, "exit 3")
	n := Notifier(script, "", nil)
	n.Notify(sampleReminder())

	Notifier("", "", nil).Notify(sampleReminder())
}

func TestExitCodeFromError(t *testing.T) {
	if code := exitCodeFromError(nil); code != 0 {
		t.Errorf("expected 0, got %d", code)
	}
	if code := exitCodeFromError(&os.PathError{Err: exec.ErrNotFound}); code != -1 {
		t.Errorf("expected -1, got %d", code)
	}
	cmd := exec.Command("sh", "-c", "exit 42")
	if err := cmd.Run(); err != nil {
		if code := exitCodeFromError(err); code != 42 {
			t.Errorf("expected 42, got %d", code)
		}
	}
}
