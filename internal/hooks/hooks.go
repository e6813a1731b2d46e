// Package hooks invokes the external notify command for fired reminders.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nibzard/taskpad/internal/reminder"
)

// DefaultTimeout bounds a single notify command run by Notifier.
const DefaultTimeout = 30 * time.Second

// Options configures a hook invocation.
type Options struct {
	Command  string
	Reminder reminder.Reminder
	WorkDir  string
	Stdout   io.Writer
	Stderr   io.Writer
}

// Result captures the outcome of a hook invocation.
type Result struct {
	Ran      bool
	Command  []string
	ExitCode int
	TaskID   string
}

// Args returns the positional arguments passed to the notify command.
func Args(r reminder.Reminder) []string {
	due := r.DueDate
	if !r.Due.IsZero() {
		due = r.Due.Format(time.RFC3339)
	}
	return []string{r.TaskID, r.Headline(), r.Body(), due}
}

// Invoke runs the notify command as `<command> <task-id> <headline> <body> <due>`.
// An empty command is not an error; the hook simply does not run.
func Invoke(ctx context.Context, opts Options) (Result, error) {
	if opts.Command == "" {
		return Result{}, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cmd := exec.CommandContext(ctx, opts.Command, Args(opts.Reminder)...)
	if opts.WorkDir != "" {
		cmd.Dir = opts.WorkDir
	}
	cmd.Env = append(os.Environ(),
		"TASKPAD_TASK_ID="+opts.Reminder.TaskID,
		"TASKPAD_TASK_TITLE="+opts.Reminder.Title,
		"TASKPAD_TASK_DUE="+opts.Reminder.DueDate,
	)
	cmd.Stdout = opts.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = opts.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	err := cmd.Run()
	result := Result{
		Ran:      true,
		Command:  cmd.Args,
		ExitCode: exitCodeFromError(err),
		TaskID:   opts.Reminder.TaskID,
	}
	if err != nil {
		return result, fmt.Errorf("notify command failed: %w", err)
	}
	return result, nil
}

// Notifier adapts the notify command to a reminder.Notifier. Failures are
// logged; a reminder is never retried.
func Notifier(command, workDir string, logger *log.Logger) reminder.Notifier {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return reminder.NotifierFunc(func(r reminder.Reminder) {
		ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
		defer cancel()

		result, err := Invoke(ctx, Options{Command: command, Reminder: r, WorkDir: workDir})
		if err != nil {
			logger.Warn("notify command failed", "id", r.TaskID, "exit", result.ExitCode, "err", err)
			return
		}
		if result.Ran {
			logger.Debug("notify command ran", "id", r.TaskID, "command", command)
		}
	})
}

func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
