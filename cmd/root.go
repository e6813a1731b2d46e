// Package cmd implements the CLI command structure for taskpad.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nibzard/taskpad/internal/app"
	"github.com/nibzard/taskpad/internal/config"
	"github.com/nibzard/taskpad/internal/datadir"
	"github.com/nibzard/taskpad/internal/logging"
	"github.com/nibzard/taskpad/internal/query"
	"github.com/nibzard/taskpad/internal/reminder"
	"github.com/nibzard/taskpad/internal/store"
	"github.com/nibzard/taskpad/internal/todo"
	"github.com/nibzard/taskpad/internal/ui"
	"github.com/nibzard/taskpad/internal/utils"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Output streams, replaced in tests.
var (
	stdin  io.Reader = os.Stdin
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// Run executes the taskpad CLI.
func Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("taskpad", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		printUsage(fs, stderr)
	}
	help := fs.Bool("help", false, "Show help")
	fs.BoolVar(help, "h", false, "Show help")
	showVersion := fs.Bool("version", false, "Show version")
	fs.BoolVar(showVersion, "v", false, "Show version")

	cws, err := config.LoadWithSources(fs, args)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := cws.Config
	if *help {
		printUsage(fs, stdout)
		return nil
	}
	if *showVersion {
		return versionCommand()
	}

	subcommand := "ls"
	remainingArgs := fs.Args()
	if len(remainingArgs) > 0 {
		subcommand = remainingArgs[0]
		remainingArgs = remainingArgs[1:]
	}

	switch subcommand {
	case "add":
		return addCommand(cfg, remainingArgs)
	case "edit":
		return editCommand(cfg, remainingArgs)
	case "rm":
		return rmCommand(cfg, remainingArgs)
	case "done":
		return doneCommand(cfg, remainingArgs)
	case "ls":
		return lsCommand(cfg, remainingArgs)
	case "categories":
		return categoriesCommand(cfg, remainingArgs)
	case "import":
		return importCommand(cfg, remainingArgs)
	case "export":
		return exportCommand(cfg, remainingArgs)
	case "watch":
		return watchCommand(ctx, cfg, remainingArgs)
	case "tui":
		return tuiCommand(ctx, cfg, remainingArgs)
	case "theme":
		return themeCommand(cfg, remainingArgs)
	case "notify":
		return notifyCommand(cfg, remainingArgs)
	case "doctor":
		return doctorCommand(cws, remainingArgs)
	case "tail":
		return tailCommand(ctx, cfg, remainingArgs)
	case "version":
		return versionCommand()
	case "help":
		printUsage(fs, stdout)
		return nil
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", subcommand)
		printUsage(fs, stderr)
		return fmt.Errorf("unknown command: %s", subcommand)
	}
}

func newLogger(cfg *config.Config) *log.Logger {
	return logging.NewConsoleFromConfig(stderr, cfg.LogLevel, cfg.LogFormat, cfg.LogTimestamps, cfg.LogCaller)
}

func openApp(cfg *config.Config) (*app.App, error) {
	a, err := app.OpenConfig(cfg, newLogger(cfg), nil)
	if err != nil {
		return nil, fmt.Errorf("opening task store: %w", err)
	}
	return a, nil
}

// parseArgs parses fs and allows flags to follow positional arguments, so
// `add "Buy milk" -due 2025-06-01` works. A literal "--" ends flag parsing.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if len(rest) == 0 {
			return positional, nil
		}
		// fs.Parse consumed a "--" if the remaining args follow one.
		if len(args) > len(rest) && args[len(args)-len(rest)-1] == "--" {
			return append(positional, rest...), nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

// resolveID maps an exact id or a unique id prefix to a task id.
func resolveID(a *app.App, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("task id is required")
	}
	var matches []string
	for _, t := range a.Tasks() {
		if t.ID == ref {
			return t.ID, nil
		}
		if strings.HasPrefix(t.ID, ref) {
			matches = append(matches, t.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", store.ErrNotFound, ref)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("ambiguous task id %q matches %d tasks", ref, len(matches))
	}
}

// addCommand creates a task.
func addCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("taskpad add", flag.ContinueOnError)
	fs.SetOutput(stderr)
	desc := fs.String("desc", "", "Task description")
	due := fs.String("due", "", "Due date (e.g. 2025-06-01T09:00)")
	priority := fs.String("priority", "low", "Priority (low|medium|high)")
	tags := fs.String("tags", "", "Comma-separated tags")

	positional, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	title := strings.Join(positional, " ")
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("usage: taskpad add <title> [-desc text] [-due date] [-priority p] [-tags a,b]")
	}
	p, err := todo.ParsePriority(*priority)
	if err != nil {
		return err
	}
	if *due != "" {
		if _, err := todo.ParseDueDate(*due, time.Local); err != nil {
			return err
		}
	}

	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	task, err := a.Create(todo.Draft{
		Title:       title,
		Description: *desc,
		DueDate:     *due,
		Priority:    p,
		Tags:        utils.SplitAndTrim(*tags, ","),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Added %s: %s\n", task.ID, task.Title)
	return nil
}

// editCommand applies the flags that were given to an existing task.
func editCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("taskpad edit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	title := fs.String("title", "", "New title")
	desc := fs.String("desc", "", "New description")
	due := fs.String("due", "", "New due date (empty clears it)")
	priority := fs.String("priority", "", "New priority (low|medium|high)")
	tags := fs.String("tags", "", "New comma-separated tags (empty clears them)")

	positional, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(positional) != 1 {
		return fmt.Errorf("usage: taskpad edit <id> [-title t] [-desc d] [-due date] [-priority p] [-tags a,b]")
	}

	var patch todo.Patch
	var perr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "title":
			patch.Title = title
		case "desc":
			patch.Description = desc
		case "due":
			if *due != "" {
				if _, err := todo.ParseDueDate(*due, time.Local); err != nil {
					perr = err
				}
			}
			patch.DueDate = due
		case "priority":
			p, err := todo.ParsePriority(*priority)
			if err != nil {
				perr = err
			}
			patch.Priority = &p
		case "tags":
			list := utils.SplitAndTrim(*tags, ",")
			patch.Tags = &list
		}
	})
	if perr != nil {
		return perr
	}
	if patch.IsZero() {
		return fmt.Errorf("nothing to change: pass at least one of -title, -desc, -due, -priority, -tags")
	}

	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := resolveID(a, positional[0])
	if err != nil {
		return err
	}
	task, _, err := a.Update(id, patch)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Updated %s: %s\n", task.ID, task.Title)
	return nil
}

// rmCommand deletes one or more tasks.
func rmCommand(cfg *config.Config, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: taskpad rm <id>...")
	}
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	for _, ref := range args {
		id, err := resolveID(a, ref)
		if err != nil {
			return err
		}
		if _, err := a.Delete(id); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Deleted %s\n", id)
	}
	return nil
}

// doneCommand toggles completion of a task.
func doneCommand(cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: taskpad done <id>")
	}
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := resolveID(a, args[0])
	if err != nil {
		return err
	}
	task, _, err := a.ToggleComplete(id)
	if err != nil {
		return err
	}
	state := "Reopened"
	if task.Completed {
		state = "Completed"
	}
	fmt.Fprintf(stdout, "%s %s: %s\n", state, task.ID, task.Title)
	return nil
}

// lsCommand lists the tasks passing the given filter in store order.
func lsCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("taskpad ls", flag.ContinueOnError)
	fs.SetOutput(stderr)
	status := fs.String("status", query.All, "Filter by status (all|completed|incomplete)")
	priority := fs.String("priority", query.All, "Filter by priority (all|low|medium|high)")
	category := fs.String("category", query.All, "Filter by tag")
	search := fs.String("search", "", "Case-insensitive keyword in title or description")
	verbose := fs.Bool("v", false, "Show more details")

	positional, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(positional) > 0 {
		return fmt.Errorf("unexpected arguments: %v", positional)
	}

	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.SetFilter(query.Filter{
		Status:   *status,
		Priority: *priority,
		Category: *category,
		Keyword:  *search,
	}); err != nil {
		return err
	}

	printTaskList(stdout, a.Visible(), *verbose, time.Now())
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, a.Progress())
	return nil
}

// categoriesCommand prints every distinct tag.
func categoriesCommand(cfg *config.Config, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %v", args)
	}
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	cats := a.Categories()
	if len(cats) == 0 {
		fmt.Fprintln(stdout, "No categories.")
		return nil
	}
	for _, c := range cats {
		fmt.Fprintln(stdout, c)
	}
	return nil
}

// importCommand replaces the collection with an exported file, or stdin
// when the path is "-".
func importCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("taskpad import", flag.ContinueOnError)
	fs.SetOutput(stderr)
	strict := fs.Bool("strict", cfg.ImportStrict, "Validate against the task schema")

	positional, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(positional) != 1 {
		return fmt.Errorf("usage: taskpad import <file|->")
	}
	cfg.ImportStrict = *strict

	var r io.Reader = stdin
	if positional[0] != "-" {
		f, err := os.Open(positional[0])
		if err != nil {
			return fmt.Errorf("opening import file: %w", err)
		}
		defer f.Close()
		r = f
	}

	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.Import(r)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Imported %d tasks\n", n)
	return nil
}

// exportCommand writes the collection to stdout or to tasks.json in a
// directory.
func exportCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("taskpad export", flag.ContinueOnError)
	fs.SetOutput(stderr)
	outDir := fs.String("o", "", "Write tasks.json into this directory instead of stdout")

	positional, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(positional) > 0 {
		return fmt.Errorf("unexpected arguments: %v", positional)
	}

	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if *outDir == "" {
		return a.Export(stdout)
	}
	path, err := a.ExportFile(*outDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Exported %d tasks to %s\n", len(a.Tasks()), path)
	return nil
}

// syncWriter serializes writes from reminder callbacks and the main loop.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// watchCommand keeps reminders armed and prints each one as it fires.
func watchCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("taskpad watch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	duration := fs.Duration("for", 0, "Stop after this long (0 = until interrupted)")

	if _, err := parseArgs(fs, args); err != nil {
		return err
	}

	out := &syncWriter{w: stdout}
	printer := reminder.NotifierFunc(func(r reminder.Reminder) {
		fmt.Fprintf(out, "[%s] %s\n", time.Now().Format("15:04:05"), r.Headline())
		for _, line := range strings.Split(r.Body(), "\n") {
			fmt.Fprintf(out, "  %s\n", line)
		}
	})
	logger := newLogger(cfg)
	a, err := app.OpenConfig(cfg, logger, printer)
	if err != nil {
		return fmt.Errorf("opening task store: %w", err)
	}
	defer a.Close()

	if perm := a.NotificationPermission(); perm != app.PermissionGranted {
		fmt.Fprintf(out, "Notifications are %s; no reminders will fire. Run 'taskpad notify on' to enable them.\n", perm)
	}
	armed := a.Armed()
	fmt.Fprintf(out, "Watching %d reminder(s). Press Ctrl+C to stop.\n", len(armed))
	for _, r := range armed {
		fmt.Fprintf(out, "  %s  %s\n", r.Due.Local().Format("2006-01-02 15:04"), r.Title)
	}

	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	var tick <-chan time.Time
	if interval := cfg.RefreshInterval(); interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case <-ctx.Done():
			if *duration > 0 && ctx.Err() == context.DeadlineExceeded {
				return nil
			}
			return ctx.Err()
		case <-tick:
			if err := a.Refresh(); err != nil {
				logger.Warn("refresh failed", "err", err)
			}
		}
	}
}

// tuiCommand launches the interactive task list.
func tuiCommand(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %v", args)
	}
	reminders := make(chan reminder.Reminder, 16)
	// Console logs would corrupt the alternate screen.
	a, err := app.OpenConfig(cfg, logging.Discard(), ui.Notifier(reminders))
	if err != nil {
		return fmt.Errorf("opening task store: %w", err)
	}
	defer a.Close()

	return ui.RunTUI(ctx, a, reminders, ui.WithRefreshInterval(cfg.RefreshInterval()))
}

// themeCommand shows or changes the dark mode preference.
func themeCommand(cfg *config.Config, args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("usage: taskpad theme [on|off|toggle]")
	}
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	action := "status"
	if len(args) == 1 {
		action = strings.ToLower(args[0])
	}
	switch action {
	case "status":
	case "on", "dark":
		err = a.SetDarkMode(true)
	case "off", "light":
		err = a.SetDarkMode(false)
	case "toggle":
		_, err = a.ToggleDarkMode()
	default:
		return fmt.Errorf("unknown theme action %q, must be one of: on, off, toggle", args[0])
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Dark mode: %s\n", onOff(a.DarkMode()))
	return nil
}

// notifyCommand shows or changes the stored notification permission.
func notifyCommand(cfg *config.Config, args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("usage: taskpad notify [on|off|reset|status]")
	}
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	action := "status"
	if len(args) == 1 {
		action = strings.ToLower(args[0])
	}
	switch action {
	case "status":
	case "on", "granted":
		err = a.SetNotificationPermission(app.PermissionGranted)
	case "off", "denied":
		err = a.SetNotificationPermission(app.PermissionDenied)
	case "reset", "default":
		err = a.SetNotificationPermission(app.PermissionDefault)
	default:
		return fmt.Errorf("unknown notify action %q, must be one of: on, off, reset, status", args[0])
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Notifications: %s", a.NotificationPermission())
	if a.PermissionForced() {
		fmt.Fprint(stdout, " (set by configuration)")
	}
	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "Upcoming reminders: %d\n", len(a.Armed()))
	return nil
}

// tailCommand tails the latest activity journal.
func tailCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("taskpad tail", flag.ContinueOnError)
	fs.SetOutput(stderr)
	follow := fs.Bool("f", false, "Follow the journal (like tail -f)")
	fs.BoolVar(follow, "follow", false, "Follow the journal (like tail -f)")
	n := fs.Int("n", 0, "Number of lines to show (0 = all)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	logDir := datadir.New(cfg.DataDir).Journal()
	logPath, err := logging.FindLatestLog(logDir)
	if err != nil {
		return fmt.Errorf("finding latest journal: %w", err)
	}
	if logPath == "" {
		fmt.Fprintln(stdout, "No journal files found.")
		return nil
	}

	fmt.Fprintf(stdout, "Tailing: %s\n", logPath)
	if *follow {
		fmt.Fprintln(stdout, "(Ctrl+C to stop)")
	}
	fmt.Fprintln(stdout)

	return logging.TailLog(ctx, stdout, logPath, *n, *follow)
}

// versionCommand prints version information.
func versionCommand() error {
	fmt.Fprintf(stdout, "taskpad version %s\n", Version)
	return nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// printUsage prints the usage message.
func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "Taskpad - A local task list with due-date reminders")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  taskpad [global options] [command] [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  add <title>        Add a task (-desc, -due, -priority, -tags)")
	fmt.Fprintln(w, "  edit <id>          Change a task (-title, -desc, -due, -priority, -tags)")
	fmt.Fprintln(w, "  rm <id>...         Delete tasks")
	fmt.Fprintln(w, "  done <id>          Toggle a task's completion")
	fmt.Fprintln(w, "  ls                 List tasks (default command)")
	fmt.Fprintln(w, "  categories         List every tag in use")
	fmt.Fprintln(w, "  import <file|->    Replace all tasks with an exported file")
	fmt.Fprintln(w, "  export [-o dir]    Export tasks as JSON")
	fmt.Fprintln(w, "  watch [-for d]     Print reminders as they come due")
	fmt.Fprintln(w, "  tui                Launch terminal UI")
	fmt.Fprintln(w, "  theme [on|off|toggle]       Show or set dark mode")
	fmt.Fprintln(w, "  notify [on|off|reset]       Show or set notification permission")
	fmt.Fprintln(w, "  doctor             Check configuration and stored data")
	fmt.Fprintln(w, "  tail [-n N] [-f]   Tail the latest activity journal")
	fmt.Fprintln(w, "  version            Show version information")
	fmt.Fprintln(w, "  help               Show this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global Options:")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Ls Options (use with 'ls' command):")
	fmt.Fprintln(w, "  -status string")
	fmt.Fprintln(w, "        Filter by status (all|completed|incomplete)")
	fmt.Fprintln(w, "  -priority string")
	fmt.Fprintln(w, "        Filter by priority (all|low|medium|high)")
	fmt.Fprintln(w, "  -category string")
	fmt.Fprintln(w, "        Filter by tag")
	fmt.Fprintln(w, "  -search string")
	fmt.Fprintln(w, "        Keyword in title or description")
	fmt.Fprintln(w, "  -v    Show more details")
}

// printTaskList prints tasks in the order given.
func printTaskList(w io.Writer, tasks []todo.Task, verbose bool, now time.Time) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks found.")
		return
	}
	for _, t := range tasks {
		printTask(w, t, verbose, now)
	}
}

// printTask prints a single task.
func printTask(w io.Writer, t todo.Task, verbose bool, now time.Time) {
	check := "[ ]"
	if t.Completed {
		check = "[x]"
	}
	line := fmt.Sprintf("  %s %s (%s) %s", check, shortID(t.ID), t.Priority, t.Title)
	if t.DueDate != "" {
		line += "  Due: " + t.DueDate
		if due, ok, err := t.Due(time.Local); err == nil && ok && !t.Completed && !due.After(now) {
			line += " (overdue)"
		}
	}
	for _, tag := range t.Tags {
		line += " #" + tag
	}
	fmt.Fprintln(w, line)

	if verbose {
		fmt.Fprintf(w, "      ID: %s\n", t.ID)
		if t.Description != "" {
			fmt.Fprintf(w, "      Description: %s\n", t.Description)
		}
		if !t.CreatedAt.IsZero() {
			fmt.Fprintf(w, "      Created: %s\n", t.CreatedAt.Local().Format("2006-01-02 15:04"))
		}
	}
}

// shortID abbreviates generated ids for listing; any unique prefix is
// accepted back by the id-taking commands.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
