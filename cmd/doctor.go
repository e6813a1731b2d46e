package cmd

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/nibzard/taskpad/internal/config"
	"github.com/nibzard/taskpad/internal/datadir"
	"github.com/nibzard/taskpad/internal/logging"
	"github.com/nibzard/taskpad/internal/storage"
	"github.com/nibzard/taskpad/internal/store"
	"github.com/nibzard/taskpad/internal/todo"
	"github.com/nibzard/taskpad/internal/utils"
)

// doctorCommand checks configuration, the data directory and stored tasks.
// It reads the slot directly so it can report on data the store would
// refuse to open.
func doctorCommand(cws *config.ConfigWithSources, args []string) error {
	fs := flag.NewFlagSet("taskpad doctor", flag.ContinueOnError)
	fs.SetOutput(stderr)
	verbose := fs.Bool("v", false, "Verbose output")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	cfg := cws.Config
	w := stdout

	fmt.Fprintln(w, "Taskpad Doctor")
	fmt.Fprintln(w, "==============")
	fmt.Fprintln(w)

	allOK := true

	// Config
	fmt.Fprintln(w, "Config:")
	if len(cws.Files) == 0 {
		fmt.Fprintln(w, "  ✅ No config files (using defaults)")
	}
	for _, f := range cws.Files {
		fmt.Fprintf(w, "  ✅ Loaded %s\n", f)
	}
	for _, key := range cws.Unknown {
		fmt.Fprintf(w, "  ⚠️  Unknown key: %s\n", key)
	}
	if cfg.Notifications != config.NotificationsStored {
		fmt.Fprintf(w, "  ✅ Notifications forced: %s\n", cfg.Notifications)
	}
	if *verbose {
		keys := make([]string, 0, len(cws.Sources))
		for k := range cws.Sources {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "    %s (%s)\n", k, cws.Sources[k])
		}
	}
	fmt.Fprintln(w)

	// Data directory
	layout := datadir.New(cfg.DataDir)
	fmt.Fprintf(w, "Data directory: %s\n", layout.Root)
	info, err := os.Stat(layout.Root)
	dataDirOK := false
	switch {
	case os.IsNotExist(err):
		fmt.Fprintln(w, "  ⚠️  Not found (will be created on first use)")
	case err != nil:
		fmt.Fprintf(w, "  ❌ Error: %v\n", err)
		allOK = false
	case !info.IsDir():
		fmt.Fprintln(w, "  ❌ Error: path is not a directory")
		allOK = false
	default:
		fmt.Fprintln(w, "  ✅ OK")
		dataDirOK = true
	}
	fmt.Fprintln(w)

	// Stored tasks
	fmt.Fprintln(w, "Stored tasks:")
	if !dataDirOK {
		fmt.Fprintln(w, "  ⚠️  Nothing stored yet")
	} else if !checkStoredTasks(cfg, layout, *verbose) {
		allOK = false
	}
	fmt.Fprintln(w)

	// Notify command
	fmt.Fprintln(w, "Notify command:")
	if cfg.NotifyCommand == "" {
		fmt.Fprintln(w, "  ✅ Not configured (reminders are shown by watch and tui only)")
	} else if path, err := utils.ResolveExecutable(cfg.NotifyCommand); err != nil {
		fmt.Fprintf(w, "  ❌ %v\n", err)
		allOK = false
	} else {
		fmt.Fprintf(w, "  ✅ %s\n", path)
	}
	fmt.Fprintln(w)

	// Journal
	fmt.Fprintf(w, "Journal: %s\n", layout.Journal())
	if !cfg.Journal {
		fmt.Fprintln(w, "  ✅ Disabled")
	} else if latest, err := logging.FindLatestLog(layout.Journal()); err != nil {
		fmt.Fprintf(w, "  ❌ Error: %v\n", err)
		allOK = false
	} else if latest == "" {
		fmt.Fprintln(w, "  ⚠️  No runs recorded yet")
	} else if events, err := logging.ReadEvents(latest); err != nil {
		fmt.Fprintf(w, "  ❌ %v\n", err)
		allOK = false
	} else {
		fmt.Fprintf(w, "  ✅ Latest run %s (%d events)\n", latest, len(events))
	}
	fmt.Fprintln(w)

	if allOK {
		fmt.Fprintln(w, "✅ All checks passed!")
		return nil
	}
	fmt.Fprintln(w, "⚠️  Some checks failed. Taskpad may not function correctly.")
	return fmt.Errorf("doctor checks failed")
}

func checkStoredTasks(cfg *config.Config, layout datadir.Layout, verbose bool) bool {
	w := stdout
	slot, err := storage.OpenDir(layout.Slots(), storage.WithQuota(cfg.StorageQuotaBytes))
	if err != nil {
		fmt.Fprintf(w, "  ❌ Error: %v\n", err)
		return false
	}
	raw, ok, err := slot.Get(store.TasksKey)
	if err != nil {
		fmt.Fprintf(w, "  ❌ Error: %v\n", err)
		return false
	}
	if !ok {
		fmt.Fprintln(w, "  ⚠️  Nothing stored yet")
		return true
	}

	result := todo.Validate([]byte(raw))
	if !result.Valid {
		fmt.Fprintln(w, "  ❌ Validation failed:")
		for _, e := range result.Errors {
			fmt.Fprintf(w, "     - %v\n", e)
		}
		return false
	}
	fmt.Fprintln(w, "  ✅ Valid")

	if verbose {
		if keys, err := slot.Keys(); err == nil {
			var used int
			for _, k := range keys {
				if v, ok, err := slot.Get(k); err == nil && ok {
					used += len(k) + len(v)
				}
			}
			if cfg.StorageQuotaBytes > 0 {
				fmt.Fprintf(w, "  Storage: %d of %d bytes\n", used, cfg.StorageQuotaBytes)
			} else {
				fmt.Fprintf(w, "  Storage: %d bytes\n", used)
			}
		}
		if tasks, err := todo.UnmarshalTasks([]byte(raw)); err == nil {
			fmt.Fprintf(w, "  Tasks: %d\n", len(tasks))
			for _, t := range tasks {
				check := "[ ]"
				if t.Completed {
					check = "[x]"
				}
				fmt.Fprintf(w, "    - %s %s: %s\n", check, t.ID, t.Title)
			}
		}
	}
	return true
}
