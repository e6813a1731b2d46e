package app

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/nibzard/taskpad/internal/config"
	"github.com/nibzard/taskpad/internal/datadir"
	"github.com/nibzard/taskpad/internal/hooks"
	"github.com/nibzard/taskpad/internal/logging"
	"github.com/nibzard/taskpad/internal/reminder"
	"github.com/nibzard/taskpad/internal/storage"
)

// OpenConfig builds an App over the data directory named by cfg. The
// optional notifier is combined with the configured notify command.
func OpenConfig(cfg *config.Config, logger *log.Logger, notifier reminder.Notifier) (*App, error) {
	layout := datadir.New(cfg.DataDir)
	if err := layout.Ensure(); err != nil {
		return nil, err
	}
	slot, err := storage.OpenDir(layout.Slots(), storage.WithQuota(cfg.StorageQuotaBytes))
	if err != nil {
		return nil, err
	}

	var journal *logging.Journal
	if cfg.Journal {
		journal, err = logging.OpenJournal(layout.Journal())
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
	}

	force, err := ParsePermission(cfg.Notifications)
	if err != nil {
		journal.Close()
		return nil, err
	}
	if cfg.Notifications == config.NotificationsStored {
		force = ""
	}

	if cfg.NotifyCommand != "" {
		notifier = reminder.Multi(notifier, hooks.Notifier(cfg.NotifyCommand, cfg.ProjectRoot, logger))
	}

	a, err := New(Options{
		Slot:             slot,
		Logger:           logger,
		Journal:          journal,
		Notifier:         notifier,
		ForcePermission:  force,
		MaxReminderDelay: cfg.MaxReminderDelay.Std(),
		ImportStrict:     cfg.ImportStrict,
	})
	if err != nil {
		journal.Close()
		return nil, err
	}
	return a, nil
}
