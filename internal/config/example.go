package config

// ExampleConfig returns an example configuration showing all available options.
func ExampleConfig() string {
	return `# taskpad configuration file
# Values can be overridden by TASKPAD_* environment variables or CLI flags

# Where tasks, preferences and the activity journal live
data_dir = "~/.taskpad"

# Total bytes the storage slot may hold (0 disables the limit)
storage_quota_bytes = 5242880

# Force the notification permission: "granted", "denied" or "default".
# Leave unset to use the choice made with "taskpad notify on|off".
# notifications = "granted"

# Command run for every fired reminder with
#   <task-id> <headline> <body> <due>
# notify_command = "/usr/local/bin/notify-send-wrapper"

# Reminders further out than this are armed on a later refresh
max_reminder_delay = "596h31m23.647s"

# How often "watch" and "tui" reload tasks and re-arm reminders (seconds)
refresh_interval_seconds = 30

# Validate imports against the task schema and reject duplicate ids
import_strict = false

# Record task activity as JSONL under <data_dir>/journal
journal = true

# Logging
log_level = "info"
log_format = "text"
log_timestamps = false
log_caller = false
`
}
