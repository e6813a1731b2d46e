// Package reminder arms one-shot timers for upcoming task due dates and
// hands each firing to a Notifier.
//
// The armed set is always derived from scratch: every Reschedule cancels
// what was armed before and arms again from the task list it is given.
package reminder

import (
	"io"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nibzard/taskpad/internal/clock"
	"github.com/nibzard/taskpad/internal/todo"
)

// DefaultMaxDelay is the largest delay a reminder may be armed for.
// Reminders further out are picked up by a later Reschedule.
const DefaultMaxDelay = 2147483647 * time.Millisecond

// Reminder is the event delivered when a task comes due.
type Reminder struct {
	TaskID      string
	Title       string
	Description string
	DueDate     string
	Due         time.Time
}

// Headline is the notification title.
func (r Reminder) Headline() string {
	return "Task Due: " + r.Title
}

// Body is the notification text. The description line is omitted when
// there is no description.
func (r Reminder) Body() string {
	body := "Due: " + r.DueDate
	if r.Description != "" {
		body = r.Description + "\n" + body
	}
	return body
}

// Permission reports whether notifications may be shown.
type Permission interface {
	Granted() bool
}

// PermissionFunc adapts a function to Permission.
type PermissionFunc func() bool

// Granted implements Permission.
func (f PermissionFunc) Granted() bool {
	return f()
}

// Notifier delivers a fired reminder.
type Notifier interface {
	Notify(Reminder)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Reminder)

// Notify implements Notifier.
func (f NotifierFunc) Notify(r Reminder) {
	f(r)
}

// Multi fans a reminder out to several notifiers in order.
func Multi(notifiers ...Notifier) Notifier {
	return NotifierFunc(func(r Reminder) {
		for _, n := range notifiers {
			if n != nil {
				n.Notify(r)
			}
		}
	})
}

// Options configures a Scheduler.
type Options struct {
	Clock      clock.Clock
	Permission Permission
	Notifier   Notifier
	Logger     *log.Logger
	// MaxDelay defaults to DefaultMaxDelay when zero.
	MaxDelay time.Duration
	// Location is used for due dates without a zone. Defaults to time.Local.
	Location *time.Location
}

type handle struct {
	timer    clock.Timer
	reminder Reminder
}

// Scheduler owns the armed reminder timers.
type Scheduler struct {
	mu       sync.Mutex
	clock    clock.Clock
	perm     Permission
	notifier Notifier
	logger   *log.Logger
	maxDelay time.Duration
	loc      *time.Location

	seq   uint64
	armed map[uint64]*handle
}

// New builds a Scheduler. A nil Permission is treated as denied.
func New(opts Options) *Scheduler {
	s := &Scheduler{
		clock:    opts.Clock,
		perm:     opts.Permission,
		notifier: opts.Notifier,
		logger:   opts.Logger,
		maxDelay: opts.MaxDelay,
		loc:      opts.Location,
		armed:    make(map[uint64]*handle),
	}
	if s.clock == nil {
		s.clock = clock.Real()
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard)
	}
	if s.maxDelay <= 0 {
		s.maxDelay = DefaultMaxDelay
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	return s
}

// Reschedule cancels every armed reminder and arms one for each incomplete
// task whose due date lies strictly between now and now+MaxDelay. It returns
// the number of reminders armed.
func (s *Scheduler) Reschedule(tasks []todo.Task, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked()

	if s.perm == nil || !s.perm.Granted() {
		s.logger.Debug("notifications not granted, no reminders armed")
		return 0
	}

	for i := range tasks {
		t := &tasks[i]
		if t.Completed {
			continue
		}
		due, ok, err := t.Due(s.loc)
		if err != nil {
			s.logger.Debug("skipping malformed due date", "id", t.ID, "dueDate", t.DueDate, "err", err)
			continue
		}
		if !ok {
			continue
		}
		delay := due.Sub(now)
		if delay <= 0 || delay >= s.maxDelay {
			continue
		}
		s.armLocked(Reminder{
			TaskID:      t.ID,
			Title:       t.Title,
			Description: t.Description,
			DueDate:     t.DueDate,
			Due:         due,
		}, delay)
	}
	s.logger.Debug("reminders rescheduled", "armed", len(s.armed))
	return len(s.armed)
}

func (s *Scheduler) armLocked(r Reminder, delay time.Duration) {
	s.seq++
	id := s.seq
	h := &handle{reminder: r}
	s.armed[id] = h
	h.timer = s.clock.AfterFunc(delay, func() { s.fire(id) })
}

func (s *Scheduler) fire(id uint64) {
	s.mu.Lock()
	h, ok := s.armed[id]
	if ok {
		delete(s.armed, id)
	}
	s.mu.Unlock()

	// A handle missing here was cancelled by a later Reschedule or Stop.
	if !ok {
		return
	}
	s.logger.Info("reminder fired", "id", h.reminder.TaskID, "title", h.reminder.Title)
	if s.notifier != nil {
		s.notifier.Notify(h.reminder)
	}
}

func (s *Scheduler) cancelLocked() {
	for id, h := range s.armed {
		if h.timer != nil {
			h.timer.Stop()
		}
		delete(s.armed, id)
	}
}

// Armed returns the currently armed reminders ordered by due time.
func (s *Scheduler) Armed() []Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Reminder, 0, len(s.armed))
	for _, h := range s.armed {
		out = append(out, h.reminder)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Due.Equal(out[j].Due) {
			return out[i].TaskID < out[j].TaskID
		}
		return out[i].Due.Before(out[j].Due)
	})
	return out
}

// Stop cancels every armed reminder.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
}
