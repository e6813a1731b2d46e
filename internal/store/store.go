// Package store keeps the ordered task collection and mirrors it to a
// storage slot after every mutation.
package store

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/nibzard/taskpad/internal/query"
	"github.com/nibzard/taskpad/internal/storage"
	"github.com/nibzard/taskpad/internal/todo"
)

// TasksKey is the slot key holding the serialized collection.
const TasksKey = "tasks"

// ErrNotFound is returned by lookups of an unknown id. Mutators treat an
// unknown id as a no-op instead.
var ErrNotFound = errors.New("task not found")

// PersistenceError reports a failed write of the collection. The in-memory
// state has already been updated when it is returned.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist tasks: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Observer is told about the full collection after each mutation.
type Observer func(tasks []todo.Task)

// Store is the single owner of the task collection.
type Store struct {
	mu       sync.Mutex
	slot     storage.Slot
	tasks    []todo.Task
	now      func() time.Time
	newID    func() string
	observer Observer
	logger   *log.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithNow sets the time source used for createdAt.
func WithNow(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithIDGenerator replaces the uuid-based id generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		s.newID = gen
	}
}

// WithObserver registers the callback run after every mutation.
func WithObserver(o Observer) Option {
	return func(s *Store) {
		s.observer = o
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// Open creates a store and rehydrates it from slot. An absent key yields an
// empty collection.
func Open(slot storage.Slot, opts ...Option) (*Store, error) {
	s := &Store{
		slot:   slot,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}
	tasks, err := load(slot)
	if err != nil {
		return nil, err
	}
	s.tasks = tasks
	return s, nil
}

func load(slot storage.Slot) ([]todo.Task, error) {
	raw, ok, err := slot.Get(TasksKey)
	if err != nil {
		return nil, fmt.Errorf("read stored tasks: %w", err)
	}
	if !ok {
		return []todo.Task{}, nil
	}
	tasks, err := todo.UnmarshalTasks([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("parse stored tasks: %w", err)
	}
	return tasks, nil
}

// SetObserver replaces the mutation observer.
func (s *Store) SetObserver(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = o
}

// Notify calls the observer with the current collection under the store
// lock, so it is ordered with the mutations.
func (s *Store) Notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifyLocked()
}

// Reload replaces the in-memory collection with the slot contents and
// notifies the observer. Used when another process may have written.
func (s *Store) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks, err := load(s.slot)
	if err != nil {
		return err
	}
	s.tasks = tasks
	s.notifyLocked()
	return nil
}

// Create validates d, appends the new task and persists.
func (s *Store) Create(d todo.Draft) (todo.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, err := d.Build(s.uniqueIDLocked(), s.now().UTC().Truncate(time.Millisecond))
	if err != nil {
		return todo.Task{}, err
	}
	s.tasks = append(s.tasks, task)
	s.logger.Debug("task created", "id", task.ID, "title", task.Title)
	return task.Clone(), s.commitLocked()
}

// Update merges p into the task with the given id. found is false, with a
// nil error, when no such task exists.
func (s *Store) Update(id string, p todo.Patch) (task todo.Task, found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		s.logger.Debug("update of unknown task ignored", "id", id)
		return todo.Task{}, false, nil
	}
	if err := p.ApplyTo(&s.tasks[i]); err != nil {
		return todo.Task{}, true, err
	}
	s.logger.Debug("task updated", "id", id)
	return s.tasks[i].Clone(), true, s.commitLocked()
}

// Delete removes the task with the given id.
func (s *Store) Delete(id string) (found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		s.logger.Debug("delete of unknown task ignored", "id", id)
		return false, nil
	}
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	s.logger.Debug("task deleted", "id", id)
	return true, s.commitLocked()
}

// ToggleComplete flips the completed flag of the task with the given id.
func (s *Store) ToggleComplete(id string) (task todo.Task, found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		s.logger.Debug("toggle of unknown task ignored", "id", id)
		return todo.Task{}, false, nil
	}
	s.tasks[i].Completed = !s.tasks[i].Completed
	s.logger.Debug("task toggled", "id", id, "completed", s.tasks[i].Completed)
	return s.tasks[i].Clone(), true, s.commitLocked()
}

// ReplaceAll swaps in a new collection wholesale. Elements are taken as
// they are; validation is the caller's job.
func (s *Store) ReplaceAll(tasks []todo.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = cloneAll(tasks)
	s.logger.Debug("tasks replaced", "count", len(tasks))
	return s.commitLocked()
}

// Get returns a copy of the task with the given id.
func (s *Store) Get(id string) (todo.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return todo.Task{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.tasks[i].Clone(), nil
}

// Tasks returns a copy of the collection in store order.
func (s *Store) Tasks() []todo.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.tasks)
}

// Len returns the number of tasks.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// ListCategories returns every distinct tag in the collection.
func (s *Store) ListCategories() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return query.Categories(s.tasks)
}

func (s *Store) indexLocked(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) uniqueIDLocked() string {
	for {
		id := s.newID()
		if id != "" && s.indexLocked(id) < 0 {
			return id
		}
	}
}

// commitLocked writes the collection and then runs the observer. The
// observer runs even when the write fails: memory stays authoritative for
// the session.
func (s *Store) commitLocked() error {
	var perr error
	data, err := todo.MarshalCompact(s.tasks)
	if err == nil {
		err = s.slot.Set(TasksKey, string(data))
	}
	if err != nil {
		s.logger.Error("failed to persist tasks", "err", err)
		perr = &PersistenceError{Err: err}
	}
	s.notifyLocked()
	return perr
}

func (s *Store) notifyLocked() {
	if s.observer != nil {
		s.observer(cloneAll(s.tasks))
	}
}

func cloneAll(tasks []todo.Task) []todo.Task {
	out := make([]todo.Task, len(tasks))
	for i := range tasks {
		out[i] = tasks[i].Clone()
	}
	return out
}
