// Package todo defines task records, their JSON codec and validation.
package todo

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nibzard/taskpad/internal/utils"
)

// Priority represents a task priority.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists the valid priorities from lowest to highest.
func Priorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh}
}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ParsePriority normalizes s to a Priority. An empty string yields
// PriorityLow.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if p == "" {
		return PriorityLow, nil
	}
	if !p.Valid() {
		return "", fmt.Errorf("invalid priority %q, must be one of: low, medium, high", s)
	}
	return p, nil
}

// Task represents a single task record.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     string    `json:"dueDate"`
	Priority    Priority  `json:"priority"`
	Tags        []string  `json:"tags"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"createdAt"`
}

// HasTag reports whether the task carries tag.
func (t *Task) HasTag(tag string) bool {
	for _, existing := range t.Tags {
		if existing == tag {
			return true
		}
	}
	return false
}

// Due parses the task's due date. ok is false when the task has none.
func (t *Task) Due(loc *time.Location) (due time.Time, ok bool, err error) {
	if strings.TrimSpace(t.DueDate) == "" {
		return time.Time{}, false, nil
	}
	due, err = ParseDueDate(t.DueDate, loc)
	if err != nil {
		return time.Time{}, false, err
	}
	return due, true, nil
}

// Clone returns a deep copy of the task.
func (t Task) Clone() Task {
	if t.Tags != nil {
		tags := make([]string, len(t.Tags))
		copy(tags, t.Tags)
		t.Tags = tags
	}
	return t
}

// ValidationError represents a validation error with context.
type ValidationError struct {
	Path string // JSON path to the error location
	Err  error  // Underlying error
}

func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

var errEmpty = errors.New("must not be empty")

// Draft holds the user-supplied fields of a task about to be created.
type Draft struct {
	Title       string
	Description string
	DueDate     string
	Priority    Priority
	Tags        []string
}

// Build validates the draft and returns the normalized task.
func (d Draft) Build(id string, createdAt time.Time) (Task, error) {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return Task{}, &ValidationError{Path: "title", Err: errEmpty}
	}
	priority := d.Priority
	if priority == "" {
		priority = PriorityLow
	}
	if !priority.Valid() {
		return Task{}, &ValidationError{Path: "priority", Err: fmt.Errorf("invalid priority %q", priority)}
	}
	return Task{
		ID:          id,
		Title:       title,
		Description: strings.TrimSpace(d.Description),
		DueDate:     strings.TrimSpace(d.DueDate),
		Priority:    priority,
		Tags:        utils.UniqueTrimmed(d.Tags),
		CreatedAt:   createdAt,
	}, nil
}

// Patch is a partial update. Nil fields are left untouched. There is no way
// to express a change of ID or CreatedAt.
type Patch struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	DueDate     *string   `json:"dueDate,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
	Completed   *bool     `json:"completed,omitempty"`
}

// DecodePatch decodes a JSON object into a Patch. Keys that name immutable
// fields, such as "id" and "createdAt", are ignored.
func DecodePatch(data []byte) (Patch, error) {
	var p Patch
	if err := json.Unmarshal(data, &p); err != nil {
		return Patch{}, fmt.Errorf("decode patch: %w", err)
	}
	return p, nil
}

// IsZero reports whether the patch changes nothing.
func (p Patch) IsZero() bool {
	return p.Title == nil && p.Description == nil && p.DueDate == nil &&
		p.Priority == nil && p.Tags == nil && p.Completed == nil
}

// ApplyTo validates the patch and merges it into t. On error t is left
// unchanged.
func (p Patch) ApplyTo(t *Task) error {
	var title string
	if p.Title != nil {
		title = strings.TrimSpace(*p.Title)
		if title == "" {
			return &ValidationError{Path: "title", Err: errEmpty}
		}
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return &ValidationError{Path: "priority", Err: fmt.Errorf("invalid priority %q", *p.Priority)}
	}

	if p.Title != nil {
		t.Title = title
	}
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}
	if p.DueDate != nil {
		t.DueDate = strings.TrimSpace(*p.DueDate)
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Tags != nil {
		t.Tags = utils.UniqueTrimmed(*p.Tags)
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	return nil
}
