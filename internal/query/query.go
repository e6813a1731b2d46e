// Package query selects the visible subsequence of a task list.
package query

import (
	"fmt"
	"strings"

	"github.com/nibzard/taskpad/internal/todo"
)

// All matches every value of a filter dimension.
const All = "all"

// Status filter values.
const (
	StatusCompleted  = "completed"
	StatusIncomplete = "incomplete"
)

// Filter is the transient status/priority/category/keyword selection.
// Empty fields behave like All.
type Filter struct {
	Status   string
	Priority string
	Category string
	Keyword  string
}

// DefaultFilter selects everything.
func DefaultFilter() Filter {
	return Filter{Status: All, Priority: All, Category: All}
}

// Normalize lower-cases and trims the filter and maps empty fields to All.
// It rejects unknown status and priority values.
func (f Filter) Normalize() (Filter, error) {
	out := Filter{
		Status:   strings.ToLower(strings.TrimSpace(f.Status)),
		Priority: strings.ToLower(strings.TrimSpace(f.Priority)),
		Category: strings.TrimSpace(f.Category),
		Keyword:  strings.ToLower(strings.TrimSpace(f.Keyword)),
	}
	if out.Status == "" {
		out.Status = All
	}
	if out.Priority == "" {
		out.Priority = All
	}
	if out.Category == "" {
		out.Category = All
	}

	switch out.Status {
	case All, StatusCompleted, StatusIncomplete:
	default:
		return Filter{}, fmt.Errorf("invalid status filter %q, must be one of: all, completed, incomplete", f.Status)
	}
	if out.Priority != All && !todo.Priority(out.Priority).Valid() {
		return Filter{}, fmt.Errorf("invalid priority filter %q, must be one of: all, low, medium, high", f.Priority)
	}
	return out, nil
}

// Match reports whether t passes all four predicates.
func (f Filter) Match(t *todo.Task) bool {
	switch f.Status {
	case StatusCompleted:
		if !t.Completed {
			return false
		}
	case StatusIncomplete:
		if t.Completed {
			return false
		}
	}

	if f.Priority != "" && f.Priority != All && string(t.Priority) != f.Priority {
		return false
	}

	if f.Category != "" && f.Category != All && !t.HasTag(f.Category) {
		return false
	}

	if f.Keyword != "" {
		kw := strings.ToLower(f.Keyword)
		if !strings.Contains(strings.ToLower(t.Title), kw) &&
			!(t.Description != "" && strings.Contains(strings.ToLower(t.Description), kw)) {
			return false
		}
	}
	return true
}

// Select returns the tasks matching f, in their original order. The input
// is not modified.
func Select(tasks []todo.Task, f Filter) []todo.Task {
	result := make([]todo.Task, 0, len(tasks))
	for i := range tasks {
		if f.Match(&tasks[i]) {
			result = append(result, tasks[i])
		}
	}
	return result
}

// Categories returns the distinct tags across tasks in first-seen order.
func Categories(tasks []todo.Task) []string {
	seen := make(map[string]bool)
	cats := make([]string, 0)
	for _, t := range tasks {
		for _, tag := range t.Tags {
			if tag == "" || seen[tag] {
				continue
			}
			seen[tag] = true
			cats = append(cats, tag)
		}
	}
	return cats
}

// Stats summarizes completion progress.
type Stats struct {
	Completed int
	Total     int
}

// Progress counts completed tasks.
func Progress(tasks []todo.Task) Stats {
	s := Stats{Total: len(tasks)}
	for _, t := range tasks {
		if t.Completed {
			s.Completed++
		}
	}
	return s
}

// Percent returns the completed share in [0, 100].
func (s Stats) Percent() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Completed*100) / float64(s.Total)
}

// String renders the summary line shown under the list.
func (s Stats) String() string {
	return fmt.Sprintf("%d of %d tasks completed", s.Completed, s.Total)
}
