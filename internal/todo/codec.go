package todo

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// MarshalIndented renders tasks the way the export file is written: a JSON
// array with 2-space indentation, no HTML escaping and no trailing newline.
func MarshalIndented(tasks []Task) ([]byte, error) {
	return marshal(tasks, "  ")
}

// MarshalCompact renders tasks as a single-line JSON array, the format kept
// in the storage slot.
func MarshalCompact(tasks []Task) ([]byte, error) {
	return marshal(tasks, "")
}

func marshal(tasks []Task, indent string) ([]byte, error) {
	if tasks == nil {
		tasks = []Task{}
	}
	// Records decoded without a tags field are written with an empty list,
	// which the task schema requires.
	for i := range tasks {
		if tasks[i].Tags == nil {
			tasks = withEmptyTags(tasks)
			break
		}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(tasks); err != nil {
		return nil, fmt.Errorf("marshal tasks: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func withEmptyTags(tasks []Task) []Task {
	out := make([]Task, len(tasks))
	copy(out, tasks)
	for i := range out {
		if out[i].Tags == nil {
			out[i].Tags = []string{}
		}
	}
	return out
}

// UnmarshalTasks decodes a JSON array of task records. Elements are accepted
// as long as their fields have the right JSON types; missing fields take
// their zero values and unknown fields are ignored.
func UnmarshalTasks(data []byte) ([]Task, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, fmt.Errorf("expected a JSON array of tasks, got %s", typeErr.Value)
		}
		return nil, fmt.Errorf("parse tasks: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("expected a JSON array of tasks, got null")
	}

	tasks := make([]Task, 0, len(raw))
	for i, elem := range raw {
		var t Task
		if err := json.Unmarshal(elem, &t); err != nil {
			return nil, &ValidationError{Path: fmt.Sprintf("[%d]", i), Err: err}
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}
