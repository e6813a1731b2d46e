package store

import (
	"fmt"

	"github.com/nibzard/taskpad/internal/todo"
)

// ImportParseError reports an import payload that could not be accepted.
// The store is left untouched when it is returned.
type ImportParseError struct {
	Err error
}

func (e *ImportParseError) Error() string {
	return fmt.Sprintf("import: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *ImportParseError) Unwrap() error {
	return e.Err
}

// ParseImport decodes an exported task list. In strict mode the payload
// must also satisfy the task schema and carry unique ids.
func ParseImport(data []byte, strict bool) ([]todo.Task, error) {
	if strict {
		if err := todo.Validate(data).Err(); err != nil {
			return nil, &ImportParseError{Err: err}
		}
	}
	tasks, err := todo.UnmarshalTasks(data)
	if err != nil {
		return nil, &ImportParseError{Err: err}
	}
	return tasks, nil
}

// Import parses data and replaces the collection with it. A parse failure
// leaves the collection unchanged; a persistence failure does not.
func (s *Store) Import(data []byte, strict bool) (int, error) {
	tasks, err := ParseImport(data, strict)
	if err != nil {
		return 0, err
	}
	if err := s.ReplaceAll(tasks); err != nil {
		return len(tasks), err
	}
	return len(tasks), nil
}

// Export renders the collection in the two-space indented interchange
// format.
func (s *Store) Export() ([]byte, error) {
	return todo.MarshalIndented(s.Tasks())
}
