package todo

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/nibzard/taskpad/internal/utils"
)

//go:embed task.schema.json
var taskSchemaSource string

const taskSchemaURL = "https://taskpad.local/task.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// ValidationResult contains validation results.
type ValidationResult struct {
	Valid  bool
	Errors []error
}

func (r *ValidationResult) add(err error) {
	r.Valid = false
	r.Errors = append(r.Errors, err)
}

// Err folds the result into a single error, or nil when valid.
func (r *ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	msgs := make([]string, 0, len(r.Errors))
	for _, err := range r.Errors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Errorf("%d validation error(s): %s", len(r.Errors), strings.Join(msgs, "; "))
}

func taskSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.AssertFormat = true
		if err := compiler.AddResource(taskSchemaURL, strings.NewReader(taskSchemaSource)); err != nil {
			schemaErr = fmt.Errorf("load task schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile(taskSchemaURL)
	})
	return schema, schemaErr
}

// Validate checks raw JSON against the task list schema and also reports
// duplicate ids, which the schema cannot express.
func Validate(data []byte) *ValidationResult {
	result := &ValidationResult{Valid: true}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		result.add(&ValidationError{Err: fmt.Errorf("invalid JSON: %w", err)})
		return result
	}

	s, err := taskSchema()
	if err != nil {
		result.add(err)
		return result
	}
	if err := s.Validate(doc); err != nil {
		appendSchemaErrors(result, err)
	}

	if items, ok := doc.([]interface{}); ok {
		seen := make(map[string]int, len(items))
		for i, item := range items {
			obj, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			id, _ := obj["id"].(string)
			if id == "" {
				continue
			}
			if first, dup := seen[id]; dup {
				result.add(&ValidationError{
					Path: fmt.Sprintf("[%d].id", i),
					Err:  fmt.Errorf("duplicate id %q (first used at [%d])", id, first),
				})
				continue
			}
			seen[id] = i
		}
	}

	return result
}

func appendSchemaErrors(result *ValidationResult, err error) {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		result.add(err)
		return
	}
	collectSchemaErrors(result, ve)
}

func collectSchemaErrors(result *ValidationResult, err *jsonschema.ValidationError) {
	if len(err.Causes) == 0 {
		result.add(&ValidationError{
			Path: utils.JSONPointerToPath(err.InstanceLocation),
			Err:  fmt.Errorf("%s", err.Message),
		})
		return
	}
	for _, cause := range err.Causes {
		collectSchemaErrors(result, cause)
	}
}
