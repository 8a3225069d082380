package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a registry document.
func Parse(data []byte) (*ActivityRegistry, error) {
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse activity registry: %w", err)
	}
	return &reg, nil
}

// FindByTaskType returns the activity bound to a Zeebe task type.
func (r *ActivityRegistry) FindByTaskType(taskType string) (*Activity, bool) {
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i], true
		}
	}
	return nil, false
}

// SchemaError lists every schema violation of a job's variables.
type SchemaError struct {
	TaskType string
	Problems []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("input for %s does not match schema: %s", e.TaskType, strings.Join(e.Problems, "; "))
}

// ValidateInput checks variables against the activity's input schema. An
// activity without a schema accepts anything.
func (a *Activity) ValidateInput(variables map[string]interface{}) error {
	if len(a.InputSchema) == 0 {
		return nil
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(a.InputSchema),
		gojsonschema.NewGoLoader(variables),
	)
	if err != nil {
		return fmt.Errorf("input schema of %s: %w", a.TaskType, err)
	}
	if result.Valid() {
		return nil
	}
	se := &SchemaError{TaskType: a.TaskType}
	for _, desc := range result.Errors() {
		se.Problems = append(se.Problems, desc.String())
	}
	return se
}

// Check reports structural problems: missing fields, duplicate ids or task
// types, and input schemas that do not compile.
func (r *ActivityRegistry) Check() []error {
	var problems []error
	ids := make(map[string]bool)
	taskTypes := make(map[string]bool)
	for _, a := range r.Activities {
		if a.ID == "" {
			problems = append(problems, fmt.Errorf("activity missing required field: ID"))
			continue
		}
		if ids[a.ID] {
			problems = append(problems, fmt.Errorf("duplicate activity ID: %s", a.ID))
		}
		ids[a.ID] = true

		if a.DisplayName == "" {
			problems = append(problems, fmt.Errorf("activity %s missing required field: DisplayName", a.ID))
		}
		if a.Category == "" {
			problems = append(problems, fmt.Errorf("activity %s missing required field: Category", a.ID))
		} else if !knownCategories[a.Category] {
			problems = append(problems, fmt.Errorf("activity %s has unknown category %q", a.ID, a.Category))
		}
		if _, err := a.JobTimeout(); err != nil {
			problems = append(problems, err)
		}
		if a.TaskType == "" {
			problems = append(problems, fmt.Errorf("activity %s missing required field: TaskType", a.ID))
		} else if taskTypes[a.TaskType] {
			problems = append(problems, fmt.Errorf("duplicate task type: %s", a.TaskType))
		}
		taskTypes[a.TaskType] = true

		if len(a.InputSchema) > 0 {
			if _, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(a.InputSchema)); err != nil {
				problems = append(problems, fmt.Errorf("activity %s has an invalid input schema: %w", a.ID, err))
			}
		}
	}
	if len(r.Activities) == 0 {
		problems = append(problems, fmt.Errorf("registry contains no activities"))
	}
	return problems
}
