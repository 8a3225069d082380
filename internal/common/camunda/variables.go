package camunda

import (
	"encoding/json"

	"financing-workers/internal/common/errors"
	"financing-workers/internal/common/validation"
	"financing-workers/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
)

// DecodeVariables checks the job's variables against activity's input schema
// when one is given, unmarshals them into v and validates v's struct tags.
// Every failure is a validation error.
func DecodeVariables(job entities.Job, activity *registry.Activity, v interface{}) error {
	if activity != nil {
		var vars map[string]interface{}
		if err := json.Unmarshal([]byte(job.Variables), &vars); err != nil {
			return errors.NewValidationError(errors.ErrCodeValidationFailed,
				"Job variables are not a JSON object", err.Error())
		}
		if err := activity.ValidateInput(vars); err != nil {
			return errors.NewValidationError(errors.ErrCodeValidationFailed,
				"Job variables do not match the input schema", err.Error())
		}
	}

	if err := json.Unmarshal([]byte(job.Variables), v); err != nil {
		return errors.NewValidationError(errors.ErrCodeValidationFailed, "parse input", err.Error())
	}
	return validation.Struct(v)
}
