package camunda

import (
	"strings"

	"venue-signals/internal/common/errors"
	"venue-signals/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/goccy/go-json"
)

// DecodeVariables validates the job variables against schema and decodes them into out.
func DecodeVariables(job entities.Job, schema *validation.Schema, out interface{}) error {
	raw := job.GetVariables()
	if strings.TrimSpace(raw) == "" {
		raw = "{}"
	}

	var variables map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &variables); err != nil {
		return errors.NewValidationError("variables", err.Error())
	}

	if schema != nil {
		result := schema.ValidateGo(variables)
		if !result.Valid {
			field := "variables"
			if len(result.Errors) > 0 {
				field = result.Errors[0].Field
			}
			return errors.NewValidationError(field, strings.Join(result.GetErrorMessages(), "; "))
		}
	}

	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return errors.NewValidationError("variables", err.Error())
	}
	return nil
}
