package plan

import (
	"errors"
	"strings"
)

// ValidationError reports every structural violation found in a workflow
// graph. Validation is all-or-nothing: the engine never attempts partial
// execution of an invalid graph.
type ValidationError struct {
	WorkflowID string
	Violations []string
}

func (e *ValidationError) Error() string {
	return "workflow " + e.WorkflowID + " validation failed: " + strings.Join(e.Violations, "; ")
}

// IsValidationError checks if an error is a workflow validation failure.
func IsValidationError(err error) bool {
	var validationErr *ValidationError

	return errors.As(err, &validationErr)
}
