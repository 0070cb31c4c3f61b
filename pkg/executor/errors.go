package executor

import (
	"errors"
	"fmt"
)

// ErrTimeout indicates a node attempt did not return within its bound.
var ErrTimeout = errors.New("node execution timed out")

// ErrConfigRender indicates node configuration templates could not be
// resolved against the execution context.
var ErrConfigRender = errors.New("node configuration rendering failed")

// ExecutionError wraps the runtime failure of one node after retries were
// exhausted.
type ExecutionError struct {
	NodeID   string
	Attempts int
	Err      error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("node '%s' failed after %d attempt(s): %v", e.NodeID, e.Attempts, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// IsTimeout checks if an error indicates a node timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
