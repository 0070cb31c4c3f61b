package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrExecutionNotFound means no live run and no snapshot exists for the id.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrExecutionRunning rejects a resume of an execution that never stopped.
	ErrExecutionRunning = errors.New("execution is still running")

	// ErrExecutionNotRunning rejects a cancel of an execution that already
	// reached a terminal state.
	ErrExecutionNotRunning = errors.New("execution is not running")

	// ErrNotResumable rejects a resume of a completed or failed execution.
	ErrNotResumable = errors.New("execution is not resumable")

	// ErrCancelled is the cancellation cause set by Cancel.
	ErrCancelled = errors.New("execution cancelled")

	// ErrExecutionTimeout is the cancellation cause set by the global
	// execution deadline.
	ErrExecutionTimeout = errors.New("execution timed out")
)

// Stop reasons recorded on a stopped execution.
const (
	StopReasonCancelled  = "cancelled"
	StopReasonTimeout    = "timeout"
	StopReasonStopSignal = "stop_signal"
)

// LoopCeilingError reports a loop node that hit its iteration ceiling before
// its stop condition became true.
type LoopCeilingError struct {
	NodeID        string
	MaxIterations int
}

func (e *LoopCeilingError) Error() string {
	return fmt.Sprintf("loop node '%s' reached the iteration ceiling of %d without satisfying its stop condition", e.NodeID, e.MaxIterations)
}

// IsLoopCeiling reports whether err is a loop iteration ceiling breach.
func IsLoopCeiling(err error) bool {
	var ceilingErr *LoopCeilingError

	return errors.As(err, &ceilingErr)
}
