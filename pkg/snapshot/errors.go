package snapshot

import (
	"errors"
	"fmt"
)

// ErrSnapshotNotFound indicates no snapshot exists for the given execution,
// either because it was never saved or because its retention TTL expired.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotError wraps store failures with operation context.
type SnapshotError struct {
	Op          string
	ExecutionID string
	Err         error
}

func (e *SnapshotError) Error() string {
	return fmt.Sprintf("%s operation failed for execution %s: %v", e.Op, e.ExecutionID, e.Err)
}

func (e *SnapshotError) Unwrap() error { return e.Err }

func (e *SnapshotError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsSnapshotNotFound checks if an error indicates a missing snapshot.
func IsSnapshotNotFound(err error) bool {
	return errors.Is(err, ErrSnapshotNotFound)
}
