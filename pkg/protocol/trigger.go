package protocol

import (
	"context"
	"log/slog"
)

// TriggerCallback submits a new execution for the given workflow when a
// trigger source fires.
type TriggerCallback func(ctx context.Context, workflowID string, data map[string]any) error

// Trigger is an external event source that starts workflow executions.
type Trigger interface {
	Start(ctx context.Context, callback TriggerCallback) error
	Stop(ctx context.Context) error
	Validate() error
}

// TriggerFactory creates trigger instances from configuration.
type TriggerFactory interface {
	Create(config map[string]any, logger *slog.Logger) (Trigger, error)
	ID() string
}
