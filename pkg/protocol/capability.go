// Package protocol defines the contracts between the engine and pluggable
// node implementations.
package protocol

import (
	"context"
	"log/slog"

	"github.com/windlass-io/windlass/pkg/models"
)

// StopSignalKey is a reserved output key. A capability that returns it with a
// true value asks the orchestrator to halt the execution in the stopped state
// (pause-for-approval semantics); the executor strips it from the output data
// and surfaces it as NodeResult.StopWorkflow.
const StopSignalKey = "__stop_workflow"

// Capability is one unit of executable work behind a node type.
//
// Implementations must honor ctx cancellation best-effort and must be safely
// retryable: the executor may invoke the same logical step more than once.
type Capability interface {
	Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error)
}

// CapabilityFactory creates capability instances and describes the node type.
// The configuration handed to Create has already had its templates rendered
// against the execution's variables.
type CapabilityFactory interface {
	// Create builds a capability instance for one invocation.
	Create(config map[string]any) (Capability, error)

	// ID returns the unique node type identifier.
	ID() string

	// Name returns the human-readable name for this node type.
	Name() string

	// Description returns a description of what this node type does.
	Description() string

	// Schema returns the JSON schema a node's raw configuration must satisfy.
	// A nil schema skips configuration validation.
	Schema() map[string]any
}
