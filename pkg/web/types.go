package web

import (
	"github.com/windlass-io/windlass/pkg/models"
)

// SubmitExecutionRequest starts one execution of an inline workflow
// definition.
type SubmitExecutionRequest struct {
	Workflow    *models.Workflow `json:"workflow"     validate:"required"`
	TriggerData map[string]any   `json:"trigger_data"`
}

// SubmitExecutionResponse acknowledges an accepted execution.
type SubmitExecutionResponse struct {
	ExecutionID string                 `json:"execution_id"`
	WorkflowID  string                 `json:"workflow_id"`
	Status      models.ExecutionStatus `json:"status"`
}

// NodeTypeInfo describes one registered node type.
type NodeTypeInfo struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Schema      map[string]any `json:"schema,omitempty"`
}
