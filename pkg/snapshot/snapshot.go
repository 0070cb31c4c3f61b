// Package snapshot persists and restores execution state so runs can be
// interrupted and resumed.
package snapshot

import (
	"time"

	"github.com/windlass-io/windlass/pkg/models"
)

// Snapshot is a resumable serialization of one execution at a point in time.
// It carries exactly what the orchestrator needs to re-enter its loop at
// CurrentNode instead of restarting from the first node.
type Snapshot struct {
	ExecutionID  string                       `json:"execution_id"`
	WorkflowID   string                       `json:"workflow_id"`
	Workflow     *models.Workflow             `json:"workflow,omitempty"`
	Status       models.ExecutionStatus       `json:"status"`
	Error        string                       `json:"error,omitempty"`
	FailedNodeID string                       `json:"failed_node_id,omitempty"`
	CurrentNode  string                       `json:"current_node,omitempty"`
	TriggerData  map[string]any               `json:"trigger_data,omitempty"`
	Variables    map[string]any               `json:"variables,omitempty"`
	NodeResults  map[string]models.NodeResult `json:"node_results"`
	Skipped      []string                     `json:"skipped,omitempty"`
	Logs         []models.LogEntry            `json:"logs,omitempty"`
	StartedAt    time.Time                    `json:"started_at"`
	CompletedAt  *time.Time                   `json:"completed_at,omitempty"`
	SavedAt      time.Time                    `json:"saved_at"`
}
