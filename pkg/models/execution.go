package models

import (
	"maps"
	"slices"
	"time"
)

// ExecutionStatus represents the lifecycle state of one workflow run.
// Running is the only non-terminal state; transitions out of it are one-way.
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusStopped   ExecutionStatus = "stopped"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

// Terminal reports whether the status permits no further transitions.
func (s ExecutionStatus) Terminal() bool {
	switch s {
	case ExecutionStatusStopped, ExecutionStatusCompleted, ExecutionStatusFailed:
		return true
	default:
		return false
	}
}

// Execution is one run of a workflow. It is owned exclusively by the
// orchestrator for its lifetime and mutated only by the orchestrator loop.
type Execution struct {
	ID           string          `json:"id"`
	WorkflowID   string          `json:"workflow_id"`
	Status       ExecutionStatus `json:"status"`
	Error        string          `json:"error,omitempty"`
	FailedNodeID string          `json:"failed_node_id,omitempty"`
	StartedAt    time.Time       `json:"started_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// LogEntry is one timestamped line in an execution's append-only log.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	NodeID    string    `json:"node_id,omitempty"`
	Message   string    `json:"message"`
}

// ExecutionContext is the mutable state scoped to one execution.
//
// Variables and NodeResults are monotonically additive during a run: nodes
// write into disjoint namespaces keyed by node id and no node may erase
// another node's output. Only the orchestrator appends.
type ExecutionContext struct {
	ID          string                `json:"id"`
	WorkflowID  string                `json:"workflow_id"`
	TriggerData map[string]any        `json:"trigger_data,omitempty"`
	Variables   map[string]any        `json:"variables,omitempty"`
	NodeResults map[string]NodeResult `json:"node_results"`
	Logs        []LogEntry            `json:"logs,omitempty"`
	Metadata    map[string]any        `json:"metadata,omitempty"`
	CurrentNode string                `json:"current_node,omitempty"`
}

// NewExecutionContext builds a context seeded with the workflow's declared
// variables and the trigger payload.
func NewExecutionContext(executionID, workflowID string, variables, triggerData map[string]any) *ExecutionContext {
	vars := make(map[string]any, len(variables))
	for k, v := range variables {
		vars[k] = v
	}

	return &ExecutionContext{
		ID:          executionID,
		WorkflowID:  workflowID,
		TriggerData: triggerData,
		Variables:   vars,
		NodeResults: make(map[string]NodeResult),
		Metadata:    make(map[string]any),
	}
}

// Clone returns a copy safe to read concurrently with further mutation of
// the original. Node output maps are shared; readers must not mutate them.
func (c *ExecutionContext) Clone() *ExecutionContext {
	clone := *c
	clone.Variables = maps.Clone(c.Variables)
	clone.NodeResults = maps.Clone(c.NodeResults)
	clone.Metadata = maps.Clone(c.Metadata)
	clone.Logs = slices.Clone(c.Logs)

	return &clone
}

// AppendLog records one entry in the execution log.
func (c *ExecutionContext) AppendLog(level, nodeID, message string) {
	c.Logs = append(c.Logs, LogEntry{
		Timestamp: time.Now().UTC(),
		Level:     level,
		NodeID:    nodeID,
		Message:   message,
	})
}

// LogsTail returns up to n of the most recent log entries.
func (c *ExecutionContext) LogsTail(n int) []LogEntry {
	if n <= 0 || n >= len(c.Logs) {
		return c.Logs
	}

	return c.Logs[len(c.Logs)-n:]
}
