package models

import "time"

// Control-flow node types interpreted directly by the orchestrator. Every
// other type resolves to a registered capability.
const (
	NodeTypeTrigger   = "trigger"
	NodeTypeCondition = "condition"
	NodeTypeSwitch    = "switch"
	NodeTypeMerge     = "merge"
	NodeTypeLoop      = "loop"
)

// ErrorPolicy decides what the orchestrator does when a node's retries are
// exhausted.
type ErrorPolicy string

const (
	ErrorPolicyStop     ErrorPolicy = "stop"     // Fail the whole execution
	ErrorPolicyContinue ErrorPolicy = "continue" // Log and proceed as if succeeded with empty output
	ErrorPolicyBranch   ErrorPolicy = "branch"   // Route along the "error" labeled edge
)

// MergePolicy selects the join semantics of a merge node.
type MergePolicy string

const (
	MergeWaitAll MergePolicy = "wait_all" // Every declared predecessor must be accounted for
	MergeWaitAny MergePolicy = "wait_any" // Proceed on the first completed predecessor
)

// WorkflowNode is a single node instance in a workflow graph.
//
// Config is opaque key/value data; string values may reference accumulated
// variables with {{ .variables.name }} template syntax and are rendered by
// the node executor right before each invocation.
type WorkflowNode struct {
	ID         string         `json:"id"   validate:"required"`
	Type       string         `json:"type" validate:"required"`
	Name       string         `json:"name"`
	Config     map[string]any `json:"config,omitempty"`
	Timeout    time.Duration  `json:"timeout,omitempty"`
	RetryCount int            `json:"retry_count,omitempty" validate:"gte=0"`
	OnError    ErrorPolicy    `json:"error_handling,omitempty"`
	Disabled   bool           `json:"disabled,omitempty"`
	Body       *Subgraph      `json:"body,omitempty"` // Loop nodes only
}

// IsControl reports whether the node is interpreted by the orchestrator
// instead of being dispatched through the registry.
func (n *WorkflowNode) IsControl() bool {
	switch n.Type {
	case NodeTypeTrigger, NodeTypeCondition, NodeTypeSwitch, NodeTypeMerge, NodeTypeLoop:
		return true
	default:
		return false
	}
}

// IsTrigger reports whether the node is an entry point of the graph.
func (n *WorkflowNode) IsTrigger() bool {
	return n.Type == NodeTypeTrigger
}

// MergeMode returns the node's join policy, defaulting to wait_all.
func (n *WorkflowNode) MergeMode() MergePolicy {
	if mode, ok := n.Config["policy"].(string); ok && MergePolicy(mode) == MergeWaitAny {
		return MergeWaitAny
	}

	return MergeWaitAll
}

// ErrorPolicyOrDefault returns the node's error policy, defaulting to stop.
func (n *WorkflowNode) ErrorPolicyOrDefault() ErrorPolicy {
	switch n.OnError {
	case ErrorPolicyContinue, ErrorPolicyBranch:
		return n.OnError
	default:
		return ErrorPolicyStop
	}
}

// NodeStatus defines the possible states of a node execution.
type NodeStatus string

const (
	NodeStatusPending NodeStatus = "pending"
	NodeStatusRunning NodeStatus = "running"
	NodeStatusSuccess NodeStatus = "success"
	NodeStatusError   NodeStatus = "error"
	NodeStatusSkipped NodeStatus = "skipped"
)

// NodeResult is the externally visible outcome of one node invocation. Only
// the final retry attempt is surfaced; Attempts records how many were made.
type NodeResult struct {
	NodeID       string         `json:"node_id"`
	Data         map[string]any `json:"data,omitempty"`
	Status       NodeStatus     `json:"status"`
	Error        string         `json:"error,omitempty"`
	HasError     bool           `json:"has_error"`
	StopWorkflow bool           `json:"stop_workflow,omitempty"`
	Attempts     int            `json:"attempts"`
	Timestamp    time.Time      `json:"timestamp"`
}
