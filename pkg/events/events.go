// Package events defines event types for execution lifecycle notifications.
package events

import (
	"time"

	"github.com/windlass-io/windlass/pkg/models"
)

type EventType string

// Topic carries every engine event; consumers filter on the event_type
// metadata key.
const Topic = "windlass.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Execution lifecycle events.
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"
	ExecutionStoppedEvent   EventType = "execution.stopped"
	ExecutionResumedEvent   EventType = "execution.resumed"
	SnapshotLostEvent       EventType = "execution.snapshot.lost"

	// Node lifecycle events.
	NodeStartedEvent  EventType = "node.started"
	NodeFinishedEvent EventType = "node.finished"
	NodeFailedEvent   EventType = "node.failed"
)

type BaseEvent struct {
	ID          string         `json:"id"`
	Type        EventType      `json:"type"`
	Timestamp   time.Time      `json:"timestamp"`
	WorkflowID  string         `json:"workflow_id"`
	ExecutionID string         `json:"execution_id"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type ExecutionStarted struct {
	BaseEvent

	TriggerData map[string]any `json:"trigger_data,omitempty"`
}

func (e ExecutionStarted) GetType() EventType { return ExecutionStartedEvent }

type ExecutionCompleted struct {
	BaseEvent

	Duration time.Duration `json:"duration"`
}

func (e ExecutionCompleted) GetType() EventType { return ExecutionCompletedEvent }

type ExecutionFailed struct {
	BaseEvent

	NodeID   string        `json:"node_id,omitempty"`
	Error    string        `json:"error"`
	Duration time.Duration `json:"duration"`
}

func (e ExecutionFailed) GetType() EventType { return ExecutionFailedEvent }

// ExecutionStopped covers external cancellation, the global execution
// timeout, and a node's stop-workflow signal; Reason distinguishes them.
type ExecutionStopped struct {
	BaseEvent

	Reason string `json:"reason"`
	NodeID string `json:"node_id,omitempty"`
}

func (e ExecutionStopped) GetType() EventType { return ExecutionStoppedEvent }

type ExecutionResumed struct {
	BaseEvent

	CurrentNode string `json:"current_node,omitempty"`
}

func (e ExecutionResumed) GetType() EventType { return ExecutionResumedEvent }

// SnapshotLost surfaces a snapshot that expired or vanished for an execution
// the engine still believes is live. This is an operational fault, never a
// silent data loss.
type SnapshotLost struct {
	BaseEvent
}

func (e SnapshotLost) GetType() EventType { return SnapshotLostEvent }

type NodeStarted struct {
	BaseEvent

	NodeID   string `json:"node_id"`
	NodeType string `json:"node_type"`
}

func (e NodeStarted) GetType() EventType { return NodeStartedEvent }

type NodeFinished struct {
	BaseEvent

	NodeID     string            `json:"node_id"`
	Status     models.NodeStatus `json:"status"`
	OutputData map[string]any    `json:"output_data,omitempty"`
	Attempts   int               `json:"attempts"`
}

func (e NodeFinished) GetType() EventType { return NodeFinishedEvent }

type NodeFailed struct {
	BaseEvent

	NodeID   string `json:"node_id"`
	Error    string `json:"error"`
	Attempts int    `json:"attempts"`
}

func (e NodeFailed) GetType() EventType { return NodeFailedEvent }
