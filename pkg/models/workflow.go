// Package models defines the core domain models for graph-based workflow execution.
package models

import "time"

// Workflow represents an immutable node/edge graph definition.
//
// Workflows are produced by an external design tool and are read-only to the
// engine: a run never mutates its definition, only its ExecutionContext.
type Workflow struct {
	ID          string          `json:"id"          validate:"required"`
	Name        string          `json:"name"        validate:"required,min=3"`
	Description string          `json:"description"`
	Nodes       []*WorkflowNode `json:"nodes"       validate:"required,min=1,dive"`
	Edges       []*Edge         `json:"edges"       validate:"dive"`
	Variables   map[string]any  `json:"variables,omitempty"`
	Metadata    map[string]any  `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// NodeByID returns the node with the given id, or nil.
func (w *Workflow) NodeByID(id string) *WorkflowNode {
	for _, n := range w.Nodes {
		if n.ID == id {
			return n
		}
	}

	return nil
}

// Edge is a directed connection between two nodes.
//
// The optional Label selects a branch: condition nodes route along "true" or
// "false", switch nodes along their case labels, and nodes with the branch
// error policy along "error". Unlabeled edges are plain success transitions.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
	Label  string `json:"label,omitempty"`
}

// Subgraph is a nested node/edge fragment.
//
// Loop nodes carry their body as a Subgraph so that the outer workflow graph
// stays acyclic; the iteration cycle is modeled inside the loop node, never
// as a graph cycle.
type Subgraph struct {
	Nodes []*WorkflowNode `json:"nodes" validate:"required,min=1,dive"`
	Edges []*Edge         `json:"edges" validate:"dive"`
}
