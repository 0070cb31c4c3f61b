// Package plan validates workflow graphs and computes deterministic
// execution plans.
package plan

import (
	"github.com/windlass-io/windlass/pkg/models"
)

// Plan is a validated execution plan for one workflow.
//
// Order is a topological order over the full node set ignoring branch
// semantics; it fixes the deterministic iteration order within a branch.
// Which successor set a condition or switch node activates is resolved at
// runtime, not here.
type Plan struct {
	WorkflowID   string
	Order        []string
	Nodes        map[string]*models.WorkflowNode
	Successors   map[string][]*models.Edge
	Predecessors map[string][]string
	Triggers     []string
}

// Node returns the node with the given id, or nil.
func (p *Plan) Node(id string) *models.WorkflowNode {
	return p.Nodes[id]
}

// Indegree returns the number of incoming edges of a node.
func (p *Plan) Indegree(id string) int {
	return len(p.Predecessors[id])
}

// LabeledSuccessors returns the outgoing edges of a node carrying the given
// branch label, in declaration order.
func (p *Plan) LabeledSuccessors(id, label string) []*models.Edge {
	var edges []*models.Edge

	for _, edge := range p.Successors[id] {
		if edge.Label == label {
			edges = append(edges, edge)
		}
	}

	return edges
}

// Labels returns the distinct branch labels on a node's outgoing edges, in
// first-seen order.
func (p *Plan) Labels(id string) []string {
	seen := make(map[string]bool)

	var labels []string

	for _, edge := range p.Successors[id] {
		if !seen[edge.Label] {
			seen[edge.Label] = true
			labels = append(labels, edge.Label)
		}
	}

	return labels
}
