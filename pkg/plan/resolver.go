package plan

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/windlass-io/windlass/pkg/models"
	"github.com/windlass-io/windlass/pkg/registry"
)

// Resolver validates workflow graphs and produces execution plans. This is
// the only validation point in the engine.
type Resolver struct {
	registry *registry.Registry
	validate *validator.Validate
}

// NewResolver creates a resolver. A nil registry skips node type and config
// schema checks (useful for structural tests).
func NewResolver(reg *registry.Registry) *Resolver {
	return &Resolver{
		registry: reg,
		validate: validator.New(),
	}
}

// Resolve validates the workflow and computes its execution plan. All
// violations are collected into a single *ValidationError.
func (r *Resolver) Resolve(workflow *models.Workflow) (*Plan, error) {
	var violations []string

	if err := r.validate.Struct(workflow); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				violations = append(violations, fmt.Sprintf("field %s failed '%s' validation", fe.Namespace(), fe.Tag()))
			}
		} else {
			violations = append(violations, err.Error())
		}
	}

	p, fragViolations := r.resolveFragment(workflow.Nodes, workflow.Edges, true)
	violations = append(violations, fragViolations...)

	if len(violations) > 0 {
		return nil, &ValidationError{WorkflowID: workflow.ID, Violations: violations}
	}

	p.WorkflowID = workflow.ID

	return p, nil
}

// ResolveFragment builds a plan for a loop body. Fragments need no trigger
// node; their entry points are the nodes without incoming edges.
func (r *Resolver) ResolveFragment(workflowID string, sub *models.Subgraph) (*Plan, error) {
	p, violations := r.resolveFragment(sub.Nodes, sub.Edges, false)
	if len(violations) > 0 {
		return nil, &ValidationError{WorkflowID: workflowID, Violations: violations}
	}

	p.WorkflowID = workflowID

	return p, nil
}

func (r *Resolver) resolveFragment(nodes []*models.WorkflowNode, edges []*models.Edge, requireTrigger bool) (*Plan, []string) {
	var violations []string

	p := &Plan{
		Nodes:        make(map[string]*models.WorkflowNode, len(nodes)),
		Successors:   make(map[string][]*models.Edge),
		Predecessors: make(map[string][]string),
	}

	for _, node := range nodes {
		if _, exists := p.Nodes[node.ID]; exists {
			violations = append(violations, fmt.Sprintf("duplicate node id '%s'", node.ID))

			continue
		}

		p.Nodes[node.ID] = node

		if node.IsTrigger() {
			p.Triggers = append(p.Triggers, node.ID)
		}
	}

	for _, edge := range edges {
		if _, ok := p.Nodes[edge.Source]; !ok {
			violations = append(violations, fmt.Sprintf("edge '%s' references unknown source node '%s'", edge.ID, edge.Source))

			continue
		}

		if _, ok := p.Nodes[edge.Target]; !ok {
			violations = append(violations, fmt.Sprintf("edge '%s' references unknown target node '%s'", edge.ID, edge.Target))

			continue
		}

		p.Successors[edge.Source] = append(p.Successors[edge.Source], edge)
		p.Predecessors[edge.Target] = append(p.Predecessors[edge.Target], edge.Source)
	}

	if requireTrigger && len(p.Triggers) == 0 {
		violations = append(violations, "workflow has no trigger node")
	}

	for _, node := range nodes {
		violations = append(violations, r.checkNode(p, node, requireTrigger)...)
	}

	order, cycleNodes := topologicalOrder(nodes, p)
	if len(cycleNodes) > 0 {
		violations = append(violations, fmt.Sprintf("graph contains a cycle involving nodes %v; cycles are only permitted inside a loop node's body", cycleNodes))
	}

	p.Order = order

	return p, violations
}

// checkNode applies the per-type structural invariants.
func (r *Resolver) checkNode(p *Plan, node *models.WorkflowNode, topLevel bool) []string {
	var violations []string

	switch node.Type {
	case models.NodeTypeTrigger:
		if !topLevel {
			violations = append(violations, fmt.Sprintf("trigger node '%s' is not allowed inside a loop body", node.ID))
		}

		if len(p.Predecessors[node.ID]) > 0 {
			violations = append(violations, fmt.Sprintf("trigger node '%s' must not have incoming edges", node.ID))
		}

	case models.NodeTypeCondition:
		if _, ok := node.Config["condition"].(string); !ok {
			violations = append(violations, fmt.Sprintf("condition node '%s' is missing the 'condition' config key", node.ID))
		}

		var hasTrue, hasFalse bool

		for _, edge := range p.Successors[node.ID] {
			switch edge.Label {
			case "true":
				hasTrue = true
			case "false":
				hasFalse = true
			case "":
				violations = append(violations, fmt.Sprintf("condition node '%s' has an unlabeled outgoing edge '%s'", node.ID, edge.ID))
			}
		}

		if !hasTrue || !hasFalse {
			violations = append(violations, fmt.Sprintf("condition node '%s' needs at least one 'true' and one 'false' labeled edge", node.ID))
		}

	case models.NodeTypeSwitch:
		if _, ok := node.Config["expression"].(string); !ok {
			violations = append(violations, fmt.Sprintf("switch node '%s' is missing the 'expression' config key", node.ID))
		}

		for _, edge := range p.Successors[node.ID] {
			if edge.Label == "" {
				violations = append(violations, fmt.Sprintf("switch node '%s' has an unlabeled outgoing edge '%s'", node.ID, edge.ID))
			}
		}

	case models.NodeTypeMerge:
		if len(p.Predecessors[node.ID]) < 2 {
			violations = append(violations, fmt.Sprintf("merge node '%s' needs at least two predecessor branches", node.ID))
		}

	case models.NodeTypeLoop:
		if node.Body == nil || len(node.Body.Nodes) == 0 {
			violations = append(violations, fmt.Sprintf("loop node '%s' has an empty body", node.ID))
		} else {
			_, bodyViolations := r.resolveFragment(node.Body.Nodes, node.Body.Edges, false)
			for _, v := range bodyViolations {
				violations = append(violations, fmt.Sprintf("loop node '%s' body: %s", node.ID, v))
			}
		}

		if _, ok := node.Config["until"].(string); !ok {
			violations = append(violations, fmt.Sprintf("loop node '%s' is missing the 'until' config key", node.ID))
		}

	default:
		if r.registry != nil {
			schemaViolations, err := r.registry.ValidateConfig(node.Type, node.Config)
			if err != nil {
				if registry.IsNodeTypeNotFound(err) {
					violations = append(violations, fmt.Sprintf("node '%s' has unregistered type '%s'", node.ID, node.Type))
				} else {
					violations = append(violations, fmt.Sprintf("node '%s': %v", node.ID, err))
				}
			}

			violations = append(violations, schemaViolations...)
		}
	}

	if node.ErrorPolicyOrDefault() == models.ErrorPolicyBranch {
		if len(p.LabeledSuccessors(node.ID, "error")) == 0 {
			violations = append(violations, fmt.Sprintf("node '%s' uses the branch error policy but has no 'error' labeled edge", node.ID))
		}
	}

	return violations
}

// topologicalOrder runs Kahn's algorithm preserving node declaration order.
// Returns the order plus the ids left inside a cycle, if any.
func topologicalOrder(nodes []*models.WorkflowNode, p *Plan) ([]string, []string) {
	indegree := make(map[string]int, len(nodes))
	for _, node := range nodes {
		indegree[node.ID] = len(p.Predecessors[node.ID])
	}

	order := make([]string, 0, len(nodes))
	done := make(map[string]bool, len(nodes))

	for len(order) < len(indegree) {
		progressed := false

		for _, node := range nodes {
			if done[node.ID] || indegree[node.ID] != 0 {
				continue
			}

			done[node.ID] = true
			order = append(order, node.ID)
			progressed = true

			for _, edge := range p.Successors[node.ID] {
				indegree[edge.Target]--
			}
		}

		if !progressed {
			break
		}
	}

	var cycle []string

	for _, node := range nodes {
		if !done[node.ID] {
			cycle = append(cycle, node.ID)
		}
	}

	return order, cycle
}
