package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/windlass-io/windlass/pkg/models"
	"github.com/windlass-io/windlass/pkg/plan"
	"github.com/windlass-io/windlass/pkg/template"
)

// Control nodes are interpreted inline on the runner goroutine; they read
// accumulated state and route edges but never call out through the registry.

func (r *runner) triggerResult(node *models.WorkflowNode) models.NodeResult {
	return successResult(node.ID, r.execCtx.TriggerData)
}

func (r *runner) evalCondition(node *models.WorkflowNode) models.NodeResult {
	expr, _ := node.Config["condition"].(string)

	value, err := template.RenderWithContext(expr, r.execCtx)
	if err != nil {
		return controlError(node.ID, fmt.Errorf("failed to evaluate condition: %w", err))
	}

	outcome := truthy(value)

	branch := "false"
	if outcome {
		branch = "true"
	}

	return successResult(node.ID, map[string]any{"result": outcome, "branch": branch})
}

func (r *runner) evalSwitch(node *models.WorkflowNode) models.NodeResult {
	expr, _ := node.Config["expression"].(string)

	value, err := template.RenderWithContext(expr, r.execCtx)
	if err != nil {
		return controlError(node.ID, fmt.Errorf("failed to evaluate switch expression: %w", err))
	}

	rendered := fmt.Sprintf("%v", value)
	labels := r.plan.Labels(node.ID)

	branch := ""
	hasDefault := false

	for _, label := range labels {
		if label == rendered {
			branch = label

			break
		}

		if label == "default" {
			hasDefault = true
		}
	}

	if branch == "" && hasDefault {
		branch = "default"
	}

	if branch == "" {
		return controlError(node.ID, fmt.Errorf("switch value %q matches no outgoing branch and no default edge exists", rendered))
	}

	return successResult(node.ID, map[string]any{"value": value, "branch": branch})
}

// evalMerge collects the outputs of the predecessors that completed. With
// wait_any the late siblings are simply absent; the join sees the state
// frozen at the moment it fired.
func (r *runner) evalMerge(node *models.WorkflowNode) models.NodeResult {
	data := make(map[string]any)

	for _, pred := range r.plan.Predecessors[node.ID] {
		if result, ok := r.execCtx.NodeResults[pred]; ok && !result.HasError {
			data[pred] = result.Data
		}
	}

	return successResult(node.ID, data)
}

// runLoop executes a loop node's body repeatedly until its stop condition
// becomes true or the iteration ceiling is hit. The body runs against the
// loop's frozen context copy; only the loop node's own result becomes visible
// to the rest of the graph.
func (e *Engine) runLoop(ctx context.Context, node *models.WorkflowNode, execCtx *models.ExecutionContext) models.NodeResult {
	bodyPlan, err := e.resolver.ResolveFragment(execCtx.WorkflowID, node.Body)
	if err != nil {
		return controlError(node.ID, fmt.Errorf("invalid loop body: %w", err))
	}

	until, _ := node.Config["until"].(string)

	maxIterations := e.config.MaxLoopIterations
	if n, ok := configInt(node.Config["max_iterations"]); ok && n > 0 {
		maxIterations = n
	}

	logger := e.logger.With("execution_id", execCtx.ID, "node_id", node.ID)
	iterations := 0

	for {
		if err := ctx.Err(); err != nil {
			return controlError(node.ID, err)
		}

		if iterations >= maxIterations {
			return controlError(node.ID, &LoopCeilingError{NodeID: node.ID, MaxIterations: maxIterations})
		}

		iterations++
		execCtx.Metadata["loop_iteration"] = iterations

		// Body results are per-iteration; clear the previous pass so the
		// body scheduler starts fresh.
		for _, id := range bodyPlan.Order {
			delete(execCtx.NodeResults, id)
		}

		body := newRunner(e, bodyPlan, execCtx, logger, nil, nil)
		body.run(ctx)

		switch {
		case body.failed:
			return controlError(node.ID, fmt.Errorf("loop body node '%s' failed on iteration %d: %s", body.failedNode, iterations, body.failErr))
		case body.stopped:
			if body.stopReason == StopReasonStopSignal {
				result := successResult(node.ID, loopData(bodyPlan, execCtx, iterations))
				result.StopWorkflow = true

				return result
			}

			return controlError(node.ID, fmt.Errorf("loop body interrupted: %s", body.stopReason))
		}

		value, err := template.RenderWithContext(until, execCtx)
		if err != nil {
			return controlError(node.ID, fmt.Errorf("failed to evaluate loop stop condition: %w", err))
		}

		if truthy(value) {
			break
		}
	}

	return successResult(node.ID, loopData(bodyPlan, execCtx, iterations))
}

func loopData(bodyPlan *plan.Plan, execCtx *models.ExecutionContext, iterations int) map[string]any {
	results := make(map[string]any)

	for _, id := range bodyPlan.Order {
		if result, ok := execCtx.NodeResults[id]; ok {
			results[id] = result.Data
		}
	}

	return map[string]any{"iterations": iterations, "results": results}
}

// truthy applies the branch coercion rules shared by condition and loop
// evaluation.
func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		s := strings.TrimSpace(strings.ToLower(v))

		return s != "" && s != "false" && s != "0"
	case float64:
		return v != 0
	case int:
		return v != 0
	case int64:
		return v != 0
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}

func configInt(value any) (int, bool) {
	switch n := value.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func successResult(nodeID string, data map[string]any) models.NodeResult {
	return models.NodeResult{
		NodeID:    nodeID,
		Data:      data,
		Status:    models.NodeStatusSuccess,
		Attempts:  1,
		Timestamp: time.Now().UTC(),
	}
}

func controlError(nodeID string, err error) models.NodeResult {
	return models.NodeResult{
		NodeID:    nodeID,
		Status:    models.NodeStatusError,
		Error:     err.Error(),
		HasError:  true,
		Attempts:  1,
		Timestamp: time.Now().UTC(),
	}
}
