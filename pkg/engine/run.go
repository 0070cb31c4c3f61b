package engine

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/windlass-io/windlass/pkg/events"
	"github.com/windlass-io/windlass/pkg/models"
	"github.com/windlass-io/windlass/pkg/otelhelper"
	"github.com/windlass-io/windlass/pkg/plan"
	"github.com/windlass-io/windlass/pkg/snapshot"
)

// execution owns the lifecycle of one run: it drives the runner, persists a
// snapshot after every node, and emits lifecycle events.
type execution struct {
	engine      *Engine
	workflow    *models.Workflow
	plan        *plan.Plan
	execCtx     *models.ExecutionContext
	runner      *runner
	startedAt   time.Time
	completedAt *time.Time
}

func (x *execution) run(ctx context.Context, seedSkipped []string) {
	logger := x.engine.logger.With(
		"execution_id", x.execCtx.ID,
		"workflow_id", x.workflow.ID,
	)

	if x.engine.tracer != nil {
		var span trace.Span

		ctx, span = x.engine.tracer.Start(ctx, "workflow.execute",
			trace.WithAttributes(
				attribute.String(otelhelper.WorkflowIDKey, x.workflow.ID),
				attribute.String(otelhelper.ExecutionIDKey, x.execCtx.ID),
			))
		defer span.End()
	}

	logger.Info("Execution running", "nodes", len(x.plan.Order))

	x.runner = newRunner(x.engine, x.plan, x.execCtx, logger, x, seedSkipped)

	// pending -> running happens here, not at submission; a status read
	// between the two sees the execution as accepted but not yet started.
	x.persist(ctx, models.ExecutionStatusRunning, "", "")
	x.runner.run(ctx)

	now := time.Now().UTC()
	duration := now.Sub(x.startedAt)
	bg := context.WithoutCancel(ctx)

	switch {
	case x.runner.failed:
		x.completedAt = &now
		x.persist(bg, models.ExecutionStatusFailed, x.runner.failErr, x.runner.failedNode)
		x.engine.publish(bg, x.execCtx.ID, x.workflow.ID, &events.ExecutionFailed{
			NodeID:   x.runner.failedNode,
			Error:    x.runner.failErr,
			Duration: duration,
		})
		logger.Error("Execution failed",
			"node_id", x.runner.failedNode,
			"error", x.runner.failErr,
			"duration", duration,
		)
	case x.runner.stopped:
		x.persist(bg, models.ExecutionStatusStopped, "", "")
		x.engine.publish(bg, x.execCtx.ID, x.workflow.ID, &events.ExecutionStopped{
			Reason: x.runner.stopReason,
			NodeID: x.runner.stopNode,
		})
		logger.Info("Execution stopped", "reason", x.runner.stopReason, "duration", duration)
	default:
		x.completedAt = &now
		x.persist(bg, models.ExecutionStatusCompleted, "", "")
		x.engine.publish(bg, x.execCtx.ID, x.workflow.ID, &events.ExecutionCompleted{Duration: duration})
		logger.Info("Execution completed", "duration", duration)
	}
}

func (x *execution) nodeStarted(ctx context.Context, node *models.WorkflowNode) {
	x.engine.publish(ctx, x.execCtx.ID, x.workflow.ID, &events.NodeStarted{
		NodeID:   node.ID,
		NodeType: node.Type,
	})
}

func (x *execution) nodeFinished(ctx context.Context, node *models.WorkflowNode, result models.NodeResult) {
	ctx = context.WithoutCancel(ctx)

	if result.HasError {
		x.execCtx.AppendLog("error", node.ID, result.Error)
		x.engine.publish(ctx, x.execCtx.ID, x.workflow.ID, &events.NodeFailed{
			NodeID:   node.ID,
			Error:    result.Error,
			Attempts: result.Attempts,
		})
	} else {
		x.execCtx.AppendLog("info", node.ID, "node completed")
		x.engine.publish(ctx, x.execCtx.ID, x.workflow.ID, &events.NodeFinished{
			NodeID:     node.ID,
			Status:     result.Status,
			OutputData: result.Data,
			Attempts:   result.Attempts,
		})
	}

	x.persist(ctx, models.ExecutionStatusRunning, "", "")
}

func (x *execution) nodeSkipped(ctx context.Context, nodeID string) {
	x.execCtx.AppendLog("info", nodeID, "node skipped")
	x.persist(context.WithoutCancel(ctx), models.ExecutionStatusRunning, "", "")
}

// persist saves a snapshot, logging instead of failing: a snapshot store
// outage degrades resumability, not the run itself.
func (x *execution) persist(ctx context.Context, status models.ExecutionStatus, errMsg, failedNode string) {
	if err := x.saveSnapshot(ctx, status, errMsg, failedNode); err != nil {
		x.engine.logger.Warn("Failed to save snapshot",
			"execution_id", x.execCtx.ID,
			"error", err,
		)
	}
}

func (x *execution) saveSnapshot(ctx context.Context, status models.ExecutionStatus, errMsg, failedNode string) error {
	snap := &snapshot.Snapshot{
		ExecutionID:  x.execCtx.ID,
		WorkflowID:   x.workflow.ID,
		Workflow:     x.workflow,
		Status:       status,
		Error:        errMsg,
		FailedNodeID: failedNode,
		CurrentNode:  x.execCtx.CurrentNode,
		TriggerData:  x.execCtx.TriggerData,
		Variables:    x.execCtx.Variables,
		NodeResults:  x.execCtx.NodeResults,
		Logs:         x.execCtx.Logs,
		StartedAt:    x.startedAt,
		CompletedAt:  x.completedAt,
	}

	if x.runner != nil {
		snap.Skipped = x.runner.skippedList()
	}

	return x.engine.snapshots.Save(ctx, snap)
}
