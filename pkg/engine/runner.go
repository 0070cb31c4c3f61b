package engine

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/windlass-io/windlass/pkg/models"
	"github.com/windlass-io/windlass/pkg/plan"
)

// observer receives scheduling callbacks from the runner loop. All calls
// happen on the runner goroutine.
type observer interface {
	nodeStarted(ctx context.Context, node *models.WorkflowNode)
	nodeFinished(ctx context.Context, node *models.WorkflowNode, result models.NodeResult)
	nodeSkipped(ctx context.Context, nodeID string)
}

type completion struct {
	node   *models.WorkflowNode
	result models.NodeResult
}

// runner walks one plan with ready-set scheduling. Per node it tracks how
// many incoming edges have been accounted for and how many of those were
// taken by a completed source; the pair decides between dispatch and skip.
//
// Only the run goroutine touches runner state. Node work happens on worker
// goroutines against a context frozen at dispatch time, so branches that run
// in parallel never observe each other's in-progress writes.
type runner struct {
	engine  *Engine
	plan    *plan.Plan
	execCtx *models.ExecutionContext
	logger  *slog.Logger
	obs     observer

	orderIndex map[string]int
	accounted  map[string]int
	live       map[string]int
	dispatched map[string]bool
	queued     map[string]bool
	skipped    map[string]bool
	propagated map[string]bool
	ready      []string

	completions    chan completion
	inflight       int
	cancelInflight context.CancelFunc

	failed     bool
	failedNode string
	failErr    string

	stopped    bool
	stopReason string
	stopNode   string
}

func newRunner(e *Engine, p *plan.Plan, execCtx *models.ExecutionContext, logger *slog.Logger, obs observer, seedSkipped []string) *runner {
	orderIndex := make(map[string]int, len(p.Order))
	for i, id := range p.Order {
		orderIndex[id] = i
	}

	r := &runner{
		engine:      e,
		plan:        p,
		execCtx:     execCtx,
		logger:      logger,
		obs:         obs,
		orderIndex:  orderIndex,
		accounted:   make(map[string]int),
		live:        make(map[string]int),
		dispatched:  make(map[string]bool),
		queued:      make(map[string]bool),
		skipped:     make(map[string]bool),
		propagated:  make(map[string]bool),
		completions: make(chan completion, len(p.Order)),
	}

	for _, id := range seedSkipped {
		r.skipped[id] = true
	}

	return r
}

func (r *runner) run(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	r.cancelInflight = cancel

	r.replay(ctx)

	for _, id := range r.plan.Order {
		if r.plan.Indegree(id) == 0 {
			r.evaluate(ctx, id)
		}
	}

	for {
		if !r.halted() && parent.Err() == nil {
			r.dispatchReady(ctx)
		}

		if r.inflight == 0 {
			if !r.halted() && parent.Err() != nil {
				r.stopFromCause(parent)
			}

			r.checkCoverage()

			return
		}

		if r.halted() {
			// Drain in-flight work; no new node starts.
			c := <-r.completions
			r.inflight--
			r.handleCompletion(ctx, c.node, c.result)

			continue
		}

		select {
		case <-parent.Done():
			r.stopFromCause(parent)
		case c := <-r.completions:
			r.inflight--
			r.handleCompletion(ctx, c.node, c.result)
		}
	}
}

func (r *runner) halted() bool {
	return r.failed || r.stopped
}

// replay re-derives scheduler state from results recorded before an
// interruption. Completed and skipped nodes propagate their edges exactly as
// they did live; everything else becomes ready in due course.
func (r *runner) replay(ctx context.Context) {
	for id := range r.execCtx.NodeResults {
		r.dispatched[id] = true
	}

	for _, id := range r.plan.Order {
		if result, ok := r.execCtx.NodeResults[id]; ok {
			node := r.plan.Node(id)
			if node == nil {
				continue
			}

			r.propagate(ctx, id, r.replayTaken(node, result))

			continue
		}

		if r.skipped[id] && !r.propagated[id] {
			r.propagate(ctx, id, takeNone)
		}
	}
}

func (r *runner) dispatchReady(ctx context.Context) {
	for len(r.ready) > 0 && !r.halted() {
		id := r.ready[0]
		r.ready = r.ready[1:]
		delete(r.queued, id)
		r.dispatched[id] = true

		r.start(ctx, r.plan.Node(id))
	}
}

func (r *runner) start(ctx context.Context, node *models.WorkflowNode) {
	if r.obs != nil {
		r.obs.nodeStarted(ctx, node)
	}

	switch node.Type {
	case models.NodeTypeTrigger:
		r.handleCompletion(ctx, node, r.triggerResult(node))
	case models.NodeTypeCondition:
		r.handleCompletion(ctx, node, r.evalCondition(node))
	case models.NodeTypeSwitch:
		r.handleCompletion(ctx, node, r.evalSwitch(node))
	case models.NodeTypeMerge:
		r.handleCompletion(ctx, node, r.evalMerge(node))
	case models.NodeTypeLoop:
		frozen := r.execCtx.Clone()
		r.inflight++

		go func() {
			r.completions <- completion{node: node, result: r.engine.runLoop(ctx, node, frozen)}
		}()
	default:
		frozen := r.execCtx.Clone()
		r.inflight++

		go func() {
			r.completions <- completion{node: node, result: r.engine.executor.Execute(ctx, node, frozen)}
		}()
	}
}

func (r *runner) handleCompletion(ctx context.Context, node *models.WorkflowNode, result models.NodeResult) {
	if r.halted() {
		// A successful straggler is kept so a resume does not redo its work;
		// cancellation casualties are dropped so a resume retries them.
		if !result.HasError {
			r.record(result)

			if r.obs != nil {
				r.obs.nodeFinished(ctx, node, result)
			}
		}

		return
	}

	r.record(result)

	if r.obs != nil {
		r.obs.nodeFinished(ctx, node, result)
	}

	if result.HasError {
		switch node.ErrorPolicyOrDefault() {
		case models.ErrorPolicyBranch:
			r.logger.Warn("Node failed, routing error branch",
				"node_id", node.ID, "attempts", result.Attempts, "error", result.Error)
			r.propagate(ctx, node.ID, func(label string) bool { return label == "error" })
		case models.ErrorPolicyContinue:
			r.logger.Warn("Node failed, continuing",
				"node_id", node.ID, "attempts", result.Attempts, "error", result.Error)
			r.propagate(ctx, node.ID, r.continueTaken(node))
		default:
			r.fail(node.ID, result.Error)
		}

		return
	}

	if result.StopWorkflow {
		r.stopped = true
		r.stopReason = StopReasonStopSignal
		r.stopNode = node.ID
		r.logger.Info("Node requested workflow stop", "node_id", node.ID)

		return
	}

	r.propagate(ctx, node.ID, r.successTaken(node, result))
}

func (r *runner) record(result models.NodeResult) {
	r.execCtx.NodeResults[result.NodeID] = result
	r.execCtx.CurrentNode = result.NodeID
}

// successTaken returns the edge selector for a node that completed. Condition
// and switch nodes activate only their chosen branch label; every other node
// activates all non-error edges.
func (r *runner) successTaken(node *models.WorkflowNode, result models.NodeResult) func(string) bool {
	switch node.Type {
	case models.NodeTypeCondition, models.NodeTypeSwitch:
		branch, _ := result.Data["branch"].(string)

		return func(label string) bool { return label == branch }
	default:
		return func(label string) bool { return label != "error" }
	}
}

// continueTaken picks the route for a node that failed under the continue
// policy. A condition falls back to its false branch, a switch to its default
// edge when one exists; every other node activates all non-error edges.
func (r *runner) continueTaken(node *models.WorkflowNode) func(string) bool {
	switch node.Type {
	case models.NodeTypeCondition:
		return func(label string) bool { return label == "false" }
	case models.NodeTypeSwitch:
		return func(label string) bool { return label == "default" }
	default:
		return func(label string) bool { return label != "error" }
	}
}

func (r *runner) replayTaken(node *models.WorkflowNode, result models.NodeResult) func(string) bool {
	if result.HasError {
		switch node.ErrorPolicyOrDefault() {
		case models.ErrorPolicyBranch:
			return func(label string) bool { return label == "error" }
		case models.ErrorPolicyContinue:
			return r.continueTaken(node)
		}
	}

	return r.successTaken(node, result)
}

func takeNone(string) bool { return false }

// propagate accounts every outgoing edge of a finished or skipped node, then
// re-evaluates the affected targets. All edges are accounted before any
// target is evaluated so multi-edge fan-ins see a consistent count.
func (r *runner) propagate(ctx context.Context, id string, taken func(string) bool) {
	if r.propagated[id] {
		return
	}

	r.propagated[id] = true

	for _, edge := range r.plan.Successors[id] {
		r.accounted[edge.Target]++

		if taken(edge.Label) {
			r.live[edge.Target]++
		}
	}

	for _, edge := range r.plan.Successors[id] {
		r.evaluate(ctx, edge.Target)
	}
}

// evaluate decides whether a node is ready, still waiting, or skipped.
//
// A merge with wait_any joins on the first live edge; with wait_all it waits
// for every edge to be accounted and needs at least one live. Any other node
// waits for every edge to be accounted and needs all of them live, so a
// branch that was not taken skips its entire downstream chain.
func (r *runner) evaluate(ctx context.Context, id string) {
	if r.dispatched[id] || r.queued[id] || r.skipped[id] {
		return
	}

	node := r.plan.Node(id)
	indegree := r.plan.Indegree(id)

	if node.Type == models.NodeTypeMerge {
		if node.MergeMode() == models.MergeWaitAny {
			if r.live[id] >= 1 {
				r.enqueue(ctx, id)

				return
			}

			if r.accounted[id] == indegree {
				r.skip(ctx, id)
			}

			return
		}

		if r.accounted[id] == indegree {
			if r.live[id] >= 1 {
				r.enqueue(ctx, id)
			} else {
				r.skip(ctx, id)
			}
		}

		return
	}

	if r.accounted[id] == indegree {
		if r.live[id] == indegree {
			r.enqueue(ctx, id)
		} else {
			r.skip(ctx, id)
		}
	}
}

// enqueue inserts the node into the ready queue at its plan-order position,
// which keeps dispatch order deterministic regardless of completion order.
func (r *runner) enqueue(ctx context.Context, id string) {
	if r.dispatched[id] || r.queued[id] || r.skipped[id] {
		return
	}

	if r.plan.Node(id).Disabled {
		r.skip(ctx, id)

		return
	}

	r.queued[id] = true

	idx := r.orderIndex[id]
	pos := sort.Search(len(r.ready), func(i int) bool { return r.orderIndex[r.ready[i]] > idx })

	r.ready = append(r.ready, "")
	copy(r.ready[pos+1:], r.ready[pos:])
	r.ready[pos] = id
}

func (r *runner) skip(ctx context.Context, id string) {
	if r.dispatched[id] || r.skipped[id] {
		return
	}

	r.skipped[id] = true
	r.logger.Debug("Node skipped", "node_id", id)

	if r.obs != nil {
		r.obs.nodeSkipped(ctx, id)
	}

	r.propagate(ctx, id, takeNone)
}

func (r *runner) fail(nodeID, errMsg string) {
	r.failed = true
	r.failedNode = nodeID
	r.failErr = errMsg
	r.logger.Error("Execution failing", "node_id", nodeID, "error", errMsg)
	r.cancelInflight()
}

func (r *runner) stopFromCause(parent context.Context) {
	reason := StopReasonCancelled

	cause := context.Cause(parent)
	if errors.Is(cause, ErrExecutionTimeout) || errors.Is(cause, context.DeadlineExceeded) {
		reason = StopReasonTimeout
	}

	r.stopped = true
	r.stopReason = reason
	r.logger.Info("Execution interrupted", "reason", reason)
}

// skippedList returns the skipped node ids in plan order.
func (r *runner) skippedList() []string {
	if len(r.skipped) == 0 {
		return nil
	}

	ids := make([]string, 0, len(r.skipped))
	for id := range r.skipped {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return r.orderIndex[ids[i]] < r.orderIndex[ids[j]] })

	return ids
}

// checkCoverage verifies that a naturally finished run left no node behind.
// On a validated acyclic plan this cannot trip; it guards scheduler bugs.
func (r *runner) checkCoverage() {
	if r.halted() {
		return
	}

	for _, id := range r.plan.Order {
		if !r.dispatched[id] && !r.skipped[id] {
			r.logger.Error("Node neither ran nor was skipped", "node_id", id)
		}
	}
}
