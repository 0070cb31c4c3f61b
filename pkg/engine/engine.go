// Package engine orchestrates workflow executions: it walks validated plans,
// dispatches nodes, applies branching and error policies, and persists a
// snapshot after every node so interrupted runs can resume.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/windlass-io/windlass/pkg/eventbus"
	"github.com/windlass-io/windlass/pkg/events"
	"github.com/windlass-io/windlass/pkg/executor"
	"github.com/windlass-io/windlass/pkg/models"
	"github.com/windlass-io/windlass/pkg/plan"
	"github.com/windlass-io/windlass/pkg/registry"
	"github.com/windlass-io/windlass/pkg/snapshot"
)

// DefaultMaxLoopIterations bounds loop nodes whose configuration does not set
// its own ceiling.
const DefaultMaxLoopIterations = 1000

// Config carries engine-wide execution limits.
type Config struct {
	// MaxLoopIterations is the default loop ceiling. Zero means
	// DefaultMaxLoopIterations.
	MaxLoopIterations int
	// ExecutionTimeout bounds one whole execution. Zero means unbounded.
	ExecutionTimeout time.Duration
}

// Engine runs workflow executions. Each submission gets its own goroutine;
// within one execution all shared state is mutated only by that execution's
// orchestrator loop.
type Engine struct {
	registry  *registry.Registry
	resolver  *plan.Resolver
	executor  *executor.Executor
	snapshots *snapshot.Manager
	bus       eventbus.EventBus
	logger    *slog.Logger
	tracer    trace.Tracer
	config    Config

	mu   sync.Mutex
	runs map[string]*run
}

type run struct {
	ctx           context.Context
	cancel        context.CancelCauseFunc
	cancelTimeout context.CancelFunc
	done          chan struct{}
}

// Option configures an Engine.
type Option func(*Engine)

// WithTracer enables a span per execution.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

func New(
	reg *registry.Registry,
	exec *executor.Executor,
	snapshots *snapshot.Manager,
	bus eventbus.EventBus,
	logger *slog.Logger,
	config Config,
	opts ...Option,
) *Engine {
	if config.MaxLoopIterations <= 0 {
		config.MaxLoopIterations = DefaultMaxLoopIterations
	}

	e := &Engine{
		registry:  reg,
		resolver:  plan.NewResolver(reg),
		executor:  exec,
		snapshots: snapshots,
		bus:       bus,
		logger:    logger.With("module", "engine"),
		config:    config,
		runs:      make(map[string]*run),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Status is the externally visible state of one execution.
type Status struct {
	Execution   models.Execution             `json:"execution"`
	CurrentNode string                       `json:"current_node,omitempty"`
	NodeResults map[string]models.NodeResult `json:"node_results"`
	Skipped     []string                     `json:"skipped,omitempty"`
	Logs        []models.LogEntry            `json:"logs,omitempty"`
}

// Submit validates the workflow and starts an execution. Validation failures
// are returned synchronously as a *plan.ValidationError; the run itself is
// asynchronous and observed through GetStatus or Wait.
func (e *Engine) Submit(ctx context.Context, workflow *models.Workflow, triggerData map[string]any) (string, error) {
	p, err := e.resolver.Resolve(workflow)
	if err != nil {
		return "", err
	}

	executionID := uuid.New().String()
	execCtx := models.NewExecutionContext(executionID, workflow.ID, workflow.Variables, triggerData)
	startedAt := time.Now().UTC()

	x := &execution{
		engine:    e,
		workflow:  workflow,
		plan:      p,
		execCtx:   execCtx,
		startedAt: startedAt,
	}

	r, reserved := e.reserve(executionID)
	if !reserved {
		return "", fmt.Errorf("%w: %s", ErrExecutionRunning, executionID)
	}

	if err := x.saveSnapshot(ctx, models.ExecutionStatusPending, "", ""); err != nil {
		e.release(executionID, r)

		return "", fmt.Errorf("failed to save initial snapshot: %w", err)
	}

	e.publish(ctx, executionID, workflow.ID, &events.ExecutionStarted{TriggerData: triggerData})
	e.launch(r, x, nil)

	return executionID, nil
}

// Resume re-enters an interrupted execution from its latest snapshot.
// Completed and skipped nodes are not re-run; everything still pending is
// scheduled as if the interruption never happened.
func (e *Engine) Resume(ctx context.Context, executionID string) error {
	// The id is reserved before the snapshot is even loaded, so two
	// concurrent resumes of the same execution cannot both launch a loop.
	r, reserved := e.reserve(executionID)
	if !reserved {
		return ErrExecutionRunning
	}

	snap, err := e.snapshots.Load(ctx, executionID)
	if err != nil {
		e.release(executionID, r)

		if snapshot.IsSnapshotNotFound(err) {
			e.publish(ctx, executionID, "", &events.SnapshotLost{})

			return fmt.Errorf("%w: %s", ErrExecutionNotFound, executionID)
		}

		return err
	}

	if snap.Status == models.ExecutionStatusCompleted || snap.Status == models.ExecutionStatusFailed {
		e.release(executionID, r)

		return fmt.Errorf("%w: execution %s is %s", ErrNotResumable, executionID, snap.Status)
	}

	if snap.Workflow == nil {
		e.release(executionID, r)

		return fmt.Errorf("%w: snapshot for %s carries no workflow definition", ErrNotResumable, executionID)
	}

	p, err := e.resolver.Resolve(snap.Workflow)
	if err != nil {
		e.release(executionID, r)

		return err
	}

	execCtx := &models.ExecutionContext{
		ID:          snap.ExecutionID,
		WorkflowID:  snap.WorkflowID,
		TriggerData: snap.TriggerData,
		Variables:   snap.Variables,
		NodeResults: snap.NodeResults,
		Logs:        snap.Logs,
		Metadata:    map[string]any{},
		CurrentNode: snap.CurrentNode,
	}
	if execCtx.Variables == nil {
		execCtx.Variables = map[string]any{}
	}

	if execCtx.NodeResults == nil {
		execCtx.NodeResults = map[string]models.NodeResult{}
	}

	x := &execution{
		engine:    e,
		workflow:  snap.Workflow,
		plan:      p,
		execCtx:   execCtx,
		startedAt: snap.StartedAt,
	}

	e.publish(ctx, executionID, snap.WorkflowID, &events.ExecutionResumed{CurrentNode: snap.CurrentNode})
	e.logger.Info("Resuming execution",
		"execution_id", executionID,
		"workflow_id", snap.WorkflowID,
		"completed_nodes", len(snap.NodeResults),
	)
	e.launch(r, x, snap.Skipped)

	return nil
}

// logsTailLimit bounds the log entries returned by GetStatus. The full log
// stays in the snapshot.
const logsTailLimit = 100

// GetStatus reports the state of an execution from its latest snapshot. The
// snapshot is the single source of truth so status reads never race the
// orchestrator loop.
func (e *Engine) GetStatus(ctx context.Context, executionID string) (*Status, error) {
	snap, err := e.snapshots.Load(ctx, executionID)
	if err != nil {
		if snapshot.IsSnapshotNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrExecutionNotFound, executionID)
		}

		return nil, err
	}

	logs := snap.Logs
	if len(logs) > logsTailLimit {
		logs = logs[len(logs)-logsTailLimit:]
	}

	return &Status{
		Execution: models.Execution{
			ID:           snap.ExecutionID,
			WorkflowID:   snap.WorkflowID,
			Status:       snap.Status,
			Error:        snap.Error,
			FailedNodeID: snap.FailedNodeID,
			StartedAt:    snap.StartedAt,
			CompletedAt:  snap.CompletedAt,
		},
		CurrentNode: snap.CurrentNode,
		NodeResults: snap.NodeResults,
		Skipped:     snap.Skipped,
		Logs:        logs,
	}, nil
}

// Cancel requests cancellation of a running execution. In-flight nodes are
// interrupted through their contexts; no new node starts afterward.
func (e *Engine) Cancel(ctx context.Context, executionID string) error {
	e.mu.Lock()
	r, running := e.runs[executionID]
	e.mu.Unlock()

	if running {
		r.cancel(ErrCancelled)

		return nil
	}

	if _, err := e.snapshots.Load(ctx, executionID); err != nil {
		if snapshot.IsSnapshotNotFound(err) {
			return fmt.Errorf("%w: %s", ErrExecutionNotFound, executionID)
		}

		return err
	}

	return fmt.Errorf("%w: %s", ErrExecutionNotRunning, executionID)
}

// Wait blocks until the execution leaves the running state or ctx expires.
func (e *Engine) Wait(ctx context.Context, executionID string) error {
	e.mu.Lock()
	r, running := e.runs[executionID]
	e.mu.Unlock()

	if !running {
		return nil
	}

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels every live execution and waits for their loops to exit.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()

	live := make([]*run, 0, len(e.runs))
	for _, r := range e.runs {
		live = append(live, r)
	}
	e.mu.Unlock()

	for _, r := range live {
		r.cancel(ErrCancelled)
	}

	for _, r := range live {
		select {
		case <-r.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

// reserve claims the execution id and builds the run's context. The claim is
// atomic under the engine lock; a second claimant gets nothing. The context
// exists from reservation on, so Cancel reaches a run whose snapshot is
// still loading.
func (e *Engine) reserve(executionID string) (*run, bool) {
	parent := context.Background()

	var cancelTimeout context.CancelFunc

	if e.config.ExecutionTimeout > 0 {
		parent, cancelTimeout = context.WithTimeoutCause(parent, e.config.ExecutionTimeout, ErrExecutionTimeout)
	}

	runCtx, cancel := context.WithCancelCause(parent)

	r := &run{
		ctx:           runCtx,
		cancel:        cancel,
		cancelTimeout: cancelTimeout,
		done:          make(chan struct{}),
	}

	e.mu.Lock()

	if _, exists := e.runs[executionID]; exists {
		e.mu.Unlock()
		cancel(nil)

		if cancelTimeout != nil {
			cancelTimeout()
		}

		return nil, false
	}

	e.runs[executionID] = r
	e.mu.Unlock()

	return r, true
}

// release undoes a reservation whose launch never happened.
func (e *Engine) release(executionID string, r *run) {
	e.mu.Lock()
	delete(e.runs, executionID)
	e.mu.Unlock()

	r.cancel(nil)

	if r.cancelTimeout != nil {
		r.cancelTimeout()
	}

	close(r.done)
}

// launch starts the orchestrator goroutine for a reserved run. skipped
// carries previously skipped node ids when resuming.
func (e *Engine) launch(r *run, x *execution, skipped []string) {
	go func() {
		defer close(r.done)
		defer func() {
			e.mu.Lock()
			delete(e.runs, x.execCtx.ID)
			e.mu.Unlock()
		}()
		defer r.cancel(nil)

		if r.cancelTimeout != nil {
			defer r.cancelTimeout()
		}

		x.run(r.ctx, skipped)
	}()
}

// publish emits a lifecycle event, filling in the envelope. Event delivery is
// best effort; a broker outage never blocks an execution.
func (e *Engine) publish(ctx context.Context, executionID, workflowID string, event eventbus.Event) {
	if e.bus == nil {
		return
	}

	setBase(event, events.BaseEvent{
		ID:          e.bus.GenerateID(),
		Type:        event.GetType(),
		Timestamp:   time.Now().UTC(),
		WorkflowID:  workflowID,
		ExecutionID: executionID,
	})

	if err := e.bus.Publish(ctx, executionID, event); err != nil {
		e.logger.Warn("Failed to publish event",
			"event_type", event.GetType(),
			"execution_id", executionID,
			"error", err,
		)
	}
}

func setBase(event eventbus.Event, base events.BaseEvent) {
	switch ev := event.(type) {
	case *events.ExecutionStarted:
		ev.BaseEvent = base
	case *events.ExecutionCompleted:
		ev.BaseEvent = base
	case *events.ExecutionFailed:
		ev.BaseEvent = base
	case *events.ExecutionStopped:
		ev.BaseEvent = base
	case *events.ExecutionResumed:
		ev.BaseEvent = base
	case *events.SnapshotLost:
		ev.BaseEvent = base
	case *events.NodeStarted:
		ev.BaseEvent = base
	case *events.NodeFinished:
		ev.BaseEvent = base
	case *events.NodeFailed:
		ev.BaseEvent = base
	}
}
