// Package executor invokes a single workflow node with timeout, retry, and
// backoff enforcement.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/windlass-io/windlass/pkg/models"
	"github.com/windlass-io/windlass/pkg/otelhelper"
	"github.com/windlass-io/windlass/pkg/protocol"
	"github.com/windlass-io/windlass/pkg/registry"
	"github.com/windlass-io/windlass/pkg/template"
)

const (
	defaultBackoffBase = 1 * time.Second
	defaultBackoffCap  = 30 * time.Second
	jitterFraction     = 0.2
)

// Executor runs one node at a time. Whether a failed result aborts the whole
// workflow is the orchestrator's decision, not the executor's.
type Executor struct {
	registry    *registry.Registry
	logger      *slog.Logger
	tracer      trace.Tracer
	backoffBase time.Duration
	backoffCap  time.Duration
}

// Option configures an Executor.
type Option func(*Executor)

// WithBackoff overrides the retry backoff bounds. Tests use this to keep
// retry scenarios fast.
func WithBackoff(base, cap time.Duration) Option {
	return func(e *Executor) {
		e.backoffBase = base
		e.backoffCap = cap
	}
}

// WithTracer enables a span per node attempt.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Executor) {
		e.tracer = tracer
	}
}

func NewExecutor(reg *registry.Registry, logger *slog.Logger, opts ...Option) *Executor {
	e := &Executor{
		registry:    reg,
		logger:      logger,
		backoffBase: defaultBackoffBase,
		backoffCap:  defaultBackoffCap,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Execute renders the node's configuration, then invokes its capability with
// the node's timeout, retrying up to RetryCount additional times with
// exponential backoff. Only the final attempt is visible in the result.
func (e *Executor) Execute(ctx context.Context, node *models.WorkflowNode, executionCtx *models.ExecutionContext) models.NodeResult {
	logger := e.logger.With(
		"execution_id", executionCtx.ID,
		"node_id", node.ID,
		"node_type", node.Type,
	)

	config, err := template.RenderConfig(node.Config, executionCtx)
	if err != nil {
		logger.Error("Failed to render node configuration", "error", err)

		return e.errorResult(node, 0, fmt.Errorf("%w: %v", ErrConfigRender, err))
	}

	capability, err := e.registry.CreateCapability(node.Type, config)
	if err != nil {
		logger.Error("Failed to create capability", "error", err)

		return e.errorResult(node, 0, err)
	}

	var lastErr error

	attemptsMade := 0

	for attempt := 0; attempt <= node.RetryCount; attempt++ {
		if ctx.Err() != nil {
			lastErr = ctx.Err()

			break
		}

		if attempt > 0 {
			logger.Info("Retrying node", "attempt", attempt+1, "max_attempts", node.RetryCount+1)

			if err := e.sleepBackoff(ctx, attempt-1); err != nil {
				lastErr = err

				break
			}
		}

		attemptsMade++

		output, err := e.attempt(ctx, node, capability, executionCtx, attempt)
		if err == nil {
			stop, _ := output[protocol.StopSignalKey].(bool)
			delete(output, protocol.StopSignalKey)

			return models.NodeResult{
				NodeID:       node.ID,
				Data:         output,
				Status:       models.NodeStatusSuccess,
				StopWorkflow: stop,
				Attempts:     attemptsMade,
				Timestamp:    time.Now().UTC(),
			}
		}

		lastErr = err

		logger.Warn("Node attempt failed", "attempt", attempt+1, "error", err)
	}

	return e.errorResult(node, attemptsMade, &ExecutionError{NodeID: node.ID, Attempts: attemptsMade, Err: lastErr})
}

// attempt performs one invocation under the node's timeout. If the
// capability ignores cancellation the timeout is still reported upward, but
// the underlying side effect may keep running; that limitation is inherent
// to uncooperative implementations.
func (e *Executor) attempt(ctx context.Context, node *models.WorkflowNode, capability protocol.Capability, executionCtx *models.ExecutionContext, attempt int) (map[string]any, error) {
	attemptCtx := ctx

	var cancel context.CancelFunc

	if node.Timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, node.Timeout)
		defer cancel()
	}

	if e.tracer != nil {
		var span trace.Span

		attemptCtx, span = e.tracer.Start(attemptCtx, "node.execute",
			trace.WithAttributes(
				attribute.String(otelhelper.ExecutionIDKey, executionCtx.ID),
				attribute.String(otelhelper.NodeIDKey, node.ID),
				attribute.String(otelhelper.NodeTypeKey, node.Type),
				attribute.Int(otelhelper.AttemptKey, attempt+1),
			))
		defer span.End()
	}

	type outcome struct {
		output map[string]any
		err    error
	}

	done := make(chan outcome, 1)

	go func() {
		output, err := capability.Execute(attemptCtx, *executionCtx, e.logger)
		done <- outcome{output: output, err: err}
	}()

	select {
	case result := <-done:
		if result.err != nil && e.tracer != nil {
			otelhelper.SetError(trace.SpanFromContext(attemptCtx), result.err)
		}

		return result.output, result.err
	case <-attemptCtx.Done():
		if attemptCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, node.Timeout)
		}

		return nil, attemptCtx.Err()
	}
}

// sleepBackoff waits base*2^n capped, with ±20% jitter, honoring ctx.
func (e *Executor) sleepBackoff(ctx context.Context, n int) error {
	delay := e.backoffBase << n
	if delay > e.backoffCap || delay <= 0 {
		delay = e.backoffCap
	}

	jitter := 1 + jitterFraction*(2*rand.Float64()-1)
	delay = time.Duration(float64(delay) * jitter)

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Executor) errorResult(node *models.WorkflowNode, attempts int, err error) models.NodeResult {
	return models.NodeResult{
		NodeID:    node.ID,
		Status:    models.NodeStatusError,
		Error:     err.Error(),
		HasError:  true,
		Attempts:  attempts,
		Timestamp: time.Now().UTC(),
	}
}
