package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/windlass-io/windlass/pkg/protocol"
)

// Trigger fires workflow executions on a cron schedule.
type Trigger struct {
	workflowID string
	expression string
	timezone   string
	logger     *slog.Logger

	cron    *cron.Cron
	entryID cron.EntryID
}

// NewTrigger creates a schedule trigger.
func NewTrigger(config map[string]any, logger *slog.Logger) (*Trigger, error) {
	expression, ok := config["cron_expression"].(string)
	if !ok || expression == "" {
		return nil, errors.New("cron_expression is required")
	}

	workflowID, _ := config["workflow_id"].(string)

	timezone := "UTC"
	if tz, ok := config["timezone"].(string); ok && tz != "" {
		timezone = tz
	}

	return &Trigger{
		workflowID: workflowID,
		expression: expression,
		timezone:   timezone,
		logger:     logger.With("module", "schedule_trigger"),
	}, nil
}

// Validate checks the cron expression and timezone without scheduling.
func (t *Trigger) Validate() error {
	if _, err := cron.ParseStandard(t.expression); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", t.expression, err)
	}

	if _, err := time.LoadLocation(t.timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", t.timezone, err)
	}

	return nil
}

// Start schedules the trigger. Each firing invokes the callback with the
// scheduled time as trigger data.
func (t *Trigger) Start(ctx context.Context, callback protocol.TriggerCallback) error {
	if err := t.Validate(); err != nil {
		return err
	}

	location, err := time.LoadLocation(t.timezone)
	if err != nil {
		return err
	}

	t.cron = cron.New(cron.WithLocation(location))

	entryID, err := t.cron.AddFunc(t.expression, func() {
		fireCtx := context.WithoutCancel(ctx)
		data := map[string]any{
			"scheduled_time":  time.Now().In(location).Format(time.RFC3339),
			"cron_expression": t.expression,
			"timezone":        t.timezone,
		}

		if err := callback(fireCtx, t.workflowID, data); err != nil {
			t.logger.Error("Scheduled trigger failed to start execution",
				"workflow_id", t.workflowID,
				"error", err,
			)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule cron entry: %w", err)
	}

	t.entryID = entryID
	t.cron.Start()
	t.logger.Info("Schedule trigger started",
		"workflow_id", t.workflowID,
		"cron_expression", t.expression,
		"timezone", t.timezone,
	)

	return nil
}

// Stop halts the schedule and waits for a running firing to finish.
func (t *Trigger) Stop(ctx context.Context) error {
	if t.cron == nil {
		return nil
	}

	stopCtx := t.cron.Stop()

	select {
	case <-stopCtx.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
