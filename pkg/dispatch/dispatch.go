// Package dispatch runs trigger sources for registered workflows and submits
// an execution each time one fires.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/windlass-io/windlass/pkg/models"
	"github.com/windlass-io/windlass/pkg/protocol"
	"github.com/windlass-io/windlass/pkg/registry"
)

// Submitter starts workflow executions. *engine.Engine satisfies it.
type Submitter interface {
	Submit(ctx context.Context, workflow *models.Workflow, triggerData map[string]any) (string, error)
}

// Dispatcher owns the trigger instances of registered workflows. A trigger
// node opts into a source with the config key "source" naming a registered
// trigger type; trigger nodes without a source only start through the
// submission API.
type Dispatcher struct {
	submitter Submitter
	registry  *registry.Registry
	logger    *slog.Logger

	mu        sync.Mutex
	workflows map[string]*models.Workflow
	triggers  []protocol.Trigger
}

func NewDispatcher(submitter Submitter, reg *registry.Registry, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		submitter: submitter,
		registry:  reg,
		logger:    logger.With("module", "dispatch"),
		workflows: make(map[string]*models.Workflow),
	}
}

// Register creates and validates a trigger instance for every sourced
// trigger node of the workflow. The workflow id is injected into each
// trigger's configuration so a firing can name the workflow to start.
func (d *Dispatcher) Register(workflow *models.Workflow) error {
	for _, node := range workflow.Nodes {
		if !node.IsTrigger() {
			continue
		}

		sourceType, _ := node.Config["source"].(string)
		if sourceType == "" {
			continue
		}

		config := make(map[string]any, len(node.Config)+1)
		for key, value := range node.Config {
			config[key] = value
		}

		config["workflow_id"] = workflow.ID

		trigger, err := d.registry.CreateTrigger(sourceType, config)
		if err != nil {
			return fmt.Errorf("workflow %s node %s: %w", workflow.ID, node.ID, err)
		}

		if err := trigger.Validate(); err != nil {
			return fmt.Errorf("workflow %s node %s: %w", workflow.ID, node.ID, err)
		}

		d.mu.Lock()
		d.workflows[workflow.ID] = workflow
		d.triggers = append(d.triggers, trigger)
		d.mu.Unlock()

		d.logger.Info("Trigger registered",
			"workflow_id", workflow.ID,
			"node_id", node.ID,
			"source", sourceType,
		)
	}

	return nil
}

// Start launches every registered trigger. Each firing submits a new
// execution carrying the trigger's payload as trigger data.
func (d *Dispatcher) Start(ctx context.Context) error {
	for _, trigger := range d.snapshotTriggers() {
		if err := trigger.Start(ctx, d.fire); err != nil {
			return err
		}
	}

	return nil
}

// Stop halts every trigger. Every stop is attempted; failures are joined.
func (d *Dispatcher) Stop(ctx context.Context) error {
	var errs []error

	for _, trigger := range d.snapshotTriggers() {
		if err := trigger.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (d *Dispatcher) snapshotTriggers() []protocol.Trigger {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]protocol.Trigger(nil), d.triggers...)
}

func (d *Dispatcher) fire(ctx context.Context, workflowID string, data map[string]any) error {
	d.mu.Lock()
	workflow, ok := d.workflows[workflowID]
	d.mu.Unlock()

	if !ok {
		return fmt.Errorf("no workflow registered under id %q", workflowID)
	}

	executionID, err := d.submitter.Submit(ctx, workflow, data)
	if err != nil {
		return err
	}

	d.logger.Info("Trigger fired",
		"workflow_id", workflowID,
		"execution_id", executionID,
	)

	return nil
}

// LoadWorkflows reads every *.json workflow definition in dir.
func LoadWorkflows(dir string) ([]*models.Workflow, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow directory: %w", err)
	}

	var workflows []*models.Workflow

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read workflow file %s: %w", entry.Name(), err)
		}

		var workflow models.Workflow
		if err := json.Unmarshal(data, &workflow); err != nil {
			return nil, fmt.Errorf("failed to parse workflow file %s: %w", entry.Name(), err)
		}

		workflows = append(workflows, &workflow)
	}

	return workflows, nil
}
