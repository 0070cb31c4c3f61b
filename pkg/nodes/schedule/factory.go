// Package schedule provides the cron-based trigger for starting executions
// on a schedule.
package schedule

import (
	"log/slog"

	"github.com/windlass-io/windlass/pkg/protocol"
)

// Factory creates Trigger instances.
type Factory struct{}

// NewFactory creates a new factory instance.
func NewFactory() protocol.TriggerFactory {
	return &Factory{}
}

// Create creates a new Trigger instance.
func (f *Factory) Create(config map[string]any, logger *slog.Logger) (protocol.Trigger, error) {
	return NewTrigger(config, logger)
}

// ID returns the factory ID.
func (f *Factory) ID() string {
	return "schedule"
}
