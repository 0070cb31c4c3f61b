// Package log provides the logging node for workflow graphs.
package log

import (
	"github.com/windlass-io/windlass/pkg/protocol"
)

// Factory creates Node instances.
type Factory struct{}

// NewFactory creates a new factory instance.
func NewFactory() protocol.CapabilityFactory {
	return &Factory{}
}

// Create creates a new Node instance from a rendered configuration.
func (f *Factory) Create(config map[string]any) (protocol.Capability, error) {
	return NewNode(config)
}

// ID returns the factory ID.
func (f *Factory) ID() string {
	return "log"
}

// Name returns the factory name.
func (f *Factory) Name() string {
	return "Log"
}

// Description returns the factory description.
func (f *Factory) Description() string {
	return "Logs a message at a chosen level (debug, info, warn, error) with template support for dynamic content"
}

// Schema returns the JSON schema for log node configuration.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "Message to log. Supports templating with execution context data.",
				"examples": []string{
					"Processing user: {{.variables.user_name}}",
					"API call result: {{.node_results.api_call.status}}",
				},
			},
			"level": map[string]any{
				"type":        "string",
				"description": "Log level for the message",
				"enum":        []string{"debug", "info", "warn", "error"},
				"default":     "info",
			},
		},
		"required": []string{"message"},
	}
}
