// Package transform provides the data reshaping node for workflow graphs.
package transform

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
	return "transform"
}

// Name returns the factory name.
func (f *Factory) Name() string {
	return "Transform"
}

// Description returns the factory description.
func (f *Factory) Description() string {
	return "Reshapes accumulated execution data into a new structure using templated expressions"
}

// Schema returns the JSON schema for transform node configuration.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"expression": map[string]any{
				"description": "Templated expression whose rendered value becomes the node's 'result' output.",
				"examples": []string{
					"{{.node_results.fetch_user.body.name}}",
					`{"total": {{.node_results.cart.total}}, "currency": "USD"}`,
				},
			},
			"fields": map[string]any{
				"type":        "object",
				"description": "Map of output field names to templated expressions; each rendered value becomes one output field.",
			},
		},
		"anyOf": []map[string]any{
			{"required": []string{"expression"}},
			{"required": []string{"fields"}},
		},
	}
}
