// Package approval provides the human approval gate node for workflow graphs.
package approval

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
	return "approval"
}

// Name returns the factory name.
func (f *Factory) Name() string {
	return "Approval Gate"
}

// Description returns the factory description.
func (f *Factory) Description() string {
	return "Stops the execution for out-of-band review; resuming the execution continues past the gate"
}

// Schema returns the JSON schema for approval node configuration.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "Prompt shown to the approver.",
			},
			"approver": map[string]any{
				"type":        "string",
				"description": "Identifier of the person or group expected to approve.",
			},
		},
	}
}
