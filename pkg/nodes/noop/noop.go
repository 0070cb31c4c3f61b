// Package noop provides a node that does nothing, for wiring and testing
// workflow graphs.
package noop

import (
	"context"
	"log/slog"

	"github.com/windlass-io/windlass/pkg/models"
	"github.com/windlass-io/windlass/pkg/protocol"
)

type Factory struct{}

func NewFactory() protocol.CapabilityFactory {
	return &Factory{}
}

func (f *Factory) Create(config map[string]any) (protocol.Capability, error) {
	data, _ := config["data"].(map[string]any)

	return &Node{data: data}, nil
}

func (f *Factory) ID() string { return "noop" }

func (f *Factory) Name() string { return "No-op" }

func (f *Factory) Description() string {
	return "Does nothing and succeeds, optionally echoing its 'data' configuration"
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"data": map[string]any{
				"type":        "object",
				"description": "Echoed verbatim as the node's output.",
			},
		},
	}
}

// Node succeeds without side effects.
type Node struct {
	data map[string]any
}

func (n *Node) Execute(_ context.Context, _ models.ExecutionContext, _ *slog.Logger) (map[string]any, error) {
	output := map[string]any{"ok": true}
	for key, value := range n.data {
		output[key] = value
	}

	return output, nil
}
