package transform

import (
	"context"
	"errors"
	"log/slog"

	"github.com/windlass-io/windlass/pkg/models"
)

// Node projects already-rendered configuration values into its output. The
// heavy lifting happens in the configuration templates, which the executor
// renders against the accumulated execution state right before Create; the
// node itself just shapes the result.
type Node struct {
	expression any
	fields     map[string]any
	hasExpr    bool
}

// NewNode creates a transform node.
func NewNode(config map[string]any) (*Node, error) {
	expression, hasExpr := config["expression"]
	fields, _ := config["fields"].(map[string]any)

	if !hasExpr && len(fields) == 0 {
		return nil, errors.New("transform needs an 'expression' or a non-empty 'fields' map")
	}

	return &Node{expression: expression, fields: fields, hasExpr: hasExpr}, nil
}

// Execute returns the reshaped data.
func (n *Node) Execute(_ context.Context, _ models.ExecutionContext, _ *slog.Logger) (map[string]any, error) {
	output := make(map[string]any, len(n.fields)+1)

	for key, value := range n.fields {
		output[key] = value
	}

	if n.hasExpr {
		output["result"] = n.expression
	}

	return output, nil
}
