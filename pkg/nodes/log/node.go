package log

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/windlass-io/windlass/pkg/models"
)

// Node logs one message into the execution's structured log stream. The
// message arrives already rendered; unresolved references were rejected
// before the node was created.
type Node struct {
	message string
	level   string
}

// NewNode creates a logging node.
func NewNode(config map[string]any) (*Node, error) {
	message, ok := config["message"].(string)
	if !ok {
		message = fmt.Sprintf("%v", config["message"])
		if config["message"] == nil {
			return nil, errors.New("missing required field 'message'")
		}
	}

	level := "info"
	if lvl, ok := config["level"].(string); ok && lvl != "" {
		level = lvl
	}

	switch level {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log level '%s' (must be debug, info, warn, or error)", level)
	}

	return &Node{message: message, level: level}, nil
}

// Execute logs the message.
func (n *Node) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("node_type", "log", "execution_id", executionCtx.ID)

	switch n.level {
	case "debug":
		logger.DebugContext(ctx, n.message)
	case "warn":
		logger.WarnContext(ctx, n.message)
	case "error":
		logger.ErrorContext(ctx, n.message)
	default:
		logger.InfoContext(ctx, n.message)
	}

	return map[string]any{
		"message": n.message,
		"level":   n.level,
		"logged":  true,
	}, nil
}
