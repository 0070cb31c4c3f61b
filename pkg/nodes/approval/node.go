package approval

import (
	"context"
	"log/slog"

	"github.com/windlass-io/windlass/pkg/models"
	"github.com/windlass-io/windlass/pkg/protocol"
)

// Node is a pause point. It succeeds immediately but raises the stop signal,
// which parks the execution in the stopped state with a snapshot on disk.
// Resuming the execution walks past this node because its recorded result
// already exists.
type Node struct {
	message  string
	approver string
}

// NewNode creates an approval gate node.
func NewNode(config map[string]any) (*Node, error) {
	message, _ := config["message"].(string)
	if message == "" {
		message = "approval required"
	}

	approver, _ := config["approver"].(string)

	return &Node{message: message, approver: approver}, nil
}

// Execute records the pending approval and asks the orchestrator to stop.
func (n *Node) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger.InfoContext(ctx, "Execution paused for approval",
		"execution_id", executionCtx.ID,
		"approver", n.approver,
		"message", n.message,
	)

	return map[string]any{
		"approval":             "pending",
		"message":              n.message,
		"approver":             n.approver,
		protocol.StopSignalKey: true,
	}, nil
}
