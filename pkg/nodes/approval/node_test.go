package approval

import (
	"context"
	"log/slog"
	"testing"

	"github.com/windlass-io/windlass/pkg/models"
	"github.com/windlass-io/windlass/pkg/protocol"
)

func TestNode_RaisesStopSignal(t *testing.T) {
	config := map[string]any{
		"message":  "Deploy to production?",
		"approver": "oncall",
	}

	node, err := NewNode(config)
	if err != nil {
		t.Fatalf("Failed to create node: %v", err)
	}

	output, err := node.Execute(context.Background(), models.ExecutionContext{ID: "test-exec"}, slog.Default())
	if err != nil {
		t.Fatalf("Node execution failed: %v", err)
	}

	if stop, _ := output[protocol.StopSignalKey].(bool); !stop {
		t.Error("Expected the stop signal to be raised")
	}

	if output["approval"] != "pending" {
		t.Errorf("Expected approval 'pending', got: %v", output["approval"])
	}

	if output["approver"] != "oncall" {
		t.Errorf("Expected approver 'oncall', got: %v", output["approver"])
	}
}

func TestNode_DefaultMessage(t *testing.T) {
	node, err := NewNode(map[string]any{})
	if err != nil {
		t.Fatalf("Failed to create node: %v", err)
	}

	if node.message != "approval required" {
		t.Errorf("Expected default message, got: %s", node.message)
	}
}
