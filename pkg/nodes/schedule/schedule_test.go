package schedule

import (
	"log/slog"
	"testing"
)

func TestNewTrigger_RequiresExpression(t *testing.T) {
	if _, err := NewTrigger(map[string]any{}, slog.Default()); err == nil {
		t.Error("Expected error for missing cron_expression")
	}
}

func TestTrigger_Validate(t *testing.T) {
	trigger, err := NewTrigger(map[string]any{
		"cron_expression": "*/5 * * * *",
		"workflow_id":     "wf-1",
	}, slog.Default())
	if err != nil {
		t.Fatalf("Failed to create trigger: %v", err)
	}

	if err := trigger.Validate(); err != nil {
		t.Errorf("Expected valid expression, got: %v", err)
	}
}

func TestTrigger_Validate_BadExpression(t *testing.T) {
	trigger, err := NewTrigger(map[string]any{
		"cron_expression": "not-a-cron",
	}, slog.Default())
	if err != nil {
		t.Fatalf("Failed to create trigger: %v", err)
	}

	if err := trigger.Validate(); err == nil {
		t.Error("Expected error for invalid expression")
	}
}

func TestTrigger_Validate_BadTimezone(t *testing.T) {
	trigger, err := NewTrigger(map[string]any{
		"cron_expression": "* * * * *",
		"timezone":        "Mars/Olympus",
	}, slog.Default())
	if err != nil {
		t.Fatalf("Failed to create trigger: %v", err)
	}

	if err := trigger.Validate(); err == nil {
		t.Error("Expected error for invalid timezone")
	}
}
