package registry

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windlass-io/windlass/pkg/models"
	"github.com/windlass-io/windlass/pkg/protocol"
)

type echoNode struct{}

func (n *echoNode) Execute(_ context.Context, _ models.ExecutionContext, _ *slog.Logger) (map[string]any, error) {
	return map[string]any{"ok": true}, nil
}

type echoFactory struct {
	schema map[string]any
}

func (f *echoFactory) Create(_ map[string]any) (protocol.Capability, error) {
	return &echoNode{}, nil
}

func (f *echoFactory) ID() string             { return "echo" }
func (f *echoFactory) Name() string           { return "Echo" }
func (f *echoFactory) Description() string    { return "echoes input" }
func (f *echoFactory) Schema() map[string]any { return f.schema }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRegistry_ResolveRegisteredType(t *testing.T) {
	reg := NewRegistry(testLogger())
	reg.RegisterCapability(&echoFactory{})

	factory, err := reg.Resolve("echo")
	require.NoError(t, err)
	assert.Equal(t, "echo", factory.ID())
}

func TestRegistry_ResolveUnknownType(t *testing.T) {
	reg := NewRegistry(testLogger())

	_, err := reg.Resolve("ghost")
	require.Error(t, err)
	assert.True(t, IsNodeTypeNotFound(err))
	assert.Contains(t, err.Error(), "ghost")
}

func TestRegistry_CreateCapability(t *testing.T) {
	reg := NewRegistry(testLogger())
	reg.RegisterCapability(&echoFactory{})

	capability, err := reg.CreateCapability("echo", map[string]any{"x": 1})
	require.NoError(t, err)

	data, err := capability.Execute(context.Background(), models.ExecutionContext{}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, true, data["ok"])
}

func TestRegistry_CapabilityTypes(t *testing.T) {
	reg := NewRegistry(testLogger())
	assert.Empty(t, reg.CapabilityTypes())

	reg.RegisterCapability(&echoFactory{})
	assert.Equal(t, []string{"echo"}, reg.CapabilityTypes())
}

func TestValidateConfig_NoSchemaSkipsValidation(t *testing.T) {
	reg := NewRegistry(testLogger())
	reg.RegisterCapability(&echoFactory{})

	violations, err := reg.ValidateConfig("echo", map[string]any{"anything": "goes"})
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestValidateConfig_SchemaEnforced(t *testing.T) {
	reg := NewRegistry(testLogger())
	reg.RegisterCapability(&echoFactory{
		schema: map[string]any{
			"type":     "object",
			"required": []string{"message"},
			"properties": map[string]any{
				"message": map[string]any{"type": "string"},
			},
		},
	})

	violations, err := reg.ValidateConfig("echo", map[string]any{"message": "hi"})
	require.NoError(t, err)
	assert.Empty(t, violations)

	violations, err = reg.ValidateConfig("echo", map[string]any{})
	require.NoError(t, err)
	require.NotEmpty(t, violations)
	assert.Contains(t, violations[0], "message")
}

func TestValidateConfig_UnknownType(t *testing.T) {
	reg := NewRegistry(testLogger())

	_, err := reg.ValidateConfig("ghost", nil)
	require.Error(t, err)
	assert.True(t, IsNodeTypeNotFound(err))
}

func TestNewDefaultRegistry_RegistersBuiltins(t *testing.T) {
	reg := NewDefaultRegistry(testLogger())

	for _, id := range []string{"log", "transform", "http_request", "approval", "noop"} {
		_, err := reg.Resolve(id)
		assert.NoError(t, err, "builtin %q should be registered", id)
	}

	_, err := reg.CreateTrigger("schedule", map[string]any{
		"cron_expression": "0 * * * *",
		"workflow_id":     "wf-1",
	})
	assert.NoError(t, err)
}
