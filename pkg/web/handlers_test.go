package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windlass-io/windlass/pkg/engine"
	"github.com/windlass-io/windlass/pkg/executor"
	"github.com/windlass-io/windlass/pkg/models"
	"github.com/windlass-io/windlass/pkg/protocol"
	"github.com/windlass-io/windlass/pkg/registry"
	"github.com/windlass-io/windlass/pkg/snapshot"
)

type okNode struct{}

func (n *okNode) Execute(_ context.Context, _ models.ExecutionContext, _ *slog.Logger) (map[string]any, error) {
	return map[string]any{"ok": true}, nil
}

type okFactory struct{ id string }

func (f *okFactory) Create(_ map[string]any) (protocol.Capability, error) { return &okNode{}, nil }
func (f *okFactory) ID() string                                           { return f.id }
func (f *okFactory) Name() string                                         { return f.id }
func (f *okFactory) Description() string                                  { return "test node" }
func (f *okFactory) Schema() map[string]any                               { return nil }

func setupTestApp(t *testing.T) (*fiber.App, *engine.Engine) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := registry.NewRegistry(logger)
	reg.RegisterCapability(&okFactory{id: "work"})

	manager := snapshot.NewManager(snapshot.NewMemoryStore(logger), 0, logger)
	exec := executor.NewExecutor(reg, logger, executor.WithBackoff(time.Millisecond, 5*time.Millisecond))
	eng := engine.New(reg, exec, manager, nil, logger, engine.Config{})

	handlers := NewAPIHandlers(eng, reg, logger)

	return handlers.App(), eng
}

func submitBody(t *testing.T) *bytes.Reader {
	t.Helper()

	payload, err := json.Marshal(SubmitExecutionRequest{
		Workflow: &models.Workflow{
			ID:   "wf-1",
			Name: "test workflow",
			Nodes: []*models.WorkflowNode{
				{ID: "start", Type: models.NodeTypeTrigger, Name: "start"},
				{ID: "a", Type: "work", Name: "a"},
			},
			Edges: []*models.Edge{
				{ID: "e1", Source: "start", Target: "a"},
			},
		},
		TriggerData: map[string]any{"input": "x"},
	})
	require.NoError(t, err)

	return bytes.NewReader(payload)
}

func closeBody(t *testing.T, resp *http.Response) {
	t.Helper()

	if err := resp.Body.Close(); err != nil {
		t.Logf("Failed to close response body: %v", err)
	}
}

func TestAPI_RootEndpoint(t *testing.T) {
	app, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer closeBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Windlass API", string(body))
}

func TestAPI_HealthCheck(t *testing.T) {
	app, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer closeBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_SubmitExecution(t *testing.T) {
	app, eng := setupTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/executions/", submitBody(t))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer closeBody(t, resp)

	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var submitted SubmitExecutionResponse

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&submitted))
	assert.NotEmpty(t, submitted.ExecutionID)
	assert.Equal(t, "wf-1", submitted.WorkflowID)
	assert.Equal(t, models.ExecutionStatusPending, submitted.Status)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, eng.Wait(ctx, submitted.ExecutionID))
}

func TestAPI_SubmitExecution_InvalidBody(t *testing.T) {
	app, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/executions/", bytes.NewReader([]byte("not json")))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer closeBody(t, resp)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_SubmitExecution_MissingWorkflow(t *testing.T) {
	app, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/executions/", bytes.NewReader([]byte(`{"trigger_data":{}}`)))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer closeBody(t, resp)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_SubmitExecution_ValidationViolations(t *testing.T) {
	app, _ := setupTestApp(t)

	payload, err := json.Marshal(SubmitExecutionRequest{
		Workflow: &models.Workflow{
			ID:   "wf-bad",
			Name: "bad workflow",
			Nodes: []*models.WorkflowNode{
				{ID: "a", Type: "unregistered", Name: "a"},
			},
		},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/executions/", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer closeBody(t, resp)

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestAPI_GetExecution(t *testing.T) {
	app, eng := setupTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/executions/", submitBody(t))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer closeBody(t, resp)

	var submitted SubmitExecutionResponse

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&submitted))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, eng.Wait(ctx, submitted.ExecutionID))

	statusReq := httptest.NewRequest(http.MethodGet, "/executions/"+submitted.ExecutionID, nil)
	statusResp, err := app.Test(statusReq)
	require.NoError(t, err)
	defer closeBody(t, statusResp)

	require.Equal(t, http.StatusOK, statusResp.StatusCode)

	var status engine.Status

	require.NoError(t, json.NewDecoder(statusResp.Body).Decode(&status))
	assert.Equal(t, models.ExecutionStatusCompleted, status.Execution.Status)
	assert.Contains(t, status.NodeResults, "a")
}

func TestAPI_GetExecution_NotFound(t *testing.T) {
	app, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/executions/ghost", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer closeBody(t, resp)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_CancelExecution_NotFound(t *testing.T) {
	app, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/executions/ghost/cancel", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer closeBody(t, resp)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_ResumeExecution_Conflict(t *testing.T) {
	app, eng := setupTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/executions/", submitBody(t))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer closeBody(t, resp)

	var submitted SubmitExecutionResponse

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&submitted))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, eng.Wait(ctx, submitted.ExecutionID))

	resumeReq := httptest.NewRequest(http.MethodPost, "/executions/"+submitted.ExecutionID+"/resume", nil)
	resumeResp, err := app.Test(resumeReq)
	require.NoError(t, err)
	defer closeBody(t, resumeResp)

	assert.Equal(t, http.StatusConflict, resumeResp.StatusCode)
}

func TestAPI_GetNodeTypes(t *testing.T) {
	app, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/node-types", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer closeBody(t, resp)

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		NodeTypes []NodeTypeInfo `json:"node_types"`
	}

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.Len(t, payload.NodeTypes, 1)
	assert.Equal(t, "work", payload.NodeTypes[0].ID)
}
