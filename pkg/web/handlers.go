// Package web exposes the execution REST API.
package web

import (
	"log/slog"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/windlass-io/windlass/pkg/engine"
	"github.com/windlass-io/windlass/pkg/models"
	"github.com/windlass-io/windlass/pkg/registry"
)

type APIHandlers struct {
	engine   *engine.Engine
	registry *registry.Registry
	validate *validator.Validate
	logger   *slog.Logger
}

func NewAPIHandlers(eng *engine.Engine, reg *registry.Registry, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		engine:   eng,
		registry: reg,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.With("module", "web"),
	}
}

// App builds the fiber application with all routes mounted.
func (h *APIHandlers) App() *fiber.App {
	app := fiber.New()
	app.Use(cors.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Windlass API")
	})

	e := app.Group("/executions")
	e.Post("/", h.SubmitExecution)
	e.Get("/:id", h.GetExecution)
	e.Post("/:id/cancel", h.CancelExecution)
	e.Post("/:id/resume", h.ResumeExecution)

	app.Get("/node-types", h.GetNodeTypes)

	return app
}

// SubmitExecution validates and starts a workflow execution. The run is
// asynchronous; the response carries the execution id to poll.
func (h *APIHandlers) SubmitExecution(c fiber.Ctx) error {
	var req SubmitExecutionRequest

	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validate.Struct(&req); err != nil {
		return badRequest(c, "Invalid request: "+err.Error())
	}

	executionID, err := h.engine.Submit(c.Context(), req.Workflow, req.TriggerData)
	if err != nil {
		return handleEngineError(c, err)
	}

	h.logger.Info("Execution submitted",
		"execution_id", executionID,
		"workflow_id", req.Workflow.ID,
	)

	return c.Status(fiber.StatusAccepted).JSON(SubmitExecutionResponse{
		ExecutionID: executionID,
		WorkflowID:  req.Workflow.ID,
		Status:      models.ExecutionStatusPending,
	})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	status, err := h.engine.GetStatus(c.Context(), id)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(status)
}

func (h *APIHandlers) CancelExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	if err := h.engine.Cancel(c.Context(), id); err != nil {
		return handleEngineError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"execution_id": id,
		"cancelling":   true,
	})
}

func (h *APIHandlers) ResumeExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	if err := h.engine.Resume(c.Context(), id); err != nil {
		return handleEngineError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"execution_id": id,
		"status":       models.ExecutionStatusRunning,
	})
}

// GetNodeTypes lists the registered node types with their schemas.
func (h *APIHandlers) GetNodeTypes(c fiber.Ctx) error {
	ids := h.registry.CapabilityTypes()
	sort.Strings(ids)

	infos := make([]NodeTypeInfo, 0, len(ids))

	for _, id := range ids {
		factory, err := h.registry.Resolve(id)
		if err != nil {
			continue
		}

		infos = append(infos, NodeTypeInfo{
			ID:          factory.ID(),
			Name:        factory.Name(),
			Description: factory.Description(),
			Schema:      factory.Schema(),
		})
	}

	return c.JSON(fiber.Map{"node_types": infos})
}
