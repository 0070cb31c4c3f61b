package web

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/windlass-io/windlass/pkg/engine"
	"github.com/windlass-io/windlass/pkg/plan"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusBadRequest).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusNotFound).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func conflict(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusConflict).
		WithInstance(c.Path()).
		WithType("conflict").
		WithDetail(detail)

	return c.Status(fiber.StatusConflict).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(fiber.StatusInternalServerError).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleEngineError maps engine errors onto problem responses.
func handleEngineError(c fiber.Ctx, err error) error {
	var validationErr *plan.ValidationError

	switch {
	case errors.As(err, &validationErr):
		problem := problems.NewStatusProblem(fiber.StatusUnprocessableEntity).
			WithInstance(c.Path()).
			WithType("workflow_invalid").
			WithDetail(strings.Join(validationErr.Violations, "; "))

		return c.Status(fiber.StatusUnprocessableEntity).JSON(problem)

	case errors.Is(err, engine.ErrExecutionNotFound):
		return notFound(c, err.Error())

	case errors.Is(err, engine.ErrExecutionRunning),
		errors.Is(err, engine.ErrExecutionNotRunning),
		errors.Is(err, engine.ErrNotResumable):
		return conflict(c, err.Error())

	default:
		return internalError(c, err)
	}
}
