package web

import (
	"errors"

	"github.com/dukex/facilitator/pkg/persistence"
	"github.com/dukex/facilitator/pkg/services"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, kind, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType(kind).
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError maps service errors to problem responses. Absent
// entities get a neutral 404 that does not echo the requested id.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case services.IsValidationError(err):
		detail := err.Error()

		var serviceErr *services.ServiceError
		if errors.As(err, &serviceErr) && serviceErr.Message != "" {
			detail = serviceErr.Message
		}

		return badRequest(c, detail)

	case services.IsConflictError(err):
		problem := problems.NewStatusProblem(409).
			WithInstance(c.Path()).
			WithType("conflict").
			WithDetail(err.Error())

		return c.Status(fiber.StatusConflict).JSON(problem)

	case persistence.IsSessionNotFound(err):
		return notFound(c, "session_not_found", "session not found")

	case persistence.IsParticipantNotFound(err):
		return notFound(c, "participant_not_found", "participant not found")

	case persistence.IsWorkshopNotFound(err):
		return notFound(c, "workshop_not_found", "workshop not found")

	case persistence.IsDraftNotFound(err):
		return notFound(c, "draft_not_found", "draft not found")

	case persistence.IsSessionRecordNotFound(err):
		return notFound(c, "session_record_not_found", "session record not found")

	default:
		return internalError(c, err)
	}
}
