package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gradia-go-api/internal/dto"
	"github.com/noah-isme/gradia-go-api/internal/service"
	"github.com/noah-isme/gradia-go-api/internal/utils"
)

// GradingHandler wires the AI grading endpoints.
type GradingHandler struct {
	grading service.GradingService
	batch   service.BatchGradingService
	logger  zerolog.Logger
}

// NewGradingHandler constructs the handler.
func NewGradingHandler(grading service.GradingService, batch service.BatchGradingService, logger zerolog.Logger) *GradingHandler {
	return &GradingHandler{
		grading: grading,
		batch:   batch,
		logger:  logger.With().Str("component", "grading_handler").Logger(),
	}
}

// Register attaches grading endpoints to the router group.
func (h *GradingHandler) Register(router fiber.Router) {
	router.Get("/", h.listQueue)
	router.Post("/", h.grade)
	router.Post("/batch", h.batchGrade)
	router.Get("/:id/feedback", h.getFeedback)
}

func (h *GradingHandler) getFeedback(c *fiber.Ctx) error {
	submissionID, err := c.ParamsInt("id")
	if err != nil || submissionID <= 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid submission id")
	}

	actor := auditActorFromContext(c)
	draft, err := h.grading.GetFeedback(c.Context(), uint(submissionID), actor)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSubmissionNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "submission not found")
		case errors.Is(err, service.ErrAssignmentNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "assignment not found")
		case errors.Is(err, service.ErrAssignmentForbidden):
			return utils.SendError(c, fiber.StatusForbidden, "you do not have access to this assignment")
		case errors.Is(err, service.ErrFeedbackNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "no feedback draft for this submission")
		default:
			h.logger.Error().Err(err).Int("submission_id", submissionID).Msg("failed to load feedback draft")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to load feedback draft")
		}
	}

	return utils.SendSuccess(c, "feedback draft", draft)
}

func (h *GradingHandler) listQueue(c *fiber.Ctx) error {
	assignmentID, err := parseQueryUint(c, "assignment_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid assignment_id")
	}

	req := dto.SubmissionQueueRequest{AssignmentID: assignmentID}
	if status := c.Query("status"); status != "" {
		req.Status = &status
	}

	actor := auditActorFromContext(c)
	items, err := h.grading.ListQueue(c.Context(), req, actor)
	if err != nil {
		if isValidationError(err) {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		h.logger.Error().Err(err).Msg("failed to list grading queue")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list grading queue")
	}

	return utils.SendSuccess(c, "grading queue", items)
}

func (h *GradingHandler) grade(c *fiber.Ctx) error {
	var payload dto.GradeSubmissionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	actor := auditActorFromContext(c)
	result, err := h.grading.Grade(c.Context(), payload, actor)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSubmissionNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "submission not found")
		case errors.Is(err, service.ErrAssignmentNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "assignment not found")
		case errors.Is(err, service.ErrAssignmentForbidden):
			return utils.SendError(c, fiber.StatusForbidden, "you do not have access to this assignment")
		case errors.Is(err, service.ErrRubricMissing):
			return utils.SendError(c, fiber.StatusBadRequest, "assignment has no rubric, create a rubric before grading")
		case errors.Is(err, service.ErrInvalidGradeTarget):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		default:
			h.logger.Error().Err(err).Msg("failed to grade submission")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to grade submission, try again")
		}
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission graded", result)
}

func (h *GradingHandler) batchGrade(c *fiber.Ctx) error {
	var payload dto.BatchGradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	actor := auditActorFromContext(c)
	result, err := h.batch.BatchGrade(c.Context(), payload, actor)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAssignmentNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "assignment not found")
		case errors.Is(err, service.ErrAssignmentForbidden):
			return utils.SendError(c, fiber.StatusForbidden, "you do not have access to this assignment")
		case errors.Is(err, service.ErrRubricMissing):
			return utils.SendError(c, fiber.StatusBadRequest, "assignment has no rubric, create a rubric before grading")
		case errors.Is(err, service.ErrBatchInProgress):
			return utils.SendError(c, fiber.StatusConflict, "batch grading already in progress for this assignment")
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		default:
			h.logger.Error().Err(err).Uint("assignment_id", payload.AssignmentID).Msg("failed to batch grade submissions")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to batch grade submissions")
		}
	}

	return utils.SendSuccess(c, "batch grading finished", result)
}
