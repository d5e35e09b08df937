package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/calldojo/calldojo-api/internal/dto"
	"github.com/calldojo/calldojo-api/internal/engine"
	"github.com/calldojo/calldojo-api/internal/service"
	"github.com/calldojo/calldojo-api/internal/utils"
)

// EvaluationHandler exposes the post-call scoring endpoint.
type EvaluationHandler struct {
	reports   service.ReportService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewEvaluationHandler constructs an evaluation handler.
func NewEvaluationHandler(reports service.ReportService, validate *validator.Validate, logger zerolog.Logger) *EvaluationHandler {
	return &EvaluationHandler{
		reports:   reports,
		validator: validate,
		logger:    logger.With().Str("component", "evaluation_handler").Logger(),
	}
}

// Register wires evaluation routes. The GET form mirrors the POST body in
// query parameters for quick manual checks.
func (h *EvaluationHandler) Register(router fiber.Router) {
	router.Post("/", h.evaluate)
	router.Get("/", h.evaluateQuery)
}

func (h *EvaluationHandler) evaluate(c *fiber.Ctx) error {
	var payload dto.EvaluateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.reports.Evaluate(c.Context(), payload.SessionID, payload.ScenarioID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "evaluation completed", result)
}

func (h *EvaluationHandler) evaluateQuery(c *fiber.Ctx) error {
	payload := dto.EvaluateRequest{
		SessionID:  c.Query("sessionId"),
		ScenarioID: c.Query("scenarioId"),
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.reports.Evaluate(c.Context(), payload.SessionID, payload.ScenarioID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "evaluation completed", result)
}

func (h *EvaluationHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "session not found")
	case errors.Is(err, engine.ErrScenarioNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "scenario not found")
	default:
		h.logger.Error().Err(err).Msg("failed to evaluate session")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to evaluate session")
	}
}
