package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/calldojo/calldojo-api/internal/dto"
	"github.com/calldojo/calldojo-api/internal/service"
	"github.com/calldojo/calldojo-api/internal/utils"
)

// SessionHandler exposes call session lifecycle and conversation endpoints.
type SessionHandler struct {
	service service.CallService
	logger  zerolog.Logger
}

// NewSessionHandler constructs a session handler.
func NewSessionHandler(service service.CallService, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		service: service,
		logger:  logger.With().Str("component", "session_handler").Logger(),
	}
}

// Register wires session routes.
func (h *SessionHandler) Register(router fiber.Router) {
	router.Post("/", h.create)
	router.Get("/", h.list)
	router.Get("/:id", h.get)
	router.Patch("/:id", h.update)
	router.Delete("/:id", h.remove)
	router.Get("/:id/messages", h.transcript)
	router.Post("/:id/messages", h.addMessage)
	router.Post("/:id/respond", h.respond)
	router.Post("/:id/end", h.end)
}

func (h *SessionHandler) create(c *fiber.Ctx) error {
	var payload dto.SessionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	session, err := h.service.CreateSession(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err, "failed to create session")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "session created", session)
}

func (h *SessionHandler) list(c *fiber.Ctx) error {
	sessions, err := h.service.ListSessions(c.Context())
	if err != nil {
		return h.handleError(c, err, "failed to list sessions")
	}

	meta := fiber.Map{"count": len(sessions)}
	return utils.OK(c, sessions, "sessions retrieved", meta)
}

func (h *SessionHandler) get(c *fiber.Ctx) error {
	session, err := h.service.GetSession(c.Context(), c.Params("id"))
	if err != nil {
		return h.handleError(c, err, "failed to fetch session")
	}

	return utils.SendSuccess(c, "session retrieved", session)
}

func (h *SessionHandler) update(c *fiber.Ctx) error {
	var payload dto.SessionUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	session, err := h.service.UpdateSession(c.Context(), c.Params("id"), payload)
	if err != nil {
		return h.handleError(c, err, "failed to update session")
	}

	return utils.SendSuccess(c, "session updated", session)
}

func (h *SessionHandler) remove(c *fiber.Ctx) error {
	if err := h.service.DeleteSession(c.Context(), c.Params("id")); err != nil {
		return h.handleError(c, err, "failed to delete session")
	}

	return utils.SendSuccess(c, "session deleted", nil)
}

func (h *SessionHandler) transcript(c *fiber.Ctx) error {
	conversation, err := h.service.Transcript(c.Context(), c.Params("id"))
	if err != nil {
		return h.handleError(c, err, "failed to fetch conversation")
	}

	meta := fiber.Map{"count": len(conversation.Turns)}
	return utils.OK(c, conversation, "conversation retrieved", meta)
}

func (h *SessionHandler) addMessage(c *fiber.Ctx) error {
	var payload dto.MessageRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	turn, err := h.service.AddMessage(c.Context(), c.Params("id"), payload)
	if err != nil {
		return h.handleError(c, err, "failed to record message")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "message recorded", turn)
}

func (h *SessionHandler) respond(c *fiber.Ctx) error {
	var payload dto.RespondRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.Respond(c.Context(), c.Params("id"), payload)
	if err != nil {
		return h.handleError(c, err, "failed to process turn")
	}

	return utils.SendSuccess(c, "turn processed", result)
}

func (h *SessionHandler) end(c *fiber.Ctx) error {
	var payload struct {
		TerminalNodeID string `json:"terminal_node_id"`
	}
	// Body is optional: an empty body ends the call without a terminal node.
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
		}
	}

	session, err := h.service.EndCall(c.Context(), c.Params("id"), payload.TerminalNodeID)
	if err != nil {
		return h.handleError(c, err, "failed to end session")
	}

	return utils.SendSuccess(c, "session ended", session)
}

func (h *SessionHandler) handleError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "session not found")
	case errors.Is(err, service.ErrScenarioNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "scenario not found")
	case errors.Is(err, service.ErrSessionCompleted):
		return utils.SendError(c, fiber.StatusConflict, "session already completed")
	case errors.Is(err, service.ErrConversationStuck):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, "could not determine next step in conversation")
	case errors.Is(err, service.ErrInvalidTerminalNode):
		return utils.SendError(c, fiber.StatusBadRequest, "invalid terminal node")
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg(fallback)
		return utils.SendError(c, fiber.StatusInternalServerError, fallback)
	}
}
