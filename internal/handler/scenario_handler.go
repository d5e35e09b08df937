package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/calldojo/calldojo-api/internal/dto"
	"github.com/calldojo/calldojo-api/internal/engine"
	"github.com/calldojo/calldojo-api/internal/utils"
)

// ScenarioHandler exposes the read-only scenario catalog.
type ScenarioHandler struct {
	decisions *engine.DecisionEngine
	logger    zerolog.Logger
}

// NewScenarioHandler constructs a scenario handler.
func NewScenarioHandler(decisions *engine.DecisionEngine, logger zerolog.Logger) *ScenarioHandler {
	return &ScenarioHandler{
		decisions: decisions,
		logger:    logger.With().Str("component", "scenario_handler").Logger(),
	}
}

// Register wires scenario routes.
func (h *ScenarioHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Get("/:id", h.get)
}

func (h *ScenarioHandler) list(c *fiber.Ctx) error {
	scenarios := dto.NewScenarioResponseSlice(h.decisions.Scenarios())
	meta := fiber.Map{"count": len(scenarios)}
	return utils.OK(c, scenarios, "scenarios retrieved", meta)
}

func (h *ScenarioHandler) get(c *fiber.Ctx) error {
	scenario, ok := h.decisions.Scenario(c.Params("id"))
	if !ok {
		return utils.SendError(c, fiber.StatusNotFound, "scenario not found")
	}

	return utils.SendSuccess(c, "scenario retrieved", dto.NewScenarioResponse(scenario))
}
