package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/calldojo/calldojo-api/internal/config"
	"github.com/calldojo/calldojo-api/internal/utils"
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Service     string    `json:"service"`
	Environment string    `json:"environment"`
	Scenarios   int       `json:"scenarios"`
}

// HealthCheck returns a handler that reports application health information.
// The scenario count doubles as a readiness signal that the conversation
// flow config loaded.
func HealthCheck(cfg config.Config, scenarioCount func() int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
		}
		if scenarioCount != nil {
			payload.Scenarios = scenarioCount()
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}
