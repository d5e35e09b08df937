package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/calldojo/calldojo-api/internal/config"
	"github.com/calldojo/calldojo-api/internal/handler"
	"github.com/calldojo/calldojo-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	SessionHandler    *handler.SessionHandler
	ScenarioHandler   *handler.ScenarioHandler
	EvaluationHandler *handler.EvaluationHandler
	ReportHandler     *handler.ReportHandler
	ScenarioCount     func() int
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.ScenarioCount))

	if deps.ScenarioHandler != nil {
		deps.ScenarioHandler.Register(api.Group("/scenarios"))
	}

	if deps.SessionHandler != nil {
		deps.SessionHandler.Register(api.Group("/sessions"))
	}

	if deps.EvaluationHandler != nil {
		deps.EvaluationHandler.Register(api.Group("/evaluations"))
	}

	if deps.ReportHandler != nil {
		deps.ReportHandler.Register(api.Group("/reports"))
	}
}
