package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/calldojo/calldojo-api/internal/engine"
	"github.com/calldojo/calldojo-api/internal/service"
	"github.com/calldojo/calldojo-api/internal/utils"
)

// ReportHandler exposes post-call report queries.
type ReportHandler struct {
	reports service.ReportService
	logger  zerolog.Logger
}

// NewReportHandler constructs a report handler.
func NewReportHandler(reports service.ReportService, logger zerolog.Logger) *ReportHandler {
	return &ReportHandler{
		reports: reports,
		logger:  logger.With().Str("component", "report_handler").Logger(),
	}
}

// Register wires report routes.
func (h *ReportHandler) Register(router fiber.Router) {
	router.Get("/", h.query)
}

// query serves both lookup styles: ?sessionId= returns a single session
// report, ?studentId= returns the student's full history with a summary.
func (h *ReportHandler) query(c *fiber.Ctx) error {
	sessionID := strings.TrimSpace(c.Query("sessionId"))
	studentID := strings.TrimSpace(c.Query("studentId"))
	scenarioID := strings.TrimSpace(c.Query("scenarioId"))

	switch {
	case sessionID != "":
		report, err := h.reports.SessionReport(c.Context(), sessionID, scenarioID)
		if err != nil {
			return h.handleError(c, err)
		}
		return utils.SendSuccess(c, "session report retrieved", report)
	case studentID != "":
		reports, err := h.reports.StudentReports(c.Context(), studentID, scenarioID)
		if err != nil {
			return h.handleError(c, err)
		}
		meta := fiber.Map{"count": len(reports.Reports)}
		return utils.OK(c, reports, "student reports retrieved", meta)
	default:
		return utils.SendError(c, fiber.StatusBadRequest, "sessionId or studentId query parameter is required")
	}
}

func (h *ReportHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "session not found")
	case errors.Is(err, engine.ErrScenarioNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "scenario not found")
	default:
		h.logger.Error().Err(err).Msg("failed to build report")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to build report")
	}
}
