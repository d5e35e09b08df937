package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/calldojo/calldojo-api/internal/config"
	"github.com/calldojo/calldojo-api/internal/handler"
)

func TestHealthCheckReportsScenarioCount(t *testing.T) {
	app := fiber.New()
	cfg := config.Config{AppName: "CallDojo API", AppEnv: "test"}
	app.Get("/health", handler.HealthCheck(cfg, func() int { return 2 }))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	payload := decodeEnvelope(t, resp)
	data := payload["data"].(map[string]interface{})
	require.Equal(t, "ok", data["status"])
	require.Equal(t, "CallDojo API", data["service"])
	require.Equal(t, float64(2), data["scenarios"])
}
