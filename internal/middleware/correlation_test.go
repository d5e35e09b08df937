package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/calldojo/calldojo-api/internal/middleware"
)

func TestCorrelationIDGeneratedWhenMissing(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.CorrelationID())

	var seen string
	app.Get("/", func(c *fiber.Ctx) error {
		seen = middleware.GetCorrelationID(c)
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.NotEmpty(t, seen)
	require.Equal(t, seen, resp.Header.Get("X-Correlation-ID"))
}

func TestCorrelationIDPropagatedFromHeader(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.CorrelationID())

	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Correlation-ID", "trace-123")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, "trace-123", resp.Header.Get("X-Correlation-ID"))
}
