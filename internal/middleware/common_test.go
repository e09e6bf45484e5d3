package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestRegisterPropagatesCorrelationID(t *testing.T) {
	var logs bytes.Buffer
	logger := zerolog.New(&logs)

	app := fiber.New()
	Register(app, Config{Logger: &logger})
	app.Get("/api/v1/health", func(c *fiber.Ctx) error {
		require.Equal(t, "req-123", CorrelationIDFromContext(c.UserContext()))
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "req-123", resp.Header.Get("X-Correlation-ID"))
	require.Contains(t, logs.String(), `"correlation_id":"req-123"`)
	require.Contains(t, logs.String(), `"route":"/api/v1/health"`)
}

func TestRegisterGeneratesCorrelationID(t *testing.T) {
	app := fiber.New()
	Register(app, Config{})
	app.Get("/metrics", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.NotEmpty(t, resp.Header.Get("X-Correlation-ID"))
}

func TestRegisterRecoversFromPanics(t *testing.T) {
	app := fiber.New()
	Register(app, Config{})
	app.Get("/api/v2/boom", func(c *fiber.Ctx) error {
		panic("boom")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v2/boom", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}

func TestCorrelationIDRejectsUnsafeHeaders(t *testing.T) {
	app := fiber.New()
	app.Use(CorrelationID())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Correlation-ID", "has spaces inside")
	resp, err := app.Test(req)
	require.NoError(t, err)

	id := resp.Header.Get("X-Correlation-ID")
	require.NotEqual(t, "has spaces inside", id)
	require.Len(t, id, 36)
}
