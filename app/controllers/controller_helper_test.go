package controllers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andinosoft/contaflow/internal/pkg/payments"
	"github.com/andinosoft/contaflow/internal/pkg/wompi"
)

func TestFormatTimePtr(t *testing.T) {
	assert.Nil(t, formatTimePtr(nil))

	now := time.Date(2026, 5, 1, 12, 34, 56, 0, time.UTC)
	formatted := formatTimePtr(&now)
	assert.Equal(t, now.Format(time.RFC3339), formatted)
}

func renderErrorStatus(t *testing.T, err error) int {
	t.Helper()

	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return renderError(c, err)
	})
	resp, reqErr := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, reqErr)
	return resp.StatusCode
}

func TestRenderErrorMapping(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest,
		renderErrorStatus(t, payments.NewValidationError("bad input")))
	assert.Equal(t, http.StatusNotFound,
		renderErrorStatus(t, payments.ErrNotFound))
	assert.Equal(t, http.StatusConflict,
		renderErrorStatus(t, &payments.ConflictError{Reference: "R", CurrentStatus: "FAILED", AttemptedStatus: "COMPLETED"}))
	assert.Equal(t, http.StatusBadGateway,
		renderErrorStatus(t, &wompi.ProviderError{StatusCode: 503}))
	assert.Equal(t, http.StatusInternalServerError,
		renderErrorStatus(t, errors.New("boom")))
}

func TestGetClientIP(t *testing.T) {
	app := fiber.New()
	app.Get("/ip", func(c *fiber.Ctx) error {
		return c.SendString(GetClientIP(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.Header.Set("CF-Connecting-IP", "203.0.113.7")
	req.Header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.1")
	resp, err := app.Test(req)
	require.NoError(t, err)
	body := make([]byte, 64)
	n, _ := resp.Body.Read(body)
	assert.Equal(t, "203.0.113.7", string(body[:n]))

	req = httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.1")
	resp, err = app.Test(req)
	require.NoError(t, err)
	n, _ = resp.Body.Read(body)
	assert.Equal(t, "198.51.100.1", string(body[:n]))
}
