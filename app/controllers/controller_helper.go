package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/andinosoft/contaflow/internal/pkg/payments"
	"github.com/andinosoft/contaflow/internal/pkg/stripe"
	"github.com/andinosoft/contaflow/internal/pkg/wompi"
)

// renderError maps service-layer errors onto the JSON error envelope. Provider
// failures surface as 502 so clients can distinguish them from our own faults.
func renderError(c *fiber.Ctx, err error) error {
	var validationErr *payments.ValidationError
	var conflictErr *payments.ConflictError
	var providerErr *wompi.ProviderError
	var stripeErr *stripe.APIError

	switch {
	case errors.As(err, &validationErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "bad_request",
			"message": validationErr.Msg,
		})
	case errors.Is(err, payments.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "not_found",
			"message": "payment not found",
		})
	case errors.As(err, &conflictErr):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":            "conflict",
			"message":          conflictErr.Error(),
			"current_status":   conflictErr.CurrentStatus,
			"attempted_status": conflictErr.AttemptedStatus,
		})
	case errors.As(err, &providerErr):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":   "provider_error",
			"message": "payment provider request failed",
		})
	case errors.As(err, &stripeErr):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":   "provider_error",
			"message": "payment provider request failed",
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "unexpected error",
		})
	}
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

// GetClientIP determines the actual client IP address considering proxies.
func GetClientIP(c *fiber.Ctx) string {
	if cfIP := c.Get("CF-Connecting-IP"); cfIP != "" {
		return cfIP
	}
	if xff := c.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	return c.IP()
}
