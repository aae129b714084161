package controllers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HandleGetStripeCheckoutSession reads a checkout session from Stripe. This
// surface is read-only: Stripe-side payments are reconciled manually and the
// endpoint only exposes the session state for support tooling.
func HandleGetStripeCheckoutSession(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if id == "" || !strings.HasPrefix(id, "cs_") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid checkout session id"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	session, err := stripeClient.GetCheckoutSession(ctx, id)
	if err != nil {
		return renderError(c, err)
	}

	return c.JSON(fiber.Map{"checkout_session": session})
}
