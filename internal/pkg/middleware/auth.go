package middleware

import (
	icuser "github.com/andinosoft/contaflow/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
)

// RequireAuth ensures a logged-in session for API routes and returns JSON 401.
func RequireAuth(c *fiber.Ctx) error {
	if !isLoggedIn(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "login required",
		})
	}
	return c.Next()
}

// RequireOwner ensures the current user is the owner of their company.
// Subscription and billing mutations are owner-only.
func RequireOwner(c *fiber.Ctx) error {
	if !isLoggedIn(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "login required",
		})
	}
	if isOwner, ok := c.Locals(icuser.KeyIsOwner).(bool); !ok || !isOwner {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "forbidden",
			"message": "company owner required",
		})
	}
	return c.Next()
}

// RequireStaff ensures the current user is platform staff.
func RequireStaff(c *fiber.Ctx) error {
	if !isLoggedIn(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "login required",
		})
	}
	if isStaff, ok := c.Locals(icuser.KeyIsStaff).(bool); !ok || !isStaff {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "forbidden",
			"message": "staff access required",
		})
	}
	return c.Next()
}

func isLoggedIn(c *fiber.Ctx) bool {
	v := c.Locals(icuser.KeyFromProtected)
	b, ok := v.(bool)
	return ok && b
}
