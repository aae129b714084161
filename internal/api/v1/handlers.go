package apiv1

import (
	"github.com/gofiber/fiber/v2"

	// Delegate to existing controllers to keep behavior consistent
	"github.com/andinosoft/contaflow/app/controllers"
	"github.com/andinosoft/contaflow/internal/pkg/metrics/counter"
	"github.com/andinosoft/contaflow/internal/pkg/usercontext"
)

// APIServer is the API-key authenticated machine surface. Security is
// enforced via the API key middleware attached in the router.
type APIServer struct{}

// NewAPIServer creates a new API server instance
func NewAPIServer() *APIServer {
	return &APIServer{}
}

// RegisterHandlers attaches the machine API routes to a router group.
func RegisterHandlers(r fiber.Router, s *APIServer) {
	r.Get("/ping", s.GetPing)
	r.Get("/profile", s.GetProfile)
	r.Get("/subscription", s.GetSubscription)
	r.Get("/payments/:reference", s.GetPayment)
	r.Post("/reports/consume", s.PostConsumeReport)
	r.Post("/checkout", s.PostCheckout)
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ping": "pong"})
}

// GetProfile returns account information for the authenticated key
func (s *APIServer) GetProfile(c *fiber.Ctx) error {
	_ = counter.AddAPIRequest(usercontext.GetCompanyID(c))
	return controllers.HandleGetCurrentUser(c)
}

// GetSubscription returns the key owner's company subscription
func (s *APIServer) GetSubscription(c *fiber.Ctx) error {
	_ = counter.AddAPIRequest(usercontext.GetCompanyID(c))
	return controllers.HandleGetSubscription(c)
}

// GetPayment returns a payment by reference, company scoped
func (s *APIServer) GetPayment(c *fiber.Ctx) error {
	_ = counter.AddAPIRequest(usercontext.GetCompanyID(c))
	return controllers.HandleGetPayment(c)
}

// PostConsumeReport counts one report generation against the allowance
func (s *APIServer) PostConsumeReport(c *fiber.Ctx) error {
	_ = counter.AddAPIRequest(usercontext.GetCompanyID(c))
	return controllers.HandleConsumeReport(c)
}

// PostCheckout starts a plan purchase. The machine group skips the owner
// middleware, so the role check happens here.
func (s *APIServer) PostCheckout(c *fiber.Ctx) error {
	_ = counter.AddAPIRequest(usercontext.GetCompanyID(c))
	if !usercontext.IsOwner(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "company owner required"})
	}
	return controllers.HandleCheckout(c)
}
