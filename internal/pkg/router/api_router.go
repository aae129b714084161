package router

import (
	"github.com/andinosoft/contaflow/app/controllers"
	apiv1 "github.com/andinosoft/contaflow/internal/api/v1"
	"github.com/andinosoft/contaflow/internal/pkg/constants"
	"github.com/andinosoft/contaflow/internal/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group(constants.APIRoute, limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "contaflow api",
		})
	})

	v1 := api.Group(constants.APIV1Route)

	// Public surface
	v1.Post("/auth/register", controllers.HandleRegister)
	v1.Get("/auth/activate", controllers.HandleActivate)
	v1.Post("/auth/login", controllers.HandleLogin)
	v1.Post("/auth/logout", controllers.HandleLogout)
	v1.Get("/plans", controllers.HandleListPlans)

	// Provider callbacks carry their own authentication (event checksum)
	v1.Post(constants.WompiWebhookRoute, controllers.HandleWompiWebhook)

	// Session-authenticated surface
	v1.Get("/users/me", middleware.RequireAuth, controllers.HandleGetCurrentUser)
	v1.Patch("/users/me", middleware.RequireAuth, controllers.HandleUpdateCurrentUser)
	v1.Post("/users/me/api-key", middleware.RequireAuth, controllers.HandleGenerateAPIKey)

	v1.Post("/checkout", middleware.RequireOwner, controllers.HandleCheckout)
	v1.Get("/payments", middleware.RequireAuth, controllers.HandleListPayments)
	v1.Get("/payments/:reference", middleware.RequireAuth, controllers.HandleGetPayment)
	v1.Post("/payments/:reference/status", middleware.RequireAuth, controllers.HandleUpdatePaymentStatus)

	v1.Get("/subscription", middleware.RequireAuth, controllers.HandleGetSubscription)
	v1.Post("/subscription/cancel", middleware.RequireOwner, controllers.HandleCancelSubscription)
	v1.Post("/subscription/reactivate", middleware.RequireOwner, controllers.HandleReactivateSubscription)
	v1.Post("/reports/consume", middleware.RequireAuth, controllers.HandleConsumeReport)

	v1.Get("/stripe/checkout-sessions/:id", middleware.RequireAuth, controllers.HandleGetStripeCheckoutSession)

	// Staff surface
	admin := v1.Group(constants.AdminRoute, middleware.RequireStaff)
	admin.Get("/companies", controllers.HandleAdminListCompanies)
	admin.Get("/payments", controllers.HandleAdminListPayments)
	admin.Get("/stats", controllers.HandleAdminStats)
	admin.Post("/companies/:id/subscription/cancel", controllers.HandleAdminCancelSubscription)
	admin.Post("/companies/:id/subscription/reactivate", controllers.HandleAdminReactivateSubscription)

	// Machine API (API key authenticated)
	machine := v1.Group(constants.MachineRoute, middleware.APIKeyAuthMiddleware())
	apiServer := apiv1.NewAPIServer()
	apiv1.RegisterHandlers(machine, apiServer)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
