package router

import (
	"github.com/andinosoft/contaflow/app/controllers"
	"github.com/andinosoft/contaflow/internal/pkg/constants"
	"github.com/andinosoft/contaflow/internal/pkg/middleware"
	"github.com/andinosoft/contaflow/internal/pkg/oauth"
	"github.com/andinosoft/contaflow/internal/pkg/session"

	"github.com/gofiber/fiber/v2"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// init oauth providers
	oauth.Setup()

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	app.Get(constants.RootRoute, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"service": "contaflow", "status": "ok"})
	})
	app.Get(constants.HealthRoute, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// OAuth flows are browser redirects, not JSON API calls
	app.Get("/auth/:provider", controllers.HandleOAuthBegin)
	app.Get("/auth/:provider/callback", controllers.HandleOAuthCallback)
	app.Get("/auth/logout", controllers.HandleOAuthLogout)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
