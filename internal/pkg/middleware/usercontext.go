package middleware

import (
	"strings"

	"github.com/andinosoft/contaflow/app/repository"
	"github.com/andinosoft/contaflow/internal/pkg/session"
	"github.com/andinosoft/contaflow/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
)

// UserContextMiddleware sets up the complete user context for every request
// This centralizes user session handling and eliminates code duplication
func UserContextMiddleware(c *fiber.Ctx) error {
	// Avoid interfering with Goth/Fiber session handling on OAuth routes.
	// Goth uses its own fiber session store and relies on per-request locals.
	// We skip our app session on /auth/* to prevent cross-store collisions.
	if strings.HasPrefix(c.Path(), "/auth/") {
		return c.Next()
	}
	// Get session with error handling
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		c.Locals("USER_CONTEXT", usercontext.UserContext{IsLoggedIn: false})
		c.Locals(usercontext.KeyFromProtected, false)
		return c.Next()
	}

	userID, _ := sess.Get(usercontext.KeyUserID).(uint)
	if userID == 0 {
		// Anonymous user - no session data
		c.Locals("USER_CONTEXT", usercontext.UserContext{IsLoggedIn: false})
		c.Locals(usercontext.KeyFromProtected, false)
		return c.Next()
	}

	companyID, _ := sess.Get(usercontext.KeyCompanyID).(uint)
	username, _ := sess.Get(usercontext.KeyUsername).(string)
	isOwner, _ := sess.Get(usercontext.KeyIsOwner).(bool)
	isStaff, _ := sess.Get(usercontext.KeyIsStaff).(bool)

	// Determine plan with session-first strategy
	plan := session.GetSessionValue(c, "company_plan")
	if plan == "" {
		plan = "trial"
		if factory := repository.GetGlobalFactory(); factory != nil && companyID != 0 {
			if sub, err := factory.GetSubscriptionRepository().GetByCompanyID(companyID); err == nil && sub.Plan != "" {
				plan = sub.Plan
			}
		}
		// cache in session for subsequent requests
		_ = session.SetSessionValue(c, "company_plan", plan)
	}

	// Set complete user context
	userCtx := usercontext.UserContext{
		UserID:     userID,
		CompanyID:  companyID,
		Username:   username,
		IsLoggedIn: true,
		IsOwner:    isOwner,
		IsStaff:    isStaff,
		Plan:       plan,
	}
	c.Locals("USER_CONTEXT", userCtx)

	c.Locals(usercontext.KeyFromProtected, true)
	c.Locals(usercontext.KeyUserID, userID)
	c.Locals(usercontext.KeyCompanyID, companyID)
	c.Locals(usercontext.KeyUsername, username)
	c.Locals(usercontext.KeyIsOwner, isOwner)
	c.Locals(usercontext.KeyIsStaff, isStaff)

	return c.Next()
}
