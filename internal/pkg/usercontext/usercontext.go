package usercontext

import "github.com/gofiber/fiber/v2"

// UserContext represents the complete user context for a request
type UserContext struct {
	UserID     uint   `json:"user_id"`
	CompanyID  uint   `json:"company_id"`
	Username   string `json:"username"`
	IsLoggedIn bool   `json:"is_logged_in"`
	IsOwner    bool   `json:"is_owner"`
	IsStaff    bool   `json:"is_staff"`
	Plan       string `json:"plan"`
}

// GetUserContext retrieves the user context from fiber context
// Returns a default anonymous context if none is set
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx := c.Locals("USER_CONTEXT"); ctx != nil {
		return ctx.(UserContext)
	}
	return UserContext{IsLoggedIn: false}
}

// IsLoggedIn checks if the current user is logged in
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

// IsOwner checks if the current user is the owner of their company
func IsOwner(c *fiber.Ctx) bool {
	return GetUserContext(c).IsOwner
}

// IsStaff checks if the current user is platform staff
func IsStaff(c *fiber.Ctx) bool {
	return GetUserContext(c).IsStaff
}

// GetUserID returns the current user's ID, or 0 if not logged in
func GetUserID(c *fiber.Ctx) uint {
	return GetUserContext(c).UserID
}

// GetCompanyID returns the current user's company ID, or 0 if not logged in
func GetCompanyID(c *fiber.Ctx) uint {
	return GetUserContext(c).CompanyID
}

// GetUsername returns the current user's username, or empty string if not logged in
func GetUsername(c *fiber.Ctx) string {
	return GetUserContext(c).Username
}
