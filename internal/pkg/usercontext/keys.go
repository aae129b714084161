package usercontext

// Shared Locals/session keys used across controllers and middlewares
const (
	AuthKey          = "authenticated"
	KeyUserID        = "user_id"
	KeyUsername      = "username"
	KeyCompanyID     = "company_id"
	KeyIsOwner       = "is_owner"
	KeyIsStaff       = "is_staff"
	KeyFromProtected = "from_protected"
)
