package constants

// Static route constants
const (
	RootRoute   = "/"
	HealthRoute = "/health"

	APIRoute   = "/api"
	APIV1Route = "/v1"

	// Sub-groups of the versioned API
	AdminRoute   = "/admin"
	MachineRoute = "/ext"

	WompiWebhookRoute = "/webhooks/wompi"

	// Activation path without host for mail URL construction
	ActivationPath = "/api/v1/auth/activate"
)
