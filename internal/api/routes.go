package api

const (
	HealthCheckRoute = "/healthz"
	AboutRoute       = "/v1/about"

	AuthorizeRoute = "/v1/authorize"
	KeysRoute      = "/v1/keys"
	EventsRoute    = "/v1/events"
)
