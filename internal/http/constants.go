package httpx

import "time"

// Cookie names shared by the auth handlers and middleware.
const (
	// ClientCookie identifies the browser client that owns a session machine.
	ClientCookie = "client_id"

	stateCookie    = "oauth_state"
	nonceCookie    = "oauth_nonce"
	redirectCookie = "post_login_redirect"
)

const (
	// oauthCookieTTL bounds how long a login round trip may take.
	oauthCookieTTL = 10 * time.Minute

	// clientCookieTTL keeps the client id for as long as a snapshot may live.
	clientCookieTTL = 30 * 24 * time.Hour

	// defaultEventsHeartbeat applies when the router is built without HTTP config.
	defaultEventsHeartbeat = 25 * time.Second
)

// Route paths.
const (
	PathLogin    = "/auth/login"
	PathCallback = "/auth/callback"
	PathRefresh  = "/auth/refresh"
	PathLogout   = "/auth/logout"
	PathStatus   = "/auth/status"
	PathEvents   = "/auth/events"
	PathHealth   = "/healthz"
	PathReady    = "/readyz"
)
