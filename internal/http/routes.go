package httpx

import (
	"log/slog"
	"net/http"
	"time"

	domainauth "github.com/glosswerks/glosswerks-api/internal/domain/auth"
	"github.com/glosswerks/glosswerks-api/internal/ports"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Auth AuthServiceInterface // Required

	// AllowList enables the /admin/allowlist API when set.
	AllowList ports.AllowListAdmin

	// Metrics is served at MetricsPath when set.
	Metrics     http.Handler
	MetricsPath string

	// Ready checks back /readyz; /healthz never depends on them.
	Ready map[string]HealthCheck

	CookieDomain    string
	EventsHeartbeat time.Duration
	Logger          *slog.Logger
}

// NewRouter creates and configures a new HTTP router.
func NewRouter(services RouterServices) http.Handler {
	if services.Auth == nil {
		panic("AuthService is required")
	}
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	mux.Handle("GET "+PathHealth, http.HandlerFunc(healthHandler))
	mux.Handle("HEAD "+PathHealth, http.HandlerFunc(healthHandler))
	mux.Handle("GET "+PathReady, &ReadinessHandler{Checks: services.Ready})

	if services.Metrics != nil {
		path := services.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		mux.Handle("GET "+path, services.Metrics)
	}

	// Everything below is per client and needs the client_id cookie.
	clients := http.NewServeMux()
	registerAuthRoutes(clients, &AuthHandlers{Svc: services.Auth, CookieDomain: services.CookieDomain, Logger: logger})
	registerEventRoutes(clients, &EventHandlers{Svc: services.Auth, Heartbeat: services.EventsHeartbeat, Logger: logger})
	if services.AllowList != nil {
		registerAllowListRoutes(clients, &AllowListHandlers{Svc: services.AllowList, Logger: logger}, services.Auth)
	}

	withClient := ClientID(ClientIDConfig{CookieDomain: services.CookieDomain})(clients)
	mux.Handle("/auth/", withClient)
	mux.Handle("/admin/", withClient)

	return Recover(logger)(Logging(logger)(mux))
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.HandleFunc("GET "+PathLogin, h.Login)
	mux.HandleFunc("GET "+PathCallback, h.Callback)
	mux.HandleFunc("POST "+PathRefresh, h.Refresh)
	mux.HandleFunc("POST "+PathLogout, h.Logout)
	mux.HandleFunc("GET "+PathStatus, h.Status)
}

func registerEventRoutes(mux *http.ServeMux, h *EventHandlers) {
	mux.HandleFunc("GET "+PathEvents, h.Stream)
}

func registerAllowListRoutes(mux *http.ServeMux, h *AllowListHandlers, sessions SessionReader) {
	admin := RequireRole(sessions, domainauth.RoleAdmin)
	mux.Handle("GET /admin/allowlist", admin(http.HandlerFunc(h.List)))
	mux.Handle("POST /admin/allowlist", admin(http.HandlerFunc(h.Add)))
	mux.Handle("DELETE /admin/allowlist/{email}", admin(http.HandlerFunc(h.Remove)))
}
