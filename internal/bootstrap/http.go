package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/glosswerks/glosswerks-api/config"
	httpx "github.com/glosswerks/glosswerks-api/internal/http"
)

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// StartHTTPServer creates and starts the HTTP server.
// Returns the server instance for graceful shutdown.
func StartHTTPServer(cfg *HTTPServerConfig) *http.Server {
	if cfg == nil {
		return nil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	handler := buildHTTPHandler(httpHandlerConfig{
		Services:      cfg.Services,
		HTTP:          appCfg.HTTP,
		Observability: appCfg.Observability,
		Logger:        logger,
	})
	return startServer(logger, handler, appCfg.HTTP.Addr)
}

type httpHandlerConfig struct {
	Services      ServiceContainer
	HTTP          config.HTTPConfig
	Observability config.ObservabilityConfig
	Logger        *slog.Logger
}

func buildHTTPHandler(cfg httpHandlerConfig) http.Handler {
	services := httpx.RouterServices{
		Auth:            cfg.Services.Auth,
		Ready:           cfg.Services.Ready,
		CookieDomain:    cfg.HTTP.CookieDomain,
		EventsHeartbeat: cfg.HTTP.EventsHeartbeat,
		Logger:          cfg.Logger,
	}
	// Avoid storing a typed nil in the interface.
	if cfg.Services.AllowList != nil {
		services.AllowList = cfg.Services.AllowList
	}
	if cfg.Observability.MetricsEnabled && cfg.Services.Gatherer != nil {
		services.Metrics = promhttp.HandlerFor(cfg.Services.Gatherer, promhttp.HandlerOpts{})
		services.MetricsPath = cfg.Observability.MetricsPath
	}
	return httpx.NewRouter(services)
}

func startServer(logger *slog.Logger, handler http.Handler, addr string) *http.Server {
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}

	// WriteTimeout applies per request; the events stream clears it for itself.
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Request contexts hang off baseCtx so Shutdown ends open event streams.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	server.BaseContext = func(net.Listener) context.Context { return baseCtx }
	server.RegisterOnShutdown(cancelBase)

	go func() {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
		}
	}()

	return server
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Context context.Context
	Server  *http.Server
	Timeout time.Duration
	Logger  *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}
	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	parent := cfg.Context
	if parent == nil {
		parent = context.Background()
	}
	shutdownCtx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
		// Long-lived streams may outlast the grace period.
		if closeErr := cfg.Server.Close(); closeErr != nil {
			return errors.Join(err, closeErr)
		}
		return err
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}
	return nil
}
