package bootstrap

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/glosswerks/glosswerks-api/config"
	"github.com/glosswerks/glosswerks-api/internal/adapters/authroles"
	"github.com/glosswerks/glosswerks-api/internal/adapters/breaker"
	"github.com/glosswerks/glosswerks-api/internal/adapters/devauth"
	"github.com/glosswerks/glosswerks-api/internal/adapters/oidc"
	redisadapter "github.com/glosswerks/glosswerks-api/internal/adapters/redis"
	"github.com/glosswerks/glosswerks-api/internal/data"
	"github.com/glosswerks/glosswerks-api/internal/observability/metrics"
	"github.com/glosswerks/glosswerks-api/internal/ports"
	"github.com/glosswerks/glosswerks-api/internal/service"
)

// AuthConfig contains the dependencies for wiring sign-in and role resolution.
type AuthConfig struct {
	Auth        config.AuthConfig
	Resolution  config.ResolutionConfig
	Redis       config.RedisConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient // Optional: sessions do not survive restarts when nil
	Metrics     *metrics.Recorder
	Logger      *slog.Logger

	// Provider replaces the configured identity provider when set.
	Provider ports.AuthProvider
}

// AuthComponents are the pieces of the auth stack other services share.
type AuthComponents struct {
	Service   *service.AuthService
	Registry  *service.SessionRegistry
	AllowList *data.AllowListRepo
}

// BuildAuthService wires the identity provider, role stores and session registry.
func BuildAuthService(cfg AuthConfig) (*AuthComponents, error) {
	if cfg.DB == nil {
		return nil, errors.New("database is required for role resolution")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	provider := cfg.Provider
	if provider == nil {
		var err error
		provider, err = buildProvider(cfg.Auth, logger)
		if err != nil {
			return nil, err
		}
	}

	allowList := data.NewAllowListRepo(cfg.DB, data.RepoConfig{})
	stores := buildSignalStores(cfg, allowList, logger)

	machine := service.SessionMachineOptions{
		Pipeline: service.ResolutionPipeline{
			Aggregator: service.NewSignalAggregator(service.SignalAggregatorOptions{
				Stores:  stores,
				Config:  cfg.Resolution,
				Logger:  logger,
				Metrics: cfg.Metrics,
			}),
			Reconciler: service.NewReconciler(service.ReconcilerOptions{
				Profiles: stores.Profiles,
				Config:   cfg.Resolution,
				Logger:   logger,
				Metrics:  cfg.Metrics,
			}),
			Provider: provider,
		},
		Config:  cfg.Resolution,
		Logger:  logger,
		Metrics: cfg.Metrics,
	}

	registryOpts := service.SessionRegistryOptions{Machine: machine, Logger: logger}
	if cfg.RedisClient != nil {
		registryOpts.Snapshots = redisadapter.NewSnapshotStore(cfg.RedisClient, redisadapter.SnapshotStoreOptions{
			Prefix: cfg.Redis.SnapshotPrefix,
			TTL:    cfg.Resolution.SnapshotTTL,
		})
	} else {
		logger.Warn("redis client not configured; sessions will not survive restarts")
	}
	registry := service.NewSessionRegistry(registryOpts)

	return &AuthComponents{
		Service: service.NewAuthService(service.AuthServiceOptions{
			Provider: provider,
			Sessions: registry,
			Logger:   logger,
		}),
		Registry:  registry,
		AllowList: allowList,
	}, nil
}

// buildSignalStores puts the remote role stores behind circuit breakers when enabled.
func buildSignalStores(cfg AuthConfig, allowList *data.AllowListRepo, logger *slog.Logger) service.SignalStores {
	var (
		profiles ports.ProfileStore   = data.NewProfileRepo(cfg.DB, data.RepoConfig{})
		allow    ports.AllowListStore = allowList
	)
	if cfg.Resolution.BreakerEnabled {
		settings := breaker.Settings{
			Failures:    cfg.Resolution.BreakerFailures,
			OpenTimeout: cfg.Resolution.BreakerOpenTimeout,
			Logger:      logger,
			Metrics:     cfg.Metrics,
		}
		profiles = breaker.NewProfileStore(profiles, settings)
		allow = breaker.NewAllowListStore(allow, settings)
	}
	overrides := authroles.NewStaticOverrides(cfg.Auth.AdminEmails, cfg.Auth.EmployeeEmails)
	logger.Info("static role overrides configured", "count", overrides.Len())
	return service.SignalStores{
		Profiles:  profiles,
		AllowList: allow,
		Overrides: overrides,
	}
}

//nolint:ireturn // the provider is chosen by configuration.
func buildProvider(cfg config.AuthConfig, logger *slog.Logger) (ports.AuthProvider, error) {
	switch cfg.Mode {
	case config.AuthModeMock:
		logger.Warn("using development sign-in; every login resolves to the configured dev identity",
			"subject_id", cfg.DevAuth.SubjectID)
		prov, err := devauth.NewProvider(devauth.Config{
			SubjectID: cfg.DevAuth.SubjectID,
			Email:     cfg.DevAuth.Email,
			Name:      cfg.DevAuth.Name,
			Logger:    logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create dev auth provider: %w", err)
		}
		return prov, nil

	case config.AuthModeOAuth:
		oauth := cfg.OAuth
		prov, err := oidc.NewProvider(oidc.ProviderConfig{
			ClientID:     oauth.ClientID,
			ClientSecret: oauth.ClientSecret,
			RedirectURL:  oauth.RedirectURL,
			Scope:        oauth.Scope,
			DiscoveryURL: oauth.DiscoveryURL,
			LogoutURL:    oauth.LogoutURL,
		})
		if err != nil {
			return nil, fmt.Errorf("create OIDC provider: %w", err)
		}
		return prov, nil

	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.Mode)
	}
}
