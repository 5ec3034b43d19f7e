package bootstrap

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/xeroflow/xeroflow/config"
	"github.com/xeroflow/xeroflow/internal/adapters/oidc"
	postgresadapter "github.com/xeroflow/xeroflow/internal/adapters/postgres"
	redisadapter "github.com/xeroflow/xeroflow/internal/adapters/redis"
	"github.com/xeroflow/xeroflow/internal/adapters/xeroapi"
	mocksauth "github.com/xeroflow/xeroflow/internal/mocks/auth"
	"github.com/xeroflow/xeroflow/internal/ports"
	"github.com/xeroflow/xeroflow/internal/service"
)

// ServiceContainer holds the constructed application services.
type ServiceContainer struct {
	Auth     *service.AuthService
	Tenants  *service.TenantService
	Invoices *service.InvoiceService
}

// ServicesConfig contains the dependencies needed to build services.
type ServicesConfig struct {
	Config      config.AppConfig
	RedisClient redis.UniversalClient
	DB          *sql.DB
	Logger      *slog.Logger
}

// BuildServices wires the session store, auth provider, API client, and
// services together according to configuration.
func BuildServices(cfg ServicesConfig) (*ServiceContainer, error) {
	sessions, err := buildSessionStore(cfg)
	if err != nil {
		return nil, err
	}

	provider, err := buildAuthProvider(cfg)
	if err != nil {
		return nil, err
	}

	apiClient, err := xeroapi.NewClient(xeroapi.Config{
		AccountingURL: cfg.Config.Xero.AccountingURL,
		IdentityURL:   cfg.Config.Xero.IdentityURL,
		Timeout:       cfg.Config.Xero.Timeout,
		RetryLimit:    cfg.Config.Xero.RetryLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("build api client: %w", err)
	}

	auth := service.NewAuthService(service.AuthServiceOptions{
		Provider:   provider,
		Sessions:   sessions,
		SessionTTL: cfg.Config.Auth.SessionTTL,
	})
	tenants := service.NewTenantService(service.TenantServiceOptions{
		Identity: apiClient,
		Sessions: sessions,
	})
	invoices := service.NewInvoiceService(service.InvoiceServiceOptions{
		Auth:    auth,
		Tenants: tenants,
		API:     apiClient,
	})

	return &ServiceContainer{
		Auth:     auth,
		Tenants:  tenants,
		Invoices: invoices,
	}, nil
}

//nolint:ireturn // the store backend is selected at runtime.
func buildSessionStore(cfg ServicesConfig) (ports.SessionStore, error) {
	switch cfg.Config.Store.Backend {
	case config.StoreBackendRedis:
		if cfg.RedisClient == nil {
			return nil, fmt.Errorf("session store %q requires a redis connection", cfg.Config.Store.Backend)
		}
		return redisadapter.NewSessionStoreWithPrefix(cfg.RedisClient, "session:"), nil

	case config.StoreBackendPostgres:
		if cfg.DB == nil {
			return nil, fmt.Errorf("session store %q requires a database connection", cfg.Config.Store.Backend)
		}
		return postgresadapter.NewSessionStore(cfg.DB), nil

	case config.StoreBackendMemory:
		if cfg.Logger != nil {
			cfg.Logger.Warn("using in-memory session store; sessions do not survive restarts")
		}
		return mocksauth.NewMemorySessionStore(), nil

	default:
		return nil, fmt.Errorf("unknown session store backend %q", cfg.Config.Store.Backend)
	}
}

//nolint:ireturn // the provider is selected at runtime by auth mode.
func buildAuthProvider(cfg ServicesConfig) (ports.AuthProvider, error) {
	switch cfg.Config.Auth.Mode {
	case config.AuthModeMock:
		if cfg.Logger != nil {
			cfg.Logger.Warn("using mock auth provider; tokens are not real")
		}
		return mocksauth.NewMockAuthProvider(), nil

	case config.AuthModeOAuth:
		oauth := cfg.Config.Auth.OAuth
		if oauth.ClientID == "" || oauth.ClientSecret == "" {
			return nil, fmt.Errorf("auth mode %q requires OAUTH_CLIENT_ID and OAUTH_CLIENT_SECRET", cfg.Config.Auth.Mode)
		}

		provider, err := oidc.NewProvider(oidc.ProviderConfig{
			ClientID:     oauth.ClientID,
			ClientSecret: oauth.ClientSecret,
			RedirectURL:  oauth.RedirectURL,
			Scope:        cfg.Config.Auth.EffectiveScope(),
			DiscoveryURL: oauth.DiscoveryURL,
		})
		if err != nil {
			return nil, fmt.Errorf("build oidc provider: %w", err)
		}
		return provider, nil

	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Config.Auth.Mode)
	}
}
