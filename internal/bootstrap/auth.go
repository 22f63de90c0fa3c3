package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/doorman-id/doorman/config"
	"github.com/doorman-id/doorman/internal/adapters/adldap"
	redisadapter "github.com/doorman-id/doorman/internal/adapters/redis"
	"github.com/doorman-id/doorman/internal/data"
	"github.com/doorman-id/doorman/internal/domain/directory"
	"github.com/doorman-id/doorman/internal/observability/statsd"
	"github.com/doorman-id/doorman/internal/ports"
	"github.com/doorman-id/doorman/internal/service"
)

// AuthStack holds the fully wired authentication services and the adapters
// they run on. It is built once at startup and shared by the HTTP server and
// the admin CLI.
type AuthStack struct {
	SSO      *service.SSOService
	Login    *service.LoginService
	RoleSync *service.RoleSyncService
	Locator  *service.ProfileLocator

	Sessions ports.SessionStore
	Flags    ports.SessionFlagStore
	Users    *data.UserRepo
	Profiles *data.ProfileRepo
	Dialer   *adldap.Dialer
	Metrics  *statsd.Client
}

// AuthStackDeps groups external dependencies for BuildAuthStack.
type AuthStackDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// envProfileSource serves the env-configured default directory profile. It is
// consulted before the database-backed profiles so the default profile always
// wins suffix ties.
type envProfileSource struct {
	profile directory.Profile
}

func (s envProfileSource) FindAll(_ context.Context) ([]directory.Profile, error) {
	return []directory.Profile{s.profile}, nil
}

// BuildAuthStack wires stores, adapters and services into a ready-to-use
// authentication stack.
func BuildAuthStack(deps AuthStackDeps) (*AuthStack, error) {
	if deps.Config == nil {
		return nil, errors.New("config is required")
	}
	if deps.RedisClient == nil {
		return nil, errors.New("redis client is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	sessions := redisadapter.NewSessionStoreWithPrefix(deps.RedisClient, "session:")
	// Flags share the session TTL so they never outlive the browser session.
	flags := redisadapter.NewFlagStoreWithPrefix(deps.RedisClient, "ssoflag:", cfg.Auth.SessionTTL)

	users := data.NewUserRepo(deps.DB)
	profiles := data.NewProfileRepo(deps.DB)

	locator := service.NewProfileLocator(service.ProfileLocatorOptions{
		Sources: []ports.ProfileSource{
			envProfileSource{profile: cfg.Directory.Profile()},
			profiles,
		},
		Logger: logger,
	})

	validator := service.NewSSOValidator(service.SSOValidatorOptions{
		Flags:  flags,
		Logger: logger,
	})

	roleSync := service.NewRoleSyncService(service.RoleSyncServiceOptions{
		Config:      cfg.Sync,
		Users:       users,
		SuperAdmins: users,
		Logger:      logger,
	})

	login := service.NewLoginService(service.LoginServiceOptions{
		Config: cfg.Sync,
		Users:  users,
		Roles:  roleSync,
		Logger: logger,
	})

	dialer := adldap.NewDialer(logger)

	metrics := buildMetrics(cfg.Observability.Metrics, logger)

	ssoOpts := service.SSOServiceOptions{
		Auth:      cfg.Auth,
		Flags:     flags,
		Sessions:  sessions,
		Users:     users,
		Locator:   locator,
		Validator: validator,
		Dialer:    dialer,
		Login:     login,
		HomeURL:   cfg.HTTP.BaseURL + "/",
		Logger:    logger,
	}
	if metrics != nil {
		ssoOpts.Metrics = metrics
	}
	sso := service.NewSSOService(ssoOpts)

	return &AuthStack{
		SSO:      sso,
		Login:    login,
		RoleSync: roleSync,
		Locator:  locator,
		Sessions: sessions,
		Flags:    flags,
		Users:    users,
		Profiles: profiles,
		Dialer:   dialer,
		Metrics:  metrics,
	}, nil
}

func buildMetrics(cfg config.ObservabilityMetricsConfig, logger *slog.Logger) *statsd.Client {
	if !cfg.IsEnabled() {
		return nil
	}
	client, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.StatsdAddress,
		Prefix:  cfg.Prefix,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to initialise statsd client", "error", err)
		return nil
	}
	return client
}
