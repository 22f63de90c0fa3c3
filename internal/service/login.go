package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/doorman-id/doorman/config"
	domainauth "github.com/doorman-id/doorman/internal/domain/auth"
	apperrors "github.com/doorman-id/doorman/internal/errors"
	"github.com/doorman-id/doorman/internal/ports"
)

// LoginServiceOptions groups dependencies for LoginService.
type LoginServiceOptions struct {
	Config    config.SyncConfig
	Users     ports.UserStore
	Roles     *RoleSyncService
	Observers []ports.LoginObserver
	Logger    *slog.Logger
}

// LoginService resolves a directory identity into a local user: it enforces
// the authorization-group restriction, finds or creates the local account,
// refreshes its directory-sourced attributes, and runs role synchronization.
// It is the generic login step shared by SSO and any future credential path.
type LoginService struct {
	cfg       config.SyncConfig
	users     ports.UserStore
	roles     *RoleSyncService
	observers []ports.LoginObserver
	logger    *slog.Logger
}

// NewLoginService constructs a new LoginService.
func NewLoginService(opts LoginServiceOptions) *LoginService {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &LoginService{
		cfg:       opts.Config,
		users:     opts.Users,
		roles:     opts.Roles,
		observers: opts.Observers,
		logger:    opts.Logger,
	}
}

// Login turns a resolved directory identity into an authenticated local user.
// The directory connection is used for group lookups and must remain open for
// the duration of the call.
func (s *LoginService) Login(ctx context.Context, conn ports.DirectoryConn, identity *domainauth.Identity) (*domainauth.User, error) {
	if !identity.Valid() {
		return nil, apperrors.AuthenticationFailed("identity is not a valid directory user")
	}

	mapping, err := s.roles.CreateRoleMapping(ctx, conn, identity.Key())
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeAuthenticationFailed, "resolve group membership")
	}
	if !s.roles.IsInAuthorizationGroup(mapping) {
		return nil, apperrors.AuthenticationFailedf("user %q is not in an authorization group", identity.UserPrincipalName)
	}

	user, isNewlyCreated, err := s.findOrCreate(ctx, identity)
	if err != nil {
		return nil, err
	}

	if _, err := s.roles.SynchronizeRoles(ctx, user.ID, mapping, isNewlyCreated); err != nil {
		return nil, fmt.Errorf("synchronize roles: %w", err)
	}

	for _, obs := range s.observers {
		if vetoErr := obs.OnLoginSucceeded(ctx, user); vetoErr != nil {
			return nil, apperrors.Wrap(vetoErr, apperrors.ErrCodeAuthenticationFailed, "login vetoed")
		}
	}

	return user, nil
}

// findOrCreate looks the user up by UPN and, depending on configuration,
// creates missing accounts or refreshes attributes of existing ones.
func (s *LoginService) findOrCreate(ctx context.Context, identity *domainauth.Identity) (*domainauth.User, bool, error) {
	user, err := s.users.FindByUPN(ctx, identity.UserPrincipalName)
	if err == nil {
		if s.cfg.AutoUpdateUsers {
			if updateErr := s.users.UpdateAttributes(ctx, user.ID, identity); updateErr != nil {
				s.logger.Warn("could not refresh user attributes",
					slog.String("upn", identity.UserPrincipalName),
					slog.Any("error", updateErr))
			}
		}
		return user, false, nil
	}
	if !apperrors.IsNotFound(err) {
		return nil, false, fmt.Errorf("look up user: %w", err)
	}

	if !s.cfg.AutoCreateUsers {
		return nil, false, apperrors.AuthenticationFailedf("no local account for %q and auto-creation is disabled", identity.UserPrincipalName)
	}

	username := identity.SAMAccountName
	if username == "" {
		username = identity.UserPrincipalName
	}

	created, err := s.users.Create(ctx, ports.NewUser{
		Username:          username,
		UserPrincipalName: identity.UserPrincipalName,
		Email:             identity.Mail,
		DisplayName:       displayName(identity),
	})
	if err != nil {
		return nil, false, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("created local user from directory identity",
		slog.String("upn", created.UserPrincipalName),
		slog.String("user_id", created.ID))

	return created, true, nil
}

func displayName(identity *domainauth.Identity) string {
	return strings.TrimSpace(identity.GivenName + " " + identity.Surname)
}
