package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/doorman-id/doorman/config"
	domainauth "github.com/doorman-id/doorman/internal/domain/auth"
	"github.com/doorman-id/doorman/internal/domain/directory"
	"github.com/doorman-id/doorman/internal/ports"
)

// SuperAdminRole is the sentinel role name that triggers the privileged
// super-admin grant instead of an ordinary role assignment.
const SuperAdminRole = "super admin"

// CleanFlagFilter may override the clean-existing-roles decision before it is
// applied. Filters run in registration order.
type CleanFlagFilter func(clean bool) bool

// RoleSetFilter may override the computed role set. It receives the clean
// flag as decided after the clean-flag filters ran.
type RoleSetFilter func(roles []string, clean bool) []string

// RoleSyncServiceOptions groups dependencies for RoleSyncService.
type RoleSyncServiceOptions struct {
	Config config.SyncConfig
	Users  ports.UserStore
	// SuperAdmins is optional; when nil the super-admin sentinel role is
	// skipped with a warning (single-tenant deployments).
	SuperAdmins ports.SuperAdminGranter
	Logger      *slog.Logger

	CleanFlagFilters []CleanFlagFilter
	RoleSetFilters   []RoleSetFilter
}

// RoleSyncService computes the local role set a directory user should have
// from security-group membership and configured equivalences, and reconciles
// it against the user's existing roles.
//
// The equivalence map is parsed lazily on first use and cached per service
// instance, never globally, so a rebuilt service always sees fresh
// configuration.
type RoleSyncService struct {
	cfg         config.SyncConfig
	users       ports.UserStore
	superAdmins ports.SuperAdminGranter
	logger      *slog.Logger

	cleanFilters []CleanFlagFilter
	roleFilters  []RoleSetFilter

	equivOnce sync.Once
	equiv     *directory.EquivalenceMap
}

// NewRoleSyncService constructs a new RoleSyncService.
func NewRoleSyncService(opts RoleSyncServiceOptions) *RoleSyncService {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Config.DefaultRole == "" {
		opts.Config.DefaultRole = "subscriber"
	}
	return &RoleSyncService{
		cfg:          opts.Config,
		users:        opts.Users,
		superAdmins:  opts.SuperAdmins,
		logger:       opts.Logger,
		cleanFilters: opts.CleanFlagFilters,
		roleFilters:  opts.RoleSetFilters,
	}
}

// CreateRoleMapping looks up the identity's security groups, transitively,
// and returns a fresh mapping with those groups set and no roles yet.
func (s *RoleSyncService) CreateRoleMapping(ctx context.Context, conn ports.DirectoryConn, identityKey string) (*directory.RoleMapping, error) {
	mapping := directory.NewRoleMapping(identityKey)
	groups, err := conn.UserGroups(ctx, identityKey)
	if err != nil {
		return nil, fmt.Errorf("resolve security groups for %q: %w", identityKey, err)
	}
	mapping.SetSecurityGroups(groups)
	return mapping, nil
}

// IsInAuthorizationGroup reports whether the mapping's security groups
// intersect the configured authorization groups. An empty configured list
// means access is unrestricted. Group comparison is case-sensitive.
func (s *RoleSyncService) IsInAuthorizationGroup(mapping *directory.RoleMapping) bool {
	allowed := directory.SplitList(s.cfg.AuthorizationGroups)
	if len(allowed) == 0 {
		return true
	}
	for _, g := range allowed {
		if mapping.HasSecurityGroup(g) {
			return true
		}
	}
	return false
}

// EquivalentGroups returns the parsed group-to-role equivalence map, parsing
// it on first call. Malformed entries are skipped with a warning.
func (s *RoleSyncService) EquivalentGroups() *directory.EquivalenceMap {
	s.equivOnce.Do(func() {
		m, skipped := directory.ParseEquivalences(s.cfg.RoleEquivalentGroups)
		for _, entry := range skipped {
			s.logger.Warn("skipping malformed role equivalence entry",
				slog.String("entry", entry))
		}
		s.equiv = m
	})
	return s.equiv
}

// MappedRoles returns the roles the mapping's security groups resolve to via
// the configured equivalences, in configuration order.
func (s *RoleSyncService) MappedRoles(mapping *directory.RoleMapping) []string {
	return s.EquivalentGroups().MappedRoles(mapping)
}

// SynchronizeRoles reconciles the mapping against the user's existing roles.
// Returns false, without error, when there is no user to synchronize.
//
// The reconciliation rules:
//   - newly created user, member of a configured equivalence group with at
//     least one mapped role: apply the mapped roles and force a clean slate
//     (removes the default role assigned at creation);
//   - newly created user, member of no configured equivalence group: the
//     default role only, nothing stripped;
//   - existing user: apply the mapped roles (possibly none) under the
//     configured clean flag, unmodified.
func (s *RoleSyncService) SynchronizeRoles(ctx context.Context, userID string, mapping *directory.RoleMapping, isNewlyCreated bool) (bool, error) {
	if userID == "" || mapping == nil {
		return false, nil
	}

	roles := s.MappedRoles(mapping)
	mapping.SetRoles(roles)

	memberOfEquivalenceGroup := s.EquivalentGroups().ContainsAnyGroup(mapping)
	clean := s.cfg.CleanExistingRoles

	if isNewlyCreated {
		switch {
		case memberOfEquivalenceGroup && len(roles) > 0:
			clean = true
		case !memberOfEquivalenceGroup:
			roles = []string{s.cfg.DefaultRole}
			clean = false
		}
	}

	for _, f := range s.cleanFilters {
		clean = f(clean)
	}
	for _, f := range s.roleFilters {
		roles = f(roles, clean)
	}

	s.logger.Info("synchronizing roles",
		slog.String("user_id", userID),
		slog.Any("roles", roles),
		slog.Bool("clean_existing", clean),
		slog.Bool("newly_created", isNewlyCreated))

	return s.UpdateRoles(ctx, userID, roles, clean)
}

// UpdateRoles applies the role set to the user. Returns false, without error,
// when there is no user. The "super admin" sentinel is granted through the
// privileged granter and never added as an ordinary role; role names missing
// from the registry are skipped with a warning, never created implicitly.
func (s *RoleSyncService) UpdateRoles(ctx context.Context, userID string, roles []string, cleanExistingRoles bool) (bool, error) {
	if userID == "" {
		return false, nil
	}

	if cleanExistingRoles {
		if err := s.users.ClearRoles(ctx, userID); err != nil {
			return false, fmt.Errorf("clear roles for user %q: %w", userID, err)
		}
	}

	for _, role := range roles {
		if role == SuperAdminRole {
			if s.superAdmins == nil {
				s.logger.Warn("super admin role configured but no granter available, skipping",
					slog.String("user_id", userID))
				continue
			}
			if err := s.superAdmins.GrantSuperAdmin(ctx, userID); err != nil {
				return false, fmt.Errorf("grant super admin to user %q: %w", userID, err)
			}
			continue
		}

		exists, err := s.users.RoleExists(ctx, role)
		if err != nil {
			return false, fmt.Errorf("check role %q: %w", role, err)
		}
		if !exists {
			s.logger.Warn("unknown role, skipping",
				slog.String("role", role),
				slog.String("user_id", userID))
			continue
		}

		if err := s.users.AddRole(ctx, userID, role); err != nil {
			return false, fmt.Errorf("add role %q to user %q: %w", role, userID, err)
		}
	}

	return true, nil
}

// SyncAllResult summarizes a bulk synchronization run.
type SyncAllResult struct {
	Synced  int
	Skipped int
	Failed  int
}

// SyncAll resolves and synchronizes roles for every known local user against
// the given profile. Users the directory no longer knows are skipped.
// Used by the operator CLI for scheduled bulk syncs.
func (s *RoleSyncService) SyncAll(ctx context.Context, dialer ports.DirectoryDialer, profile directory.Profile) (SyncAllResult, error) {
	var res SyncAllResult

	conn, err := dialer.Open(ctx, profile)
	if err != nil {
		return res, fmt.Errorf("open directory connection: %w", err)
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			s.logger.Warn("closing directory connection", slog.Any("error", closeErr))
		}
	}()

	const pageSize = 100
	for offset := 0; ; offset += pageSize {
		users, err := s.users.List(ctx, pageSize, offset)
		if err != nil {
			return res, fmt.Errorf("list users: %w", err)
		}
		if len(users) == 0 {
			break
		}

		for _, u := range users {
			if err := ctx.Err(); err != nil {
				return res, err
			}

			creds := domainauth.NewCredentials(u.UserPrincipalName)
			identity, err := conn.ResolveUser(ctx, ports.UserQuery{
				Login:     creds.Login,
				UPNSuffix: creds.UPNSuffix,
			})
			if err != nil {
				s.logger.Warn("directory lookup failed during bulk sync, skipping user",
					slog.String("upn", u.UserPrincipalName),
					slog.Any("error", err))
				res.Skipped++
				continue
			}

			mapping, err := s.CreateRoleMapping(ctx, conn, identity.Key())
			if err != nil {
				s.logger.Error("group resolution failed during bulk sync",
					slog.String("upn", u.UserPrincipalName),
					slog.Any("error", err))
				res.Failed++
				continue
			}

			ok, err := s.SynchronizeRoles(ctx, u.ID, mapping, false)
			if err != nil {
				s.logger.Error("role synchronization failed",
					slog.String("upn", u.UserPrincipalName),
					slog.Any("error", err))
				res.Failed++
				continue
			}
			if ok {
				res.Synced++
			} else {
				res.Skipped++
			}
		}

		if len(users) < pageSize {
			break
		}
	}

	return res, nil
}
