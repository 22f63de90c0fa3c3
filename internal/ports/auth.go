// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters and internal/data; orchestration
// in internal/service.
package ports

import (
	"context"

	domainauth "github.com/doorman-id/doorman/internal/domain/auth"
	"github.com/doorman-id/doorman/internal/domain/directory"
)

// UserQuery describes a directory user lookup. When UPNSuffix is set the
// lookup is by suffix-qualified userPrincipalName, otherwise by bare
// sAMAccountName.
type UserQuery struct {
	Login     string
	UPNSuffix string
}

// DirectoryConn is an open, bound connection to a directory server. A
// connection is opened fresh per authentication attempt and is not pooled.
type DirectoryConn interface {
	// IsConnected reports whether the connection is established and the
	// service-account bind succeeded.
	IsConnected() bool

	// ResolveUser looks up a single user and maps its attributes. Returns a
	// NotFound error when the directory has no record for the principal.
	ResolveUser(ctx context.Context, q UserQuery) (*domainauth.Identity, error)

	// UserGroups returns the names of all security groups the entry at the
	// given DN belongs to, including nested membership.
	UserGroups(ctx context.Context, dn string) ([]string, error)

	Close() error
}

// DirectoryDialer opens directory connections using a profile's connection
// details.
type DirectoryDialer interface {
	Open(ctx context.Context, profile directory.Profile) (DirectoryConn, error)
}

// SessionFlagStore keeps the two advisory flags scoped to a browser session:
// the principal of the last failed SSO attempt (retry suppression) and
// whether the user logged out manually.
type SessionFlagStore interface {
	FailedPrincipal(ctx context.Context, sessionKey string) (string, error)
	SetFailedPrincipal(ctx context.Context, sessionKey, principal string) error
	ClearFailedPrincipal(ctx context.Context, sessionKey string) error

	LoggedOut(ctx context.Context, sessionKey string) (bool, error)
	SetLoggedOut(ctx context.Context, sessionKey string, loggedOut bool) error
}

// SessionStore persists and retrieves user sessions.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	Delete(ctx context.Context, id string) error
}

// ProfileSource provides the configured directory profiles in configuration
// order. Read-only from the authentication core's perspective.
type ProfileSource interface {
	FindAll(ctx context.Context) ([]directory.Profile, error)
}

// NewUser carries the attributes for creating a local user from a directory
// identity.
type NewUser struct {
	Username          string
	UserPrincipalName string
	Email             string
	DisplayName       string
}

// UserStore persists local users, their roles, and the known-role registry.
type UserStore interface {
	FindByUPN(ctx context.Context, upn string) (*domainauth.User, error)
	Create(ctx context.Context, u NewUser) (*domainauth.User, error)
	UpdateAttributes(ctx context.Context, userID string, identity *domainauth.Identity) error
	List(ctx context.Context, limit, offset int) ([]*domainauth.User, error)

	Roles(ctx context.Context, userID string) ([]string, error)
	AddRole(ctx context.Context, userID, role string) error
	ClearRoles(ctx context.Context, userID string) error
	// RoleExists reports whether the role name is present in the role
	// registry. Unknown roles are never created implicitly.
	RoleExists(ctx context.Context, role string) (bool, error)
}

// SuperAdminGranter grants the privileged super-admin status. The capability
// is optional: it is resolved at startup depending on deployment mode and is
// nil for single-tenant installations.
type SuperAdminGranter interface {
	GrantSuperAdmin(ctx context.Context, userID string) error
}

// LoginObserver is notified at well-defined points of the login pipeline.
// Observers run synchronously in registration order; OnLoginSucceeded may
// veto the login by returning an error.
type LoginObserver interface {
	OnProfileLocated(ctx context.Context, match directory.ProfileMatch)
	OnLoginSucceeded(ctx context.Context, user *domainauth.User) error
}
