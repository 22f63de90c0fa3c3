package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doorman-id/doorman/config"
	domainauth "github.com/doorman-id/doorman/internal/domain/auth"
	apperrors "github.com/doorman-id/doorman/internal/errors"
	mocks "github.com/doorman-id/doorman/internal/mocks/auth"
	"github.com/doorman-id/doorman/internal/ports"
)

func testIdentity() *domainauth.Identity {
	return &domainauth.Identity{
		DN:                "CN=Jane Doe,OU=Users,DC=corp,DC=example,DC=com",
		ObjectGUID:        "10000000-2000-3000-4000-500000000000",
		UserPrincipalName: "jdoe@corp.example.com",
		SAMAccountName:    "jdoe",
		Mail:              "jane.doe@corp.example.com",
		GivenName:         "Jane",
		Surname:           "Doe",
	}
}

func newLoginService(cfg config.SyncConfig, users *mocks.MemoryUserStore, observers ...ports.LoginObserver) *LoginService {
	return NewLoginService(LoginServiceOptions{
		Config:    cfg,
		Users:     users,
		Roles:     newRoleSync(cfg, users),
		Observers: observers,
	})
}

func TestLoginService_Login_CreatesUser(t *testing.T) {
	ctx := context.Background()
	users := mocks.NewMemoryUserStore()
	conn := mocks.NewFakeDirectoryConn()
	identity := testIdentity()
	conn.AddUser(identity, "Sales")

	svc := newLoginService(config.SyncConfig{
		AutoCreateUsers:      true,
		RoleEquivalentGroups: "Sales=author",
	}, users)

	user, err := svc.Login(ctx, conn, identity)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "jdoe", user.Username)
	assert.Equal(t, "jdoe@corp.example.com", user.UserPrincipalName)
	assert.Equal(t, "jane.doe@corp.example.com", user.Email)
	assert.Equal(t, "Jane Doe", user.DisplayName)

	// New member of an equivalence group gets exactly the mapped roles.
	roles, err := users.Roles(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"author"}, roles)
}

func TestLoginService_Login_DefaultRoleForUnmappedNewUser(t *testing.T) {
	ctx := context.Background()
	users := mocks.NewMemoryUserStore()
	conn := mocks.NewFakeDirectoryConn()
	identity := testIdentity()
	conn.AddUser(identity, "VPN Users")

	svc := newLoginService(config.SyncConfig{
		AutoCreateUsers:      true,
		RoleEquivalentGroups: "Sales=author",
	}, users)

	user, err := svc.Login(ctx, conn, identity)
	require.NoError(t, err)

	roles, err := users.Roles(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"subscriber"}, roles)
}

func TestLoginService_Login_ExistingUser(t *testing.T) {
	ctx := context.Background()
	users := mocks.NewMemoryUserStore()
	existing, err := users.Create(ctx, ports.NewUser{
		Username:          "jdoe",
		UserPrincipalName: "jdoe@corp.example.com",
		Email:             "stale@corp.example.com",
	})
	require.NoError(t, err)

	conn := mocks.NewFakeDirectoryConn()
	identity := testIdentity()
	conn.AddUser(identity)

	svc := newLoginService(config.SyncConfig{AutoUpdateUsers: true}, users)

	user, err := svc.Login(ctx, conn, identity)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, user.ID)

	// Attribute refresh ran.
	refreshed, err := users.FindByUPN(ctx, identity.UserPrincipalName)
	require.NoError(t, err)
	assert.Equal(t, "jane.doe@corp.example.com", refreshed.Email)
}

func TestLoginService_Login_AutoCreateDisabled(t *testing.T) {
	conn := mocks.NewFakeDirectoryConn()
	identity := testIdentity()
	conn.AddUser(identity)

	svc := newLoginService(config.SyncConfig{AutoCreateUsers: false}, mocks.NewMemoryUserStore())

	_, err := svc.Login(context.Background(), conn, identity)
	require.Error(t, err)
	assert.True(t, apperrors.IsAuthenticationFailed(err))
	assert.Contains(t, err.Error(), "auto-creation is disabled")
}

func TestLoginService_Login_NotInAuthorizationGroup(t *testing.T) {
	users := mocks.NewMemoryUserStore()
	conn := mocks.NewFakeDirectoryConn()
	identity := testIdentity()
	conn.AddUser(identity, "Sales")

	svc := newLoginService(config.SyncConfig{
		AutoCreateUsers:     true,
		AuthorizationGroups: "Staff;VPN Users",
	}, users)

	_, err := svc.Login(context.Background(), conn, identity)
	require.Error(t, err)
	assert.True(t, apperrors.IsAuthenticationFailed(err))

	// Unauthorized users are never created.
	_, err = users.FindByUPN(context.Background(), identity.UserPrincipalName)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestLoginService_Login_InvalidIdentity(t *testing.T) {
	svc := newLoginService(config.SyncConfig{}, mocks.NewMemoryUserStore())

	_, err := svc.Login(context.Background(), mocks.NewFakeDirectoryConn(), &domainauth.Identity{})
	require.Error(t, err)
	assert.True(t, apperrors.IsAuthenticationFailed(err))
}

func TestLoginService_Login_GroupLookupFails(t *testing.T) {
	conn := mocks.NewFakeDirectoryConn()
	conn.GroupsErr = errors.New("search timed out")

	svc := newLoginService(config.SyncConfig{AutoCreateUsers: true}, mocks.NewMemoryUserStore())

	_, err := svc.Login(context.Background(), conn, testIdentity())
	require.Error(t, err)
	assert.True(t, apperrors.IsAuthenticationFailed(err))
}

func TestLoginService_Login_ObserverVeto(t *testing.T) {
	users := mocks.NewMemoryUserStore()
	conn := mocks.NewFakeDirectoryConn()
	identity := testIdentity()
	conn.AddUser(identity)

	observer := &mocks.RecordingObserver{VetoErr: errors.New("account quarantined")}
	svc := newLoginService(config.SyncConfig{AutoCreateUsers: true}, users, observer)

	_, err := svc.Login(context.Background(), conn, identity)
	require.Error(t, err)
	assert.True(t, apperrors.IsAuthenticationFailed(err))
	assert.Len(t, observer.Logins, 1)
}

func TestLoginService_Login_ObserversNotified(t *testing.T) {
	users := mocks.NewMemoryUserStore()
	conn := mocks.NewFakeDirectoryConn()
	identity := testIdentity()
	conn.AddUser(identity)

	first := &mocks.RecordingObserver{}
	second := &mocks.RecordingObserver{}
	svc := newLoginService(config.SyncConfig{AutoCreateUsers: true}, users, first, second)

	user, err := svc.Login(context.Background(), conn, identity)
	require.NoError(t, err)

	require.Len(t, first.Logins, 1)
	require.Len(t, second.Logins, 1)
	assert.Equal(t, user.ID, first.Logins[0].ID)
}

func TestLoginService_Login_UsernameFallsBackToUPN(t *testing.T) {
	users := mocks.NewMemoryUserStore()
	conn := mocks.NewFakeDirectoryConn()
	identity := testIdentity()
	identity.SAMAccountName = ""
	conn.Identities[identity.UserPrincipalName] = identity
	conn.Groups[identity.DN] = nil

	svc := newLoginService(config.SyncConfig{AutoCreateUsers: true}, users)

	user, err := svc.Login(context.Background(), conn, identity)
	require.NoError(t, err)
	assert.Equal(t, "jdoe@corp.example.com", user.Username)
}
