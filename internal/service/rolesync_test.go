package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doorman-id/doorman/config"
	domainauth "github.com/doorman-id/doorman/internal/domain/auth"
	"github.com/doorman-id/doorman/internal/domain/directory"
	mocks "github.com/doorman-id/doorman/internal/mocks/auth"
	"github.com/doorman-id/doorman/internal/ports"
)

func testNewUser(login string) ports.NewUser {
	return ports.NewUser{
		Username:          login,
		UserPrincipalName: login + "@corp.example.com",
		Email:             login + "@corp.example.com",
		DisplayName:       "Jane Doe",
	}
}

func newRoleSync(cfg config.SyncConfig, users *mocks.MemoryUserStore) *RoleSyncService {
	return NewRoleSyncService(RoleSyncServiceOptions{
		Config: cfg,
		Users:  users,
	})
}

func mappingWithGroups(groups ...string) *directory.RoleMapping {
	m := directory.NewRoleMapping("CN=Jane Doe,OU=Users,DC=corp,DC=example,DC=com")
	m.SetSecurityGroups(groups)
	return m
}

func TestRoleSyncService_CreateRoleMapping(t *testing.T) {
	conn := mocks.NewFakeDirectoryConn()
	dn := "CN=Jane Doe,OU=Users,DC=corp,DC=example,DC=com"
	conn.Groups[dn] = []string{"Sales", "VPN Users", "Sales"}

	svc := newRoleSync(config.SyncConfig{}, mocks.NewMemoryUserStore())
	mapping, err := svc.CreateRoleMapping(context.Background(), conn, dn)
	require.NoError(t, err)
	assert.Equal(t, dn, mapping.Key)
	assert.Equal(t, []string{"Sales", "VPN Users"}, mapping.SecurityGroups())
	assert.Empty(t, mapping.Roles())
}

func TestRoleSyncService_CreateRoleMapping_GroupLookupFails(t *testing.T) {
	conn := mocks.NewFakeDirectoryConn()
	conn.GroupsErr = errors.New("search timed out")

	svc := newRoleSync(config.SyncConfig{}, mocks.NewMemoryUserStore())
	_, err := svc.CreateRoleMapping(context.Background(), conn, "CN=x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolve security groups")
}

func TestRoleSyncService_IsInAuthorizationGroup(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		groups     []string
		want       bool
	}{
		{"empty list is open access", "", []string{"Anything"}, true},
		{"whitespace-only list is open access", "  ; ;;", nil, true},
		{"member of a listed group", "Staff;VPN Users", []string{"VPN Users"}, true},
		{"member of no listed group", "Staff;VPN Users", []string{"Sales"}, false},
		{"comparison is case-sensitive", "Staff", []string{"staff"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newRoleSync(config.SyncConfig{AuthorizationGroups: tt.configured}, mocks.NewMemoryUserStore())
			assert.Equal(t, tt.want, svc.IsInAuthorizationGroup(mappingWithGroups(tt.groups...)))
		})
	}
}

func TestRoleSyncService_EquivalentGroups(t *testing.T) {
	svc := newRoleSync(config.SyncConfig{
		RoleEquivalentGroups: "Sales=author;malformed;Managers=editor; =oops ;Sales=author",
	}, mocks.NewMemoryUserStore())

	equiv := svc.EquivalentGroups()
	require.Equal(t, 3, equiv.Len())
	assert.Equal(t, directory.Equivalence{Group: "Sales", Role: "author"}, equiv.Entries()[0])
	assert.Equal(t, directory.Equivalence{Group: "Managers", Role: "editor"}, equiv.Entries()[1])

	// Parsed once, cached per instance.
	assert.Same(t, equiv, svc.EquivalentGroups())
}

func TestRoleSyncService_MappedRoles(t *testing.T) {
	svc := newRoleSync(config.SyncConfig{
		RoleEquivalentGroups: "Sales=author;Managers=editor;Board=administrator",
	}, mocks.NewMemoryUserStore())

	roles := svc.MappedRoles(mappingWithGroups("Managers", "Sales", "VPN Users"))
	// Configuration order, not group-membership order.
	assert.Equal(t, []string{"author", "editor"}, roles)

	assert.Empty(t, svc.MappedRoles(mappingWithGroups("VPN Users")))
}

func TestRoleSyncService_SynchronizeRoles_NewUserInEquivalenceGroup(t *testing.T) {
	ctx := context.Background()
	users := mocks.NewMemoryUserStore()
	user, err := users.Create(ctx, testNewUser("jdoe"))
	require.NoError(t, err)
	require.NoError(t, users.AddRole(ctx, user.ID, "subscriber"))

	svc := newRoleSync(config.SyncConfig{
		RoleEquivalentGroups: "Sales=author",
	}, users)

	ok, err := svc.SynchronizeRoles(ctx, user.ID, mappingWithGroups("Sales"), true)
	require.NoError(t, err)
	assert.True(t, ok)

	// Mapped roles win and the creation-time default role is stripped.
	roles, err := users.Roles(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"author"}, roles)
}

func TestRoleSyncService_SynchronizeRoles_NewUserOutsideEquivalenceGroups(t *testing.T) {
	ctx := context.Background()
	users := mocks.NewMemoryUserStore()
	user, err := users.Create(ctx, testNewUser("jdoe"))
	require.NoError(t, err)

	svc := newRoleSync(config.SyncConfig{
		RoleEquivalentGroups: "Sales=author",
		CleanExistingRoles:   true,
	}, users)

	ok, err := svc.SynchronizeRoles(ctx, user.ID, mappingWithGroups("VPN Users"), true)
	require.NoError(t, err)
	assert.True(t, ok)

	roles, err := users.Roles(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"subscriber"}, roles)
}

func TestRoleSyncService_SynchronizeRoles_ExistingUserKeepsConfiguredClean(t *testing.T) {
	ctx := context.Background()
	users := mocks.NewMemoryUserStore()
	user, err := users.Create(ctx, testNewUser("jdoe"))
	require.NoError(t, err)
	require.NoError(t, users.AddRole(ctx, user.ID, "subscriber"))

	svc := newRoleSync(config.SyncConfig{
		RoleEquivalentGroups: "Managers=editor",
		CleanExistingRoles:   false,
	}, users)

	ok, err := svc.SynchronizeRoles(ctx, user.ID, mappingWithGroups("Managers"), false)
	require.NoError(t, err)
	assert.True(t, ok)

	roles, err := users.Roles(ctx, user.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"subscriber", "editor"}, roles)
}

func TestRoleSyncService_SynchronizeRoles_ExistingUserCleanConfigured(t *testing.T) {
	ctx := context.Background()
	users := mocks.NewMemoryUserStore()
	user, err := users.Create(ctx, testNewUser("jdoe"))
	require.NoError(t, err)
	require.NoError(t, users.AddRole(ctx, user.ID, "subscriber"))

	svc := newRoleSync(config.SyncConfig{
		RoleEquivalentGroups: "Managers=editor",
		CleanExistingRoles:   true,
	}, users)

	ok, err := svc.SynchronizeRoles(ctx, user.ID, mappingWithGroups("Managers"), false)
	require.NoError(t, err)
	assert.True(t, ok)

	roles, err := users.Roles(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"editor"}, roles)
}

func TestRoleSyncService_SynchronizeRoles_NoUser(t *testing.T) {
	svc := newRoleSync(config.SyncConfig{}, mocks.NewMemoryUserStore())

	ok, err := svc.SynchronizeRoles(context.Background(), "", mappingWithGroups("Sales"), false)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.SynchronizeRoles(context.Background(), "42", nil, false)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRoleSyncService_SynchronizeRoles_Filters(t *testing.T) {
	ctx := context.Background()
	users := mocks.NewMemoryUserStore()
	user, err := users.Create(ctx, testNewUser("jdoe"))
	require.NoError(t, err)
	require.NoError(t, users.AddRole(ctx, user.ID, "subscriber"))

	var sawClean bool
	svc := NewRoleSyncService(RoleSyncServiceOptions{
		Config: config.SyncConfig{RoleEquivalentGroups: "Sales=author"},
		Users:  users,
		CleanFlagFilters: []CleanFlagFilter{
			func(bool) bool { return false },
		},
		RoleSetFilters: []RoleSetFilter{
			func(roles []string, clean bool) []string {
				sawClean = clean
				return append(roles, "editor")
			},
		},
	})

	// Newly created member would normally force clean; the filter vetoes it
	// and sees the post-filter flag.
	ok, err := svc.SynchronizeRoles(ctx, user.ID, mappingWithGroups("Sales"), true)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, sawClean)

	roles, err := users.Roles(ctx, user.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"subscriber", "author", "editor"}, roles)
}

func TestRoleSyncService_UpdateRoles_UnknownRoleSkipped(t *testing.T) {
	ctx := context.Background()
	users := mocks.NewMemoryUserStore()
	user, err := users.Create(ctx, testNewUser("jdoe"))
	require.NoError(t, err)

	svc := newRoleSync(config.SyncConfig{}, users)
	ok, err := svc.UpdateRoles(ctx, user.ID, []string{"warehouse-admin", "editor"}, false)
	require.NoError(t, err)
	assert.True(t, ok)

	// The unknown role is never created implicitly.
	roles, err := users.Roles(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"editor"}, roles)
}

func TestRoleSyncService_UpdateRoles_SuperAdminSentinel(t *testing.T) {
	ctx := context.Background()
	users := mocks.NewMemoryUserStore()
	user, err := users.Create(ctx, testNewUser("jdoe"))
	require.NoError(t, err)

	svc := NewRoleSyncService(RoleSyncServiceOptions{
		Config:      config.SyncConfig{},
		Users:       users,
		SuperAdmins: users,
	})

	ok, err := svc.UpdateRoles(ctx, user.ID, []string{SuperAdminRole, "editor"}, false)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.True(t, users.IsSuperAdmin(user.ID))
	roles, err := users.Roles(ctx, user.ID)
	require.NoError(t, err)
	// The sentinel is a grant, never an ordinary role assignment.
	assert.Equal(t, []string{"editor"}, roles)
}

func TestRoleSyncService_UpdateRoles_SuperAdminWithoutGranter(t *testing.T) {
	ctx := context.Background()
	users := mocks.NewMemoryUserStore()
	user, err := users.Create(ctx, testNewUser("jdoe"))
	require.NoError(t, err)

	svc := newRoleSync(config.SyncConfig{}, users)
	ok, err := svc.UpdateRoles(ctx, user.ID, []string{SuperAdminRole}, false)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, users.IsSuperAdmin(user.ID))
}

func TestRoleSyncService_SyncAll(t *testing.T) {
	ctx := context.Background()
	users := mocks.NewMemoryUserStore()

	known, err := users.Create(ctx, testNewUser("jdoe"))
	require.NoError(t, err)
	_, err = users.Create(ctx, testNewUser("ghost"))
	require.NoError(t, err)

	conn := mocks.NewFakeDirectoryConn()
	conn.AddUser(&domainauth.Identity{
		DN:                "CN=Jane Doe,OU=Users,DC=corp,DC=example,DC=com",
		UserPrincipalName: "jdoe@corp.example.com",
		SAMAccountName:    "jdoe",
	}, "Sales")
	dialer := mocks.NewFakeDirectoryDialer(conn)

	svc := newRoleSync(config.SyncConfig{RoleEquivalentGroups: "Sales=author"}, users)
	res, err := svc.SyncAll(ctx, dialer, directory.Profile{Name: "corp"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Synced)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 0, res.Failed)
	assert.True(t, conn.Closed)

	roles, err := users.Roles(ctx, known.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"author"}, roles)
}

func TestRoleSyncService_SyncAll_OpenFails(t *testing.T) {
	dialer := mocks.NewFakeDirectoryDialer(nil)
	dialer.OpenErr = errors.New("no domain controller available")

	svc := newRoleSync(config.SyncConfig{}, mocks.NewMemoryUserStore())
	_, err := svc.SyncAll(context.Background(), dialer, directory.Profile{Name: "corp"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open directory connection")
}
