// Package auth contains simple hand-written test doubles for auth ports.
// These are stateful, deterministic and suitable for unit tests without
// codegen.
package auth

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"

	domainauth "github.com/doorman-id/doorman/internal/domain/auth"
	"github.com/doorman-id/doorman/internal/domain/directory"
	apperrors "github.com/doorman-id/doorman/internal/errors"
	"github.com/doorman-id/doorman/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.DirectoryConn     = (*FakeDirectoryConn)(nil)
	_ ports.DirectoryDialer   = (*FakeDirectoryDialer)(nil)
	_ ports.SessionFlagStore  = (*MemoryFlagStore)(nil)
	_ ports.SessionStore      = (*MemorySessionStore)(nil)
	_ ports.ProfileSource     = (*StaticProfileSource)(nil)
	_ ports.UserStore         = (*MemoryUserStore)(nil)
	_ ports.SuperAdminGranter = (*MemoryUserStore)(nil)
	_ ports.LoginObserver     = (*RecordingObserver)(nil)
)

// FakeDirectoryConn simulates a bound directory connection. Identities are
// keyed by login (and by UPN), group sets by DN.
type FakeDirectoryConn struct {
	Connected  bool
	Identities map[string]*domainauth.Identity
	Groups     map[string][]string

	ResolveErr error
	GroupsErr  error

	ResolveCalls []ports.UserQuery
	Closed       bool
}

// NewFakeDirectoryConn creates a connected FakeDirectoryConn with no entries.
func NewFakeDirectoryConn() *FakeDirectoryConn {
	return &FakeDirectoryConn{
		Connected:  true,
		Identities: make(map[string]*domainauth.Identity),
		Groups:     make(map[string][]string),
	}
}

// AddUser registers an identity resolvable by bare login and by UPN, with
// the given groups attached to its DN.
func (f *FakeDirectoryConn) AddUser(identity *domainauth.Identity, groups ...string) {
	f.Identities[identity.SAMAccountName] = identity
	f.Identities[identity.UserPrincipalName] = identity
	f.Groups[identity.DN] = groups
}

func (f *FakeDirectoryConn) IsConnected() bool { return f.Connected && !f.Closed }

func (f *FakeDirectoryConn) ResolveUser(_ context.Context, q ports.UserQuery) (*domainauth.Identity, error) {
	f.ResolveCalls = append(f.ResolveCalls, q)
	if f.ResolveErr != nil {
		return nil, f.ResolveErr
	}
	if identity, ok := f.Identities[q.Login]; ok {
		return identity, nil
	}
	return nil, apperrors.NotFoundf("no directory entry for principal %q", q.Login)
}

func (f *FakeDirectoryConn) UserGroups(_ context.Context, dn string) ([]string, error) {
	if f.GroupsErr != nil {
		return nil, f.GroupsErr
	}
	return f.Groups[dn], nil
}

func (f *FakeDirectoryConn) Close() error {
	f.Closed = true
	return nil
}

// FakeDirectoryDialer hands out a fixed connection, or an error.
type FakeDirectoryDialer struct {
	Conn    *FakeDirectoryConn
	OpenErr error

	OpenCalls []directory.Profile
}

// NewFakeDirectoryDialer creates a dialer serving the given connection.
func NewFakeDirectoryDialer(conn *FakeDirectoryConn) *FakeDirectoryDialer {
	return &FakeDirectoryDialer{Conn: conn}
}

func (f *FakeDirectoryDialer) Open(_ context.Context, profile directory.Profile) (ports.DirectoryConn, error) {
	f.OpenCalls = append(f.OpenCalls, profile)
	if f.OpenErr != nil {
		return nil, f.OpenErr
	}
	// Each Open hands out a fresh connection.
	if f.Conn != nil {
		f.Conn.Closed = false
	}
	return f.Conn, nil
}

// MemoryFlagStore is an in-memory session flag store for unit tests.
type MemoryFlagStore struct {
	mu        sync.Mutex
	failed    map[string]string
	loggedOut map[string]bool
}

// NewMemoryFlagStore creates an empty MemoryFlagStore.
func NewMemoryFlagStore() *MemoryFlagStore {
	return &MemoryFlagStore{
		failed:    make(map[string]string),
		loggedOut: make(map[string]bool),
	}
}

func (m *MemoryFlagStore) FailedPrincipal(_ context.Context, sessionKey string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failed[sessionKey], nil
}

func (m *MemoryFlagStore) SetFailedPrincipal(_ context.Context, sessionKey, principal string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed[sessionKey] = principal
	return nil
}

func (m *MemoryFlagStore) ClearFailedPrincipal(_ context.Context, sessionKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.failed, sessionKey)
	return nil
}

func (m *MemoryFlagStore) LoggedOut(_ context.Context, sessionKey string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loggedOut[sessionKey], nil
}

func (m *MemoryFlagStore) SetLoggedOut(_ context.Context, sessionKey string, loggedOut bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if loggedOut {
		m.loggedOut[sessionKey] = true
	} else {
		delete(m.loggedOut, sessionKey)
	}
	return nil
}

// MemorySessionStore is an in-memory session store for unit tests.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]domainauth.Session
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]domainauth.Session),
	}
}

func (m *MemorySessionStore) Save(_ context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (domainauth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return domainauth.Session{}, apperrors.NotFoundf("no session %q", id)
	}
	return sess, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Len returns the number of stored sessions.
func (m *MemorySessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// StaticProfileSource serves a fixed profile list.
type StaticProfileSource struct {
	Profiles []directory.Profile
	Err      error
}

func (s *StaticProfileSource) FindAll(context.Context) ([]directory.Profile, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Profiles, nil
}

// MemoryUserStore is an in-memory user and role store for unit tests. Its
// role registry starts with the standard seeded roles.
type MemoryUserStore struct {
	mu          sync.Mutex
	users       map[string]*domainauth.User
	roles       map[string][]string
	registry    map[string]bool
	superAdmins map[string]bool
	nextID      int

	CreateErr error
}

// NewMemoryUserStore creates a MemoryUserStore with the default role registry.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		users: make(map[string]*domainauth.User),
		roles: make(map[string][]string),
		registry: map[string]bool{
			"subscriber":    true,
			"contributor":   true,
			"author":        true,
			"editor":        true,
			"administrator": true,
		},
		superAdmins: make(map[string]bool),
	}
}

// RegisterRole adds a role name to the registry.
func (m *MemoryUserStore) RegisterRole(role string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registry[role] = true
}

// SeedUser inserts a user directly, bypassing Create.
func (m *MemoryUserStore) SeedUser(u *domainauth.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *MemoryUserStore) FindByUPN(_ context.Context, upn string) (*domainauth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.UserPrincipalName, upn) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperrors.NotFoundf("no user for principal %q", upn)
}

func (m *MemoryUserStore) Create(_ context.Context, nu ports.NewUser) (*domainauth.User, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.UserPrincipalName, nu.UserPrincipalName) {
			return nil, apperrors.Conflict("user already exists")
		}
	}
	m.nextID++
	u := &domainauth.User{
		ID:                strconv.Itoa(m.nextID),
		Username:          nu.Username,
		UserPrincipalName: nu.UserPrincipalName,
		Email:             nu.Email,
		DisplayName:       nu.DisplayName,
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *MemoryUserStore) UpdateAttributes(_ context.Context, userID string, identity *domainauth.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return apperrors.NotFoundf("no user with ID %q", userID)
	}
	if identity.Mail != "" {
		u.Email = identity.Mail
	}
	return nil
}

func (m *MemoryUserStore) List(_ context.Context, limit, offset int) ([]*domainauth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*domainauth.User
	for _, u := range m.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	out := make([]*domainauth.User, 0, end-offset)
	for _, u := range all[offset:end] {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemoryUserStore) Roles(_ context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.roles[userID]...), nil
}

func (m *MemoryUserStore) AddRole(_ context.Context, userID, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.registry[role] {
		return apperrors.NotFoundf("role %q does not exist", role)
	}
	for _, r := range m.roles[userID] {
		if r == role {
			return nil
		}
	}
	m.roles[userID] = append(m.roles[userID], role)
	return nil
}

func (m *MemoryUserStore) ClearRoles(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.roles, userID)
	return nil
}

func (m *MemoryUserStore) RoleExists(_ context.Context, role string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.registry[role], nil
}

func (m *MemoryUserStore) GrantSuperAdmin(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; !ok {
		return apperrors.NotFoundf("no user with ID %q", userID)
	}
	m.superAdmins[userID] = true
	return nil
}

// IsSuperAdmin reports whether GrantSuperAdmin was called for the user.
func (m *MemoryUserStore) IsSuperAdmin(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.superAdmins[userID]
}

// RecordingObserver records login pipeline notifications and can veto.
type RecordingObserver struct {
	mu             sync.Mutex
	ProfileMatches []directory.ProfileMatch
	Logins         []*domainauth.User
	VetoErr        error
}

func (o *RecordingObserver) OnProfileLocated(_ context.Context, match directory.ProfileMatch) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ProfileMatches = append(o.ProfileMatches, match)
}

func (o *RecordingObserver) OnLoginSucceeded(_ context.Context, user *domainauth.User) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Logins = append(o.Logins, user)
	return o.VetoErr
}

