package adldap

import (
	"context"
	"crypto/tls"
	"errors"
	"testing"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doorman-id/doorman/internal/domain/directory"
	apperrors "github.com/doorman-id/doorman/internal/errors"
	"github.com/doorman-id/doorman/internal/ports"
)

// fakeConn scripts wire-level responses for the dialer and conn tests.
type fakeConn struct {
	bindErr     error
	bindDN      string
	bindPass    string
	searchReqs  []*ldap.SearchRequest
	searchRes   []*ldap.SearchResult
	searchErr   error
	closed      bool
	timeoutsSet []time.Duration
}

func (f *fakeConn) Bind(username, password string) error {
	f.bindDN, f.bindPass = username, password
	return f.bindErr
}

func (f *fakeConn) Search(req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	f.searchReqs = append(f.searchReqs, req)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if len(f.searchRes) == 0 {
		return &ldap.SearchResult{}, nil
	}
	res := f.searchRes[0]
	f.searchRes = f.searchRes[1:]
	return res, nil
}

func (f *fakeConn) StartTLS(*tls.Config) error { return nil }

func (f *fakeConn) SetTimeout(d time.Duration) { f.timeoutsSet = append(f.timeoutsSet, d) }

func (f *fakeConn) Close() error { f.closed = true; return nil }

func testProfile() directory.Profile {
	return directory.Profile{
		Name:           "corp",
		Hosts:          []string{"dc1.corp.local"},
		Port:           636,
		Encryption:     directory.EncryptionLDAPS,
		NetworkTimeout: 5 * time.Second,
		BaseDN:         "dc=corp,dc=local",
		BindDN:         "cn=svc,dc=corp,dc=local",
		BindPassword:   "secret",
	}
}

func entry(dn string, attrs map[string][]string) *ldap.Entry {
	e := ldap.NewEntry(dn, attrs)
	return e
}

func TestDialer_Open_BindsServiceAccount(t *testing.T) {
	fake := &fakeConn{}
	d := NewDialerWithDialFunc(nil, func(_ context.Context, _ directory.Profile, _ string) (Conn, error) {
		return fake, nil
	})

	conn, err := d.Open(context.Background(), testProfile())

	require.NoError(t, err)
	assert.True(t, conn.IsConnected())
	assert.Equal(t, "cn=svc,dc=corp,dc=local", fake.bindDN)
	assert.Equal(t, "secret", fake.bindPass)
}

func TestDialer_Open_TriesNextHostOnDialFailure(t *testing.T) {
	profile := testProfile()
	profile.Hosts = []string{"dc1.corp.local", "dc2.corp.local"}

	fake := &fakeConn{}
	var dialed []string
	d := NewDialerWithDialFunc(nil, func(_ context.Context, _ directory.Profile, host string) (Conn, error) {
		dialed = append(dialed, host)
		if host == "dc1.corp.local" {
			return nil, errors.New("connection refused")
		}
		return fake, nil
	})

	conn, err := d.Open(context.Background(), profile)

	require.NoError(t, err)
	assert.True(t, conn.IsConnected())
	assert.Equal(t, []string{"dc1.corp.local", "dc2.corp.local"}, dialed)
}

func TestDialer_Open_AllHostsFail(t *testing.T) {
	d := NewDialerWithDialFunc(nil, func(_ context.Context, _ directory.Profile, _ string) (Conn, error) {
		return nil, errors.New("connection refused")
	})

	_, err := d.Open(context.Background(), testProfile())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no domain controller available")
}

func TestDialer_Open_BindFailureClosesConn(t *testing.T) {
	fake := &fakeConn{bindErr: errors.New("invalid credentials")}
	d := NewDialerWithDialFunc(nil, func(_ context.Context, _ directory.Profile, _ string) (Conn, error) {
		return fake, nil
	})

	_, err := d.Open(context.Background(), testProfile())

	require.Error(t, err)
	assert.True(t, fake.closed)
}

func TestDialer_Open_NoHosts(t *testing.T) {
	profile := testProfile()
	profile.Hosts = nil

	_, err := NewDialer(nil).Open(context.Background(), profile)

	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func openWithFake(t *testing.T, fake *fakeConn) ports.DirectoryConn {
	t.Helper()
	d := NewDialerWithDialFunc(nil, func(_ context.Context, _ directory.Profile, _ string) (Conn, error) {
		return fake, nil
	})
	conn, err := d.Open(context.Background(), testProfile())
	require.NoError(t, err)
	return conn
}

func TestConn_ResolveUser_BySuffixUsesUPNFilter(t *testing.T) {
	fake := &fakeConn{searchRes: []*ldap.SearchResult{{
		Entries: []*ldap.Entry{entry("cn=jdoe,dc=corp,dc=local", map[string][]string{
			"userPrincipalName": {"jdoe@corp.local"},
			"sAMAccountName":    {"jdoe"},
			"mail":              {"jdoe@corp.local"},
			"givenName":         {"Jane"},
			"sn":                {"Doe"},
		})},
	}}}
	conn := openWithFake(t, fake)

	identity, err := conn.ResolveUser(context.Background(), ports.UserQuery{
		Login: "jdoe@corp.local", UPNSuffix: "corp.local",
	})

	require.NoError(t, err)
	require.Len(t, fake.searchReqs, 1)
	assert.Equal(t, "(&(objectCategory=person)(objectClass=user)(userPrincipalName=jdoe@corp.local))",
		fake.searchReqs[0].Filter)
	assert.Equal(t, "dc=corp,dc=local", fake.searchReqs[0].BaseDN)
	assert.Equal(t, 2, fake.searchReqs[0].SizeLimit)

	assert.Equal(t, "cn=jdoe,dc=corp,dc=local", identity.DN)
	assert.Equal(t, "jdoe@corp.local", identity.UserPrincipalName)
	assert.Equal(t, "jdoe", identity.SAMAccountName)
	assert.Equal(t, "Jane", identity.GivenName)
	assert.True(t, identity.Valid())
}

func TestConn_ResolveUser_BareLoginUsesSAMFilter(t *testing.T) {
	fake := &fakeConn{searchRes: []*ldap.SearchResult{{
		Entries: []*ldap.Entry{entry("cn=jdoe,dc=corp,dc=local", map[string][]string{
			"sAMAccountName": {"jdoe"},
		})},
	}}}
	conn := openWithFake(t, fake)

	_, err := conn.ResolveUser(context.Background(), ports.UserQuery{Login: "jdoe"})

	require.NoError(t, err)
	assert.Equal(t, "(&(objectCategory=person)(objectClass=user)(sAMAccountName=jdoe))",
		fake.searchReqs[0].Filter)
}

func TestConn_ResolveUser_EscapesFilterInjection(t *testing.T) {
	fake := &fakeConn{searchRes: []*ldap.SearchResult{{
		Entries: []*ldap.Entry{entry("cn=x,dc=corp,dc=local", map[string][]string{
			"sAMAccountName": {"x"},
		})},
	}}}
	conn := openWithFake(t, fake)

	_, err := conn.ResolveUser(context.Background(), ports.UserQuery{Login: "jdoe)(objectClass=*"})

	require.NoError(t, err)
	assert.NotContains(t, fake.searchReqs[0].Filter, ")(objectClass=*")
}

func TestConn_ResolveUser_NotFound(t *testing.T) {
	conn := openWithFake(t, &fakeConn{})

	_, err := conn.ResolveUser(context.Background(), ports.UserQuery{Login: "ghost"})

	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestConn_ResolveUser_MultipleEntries(t *testing.T) {
	fake := &fakeConn{searchRes: []*ldap.SearchResult{{
		Entries: []*ldap.Entry{
			entry("cn=a,dc=corp,dc=local", nil),
			entry("cn=b,dc=corp,dc=local", nil),
		},
	}}}
	conn := openWithFake(t, fake)

	_, err := conn.ResolveUser(context.Background(), ports.UserQuery{Login: "dup"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 1")
}

func TestConn_UserGroups_TransitiveFilter(t *testing.T) {
	fake := &fakeConn{searchRes: []*ldap.SearchResult{{
		Entries: []*ldap.Entry{
			entry("cn=Sales,ou=groups,dc=corp,dc=local", map[string][]string{"cn": {"Sales"}}),
			entry("cn=VPN Users,ou=groups,dc=corp,dc=local", map[string][]string{"cn": {"VPN Users"}}),
			entry("cn=Unnamed,ou=groups,dc=corp,dc=local", nil),
		},
	}}}
	conn := openWithFake(t, fake)

	groups, err := conn.UserGroups(context.Background(), "cn=jdoe,dc=corp,dc=local")

	require.NoError(t, err)
	assert.Equal(t, []string{"Sales", "VPN Users", "Unnamed"}, groups)
	assert.Equal(t,
		"(&(objectClass=group)(member:1.2.840.113556.1.4.1941:=cn=jdoe,dc=corp,dc=local))",
		fake.searchReqs[0].Filter)
}

func TestConn_CloseMarksDisconnected(t *testing.T) {
	fake := &fakeConn{}
	conn := openWithFake(t, fake)

	require.NoError(t, conn.Close())

	assert.False(t, conn.IsConnected())
	assert.True(t, fake.closed)
	assert.NoError(t, conn.Close(), "close is idempotent")
}

func TestObjectGUIDString(t *testing.T) {
	raw := []byte{
		0x04, 0x03, 0x02, 0x01,
		0x06, 0x05,
		0x08, 0x07,
		0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10,
	}

	guid, err := objectGUIDString(raw)

	require.NoError(t, err)
	assert.Equal(t, "01020304-0506-0708-090a-0b0c0d0e0f10", guid)
}

func TestObjectGUIDString_WrongLength(t *testing.T) {
	_, err := objectGUIDString([]byte{0x01})
	require.Error(t, err)
}
