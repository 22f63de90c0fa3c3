// Package adldap implements the directory ports against Active Directory
// using the go-ldap client. Connections are opened fresh per authentication
// attempt and bound with the profile's service account.
package adldap

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"

	domainauth "github.com/doorman-id/doorman/internal/domain/auth"
	"github.com/doorman-id/doorman/internal/domain/directory"
	apperrors "github.com/doorman-id/doorman/internal/errors"
	"github.com/doorman-id/doorman/internal/ports"
)

const (
	attrUserPrincipalName = "userPrincipalName"
	attrSAMAccountName    = "sAMAccountName"
	attrObjectGUID        = "objectGUID"
	attrMail              = "mail"
	attrGivenName         = "givenName"
	attrSurname           = "sn"
	attrCommonName        = "cn"

	// matchingRuleInChain is Active Directory's transitive-membership
	// matching rule (LDAP_MATCHING_RULE_IN_CHAIN). Searching for groups with
	// member:<rule>:=<dn> returns nested memberships in one query.
	matchingRuleInChain = "1.2.840.113556.1.4.1941"
)

// Conn abstracts the wire-level LDAP connection (mostly for testing). It is
// a subset of ldap.Client, implemented by *ldap.Conn.
type Conn interface {
	Bind(username, password string) error
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
	StartTLS(cfg *tls.Config) error
	SetTimeout(timeout time.Duration)
	Close() error
}

var _ Conn = (*ldap.Conn)(nil)

// DialFunc opens a wire connection to one domain controller. It exists so
// tests can inject a fake Conn.
type DialFunc func(ctx context.Context, profile directory.Profile, host string) (Conn, error)

// Dialer opens bound directory connections for a profile, trying each
// configured domain controller in order.
type Dialer struct {
	logger *slog.Logger
	dial   DialFunc
}

var _ ports.DirectoryDialer = (*Dialer)(nil)

// NewDialer creates a production Dialer.
func NewDialer(logger *slog.Logger) *Dialer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dialer{logger: logger, dial: dialHost}
}

// NewDialerWithDialFunc creates a Dialer with a custom dial function (tests).
func NewDialerWithDialFunc(logger *slog.Logger, dial DialFunc) *Dialer {
	d := NewDialer(logger)
	if dial != nil {
		d.dial = dial
	}
	return d
}

// Open dials the profile's domain controllers in order and binds with the
// service account. The first controller that accepts both wins.
func (d *Dialer) Open(ctx context.Context, profile directory.Profile) (ports.DirectoryConn, error) {
	if len(profile.Hosts) == 0 {
		return nil, apperrors.Validation("profile has no domain controllers configured")
	}

	var lastErr error
	for _, host := range profile.Hosts {
		raw, err := d.dial(ctx, profile, host)
		if err != nil {
			d.logger.Warn("domain controller unreachable",
				slog.String("profile", profile.Name),
				slog.String("host", host),
				slog.Any("error", err))
			lastErr = err
			continue
		}

		if err := raw.Bind(profile.BindDN, profile.BindPassword); err != nil {
			d.logger.Warn("service account bind failed",
				slog.String("profile", profile.Name),
				slog.String("host", host),
				slog.Any("error", err))
			_ = raw.Close()
			lastErr = fmt.Errorf("bind as %q: %w", profile.BindDN, err)
			continue
		}

		return &conn{raw: raw, profile: profile, logger: d.logger, bound: true}, nil
	}

	return nil, fmt.Errorf("no domain controller available for profile %q: %w", profile.Name, lastErr)
}

// dialHost is the production DialFunc. The go-ldap library does not dial
// with a context, so the TCP/TLS stage is done here and the result handed to
// ldap.NewConn.
func dialHost(ctx context.Context, profile directory.Profile, host string) (Conn, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(profile.Port))
	tlsConfig := &tls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
	}

	var (
		lconn *ldap.Conn
	)
	switch profile.Encryption {
	case directory.EncryptionLDAPS:
		netConn, err := (&tls.Dialer{
			NetDialer: &net.Dialer{Timeout: profile.NetworkTimeout},
			Config:    tlsConfig,
		}).DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, ldap.NewError(ldap.ErrorNetwork, err)
		}
		lconn = ldap.NewConn(netConn, true)
		lconn.Start()

	default:
		netConn, err := (&net.Dialer{Timeout: profile.NetworkTimeout}).DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, ldap.NewError(ldap.ErrorNetwork, err)
		}
		lconn = ldap.NewConn(netConn, false)
		lconn.Start()
		if profile.Encryption == directory.EncryptionStartTLS {
			if err := lconn.StartTLS(tlsConfig); err != nil {
				_ = lconn.Close()
				return nil, fmt.Errorf("starttls with %s: %w", addr, err)
			}
		}
	}

	if profile.NetworkTimeout > 0 {
		lconn.SetTimeout(profile.NetworkTimeout)
	}
	return lconn, nil
}

// conn is a bound directory connection scoped to one profile.
type conn struct {
	raw     Conn
	profile directory.Profile
	logger  *slog.Logger
	bound   bool
	closed  bool
}

var _ ports.DirectoryConn = (*conn)(nil)

func (c *conn) IsConnected() bool {
	return c.bound && !c.closed
}

func (c *conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.raw.Close()
}

// ResolveUser searches for exactly one user entry and maps its attributes.
// Principals with a UPN suffix are looked up by userPrincipalName, bare
// usernames by sAMAccountName.
func (c *conn) ResolveUser(ctx context.Context, q ports.UserQuery) (*domainauth.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if q.Login == "" {
		return nil, apperrors.Validation("login is required")
	}

	result, err := c.raw.Search(c.userSearchRequest(q))
	if err != nil {
		return nil, fmt.Errorf("search for user %q: %w", q.Login, err)
	}
	if len(result.Entries) == 0 {
		return nil, apperrors.NotFoundf("no directory entry for principal %q", q.Login)
	}
	if len(result.Entries) > 1 {
		return nil, fmt.Errorf("search for user %q returned %d entries, expected 1", q.Login, len(result.Entries))
	}

	entry := result.Entries[0]
	if entry.DN == "" {
		return nil, fmt.Errorf("search for user %q returned an entry without DN", q.Login)
	}

	identity := &domainauth.Identity{
		DN:                entry.DN,
		UserPrincipalName: entry.GetAttributeValue(attrUserPrincipalName),
		SAMAccountName:    entry.GetAttributeValue(attrSAMAccountName),
		Mail:              entry.GetAttributeValue(attrMail),
		GivenName:         entry.GetAttributeValue(attrGivenName),
		Surname:           entry.GetAttributeValue(attrSurname),
	}

	if raw := entry.GetRawAttributeValue(attrObjectGUID); len(raw) > 0 {
		guid, guidErr := objectGUIDString(raw)
		if guidErr != nil {
			c.logger.Warn("could not decode objectGUID",
				slog.String("dn", entry.DN), slog.Any("error", guidErr))
		} else {
			identity.ObjectGUID = guid
		}
	}

	return identity, nil
}

// UserGroups returns the names of all security groups the entry belongs to,
// resolved transitively in a single query using the in-chain matching rule.
func (c *conn) UserGroups(ctx context.Context, dn string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if dn == "" {
		return nil, apperrors.Validation("dn is required")
	}

	req := &ldap.SearchRequest{
		BaseDN:       c.profile.BaseDN,
		Scope:        ldap.ScopeWholeSubtree,
		DerefAliases: ldap.NeverDerefAliases,
		TimeLimit:    c.timeLimitSeconds(),
		Filter: fmt.Sprintf("(&(objectClass=group)(member:%s:=%s))",
			matchingRuleInChain, ldap.EscapeFilter(dn)),
		Attributes: []string{attrCommonName},
	}

	result, err := c.raw.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search groups for %q: %w", dn, err)
	}

	groups := make([]string, 0, len(result.Entries))
	for _, entry := range result.Entries {
		name := entry.GetAttributeValue(attrCommonName)
		if name == "" {
			name = firstRDNValue(entry.DN)
		}
		if name != "" {
			groups = append(groups, name)
		}
	}
	return groups, nil
}

func (c *conn) userSearchRequest(q ports.UserQuery) *ldap.SearchRequest {
	return &ldap.SearchRequest{
		BaseDN:       c.profile.BaseDN,
		Scope:        ldap.ScopeWholeSubtree,
		DerefAliases: ldap.NeverDerefAliases,
		SizeLimit:    2,
		TimeLimit:    c.timeLimitSeconds(),
		Filter:       userSearchFilter(q),
		Attributes: []string{
			attrUserPrincipalName,
			attrSAMAccountName,
			attrObjectGUID,
			attrMail,
			attrGivenName,
			attrSurname,
		},
	}
}

func (c *conn) timeLimitSeconds() int {
	if c.profile.NetworkTimeout <= 0 {
		return 0
	}
	secs := int(c.profile.NetworkTimeout / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// userSearchFilter builds the user lookup filter. The login is end-user
// input and is escaped to prevent filter injection.
func userSearchFilter(q ports.UserQuery) string {
	safe := ldap.EscapeFilter(q.Login)
	attr := attrSAMAccountName
	if q.UPNSuffix != "" {
		attr = attrUserPrincipalName
	}
	return fmt.Sprintf("(&(objectCategory=person)(objectClass=user)(%s=%s))", attr, safe)
}

// objectGUIDString renders the 16-byte objectGUID in its canonical string
// form. The first three groups are stored little-endian on the wire.
func objectGUIDString(raw []byte) (string, error) {
	if len(raw) != 16 {
		return "", fmt.Errorf("objectGUID has %d bytes, expected 16", len(raw))
	}
	ordered := []byte{
		raw[3], raw[2], raw[1], raw[0],
		raw[5], raw[4],
		raw[7], raw[6],
		raw[8], raw[9], raw[10], raw[11], raw[12], raw[13], raw[14], raw[15],
	}
	return fmt.Sprintf("%x-%x-%x-%x-%x",
		ordered[0:4], ordered[4:6], ordered[6:8], ordered[8:10], ordered[10:16]), nil
}

func firstRDNValue(dn string) string {
	first := strings.SplitN(dn, ",", 2)[0]
	if eq := strings.Index(first, "="); eq >= 0 {
		return strings.TrimSpace(first[eq+1:])
	}
	return strings.TrimSpace(first)
}
