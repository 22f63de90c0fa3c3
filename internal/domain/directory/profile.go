// Package directory contains domain types for Active Directory connection
// profiles and group-to-role mappings. It is pure and free of LDAP or
// storage concerns.
package directory

import (
	"fmt"
	"strings"
	"time"
)

// Encryption selects the transport security used when connecting to a
// domain controller.
type Encryption string

const (
	EncryptionNone     Encryption = "none"
	EncryptionStartTLS Encryption = "starttls"
	EncryptionLDAPS    Encryption = "ldaps"
)

// UnmarshalText implements encoding.TextUnmarshaler so configuration loaders
// can validate the value.
func (e *Encryption) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch Encryption(v) {
	case EncryptionNone, EncryptionStartTLS, EncryptionLDAPS:
		*e = Encryption(v)
		return nil
	default:
		return fmt.Errorf("invalid Encryption: %q (valid options: none, starttls, ldaps)", v)
	}
}

// Profile is a named directory connection configuration. Installations with
// multiple domains configure one profile per domain; the default profile is
// always considered first.
type Profile struct {
	// ID is empty for the env-configured default profile; persisted profiles
	// carry their storage identifier.
	ID   string
	Name string

	// Hosts lists domain controllers in preference order.
	Hosts []string
	Port  int

	Encryption     Encryption
	NetworkTimeout time.Duration

	BaseDN       string
	BindDN       string
	BindPassword string

	// AccountSuffixes is the raw semicolon-delimited suffix list as
	// configured (e.g. "@corp.example.com;@emea.example.com").
	AccountSuffixes string

	// SSOEnabled is tri-state: only an explicit true enables SSO for this
	// profile; absence of the flag means disabled.
	SSOEnabled *bool
}

// SSOIsEnabled reports whether SSO is explicitly enabled for the profile.
func (p Profile) SSOIsEnabled() bool {
	return p.SSOEnabled != nil && *p.SSOEnabled
}

// SuffixList returns the configured account suffixes, normalized with a
// leading "@", trimmed, with empty entries dropped.
func (p Profile) SuffixList() []string {
	var out []string
	for _, s := range SplitList(p.AccountSuffixes) {
		out = append(out, NormalizeSuffix(s))
	}
	return out
}

// HasSuffix reports whether the profile's suffix list contains the given
// normalized suffix. Comparison is case-insensitive.
func (p Profile) HasSuffix(suffix string) bool {
	for _, s := range p.SuffixList() {
		if strings.EqualFold(s, suffix) {
			return true
		}
	}
	return false
}

// IsWildcard reports whether the profile has no suffix configured at all and
// therefore acts as a fallback for principals whose suffix matched nothing.
func (p Profile) IsWildcard() bool {
	return len(p.SuffixList()) == 0
}

// MatchKind distinguishes how a profile was selected for a principal.
type MatchKind string

const (
	// MatchBySuffix means the principal's suffix appeared in the profile's
	// configured suffix list.
	MatchBySuffix MatchKind = "suffix"
	// MatchByWildcard means no profile matched the suffix and a profile with
	// no configured suffixes was chosen as fallback.
	MatchByWildcard MatchKind = "wildcard"
)

// ProfileMatch is the chosen profile plus how it was matched, kept for audit
// logging. It is transient per authentication attempt.
type ProfileMatch struct {
	Profile Profile
	Kind    MatchKind
}

// NormalizeSuffix prepends "@" to a non-empty suffix that does not already
// start with one. Normalization is idempotent and the empty string maps to
// itself.
func NormalizeSuffix(suffix string) string {
	if suffix == "" || strings.HasPrefix(suffix, "@") {
		return suffix
	}
	return "@" + suffix
}

// SplitList splits a semicolon-delimited configuration string, trimming each
// entry and dropping empty ones.
func SplitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
