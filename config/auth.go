package config

import (
	"fmt"
	"strings"
	"time"
)

// PrincipalSource names the trusted request variable the SSO principal is
// read from. The upstream web server (Kerberos/SPNEGO tier) is responsible
// for populating it; this service trusts the value as already verified.
type PrincipalSource string

const (
	PrincipalSourceRemoteUser     PrincipalSource = "REMOTE_USER"
	PrincipalSourceXRemoteUser    PrincipalSource = "X-REMOTE-USER"
	PrincipalSourceHTTPRemoteUser PrincipalSource = "HTTP_X_REMOTE_USER"
	PrincipalSourcePHPAuthUser    PrincipalSource = "PHP_AUTH_USER"
)

// UnmarshalText implements encoding.TextUnmarshaler for PrincipalSource.
func (p *PrincipalSource) UnmarshalText(text []byte) error {
	v := strings.ToUpper(strings.TrimSpace(string(text)))
	switch PrincipalSource(v) {
	case PrincipalSourceRemoteUser, PrincipalSourceXRemoteUser,
		PrincipalSourceHTTPRemoteUser, PrincipalSourcePHPAuthUser:
		*p = PrincipalSource(v)
		return nil
	default:
		return fmt.Errorf("invalid PrincipalSource: %q (valid options: REMOTE_USER, X-REMOTE-USER, HTTP_X_REMOTE_USER, PHP_AUTH_USER)", v)
	}
}

// HeaderName returns the HTTP request header the configured source maps to.
// The CGI-style names are aliases kept for compatibility with upstream
// server configurations.
func (p PrincipalSource) HeaderName() string {
	switch p {
	case PrincipalSourceXRemoteUser, PrincipalSourceHTTPRemoteUser:
		return "X-Remote-User"
	case PrincipalSourcePHPAuthUser:
		return "Php-Auth-User"
	default:
		return "Remote-User"
	}
}

// SSOConfig controls trusted-header single sign-on.
type SSOConfig struct {
	// Enabled turns the SSO middleware on.
	Enabled bool `env:"ENABLED" envDefault:"true"`

	// PrincipalSource selects which trusted variable carries the principal.
	PrincipalSource PrincipalSource `env:"PRINCIPAL_SOURCE" envDefault:"REMOTE_USER"`

	// ExcludedUsernames lists principals SSO never applies to (e.g. local
	// admin accounts). Comparison is case-insensitive.
	ExcludedUsernames []string `env:"EXCLUDED_USERNAMES" envSeparator:";"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	SSO SSOConfig `envPrefix:"SSO_"`

	// SessionTTL is the lifetime of a server-side session. The session flag
	// store uses the same TTL so flags never outlive the browser session.
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"8h"`

	// CookieDomain is the domain for session cookies.
	// Leave empty to use the request domain.
	CookieDomain string `env:"COOKIE_DOMAIN" envDefault:""`
}

// Sanitize applies guardrails to authentication configuration values.
func (c *AuthConfig) Sanitize() {
	if c.SessionTTL <= 0 {
		c.SessionTTL = 8 * time.Hour
	}

	cleaned := c.SSO.ExcludedUsernames[:0]
	for _, u := range c.SSO.ExcludedUsernames {
		if u = strings.TrimSpace(u); u != "" {
			cleaned = append(cleaned, u)
		}
	}
	c.SSO.ExcludedUsernames = cleaned
}
