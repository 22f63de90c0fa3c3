// Package auth contains domain-level types for authentication and sessions.
// It is pure and free of framework/adapter concerns.
package auth

import (
	"strings"
	"time"
)

// Credentials represents an identity currently being authenticated.
// Login is the raw principal exactly as received from the trusted source;
// UserPrincipalName is only populated (and only trustworthy) after the
// directory lookup has resolved the canonical form.
type Credentials struct {
	Login             string
	UserPrincipalName string
	UPNSuffix         string
}

// NewCredentials builds Credentials from a raw principal. The UPN suffix is
// derived from the portion after the first "@" when present.
func NewCredentials(login string) Credentials {
	c := Credentials{Login: login}
	if at := strings.Index(login, "@"); at >= 0 {
		c.UPNSuffix = login[at+1:]
	}
	return c
}

// SetUserPrincipalName records the canonical UPN resolved from the directory
// and re-derives the suffix from it.
func (c *Credentials) SetUserPrincipalName(upn string) {
	c.UserPrincipalName = upn
	if at := strings.Index(upn, "@"); at >= 0 {
		c.UPNSuffix = upn[at+1:]
	}
}

// BareUsername returns the login without any UPN suffix.
func (c Credentials) BareUsername() string {
	if at := strings.Index(c.Login, "@"); at >= 0 {
		return c.Login[:at]
	}
	return c.Login
}

// HasSuffix reports whether the credentials carry a UPN suffix.
func (c Credentials) HasSuffix() bool { return c.UPNSuffix != "" }

// Identity represents the principal as resolved from the directory.
// Adapters map raw LDAP attributes into this shape.
type Identity struct {
	// DN is the distinguished name of the directory entry.
	DN string
	// ObjectGUID is the directory's stable unique identifier, formatted as a UUID string.
	ObjectGUID string
	// UserPrincipalName is the canonical user@suffix form.
	UserPrincipalName string
	// SAMAccountName is the pre-Windows-2000 logon name.
	SAMAccountName string
	Mail           string
	GivenName      string
	Surname        string
}

// Valid reports whether the identity describes a recognized directory user.
func (i *Identity) Valid() bool {
	return i != nil && i.DN != "" && (i.UserPrincipalName != "" || i.SAMAccountName != "")
}

// Key returns the identifier used for group membership lookups, preferring
// the DN (required by the directory's recursive membership filter).
func (i *Identity) Key() string {
	if i == nil {
		return ""
	}
	return i.DN
}

// User is the local account a directory identity maps onto.
type User struct {
	ID                string    `json:"id"                  db:"id"`
	Username          string    `json:"username"            db:"username"`
	UserPrincipalName string    `json:"user_principal_name" db:"user_principal_name"`
	Email             string    `json:"email"               db:"email"`
	DisplayName       string    `json:"display_name"        db:"display_name"`
	SuperAdmin        bool      `json:"super_admin"         db:"super_admin"`
	CreatedAt         time.Time `json:"created_at"          db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"          db:"updated_at"`
}

// Session is the server-side record persisted for an authenticated user.
// ID is an opaque session identifier.
type Session struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	Username          string    `json:"username"`
	UserPrincipalName string    `json:"user_principal_name"`
	Email             string    `json:"email"`
	Roles             []string  `json:"roles"`
	ExpiresAt         time.Time `json:"expires_at"`
}

// HasRole reports whether the session carries the named role.
func (s Session) HasRole(role string) bool {
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}
