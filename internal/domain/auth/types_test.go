package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCredentials(t *testing.T) {
	tests := []struct {
		name       string
		login      string
		wantSuffix string
		wantBare   string
	}{
		{name: "bare username", login: "jdoe", wantSuffix: "", wantBare: "jdoe"},
		{name: "upn form", login: "jdoe@corp.local", wantSuffix: "corp.local", wantBare: "jdoe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCredentials(tt.login)
			assert.Equal(t, tt.login, c.Login)
			assert.Equal(t, tt.wantSuffix, c.UPNSuffix)
			assert.Equal(t, tt.wantBare, c.BareUsername())
			assert.Empty(t, c.UserPrincipalName, "UPN is untrusted before directory resolution")
		})
	}
}

func TestCredentials_SetUserPrincipalName(t *testing.T) {
	c := NewCredentials("jdoe")
	assert.False(t, c.HasSuffix())

	c.SetUserPrincipalName("jdoe@corp.local")

	assert.Equal(t, "jdoe@corp.local", c.UserPrincipalName)
	assert.Equal(t, "corp.local", c.UPNSuffix)
	assert.True(t, c.HasSuffix())
	assert.Equal(t, "jdoe", c.Login, "raw login is preserved")
}

func TestIdentity_Valid(t *testing.T) {
	var nilIdentity *Identity
	assert.False(t, nilIdentity.Valid())
	assert.False(t, (&Identity{}).Valid())
	assert.False(t, (&Identity{DN: "cn=jdoe,dc=corp"}).Valid())
	assert.True(t, (&Identity{DN: "cn=jdoe,dc=corp", UserPrincipalName: "jdoe@corp.local"}).Valid())
	assert.True(t, (&Identity{DN: "cn=jdoe,dc=corp", SAMAccountName: "jdoe"}).Valid())
}

func TestSession_HasRole(t *testing.T) {
	s := Session{Roles: []string{"editor", "contributor"}}
	assert.True(t, s.HasRole("editor"))
	assert.False(t, s.HasRole("administrator"))
	assert.False(t, Session{}.HasRole("editor"))
}
