package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doorman-id/doorman/internal/domain/directory"
)

func TestPrincipalSource_UnmarshalText(t *testing.T) {
	tests := []struct {
		input   string
		want    PrincipalSource
		header  string
		wantErr bool
	}{
		{input: "REMOTE_USER", want: PrincipalSourceRemoteUser, header: "Remote-User"},
		{input: "remote_user", want: PrincipalSourceRemoteUser, header: "Remote-User"},
		{input: "X-REMOTE-USER", want: PrincipalSourceXRemoteUser, header: "X-Remote-User"},
		{input: "HTTP_X_REMOTE_USER", want: PrincipalSourceHTTPRemoteUser, header: "X-Remote-User"},
		{input: "PHP_AUTH_USER", want: PrincipalSourcePHPAuthUser, header: "Php-Auth-User"},
		{input: "COOKIE", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var p PrincipalSource
			err := p.UnmarshalText([]byte(tt.input))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p)
			assert.Equal(t, tt.header, p.HeaderName())
		})
	}
}

func TestAuthConfig_Sanitize(t *testing.T) {
	cfg := AuthConfig{
		SessionTTL: -time.Hour,
		SSO: SSOConfig{
			ExcludedUsernames: []string{" admin ", "", "  ", "svc-backup"},
		},
	}

	cfg.Sanitize()

	assert.Equal(t, 8*time.Hour, cfg.SessionTTL)
	assert.Equal(t, []string{"admin", "svc-backup"}, cfg.SSO.ExcludedUsernames)
}

func TestDirectoryConfig_Sanitize(t *testing.T) {
	cfg := DirectoryConfig{
		Name:       "  ",
		Hosts:      []string{" dc1.corp.local ", ""},
		Port:       -1,
		Encryption: directory.EncryptionLDAPS,
	}

	cfg.Sanitize()

	assert.Equal(t, "default", cfg.Name)
	assert.Equal(t, []string{"dc1.corp.local"}, cfg.Hosts)
	assert.Equal(t, 636, cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.NetworkTimeout)
}

func TestDirectoryConfig_Sanitize_PlaintextDefaultPort(t *testing.T) {
	cfg := DirectoryConfig{Encryption: directory.EncryptionStartTLS}
	cfg.Sanitize()
	assert.Equal(t, 389, cfg.Port)
}

func TestDirectoryConfig_Profile(t *testing.T) {
	enabled := true
	cfg := DirectoryConfig{
		Name:            "corp",
		Hosts:           []string{"dc1.corp.local"},
		Port:            636,
		Encryption:      directory.EncryptionLDAPS,
		NetworkTimeout:  10 * time.Second,
		BaseDN:          "dc=corp,dc=local",
		BindDN:          "cn=svc,dc=corp,dc=local",
		BindPassword:    "secret",
		AccountSuffixes: "@corp.local",
		SSOEnabled:      &enabled,
	}

	p := cfg.Profile()

	assert.Equal(t, "corp", p.Name)
	assert.True(t, p.SSOIsEnabled())
	assert.True(t, p.HasSuffix("@corp.local"))
	assert.Equal(t, 10*time.Second, p.NetworkTimeout)
}

func TestSyncConfig_Sanitize(t *testing.T) {
	cfg := SyncConfig{DefaultRole: "  "}
	cfg.Sanitize()
	assert.Equal(t, "subscriber", cfg.DefaultRole)
}

func TestHTTPConfig_Sanitize(t *testing.T) {
	cfg := HTTPConfig{Addr: " ", BaseURL: "https://sso.example.com/ "}
	cfg.Sanitize()
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "https://sso.example.com", cfg.BaseURL)
}

func TestAppConfig_Sanitize(t *testing.T) {
	var cfg AppConfig
	cfg.Sanitize()

	assert.Equal(t, 8*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, "subscriber", cfg.Sync.DefaultRole)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
}
