package config

import (
	"strings"
	"time"

	"github.com/doorman-id/doorman/internal/domain/directory"
)

// DirectoryConfig describes the default Active Directory connection profile.
// Multi-domain installations store additional profiles in the database; the
// default profile is always considered first.
type DirectoryConfig struct {
	Name string `env:"NAME" envDefault:"default"`

	// Hosts lists domain controllers in preference order.
	Hosts []string `env:"HOSTS" envSeparator:";" envDefault:"localhost"`
	Port  int      `env:"PORT"  envDefault:"636"`

	// Encryption is one of none, starttls, ldaps.
	Encryption directory.Encryption `env:"ENCRYPTION" envDefault:"ldaps"`

	NetworkTimeout time.Duration `env:"NETWORK_TIMEOUT" envDefault:"5s"`

	BaseDN       string `env:"BASE_DN"`
	BindDN       string `env:"BIND_DN"`
	BindPassword string `env:"BIND_PASSWORD"`

	// AccountSuffixes is a semicolon-delimited UPN suffix list. Leave empty
	// to make this a wildcard profile that matches any suffix.
	AccountSuffixes string `env:"ACCOUNT_SUFFIXES" envDefault:""`

	// SSOEnabled is tri-state: unset means disabled.
	SSOEnabled *bool `env:"SSO_ENABLED"`
}

// Sanitize applies guardrails to directory configuration values.
func (c *DirectoryConfig) Sanitize() {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		c.Name = "default"
	}

	hosts := c.Hosts[:0]
	for _, h := range c.Hosts {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	c.Hosts = hosts

	if c.Port <= 0 || c.Port > 65535 {
		c.Port = defaultDirectoryPort(c.Encryption)
	}
	if c.NetworkTimeout <= 0 {
		c.NetworkTimeout = 5 * time.Second
	}
}

func defaultDirectoryPort(enc directory.Encryption) int {
	if enc == directory.EncryptionLDAPS {
		return 636
	}
	return 389
}

// Profile converts the env-configured default profile to its domain form.
func (c DirectoryConfig) Profile() directory.Profile {
	return directory.Profile{
		Name:            c.Name,
		Hosts:           c.Hosts,
		Port:            c.Port,
		Encryption:      c.Encryption,
		NetworkTimeout:  c.NetworkTimeout,
		BaseDN:          c.BaseDN,
		BindDN:          c.BindDN,
		BindPassword:    c.BindPassword,
		AccountSuffixes: c.AccountSuffixes,
		SSOEnabled:      c.SSOEnabled,
	}
}

// SyncConfig controls security-group-to-role synchronization.
type SyncConfig struct {
	// RoleEquivalentGroups is a semicolon-delimited "group=role" list.
	// Malformed entries are skipped with a warning.
	RoleEquivalentGroups string `env:"ROLE_EQUIVALENT_GROUPS" envDefault:""`

	// AuthorizationGroups restricts login to members of the listed security
	// groups. An empty list (after trimming) means access is unrestricted.
	AuthorizationGroups string `env:"AUTHORIZATION_GROUPS" envDefault:""`

	// CleanExistingRoles strips all pre-existing roles before applying the
	// computed set. Creation-time overrides may force this either way.
	CleanExistingRoles bool `env:"CLEAN_EXISTING_ROLES" envDefault:"false"`

	// DefaultRole is assigned to newly created users that belong to no
	// configured equivalence group.
	DefaultRole string `env:"DEFAULT_ROLE" envDefault:"subscriber"`

	// AutoCreateUsers allows the login flow to create local accounts for
	// directory users seen for the first time.
	AutoCreateUsers bool `env:"AUTO_CREATE_USERS" envDefault:"true"`

	// AutoUpdateUsers refreshes local account attributes from the directory
	// on every login.
	AutoUpdateUsers bool `env:"AUTO_UPDATE_USERS" envDefault:"true"`
}

// Sanitize applies guardrails to sync configuration values.
func (c *SyncConfig) Sanitize() {
	c.DefaultRole = strings.TrimSpace(c.DefaultRole)
	if c.DefaultRole == "" {
		c.DefaultRole = "subscriber"
	}
}
