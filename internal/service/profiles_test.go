package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doorman-id/doorman/internal/domain/directory"
	mocks "github.com/doorman-id/doorman/internal/mocks/auth"
	"github.com/doorman-id/doorman/internal/ports"
)

func enabledProfile(name, suffixes string) directory.Profile {
	enabled := true
	return directory.Profile{
		Name:            name,
		Hosts:           []string{"dc1.example.com"},
		AccountSuffixes: suffixes,
		SSOEnabled:      &enabled,
	}
}

func sourceOf(profiles ...directory.Profile) ports.ProfileSource {
	return &mocks.StaticProfileSource{Profiles: profiles}
}

func TestProfileLocator_LocateBySuffix(t *testing.T) {
	locator := NewProfileLocator(ProfileLocatorOptions{
		Sources: []ports.ProfileSource{sourceOf(
			enabledProfile("corp", "@corp.example.com"),
			enabledProfile("emea", "@emea.example.com"),
		)},
	})

	match, err := locator.Locate(context.Background(), "emea.example.com")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "emea", match.Profile.Name)
	assert.Equal(t, directory.MatchBySuffix, match.Kind)
}

func TestProfileLocator_SuffixMatchIsCaseInsensitive(t *testing.T) {
	locator := NewProfileLocator(ProfileLocatorOptions{
		Sources: []ports.ProfileSource{sourceOf(
			enabledProfile("corp", "@Corp.Example.COM"),
		)},
	})

	match, err := locator.Locate(context.Background(), "@corp.example.com")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "corp", match.Profile.Name)
}

func TestProfileLocator_AmbiguousSuffixUsesFirst(t *testing.T) {
	locator := NewProfileLocator(ProfileLocatorOptions{
		Sources: []ports.ProfileSource{sourceOf(
			enabledProfile("first", "@corp.example.com"),
			enabledProfile("second", "@corp.example.com"),
		)},
	})

	match, err := locator.Locate(context.Background(), "@corp.example.com")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "first", match.Profile.Name)
}

func TestProfileLocator_WildcardFallback(t *testing.T) {
	locator := NewProfileLocator(ProfileLocatorOptions{
		Sources: []ports.ProfileSource{sourceOf(
			enabledProfile("corp", "@corp.example.com"),
			enabledProfile("catchall", ""),
		)},
	})

	// Suffix matching nothing falls through to the wildcard profile.
	match, err := locator.Locate(context.Background(), "@unknown.example.com")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "catchall", match.Profile.Name)
	assert.Equal(t, directory.MatchByWildcard, match.Kind)

	// So does a principal without any suffix at all.
	match, err = locator.Locate(context.Background(), "")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "catchall", match.Profile.Name)
}

func TestProfileLocator_NoMatch(t *testing.T) {
	locator := NewProfileLocator(ProfileLocatorOptions{
		Sources: []ports.ProfileSource{sourceOf(
			enabledProfile("corp", "@corp.example.com"),
		)},
	})

	match, err := locator.Locate(context.Background(), "@other.example.com")
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestProfileLocator_DisabledProfilesIgnored(t *testing.T) {
	implicitOff := directory.Profile{
		Name:            "corp",
		AccountSuffixes: "@corp.example.com",
	}
	explicitFalse := false
	explicitOff := directory.Profile{
		Name:            "emea",
		AccountSuffixes: "@corp.example.com",
		SSOEnabled:      &explicitFalse,
	}

	locator := NewProfileLocator(ProfileLocatorOptions{
		Sources: []ports.ProfileSource{sourceOf(implicitOff, explicitOff)},
	})

	match, err := locator.Locate(context.Background(), "@corp.example.com")
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestProfileLocator_SourceOrderWins(t *testing.T) {
	locator := NewProfileLocator(ProfileLocatorOptions{
		Sources: []ports.ProfileSource{
			sourceOf(enabledProfile("default", "@corp.example.com")),
			sourceOf(enabledProfile("stored", "@corp.example.com")),
		},
	})

	match, err := locator.Locate(context.Background(), "@corp.example.com")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "default", match.Profile.Name)
}

func TestProfileLocator_SourceError(t *testing.T) {
	src := &mocks.StaticProfileSource{Err: errors.New("database is down")}

	locator := NewProfileLocator(ProfileLocatorOptions{
		Sources: []ports.ProfileSource{src},
	})

	_, err := locator.Locate(context.Background(), "@corp.example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load directory profiles")
}
