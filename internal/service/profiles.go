// Package service provides the business logic of the doorman authentication core.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/doorman-id/doorman/internal/domain/directory"
	"github.com/doorman-id/doorman/internal/ports"
)

// ProfileLocatorOptions groups dependencies for ProfileLocator.
type ProfileLocatorOptions struct {
	Sources []ports.ProfileSource
	Logger  *slog.Logger
}

// ProfileLocator deterministically selects the directory profile that should
// authenticate a given principal. Profiles are consulted in configuration
// order across all sources, first source first.
type ProfileLocator struct {
	sources []ports.ProfileSource
	logger  *slog.Logger
}

// NewProfileLocator constructs a new ProfileLocator.
func NewProfileLocator(opts ProfileLocatorOptions) *ProfileLocator {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &ProfileLocator{
		sources: opts.Sources,
		logger:  opts.Logger,
	}
}

// Locate picks the profile responsible for the given UPN suffix. Only profiles
// with SSO explicitly enabled are considered. Suffix matching is
// case-insensitive; if several profiles claim the same suffix the first one
// wins and a warning is logged. When no profile matches by suffix, profiles
// without any configured suffix act as wildcard fallbacks. A nil result with
// nil error means no profile is responsible.
func (l *ProfileLocator) Locate(ctx context.Context, suffix string) (*directory.ProfileMatch, error) {
	normalized := directory.NormalizeSuffix(suffix)

	enabled, err := l.ssoEnabledProfiles(ctx)
	if err != nil {
		return nil, err
	}

	if normalized != "" {
		var matches []directory.Profile
		for _, p := range enabled {
			if p.HasSuffix(normalized) {
				matches = append(matches, p)
			}
		}
		if len(matches) > 1 {
			names := make([]string, len(matches))
			for i, p := range matches {
				names[i] = p.Name
			}
			l.logger.Warn("multiple sso profiles match suffix, using first",
				slog.String("suffix", normalized),
				slog.Any("profiles", names))
		}
		if len(matches) > 0 {
			return &directory.ProfileMatch{Profile: matches[0], Kind: directory.MatchBySuffix}, nil
		}
	}

	for _, p := range enabled {
		if p.IsWildcard() {
			return &directory.ProfileMatch{Profile: p, Kind: directory.MatchByWildcard}, nil
		}
	}

	return nil, nil
}

// ssoEnabledProfiles collects the SSO-enabled profiles from all sources in
// order. A profile without an explicit enabled flag is treated as disabled.
func (l *ProfileLocator) ssoEnabledProfiles(ctx context.Context) ([]directory.Profile, error) {
	var out []directory.Profile
	for _, src := range l.sources {
		profiles, err := src.FindAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("load directory profiles: %w", err)
		}
		for _, p := range profiles {
			if p.SSOIsEnabled() {
				out = append(out, p)
			}
		}
	}
	return out, nil
}
