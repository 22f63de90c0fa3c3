package service

import (
	"context"
	"log/slog"

	domainauth "github.com/doorman-id/doorman/internal/domain/auth"
	"github.com/doorman-id/doorman/internal/domain/directory"
	apperrors "github.com/doorman-id/doorman/internal/errors"
	"github.com/doorman-id/doorman/internal/ports"
)

// LogoutAction is the request action value that marks an in-progress logout.
const LogoutAction = "logout"

// SSOValidatorOptions groups dependencies for SSOValidator.
type SSOValidatorOptions struct {
	Flags  ports.SessionFlagStore
	Logger *slog.Logger
}

// SSOValidator is the set of precondition checks gating the SSO state
// machine. Each check passes or returns a typed error: LogoutInProgress
// aborts the attempt silently, AuthenticationFailed arms the retry
// circuit breaker. The validator holds no state of its own beyond the
// injected session flag store.
type SSOValidator struct {
	flags  ports.SessionFlagStore
	logger *slog.Logger
}

// NewSSOValidator constructs a new SSOValidator.
func NewSSOValidator(opts SSOValidatorOptions) *SSOValidator {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &SSOValidator{
		flags:  opts.Flags,
		logger: opts.Logger,
	}
}

// ValidateRequest rejects requests that are part of a logout.
func (v *SSOValidator) ValidateRequest(action string) error {
	if action == LogoutAction {
		return apperrors.LogoutInProgress("logout action in request")
	}
	return nil
}

// ValidateLogoutState rejects the attempt while the session records a manual
// logout.
func (v *SSOValidator) ValidateLogoutState(ctx context.Context, sessionKey string) error {
	loggedOut, err := v.flags.LoggedOut(ctx, sessionKey)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "read logout flag")
	}
	if loggedOut {
		return apperrors.LogoutInProgress("user logged out manually")
	}
	return nil
}

// ValidateRetrySuppression is the circuit breaker: it rejects the attempt
// when the session's recorded failed principal equals the current login.
func (v *SSOValidator) ValidateRetrySuppression(ctx context.Context, sessionKey string, creds domainauth.Credentials) error {
	failed, err := v.flags.FailedPrincipal(ctx, sessionKey)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "read failed-principal flag")
	}
	if failed != "" && failed == creds.Login {
		return apperrors.AuthenticationFailedf("sso previously failed for principal %q, retry suppressed", creds.Login)
	}
	return nil
}

// ValidateProfile rejects the attempt when no profile was located.
func (v *SSOValidator) ValidateProfile(match *directory.ProfileMatch) error {
	if match == nil {
		return apperrors.AuthenticationFailed("no matching sso profile")
	}
	return nil
}

// ValidateConnection rejects the attempt when the directory connection did
// not come up bound.
func (v *SSOValidator) ValidateConnection(conn ports.DirectoryConn) error {
	if conn == nil || !conn.IsConnected() {
		return apperrors.AuthenticationFailed("directory connection is not established")
	}
	return nil
}

// ValidateIdentity rejects the attempt when the directory lookup did not
// produce a recognizable user.
func (v *SSOValidator) ValidateIdentity(identity *domainauth.Identity) error {
	if !identity.Valid() {
		return apperrors.AuthenticationFailed("directory entry is not a valid user")
	}
	return nil
}
