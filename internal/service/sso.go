package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/doorman-id/doorman/config"
	domainauth "github.com/doorman-id/doorman/internal/domain/auth"
	apperrors "github.com/doorman-id/doorman/internal/errors"
	"github.com/doorman-id/doorman/internal/ports"
)

// ReauthMarker is the query fragment that requests explicit
// re-authentication and clears the session's failure and logout flags.
const ReauthMarker = "reauth=sso"

// AuthOutcome classifies the result of an SSO attempt.
type AuthOutcome string

const (
	// OutcomeSuccess means a session was established.
	OutcomeSuccess AuthOutcome = "success"
	// OutcomeNotApplicable means SSO did not apply to this request: no
	// principal present, excluded user, already authenticated, or a logout in
	// progress. The request falls through to the normal login flow.
	OutcomeNotApplicable AuthOutcome = "not_applicable"
	// OutcomeFailed means a real authentication failure occurred and the
	// retry circuit breaker was armed.
	OutcomeFailed AuthOutcome = "failed"
)

// AuthRequest carries the per-request inputs of an SSO attempt.
type AuthRequest struct {
	// SessionKey scopes the advisory flags to the caller's browser session.
	SessionKey string
	// Principal is the raw value of the trusted principal source, exactly as
	// received. May be empty for non-SSO requests.
	Principal string
	// Action is the request's action parameter ("logout" aborts the attempt).
	Action string
	// ReauthRequested is set when the request carries the reauth marker.
	ReauthRequested bool
	// RequestURI is the current request URI, used for redirect computation.
	RequestURI string
	// RedirectTo is the explicit redirect_to request parameter, if any.
	RedirectTo string
	// AlreadyAuthenticated short-circuits the whole attempt.
	AlreadyAuthenticated bool
}

// AuthResult is the outcome of an SSO attempt. Session and RedirectURI are
// only set on success.
type AuthResult struct {
	Outcome     AuthOutcome
	Session     *domainauth.Session
	RedirectURI string
}

type metricsSink interface {
	Count(name string, value int64, tags map[string]string)
	Timing(name string, value time.Duration, tags map[string]string)
}

// SSOServiceOptions groups dependencies for SSOService.
type SSOServiceOptions struct {
	Auth      config.AuthConfig
	Flags     ports.SessionFlagStore
	Sessions  ports.SessionStore
	Users     ports.UserStore
	Locator   *ProfileLocator
	Validator *SSOValidator
	Dialer    ports.DirectoryDialer
	Login     *LoginService
	Observers []ports.LoginObserver
	// HomeURL is the redirect fallback target.
	HomeURL string
	Logger  *slog.Logger
	Metrics metricsSink
}

// SSOService orchestrates trusted-header single sign-on: principal
// extraction, precondition validation, profile location, directory
// resolution, generic login, and session bookkeeping. Authenticate never
// returns an error to its caller; every failure is folded into the outcome
// so the host request flow can fall through to its normal login form.
type SSOService struct {
	auth      config.AuthConfig
	flags     ports.SessionFlagStore
	sessions  ports.SessionStore
	users     ports.UserStore
	locator   *ProfileLocator
	validator *SSOValidator
	dialer    ports.DirectoryDialer
	login     *LoginService
	observers []ports.LoginObserver
	homeURL   string
	logger    *slog.Logger
	metrics   metricsSink
}

// NewSSOService constructs a new SSOService.
func NewSSOService(opts SSOServiceOptions) *SSOService {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &SSOService{
		auth:      opts.Auth,
		flags:     opts.Flags,
		sessions:  opts.Sessions,
		users:     opts.Users,
		locator:   opts.Locator,
		validator: opts.Validator,
		dialer:    opts.Dialer,
		login:     opts.Login,
		observers: opts.Observers,
		homeURL:   opts.HomeURL,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}
}

// Authenticate runs one SSO attempt for the request. It is a no-op when the
// caller is already authenticated or no trusted principal is present.
func (s *SSOService) Authenticate(ctx context.Context, req AuthRequest) AuthResult {
	s.count("sso.attempt")

	if req.AlreadyAuthenticated {
		return s.notApplicable()
	}

	principal := Unescape(req.Principal)
	if principal == "" {
		// Absence of SSO data is normal for non-SSO requests.
		s.logger.Warn("no principal in trusted source, skipping sso")
		return s.notApplicable()
	}

	if s.isExcluded(principal) {
		s.logger.Info("principal excluded from sso by policy",
			slog.String("principal", principal))
		return s.notApplicable()
	}

	creds := domainauth.NewCredentials(principal)

	if req.ReauthRequested {
		if err := s.clearSessionFlags(ctx, req.SessionKey); err != nil {
			s.logger.Warn("could not clear session flags for reauth", slog.Any("error", err))
		}
	}

	if err := s.validator.ValidateRequest(req.Action); err != nil {
		return s.abortQuietly(err)
	}
	if err := s.validator.ValidateLogoutState(ctx, req.SessionKey); err != nil {
		return s.abortQuietly(err)
	}

	if err := s.validator.ValidateRetrySuppression(ctx, req.SessionKey, creds); err != nil {
		return s.fail(ctx, req.SessionKey, creds, err)
	}

	match, err := s.locator.Locate(ctx, creds.UPNSuffix)
	if err != nil {
		return s.fail(ctx, req.SessionKey, creds,
			apperrors.Wrap(err, apperrors.ErrCodeAuthenticationFailed, "locate sso profile"))
	}
	if err := s.validator.ValidateProfile(match); err != nil {
		return s.fail(ctx, req.SessionKey, creds, err)
	}

	for _, obs := range s.observers {
		obs.OnProfileLocated(ctx, *match)
	}
	s.logger.Info("sso profile located",
		slog.String("profile", match.Profile.Name),
		slog.String("match", string(match.Kind)))

	conn, err := s.dialer.Open(ctx, match.Profile)
	if err != nil {
		return s.fail(ctx, req.SessionKey, creds,
			apperrors.Wrap(err, apperrors.ErrCodeAuthenticationFailed, "connect to directory"))
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			s.logger.Warn("closing directory connection", slog.Any("error", closeErr))
		}
	}()
	if err := s.validator.ValidateConnection(conn); err != nil {
		return s.fail(ctx, req.SessionKey, creds, err)
	}

	started := time.Now()
	identity, err := conn.ResolveUser(ctx, ports.UserQuery{
		Login:     creds.Login,
		UPNSuffix: creds.UPNSuffix,
	})
	s.timing("directory.resolve", time.Since(started))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return s.fail(ctx, req.SessionKey, creds,
				apperrors.AuthenticationFailedf("principal %q does not exist in the directory", creds.Login))
		}
		return s.fail(ctx, req.SessionKey, creds,
			apperrors.Wrap(err, apperrors.ErrCodeAuthenticationFailed, "resolve directory identity"))
	}
	if err := s.validator.ValidateIdentity(identity); err != nil {
		return s.fail(ctx, req.SessionKey, creds, err)
	}
	creds.SetUserPrincipalName(identity.UserPrincipalName)

	user, err := s.login.Login(ctx, conn, identity)
	if err != nil {
		return s.fail(ctx, req.SessionKey, creds, err)
	}

	session, err := s.establishSession(ctx, user)
	if err != nil {
		return s.fail(ctx, req.SessionKey, creds,
			apperrors.Wrap(err, apperrors.ErrCodeAuthenticationFailed, "establish session"))
	}

	// Circuit breaker reset on success.
	if err := s.flags.ClearFailedPrincipal(ctx, req.SessionKey); err != nil {
		s.logger.Warn("could not clear failed-principal flag", slog.Any("error", err))
	}

	s.count("sso.success")
	s.logger.Info("sso authentication succeeded",
		slog.String("upn", creds.UserPrincipalName),
		slog.String("user_id", user.ID))

	return AuthResult{
		Outcome:     OutcomeSuccess,
		Session:     session,
		RedirectURI: s.RedirectURI(req),
	}
}

// RedirectURI computes the post-login redirect target. A request URI that
// still carries the reauth marker redirects home instead, so a logout
// followed by SSO re-login cannot loop. Otherwise the current request URI
// wins, then the explicit redirect_to parameter, then home.
func (s *SSOService) RedirectURI(req AuthRequest) string {
	if strings.Contains(req.RequestURI, ReauthMarker) {
		return s.homeURL
	}
	if req.RequestURI != "" {
		return req.RequestURI
	}
	if req.RedirectTo != "" {
		return req.RedirectTo
	}
	return s.homeURL
}

// Unescape strips the slash-escaping an upstream web tier may have applied
// to the principal (e.g. "CORP\\jdoe" arriving as "CORP\\\\jdoe").
func Unescape(principal string) string {
	return strings.ReplaceAll(principal, `\\`, `\`)
}

func (s *SSOService) isExcluded(principal string) bool {
	bare := domainauth.NewCredentials(principal).BareUsername()
	for _, excluded := range s.auth.SSO.ExcludedUsernames {
		if strings.EqualFold(excluded, principal) || strings.EqualFold(excluded, bare) {
			return true
		}
	}
	return false
}

func (s *SSOService) clearSessionFlags(ctx context.Context, sessionKey string) error {
	if err := s.flags.ClearFailedPrincipal(ctx, sessionKey); err != nil {
		return err
	}
	return s.flags.SetLoggedOut(ctx, sessionKey, false)
}

func (s *SSOService) establishSession(ctx context.Context, user *domainauth.User) (*domainauth.Session, error) {
	roles, err := s.users.Roles(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	session := domainauth.Session{
		ID:                uuid.New().String(),
		UserID:            user.ID,
		Username:          user.Username,
		UserPrincipalName: user.UserPrincipalName,
		Email:             user.Email,
		Roles:             roles,
		ExpiresAt:         time.Now().Add(s.auth.SessionTTL),
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return &session, nil
}

// abortQuietly handles LogoutInProgress: logged at info level, no session
// mutation, the attempt simply does not apply.
func (s *SSOService) abortQuietly(err error) AuthResult {
	s.count("sso.not_applicable")
	s.logger.Info("sso attempt aborted", slog.Any("reason", err))
	return AuthResult{Outcome: OutcomeNotApplicable}
}

// fail handles a real authentication failure: logged as an error and the
// failing principal is recorded, arming the retry circuit breaker.
func (s *SSOService) fail(ctx context.Context, sessionKey string, creds domainauth.Credentials, err error) AuthResult {
	s.count("sso.failed")
	s.logger.Error("sso authentication failed",
		slog.String("principal", creds.Login),
		slog.Any("error", err))

	if setErr := s.flags.SetFailedPrincipal(ctx, sessionKey, creds.Login); setErr != nil {
		s.logger.Warn("could not arm retry suppression", slog.Any("error", setErr))
	}
	return AuthResult{Outcome: OutcomeFailed}
}

func (s *SSOService) notApplicable() AuthResult {
	s.count("sso.not_applicable")
	return AuthResult{Outcome: OutcomeNotApplicable}
}

func (s *SSOService) count(name string) {
	if s.metrics != nil {
		s.metrics.Count(name, 1, nil)
	}
}

func (s *SSOService) timing(name string, d time.Duration) {
	if s.metrics != nil {
		s.metrics.Timing(name, d, nil)
	}
}
