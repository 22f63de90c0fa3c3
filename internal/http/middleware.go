package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/doorman-id/doorman/config"
	domainauth "github.com/doorman-id/doorman/internal/domain/auth"
	"github.com/doorman-id/doorman/internal/ports"
	"github.com/doorman-id/doorman/internal/service"
)

const (
	// sessionCookieName carries the server-side session identifier.
	sessionCookieName = "session_id"
	// scopeCookieName identifies the browser session the SSO advisory flags
	// are scoped to. It exists before any authentication happens.
	scopeCookieName = "sso_scope"
)

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			const defaultHTTPStatus = 200
			ww := &respWriter{ResponseWriter: w, status: defaultHTTPStatus}
			next.ServeHTTP(ww, r)
			logger.Info("http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// TrustedHeaderSSOOptions groups dependencies for the TrustedHeaderSSO
// middleware.
type TrustedHeaderSSOOptions struct {
	SSO          *service.SSOService
	Config       config.SSOConfig
	Sessions     ports.SessionStore
	CookieDomain string
	Logger       *slog.Logger
}

// TrustedHeaderSSO returns a middleware that attempts single sign-on from the
// configured trusted principal header. Requests with a valid session, without
// a principal, or for which SSO does not apply pass through unchanged; on
// success a session cookie is set and the request is redirected to its
// post-login destination.
func TrustedHeaderSSO(opts TrustedHeaderSSOOptions) func(http.Handler) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	headerName := opts.Config.PrincipalSource.HeaderName()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !opts.Config.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			if session := sessionFromRequest(r, opts.Sessions); session != nil {
				next.ServeHTTP(w, r.WithContext(SetSessionInContext(r.Context(), session)))
				return
			}

			principal := r.Header.Get(headerName)
			if principal == "" {
				next.ServeHTTP(w, r)
				return
			}

			query := r.URL.Query()
			res := opts.SSO.Authenticate(r.Context(), service.AuthRequest{
				SessionKey:      scopeFromRequest(w, r, opts.CookieDomain),
				Principal:       principal,
				Action:          query.Get("action"),
				ReauthRequested: query.Get("reauth") == "sso",
				RequestURI:      r.URL.RequestURI(),
				RedirectTo:      query.Get("redirect_to"),
			})

			if res.Outcome != service.OutcomeSuccess {
				next.ServeHTTP(w, r)
				return
			}

			setSessionCookie(w, r, opts.CookieDomain, *res.Session)
			logger.Info("sso session established",
				slog.String("username", res.Session.Username),
				slog.String("redirect", res.RedirectURI))
			http.Redirect(w, r, res.RedirectURI, http.StatusFound)
		})
	}
}

// RequireAuth returns a middleware that requires an authenticated session.
// If the user is not authenticated, it returns a 401 Unauthorized response.
func RequireAuth(sessions ports.SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := sessionFromRequest(r, sessions)
			if session == nil {
				WriteError(w, ErrorParams{
					Code:    http.StatusUnauthorized,
					ErrCode: "authentication_required",
					Err:     errors.New("authentication required"),
				})
				return
			}

			next.ServeHTTP(w, r.WithContext(SetSessionInContext(r.Context(), session)))
		})
	}
}

// RequireRole returns a middleware that requires an authenticated session
// carrying the given role. Returns 403 Forbidden otherwise.
func RequireRole(sessions ports.SessionStore, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := sessionFromRequest(r, sessions)
			if session == nil {
				WriteError(w, ErrorParams{
					Code:    http.StatusUnauthorized,
					ErrCode: "authentication_required",
					Err:     errors.New("authentication required"),
				})
				return
			}
			if !session.HasRole(role) {
				WriteError(w, ErrorParams{
					Code:    http.StatusForbidden,
					ErrCode: "insufficient_permissions",
					Err:     errors.New("insufficient permissions"),
				})
				return
			}

			next.ServeHTTP(w, r.WithContext(SetSessionInContext(r.Context(), session)))
		})
	}
}

// sessionFromRequest retrieves and validates a session from the request.
func sessionFromRequest(r *http.Request, sessions ports.SessionStore) *domainauth.Session {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	session, err := sessions.Get(r.Context(), cookie.Value)
	if err != nil {
		return nil
	}
	return &session
}

// scopeFromRequest returns the browser-session scope identifier, minting a
// new one (and setting its cookie) when the request does not carry one yet.
func scopeFromRequest(w http.ResponseWriter, r *http.Request, cookieDomain string) string {
	if cookie, err := r.Cookie(scopeCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	scope := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     scopeCookieName,
		Value:    scope,
		Path:     "/",
		Domain:   cookieDomain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	})
	return scope
}

// setSessionCookie writes the session cookie based on the session's expiry.
func setSessionCookie(w http.ResponseWriter, r *http.Request, cookieDomain string, s domainauth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    s.ID,
		Path:     "/",
		Domain:   cookieDomain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(time.Until(s.ExpiresAt).Seconds()),
	})
}

func isSecureRequest(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
