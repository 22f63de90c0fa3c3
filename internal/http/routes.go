package httpx

import (
	"log/slog"
	"net/http"

	"github.com/doorman-id/doorman/config"
	"github.com/doorman-id/doorman/internal/ports"
	"github.com/doorman-id/doorman/internal/service"
)

// adminRole guards the profile administration API.
const adminRole = "administrator"

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	SSO          *service.SSOService
	Sessions     ports.SessionStore
	Flags        ports.SessionFlagStore
	Profiles     ProfileAdminStore
	SSOConfig    config.SSOConfig
	CookieDomain string
	Logger       *slog.Logger
}

// NewRouter creates and configures the HTTP router. The trusted-header SSO
// middleware wraps everything so an unauthenticated request carrying a
// trusted principal is signed in before any handler runs.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	authHandlers := &AuthHandlers{
		Sessions:     services.Sessions,
		Flags:        services.Flags,
		CookieDomain: services.CookieDomain,
		Logger:       services.Logger,
	}
	registerAuthRoutes(mux, authHandlers)

	if services.Profiles != nil {
		registerProfileRoutes(mux, &ProfileHandlers{Store: services.Profiles}, services.Sessions)
	}

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	sso := TrustedHeaderSSO(TrustedHeaderSSOOptions{
		SSO:          services.SSO,
		Config:       services.SSOConfig,
		Sessions:     services.Sessions,
		CookieDomain: services.CookieDomain,
		Logger:       services.Logger,
	})
	return sso(mux)
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.Handle("POST /auth/logout", http.HandlerFunc(h.Logout))
	mux.Handle("GET /auth/status", http.HandlerFunc(h.Status))
}

func registerProfileRoutes(mux *http.ServeMux, h *ProfileHandlers, sessions ports.SessionStore) {
	admin := RequireRole(sessions, adminRole)
	mux.Handle("GET /api/profiles", admin(http.HandlerFunc(h.List)))
	mux.Handle("POST /api/profiles", admin(http.HandlerFunc(h.Create)))
	mux.Handle("GET /api/profiles/{name}", admin(http.HandlerFunc(h.Get)))
	mux.Handle("DELETE /api/profiles/{name}", admin(http.HandlerFunc(h.Delete)))
}
