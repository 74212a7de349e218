package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/meridianwealth/authgate/internal/auth/service"
	"github.com/meridianwealth/authgate/internal/auth/store"
	"github.com/meridianwealth/authgate/pkg/httpx"
	"github.com/meridianwealth/authgate/pkg/jwtx"
	"github.com/meridianwealth/authgate/pkg/slogx"

	_ "github.com/meridianwealth/authgate/api/auth" // Swagger docs
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

// systemPrefixes are infrastructure endpoints outside the page route tables;
// the session guard bypasses them.
var systemPrefixes = []string{"/livez", "/readyz", "/metrics", "/swagger"}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	signer       *jwtx.Signer
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	AuthService    *service.AuthService
	SessionService *service.SessionService
	Guard          *SessionGuard

	// AuthDefaults are the process-wide orchestrator option defaults.
	AuthDefaults service.Options

	FallbackCountry string
	Landing         string
	CookieSecure    bool
}

func NewRouter(
	signer *jwtx.Signer,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		signer:       signer,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	if r.Guard != nil {
		r.Guard.ExemptPrefixes = systemPrefixes
		r.middlewares = append(r.middlewares, r.Guard.Middleware())
	}

	r.registerAuth()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Meridian Wealth Auth Gateway API
//	@version		0.1.0
//	@description	Authentication decision core for the advisory platform: verified-location checks,
//	@description	password/PIN and TOTP verification, session issuance and the per-request session guard.
//	@description
//	@description				Session tokens are Ed25519-signed JWTs delivered as HttpOnly cookies.
//
//	@contact.name				Meridian Wealth Platform Team
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	signIn := &SignInHandler{
		AuthService:     r.AuthService,
		SessionService:  r.SessionService,
		Defaults:        r.AuthDefaults,
		FallbackCountry: r.FallbackCountry,
		Landing:         r.Landing,
		CookieSecure:    r.CookieSecure,
	}

	// POST /signin - strict rate limit keyed by IP + email form field so
	// every reject cause shares one budget per (source, account) pair.
	r.Mux.Handle("POST /signin",
		httpx.Chain(signIn,
			httpx.RateLimitByIPAndFormField(httpx.StrictLimit, "email"),
		),
	)

	signOut := &SignOutHandler{
		SessionService: r.SessionService,
		CookieSecure:   r.CookieSecure,
	}
	r.Mux.Handle("POST /signout",
		httpx.Chain(signOut,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	info := &SessionInfoHandler{SessionService: r.SessionService}
	r.Mux.Handle("GET /auth/session",
		httpx.Chain(info,
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store, r.signer))
	r.Mux.Handle("GET /metrics", promhttp.Handler())
}
