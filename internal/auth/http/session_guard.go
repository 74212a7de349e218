package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/meridianwealth/authgate/internal/auth/metrics"
	"github.com/meridianwealth/authgate/internal/auth/service"
	"github.com/meridianwealth/authgate/pkg/httpx"
	"github.com/meridianwealth/authgate/pkg/slogx"
)

// SessionCookie is the browser cookie carrying the signed session token.
const SessionCookie = "mw_session"

// Headers injected for downstream server-rendered pages, which cannot
// otherwise discover the originally requested path or resolved country.
const (
	headerCurrentPath     = "X-Current-Path"
	headerResolvedCountry = "X-Resolved-Country"
)

// routeClass is the per-request classification of a path.
type routeClass int

const (
	routeSignIn routeClass = iota
	routePublic
	routeSensitive
)

// Route tables. Evaluated in order: sign-in pages, explicitly public pages,
// then everything else defaults to sensitive.
var (
	signInPrefixes = []string{"/signin", "/try"}
	publicPrefixes = []string{"/signout", "/auth"}
)

func classifyRoute(path string) routeClass {
	for _, p := range signInPrefixes {
		if matchesPrefix(path, p) {
			return routeSignIn
		}
	}
	for _, p := range publicPrefixes {
		if matchesPrefix(path, p) {
			return routePublic
		}
	}
	return routeSensitive
}

// matchesPrefix matches on path-segment boundaries so /signout never
// classifies /signoutlet.
func matchesPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	rest := path[len(prefix):]
	return rest == "" || rest[0] == '/'
}

// SessionGuard runs before every request. It validates any existing session,
// classifies the route, and decides redirect or continue. It trusts
// previously issued session tokens; credential checks are never re-run here.
// Every evaluation is independent and request-scoped.
type SessionGuard struct {
	Sessions *service.SessionService

	// Landing is the authenticated landing route, e.g. "/dashboard".
	Landing string

	// FallbackCountry is attached on sign-in-family routes when the edge
	// resolved no country.
	FallbackCountry string

	// Disabled bypasses the guard entirely. Explicit configuration input,
	// never read from the environment mid-request.
	Disabled bool

	// ExemptPrefixes bypass classification for infrastructure endpoints
	// (probes, metrics, API docs) that sit outside the page route tables.
	ExemptPrefixes []string

	Metrics *metrics.Metrics
}

// Middleware returns the guard as a chainable middleware.
func (g *SessionGuard) Middleware() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			g.serve(next, w, r)
		})
	}
}

func (g *SessionGuard) serve(next http.Handler, w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if g.Disabled || g.exempt(path) {
		g.count("bypass")
		next.ServeHTTP(w, r)
		return
	}

	// Root always redirects to the landing route, regardless of session
	// state and ahead of every other rule.
	if path == "/" {
		g.redirect(w, r, g.Landing, "redirect_landing")
		return
	}

	valid := g.sessionValid(r)

	switch classifyRoute(path) {
	case routeSignIn:
		if valid {
			// Prevents re-login loops.
			g.redirect(w, r, g.Landing, "redirect_landing")
			return
		}
		r.Header.Set(headerResolvedCountry, g.resolveCountry(r))
		g.passThrough(next, w, r, path)

	case routePublic:
		g.passThrough(next, w, r, path)

	case routeSensitive:
		if !valid {
			g.redirect(w, r, g.signInURL(path), "redirect_signin")
			return
		}
		g.passThrough(next, w, r, path)
	}
}

// sessionValid reports whether the request carries a usable session. The
// guard never fails a request: resolution errors (including storage outages)
// degrade to "no session" with a log line.
func (g *SessionGuard) sessionValid(r *http.Request) bool {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return false
	}

	_, _, err = g.Sessions.Resolve(r.Context(), cookie.Value)
	if err != nil {
		if !errors.Is(err, service.ErrSessionInvalid) {
			slogx.FromContext(r.Context()).Warn("session guard: resolve failed", "error", err)
		}
		return false
	}
	return true
}

func (g *SessionGuard) resolveCountry(r *http.Request) string {
	country := strings.ToUpper(strings.TrimSpace(r.Header.Get(headerGeoCountry)))
	if country == "" {
		country = g.FallbackCountry
	}
	return country
}

// signInURL appends the original path as a callback parameter so the page
// can return the user after login. The root path carries no callback.
func (g *SessionGuard) signInURL(path string) string {
	if path == "/" {
		return "/signin"
	}
	return "/signin?" + url.Values{"callbackUrl": {path}}.Encode()
}

func (g *SessionGuard) passThrough(next http.Handler, w http.ResponseWriter, r *http.Request, path string) {
	r.Header.Set(headerCurrentPath, path)
	g.count("continue")
	next.ServeHTTP(w, r)
}

func (g *SessionGuard) redirect(w http.ResponseWriter, r *http.Request, location, outcome string) {
	g.count(outcome)
	httpx.NoCache(w)
	http.Redirect(w, r, location, http.StatusTemporaryRedirect)
}

func (g *SessionGuard) exempt(path string) bool {
	for _, p := range g.ExemptPrefixes {
		if matchesPrefix(path, p) {
			return true
		}
	}
	return false
}

func (g *SessionGuard) count(outcome string) {
	if g.Metrics != nil {
		g.Metrics.GuardDecisions.WithLabelValues(outcome).Inc()
	}
}
