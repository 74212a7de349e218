package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridianwealth/authgate/internal/auth/device"
	"github.com/meridianwealth/authgate/internal/auth/domain"
	"github.com/meridianwealth/authgate/internal/auth/service"
	"github.com/meridianwealth/authgate/internal/auth/store"
	"github.com/meridianwealth/authgate/internal/auth/store/drivers/sqlite"
	"github.com/meridianwealth/authgate/pkg/idx"
	"github.com/meridianwealth/authgate/pkg/jwtx"
)

func newTestSessions(t *testing.T) (*service.SessionService, store.Store) {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	signer, err := jwtx.GenerateSigner("test-key")
	require.NoError(t, err)

	return &service.SessionService{
		Store:  st,
		Signer: signer,
		Issuer: "authgate-test",
		TTL:    time.Hour,
		Device: device.NewService(true),
	}, st
}

func issueTestSession(t *testing.T, sessions *service.SessionService, st store.Store) string {
	t.Helper()

	ctx := context.Background()
	u := domain.User{
		ID:           idx.New().String(),
		Email:        "alice@example.com",
		OfficeID:     "office-1",
		PasswordHash: "$argon2id$hash",
	}
	require.NoError(t, st.Users().CreateUser(ctx, u))

	issued, err := sessions.Issue(ctx, u, service.RequestMeta{}, []string{service.AMRPassword}, false)
	require.NoError(t, err)
	return issued.Token
}

func newGuard(sessions *service.SessionService) *SessionGuard {
	return &SessionGuard{
		Sessions:        sessions,
		Landing:         "/dashboard",
		FallbackCountry: "US",
	}
}

// guardedRequest runs one request through the guard and reports the final
// response plus the headers the downstream handler observed.
func guardedRequest(g *SessionGuard, path, cookie string, mutate func(*http.Request)) (*httptest.ResponseRecorder, http.Header, bool) {
	var seen http.Header
	reached := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		seen = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: cookie})
	}
	if mutate != nil {
		mutate(req)
	}

	rec := httptest.NewRecorder()
	g.Middleware()(next).ServeHTTP(rec, req)
	return rec, seen, reached
}

func TestGuardRootAlwaysRedirectsToLanding(t *testing.T) {
	sessions, st := newTestSessions(t)
	g := newGuard(sessions)
	token := issueTestSession(t, sessions, st)

	for _, cookie := range []string{"", token} {
		rec, _, reached := guardedRequest(g, "/", cookie, nil)
		require.False(t, reached)
		require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
		require.Equal(t, "/dashboard", rec.Header().Get("Location"))
	}
}

func TestGuardSensitiveWithoutSessionRedirectsToSignIn(t *testing.T) {
	sessions, _ := newTestSessions(t)
	g := newGuard(sessions)

	rec, _, reached := guardedRequest(g, "/dashboard", "", nil)
	require.False(t, reached)
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "/signin", loc.Path)
	require.Equal(t, "/dashboard", loc.Query().Get("callbackUrl"))
}

func TestGuardSensitiveWithValidSessionContinues(t *testing.T) {
	sessions, st := newTestSessions(t)
	g := newGuard(sessions)
	token := issueTestSession(t, sessions, st)

	rec, seen, reached := guardedRequest(g, "/portfolio/holdings", token, nil)
	require.True(t, reached)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "/portfolio/holdings", seen.Get("X-Current-Path"))
}

func TestGuardRevokedSessionIsInvalid(t *testing.T) {
	sessions, st := newTestSessions(t)
	g := newGuard(sessions)
	token := issueTestSession(t, sessions, st)

	require.NoError(t, sessions.Revoke(context.Background(), token))

	rec, _, reached := guardedRequest(g, "/dashboard", token, nil)
	require.False(t, reached)
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
}

func TestGuardSignInPageWithValidSessionRedirectsToLanding(t *testing.T) {
	sessions, st := newTestSessions(t)
	g := newGuard(sessions)
	token := issueTestSession(t, sessions, st)

	for _, path := range []string{"/signin", "/try"} {
		rec, _, reached := guardedRequest(g, path, token, nil)
		require.False(t, reached)
		require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
		require.Equal(t, "/dashboard", rec.Header().Get("Location"))
	}
}

func TestGuardSignInPageWithoutSessionContinues(t *testing.T) {
	sessions, _ := newTestSessions(t)
	g := newGuard(sessions)

	t.Run("fallback country", func(t *testing.T) {
		rec, seen, reached := guardedRequest(g, "/signin", "", nil)
		require.True(t, reached)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "/signin", seen.Get("X-Current-Path"))
		require.Equal(t, "US", seen.Get("X-Resolved-Country"))
	})

	t.Run("edge-resolved country", func(t *testing.T) {
		_, seen, _ := guardedRequest(g, "/signin", "", func(r *http.Request) {
			r.Header.Set("X-Geo-Country", "de")
		})
		require.Equal(t, "DE", seen.Get("X-Resolved-Country"))
	})
}

func TestGuardPublicRoutesContinueWithoutSession(t *testing.T) {
	sessions, _ := newTestSessions(t)
	g := newGuard(sessions)

	for _, path := range []string{"/signout", "/auth/session"} {
		rec, seen, reached := guardedRequest(g, path, "", nil)
		require.True(t, reached, path)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, path, seen.Get("X-Current-Path"))
		require.Empty(t, seen.Get("X-Resolved-Country"))
	}
}

func TestGuardPrefixMatchesOnSegmentBoundaries(t *testing.T) {
	sessions, _ := newTestSessions(t)
	g := newGuard(sessions)

	// /signoutlet is not /signout; it defaults to sensitive.
	rec, _, reached := guardedRequest(g, "/signoutlet", "", nil)
	require.False(t, reached)
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
}

func TestGuardDisabledBypasses(t *testing.T) {
	sessions, _ := newTestSessions(t)
	g := newGuard(sessions)
	g.Disabled = true

	rec, seen, reached := guardedRequest(g, "/dashboard", "", nil)
	require.True(t, reached)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, seen.Get("X-Current-Path"))
}

func TestGuardExemptPrefixes(t *testing.T) {
	sessions, _ := newTestSessions(t)
	g := newGuard(sessions)
	g.ExemptPrefixes = []string{"/livez", "/metrics"}

	_, _, reached := guardedRequest(g, "/livez", "", nil)
	require.True(t, reached)

	_, _, reached = guardedRequest(g, "/metrics", "", nil)
	require.True(t, reached)
}

func TestClassifyRoute(t *testing.T) {
	t.Parallel()

	cases := map[string]routeClass{
		"/signin":             routeSignIn,
		"/signin/advisor":     routeSignIn,
		"/try":                routeSignIn,
		"/signout":            routePublic,
		"/auth":               routePublic,
		"/auth/session":       routePublic,
		"/dashboard":          routeSensitive,
		"/portfolio/holdings": routeSensitive,
		"/signoutlet":         routeSensitive,
		"/trying":             routeSensitive,
	}
	for path, want := range cases {
		require.Equal(t, want, classifyRoute(path), path)
	}
}
