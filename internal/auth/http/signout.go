package http

import (
	"net/http"

	"github.com/meridianwealth/authgate/internal/auth/service"
	"github.com/meridianwealth/authgate/pkg/httpx"
	"github.com/meridianwealth/authgate/pkg/slogx"
)

// SignOutHandler serves POST /signout. It revokes the current session and
// clears the cookie. Stale or missing cookies still return 200 OK; signout
// is idempotent.
type SignOutHandler struct {
	SessionService *service.SessionService
	CookieSecure   bool
}

// ServeHTTP godoc
//
//	@Summary		Sign Out
//	@Description	Revokes the current session and clears the session cookie.
//	@Description	Idempotent: returns 200 OK even when no valid session exists.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	"Session revoked (or none existed)"
//	@Router			/signout [post].
func (h *SignOutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		if err := h.SessionService.Revoke(ctx, cookie.Value); err != nil {
			// Revocation failures still clear the cookie client-side.
			slogx.FromContext(ctx).Error("sign out: revoke", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("{}"))
}
