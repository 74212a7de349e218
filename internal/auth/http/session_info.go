package http

import (
	"net/http"
	"time"

	"github.com/meridianwealth/authgate/internal/auth/service"
	"github.com/meridianwealth/authgate/pkg/httpx"
)

// SessionInfoHandler serves GET /auth/session, letting server-rendered pages
// bootstrap their view of the current account without re-authenticating.
type SessionInfoHandler struct {
	SessionService *service.SessionService
}

// ServeHTTP godoc
//
//	@Summary		Current Session
//	@Description	Returns the authenticated account behind the session cookie.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	SessionInfoResponse
//	@Failure		401	{object}	APIError	"error, error_description"
//	@Router			/auth/session [get].
func (h *SessionInfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		errSessionInvalid.Write(w, http.StatusUnauthorized)
		return
	}

	claims, sess, err := h.SessionService.Resolve(r.Context(), cookie.Value)
	if err != nil {
		errSessionInvalid.Write(w, http.StatusUnauthorized)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, SessionInfoResponse{
		UserID:    claims.Subject,
		Email:     claims.Email,
		OfficeID:  claims.OfficeID,
		AMR:       claims.AMR,
		Backdoor:  sess.Backdoor,
		ExpiresAt: sess.ExpiresAt.UTC().Format(time.RFC3339),
	})
}
