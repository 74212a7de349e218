package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/meridianwealth/authgate/internal/auth/domain"
	"github.com/meridianwealth/authgate/internal/auth/service"
	"github.com/meridianwealth/authgate/pkg/httpx"
	"github.com/meridianwealth/authgate/pkg/slogx"
)

// SignInHandler serves POST /signin: one authentication attempt followed by
// session issuance. All expected failures return the identical 401 envelope.
type SignInHandler struct {
	AuthService    *service.AuthService
	SessionService *service.SessionService

	// Defaults are the process-wide option defaults sourced once at startup.
	// The only per-request option is the backdoor identity.
	Defaults service.Options

	FallbackCountry string
	Landing         string
	CookieSecure    bool
}

// ServeHTTP godoc
//
//	@Summary		Sign In
//	@Description	Authenticates an account with password (or PIN where enabled) plus TOTP when required,
//	@Description	then issues a session cookie. Failures are uniform: the response never indicates which
//	@Description	check rejected the attempt.
//	@Tags			Auth
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			email			formData	string	true	"Account email"
//	@Param			password		formData	string	false	"Account password"
//	@Param			pin				formData	string	false	"Account PIN (where enabled)"
//	@Param			two_fa_token	formData	string	false	"TOTP code"
//	@Param			backdoor_user	formData	string	false	"Operator backdoor identity (restricted)"
//	@Param			callbackUrl		query		string	false	"Path to return to after login"
//	@Success		200	{object}	SignInResponse
//	@Failure		400	{object}	APIError	"error, error_description"
//	@Failure		401	{object}	APIError	"error, error_description"
//	@Header			200	{string}	Set-Cookie	"mw_session"
//	@Router			/signin [post].
func (h *SignInHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		errInvalidFormBody.Write(w, http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		errInvalidFormBody.Write(w, http.StatusBadRequest)
		return
	}

	creds := domain.Credentials{
		Email:      strings.TrimSpace(r.PostForm.Get("email")),
		Password:   r.PostForm.Get("password"),
		PIN:        r.PostForm.Get("pin"),
		TwoFAToken: strings.TrimSpace(r.PostForm.Get("two_fa_token")),
	}

	opts := h.Defaults
	opts.BackdoorEmail = strings.TrimSpace(r.PostForm.Get("backdoor_user"))
	opts.IsLoginEvent = true

	meta := ResolveMeta(r, h.FallbackCountry)

	user, err := h.AuthService.Authenticate(ctx, meta, service.Subject{Email: creds.Email}, creds, opts)
	if err != nil {
		if errors.Is(err, service.ErrAuthRejected) {
			errInvalidCredentials.Write(w, http.StatusUnauthorized)
			return
		}
		log.Error("sign in: authenticate", "error", err)
		errServerError.Write(w, http.StatusInternalServerError)
		return
	}

	backdoor := opts.BackdoorEmail != ""
	amr := service.MethodsUsed(creds, backdoor)

	issued, err := h.SessionService.Issue(ctx, user, meta, amr, backdoor)
	if err != nil {
		log.Error("sign in: issue session", "error", err)
		errServerError.Write(w, http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    issued.Token,
		Path:     "/",
		Expires:  issued.ExpiresAt,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	httpx.WriteJSON(w, http.StatusOK, SignInResponse{
		Redirect:  h.redirectTarget(r),
		SessionID: issued.SessionID,
		ExpiresAt: issued.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// redirectTarget honours a relative callbackUrl query parameter; anything
// absolute is ignored so login cannot be used as an open redirect.
func (h *SignInHandler) redirectTarget(r *http.Request) string {
	cb := r.URL.Query().Get("callbackUrl")
	if cb != "" && strings.HasPrefix(cb, "/") && !strings.HasPrefix(cb, "//") {
		return cb
	}
	return h.Landing
}
