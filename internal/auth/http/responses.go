package http

import (
	"net/http"

	"github.com/meridianwealth/authgate/pkg/httpx"
)

// APIError is the uniform error envelope for JSON endpoints.
type APIError struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e APIError) Write(w http.ResponseWriter, code int) {
	httpx.WriteJSON(w, code, e)
}

// Uniform error responses. Every expected authentication failure maps to
// the same envelope so the response shape leaks nothing about the cause.
var (
	errInvalidCredentials = APIError{Error: "invalid_credentials", Description: "Authentication failed."}
	errInvalidFormBody    = APIError{Error: "invalid_request", Description: "Malformed form body."}
	errSessionInvalid     = APIError{Error: "session_invalid", Description: "No valid session."}
	errServerError        = APIError{Error: "server_error", Description: "A dependency is unavailable. Please try again."}
)

// SignInResponse is returned on a successful login. The session token itself
// travels only in the Set-Cookie header.
type SignInResponse struct {
	Redirect  string `json:"redirect"`
	SessionID string `json:"session_id"`
	ExpiresAt string `json:"expires_at"`
}

// SessionInfoResponse describes the current session for page bootstrapping.
type SessionInfoResponse struct {
	UserID    string   `json:"user_id"`
	Email     string   `json:"email"`
	OfficeID  string   `json:"office_id,omitempty"`
	AMR       []string `json:"amr,omitempty"`
	Backdoor  bool     `json:"backdoor,omitempty"`
	ExpiresAt string   `json:"expires_at"`
}

// HealthChecks reports per-dependency status on the readiness probe.
type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
}

// HealthResponse is the probe envelope.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}
