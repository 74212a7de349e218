package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTTL is the default lifetime for browser session tokens.
const DefaultSessionTTL = 12 * time.Hour

var (
	ErrIssuer  = errors.New("jwtx: wrong issuer")
	ErrExpired = errors.New("jwtx: token expired")
	ErrInvalid = errors.New("jwtx: invalid token")
)

// Claims are session-token claims carried in the browser cookie.
type Claims struct {
	jwt.RegisteredClaims

	// SID is the session record ID (ULID) for revocation lookups.
	SID string `json:"sid,omitempty"`

	// Email of the authenticated account.
	Email string `json:"email,omitempty"`

	// OfficeID is the tenant the account belongs to.
	OfficeID string `json:"office,omitempty"`

	// AMR lists the authentication methods used:
	//   "pwd": password   "pin": PIN   "otp": TOTP   "bkd": backdoor
	AMR []string `json:"amr,omitempty"`
}

// NewSessionClaims builds minimally-correct session claims.
func NewSessionClaims(
	subject, sid, email, officeID string,
	amr []string,
	ttl time.Duration,
	issuer string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		SID:      sid,
		Email:    email,
		OfficeID: officeID,
		AMR:      amr,
	}
}

// ValidateIssuer checks the issuer matches the expected value.
// An empty expected issuer enforces nothing.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateExpiry enforces the session validity invariant: a session is valid
// iff its expiry is present and strictly in the future.
func (c *Claims) ValidateExpiry() error {
	return c.ValidateExpiryAt(time.Now())
}

// ValidateExpiryAt is ValidateExpiry against an explicit evaluation time.
func (c *Claims) ValidateExpiryAt(now time.Time) error {
	if c.ExpiresAt == nil {
		return ErrExpired
	}
	if !c.ExpiresAt.Time.After(now) {
		return ErrExpired
	}
	return nil
}
