package service

import (
	"github.com/meridianwealth/authgate/pkg/cryptox"
	"github.com/pquerna/otp/totp"
)

// CredentialHasher compares a candidate secret against a stored hash handle.
// Implementations must compare in constant time. Failures are boolean, never
// errors, to keep the orchestrator's control flow uniform.
type CredentialHasher interface {
	Compare(candidate, storedHash string) bool
}

// TOTPVerifier validates a submitted one-time code against a stored secret.
type TOTPVerifier interface {
	Verify(secret, token string) bool
}

// Argon2Hasher is the default CredentialHasher, backed by peppered Argon2id.
type Argon2Hasher struct{}

func (Argon2Hasher) Compare(candidate, storedHash string) bool {
	return cryptox.VerifySecret(candidate, storedHash) == nil
}

// TOTPValidator is the default TOTPVerifier.
type TOTPValidator struct{}

func (TOTPValidator) Verify(secret, token string) bool {
	return totp.Validate(token, secret)
}
