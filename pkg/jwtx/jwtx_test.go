package jwtx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignAndVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	signer, err := GenerateSigner("session")
	require.NoError(t, err)
	require.NoError(t, signer.Validate())

	now := time.Now()
	claims := NewSessionClaims(
		"01USER", "01SESSION", "alice@example.com", "office-1",
		[]string{"pwd", "otp"},
		time.Hour, "authgate", now,
	)

	token, err := signer.Sign(claims)
	require.NoError(t, err)

	got, err := signer.Verifier("authgate").Verify(token)
	require.NoError(t, err)
	require.Equal(t, "01USER", got.Subject)
	require.Equal(t, "01SESSION", got.SID)
	require.Equal(t, "alice@example.com", got.Email)
	require.Equal(t, "office-1", got.OfficeID)
	require.Equal(t, []string{"pwd", "otp"}, got.AMR)
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	t.Parallel()

	a, err := GenerateSigner("session")
	require.NoError(t, err)
	b, err := GenerateSigner("session")
	require.NoError(t, err)

	token, err := a.Sign(NewSessionClaims(
		"u", "s", "e@x", "o", nil, time.Hour, "authgate", time.Now(),
	))
	require.NoError(t, err)

	_, err = b.Verifier("authgate").Verify(token)
	require.ErrorIs(t, err, ErrInvalid)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	t.Parallel()

	signer, err := GenerateSigner("session")
	require.NoError(t, err)

	token, err := signer.Sign(NewSessionClaims(
		"u", "s", "e@x", "o", nil, time.Hour, "someone-else", time.Now(),
	))
	require.NoError(t, err)

	_, err = signer.Verifier("authgate").Verify(token)
	require.ErrorIs(t, err, ErrIssuer)
}

func TestValidateExpiry(t *testing.T) {
	t.Parallel()

	now := time.Now()

	expired := NewSessionClaims("u", "s", "e@x", "o", nil, -time.Minute, "i", now)
	require.ErrorIs(t, expired.ValidateExpiryAt(now), ErrExpired)

	// Missing expiry is invalid, not open-ended.
	var missing Claims
	require.ErrorIs(t, missing.ValidateExpiryAt(now), ErrExpired)

	valid := NewSessionClaims("u", "s", "e@x", "o", nil, time.Minute, "i", now)
	require.NoError(t, valid.ValidateExpiryAt(now))
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	t.Parallel()

	signer, err := GenerateSigner("session")
	require.NoError(t, err)

	token, err := signer.Sign(NewSessionClaims(
		"u", "s", "e@x", "o", nil, -time.Minute, "authgate", time.Now(),
	))
	require.NoError(t, err)

	_, err = signer.Verifier("authgate").Verify(token)
	require.Error(t, err)
}
