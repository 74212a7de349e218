package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridianwealth/authgate/internal/auth/device"
	"github.com/meridianwealth/authgate/internal/auth/domain"
	"github.com/meridianwealth/authgate/internal/auth/store"
	"github.com/meridianwealth/authgate/pkg/cryptox"
	"github.com/meridianwealth/authgate/pkg/jwtx"
)

func newSessionService(t *testing.T) (*SessionService, store.Store) {
	t.Helper()

	st := newTestStore(t)
	signer, err := jwtx.GenerateSigner("test-key")
	require.NoError(t, err)

	return &SessionService{
		Store:  st,
		Signer: signer,
		Issuer: "authgate-test",
		TTL:    time.Hour,
		Device: device.NewService(true),
	}, st
}

func TestSessionIssueAndResolve(t *testing.T) {
	ctx := context.Background()
	svc, st := newSessionService(t)
	u := seedUser(t, st, nil)

	meta := metaFrom("203.0.113.7", "US")
	meta.UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	issued, err := svc.Issue(ctx, u, meta, []string{AMRPassword, AMROTP}, false)
	require.NoError(t, err)
	require.NotEmpty(t, issued.Token)
	require.NotEmpty(t, issued.SessionID)
	require.True(t, issued.ExpiresAt.After(time.Now()))

	claims, sess, err := svc.Resolve(ctx, issued.Token)
	require.NoError(t, err)
	require.Equal(t, u.ID, claims.Subject)
	require.Equal(t, u.Email, claims.Email)
	require.Equal(t, "office-1", claims.OfficeID)
	require.Equal(t, []string{AMRPassword, AMROTP}, claims.AMR)
	require.Equal(t, issued.SessionID, sess.ID)
	require.Contains(t, sess.DeviceName, "Chrome")
	require.False(t, sess.Backdoor)

	// The audit trail records the login.
	events, err := st.LoginEvents().ListUserLoginEvents(ctx, u.ID, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, issued.SessionID, events[0].SessionID)
	require.NotEmpty(t, events[0].FingerprintHash)
}

func TestSessionResolveRejectsTampered(t *testing.T) {
	ctx := context.Background()
	svc, st := newSessionService(t)
	u := seedUser(t, st, nil)

	issued, err := svc.Issue(ctx, u, metaFrom("203.0.113.7", "US"), []string{AMRPassword}, false)
	require.NoError(t, err)

	t.Run("empty token", func(t *testing.T) {
		_, _, err := svc.Resolve(ctx, "")
		require.ErrorIs(t, err, ErrSessionInvalid)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, _, err := svc.Resolve(ctx, "not.a.jwt")
		require.ErrorIs(t, err, ErrSessionInvalid)
	})

	t.Run("wrong key", func(t *testing.T) {
		other, err := jwtx.GenerateSigner("other-key")
		require.NoError(t, err)
		foreign, err := other.Sign(jwtx.NewSessionClaims(u.ID, issued.SessionID, u.Email, u.OfficeID, nil, time.Hour, "authgate-test", time.Now()))
		require.NoError(t, err)

		_, _, err = svc.Resolve(ctx, foreign)
		require.ErrorIs(t, err, ErrSessionInvalid)
	})

	t.Run("valid signature without session row", func(t *testing.T) {
		orphan, err := svc.Signer.Sign(jwtx.NewSessionClaims(u.ID, "no-row", u.Email, u.OfficeID, nil, time.Hour, "authgate-test", time.Now()))
		require.NoError(t, err)

		_, _, err = svc.Resolve(ctx, orphan)
		require.ErrorIs(t, err, ErrSessionInvalid)
	})
}

func TestSessionRevoke(t *testing.T) {
	ctx := context.Background()
	svc, st := newSessionService(t)
	u := seedUser(t, st, nil)

	issued, err := svc.Issue(ctx, u, metaFrom("203.0.113.7", "US"), []string{AMRPassword}, false)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, issued.Token))

	_, _, err = svc.Resolve(ctx, issued.Token)
	require.ErrorIs(t, err, ErrSessionInvalid)

	// Revoking again, or revoking garbage, is a no-op.
	require.NoError(t, svc.Revoke(ctx, issued.Token))
	require.NoError(t, svc.Revoke(ctx, ""))
	require.NoError(t, svc.Revoke(ctx, "stale-cookie-value"))

	sess, err := st.Sessions().GetSessionByFingerprint(ctx, cryptox.FingerprintToken(issued.Token))
	require.NoError(t, err)
	require.NotNil(t, sess.RevokedAt)
}

func TestMethodsUsed(t *testing.T) {
	t.Parallel()

	require.Equal(t,
		[]string{AMRPassword},
		MethodsUsed(domain.Credentials{Password: "x"}, false))

	require.Equal(t,
		[]string{AMRPin, AMROTP},
		MethodsUsed(domain.Credentials{PIN: "1234", TwoFAToken: "123456"}, false))

	require.Equal(t,
		[]string{AMRPassword, AMROTP, AMRBackdoor},
		MethodsUsed(domain.Credentials{Password: "x", TwoFAToken: "123456"}, true))
}
