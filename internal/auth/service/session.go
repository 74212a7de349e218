package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/meridianwealth/authgate/internal/auth/device"
	"github.com/meridianwealth/authgate/internal/auth/domain"
	"github.com/meridianwealth/authgate/internal/auth/metrics"
	"github.com/meridianwealth/authgate/internal/auth/store"
	"github.com/meridianwealth/authgate/pkg/cryptox"
	"github.com/meridianwealth/authgate/pkg/idx"
	"github.com/meridianwealth/authgate/pkg/jwtx"
	"github.com/meridianwealth/authgate/pkg/slogx"
)

var ErrSessionInvalid = errors.New("session: invalid")

// AMR method values carried in session claims.
const (
	AMRPassword = "pwd"
	AMRPin      = "pin"
	AMROTP      = "otp"
	AMRBackdoor = "bkd"
)

// SessionService issues and revokes browser sessions. The signed token goes
// to the browser; only its fingerprint is persisted, so session rows cannot
// be replayed as cookies.
type SessionService struct {
	Store   store.Store
	Signer  *jwtx.Signer
	Issuer  string
	TTL     time.Duration
	Device  *device.Service
	Metrics *metrics.Metrics
}

// IssuedSession is what the HTTP layer needs to set the cookie.
type IssuedSession struct {
	Token     string
	SessionID string
	ExpiresAt time.Time
}

// Issue signs a session token for an authenticated user and records the
// session plus its audit login event atomically.
func (s *SessionService) Issue(ctx context.Context, user domain.User, meta RequestMeta, amr []string, backdoor bool) (IssuedSession, error) {
	now := nowFunc()
	ttl := s.TTL
	if ttl <= 0 {
		ttl = jwtx.DefaultSessionTTL
	}

	sid := idx.New().String()
	claims := jwtx.NewSessionClaims(user.ID, sid, user.Email, user.OfficeID, amr, ttl, s.Issuer, now)

	token, err := s.Signer.Sign(claims)
	if err != nil {
		return IssuedSession{}, fmt.Errorf("session: sign token: %w", err)
	}

	var deviceName, fingerprint string
	if s.Device != nil {
		deviceName = s.Device.DisplayName(meta.UserAgent)
		fingerprint = s.Device.Fingerprint(meta.UserAgent)
	}

	ip := ""
	if meta.IP.IsValid() {
		ip = meta.IP.String()
	}

	sess := domain.Session{
		ID:               sid,
		UserID:           user.ID,
		TokenFingerprint: cryptox.FingerprintToken(token),
		IP:               ip,
		Country:          meta.Country,
		DeviceID:         s.deviceID(),
		DeviceName:       deviceName,
		Backdoor:         backdoor,
		CreatedAt:        now,
		ExpiresAt:        now.Add(ttl),
	}

	event := domain.LoginEvent{
		ID:              idx.New().String(),
		UserID:          user.ID,
		SessionID:       sid,
		IP:              ip,
		Country:         meta.Country,
		DeviceName:      deviceName,
		FingerprintHash: fingerprint,
		Backdoor:        backdoor,
		CreatedAt:       now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Sessions().CreateSession(ctx, sess); err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		if err := tx.LoginEvents().CreateLoginEvent(ctx, event); err != nil {
			return fmt.Errorf("create login event: %w", err)
		}
		return nil
	})
	if err != nil {
		return IssuedSession{}, fmt.Errorf("session: persist: %w", err)
	}

	if s.Metrics != nil {
		s.Metrics.SessionsIssued.Inc()
	}
	slogx.FromContext(ctx).Info("session issued",
		"session_id", sid,
		"user_id", user.ID,
		"backdoor", backdoor,
	)

	return IssuedSession{Token: token, SessionID: sid, ExpiresAt: sess.ExpiresAt}, nil
}

// Resolve validates a raw session token against both the signature and the
// stored session record. Returns ErrSessionInvalid for any expected failure
// (bad signature, expired claims, revoked or missing record).
func (s *SessionService) Resolve(ctx context.Context, token string) (jwtx.Claims, domain.Session, error) {
	if token == "" {
		return jwtx.Claims{}, domain.Session{}, ErrSessionInvalid
	}

	claims, err := s.Signer.Verifier(s.Issuer).Verify(token)
	if err != nil {
		return jwtx.Claims{}, domain.Session{}, ErrSessionInvalid
	}
	if err := claims.ValidateExpiryAt(nowFunc()); err != nil {
		return jwtx.Claims{}, domain.Session{}, ErrSessionInvalid
	}

	sess, err := s.Store.Sessions().GetSessionByFingerprint(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return jwtx.Claims{}, domain.Session{}, ErrSessionInvalid
		}
		return jwtx.Claims{}, domain.Session{}, fmt.Errorf("session: lookup: %w", err)
	}
	if !sess.Active(nowFunc()) {
		return jwtx.Claims{}, domain.Session{}, ErrSessionInvalid
	}

	return claims, sess, nil
}

// Revoke invalidates the session behind a raw token. Unknown or already
// malformed tokens revoke to a no-op; signout never fails on a stale cookie.
func (s *SessionService) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	sess, err := s.Store.Sessions().GetSessionByFingerprint(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("session: lookup for revoke: %w", err)
	}

	if err := s.Store.Sessions().RevokeSession(ctx, sess.ID, nowFunc()); err != nil {
		return fmt.Errorf("session: revoke: %w", err)
	}

	slogx.FromContext(ctx).Info("session revoked", "session_id", sess.ID, "user_id", sess.UserID)
	return nil
}

func (s *SessionService) deviceID() string {
	if s.Device == nil {
		return ""
	}
	return s.Device.GenerateDeviceID()
}

// MethodsUsed derives the AMR claim values for an accepted attempt.
func MethodsUsed(creds domain.Credentials, backdoor bool) []string {
	var amr []string
	if creds.Password != "" {
		amr = append(amr, AMRPassword)
	} else if creds.PIN != "" {
		amr = append(amr, AMRPin)
	}
	if creds.TwoFAToken != "" {
		amr = append(amr, AMROTP)
	}
	if backdoor {
		amr = append(amr, AMRBackdoor)
	}
	return amr
}
