package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"strings"
	"time"

	"github.com/meridianwealth/authgate/internal/auth/domain"
	"github.com/meridianwealth/authgate/internal/auth/metrics"
	"github.com/meridianwealth/authgate/internal/auth/store"
	"github.com/meridianwealth/authgate/pkg/slogx"
)

// nowFunc is swapped out in tests.
var nowFunc = time.Now

// ErrAuthRejected is the single error returned for every expected
// authentication failure: unknown user, unlisted IP, bad password or PIN,
// missing or wrong second factor, unresolvable backdoor target. Callers
// observe only accept/reject; which step failed is never disclosed. Only
// genuine collaborator outages (storage unreachable) surface as distinct
// errors so operators can tell "wrong credentials" from "dependency down".
var ErrAuthRejected = errors.New("auth: rejected")

// RequestMeta carries the requester facts resolved once at the HTTP
// boundary: normalized source address, country and approximate location
// from edge metadata, and the User-Agent for the audit trail.
type RequestMeta struct {
	IP        netip.Addr
	Country   string
	LatLong   *domain.LatLong
	UserAgent string
}

// Options are the recognized per-attempt flags. Defaults come from
// configuration at construction time, never from ambient environment reads.
type Options struct {
	SkipIPChecks  bool
	Skip2FA       bool
	AllowPIN      bool
	BackdoorEmail string // non-empty means a backdoor attempt
	IsLoginEvent  bool
	Debug         bool
}

// Subject identifies the account under authentication: either an already
// resolved user record or a bare email to resolve.
type Subject struct {
	User  *domain.User
	Email string
}

// AuthService composes the allow-list, credential, TOTP and backdoor checks
// into one accept/reject decision.
type AuthService struct {
	Store    store.Store
	Hasher   CredentialHasher
	TOTP     TOTPVerifier
	Backdoor *BackdoorAuthority
	Metrics  *metrics.Metrics
}

// Authenticate runs the fixed pipeline, short-circuiting on the first
// failure:
//
//  1. Backdoor intent is resolved: a backdoor attempt can never skip 2FA,
//     and may skip IP checks only from loopback with an allow-listed
//     identity.
//  2. The subject is resolved to a full user record.
//  3. Unless skipped, the requester (ip, country) must match a verified
//     location; the match is touched (last_login, lat/long) write-through.
//  4. Primary factor: password against the stored hash, or a PIN when
//     allowed and configured.
//  5. Second factor: required when the account has 2FA enabled or the
//     attempt is a backdoor attempt; the secret is looked up under the
//     backdoor identity when operating under backdoor.
//  6. Under backdoor, the returned identity is the resolved backdoor
//     target, not the credential account.
//
// On success the authoritative user record is returned. A login-event
// attempt additionally hangs entitlement state off this call site (handled
// by the caller).
func (s *AuthService) Authenticate(
	ctx context.Context,
	meta RequestMeta,
	subject Subject,
	creds domain.Credentials,
	opts Options,
) (domain.User, error) {
	log := slogx.FromContext(ctx)

	if s.Metrics != nil {
		start := nowFunc()
		defer func() {
			s.Metrics.AuthDurationMs.Observe(float64(nowFunc().Sub(start).Milliseconds()))
		}()
	}

	backdoor := strings.TrimSpace(opts.BackdoorEmail) != ""
	if backdoor {
		if !s.Backdoor.Enabled() {
			return s.reject(opts, log, "backdoor disabled")
		}
		opts = s.Backdoor.Normalize(opts, meta.IP)
	}

	user, err := s.resolveSubject(ctx, subject, creds)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return s.reject(opts, log, "subject not resolvable")
		}
		return s.fail(fmt.Errorf("auth: resolve subject: %w", err))
	}

	if !opts.SkipIPChecks {
		if err := s.checkIP(ctx, user, meta); err != nil {
			if errors.Is(err, ErrAuthRejected) {
				return s.reject(opts, log, "ip not allow-listed")
			}
			return s.fail(err)
		}
	}

	if !s.checkPrimaryFactor(user, creds, opts) {
		return s.reject(opts, log, "primary factor failed")
	}

	if !opts.Skip2FA && (user.TwoFAEnabled || backdoor) {
		if !s.checkSecondFactor(ctx, user, creds, opts) {
			return s.reject(opts, log, "second factor failed")
		}
	}

	result := user
	if backdoor {
		target, err := s.Store.Users().GetUserByEmail(ctx, opts.BackdoorEmail)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return s.reject(opts, log, "backdoor target not resolvable")
			}
			return s.fail(fmt.Errorf("auth: resolve backdoor target: %w", err))
		}
		result = target
	}

	if s.Metrics != nil {
		s.Metrics.AuthAttempts.WithLabelValues("accepted").Inc()
	}
	if opts.Debug {
		log.Debug("authentication accepted",
			"user_id", result.ID,
			"backdoor", backdoor,
			"login_event", opts.IsLoginEvent,
		)
	}

	return result, nil
}

// reject funnels every expected failure through one exit so the outcome is
// observationally identical regardless of cause. The cause is only logged
// at debug level for operators.
func (s *AuthService) reject(opts Options, log *slog.Logger, cause string) (domain.User, error) {
	if s.Metrics != nil {
		s.Metrics.AuthAttempts.WithLabelValues("rejected").Inc()
	}
	if opts.Debug {
		log.Debug("authentication rejected", "cause", cause)
	}
	return domain.User{}, ErrAuthRejected
}

// fail is the exit for collaborator outages, which unlike rejections carry
// their cause back to the caller.
func (s *AuthService) fail(err error) (domain.User, error) {
	if s.Metrics != nil {
		s.Metrics.AuthAttempts.WithLabelValues("error").Inc()
	}
	return domain.User{}, err
}

func (s *AuthService) resolveSubject(ctx context.Context, subject Subject, creds domain.Credentials) (domain.User, error) {
	if subject.User != nil {
		return *subject.User, nil
	}

	email := strings.TrimSpace(subject.Email)
	if email == "" {
		email = strings.TrimSpace(creds.Email)
	}
	if email == "" {
		return domain.User{}, store.ErrNotFound
	}

	return s.Store.Users().GetUserByEmail(ctx, email)
}

// checkIP matches the requester against the user's verified locations and
// touches the matched entry. Returns ErrAuthRejected when no authoritative
// entry matches; storage failures propagate unchanged.
func (s *AuthService) checkIP(ctx context.Context, user domain.User, meta RequestMeta) error {
	if !meta.IP.IsValid() {
		return ErrAuthRejected
	}

	entry, ok := MatchVerifiedIP(user.VerifiedIPs, meta.IP.String(), meta.Country)
	if !ok {
		return ErrAuthRejected
	}

	err := s.Store.Users().TouchVerifiedIP(ctx, user.ID, entry.IP, entry.Country, meta.LatLong, nowFunc())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// The entry vanished between match and touch; treat as unlisted.
			return ErrAuthRejected
		}
		return fmt.Errorf("auth: touch verified ip: %w", err)
	}
	return nil
}

func (s *AuthService) checkPrimaryFactor(user domain.User, creds domain.Credentials, opts Options) bool {
	if creds.Password == "" {
		// The only alternate path is a PIN, and only when explicitly allowed
		// and configured for the account.
		if !opts.AllowPIN || !user.HasPIN() || creds.PIN == "" {
			return false
		}
		return s.Hasher.Compare(creds.PIN, *user.PINHash)
	}

	if user.PasswordHash == "" {
		return false
	}
	return s.Hasher.Compare(creds.Password, user.PasswordHash)
}

// checkSecondFactor verifies the submitted TOTP token. The OTP secret is
// looked up under the backdoor identity when operating under backdoor, else
// under the credential account. Secret lookup failures are treated exactly
// like a wrong token.
func (s *AuthService) checkSecondFactor(ctx context.Context, user domain.User, creds domain.Credentials, opts Options) bool {
	if creds.TwoFAToken == "" {
		return false
	}

	secretHolder := user
	if email := strings.TrimSpace(opts.BackdoorEmail); email != "" && !strings.EqualFold(email, user.Email) {
		holder, err := s.Store.Users().GetUserByEmail(ctx, email)
		if err != nil {
			return false
		}
		secretHolder = holder
	}

	if secretHolder.TOTPSecret == nil || *secretHolder.TOTPSecret == "" {
		return false
	}

	return s.TOTP.Verify(*secretHolder.TOTPSecret, creds.TwoFAToken)
}
