package store

import (
	"context"
	"errors"
	"time"

	"github.com/meridianwealth/authgate/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable.
type Store interface {
	Users() Users
	Sessions() Sessions
	LoginEvents() LoginEvents

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, rolling back if fn returns an
	// error and committing otherwise. This is the recommended way to handle
	// multi-step operations that must be atomic.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id, with verified IPs attached.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail resolves a bare identifier during authentication.
	// Email matching is case-insensitive.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// UpdatePasswordHash sets the password_hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// SetTwoFA stores the TOTP secret and flips the 2FA requirement on.
	SetTwoFA(ctx context.Context, userID string, secret string) error

	// AddVerifiedIP records a login location for a user. The verification
	// flow that flips Verified lives outside this core.
	AddVerifiedIP(ctx context.Context, userID string, v domain.VerifiedIP) error

	// TouchVerifiedIP atomically updates last_login and lat/long on the
	// verified entry keyed by (userID, ip, country). It never inserts and
	// never touches unverified entries; returns ErrNotFound when no
	// authoritative entry matched. Keyed-update semantics avoid lost
	// updates when concurrent logins race on the same account.
	TouchVerifiedIP(ctx context.Context, userID, ip, country string, latLong *domain.LatLong, at time.Time) error
}

type Sessions interface {
	// CreateSession stores a new session record.
	CreateSession(ctx context.Context, s domain.Session) error

	// GetSessionByFingerprint returns the session by its token fingerprint.
	GetSessionByFingerprint(ctx context.Context, fingerprint string) (domain.Session, error)

	// RevokeSession marks a session revoked (signout).
	RevokeSession(ctx context.Context, sessionID string, at time.Time) error

	// DeleteExpiredSessions is housekeeping.
	DeleteExpiredSessions(ctx context.Context) error
}

type LoginEvents interface {
	// CreateLoginEvent appends one audit record for a successful login.
	CreateLoginEvent(ctx context.Context, e domain.LoginEvent) error

	// ListUserLoginEvents returns the most recent events for a user.
	ListUserLoginEvents(ctx context.Context, userID string, limit int) ([]domain.LoginEvent, error)

	// DeleteLoginEventsBefore trims the audit trail (housekeeping).
	DeleteLoginEventsBefore(ctx context.Context, cutoff time.Time) error
}
