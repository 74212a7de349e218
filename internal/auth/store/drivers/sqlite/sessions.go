package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/meridianwealth/authgate/internal/auth/domain"
	"github.com/meridianwealth/authgate/internal/auth/store"
)

type sessionsRepo struct {
	db dbtx
}

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, token_fingerprint, ip, country, device_id, device_name, backdoor, created_at, expires_at, revoked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.TokenFingerprint, s.IP, s.Country, s.DeviceID,
		s.DeviceName, boolToInt(s.Backdoor),
		encodeTime(s.CreatedAt), encodeTime(s.ExpiresAt), encodeNullTime(s.RevokedAt),
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE") {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *sessionsRepo) GetSessionByFingerprint(ctx context.Context, fingerprint string) (domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, token_fingerprint, ip, country, device_id, device_name, backdoor, created_at, expires_at, revoked_at
		FROM sessions WHERE token_fingerprint = ?`, fingerprint)

	var (
		s                    domain.Session
		backdoor             int
		createdAt, expiresAt string
		revokedAt            sql.NullString
	)
	err := row.Scan(
		&s.ID, &s.UserID, &s.TokenFingerprint, &s.IP, &s.Country,
		&s.DeviceID, &s.DeviceName, &backdoor, &createdAt, &expiresAt, &revokedAt,
	)
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}

	s.Backdoor = backdoor != 0
	s.CreatedAt = decodeTime(createdAt)
	s.ExpiresAt = decodeTime(expiresAt)
	s.RevokedAt = decodeNullTime(revokedAt)

	return s, nil
}

func (r *sessionsRepo) RevokeSession(ctx context.Context, sessionID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`,
		encodeTime(at), sessionID)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (r *sessionsRepo) DeleteExpiredSessions(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at < ?`, encodeTime(time.Now()))
	return err
}
