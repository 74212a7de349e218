package sqlite

import (
	"context"
	"time"

	"github.com/meridianwealth/authgate/internal/auth/domain"
)

type loginEventsRepo struct {
	db dbtx
}

func (r *loginEventsRepo) CreateLoginEvent(ctx context.Context, e domain.LoginEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO login_events (id, user_id, session_id, ip, country, device_name, fingerprint_hash, backdoor, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.SessionID, e.IP, e.Country, e.DeviceName,
		e.FingerprintHash, boolToInt(e.Backdoor), encodeTime(e.CreatedAt),
	)
	return err
}

func (r *loginEventsRepo) ListUserLoginEvents(ctx context.Context, userID string, limit int) ([]domain.LoginEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, session_id, ip, country, device_name, fingerprint_hash, backdoor, created_at
		FROM login_events WHERE user_id = ?
		ORDER BY created_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.LoginEvent
	for rows.Next() {
		var (
			e         domain.LoginEvent
			backdoor  int
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.SessionID, &e.IP, &e.Country,
			&e.DeviceName, &e.FingerprintHash, &backdoor, &createdAt); err != nil {
			return nil, err
		}
		e.Backdoor = backdoor != 0
		e.CreatedAt = decodeTime(createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *loginEventsRepo) DeleteLoginEventsBefore(ctx context.Context, cutoff time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM login_events WHERE created_at < ?`, encodeTime(cutoff))
	return err
}
