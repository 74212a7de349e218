package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/meridianwealth/authgate/internal/auth/domain"
	"github.com/meridianwealth/authgate/internal/auth/store"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, email, display_name, office_id, password_hash, pin_hash, totp_secret, twofa_enabled, created_at, updated_at`

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return r.scanUserWithIPs(ctx, row)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? COLLATE NOCASE`,
		strings.TrimSpace(email))
	return r.scanUserWithIPs(ctx, row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, display_name, office_id, password_hash, pin_hash, totp_secret, twofa_enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.DisplayName, u.OfficeID, u.PasswordHash,
		nullString(u.PINHash), nullString(u.TOTPSecret), boolToInt(u.TwoFAEnabled),
		encodeTime(u.CreatedAt), encodeTime(u.UpdatedAt),
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE") {
		return store.ErrAlreadyExists
	}
	if err != nil {
		return err
	}

	for _, v := range u.VerifiedIPs {
		if err := r.AddVerifiedIP(ctx, u.ID, v); err != nil {
			return err
		}
	}
	return nil
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, encodeTime(time.Now()), userID)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (r *usersRepo) SetTwoFA(ctx context.Context, userID string, secret string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET totp_secret = ?, twofa_enabled = 1, updated_at = ? WHERE id = ?`,
		secret, encodeTime(time.Now()), userID)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (r *usersRepo) AddVerifiedIP(ctx context.Context, userID string, v domain.VerifiedIP) error {
	var lat, long sql.NullFloat64
	if v.LatLong != nil {
		lat = sql.NullFloat64{Float64: v.LatLong.Lat, Valid: true}
		long = sql.NullFloat64{Float64: v.LatLong.Long, Valid: true}
	}

	var lastLogin sql.NullString
	if !v.LastLogin.IsZero() {
		lastLogin = sql.NullString{String: encodeTime(v.LastLogin), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO verified_ips (user_id, ip, country, verified, last_login, lat, long)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, ip, country) DO UPDATE SET
			verified = excluded.verified,
			last_login = excluded.last_login,
			lat = excluded.lat,
			long = excluded.long`,
		userID, v.IP, v.Country, boolToInt(v.Verified), lastLogin, lat, long,
	)
	return err
}

// TouchVerifiedIP is a keyed update, not read-modify-write: the WHERE clause
// pins the exact authoritative row so concurrent logins on the same account
// cannot lose each other's writes.
func (r *usersRepo) TouchVerifiedIP(
	ctx context.Context,
	userID, ip, country string,
	latLong *domain.LatLong,
	at time.Time,
) error {
	var lat, long sql.NullFloat64
	if latLong != nil {
		lat = sql.NullFloat64{Float64: latLong.Lat, Valid: true}
		long = sql.NullFloat64{Float64: latLong.Long, Valid: true}
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE verified_ips
		SET last_login = ?, lat = COALESCE(?, lat), long = COALESCE(?, long)
		WHERE user_id = ? AND ip = ? AND country = ? AND verified = 1`,
		encodeTime(at), lat, long, userID, ip, country,
	)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (r *usersRepo) scanUserWithIPs(ctx context.Context, row *sql.Row) (domain.User, error) {
	var (
		u                   domain.User
		pinHash, totpSecret sql.NullString
		twofa               int
		createdAt, updatedAt string
	)

	err := row.Scan(
		&u.ID, &u.Email, &u.DisplayName, &u.OfficeID, &u.PasswordHash,
		&pinHash, &totpSecret, &twofa, &createdAt, &updatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	if pinHash.Valid {
		u.PINHash = &pinHash.String
	}
	if totpSecret.Valid {
		u.TOTPSecret = &totpSecret.String
	}
	u.TwoFAEnabled = twofa != 0
	u.CreatedAt = decodeTime(createdAt)
	u.UpdatedAt = decodeTime(updatedAt)

	ips, err := r.verifiedIPs(ctx, u.ID)
	if err != nil {
		return domain.User{}, err
	}
	u.VerifiedIPs = ips

	return u, nil
}

func (r *usersRepo) verifiedIPs(ctx context.Context, userID string) ([]domain.VerifiedIP, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ip, country, verified, last_login, lat, long
		FROM verified_ips WHERE user_id = ?
		ORDER BY ip, country`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.VerifiedIP
	for rows.Next() {
		var (
			v         domain.VerifiedIP
			verified  int
			lastLogin sql.NullString
			lat, long sql.NullFloat64
		)
		if err := rows.Scan(&v.IP, &v.Country, &verified, &lastLogin, &lat, &long); err != nil {
			return nil, err
		}
		v.Verified = verified != 0
		if lastLogin.Valid {
			v.LastLogin = decodeTime(lastLogin.String)
		}
		if lat.Valid && long.Valid {
			v.LatLong = &domain.LatLong{Lat: lat.Float64, Long: long.Float64}
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
