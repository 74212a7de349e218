package domain

import "time"

// Session is an issued login session. The browser holds the signed token;
// the database holds only its fingerprint so a leaked table cannot be
// replayed as cookies.
type Session struct {
	ID               string // ULID
	UserID           string
	TokenFingerprint string
	IP               string
	Country          string
	DeviceID         string
	DeviceName       string // e.g. "Chrome on macOS"
	Backdoor         bool   // Session was opened through the backdoor path
	CreatedAt        time.Time
	ExpiresAt        time.Time
	RevokedAt        *time.Time
}

// Active reports whether the session is usable at the given time.
func (s Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && s.ExpiresAt.After(now)
}
