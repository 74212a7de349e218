package domain

import "time"

// LoginEvent is the audit record written for every successful login.
// Only coarse location identifiers and a device fingerprint hash are kept;
// the raw User-Agent is never stored.
type LoginEvent struct {
	ID              string // ULID
	UserID          string
	SessionID       string
	IP              string
	Country         string
	DeviceName      string
	FingerprintHash string
	Backdoor        bool
	CreatedAt       time.Time
}
