package domain

import "time"

// User is the authoritative account record, owned by the storage collaborator.
// Credential material is stored as opaque hash handles; this core never sees
// plaintext secrets at rest.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	OfficeID     string     // Tenant the account belongs to
	PasswordHash string     // argon2id PHC encoded
	PINHash      *string    // Optional short-PIN hash (nullable)
	TOTPSecret   *string    // base32 TOTP secret (nullable)
	TwoFAEnabled bool       // Whether the second factor is required at login
	VerifiedIPs  []VerifiedIP
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPIN reports whether the account has a PIN configured.
func (u User) HasPIN() bool {
	return u.PINHash != nil && *u.PINHash != ""
}

// LatLong is an approximate requester location.
type LatLong struct {
	Lat  float64
	Long float64
}

// VerifiedIP is a previously confirmed login location for an account.
// At most one entry per (ip, country) pair is authoritative, and only
// entries flagged Verified satisfy the allow-list check. Entries are
// created by the out-of-band location verification flow; this core only
// updates LastLogin/LatLong on a successful match.
type VerifiedIP struct {
	IP        string
	Country   string // ISO 3166-1 alpha-2
	Verified  bool
	LastLogin time.Time
	LatLong   *LatLong
}
