package domain

// Credentials is the transient, request-scoped payload for one
// authentication attempt. It is never persisted.
type Credentials struct {
	Email      string
	Password   string
	PIN        string
	TwoFAToken string
}
