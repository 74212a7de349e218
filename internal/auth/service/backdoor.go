package service

import (
	"net/netip"
	"strings"
)

// BackdoorAuthority grants a bounded bypass path for a restricted set of
// operator-controlled accounts. It is injected into AuthService so stricter
// deployments can disable it entirely without touching the pipeline.
//
// The authority can at most relax the IP check, and only for loopback
// requests naming an allow-listed identity. It can never relax the second
// factor: a backdoor login always requires TOTP.
type BackdoorAuthority struct {
	enabled bool
	allowed map[string]struct{}
}

func NewBackdoorAuthority(enabled bool, emails []string) *BackdoorAuthority {
	allowed := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			allowed[e] = struct{}{}
		}
	}
	return &BackdoorAuthority{enabled: enabled, allowed: allowed}
}

func (b *BackdoorAuthority) Enabled() bool {
	return b != nil && b.enabled
}

// Permits reports whether the given identity may be used through the
// backdoor at all.
func (b *BackdoorAuthority) Permits(email string) bool {
	if !b.Enabled() {
		return false
	}
	_, ok := b.allowed[strings.ToLower(strings.TrimSpace(email))]
	return ok
}

// Normalize rewrites the attempt options for a backdoor attempt.
// 2FA skipping is revoked unconditionally. IP-check skipping survives only
// when the request comes from a loopback address and the identity is
// allow-listed; the requester address must have been normalized at
// ingestion (no raw header strings).
func (b *BackdoorAuthority) Normalize(opts Options, requester netip.Addr) Options {
	opts.Skip2FA = false

	if !(requester.IsValid() && requester.IsLoopback() && b.Permits(opts.BackdoorEmail)) {
		opts.SkipIPChecks = false
	}

	return opts
}
