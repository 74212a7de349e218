package httpx

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// RealIP resolves the requester address, preferring proxy headers over
// RemoteAddr, and normalizes it once at ingestion. IPv4-mapped IPv6
// addresses are unmapped so the same client always yields the same Addr
// regardless of how the listener represented it. Callers downstream must
// use the returned Addr, never re-parse header strings.
func RealIP(r *http.Request) (netip.Addr, bool) {
	// X-Forwarded-For is a comma-separated list; the first entry is the client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if addr, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
			return addr.Unmap(), true
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if addr, err := netip.ParseAddr(strings.TrimSpace(xri)); err == nil {
			return addr.Unmap(), true
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(host))
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

// RealIPString returns the normalized requester address as a string, or ""
// when no address could be resolved. Useful as a rate-limit key.
func RealIPString(r *http.Request) string {
	addr, ok := RealIP(r)
	if !ok {
		return ""
	}
	return addr.String()
}
