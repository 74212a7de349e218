package httpx

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRealIPPrefersForwardedFor(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.1:443"
	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	addr, ok := RealIP(r)
	require.True(t, ok)
	require.Equal(t, "203.0.113.7", addr.String())
}

func TestRealIPFallsBackToRealIPHeader(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.1:443"
	r.Header.Set("X-Real-IP", " 198.51.100.4 ")

	addr, ok := RealIP(r)
	require.True(t, ok)
	require.Equal(t, "198.51.100.4", addr.String())
}

func TestRealIPUnmapsIPv4InIPv6(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "[::ffff:192.0.2.1]:8080"

	addr, ok := RealIP(r)
	require.True(t, ok)
	require.Equal(t, "192.0.2.1", addr.String())
	require.True(t, addr.Is4())
}

func TestRealIPLoopbackNormalization(t *testing.T) {
	t.Parallel()

	for _, remote := range []string{"127.0.0.1:9000", "[::1]:9000"} {
		r := httptest.NewRequest("GET", "/", nil)
		r.RemoteAddr = remote

		addr, ok := RealIP(r)
		require.True(t, ok)
		require.True(t, addr.IsLoopback())
	}
}

func TestRealIPStringOnGarbage(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "not-an-address"
	require.Empty(t, RealIPString(r))
}
