package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridianwealth/authgate/internal/auth/domain"
)

func TestMatchVerifiedIP(t *testing.T) {
	t.Parallel()

	ips := []domain.VerifiedIP{
		{IP: "203.0.113.7", Country: "US", Verified: true},
		{IP: "203.0.113.7", Country: "CA", Verified: true},
		{IP: "198.51.100.9", Country: "US", Verified: false},
	}

	got, ok := MatchVerifiedIP(ips, "203.0.113.7", "CA")
	require.True(t, ok)
	require.Equal(t, "CA", got.Country)

	_, ok = MatchVerifiedIP(ips, "203.0.113.7", "GB")
	require.False(t, ok)

	// Unverified entries never satisfy the check.
	_, ok = MatchVerifiedIP(ips, "198.51.100.9", "US")
	require.False(t, ok)

	_, ok = MatchVerifiedIP(nil, "203.0.113.7", "US")
	require.False(t, ok)
}
