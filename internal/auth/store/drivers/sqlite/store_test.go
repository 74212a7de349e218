package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/meridianwealth/authgate/internal/auth/domain"
	"github.com/meridianwealth/authgate/internal/auth/store"
	"github.com/meridianwealth/authgate/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	st, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func seedUser(t *testing.T, st *Store, mutate func(*domain.User)) domain.User {
	t.Helper()

	now := time.Now()
	u := domain.User{
		ID:           idx.New().String(),
		Email:        "alice@example.com",
		DisplayName:  "Alice",
		OfficeID:     "office-1",
		PasswordHash: "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if mutate != nil {
		mutate(&u)
	}
	require.NoError(t, st.Users().CreateUser(context.Background(), u))
	return u
}

func TestUsersRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	pin := "$argon2id$pin"
	u := seedUser(t, st, func(u *domain.User) {
		u.PINHash = &pin
		u.TwoFAEnabled = true
		u.VerifiedIPs = []domain.VerifiedIP{
			{IP: "203.0.113.7", Country: "US", Verified: true},
			{IP: "198.51.100.9", Country: "GB", Verified: false},
		}
	})

	got, err := st.Users().GetUserByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.Equal(t, "office-1", got.OfficeID)
	require.True(t, got.TwoFAEnabled)
	require.True(t, got.HasPIN())
	require.Len(t, got.VerifiedIPs, 2)

	_, err = st.Users().GetUserByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedUser(t, st, nil)

	dup := domain.User{
		ID:           idx.New().String(),
		Email:        "Alice@Example.com",
		DisplayName:  "Imposter",
		OfficeID:     "office-2",
		PasswordHash: "h",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	require.ErrorIs(t, st.Users().CreateUser(ctx, dup), store.ErrAlreadyExists)
}

func TestTouchVerifiedIPUpdatesOnlyMatchedEntry(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	u := seedUser(t, st, func(u *domain.User) {
		u.VerifiedIPs = []domain.VerifiedIP{
			{IP: "203.0.113.7", Country: "US", Verified: true},
			{IP: "203.0.113.7", Country: "CA", Verified: true},
			{IP: "198.51.100.9", Country: "US", Verified: false},
		}
	})

	at := time.Now().Add(-time.Minute).Truncate(time.Second)
	loc := &domain.LatLong{Lat: 40.7, Long: -74.0}
	require.NoError(t, st.Users().TouchVerifiedIP(ctx, u.ID, "203.0.113.7", "US", loc, at))

	got, err := st.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)

	var touched, sibling, unverified domain.VerifiedIP
	for _, v := range got.VerifiedIPs {
		switch {
		case v.IP == "203.0.113.7" && v.Country == "US":
			touched = v
		case v.IP == "203.0.113.7" && v.Country == "CA":
			sibling = v
		default:
			unverified = v
		}
	}

	require.WithinDuration(t, at, touched.LastLogin, time.Second)
	require.NotNil(t, touched.LatLong)
	require.InDelta(t, 40.7, touched.LatLong.Lat, 0.001)

	// Everything else stays untouched.
	require.True(t, sibling.LastLogin.IsZero())
	require.Nil(t, sibling.LatLong)
	require.True(t, unverified.LastLogin.IsZero())
}

func TestTouchVerifiedIPIgnoresUnverifiedRows(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	u := seedUser(t, st, func(u *domain.User) {
		u.VerifiedIPs = []domain.VerifiedIP{
			{IP: "198.51.100.9", Country: "US", Verified: false},
		}
	})

	err := st.Users().TouchVerifiedIP(ctx, u.ID, "198.51.100.9", "US", nil, time.Now())
	require.ErrorIs(t, err, store.ErrNotFound)

	err = st.Users().TouchVerifiedIP(ctx, u.ID, "192.0.2.1", "US", nil, time.Now())
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSessionsLifecycle(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	u := seedUser(t, st, nil)

	now := time.Now()
	s := domain.Session{
		ID:               idx.New().String(),
		UserID:           u.ID,
		TokenFingerprint: "fp-1",
		IP:               "203.0.113.7",
		Country:          "US",
		DeviceName:       "Chrome on macOS",
		CreatedAt:        now,
		ExpiresAt:        now.Add(time.Hour),
	}
	require.NoError(t, st.Sessions().CreateSession(ctx, s))
	require.ErrorIs(t, st.Sessions().CreateSession(ctx, s), store.ErrAlreadyExists)

	got, err := st.Sessions().GetSessionByFingerprint(ctx, "fp-1")
	require.NoError(t, err)
	require.True(t, got.Active(now))

	require.NoError(t, st.Sessions().RevokeSession(ctx, s.ID, now))
	got, err = st.Sessions().GetSessionByFingerprint(ctx, "fp-1")
	require.NoError(t, err)
	require.False(t, got.Active(now))

	// Revoking twice reports not found.
	require.ErrorIs(t, st.Sessions().RevokeSession(ctx, s.ID, now), store.ErrNotFound)
}

func TestDeleteExpiredSessions(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	u := seedUser(t, st, nil)

	now := time.Now()
	expired := domain.Session{
		ID: idx.New().String(), UserID: u.ID, TokenFingerprint: "fp-old",
		CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour),
	}
	live := domain.Session{
		ID: idx.New().String(), UserID: u.ID, TokenFingerprint: "fp-live",
		CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, st.Sessions().CreateSession(ctx, expired))
	require.NoError(t, st.Sessions().CreateSession(ctx, live))

	require.NoError(t, st.Sessions().DeleteExpiredSessions(ctx))

	_, err := st.Sessions().GetSessionByFingerprint(ctx, "fp-old")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.Sessions().GetSessionByFingerprint(ctx, "fp-live")
	require.NoError(t, err)
}

func TestLoginEvents(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	u := seedUser(t, st, nil)

	for i := 0; i < 3; i++ {
		e := domain.LoginEvent{
			ID:        idx.New().String(),
			UserID:    u.ID,
			IP:        "203.0.113.7",
			Country:   "US",
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, st.LoginEvents().CreateLoginEvent(ctx, e))
	}

	events, err := st.LoginEvents().ListUserLoginEvents(ctx, u.ID, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	// Newest first.
	require.True(t, events[0].CreatedAt.After(events[1].CreatedAt))

	require.NoError(t, st.LoginEvents().DeleteLoginEventsBefore(ctx, time.Now().Add(time.Minute)))
	events, err = st.LoginEvents().ListUserLoginEvents(ctx, u.ID, 10)
	require.NoError(t, err)
	require.Empty(t, events)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	u := seedUser(t, st, nil)

	sentinel := store.ErrAlreadyExists
	err := st.WithTx(ctx, func(tx store.Tx) error {
		s := domain.Session{
			ID: idx.New().String(), UserID: u.ID, TokenFingerprint: "fp-tx",
			CreatedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour),
		}
		if err := tx.Sessions().CreateSession(ctx, s); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	_, err = st.Sessions().GetSessionByFingerprint(ctx, "fp-tx")
	require.ErrorIs(t, err, store.ErrNotFound)
}
