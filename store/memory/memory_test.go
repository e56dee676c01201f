package memory

import (
	"context"
	"crypto/sha256"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pulsefit/authengine/store"
)

func hashOf(s string) [32]byte {
	return sha256.Sum256([]byte(s))
}

func seedSession(t *testing.T, st *Store, identityID, sessionID string) *store.Session {
	t.Helper()

	now := time.Now()
	sess := &store.Session{
		ID:           sessionID,
		IdentityID:   identityID,
		TenantID:     "t1",
		Role:         "member",
		CreatedAt:    now,
		ExpiresAt:    now.Add(24 * time.Hour),
		LastActiveAt: now,
	}
	require.NoError(t, st.CreateSession(context.Background(), sess))
	return sess
}

func seedToken(t *testing.T, st *Store, sessionID, identityID, secret string) *store.RefreshToken {
	t.Helper()

	now := time.Now()
	tok := &store.RefreshToken{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		IdentityID: identityID,
		Hash:       hashOf(secret),
		CreatedAt:  now,
		ExpiresAt:  now.Add(24 * time.Hour),
	}
	require.NoError(t, st.InsertRefreshToken(context.Background(), tok))
	return tok
}

func TestRotateHappyPath(t *testing.T) {
	st := New()
	ctx := context.Background()
	seedSession(t, st, "id-1", "s1")
	seedToken(t, st, "s1", "id-1", "old")

	now := time.Now()
	replacement := &store.RefreshToken{
		ID:         uuid.NewString(),
		SessionID:  "s1",
		IdentityID: "id-1",
		Hash:       hashOf("new"),
		CreatedAt:  now,
		ExpiresAt:  now.Add(24 * time.Hour),
	}

	sess, err := st.RotateRefreshToken(ctx, hashOf("old"), replacement, now)
	require.NoError(t, err)
	require.Equal(t, "s1", sess.ID)

	old, err := st.GetRefreshTokenByHash(ctx, hashOf("old"))
	require.NoError(t, err)
	require.NotNil(t, old.RevokedAt)
	require.NotNil(t, old.RotatedAt)

	fresh, err := st.GetRefreshTokenByHash(ctx, hashOf("new"))
	require.NoError(t, err)
	require.Nil(t, fresh.RevokedAt)
}

func TestRotateSecondCallerLoses(t *testing.T) {
	st := New()
	ctx := context.Background()
	seedSession(t, st, "id-1", "s1")
	seedToken(t, st, "s1", "id-1", "old")

	now := time.Now()
	mk := func(secret string) *store.RefreshToken {
		return &store.RefreshToken{
			ID:        uuid.NewString(),
			SessionID: "s1", IdentityID: "id-1",
			Hash:      hashOf(secret),
			CreatedAt: now, ExpiresAt: now.Add(24 * time.Hour),
		}
	}

	_, err := st.RotateRefreshToken(ctx, hashOf("old"), mk("new-a"), now)
	require.NoError(t, err)

	_, err = st.RotateRefreshToken(ctx, hashOf("old"), mk("new-b"), now)
	require.ErrorIs(t, err, store.ErrTokenRevoked)

	// The loser must not have inserted its replacement.
	_, err = st.GetRefreshTokenByHash(ctx, hashOf("new-b"))
	require.ErrorIs(t, err, store.ErrTokenNotFound)
}

func TestRotateConcurrentSingleWinner(t *testing.T) {
	st := New()
	ctx := context.Background()
	seedSession(t, st, "id-1", "s1")
	seedToken(t, st, "s1", "id-1", "old")

	const callers = 16
	now := time.Now()

	var wg sync.WaitGroup
	wins := make(chan int, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			replacement := &store.RefreshToken{
				ID:        uuid.NewString(),
				SessionID: "s1", IdentityID: "id-1",
				Hash:      hashOf(uuid.NewString()),
				CreatedAt: now, ExpiresAt: now.Add(24 * time.Hour),
			}
			if _, err := st.RotateRefreshToken(ctx, hashOf("old"), replacement, now); err == nil {
				wins <- i
			}
		}(i)
	}
	wg.Wait()
	close(wins)

	count := 0
	for range wins {
		count++
	}
	require.Equal(t, 1, count, "exactly one rotation may succeed")
}

func TestRotateUnknownHash(t *testing.T) {
	st := New()
	_, err := st.RotateRefreshToken(context.Background(), hashOf("missing"), &store.RefreshToken{}, time.Now())
	require.ErrorIs(t, err, store.ErrTokenNotFound)
}

func TestRotateExpiredToken(t *testing.T) {
	st := New()
	ctx := context.Background()
	seedSession(t, st, "id-1", "s1")

	tok := seedToken(t, st, "s1", "id-1", "old")
	_ = tok

	later := time.Now().Add(48 * time.Hour)
	_, err := st.RotateRefreshToken(ctx, hashOf("old"), &store.RefreshToken{Hash: hashOf("new")}, later)
	require.ErrorIs(t, err, store.ErrTokenExpired)
}

func TestRotateRevokedSessionRefused(t *testing.T) {
	st := New()
	ctx := context.Background()
	seedSession(t, st, "id-1", "s1")
	seedToken(t, st, "s1", "id-1", "old")

	require.NoError(t, st.RevokeSessionFamily(ctx, "s1", time.Now()))

	_, err := st.RotateRefreshToken(ctx, hashOf("old"), &store.RefreshToken{Hash: hashOf("new")}, time.Now())
	require.ErrorIs(t, err, store.ErrTokenRevoked)
}

func TestRevokeSessionFamilyCascades(t *testing.T) {
	st := New()
	ctx := context.Background()
	seedSession(t, st, "id-1", "s1")
	seedToken(t, st, "s1", "id-1", "a")
	seedToken(t, st, "s1", "id-1", "b")

	at := time.Now()
	require.NoError(t, st.RevokeSessionFamily(ctx, "s1", at))

	for _, secret := range []string{"a", "b"} {
		tok, err := st.GetRefreshTokenByHash(ctx, hashOf(secret))
		require.NoError(t, err)
		require.NotNil(t, tok.RevokedAt, "token %s must be revoked", secret)
	}

	// Idempotent: the first timestamp wins.
	sess, err := st.GetSession(ctx, "s1")
	require.NoError(t, err)
	first := *sess.RevokedAt

	require.NoError(t, st.RevokeSessionFamily(ctx, "s1", at.Add(time.Hour)))
	sess, err = st.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, first, *sess.RevokedAt)
}

func TestRevokeOtherSessionsKeepsCurrent(t *testing.T) {
	st := New()
	ctx := context.Background()
	seedSession(t, st, "id-1", "s1")
	seedSession(t, st, "id-1", "s2")
	seedSession(t, st, "id-1", "s3")
	seedSession(t, st, "id-2", "other")
	seedToken(t, st, "s2", "id-1", "tok-s2")

	revoked, err := st.RevokeOtherSessions(ctx, "id-1", "s1", time.Now())
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"s2", "s3"}, revoked)

	kept, err := st.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.Nil(t, kept.RevokedAt)

	foreign, err := st.GetSession(ctx, "other")
	require.NoError(t, err)
	require.Nil(t, foreign.RevokedAt)

	tok, err := st.GetRefreshTokenByHash(ctx, hashOf("tok-s2"))
	require.NoError(t, err)
	require.NotNil(t, tok.RevokedAt)
}

func TestListSessionsFiltersExpired(t *testing.T) {
	st := New()
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, st.CreateSession(ctx, &store.Session{
		ID: "live", IdentityID: "id-1",
		CreatedAt: now, ExpiresAt: now.Add(time.Hour), LastActiveAt: now,
	}))
	require.NoError(t, st.CreateSession(ctx, &store.Session{
		ID: "stale", IdentityID: "id-1",
		CreatedAt: now.Add(-48 * time.Hour), ExpiresAt: now.Add(-time.Hour), LastActiveAt: now,
	}))

	sessions, err := st.ListSessions(ctx, "id-1")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Equal(t, "live", sessions[0].ID)
}

func TestConsumePendingSingleUse(t *testing.T) {
	st := New()
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, st.CreatePendingTwoFactor(ctx, &store.PendingTwoFactor{
		ID: "p1", IdentityID: "id-1",
		CreatedAt: now, ExpiresAt: now.Add(5 * time.Minute),
	}))

	p, err := st.ConsumePendingTwoFactor(ctx, "p1", now)
	require.NoError(t, err)
	require.True(t, p.Verified)

	_, err = st.ConsumePendingTwoFactor(ctx, "p1", now)
	require.ErrorIs(t, err, store.ErrPendingConsumed)
}

func TestConsumePendingConcurrentSingleWinner(t *testing.T) {
	st := New()
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, st.CreatePendingTwoFactor(ctx, &store.PendingTwoFactor{
		ID: "p1", IdentityID: "id-1",
		CreatedAt: now, ExpiresAt: now.Add(5 * time.Minute),
	}))

	const callers = 16
	var wg sync.WaitGroup
	wins := make(chan struct{}, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := st.ConsumePendingTwoFactor(ctx, "p1", now); err == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	count := 0
	for range wins {
		count++
	}
	require.Equal(t, 1, count)
}

func TestConsumePendingExpired(t *testing.T) {
	st := New()
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, st.CreatePendingTwoFactor(ctx, &store.PendingTwoFactor{
		ID: "p1", IdentityID: "id-1",
		CreatedAt: now, ExpiresAt: now.Add(5 * time.Minute),
	}))

	_, err := st.ConsumePendingTwoFactor(ctx, "p1", now.Add(6*time.Minute))
	require.ErrorIs(t, err, store.ErrPendingExpired)
}

func TestDeletePendingMissingIsNoError(t *testing.T) {
	st := New()
	require.NoError(t, st.DeletePendingTwoFactor(context.Background(), "nope"))
}
