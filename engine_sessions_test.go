package authengine

import (
	"context"
	"errors"
	"testing"
)

func TestLogoutRevokesSessionAndTokens(t *testing.T) {
	provider := newFakeProvider()
	engine := newTestEngine(t, testConfig(), provider)
	seedIdentity(t, engine, "alice", "correct-password-123")
	login := mustLogin(t, engine, "alice", "correct-password-123")

	if err := engine.Logout(context.Background(), login.SessionID); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	// The refresh token died with the session.
	if _, err := engine.Refresh(context.Background(), login.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected ErrRefreshInvalid after logout, got %v", err)
	}
	// Logging out twice is not an error worth hiding from the caller.
	if err := engine.Logout(context.Background(), login.SessionID); err != nil {
		t.Fatalf("repeated Logout failed: %v", err)
	}
}

func TestLogoutUnknownSession(t *testing.T) {
	provider := newFakeProvider()
	engine := newTestEngine(t, testConfig(), provider)

	if err := engine.Logout(context.Background(), "no-such-session"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestListSessionsMarksCurrent(t *testing.T) {
	provider := newFakeProvider()
	engine := newTestEngine(t, testConfig(), provider)
	identity := seedIdentity(t, engine, "alice", "correct-password-123")

	first := mustLogin(t, engine, "alice", "correct-password-123")
	second := mustLogin(t, engine, "alice", "correct-password-123")

	sessions, err := engine.ListSessions(context.Background(), identity.ID, second.SessionID)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected two sessions, got %d", len(sessions))
	}

	var current, other int
	for _, s := range sessions {
		if s.IsCurrent {
			current++
			if s.ID != second.SessionID {
				t.Fatalf("wrong session marked current: %q", s.ID)
			}
		} else {
			other++
			if s.ID != first.SessionID {
				t.Fatalf("unexpected session in list: %q", s.ID)
			}
		}
	}
	if current != 1 || other != 1 {
		t.Fatalf("expected one current and one other session, got %d/%d", current, other)
	}
}

func TestRevokeSessionRequiresOwnership(t *testing.T) {
	provider := newFakeProvider()
	engine := newTestEngine(t, testConfig(), provider)
	seedIdentity(t, engine, "alice", "correct-password-123")
	mallory := seedIdentity(t, engine, "mallory", "another-password-789")

	login := mustLogin(t, engine, "alice", "correct-password-123")

	// Another identity revoking alice's session looks like a miss.
	if err := engine.RevokeSession(context.Background(), mallory.ID, login.SessionID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound for foreign session, got %v", err)
	}
	// The session is still alive.
	if _, err := engine.Refresh(context.Background(), login.RefreshToken); err != nil {
		t.Fatalf("expected session to survive foreign revoke, got %v", err)
	}
}

func TestRevokeSessionByOwner(t *testing.T) {
	provider := newFakeProvider()
	engine := newTestEngine(t, testConfig(), provider)
	identity := seedIdentity(t, engine, "alice", "correct-password-123")
	login := mustLogin(t, engine, "alice", "correct-password-123")

	if err := engine.RevokeSession(context.Background(), identity.ID, login.SessionID); err != nil {
		t.Fatalf("RevokeSession failed: %v", err)
	}
	if _, err := engine.Refresh(context.Background(), login.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected ErrRefreshInvalid after revoke, got %v", err)
	}
}

func TestRevokeOtherSessionsKeepsCurrent(t *testing.T) {
	provider := newFakeProvider()
	engine := newTestEngine(t, testConfig(), provider)
	identity := seedIdentity(t, engine, "alice", "correct-password-123")

	first := mustLogin(t, engine, "alice", "correct-password-123")
	second := mustLogin(t, engine, "alice", "correct-password-123")
	current := mustLogin(t, engine, "alice", "correct-password-123")

	revoked, err := engine.RevokeOtherSessions(context.Background(), identity.ID, current.SessionID)
	if err != nil {
		t.Fatalf("RevokeOtherSessions failed: %v", err)
	}
	if len(revoked) != 2 {
		t.Fatalf("expected two revoked sessions, got %v", revoked)
	}

	if _, err := engine.Refresh(context.Background(), first.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected first session dead, got %v", err)
	}
	if _, err := engine.Refresh(context.Background(), second.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected second session dead, got %v", err)
	}
	if _, err := engine.Refresh(context.Background(), current.RefreshToken); err != nil {
		t.Fatalf("expected current session to survive, got %v", err)
	}
}

func TestRevokeOtherSessionsRequiresCurrent(t *testing.T) {
	provider := newFakeProvider()
	engine := newTestEngine(t, testConfig(), provider)
	identity := seedIdentity(t, engine, "alice", "correct-password-123")

	if _, err := engine.RevokeOtherSessions(context.Background(), identity.ID, ""); !errors.Is(err, ErrMissingCurrentSession) {
		t.Fatalf("expected ErrMissingCurrentSession, got %v", err)
	}
}
