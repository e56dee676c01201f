package store

import (
	"context"
	"time"
)

// Session is one authenticated device/login. RevokedAt is monotonic: once
// set it is never cleared.
type Session struct {
	ID           string
	IdentityID   string
	TenantID     string
	Role         string
	IP           string
	UserAgent    string
	CreatedAt    time.Time
	ExpiresAt    time.Time
	LastActiveAt time.Time
	RevokedAt    *time.Time
}

// Revoked reports whether the session has been revoked.
func (s *Session) Revoked() bool {
	return s != nil && s.RevokedAt != nil
}

// RefreshToken is one generation of a session's refresh credential. Rows are
// addressed by the SHA-256 hash of the opaque secret; the secret itself is
// never stored. RotatedAt distinguishes tokens consumed by normal rotation
// from tokens revoked by logout or cascade.
type RefreshToken struct {
	ID         string
	SessionID  string
	IdentityID string
	Hash       [32]byte
	CreatedAt  time.Time
	ExpiresAt  time.Time
	RevokedAt  *time.Time
	RotatedAt  *time.Time
}

// PendingTwoFactor is a stage-one login awaiting a second-factor code. It
// carries no tokens. Verified flips exactly once.
type PendingTwoFactor struct {
	ID         string
	IdentityID string
	TenantID   string
	IP         string
	UserAgent  string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	Verified   bool
}

// SessionStore manages the session registry.
type SessionStore interface {
	// CreateSession persists a new session row.
	CreateSession(ctx context.Context, s *Session) error

	// GetSession returns the session or ErrSessionNotFound.
	GetSession(ctx context.Context, id string) (*Session, error)

	// ListSessions returns every non-expired session for the identity,
	// revoked ones included, newest first.
	ListSessions(ctx context.Context, identityID string) ([]*Session, error)

	// RevokeOtherSessions revokes all of the identity's live sessions
	// except keepID, cascading to their refresh tokens, and returns the
	// IDs revoked. Already-revoked sessions are left untouched.
	RevokeOtherSessions(ctx context.Context, identityID, keepID string, at time.Time) ([]string, error)
}

// RefreshTokenStore manages refresh-token rows and the rotation invariant:
// at most one live token per session.
type RefreshTokenStore interface {
	// InsertRefreshToken persists a new token row.
	InsertRefreshToken(ctx context.Context, t *RefreshToken) error

	// GetRefreshTokenByHash returns the row for a secret hash or
	// ErrTokenNotFound. Used to recover the owning session after a
	// rotation conflict.
	GetRefreshTokenByHash(ctx context.Context, hash [32]byte) (*RefreshToken, error)

	// RotateRefreshToken atomically retires the token addressed by
	// oldHash and persists replacement in its place, bumping the owning
	// session's last-active time. Exactly one concurrent caller can
	// succeed; the rest observe ErrTokenRevoked. Other failures:
	// ErrTokenNotFound for an unknown hash, ErrTokenExpired when the
	// token or its session is past its lifetime (nothing is written),
	// ErrTokenRevoked when the owning session was revoked.
	// On success the owning session is returned.
	RotateRefreshToken(ctx context.Context, oldHash [32]byte, replacement *RefreshToken, now time.Time) (*Session, error)

	// RevokeSessionFamily revokes the session and every refresh token
	// that belongs to it. Idempotent; earlier revocation timestamps are
	// preserved.
	RevokeSessionFamily(ctx context.Context, sessionID string, at time.Time) error
}

// PendingTwoFactorStore manages stage-one login state.
type PendingTwoFactorStore interface {
	// CreatePendingTwoFactor persists a new pending session.
	CreatePendingTwoFactor(ctx context.Context, p *PendingTwoFactor) error

	// GetPendingTwoFactor returns the pending session or
	// ErrPendingNotFound. Expired rows are still returned; the caller
	// decides how to report them.
	GetPendingTwoFactor(ctx context.Context, id string) (*PendingTwoFactor, error)

	// ConsumePendingTwoFactor flips the verified flag if and only if the
	// session exists, is unexpired, and was not consumed before. Exactly
	// one concurrent caller can succeed; the rest observe
	// ErrPendingConsumed. Expired sessions yield ErrPendingExpired.
	ConsumePendingTwoFactor(ctx context.Context, id string, now time.Time) (*PendingTwoFactor, error)

	// DeletePendingTwoFactor removes the row. Missing rows are not an
	// error.
	DeletePendingTwoFactor(ctx context.Context, id string) error
}

// Store is the full persistence contract consumed by the engine.
type Store interface {
	SessionStore
	RefreshTokenStore
	PendingTwoFactorStore
}
