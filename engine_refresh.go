package authengine

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pulsefit/authengine/internal"
	jwtmanager "github.com/pulsefit/authengine/jwt"
	"github.com/pulsefit/authengine/store"
)

// Refresh rotates a refresh token: the presented token is retired and a
// new pair is issued atomically, so at most one live refresh token exists
// per session at any time.
//
// Presenting an already-rotated or revoked token is treated as theft
// evidence: the whole session family is revoked before the error returns,
// cutting off both the attacker and the legitimate holder. Expired tokens
// are an ordinary failure and trigger no revocation. All failure shapes
// surface as the single ErrRefreshInvalid (or ErrTooManyRequests); the
// distinction is recorded in audit metadata and metrics only.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	secret, err := internal.DecodeRefreshToken(refreshToken)
	if err != nil {
		return nil, e.failRefresh(ctx, "", "", "malformed")
	}
	oldHash := internal.HashRefreshSecret(secret)

	// Throttle key is derived from the token hash: usable before we know
	// whether the token exists, and shared by retries of the same token.
	throttleKey := hex.EncodeToString(oldHash[:8])
	if e.throttle != nil {
		if err := e.throttle.CheckRefresh(ctx, throttleKey); err != nil {
			e.metricInc(MetricRefreshThrottled)
			e.emitAudit(ctx, auditEventRefreshThrottled, false, "", "", "", ErrTooManyRequests, nil)
			return nil, ErrTooManyRequests
		}
	}

	now := time.Now().UTC()
	newSecret, err := internal.NewRefreshSecret()
	if err != nil {
		return nil, fmt.Errorf("refresh secret: %w", err)
	}

	replacement := &store.RefreshToken{
		ID:        uuid.NewString(),
		Hash:      internal.HashRefreshSecret(newSecret),
		CreatedAt: now,
	}

	sess, err := e.rotate(ctx, oldHash, replacement, now)
	if err != nil {
		return nil, err
	}

	access, err := e.tokens.CreateAccess(sess.IdentityID, sess.TenantID, sess.Role, sess.ID, now)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, sess.IdentityID, sess.TenantID, sess.ID, nil, nil)

	return &LoginResult{
		AccessToken:  access,
		RefreshToken: internal.EncodeRefreshToken(newSecret),
		SessionID:    sess.ID,
	}, nil
}

// rotate runs the store rotation and maps its tagged failures to the
// public error, revoking the session family on reuse.
func (e *Engine) rotate(ctx context.Context, oldHash [32]byte, replacement *store.RefreshToken, now time.Time) (*store.Session, error) {
	// The replacement's session fields are only known after the old row
	// resolves; fill what we can and let the store bind the rest from
	// the old row's session inside the rotation transaction.
	old, err := e.store.GetRefreshTokenByHash(ctx, oldHash)
	if err != nil {
		if errors.Is(err, store.ErrTokenNotFound) {
			return nil, e.failRefresh(ctx, "", "", "unknown")
		}
		return nil, fmt.Errorf("refresh lookup: %w", err)
	}

	replacement.SessionID = old.SessionID
	replacement.IdentityID = old.IdentityID
	replacement.ExpiresAt = now.Add(e.config.Session.RefreshTTL)

	// The sliding per-token TTL can nominally pass the session's absolute
	// expiry; rotation checks the session's lifetime on every use, so the
	// session cap still holds.
	sess, err := e.store.RotateRefreshToken(ctx, oldHash, replacement, now)
	if err == nil {
		return sess, nil
	}

	switch {
	case errors.Is(err, store.ErrTokenRevoked):
		return nil, e.handleRefreshReuse(ctx, old)
	case errors.Is(err, store.ErrTokenExpired):
		return nil, e.failRefresh(ctx, old.IdentityID, old.SessionID, "expired")
	case errors.Is(err, store.ErrTokenNotFound):
		return nil, e.failRefresh(ctx, "", "", "unknown")
	default:
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}
}

// handleRefreshReuse revokes the session family of a reused token. The
// revocation is idempotent, so losing a race against another reuse handler
// or an explicit logout is harmless.
func (e *Engine) handleRefreshReuse(ctx context.Context, old *store.RefreshToken) error {
	if err := e.store.RevokeSessionFamily(ctx, old.SessionID, time.Now().UTC()); err != nil &&
		!errors.Is(err, store.ErrSessionNotFound) {
		return fmt.Errorf("revoke session family: %w", err)
	}

	e.metricInc(MetricRefreshReuse)
	e.metricInc(MetricSessionRevoked)
	e.emitAudit(ctx, auditEventRefreshReuse, false, old.IdentityID, "", old.SessionID, ErrRefreshInvalid, func() map[string]string {
		return map[string]string{"reason": "reuse", "token_id": old.ID}
	})
	return ErrRefreshInvalid
}

// failRefresh records a non-reuse refresh failure. reason is internal
// detail for audit and never part of the returned error.
func (e *Engine) failRefresh(ctx context.Context, identityID, sessionID, reason string) error {
	e.metricInc(MetricRefreshFailure)
	e.emitAudit(ctx, auditEventRefreshInvalid, false, identityID, "", sessionID, ErrRefreshInvalid, func() map[string]string {
		return map[string]string{"reason": reason}
	})
	return ErrRefreshInvalid
}

// VerifyAccess checks an access token's signature and expiry locally and
// returns the embedded identity. No store round-trip: revocation is only
// observed at refresh time or by VerifyAccessSessionBound.
func (e *Engine) VerifyAccess(ctx context.Context, accessToken string) (*AccessIdentity, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	_ = ctx

	start := time.Now()
	claims, err := e.tokens.ParseAccess(accessToken)
	e.metrics.Observe(MetricVerifyLatency, time.Since(start))

	if err != nil {
		if errors.Is(err, jwtmanager.ErrExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	return &AccessIdentity{
		IdentityID: claims.Subject,
		TenantID:   claims.TID,
		Role:       claims.Role,
		SessionID:  claims.SID,
		ExpiresAt:  claims.ExpiresAt.Time,
	}, nil
}

// VerifyAccessSessionBound verifies the token and additionally checks the
// session registry, rejecting tokens whose session was revoked or expired.
// For sensitive operations that cannot tolerate the stateless window.
func (e *Engine) VerifyAccessSessionBound(ctx context.Context, accessToken string) (*AccessIdentity, error) {
	id, err := e.VerifyAccess(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	sess, err := e.store.GetSession(ctx, id.SessionID)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return nil, ErrSessionRevoked
		}
		return nil, fmt.Errorf("session lookup: %w", err)
	}
	if sess.Revoked() || time.Now().After(sess.ExpiresAt) {
		return nil, ErrSessionRevoked
	}

	return id, nil
}
