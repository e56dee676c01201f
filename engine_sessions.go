package authengine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pulsefit/authengine/store"
)

// Logout revokes the session and every refresh token in its family. The
// caller's access token stays cryptographically valid until it expires;
// only session-bound checks observe the revocation earlier.
func (e *Engine) Logout(ctx context.Context, sessionID string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	sess, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("session lookup: %w", err)
	}

	if err := e.store.RevokeSessionFamily(ctx, sessionID, time.Now().UTC()); err != nil {
		return fmt.Errorf("revoke session family: %w", err)
	}

	e.metricInc(MetricLogout)
	e.metricInc(MetricSessionRevoked)
	e.emitAudit(ctx, auditEventLogout, true, sess.IdentityID, sess.TenantID, sessionID, nil, nil)
	return nil
}

// ListSessions returns the identity's sessions for a "your devices" view,
// newest first. currentSessionID, when non-empty, marks the caller's own
// session in the result; it is display metadata, not authorization.
func (e *Engine) ListSessions(ctx context.Context, identityID, currentSessionID string) ([]SessionInfo, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	sessions, err := e.store.ListSessions(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	out := make([]SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, SessionInfo{
			ID:           sess.ID,
			TenantID:     sess.TenantID,
			IP:           sess.IP,
			UserAgent:    sess.UserAgent,
			CreatedAt:    sess.CreatedAt,
			LastActiveAt: sess.LastActiveAt,
			ExpiresAt:    sess.ExpiresAt,
			Revoked:      sess.Revoked(),
			IsCurrent:    currentSessionID != "" && sess.ID == currentSessionID,
		})
	}
	return out, nil
}

// RevokeSession revokes one of the identity's sessions, cascading to its
// refresh tokens. A session that exists but belongs to another identity
// reports ErrSessionNotFound, indistinguishable from a missing one.
func (e *Engine) RevokeSession(ctx context.Context, identityID, sessionID string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	sess, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("session lookup: %w", err)
	}
	if sess.IdentityID != identityID {
		return ErrSessionNotFound
	}

	if err := e.store.RevokeSessionFamily(ctx, sessionID, time.Now().UTC()); err != nil {
		return fmt.Errorf("revoke session family: %w", err)
	}

	e.metricInc(MetricSessionRevoked)
	e.emitAudit(ctx, auditEventSessionRevoked, true, identityID, sess.TenantID, sessionID, nil, nil)
	return nil
}

// RevokeOtherSessions revokes every session of the identity except the
// caller's own, returning the IDs revoked. currentSessionID is required:
// "log out everywhere else" without knowing where "here" is would revoke
// the caller too.
func (e *Engine) RevokeOtherSessions(ctx context.Context, identityID, currentSessionID string) ([]string, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if currentSessionID == "" {
		return nil, ErrMissingCurrentSession
	}

	revoked, err := e.store.RevokeOtherSessions(ctx, identityID, currentSessionID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("revoke other sessions: %w", err)
	}

	for range revoked {
		e.metricInc(MetricSessionRevoked)
	}
	e.emitAudit(ctx, auditEventSessionsRevoked, true, identityID, "", currentSessionID, nil, func() map[string]string {
		return map[string]string{"revoked_count": fmt.Sprintf("%d", len(revoked))}
	})
	return revoked, nil
}
