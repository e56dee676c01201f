package authengine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pulsefit/authengine/internal"
	jwtmanager "github.com/pulsefit/authengine/jwt"
	"github.com/pulsefit/authengine/password"
	"github.com/pulsefit/authengine/store"
)

// Engine orchestrates the session and token lifecycle. Construct it with
// [Builder.Build]; all methods are then safe for concurrent use.
type Engine struct {
	config       Config
	store        store.Store
	provider     IdentityProvider
	throttle     Throttle
	secondFactor SecondFactorVerifier
	totp         *totpManager
	tokens       *jwtmanager.Manager
	hasher       *password.Hasher
	dummyHash    string
	metrics      *Metrics
	audit        *auditDispatcher
	log          *zap.Logger
}

// Close flushes and stops the audit dispatcher. The engine must not be
// used after Close.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// MetricsSnapshot returns a point-in-time copy of the engine's counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}, Histograms: map[MetricID][]uint64{}}
	}
	return e.metrics.Snapshot()
}

// AuditDropped returns the number of audit events shed under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// KeySet returns the JWKS document for the active signing key, for serving
// to resource servers.
func (e *Engine) KeySet() jwtmanager.JWKS {
	return e.tokens.JWKS()
}

func (e *Engine) metricInc(id MetricID) {
	e.metrics.Inc(id)
}

// Login verifies credentials and either issues a token pair or, for
// identities with a second factor enabled, opens a pending two-factor
// session and returns its ID without any tokens.
//
// All credential failures surface as ErrInvalidCredentials: unknown
// identifier, wrong password, and non-active account status are
// indistinguishable to the caller, and the unknown-identifier path burns a
// hash comparison so timing does not give it away either.
func (e *Engine) Login(ctx context.Context, identifier, passwd string) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	ip := clientIPFromContext(ctx)

	if e.throttle != nil {
		if err := e.throttle.CheckLogin(ctx, identifier, ip); err != nil {
			e.metricInc(MetricLoginThrottled)
			e.emitAudit(ctx, auditEventLoginThrottled, false, "", "", "", ErrTooManyRequests, func() map[string]string {
				return map[string]string{"identifier": identifier}
			})
			return nil, ErrTooManyRequests
		}
	}

	identity, err := e.provider.GetByIdentifier(ctx, identifier)
	if err != nil {
		if !errors.Is(err, ErrIdentityNotFound) {
			return nil, fmt.Errorf("identity lookup: %w", err)
		}
		// Unknown identifier: verify against the startup dummy hash so
		// this path costs the same as a real comparison.
		_, _ = e.hasher.Verify(passwd, e.dummyHash)
		return nil, e.failLogin(ctx, identifier, ip, "unknown_identifier")
	}

	ok, err := e.hasher.Verify(passwd, identity.PasswordHash)
	if err != nil {
		e.log.Warn("stored password hash unreadable", zap.String("identity", identity.ID))
		return nil, e.failLogin(ctx, identifier, ip, "bad_hash")
	}
	if !ok {
		return nil, e.failLogin(ctx, identifier, ip, "wrong_password")
	}

	if identity.Status != AccountActive {
		return nil, e.failLogin(ctx, identifier, ip, "status_disallowed")
	}

	if e.throttle != nil {
		if err := e.throttle.ResetLogin(ctx, identifier, ip); err != nil {
			e.log.Warn("login throttle reset failed", zap.Error(err))
		}
	}

	if identity.TwoFactorEnabled {
		return e.beginTwoFactorLogin(ctx, identity)
	}

	result, err := e.issueSessionTokens(ctx, identity)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, identity.ID, identity.TenantID, result.SessionID, nil, nil)
	return result, nil
}

// failLogin records a failed attempt and returns the uniform error. The
// real reason goes to audit metadata only.
func (e *Engine) failLogin(ctx context.Context, identifier, ip, reason string) error {
	if e.throttle != nil {
		if err := e.throttle.RecordLoginFailure(ctx, identifier, ip); err != nil {
			// This failure exhausted the budget; report the throttle, not
			// the credential outcome.
			e.metricInc(MetricLoginThrottled)
			e.emitAudit(ctx, auditEventLoginThrottled, false, "", "", "", ErrTooManyRequests, func() map[string]string {
				return map[string]string{"identifier": identifier, "reason": reason}
			})
			return ErrTooManyRequests
		}
	}

	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, "", "", "", ErrInvalidCredentials, func() map[string]string {
		return map[string]string{
			"identifier": identifier,
			"reason":     reason,
		}
	})
	return ErrInvalidCredentials
}

// issueSessionTokens creates the session row, its first refresh token, and
// a signed access token. Called after full authentication: password-only
// logins, completed two-factor logins, nowhere else.
func (e *Engine) issueSessionTokens(ctx context.Context, identity Identity) (*LoginResult, error) {
	sessionID, err := internal.NewID()
	if err != nil {
		return nil, fmt.Errorf("session id: %w", err)
	}

	tenantID := identity.TenantID
	if tenantID == "" {
		tenantID = tenantIDFromContext(ctx)
	}

	now := time.Now().UTC()
	sess := &store.Session{
		ID:           sessionID,
		IdentityID:   identity.ID,
		TenantID:     tenantID,
		Role:         identity.Role,
		IP:           clientIPFromContext(ctx),
		UserAgent:    userAgentFromContext(ctx),
		CreatedAt:    now,
		ExpiresAt:    now.Add(e.config.Session.Lifetime),
		LastActiveAt: now,
	}
	if err := e.store.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	secret, err := internal.NewRefreshSecret()
	if err != nil {
		return nil, fmt.Errorf("refresh secret: %w", err)
	}
	token := &store.RefreshToken{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		IdentityID: identity.ID,
		Hash:       internal.HashRefreshSecret(secret),
		CreatedAt:  now,
		ExpiresAt:  refreshExpiry(now, e.config.Session.RefreshTTL, sess.ExpiresAt),
	}
	if err := e.store.InsertRefreshToken(ctx, token); err != nil {
		return nil, fmt.Errorf("insert refresh token: %w", err)
	}

	access, err := e.tokens.CreateAccess(identity.ID, tenantID, identity.Role, sessionID, now)
	if err != nil {
		// The session row exists but the caller never saw a credential
		// for it; retire it rather than leave an orphan.
		if rerr := e.store.RevokeSessionFamily(ctx, sessionID, now); rerr != nil {
			e.log.Warn("orphan session cleanup failed", zap.String("session", sessionID), zap.Error(rerr))
		}
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	e.metricInc(MetricSessionCreated)

	return &LoginResult{
		AccessToken:  access,
		RefreshToken: internal.EncodeRefreshToken(secret),
		SessionID:    sessionID,
	}, nil
}

// refreshExpiry caps a refresh token's sliding lifetime at the session's
// absolute expiry.
func refreshExpiry(now time.Time, ttl time.Duration, sessionExpiry time.Time) time.Time {
	expiry := now.Add(ttl)
	if expiry.After(sessionExpiry) {
		return sessionExpiry
	}
	return expiry
}
