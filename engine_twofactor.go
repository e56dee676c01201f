package authengine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pulsefit/authengine/internal"
	"github.com/pulsefit/authengine/store"
)

// beginTwoFactorLogin opens stage one of a two-stage login: password
// already verified, no tokens issued. The pending session binds the client
// metadata it was opened with.
func (e *Engine) beginTwoFactorLogin(ctx context.Context, identity Identity) (*LoginResult, error) {
	pendingID, err := internal.NewID()
	if err != nil {
		return nil, fmt.Errorf("pending id: %w", err)
	}

	tenantID := identity.TenantID
	if tenantID == "" {
		tenantID = tenantIDFromContext(ctx)
	}

	now := time.Now().UTC()
	pending := &store.PendingTwoFactor{
		ID:         pendingID,
		IdentityID: identity.ID,
		TenantID:   tenantID,
		IP:         clientIPFromContext(ctx),
		UserAgent:  userAgentFromContext(ctx),
		CreatedAt:  now,
		ExpiresAt:  now.Add(e.config.TwoFactor.PendingTTL),
	}
	if err := e.store.CreatePendingTwoFactor(ctx, pending); err != nil {
		return nil, fmt.Errorf("create pending two-factor: %w", err)
	}

	e.metricInc(MetricTwoFactorRequired)
	e.emitAudit(ctx, auditEventTwoFactorRequired, true, identity.ID, tenantID, "", nil, func() map[string]string {
		return map[string]string{"pending_id": pendingID}
	})

	return &LoginResult{
		TwoFactorRequired: true,
		TwoFactorSession:  pendingID,
	}, nil
}

// CompleteTwoFactorLogin finishes a staged login. A correct code consumes
// the pending session (single use, enforced by the store's conditional
// update) and issues the token pair. A wrong code leaves the pending
// session intact so the user can retry until the TTL or the attempt budget
// runs out. Unknown, expired, and already-consumed pending sessions all
// report ErrTwoFactorExpired.
func (e *Engine) CompleteTwoFactorLogin(ctx context.Context, pendingID, code string) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	now := time.Now().UTC()

	pending, err := e.store.GetPendingTwoFactor(ctx, pendingID)
	if err != nil {
		if errors.Is(err, store.ErrPendingNotFound) {
			e.failTwoFactor(ctx, pendingID, "", ErrTwoFactorExpired)
			return nil, ErrTwoFactorExpired
		}
		return nil, fmt.Errorf("pending lookup: %w", err)
	}
	if now.After(pending.ExpiresAt) {
		e.failTwoFactor(ctx, pendingID, pending.IdentityID, ErrTwoFactorExpired)
		return nil, ErrTwoFactorExpired
	}

	if e.config.TwoFactor.BindClientMetadata {
		if err := matchClientMetadata(ctx, pending); err != nil {
			e.failTwoFactor(ctx, pendingID, pending.IdentityID, err)
			return nil, err
		}
	}

	identity, err := e.provider.GetByID(ctx, pending.IdentityID)
	if err != nil {
		return nil, fmt.Errorf("identity lookup: %w", err)
	}
	// Status may have changed between the stages.
	if identity.Status != AccountActive {
		e.failTwoFactor(ctx, pendingID, identity.ID, ErrTwoFactorExpired)
		return nil, ErrTwoFactorExpired
	}

	ok, err := e.secondFactor.Verify(ctx, identity, code)
	if err != nil {
		return nil, fmt.Errorf("second factor: %w", err)
	}
	if !ok {
		if e.throttle != nil {
			if terr := e.throttle.RecordTwoFactorFailure(ctx, pendingID); terr != nil {
				e.failTwoFactor(ctx, pendingID, identity.ID, ErrTooManyRequests)
				return nil, ErrTooManyRequests
			}
		}
		e.failTwoFactor(ctx, pendingID, identity.ID, ErrTwoFactorInvalidCode)
		return nil, ErrTwoFactorInvalidCode
	}

	// Code accepted; now take the single-use slot. Losing here means a
	// parallel call with the same code won the race.
	if _, err := e.store.ConsumePendingTwoFactor(ctx, pendingID, now); err != nil {
		switch {
		case errors.Is(err, store.ErrPendingConsumed):
			e.metricInc(MetricTwoFactorReplay)
			e.emitAudit(ctx, auditEventTwoFactorReplay, false, identity.ID, identity.TenantID, "", ErrTwoFactorExpired, nil)
			return nil, ErrTwoFactorExpired
		case errors.Is(err, store.ErrPendingExpired), errors.Is(err, store.ErrPendingNotFound):
			e.failTwoFactor(ctx, pendingID, identity.ID, ErrTwoFactorExpired)
			return nil, ErrTwoFactorExpired
		default:
			return nil, fmt.Errorf("consume pending: %w", err)
		}
	}

	result, err := e.issueSessionTokens(ctx, identity)
	if err != nil {
		return nil, err
	}

	// Consumed and completed; the row is now noise.
	if err := e.store.DeletePendingTwoFactor(ctx, pendingID); err != nil {
		e.log.Warn("pending two-factor cleanup failed", zap.String("pending", pendingID), zap.Error(err))
	}

	e.metricInc(MetricTwoFactorSuccess)
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventTwoFactorSuccess, true, identity.ID, identity.TenantID, result.SessionID, nil, nil)
	return result, nil
}

func (e *Engine) failTwoFactor(ctx context.Context, pendingID, identityID string, cause error) {
	e.metricInc(MetricTwoFactorFailure)
	e.emitAudit(ctx, auditEventTwoFactorFailure, false, identityID, "", "", cause, func() map[string]string {
		return map[string]string{"pending_id": pendingID}
	})
}

func matchClientMetadata(ctx context.Context, pending *store.PendingTwoFactor) error {
	// Binding is only enforced for fields that were present at stage one.
	if pending.IP != "" && pending.IP != clientIPFromContext(ctx) {
		return ErrTwoFactorClientMismatch
	}
	if pending.UserAgent != "" && pending.UserAgent != userAgentFromContext(ctx) {
		return ErrTwoFactorClientMismatch
	}
	return nil
}

// GenerateTwoFactorSetup provisions a TOTP secret for the identity and
// stages it with the provider. The identity's two-factor flag only flips
// after ConfirmTwoFactorSetup proves possession.
func (e *Engine) GenerateTwoFactorSetup(ctx context.Context, identityID string) (*TwoFactorSetup, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	identity, err := e.provider.GetByID(ctx, identityID)
	if err != nil {
		return nil, err
	}

	secret, secretBase32, err := e.totp.GenerateSecret()
	if err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}
	if err := e.provider.SetSecondFactor(ctx, identity.ID, secret); err != nil {
		return nil, fmt.Errorf("stage secret: %w", err)
	}

	return &TwoFactorSetup{
		SecretBase32: secretBase32,
		URI:          e.totp.ProvisionURI(secretBase32, identity.Identifier),
	}, nil
}

// ConfirmTwoFactorSetup verifies a code against the staged secret and
// enables the second factor for the identity.
func (e *Engine) ConfirmTwoFactorSetup(ctx context.Context, identityID, code string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	rec, err := e.provider.GetSecondFactor(ctx, identityID)
	if err != nil {
		return err
	}
	if rec == nil || len(rec.Secret) == 0 {
		return ErrTwoFactorNotEnrolled
	}

	ok, err := e.totp.VerifyCode(rec.Secret, code, time.Now())
	if err != nil {
		return fmt.Errorf("verify code: %w", err)
	}
	if !ok {
		return ErrTwoFactorInvalidCode
	}

	if err := e.provider.EnableSecondFactor(ctx, identityID); err != nil {
		return fmt.Errorf("enable second factor: %w", err)
	}

	e.emitAudit(ctx, auditEventTwoFactorEnrolled, true, identityID, "", "", nil, nil)
	return nil
}

// DisableTwoFactor turns the second factor off for the identity. The
// caller is responsible for re-authenticating the user first.
func (e *Engine) DisableTwoFactor(ctx context.Context, identityID string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	if err := e.provider.DisableSecondFactor(ctx, identityID); err != nil {
		return err
	}

	e.emitAudit(ctx, auditEventTwoFactorDisabled, true, identityID, "", "", nil, nil)
	return nil
}
