package authengine

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventLoginSuccess       = "login_success"
	auditEventLoginFailure       = "login_failure"
	auditEventLoginThrottled     = "login_throttled"
	auditEventTwoFactorRequired  = "two_factor_required"
	auditEventTwoFactorSuccess   = "two_factor_success"
	auditEventTwoFactorFailure   = "two_factor_failure"
	auditEventTwoFactorReplay    = "two_factor_replay"
	auditEventTwoFactorEnrolled  = "two_factor_enrolled"
	auditEventTwoFactorDisabled  = "two_factor_disabled"
	auditEventRefreshSuccess     = "refresh_success"
	auditEventRefreshInvalid     = "refresh_invalid"
	auditEventRefreshReuse       = "refresh_reuse_detected"
	auditEventRefreshThrottled   = "refresh_throttled"
	auditEventLogout             = "logout"
	auditEventSessionRevoked     = "session_revoked"
	auditEventSessionsRevoked    = "sessions_revoked_others"
	auditEventRegisterSuccess    = "register_success"
	auditEventRegisterFailure    = "register_failure"
)

// auditErrorCode maps engine errors to the stable code strings recorded in
// audit entries.
func auditErrorCode(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrTooManyRequests):
		return "too_many_requests"
	case errors.Is(err, ErrRefreshInvalid):
		return "refresh_invalid"
	case errors.Is(err, ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, ErrTokenInvalid):
		return "token_invalid"
	case errors.Is(err, ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, ErrSessionRevoked):
		return "session_revoked"
	case errors.Is(err, ErrMissingCurrentSession):
		return "missing_current_session"
	case errors.Is(err, ErrTwoFactorExpired):
		return "two_factor_expired"
	case errors.Is(err, ErrTwoFactorInvalidCode):
		return "two_factor_invalid_code"
	case errors.Is(err, ErrTwoFactorClientMismatch):
		return "two_factor_client_mismatch"
	case errors.Is(err, ErrTwoFactorNotEnrolled):
		return "two_factor_not_enrolled"
	case errors.Is(err, ErrIdentityExists):
		return "identity_exists"
	case errors.Is(err, ErrRegistrationInvalid):
		return "registration_invalid"
	default:
		return "internal_error"
	}
}

// emitAudit queues one audit event. Metadata is built through a closure so
// a disabled dispatcher pays nothing for it.
func (e *Engine) emitAudit(
	ctx context.Context,
	action string,
	success bool,
	identityID string,
	tenantID string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}
	if tenantID == "" {
		tenantID = tenantIDFromContext(ctx)
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp:  time.Now().UTC(),
		Action:     action,
		IdentityID: identityID,
		TenantID:   tenantID,
		SessionID:  sessionID,
		IP:         clientIPFromContext(ctx),
		Success:    success,
		Metadata:   metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = code
	}

	e.audit.Emit(ctx, event)
}
