package authengine

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Register creates a new identity with an argon2id-hashed password. Role
// defaults to the configured default; status comes from configuration so
// deployments can require out-of-band verification before first login.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" {
		return nil, ErrRegistrationInvalid
	}

	role := req.Role
	if role == "" {
		role = e.config.Account.DefaultRole
	}

	hash, err := e.hasher.Hash(req.Password)
	if err != nil {
		e.metricInc(MetricRegisterFailure)
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", "", "", ErrRegistrationInvalid, func() map[string]string {
			return map[string]string{"identifier": identifier, "reason": "password_policy"}
		})
		return nil, fmt.Errorf("%w: %v", ErrRegistrationInvalid, err)
	}

	identity, err := e.provider.Create(ctx, CreateIdentityInput{
		Identifier:   identifier,
		PasswordHash: hash,
		Role:         role,
		TenantID:     tenantIDFromContext(ctx),
		Status:       e.config.Account.DefaultStatus,
	})
	if err != nil {
		e.metricInc(MetricRegisterFailure)
		if errors.Is(err, ErrIdentityExists) {
			e.emitAudit(ctx, auditEventRegisterFailure, false, "", "", "", ErrIdentityExists, func() map[string]string {
				return map[string]string{"identifier": identifier, "reason": "duplicate"}
			})
			return nil, ErrIdentityExists
		}
		return nil, fmt.Errorf("create identity: %w", err)
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, identity.ID, identity.TenantID, "", nil, nil)

	return &RegisterResult{
		IdentityID: identity.ID,
		Role:       identity.Role,
		Status:     identity.Status,
	}, nil
}
