package authengine

import (
	"context"
	"time"
)

// AccountStatus is the lifecycle state of an identity. Only AccountActive
// identities may log in; every other status fails with the same opaque
// ErrInvalidCredentials so probing cannot distinguish them.
type AccountStatus uint8

const (
	// AccountActive identities can authenticate.
	AccountActive AccountStatus = iota
	// AccountPendingVerification identities have registered but not yet
	// verified out-of-band.
	AccountPendingVerification
	// AccountDisabled identities were switched off by an operator.
	AccountDisabled
	// AccountLocked identities are temporarily blocked.
	AccountLocked
	// AccountDeleted identities are tombstoned.
	AccountDeleted
)

// Identity is the account record the engine reads from the caller's user
// database. The engine never writes credential fields directly; all
// mutation goes through [IdentityProvider].
type Identity struct {
	ID               string
	Identifier       string
	TenantID         string
	PasswordHash     string
	Role             string
	Status           AccountStatus
	TwoFactorEnabled bool
}

// CreateIdentityInput is the input for [IdentityProvider.Create].
type CreateIdentityInput struct {
	Identifier   string
	PasswordHash string
	Role         string
	TenantID     string
	Status       AccountStatus
}

// SecondFactorRecord carries an identity's TOTP secret and its enrollment
// state. Confirmed flips when the identity proves possession during setup.
type SecondFactorRecord struct {
	Secret    []byte
	Enabled   bool
	Confirmed bool
}

// IdentityProvider is the interface callers implement to connect the engine
// to their user database. Lookup methods return [ErrIdentityNotFound] for
// unknown identities; Create returns [ErrIdentityExists] for duplicate
// identifiers.
type IdentityProvider interface {
	GetByIdentifier(ctx context.Context, identifier string) (Identity, error)
	GetByID(ctx context.Context, id string) (Identity, error)
	Create(ctx context.Context, input CreateIdentityInput) (Identity, error)

	GetSecondFactor(ctx context.Context, identityID string) (*SecondFactorRecord, error)
	SetSecondFactor(ctx context.Context, identityID string, secret []byte) error
	EnableSecondFactor(ctx context.Context, identityID string) error
	DisableSecondFactor(ctx context.Context, identityID string) error
}

// SecondFactorVerifier checks a second-factor code for an identity. The
// default implementation is the engine's TOTP manager; callers can swap in
// SMS or backup-code verification without touching the staging flow.
type SecondFactorVerifier interface {
	Verify(ctx context.Context, identity Identity, code string) (bool, error)
}

// Throttle is the attempt-budget contract. Implementations must share state
// across engine instances (the built-in Redis limiter does); any non-nil
// error from a Check or Record call blocks the operation, so an unavailable
// backend fails closed.
type Throttle interface {
	CheckLogin(ctx context.Context, identifier, ip string) error
	RecordLoginFailure(ctx context.Context, identifier, ip string) error
	ResetLogin(ctx context.Context, identifier, ip string) error
	CheckRefresh(ctx context.Context, tokenKey string) error
	RecordTwoFactorFailure(ctx context.Context, pendingID string) error
}

// LoginResult is returned by [Engine.Login] and
// [Engine.CompleteTwoFactorLogin]. Either the token fields are set, or
// TwoFactorRequired is true and TwoFactorSession carries the pending
// session ID for the stage-two call. Never both.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	SessionID    string

	TwoFactorRequired bool
	TwoFactorSession  string
}

// RegisterRequest is the input for [Engine.Register]. Role defaults to
// [AccountConfig].DefaultRole when empty.
type RegisterRequest struct {
	Identifier string
	Password   string
	Role       string
}

// RegisterResult is returned by [Engine.Register].
type RegisterResult struct {
	IdentityID string
	Role       string
	Status     AccountStatus
}

// AccessIdentity is the result of verifying an access token.
type AccessIdentity struct {
	IdentityID string
	TenantID   string
	Role       string
	SessionID  string
	ExpiresAt  time.Time
}

// SessionInfo is one row of [Engine.ListSessions]: enough for a "your
// devices" view, nothing that could be replayed as a credential.
type SessionInfo struct {
	ID           string
	TenantID     string
	IP           string
	UserAgent    string
	CreatedAt    time.Time
	LastActiveAt time.Time
	ExpiresAt    time.Time
	Revoked      bool
	IsCurrent    bool
}

// TwoFactorSetup holds the provisioning material returned by
// [Engine.GenerateTwoFactorSetup].
type TwoFactorSetup struct {
	SecretBase32 string
	URI          string
}
