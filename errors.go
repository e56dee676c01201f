package authengine

import "errors"

var (
	// ErrInvalidCredentials is the uniform login failure: unknown
	// identifier, wrong password, and disallowed account status all
	// collapse to it.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTooManyRequests reports an exhausted attempt budget.
	ErrTooManyRequests = errors.New("too many requests")
	// ErrRefreshInvalid is the uniform refresh failure. Unknown, expired,
	// reused, and revoked tokens all surface as this; the distinction
	// lives in audit entries and metrics, not in the API.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrTokenExpired reports an access token past its expiry.
	ErrTokenExpired = errors.New("access token expired")
	// ErrTokenInvalid reports an access token that fails verification for
	// any reason other than expiry.
	ErrTokenInvalid = errors.New("access token invalid")
	// ErrSessionNotFound reports a session that does not exist or does
	// not belong to the given identity.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionRevoked reports a session-bound check against a revoked
	// or expired session.
	ErrSessionRevoked = errors.New("session revoked")
	// ErrMissingCurrentSession reports a revoke-others call without the
	// caller's own session ID.
	ErrMissingCurrentSession = errors.New("current session id required")

	// ErrTwoFactorExpired reports a pending two-factor session that is
	// past its TTL, already consumed, or unknown.
	ErrTwoFactorExpired = errors.New("two-factor session expired")
	// ErrTwoFactorInvalidCode reports a wrong second-factor code. The
	// pending session stays usable until its TTL or attempt budget runs
	// out.
	ErrTwoFactorInvalidCode = errors.New("invalid two-factor code")
	// ErrTwoFactorClientMismatch reports a stage-two call whose client
	// metadata does not match the stage-one login.
	ErrTwoFactorClientMismatch = errors.New("two-factor client mismatch")
	// ErrTwoFactorNotEnrolled reports a setup confirmation without a
	// staged secret.
	ErrTwoFactorNotEnrolled = errors.New("two-factor not enrolled")

	// ErrIdentityNotFound is the provider contract for unknown lookups.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrIdentityExists is the provider contract for duplicate
	// identifiers on Create.
	ErrIdentityExists = errors.New("identity already exists")
	// ErrRegistrationInvalid reports a malformed registration request.
	ErrRegistrationInvalid = errors.New("invalid registration request")

	// ErrEngineNotReady reports use of an engine that was not built.
	ErrEngineNotReady = errors.New("engine not initialized")
)
