package store

import "errors"

var (
	// ErrSessionNotFound reports an unknown session ID.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTokenNotFound reports a refresh-token hash with no row.
	ErrTokenNotFound = errors.New("refresh token not found")
	// ErrTokenRevoked reports a refresh token that was already rotated or
	// revoked. During rotation this is the reuse signal: some earlier call
	// already consumed the token.
	ErrTokenRevoked = errors.New("refresh token revoked")
	// ErrTokenExpired reports a refresh token (or its session) past its
	// lifetime. Ordinary expiry, not an attack signal.
	ErrTokenExpired = errors.New("refresh token expired")
	// ErrPendingNotFound reports an unknown pending two-factor session ID.
	ErrPendingNotFound = errors.New("pending two-factor session not found")
	// ErrPendingExpired reports a pending two-factor session past its TTL.
	ErrPendingExpired = errors.New("pending two-factor session expired")
	// ErrPendingConsumed reports a pending two-factor session whose
	// verified flag was already flipped by another call.
	ErrPendingConsumed = errors.New("pending two-factor session already consumed")
)
