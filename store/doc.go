// Package store defines the durable state contract for the engine: sessions,
// refresh tokens, and pending two-factor sessions. The engine's concurrency
// guarantees rest on two conditional updates every implementation must
// honor: RotateRefreshToken succeeds for exactly one caller per token, and
// ConsumePendingTwoFactor flips the verified flag exactly once. See
// store/pg for the PostgreSQL implementation and store/memory for the
// in-process one used by tests.
package store
