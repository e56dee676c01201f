// Package authengine implements the session and token lifecycle core of a
// multi-tenant authentication service: credential verification, issuance of
// short-lived signed access tokens and long-lived opaque refresh tokens,
// atomic refresh-token rotation with reuse (theft) detection, session
// enumeration and revocation, and a two-stage login flow for identities with
// a second factor enabled.
//
// The package is an embeddable library, not a service. HTTP routing, cookie
// delivery, email, and rate-limit policy beyond the [Throttle] contract are
// the caller's responsibility. All durable state lives in an injected
// [store.Store] implementation (see store/pg for the PostgreSQL adapter); the
// engine keeps no in-process session state, so any number of instances can
// serve the same deployment concurrently.
//
// # Architecture boundaries
//
// authengine is the public surface. It exposes [Engine], [Builder], [Config],
// the collaborator interfaces ([IdentityProvider], [SecondFactorVerifier],
// [Throttle], [AuditSink]) and value types (LoginResult, SessionInfo,
// MetricsSnapshot). Token encoding, rate limiting, and randomness live under
// internal/ and are never exported.
//
// # Concurrency contract
//
// Engine methods are safe to call from multiple goroutines after
// [Builder.Build]. Correctness of refresh rotation and two-factor completion
// under concurrent calls is delegated to the store's conditional updates:
// the engine never relies on in-process locks for cross-instance invariants.
package authengine
