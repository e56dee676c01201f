// Package rate implements the Redis-backed throttle used by the engine for
// login, refresh, and two-factor attempt budgets. Counters are fixed-window:
// the TTL is set on the first hit and the window resets when it expires.
// State lives in Redis so every engine instance in a deployment observes the
// same budgets.
package rate
