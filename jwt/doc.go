// Package jwt issues and verifies the engine's ed25519-signed access tokens
// and publishes the verification key as a JWKS document. Verification is
// purely local: signature, expiry, and issuer/audience checks with a small
// clock-skew leeway, no store round-trip.
package jwt
