package jwt

import "encoding/base64"

// JWK is a single JSON Web Key. Only the OKP/Ed25519 fields this engine
// publishes are modeled.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use,omitempty"`
	Alg string `json:"alg,omitempty"`
	KID string `json:"kid,omitempty"`
	Crv string `json:"crv,omitempty"`
	X   string `json:"x,omitempty"`
}

// JWKS is the key set document served to resource servers so they can
// verify access tokens without calling back into the engine.
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWKS returns the manager's verification key as a one-key set.
func (m *Manager) JWKS() JWKS {
	return JWKS{
		Keys: []JWK{
			{
				Kty: "OKP",
				Use: "sig",
				Alg: "EdDSA",
				KID: m.keyID,
				Crv: "Ed25519",
				X:   base64.RawURLEncoding.EncodeToString(m.verifyKey),
			},
		},
	}
}
