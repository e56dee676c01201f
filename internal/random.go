package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

const (
	idSize            = 16
	refreshSecretSize = 48
)

// ErrMalformedToken is returned by DecodeRefreshToken for input that is not
// a well-formed opaque refresh token. Callers map it to their public error.
var ErrMalformedToken = errors.New("malformed token")

// NewID returns a 128-bit random identifier encoded as unpadded base64url.
// Used for session IDs and pending two-factor session IDs.
func NewID() (string, error) {
	var raw [idSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// NewRefreshSecret returns a fresh opaque refresh secret. The secret itself
// is the whole client-visible token; the server persists only its hash.
func NewRefreshSecret() ([refreshSecretSize]byte, error) {
	var secret [refreshSecretSize]byte
	_, err := rand.Read(secret[:])
	return secret, err
}

// HashRefreshSecret derives the storage key for a refresh secret. Rows are
// addressed by this hash, so a database leak never exposes usable tokens.
func HashRefreshSecret(secret [refreshSecretSize]byte) [32]byte {
	return sha256.Sum256(secret[:])
}

// EncodeRefreshToken renders the secret in the wire form handed to clients:
// unpadded base64url over the raw secret bytes.
func EncodeRefreshToken(secret [refreshSecretSize]byte) string {
	return base64.RawURLEncoding.EncodeToString(secret[:])
}

// DecodeRefreshToken reverses EncodeRefreshToken. Any malformed input,
// wrong length included, yields ErrMalformedToken without further detail.
func DecodeRefreshToken(token string) ([refreshSecretSize]byte, error) {
	var secret [refreshSecretSize]byte

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return secret, ErrMalformedToken
	}
	if len(raw) != refreshSecretSize {
		return secret, ErrMalformedToken
	}

	copy(secret[:], raw)
	return secret, nil
}
