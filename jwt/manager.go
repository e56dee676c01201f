package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrExpired marks a structurally valid token past its expiry.
	ErrExpired = errors.New("token expired")
	// ErrInvalid covers every other verification failure: bad signature,
	// malformed token, wrong issuer/audience, unknown kid.
	ErrInvalid = errors.New("token invalid")
)

// Config holds token issuance parameters. PrivateKey and PublicKey accept
// either raw ed25519 key bytes or PEM (PKCS8 / PKIX).
type Config struct {
	AccessTTL  time.Duration
	Issuer     string
	Audience   string
	Leeway     time.Duration
	KeyID      string
	PrivateKey []byte
	PublicKey  []byte
}

// Manager signs and verifies access tokens with a single ed25519 key pair.
// Safe for concurrent use after construction.
type Manager struct {
	config    Config
	signKey   ed25519.PrivateKey
	verifyKey ed25519.PublicKey
	keyID     string
}

// AccessClaims is the claim set carried by access tokens. Subject holds the
// identity ID; SID binds the token to the session that issued it so that
// resource servers can correlate tokens with the session registry.
type AccessClaims struct {
	Role string `json:"role,omitempty"`
	TID  string `json:"tid,omitempty"`
	SID  string `json:"sid"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and parses the key material. A missing private
// key yields a verify-only manager; CreateAccess then fails.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("access TTL must be positive")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("leeway out of range")
	}

	m := &Manager{config: cfg}

	if len(cfg.PrivateKey) > 0 {
		key, err := parsePrivateKey(cfg.PrivateKey)
		if err != nil {
			return nil, err
		}
		m.signKey = key
		m.verifyKey = key.Public().(ed25519.PublicKey)
	}
	if len(cfg.PublicKey) > 0 {
		key, err := parsePublicKey(cfg.PublicKey)
		if err != nil {
			return nil, err
		}
		if m.verifyKey != nil && !m.verifyKey.Equal(key) {
			return nil, errors.New("public key does not match private key")
		}
		m.verifyKey = key
	}
	if m.verifyKey == nil {
		return nil, errors.New("key material required")
	}

	m.keyID = strings.TrimSpace(cfg.KeyID)
	if m.keyID == "" {
		m.keyID = deriveKeyID(m.verifyKey)
	}

	return m, nil
}

// GenerateKey returns a fresh ed25519 key pair for deployments that opt
// into an ephemeral signing key at startup.
func GenerateKey() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	return ed25519.GenerateKey(rand.Reader)
}

// KeyID returns the active signing key identifier placed in token headers
// and the JWKS document.
func (m *Manager) KeyID() string {
	return m.keyID
}

// CreateAccess signs an access token for the given identity, scoped to a
// tenant, role, and session.
func (m *Manager) CreateAccess(identityID, tenantID, role, sessionID string, now time.Time) (string, error) {
	if m.signKey == nil {
		return "", errors.New("manager has no signing key")
	}

	claims := AccessClaims{
		Role: role,
		TID:  tenantID,
		SID:  sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identityID,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.AccessTTL)),
		},
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	token.Header["kid"] = m.keyID

	return token.SignedString(m.signKey)
}

// ParseAccess verifies signature, expiry, and issuer/audience and returns
// the claims. Failures collapse to ErrExpired or ErrInvalid; callers never
// see parser internals.
func (m *Manager) ParseAccess(tokenStr string) (*AccessClaims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	if m.config.Audience != "" {
		options = append(options, jwt.WithAudience(m.config.Audience))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &AccessClaims{}, func(t *jwt.Token) (interface{}, error) {
		if kid, _ := t.Header["kid"].(string); kid != "" && kid != m.keyID {
			return nil, errors.New("unknown kid")
		}
		return m.verifyKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalid
	}
	if claims.Subject == "" || claims.SID == "" {
		return nil, ErrInvalid
	}

	return claims, nil
}

func deriveKeyID(pub ed25519.PublicKey) string {
	sum := sha256.Sum256(pub)
	return hex.EncodeToString(sum[:8])
}

func parsePrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parsePublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
