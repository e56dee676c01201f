package internal

import (
	"errors"
	"strings"
	"testing"
)

func TestNewIDShapeAndUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := NewID()
		if err != nil {
			t.Fatalf("NewID failed: %v", err)
		}
		if len(id) != 22 {
			t.Fatalf("expected 22-char id, got %q", id)
		}
		if strings.ContainsAny(id, "+/=") {
			t.Fatalf("expected base64url without padding, got %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	secret, err := NewRefreshSecret()
	if err != nil {
		t.Fatalf("NewRefreshSecret failed: %v", err)
	}

	token := EncodeRefreshToken(secret)
	decoded, err := DecodeRefreshToken(token)
	if err != nil {
		t.Fatalf("DecodeRefreshToken failed: %v", err)
	}
	if decoded != secret {
		t.Fatal("round trip changed the secret")
	}
	if HashRefreshSecret(decoded) != HashRefreshSecret(secret) {
		t.Fatal("hashes diverged after round trip")
	}
}

func TestDecodeRefreshTokenRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"!!!",
		"c2hvcnQ",
		strings.Repeat("A", 63),
		strings.Repeat("A", 65),
	}
	for _, token := range cases {
		if _, err := DecodeRefreshToken(token); !errors.Is(err, ErrMalformedToken) {
			t.Fatalf("expected ErrMalformedToken for %q, got %v", token, err)
		}
	}
}

func TestHashRefreshSecretIsDeterministic(t *testing.T) {
	a, err := NewRefreshSecret()
	if err != nil {
		t.Fatalf("NewRefreshSecret failed: %v", err)
	}
	b, err := NewRefreshSecret()
	if err != nil {
		t.Fatalf("NewRefreshSecret failed: %v", err)
	}

	if HashRefreshSecret(a) != HashRefreshSecret(a) {
		t.Fatal("hash not deterministic")
	}
	if HashRefreshSecret(a) == HashRefreshSecret(b) {
		t.Fatal("distinct secrets collided")
	}
}
