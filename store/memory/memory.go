// Package memory implements store.Store with mutex-guarded maps. It mirrors
// the conditional-update semantics of store/pg so engine tests exercise the
// same rotation and consume behavior the production store enforces. Suitable
// for tests and single-process development, not for deployments with more
// than one engine instance.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pulsefit/authengine/store"
)

// Store is an in-memory store.Store.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*store.Session
	tokens   map[[32]byte]*store.RefreshToken
	pending  map[string]*store.PendingTwoFactor
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		sessions: make(map[string]*store.Session),
		tokens:   make(map[[32]byte]*store.RefreshToken),
		pending:  make(map[string]*store.PendingTwoFactor),
	}
}

func (s *Store) CreateSession(_ context.Context, sess *store.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *sess
	s.sessions[sess.ID] = &cp
	return nil
}

func (s *Store) GetSession(_ context.Context, id string) (*store.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, store.ErrSessionNotFound
	}
	cp := *sess
	return &cp, nil
}

func (s *Store) ListSessions(_ context.Context, identityID string) ([]*store.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var out []*store.Session
	for _, sess := range s.sessions {
		if sess.IdentityID != identityID {
			continue
		}
		if now.After(sess.ExpiresAt) {
			continue
		}
		cp := *sess
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) RevokeOtherSessions(_ context.Context, identityID, keepID string, at time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var revoked []string
	for _, sess := range s.sessions {
		if sess.IdentityID != identityID || sess.ID == keepID || sess.RevokedAt != nil {
			continue
		}
		t := at
		sess.RevokedAt = &t
		s.revokeFamilyTokensLocked(sess.ID, at)
		revoked = append(revoked, sess.ID)
	}

	sort.Strings(revoked)
	return revoked, nil
}

func (s *Store) InsertRefreshToken(_ context.Context, t *store.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *t
	s.tokens[t.Hash] = &cp
	return nil
}

func (s *Store) GetRefreshTokenByHash(_ context.Context, hash [32]byte) (*store.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, ok := s.tokens[hash]
	if !ok {
		return nil, store.ErrTokenNotFound
	}
	cp := *tok
	return &cp, nil
}

func (s *Store) RotateRefreshToken(_ context.Context, oldHash [32]byte, replacement *store.RefreshToken, now time.Time) (*store.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.tokens[oldHash]
	if !ok {
		return nil, store.ErrTokenNotFound
	}
	// Revocation is checked before expiry: a revoked token presented late
	// is still a reuse signal.
	if old.RevokedAt != nil {
		return nil, store.ErrTokenRevoked
	}
	if now.After(old.ExpiresAt) {
		return nil, store.ErrTokenExpired
	}

	sess, ok := s.sessions[old.SessionID]
	if !ok {
		return nil, store.ErrSessionNotFound
	}
	if sess.RevokedAt != nil {
		return nil, store.ErrTokenRevoked
	}
	if now.After(sess.ExpiresAt) {
		return nil, store.ErrTokenExpired
	}

	t := now
	old.RevokedAt = &t
	old.RotatedAt = &t
	sess.LastActiveAt = now

	cp := *replacement
	s.tokens[replacement.Hash] = &cp

	out := *sess
	return &out, nil
}

func (s *Store) RevokeSessionFamily(_ context.Context, sessionID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return store.ErrSessionNotFound
	}
	if sess.RevokedAt == nil {
		t := at
		sess.RevokedAt = &t
	}
	s.revokeFamilyTokensLocked(sessionID, at)
	return nil
}

func (s *Store) revokeFamilyTokensLocked(sessionID string, at time.Time) {
	for _, tok := range s.tokens {
		if tok.SessionID != sessionID || tok.RevokedAt != nil {
			continue
		}
		t := at
		tok.RevokedAt = &t
	}
}

func (s *Store) CreatePendingTwoFactor(_ context.Context, p *store.PendingTwoFactor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *p
	s.pending[p.ID] = &cp
	return nil
}

func (s *Store) GetPendingTwoFactor(_ context.Context, id string) (*store.PendingTwoFactor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[id]
	if !ok {
		return nil, store.ErrPendingNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) ConsumePendingTwoFactor(_ context.Context, id string, now time.Time) (*store.PendingTwoFactor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[id]
	if !ok {
		return nil, store.ErrPendingNotFound
	}
	if p.Verified {
		return nil, store.ErrPendingConsumed
	}
	if now.After(p.ExpiresAt) {
		return nil, store.ErrPendingExpired
	}

	p.Verified = true
	cp := *p
	return &cp, nil
}

func (s *Store) DeletePendingTwoFactor(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pending, id)
	return nil
}
