package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pulsefit/authengine/store"
)

func (s *Store) InsertRefreshToken(ctx context.Context, t *store.RefreshToken) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO refresh_tokens
			(id, session_id, identity_id, token_hash, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.SessionID, t.IdentityID, t.Hash[:], t.CreatedAt, t.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("pg: insert refresh token: %w", err)
	}
	return nil
}

func (s *Store) GetRefreshTokenByHash(ctx context.Context, hash [32]byte) (*store.RefreshToken, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, session_id, identity_id, token_hash,
		       created_at, expires_at, revoked_at, rotated_at
		FROM refresh_tokens
		WHERE token_hash = $1`,
		hash[:],
	)

	tok, err := scanToken(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrTokenNotFound
		}
		return nil, fmt.Errorf("pg: get refresh token: %w", err)
	}
	return tok, nil
}

// RotateRefreshToken implements the single-winner rotation step. The
// conditional UPDATE on revoked_at IS NULL is the race arbiter: under
// concurrent presentation of the same token, exactly one transaction
// matches the row and every other caller comes back with ErrTokenRevoked.
func (s *Store) RotateRefreshToken(ctx context.Context, oldHash [32]byte, replacement *store.RefreshToken, now time.Time) (*store.Session, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("pg: rotate: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var sessionID string
	err = tx.QueryRow(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = $2, rotated_at = $2
		WHERE token_hash = $1 AND revoked_at IS NULL AND expires_at > $2
		RETURNING session_id`,
		oldHash[:], now,
	).Scan(&sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.classifyRotateMiss(ctx, oldHash, now)
		}
		return nil, fmt.Errorf("pg: rotate: %w", err)
	}

	row := tx.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM auth_sessions WHERE id = $1 FOR UPDATE`, sessionID)
	sess, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("pg: rotate session lookup: %w", err)
	}
	// Rolling back undoes the token update, so a token whose session is
	// dead stays presentable and keeps reporting the same error.
	if sess.RevokedAt != nil {
		return nil, store.ErrTokenRevoked
	}
	if now.After(sess.ExpiresAt) {
		return nil, store.ErrTokenExpired
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO refresh_tokens
			(id, session_id, identity_id, token_hash, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		replacement.ID, replacement.SessionID, replacement.IdentityID,
		replacement.Hash[:], replacement.CreatedAt, replacement.ExpiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("pg: rotate insert: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE auth_sessions SET last_active_at = $2 WHERE id = $1`, sessionID, now)
	if err != nil {
		return nil, fmt.Errorf("pg: rotate touch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("pg: rotate commit: %w", err)
	}

	sess.LastActiveAt = now
	return sess, nil
}

// classifyRotateMiss explains why the conditional update matched nothing.
func (s *Store) classifyRotateMiss(ctx context.Context, hash [32]byte, now time.Time) error {
	var (
		revokedAt *time.Time
		expiresAt time.Time
	)
	err := s.pool.QueryRow(ctx,
		`SELECT revoked_at, expires_at FROM refresh_tokens WHERE token_hash = $1`,
		hash[:],
	).Scan(&revokedAt, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.ErrTokenNotFound
		}
		return fmt.Errorf("pg: rotate classify: %w", err)
	}

	if revokedAt != nil {
		return store.ErrTokenRevoked
	}
	if !expiresAt.After(now) {
		return store.ErrTokenExpired
	}
	// The row was live by the time we re-read it; the conditional update
	// lost to a concurrent writer. Same outcome as finding it revoked.
	return store.ErrTokenRevoked
}

func (s *Store) RevokeSessionFamily(ctx context.Context, sessionID string, at time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pg: revoke family: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE auth_sessions
		SET revoked_at = COALESCE(revoked_at, $2)
		WHERE id = $1`,
		sessionID, at,
	)
	if err != nil {
		return fmt.Errorf("pg: revoke family: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrSessionNotFound
	}

	_, err = tx.Exec(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = COALESCE(revoked_at, $2)
		WHERE session_id = $1`,
		sessionID, at,
	)
	if err != nil {
		return fmt.Errorf("pg: revoke family tokens: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("pg: revoke family: %w", err)
	}
	return nil
}

func scanToken(row pgx.Row) (*store.RefreshToken, error) {
	var (
		tok  store.RefreshToken
		hash []byte
	)
	err := row.Scan(
		&tok.ID, &tok.SessionID, &tok.IdentityID, &hash,
		&tok.CreatedAt, &tok.ExpiresAt, &tok.RevokedAt, &tok.RotatedAt,
	)
	if err != nil {
		return nil, err
	}
	copy(tok.Hash[:], hash)
	return &tok, nil
}
