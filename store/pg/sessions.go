package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pulsefit/authengine/store"
)

const sessionColumns = `id, identity_id, tenant_id, role, ip, user_agent,
	created_at, expires_at, last_active_at, revoked_at`

func (s *Store) CreateSession(ctx context.Context, sess *store.Session) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO auth_sessions
			(id, identity_id, tenant_id, role, ip, user_agent,
			 created_at, expires_at, last_active_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		sess.ID, sess.IdentityID, sess.TenantID, sess.Role, sess.IP, sess.UserAgent,
		sess.CreatedAt, sess.ExpiresAt, sess.LastActiveAt,
	)
	if err != nil {
		return fmt.Errorf("pg: create session: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (*store.Session, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM auth_sessions WHERE id = $1`, id)

	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrSessionNotFound
		}
		return nil, fmt.Errorf("pg: get session: %w", err)
	}
	return sess, nil
}

func (s *Store) ListSessions(ctx context.Context, identityID string) ([]*store.Session, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM auth_sessions
		WHERE identity_id = $1 AND expires_at > now()
		ORDER BY created_at DESC`,
		identityID,
	)
	if err != nil {
		return nil, fmt.Errorf("pg: list sessions: %w", err)
	}
	defer rows.Close()

	var out []*store.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("pg: list sessions: %w", err)
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pg: list sessions: %w", err)
	}
	return out, nil
}

func (s *Store) RevokeOtherSessions(ctx context.Context, identityID, keepID string, at time.Time) ([]string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("pg: revoke others: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		UPDATE auth_sessions
		SET revoked_at = $3
		WHERE identity_id = $1 AND id <> $2 AND revoked_at IS NULL
		RETURNING id`,
		identityID, keepID, at,
	)
	if err != nil {
		return nil, fmt.Errorf("pg: revoke others: %w", err)
	}
	revoked, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("pg: revoke others: %w", err)
	}

	if len(revoked) > 0 {
		_, err = tx.Exec(ctx, `
			UPDATE refresh_tokens
			SET revoked_at = $2
			WHERE session_id = ANY($1) AND revoked_at IS NULL`,
			revoked, at,
		)
		if err != nil {
			return nil, fmt.Errorf("pg: revoke others tokens: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("pg: revoke others: %w", err)
	}
	return revoked, nil
}

func scanSession(row pgx.Row) (*store.Session, error) {
	var sess store.Session
	err := row.Scan(
		&sess.ID, &sess.IdentityID, &sess.TenantID, &sess.Role, &sess.IP, &sess.UserAgent,
		&sess.CreatedAt, &sess.ExpiresAt, &sess.LastActiveAt, &sess.RevokedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}
