package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pulsefit/authengine/store"
)

const pendingColumns = `id, identity_id, tenant_id, ip, user_agent,
	created_at, expires_at, verified`

func (s *Store) CreatePendingTwoFactor(ctx context.Context, p *store.PendingTwoFactor) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pending_two_factor
			(id, identity_id, tenant_id, ip, user_agent, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.IdentityID, p.TenantID, p.IP, p.UserAgent, p.CreatedAt, p.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("pg: create pending: %w", err)
	}
	return nil
}

func (s *Store) GetPendingTwoFactor(ctx context.Context, id string) (*store.PendingTwoFactor, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pendingColumns+` FROM pending_two_factor WHERE id = $1`, id)

	p, err := scanPending(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrPendingNotFound
		}
		return nil, fmt.Errorf("pg: get pending: %w", err)
	}
	return p, nil
}

// ConsumePendingTwoFactor is the single-use gate for stage-two login: the
// conditional UPDATE on verified = FALSE admits exactly one caller.
func (s *Store) ConsumePendingTwoFactor(ctx context.Context, id string, now time.Time) (*store.PendingTwoFactor, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE pending_two_factor
		SET verified = TRUE
		WHERE id = $1 AND verified = FALSE AND expires_at > $2
		RETURNING `+pendingColumns,
		id, now,
	)

	p, err := scanPending(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.classifyConsumeMiss(ctx, id, now)
		}
		return nil, fmt.Errorf("pg: consume pending: %w", err)
	}
	return p, nil
}

func (s *Store) classifyConsumeMiss(ctx context.Context, id string, now time.Time) error {
	var (
		verified  bool
		expiresAt time.Time
	)
	err := s.pool.QueryRow(ctx,
		`SELECT verified, expires_at FROM pending_two_factor WHERE id = $1`, id,
	).Scan(&verified, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.ErrPendingNotFound
		}
		return fmt.Errorf("pg: consume classify: %w", err)
	}

	if verified {
		return store.ErrPendingConsumed
	}
	if !expiresAt.After(now) {
		return store.ErrPendingExpired
	}
	return store.ErrPendingConsumed
}

func (s *Store) DeletePendingTwoFactor(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM pending_two_factor WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pg: delete pending: %w", err)
	}
	return nil
}

func scanPending(row pgx.Row) (*store.PendingTwoFactor, error) {
	var p store.PendingTwoFactor
	err := row.Scan(
		&p.ID, &p.IdentityID, &p.TenantID, &p.IP, &p.UserAgent,
		&p.CreatedAt, &p.ExpiresAt, &p.Verified,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
