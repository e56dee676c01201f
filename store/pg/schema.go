package pg

// Schema is the DDL for the engine's three tables. refresh_tokens.token_hash
// carries a UNIQUE constraint: every issued token maps to exactly one row,
// which is what makes hash-addressed rotation sound.
const Schema = `
CREATE TABLE IF NOT EXISTS auth_sessions (
	id             TEXT PRIMARY KEY,
	identity_id    TEXT        NOT NULL,
	tenant_id      TEXT        NOT NULL DEFAULT '0',
	role           TEXT        NOT NULL DEFAULT '',
	ip             TEXT        NOT NULL DEFAULT '',
	user_agent     TEXT        NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL,
	expires_at     TIMESTAMPTZ NOT NULL,
	last_active_at TIMESTAMPTZ NOT NULL,
	revoked_at     TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS auth_sessions_identity_idx
	ON auth_sessions (identity_id, created_at DESC);

CREATE TABLE IF NOT EXISTS refresh_tokens (
	id          UUID PRIMARY KEY,
	session_id  TEXT        NOT NULL REFERENCES auth_sessions (id) ON DELETE CASCADE,
	identity_id TEXT        NOT NULL,
	token_hash  BYTEA       NOT NULL UNIQUE,
	created_at  TIMESTAMPTZ NOT NULL,
	expires_at  TIMESTAMPTZ NOT NULL,
	revoked_at  TIMESTAMPTZ,
	rotated_at  TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS refresh_tokens_session_idx
	ON refresh_tokens (session_id);

CREATE TABLE IF NOT EXISTS pending_two_factor (
	id          TEXT PRIMARY KEY,
	identity_id TEXT        NOT NULL,
	tenant_id   TEXT        NOT NULL DEFAULT '0',
	ip          TEXT        NOT NULL DEFAULT '',
	user_agent  TEXT        NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL,
	expires_at  TIMESTAMPTZ NOT NULL,
	verified    BOOLEAN     NOT NULL DEFAULT FALSE
);
`
