package pgstore

// Schema holds the DDL the stores expect. Embedders run it through
// their own migration tooling.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
    id                  TEXT PRIMARY KEY,
    email               TEXT NOT NULL UNIQUE,
    password_hash       TEXT NOT NULL,
    role                TEXT NOT NULL DEFAULT '',
    status              SMALLINT NOT NULL DEFAULT 0,
    failed_attempts     INT NOT NULL DEFAULT 0,
    lock_until          TIMESTAMPTZ,
    otp_secret          TEXT NOT NULL DEFAULT '',
    reset_token         TEXT NOT NULL DEFAULT '',
    reset_token_expires TIMESTAMPTZ,
    last_login          TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS refresh_tokens (
    id         TEXT PRIMARY KEY,
    account_id TEXT NOT NULL UNIQUE REFERENCES accounts (id) ON DELETE CASCADE,
    token_hash BYTEA NOT NULL,
    expires_at TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);
`
