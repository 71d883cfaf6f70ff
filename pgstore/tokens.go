package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tidegate/authcore"
)

// TokenStore is a PostgreSQL-backed [authcore.RefreshTokenStore].
type TokenStore struct {
	db Querier
}

var _ authcore.RefreshTokenStore = (*TokenStore)(nil)

// NewTokenStore creates a TokenStore on the given connection pool.
func NewTokenStore(db Querier) *TokenStore {
	return &TokenStore{db: db}
}

// Replace installs the record as the account's single live one. The
// unique constraint on account_id turns this into one atomic upsert, so
// the old and new record are never visible together.
func (s *TokenStore) Replace(ctx context.Context, record authcore.RefreshTokenRecord) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO refresh_tokens (id, account_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (account_id) DO UPDATE SET
			id         = EXCLUDED.id,
			token_hash = EXCLUDED.token_hash,
			expires_at = EXCLUDED.expires_at,
			created_at = EXCLUDED.created_at`,
		record.ID,
		record.AccountID,
		record.TokenHash[:],
		record.ExpiresAt,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPostgresUnavailable, err)
	}
	return nil
}

// FindByAccount returns the account's record, or (nil, nil) when none
// exists.
func (s *TokenStore) FindByAccount(ctx context.Context, accountID string) (*authcore.RefreshTokenRecord, error) {
	record := authcore.RefreshTokenRecord{AccountID: accountID}
	var hash []byte

	row := s.db.QueryRow(ctx, `
		SELECT id, token_hash, expires_at, created_at
		FROM refresh_tokens WHERE account_id = $1`, accountID)
	if err := row.Scan(&record.ID, &hash, &record.ExpiresAt, &record.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrPostgresUnavailable, err)
	}
	copy(record.TokenHash[:], hash)
	return &record, nil
}

// DeleteMatching removes the record only when its stored hash equals
// tokenHash. The guard lives in the WHERE clause, so two rotations
// racing on the same token get exactly one row apiece between them.
func (s *TokenStore) DeleteMatching(ctx context.Context, accountID string, tokenHash [32]byte) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM refresh_tokens WHERE account_id = $1 AND token_hash = $2`,
		accountID, tokenHash[:])
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrPostgresUnavailable, err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteByAccount removes the account's record unconditionally.
func (s *TokenStore) DeleteByAccount(ctx context.Context, accountID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE account_id = $1`, accountID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPostgresUnavailable, err)
	}
	return nil
}
