package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tidegate/authcore"
)

// ErrPostgresUnavailable wraps every transport-level database failure.
var ErrPostgresUnavailable = errors.New("postgres unavailable")

// Querier is the slice of pgx a store needs. *pgxpool.Pool satisfies it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AccountStore is a PostgreSQL-backed [authcore.AccountStore].
type AccountStore struct {
	db Querier
}

var _ authcore.AccountStore = (*AccountStore)(nil)

// NewAccountStore creates an AccountStore on the given connection pool.
func NewAccountStore(db Querier) *AccountStore {
	return &AccountStore{db: db}
}

const accountColumns = `id, email, password_hash, role, status, failed_attempts,
	lock_until, otp_secret, reset_token, reset_token_expires, last_login`

func (s *AccountStore) scanAccount(row pgx.Row) (*authcore.Account, error) {
	var account authcore.Account
	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&account.Role,
		&account.Status,
		&account.FailedAttempts,
		&account.LockUntil,
		&account.OTPSecret,
		&account.ResetToken,
		&account.ResetTokenExpires,
		&account.LastLogin,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, authcore.ErrAccountNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrPostgresUnavailable, err)
	}
	return &account, nil
}

// FindByEmail looks an account up by email regardless of status.
func (s *AccountStore) FindByEmail(ctx context.Context, email string) (*authcore.Account, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
	return s.scanAccount(row)
}

// FindActiveByEmail looks an active account up by email.
func (s *AccountStore) FindActiveByEmail(ctx context.Context, email string) (*authcore.Account, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = $1 AND status = $2`,
		email, authcore.AccountActive)
	return s.scanAccount(row)
}

// FindByID looks an account up by id.
func (s *AccountStore) FindByID(ctx context.Context, id string) (*authcore.Account, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return s.scanAccount(row)
}

// Save upserts the account row.
func (s *AccountStore) Save(ctx context.Context, account *authcore.Account) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			email               = EXCLUDED.email,
			password_hash       = EXCLUDED.password_hash,
			role                = EXCLUDED.role,
			status              = EXCLUDED.status,
			failed_attempts     = EXCLUDED.failed_attempts,
			lock_until          = EXCLUDED.lock_until,
			otp_secret          = EXCLUDED.otp_secret,
			reset_token         = EXCLUDED.reset_token,
			reset_token_expires = EXCLUDED.reset_token_expires,
			last_login          = EXCLUDED.last_login`,
		account.ID,
		account.Email,
		account.PasswordHash,
		account.Role,
		account.Status,
		account.FailedAttempts,
		account.LockUntil,
		account.OTPSecret,
		account.ResetToken,
		account.ResetTokenExpires,
		account.LastLogin,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPostgresUnavailable, err)
	}
	return nil
}
