package authcore

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/tidegate/authcore/internal/audit"
	internalmetrics "github.com/tidegate/authcore/internal/metrics"
)

// AccountStatus represents the lifecycle state of an account.
type AccountStatus uint8

const (
	AccountActive AccountStatus = iota
	AccountPendingVerification
	AccountDisabled
)

// Account is the identity record the engine operates on. The account
// itself is owned by the embedding application; the engine reads and
// writes it only through an AccountStore.
//
// Invariant: FailedAttempts resets to 0 and LockUntil clears on any
// successful credential or OTP verification.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	Role         string
	Status       AccountStatus

	FailedAttempts    int
	LockUntil         *time.Time
	OTPSecret         string // hash of the pending OTP code, empty when none
	ResetToken        string // hash of the pending reset token, empty when none
	ResetTokenExpires *time.Time
	LastLogin         *time.Time
}

// RefreshTokenRecord is the persisted form of a refresh token: only the
// digest of the raw token is ever stored. At most one live record exists
// per account.
type RefreshTokenRecord struct {
	ID        string
	AccountID string
	TokenHash [32]byte
	ExpiresAt time.Time
	CreatedAt time.Time
}

// TokenPair is a freshly minted access/refresh token pair. It is handed
// to the caller and never persisted.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// LoginResult is returned by [Engine.Login]. When two-factor
// authentication is enabled the first factor alone yields OTPRequired
// with no tokens issued yet; otherwise Tokens carries the minted pair.
// OTPCode is populated only when TwoFactorConfig.EchoCode is set.
type LoginResult struct {
	Account     *Account
	OTPRequired bool
	OTPCode     string
	Tokens      *TokenPair
}

// AccessIdentity is the verified identity carried by an access token.
type AccessIdentity struct {
	AccountID string
	Role      string
	ExpiresAt time.Time
}

// AccountStore is the persistence boundary for accounts. Lookups return
// ErrAccountNotFound when no matching account exists; any other error is
// treated as an infrastructure failure.
type AccountStore interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindActiveByEmail(ctx context.Context, email string) (*Account, error)
	FindByID(ctx context.Context, id string) (*Account, error)
	Save(ctx context.Context, account *Account) error
}

// RefreshTokenStore is the persistence boundary for refresh-token
// records. Implementations must make Replace atomic (the old record is
// never observable alongside the new one) and DeleteMatching conditional
// on the stored hash, so concurrent rotations of the same token resolve
// to exactly one winner.
type RefreshTokenStore interface {
	// Replace removes any existing record for the account and stores
	// record as the single live one.
	Replace(ctx context.Context, record RefreshTokenRecord) error
	// FindByAccount returns the account's record, or (nil, nil) when
	// none exists.
	FindByAccount(ctx context.Context, accountID string) (*RefreshTokenRecord, error)
	// DeleteMatching removes the account's record only if its stored
	// hash equals tokenHash, reporting whether a record was removed.
	DeleteMatching(ctx context.Context, accountID string, tokenHash [32]byte) (bool, error)
	// DeleteByAccount removes the account's record unconditionally.
	// Deleting a non-existent record is not an error.
	DeleteByAccount(ctx context.Context, accountID string) error
}

// Hasher is the one-way hash provider used for passwords, OTP codes,
// and reset tokens. [password.Argon2] is the default implementation.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, encoded string) (bool, error)
	NeedsUpgrade(encoded string) (bool, error)
}

// Notifier delivers one-time codes and reset tokens out of band. The
// engine never assumes synchronous delivery success: a failed delivery
// is audited but does not fail the triggering operation.
type Notifier interface {
	DeliverOTP(ctx context.Context, email, code string) error
	DeliverResetToken(ctx context.Context, email, token string) error
}

// NoOpNotifier discards all deliveries.
type NoOpNotifier struct{}

func (NoOpNotifier) DeliverOTP(context.Context, string, string) error        { return nil }
func (NoOpNotifier) DeliverResetToken(context.Context, string, string) error { return nil }

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON lines to a writer.
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// MetricID identifies a specific engine counter.
type MetricID = internalmetrics.MetricID

const (
	MetricLoginSuccess         = internalmetrics.MetricLoginSuccess
	MetricLoginFailure         = internalmetrics.MetricLoginFailure
	MetricLockoutTriggered     = internalmetrics.MetricLockoutTriggered
	MetricLockoutRejected      = internalmetrics.MetricLockoutRejected
	MetricOTPSent              = internalmetrics.MetricOTPSent
	MetricOTPSuccess           = internalmetrics.MetricOTPSuccess
	MetricOTPFailure           = internalmetrics.MetricOTPFailure
	MetricTokensIssued         = internalmetrics.MetricTokensIssued
	MetricRefreshSuccess       = internalmetrics.MetricRefreshSuccess
	MetricRefreshFailure       = internalmetrics.MetricRefreshFailure
	MetricRefreshExpired       = internalmetrics.MetricRefreshExpired
	MetricRefreshReuseDetected = internalmetrics.MetricRefreshReuseDetected
	MetricRevoke               = internalmetrics.MetricRevoke
	MetricResetRequested       = internalmetrics.MetricResetRequested
	MetricResetSuccess         = internalmetrics.MetricResetSuccess
	MetricResetFailure         = internalmetrics.MetricResetFailure
)

// MetricsSnapshot is a point-in-time deep copy of all counters.
type MetricsSnapshot = internalmetrics.Snapshot
