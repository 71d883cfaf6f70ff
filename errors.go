package authcore

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidCredentials covers every bad-secret outcome: unknown or
	// inactive email, wrong password, and wrong OTP code. The single
	// message resists account enumeration.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountNotFound is returned by stores when no account matches.
	// The engine never surfaces it to callers distinctly from
	// ErrInvalidCredentials.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountLocked matches any *LockoutError via errors.Is.
	ErrAccountLocked = errors.New("account locked")
	// ErrTokenInvalid is returned for refresh tokens with no matching
	// stored record, a hash mismatch, or a lost rotation race.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is returned when the stored refresh record has
	// passed its expiry; the stale record is removed.
	ErrTokenExpired = errors.New("token expired")
	// ErrResetTokenInvalid merges "no pending token", "expired", and
	// "hash mismatch" into one outcome.
	ErrResetTokenInvalid = errors.New("invalid or expired reset token")
	// ErrPasswordPolicy rejects new passwords below the minimum length.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrEngineNotReady is returned when the engine is missing a
	// required collaborator.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrStoreUnavailable wraps infrastructure failures from the
	// backing stores; callers should surface these as 5xx-equivalents.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// LockoutError rejects a verification attempt while the account lock
// holds. It carries the unlock time so callers can name it, and matches
// ErrAccountLocked via errors.Is.
type LockoutError struct {
	Until time.Time
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("account locked until %s", e.Until.Format(time.RFC3339))
}

func (e *LockoutError) Is(target error) bool {
	return target == ErrAccountLocked
}

func newLockoutError(until time.Time) error {
	return &LockoutError{Until: until}
}
