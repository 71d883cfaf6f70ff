package lockout

import "time"

// Config holds the lockout thresholds applied by a Policy.
type Config struct {
	Threshold int           // failures before the account locks
	Duration  time.Duration // how long a triggered lock holds
}

// Policy computes lockout transitions. Password and OTP failures feed the
// same counter, so both factors share one failure budget per account.
type Policy struct {
	config Config
}

// NewPolicy creates a policy from cfg. Non-positive fields fall back to
// the defaults (5 failures, 60 minutes).
func NewPolicy(cfg Config) Policy {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.Duration <= 0 {
		cfg.Duration = 60 * time.Minute
	}
	return Policy{config: cfg}
}

// RecordFailure increments the failure count and, when the new count
// reaches the threshold, returns the timestamp until which the account
// must stay locked. The returned pointer is nil while under threshold.
func (p Policy) RecordFailure(attempts int, now time.Time) (int, *time.Time) {
	attempts++
	if attempts >= p.config.Threshold {
		until := now.Add(p.config.Duration)
		return attempts, &until
	}
	return attempts, nil
}

// IsLocked reports whether the account is locked at the given instant.
// A nil lockUntil means no lock was ever triggered.
func (p Policy) IsLocked(lockUntil *time.Time, now time.Time) bool {
	return lockUntil != nil && lockUntil.After(now)
}

// RecordSuccess returns the counter state after any successful
// verification: zero failures and no lock.
func (p Policy) RecordSuccess() (int, *time.Time) {
	return 0, nil
}

// Threshold exposes the configured failure threshold.
func (p Policy) Threshold() int { return p.config.Threshold }

// Duration exposes the configured lock duration.
func (p Policy) Duration() time.Duration { return p.config.Duration }
