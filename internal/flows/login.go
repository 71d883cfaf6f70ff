package flows

import (
	"context"
	"time"
)

// AuditFunc emits one audit event. The metadata closure is only invoked
// when auditing is enabled, keeping map allocation off disabled paths.
type AuditFunc func(ctx context.Context, event string, success bool, accountID string, err error, meta func() map[string]string)

// LoginMetrics carries metric IDs needed by the login and OTP flows.
type LoginMetrics struct {
	LoginSuccess     int
	LoginFailure     int
	LockoutTriggered int
	LockoutRejected  int
	OTPSent          int
	OTPSuccess       int
	OTPFailure       int
}

// LoginEvents carries audit event names used by the login and OTP flows.
type LoginEvents struct {
	Login            string
	LockoutTriggered string
	LockoutRejected  string
	OTPSent          string
	OTPVerified      string
	DeliveryFailure  string
	PasswordUpgraded string
}

// LoginErrors carries host-level sentinel errors used by the login and
// OTP flows.
type LoginErrors struct {
	EngineNotReady     error
	InvalidCredentials error
}

// LoginDeps captures the login and OTP flow dependencies.
type LoginDeps struct {
	TwoFactorEnabled       bool
	EchoCode               bool
	PasswordUpgradeOnLogin bool

	Now func() time.Time

	// FindAccount resolves an active account by email, returning
	// (nil, nil) when no such account exists.
	FindAccount func(ctx context.Context, email string) (*AccountRecord, error)
	SaveAccount func(ctx context.Context, account *AccountRecord) error

	VerifyPassword       func(plaintext, encoded string) (bool, error)
	HashSecret           func(plaintext string) (string, error)
	PasswordNeedsUpgrade func(encoded string) (bool, error)

	IsLocked      func(lockUntil *time.Time, now time.Time) bool
	RecordFailure func(attempts int, now time.Time) (int, *time.Time)
	LockoutError  func(until time.Time) error

	NewOTP     func() (string, error)
	DeliverOTP func(ctx context.Context, email, code string) error

	// IssueTokens mints and persists a fresh pair for the account.
	IssueTokens func(ctx context.Context, account *AccountRecord) (access, refresh string, err error)

	MetricInc func(int)
	EmitAudit AuditFunc
	Warn      func(string, ...any)

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

func (deps *LoginDeps) applyDefaults() {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}
}

// RunLogin verifies the password factor. With two-factor enabled it
// generates and delivers an OTP instead of issuing tokens; otherwise it
// issues the pair directly. The lockout gate runs before the password is
// ever checked, so a locked account leaks nothing about credential
// validity.
func RunLogin(ctx context.Context, email, pass string, deps LoginDeps) (*LoginResult, error) {
	deps.applyDefaults()
	if deps.FindAccount == nil ||
		deps.SaveAccount == nil ||
		deps.VerifyPassword == nil ||
		deps.IsLocked == nil ||
		deps.RecordFailure == nil ||
		deps.LockoutError == nil ||
		deps.IssueTokens == nil {
		return nil, deps.Errors.EngineNotReady
	}

	if email == "" || pass == "" {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.Login, false, "", deps.Errors.InvalidCredentials, func() map[string]string {
			return map[string]string{"reason": "empty_credentials"}
		})
		return nil, deps.Errors.InvalidCredentials
	}

	account, err := deps.FindAccount(ctx, email)
	if err != nil {
		return nil, err
	}
	if account == nil {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.Login, false, "", deps.Errors.InvalidCredentials, func() map[string]string {
			return map[string]string{"reason": "account_not_found"}
		})
		return nil, deps.Errors.InvalidCredentials
	}

	now := deps.Now()
	if deps.IsLocked(account.LockUntil, now) {
		deps.MetricInc(deps.Metrics.LockoutRejected)
		lockErr := deps.LockoutError(*account.LockUntil)
		deps.EmitAudit(ctx, deps.Events.LockoutRejected, false, account.ID, lockErr, nil)
		return nil, lockErr
	}

	ok, err := deps.VerifyPassword(pass, account.PasswordHash)
	if err != nil || !ok {
		return nil, runRecordFailure(ctx, account, deps.Events.Login, "password_mismatch", deps.Metrics.LoginFailure, deps)
	}

	if deps.PasswordUpgradeOnLogin && deps.PasswordNeedsUpgrade != nil {
		if needs, err := deps.PasswordNeedsUpgrade(account.PasswordHash); err == nil && needs {
			if upgraded, err := deps.HashSecret(pass); err == nil {
				account.PasswordHash = upgraded
				deps.EmitAudit(ctx, deps.Events.PasswordUpgraded, true, account.ID, nil, nil)
			} else {
				deps.Warn("authcore: password hash upgrade failed")
			}
		}
	}
	pass = ""

	account.FailedAttempts = 0
	account.LockUntil = nil

	if deps.TwoFactorEnabled {
		code, err := runSendOTPTo(ctx, account, deps)
		if err != nil {
			return nil, err
		}
		if err := deps.SaveAccount(ctx, account); err != nil {
			return nil, err
		}
		result := &LoginResult{Account: account, OTPRequired: true}
		if deps.EchoCode {
			result.OTPCode = code
		}
		return result, nil
	}

	account.LastLogin = &now
	if err := deps.SaveAccount(ctx, account); err != nil {
		return nil, err
	}

	access, refresh, err := deps.IssueTokens(ctx, account)
	if err != nil {
		return nil, err
	}

	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.Login, true, account.ID, nil, nil)
	return &LoginResult{
		Account:      account,
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

// runRecordFailure applies the shared failure budget after a bad
// password or OTP code. The triggering attempt itself still reports
// invalid credentials; the lock gates subsequent attempts.
func runRecordFailure(ctx context.Context, account *AccountRecord, event, reason string, failureMetric int, deps LoginDeps) error {
	now := deps.Now()
	attempts, lockUntil := deps.RecordFailure(account.FailedAttempts, now)
	account.FailedAttempts = attempts
	account.LockUntil = lockUntil

	if err := deps.SaveAccount(ctx, account); err != nil {
		return err
	}

	deps.MetricInc(failureMetric)
	if lockUntil != nil {
		deps.MetricInc(deps.Metrics.LockoutTriggered)
		deps.EmitAudit(ctx, deps.Events.LockoutTriggered, false, account.ID, nil, func() map[string]string {
			return map[string]string{"lock_until": lockUntil.Format(time.RFC3339)}
		})
	}
	deps.EmitAudit(ctx, event, false, account.ID, deps.Errors.InvalidCredentials, func() map[string]string {
		return map[string]string{"reason": reason}
	})
	return deps.Errors.InvalidCredentials
}
