package flows

import (
	"context"
	"time"
)

// ResetMetrics carries metric IDs needed by the password-reset flows.
type ResetMetrics struct {
	ResetRequested int
	ResetSuccess   int
	ResetFailure   int
}

// ResetEvents carries audit event names used by the password-reset
// flows.
type ResetEvents struct {
	ResetRequested  string
	ResetCompleted  string
	DeliveryFailure string
}

// ResetErrors carries host-level sentinel errors used by the
// password-reset flows.
type ResetErrors struct {
	EngineNotReady    error
	ResetTokenInvalid error
	PasswordPolicy    error
}

// ResetDeps captures the password-reset flow dependencies.
type ResetDeps struct {
	TokenTTL          time.Duration
	MinPasswordLength int

	Now func() time.Time

	FindAccount func(ctx context.Context, email string) (*AccountRecord, error)
	SaveAccount func(ctx context.Context, account *AccountRecord) error

	NewResetToken func() (string, error)
	HashSecret    func(plaintext string) (string, error)
	VerifySecret  func(plaintext, encoded string) (bool, error)

	DeliverToken func(ctx context.Context, email, token string) error
	RevokeTokens func(ctx context.Context, accountID string) error

	MetricInc func(int)
	EmitAudit AuditFunc
	Warn      func(string, ...any)

	Metrics ResetMetrics
	Events  ResetEvents
	Errors  ResetErrors
}

func (deps *ResetDeps) applyDefaults() {
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

// RunRequestReset issues a single-use reset token and delivers it out of
// band. Unknown emails are a silent no-op so the endpoint cannot be
// used to probe for accounts. A repeated request overwrites the pending
// token.
func RunRequestReset(ctx context.Context, email string, deps ResetDeps) error {
	deps.applyDefaults()
	if deps.FindAccount == nil || deps.SaveAccount == nil ||
		deps.NewResetToken == nil || deps.HashSecret == nil {
		return deps.Errors.EngineNotReady
	}

	account, err := deps.FindAccount(ctx, email)
	if err != nil {
		return err
	}
	if account == nil {
		deps.EmitAudit(ctx, deps.Events.ResetRequested, false, "", nil, func() map[string]string {
			return map[string]string{"reason": "unknown_email"}
		})
		return nil
	}

	raw, err := deps.NewResetToken()
	if err != nil {
		return err
	}
	hashed, err := deps.HashSecret(raw)
	if err != nil {
		return err
	}

	expires := deps.Now().Add(deps.TokenTTL)
	account.ResetToken = hashed
	account.ResetTokenExpires = &expires
	if err := deps.SaveAccount(ctx, account); err != nil {
		return err
	}

	if deps.DeliverToken != nil {
		if err := deps.DeliverToken(ctx, account.Email, raw); err != nil {
			deps.Warn("authcore: reset token delivery failed")
			deps.EmitAudit(ctx, deps.Events.DeliveryFailure, false, account.ID, err, func() map[string]string {
				return map[string]string{"kind": "reset_token"}
			})
		}
	}

	deps.MetricInc(deps.Metrics.ResetRequested)
	deps.EmitAudit(ctx, deps.Events.ResetRequested, true, account.ID, nil, nil)
	return nil
}

// RunResetPassword consumes a pending reset token and installs the new
// password. Success clears the failure counter, lifts any lock, and
// revokes the account's refresh tokens so stolen sessions do not
// outlive the reset.
func RunResetPassword(ctx context.Context, email, rawToken, newPassword string, deps ResetDeps) error {
	deps.applyDefaults()
	if deps.FindAccount == nil || deps.SaveAccount == nil ||
		deps.HashSecret == nil || deps.VerifySecret == nil {
		return deps.Errors.EngineNotReady
	}

	if len(newPassword) < deps.MinPasswordLength {
		deps.MetricInc(deps.Metrics.ResetFailure)
		return deps.Errors.PasswordPolicy
	}

	account, err := deps.FindAccount(ctx, email)
	if err != nil {
		return err
	}
	if account == nil {
		deps.MetricInc(deps.Metrics.ResetFailure)
		return deps.Errors.ResetTokenInvalid
	}

	now := deps.Now()
	if account.ResetToken == "" || account.ResetTokenExpires == nil {
		deps.MetricInc(deps.Metrics.ResetFailure)
		deps.EmitAudit(ctx, deps.Events.ResetCompleted, false, account.ID, deps.Errors.ResetTokenInvalid, func() map[string]string {
			return map[string]string{"reason": "no_pending_token"}
		})
		return deps.Errors.ResetTokenInvalid
	}
	if !account.ResetTokenExpires.After(now) {
		account.ResetToken = ""
		account.ResetTokenExpires = nil
		if err := deps.SaveAccount(ctx, account); err != nil {
			return err
		}
		deps.MetricInc(deps.Metrics.ResetFailure)
		deps.EmitAudit(ctx, deps.Events.ResetCompleted, false, account.ID, deps.Errors.ResetTokenInvalid, func() map[string]string {
			return map[string]string{"reason": "token_expired"}
		})
		return deps.Errors.ResetTokenInvalid
	}

	ok, err := deps.VerifySecret(rawToken, account.ResetToken)
	if err != nil || !ok {
		deps.MetricInc(deps.Metrics.ResetFailure)
		deps.EmitAudit(ctx, deps.Events.ResetCompleted, false, account.ID, deps.Errors.ResetTokenInvalid, func() map[string]string {
			return map[string]string{"reason": "token_mismatch"}
		})
		return deps.Errors.ResetTokenInvalid
	}

	hashed, err := deps.HashSecret(newPassword)
	if err != nil {
		return err
	}
	account.PasswordHash = hashed
	account.ResetToken = ""
	account.ResetTokenExpires = nil
	account.FailedAttempts = 0
	account.LockUntil = nil
	if err := deps.SaveAccount(ctx, account); err != nil {
		return err
	}

	if deps.RevokeTokens != nil {
		if err := deps.RevokeTokens(ctx, account.ID); err != nil {
			deps.Warn("authcore: session revocation after reset failed")
		}
	}

	deps.MetricInc(deps.Metrics.ResetSuccess)
	deps.EmitAudit(ctx, deps.Events.ResetCompleted, true, account.ID, nil, nil)
	return nil
}
