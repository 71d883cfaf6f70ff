package flows

import "context"

// runSendOTPTo generates a fresh code for an already-loaded account and
// hands it to the notifier. Only the hash lands on the record; the
// caller is responsible for persisting it. Delivery failures are audited
// but do not fail the flow.
func runSendOTPTo(ctx context.Context, account *AccountRecord, deps LoginDeps) (string, error) {
	if deps.NewOTP == nil || deps.HashSecret == nil {
		return "", deps.Errors.EngineNotReady
	}

	code, err := deps.NewOTP()
	if err != nil {
		return "", err
	}
	hashed, err := deps.HashSecret(code)
	if err != nil {
		return "", err
	}
	account.OTPSecret = hashed

	if deps.DeliverOTP != nil {
		if err := deps.DeliverOTP(ctx, account.Email, code); err != nil {
			deps.Warn("authcore: otp delivery failed")
			deps.EmitAudit(ctx, deps.Events.DeliveryFailure, false, account.ID, err, func() map[string]string {
				return map[string]string{"kind": "otp"}
			})
		}
	}

	deps.MetricInc(deps.Metrics.OTPSent)
	deps.EmitAudit(ctx, deps.Events.OTPSent, true, account.ID, nil, nil)
	return code, nil
}

// RunSendOTP regenerates and redelivers the pending second-factor code.
// The previous code is invalidated by the overwrite. Unknown emails get
// the same generic rejection as a bad password.
func RunSendOTP(ctx context.Context, email string, deps LoginDeps) (string, error) {
	deps.applyDefaults()
	if deps.FindAccount == nil || deps.SaveAccount == nil ||
		deps.IsLocked == nil || deps.LockoutError == nil {
		return "", deps.Errors.EngineNotReady
	}
	if !deps.TwoFactorEnabled {
		return "", deps.Errors.EngineNotReady
	}

	account, err := deps.FindAccount(ctx, email)
	if err != nil {
		return "", err
	}
	if account == nil {
		return "", deps.Errors.InvalidCredentials
	}
	if deps.IsLocked(account.LockUntil, deps.Now()) {
		deps.MetricInc(deps.Metrics.LockoutRejected)
		lockErr := deps.LockoutError(*account.LockUntil)
		deps.EmitAudit(ctx, deps.Events.LockoutRejected, false, account.ID, lockErr, nil)
		return "", lockErr
	}

	code, err := runSendOTPTo(ctx, account, deps)
	if err != nil {
		return "", err
	}
	if err := deps.SaveAccount(ctx, account); err != nil {
		return "", err
	}
	if deps.EchoCode {
		return code, nil
	}
	return "", nil
}

// RunVerify2FA checks the second-factor code and completes the login by
// issuing a token pair. OTP failures draw from the same failure budget
// as password failures, so the two factors cannot be brute-forced
// independently.
func RunVerify2FA(ctx context.Context, email, code string, deps LoginDeps) (*LoginResult, error) {
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

	account, err := deps.FindAccount(ctx, email)
	if err != nil {
		return nil, err
	}
	if account == nil {
		deps.MetricInc(deps.Metrics.OTPFailure)
		deps.EmitAudit(ctx, deps.Events.OTPVerified, false, "", deps.Errors.InvalidCredentials, func() map[string]string {
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

	if code == "" || account.OTPSecret == "" {
		return nil, runRecordFailure(ctx, account, deps.Events.OTPVerified, "no_pending_code", deps.Metrics.OTPFailure, deps)
	}

	ok, err := deps.VerifyPassword(code, account.OTPSecret)
	if err != nil || !ok {
		return nil, runRecordFailure(ctx, account, deps.Events.OTPVerified, "code_mismatch", deps.Metrics.OTPFailure, deps)
	}

	account.OTPSecret = ""
	account.FailedAttempts = 0
	account.LockUntil = nil
	account.LastLogin = &now
	if err := deps.SaveAccount(ctx, account); err != nil {
		return nil, err
	}

	access, refresh, err := deps.IssueTokens(ctx, account)
	if err != nil {
		return nil, err
	}

	deps.MetricInc(deps.Metrics.OTPSuccess)
	deps.EmitAudit(ctx, deps.Events.OTPVerified, true, account.ID, nil, nil)
	return &LoginResult{
		Account:      account,
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}
