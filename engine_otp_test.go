package authcore

import (
	"context"
	"errors"
	"testing"
)

func twoFactorConfig() Config {
	cfg := testConfig()
	cfg.TwoFactor.Enabled = true
	return cfg
}

func TestLoginWithTwoFactorRequiresOTP(t *testing.T) {
	notifier := &captureNotifier{}
	env := newTestEngineNotify(t, twoFactorConfig(), notifier)
	env.seedAccount(t, "u1", "alice@example.com", "correct-password-123")
	ctx := context.Background()

	result, err := env.engine.Login(ctx, "alice@example.com", "correct-password-123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !result.OTPRequired {
		t.Fatal("expected OTP to be required")
	}
	if result.Tokens != nil {
		t.Fatal("first factor alone must not issue tokens")
	}
	if env.tokens.count() != 0 {
		t.Fatal("no refresh record may exist before the second factor")
	}

	code := notifier.lastOTP(t)
	if len(code) != 6 {
		t.Fatalf("expected 6-digit code, got %q", code)
	}

	verified, err := env.engine.Verify2FA(ctx, "alice@example.com", code)
	if err != nil {
		t.Fatalf("Verify2FA failed: %v", err)
	}
	if verified.Tokens == nil || verified.Tokens.AccessToken == "" {
		t.Fatal("expected tokens after second factor")
	}
	if env.tokens.count() != 1 {
		t.Fatalf("expected one refresh record, got %d", env.tokens.count())
	}
	if got := env.engine.Metric(MetricOTPSuccess); got != 1 {
		t.Fatalf("expected OTP success counter 1, got %d", got)
	}
}

func TestVerify2FAWrongCodeDrawsSharedBudget(t *testing.T) {
	cfg := twoFactorConfig()
	notifier := &captureNotifier{}
	env := newTestEngineNotify(t, cfg, notifier)
	env.seedAccount(t, "u1", "alice@example.com", "correct-password-123")
	ctx := context.Background()

	if _, err := env.engine.Login(ctx, "alice@example.com", "correct-password-123"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	code := notifier.lastOTP(t)

	// One password failure plus OTP failures exhaust the same budget.
	if _, err := env.engine.Login(ctx, "alice@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	for i := 0; i < cfg.Lockout.Threshold-1; i++ {
		if _, err := env.engine.Verify2FA(ctx, "alice@example.com", "000000"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("otp attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}

	// Budget exhausted: even the genuine code is rejected.
	if _, err := env.engine.Verify2FA(ctx, "alice@example.com", code); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}
}

func TestVerify2FACodeIsSingleUse(t *testing.T) {
	notifier := &captureNotifier{}
	env := newTestEngineNotify(t, twoFactorConfig(), notifier)
	env.seedAccount(t, "u1", "alice@example.com", "correct-password-123")
	ctx := context.Background()

	if _, err := env.engine.Login(ctx, "alice@example.com", "correct-password-123"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	code := notifier.lastOTP(t)

	if _, err := env.engine.Verify2FA(ctx, "alice@example.com", code); err != nil {
		t.Fatalf("Verify2FA failed: %v", err)
	}
	if _, err := env.engine.Verify2FA(ctx, "alice@example.com", code); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected replayed code to be rejected, got %v", err)
	}
}

func TestSendOTPInvalidatesPreviousCode(t *testing.T) {
	notifier := &captureNotifier{}
	env := newTestEngineNotify(t, twoFactorConfig(), notifier)
	env.seedAccount(t, "u1", "alice@example.com", "correct-password-123")
	ctx := context.Background()

	if _, err := env.engine.Login(ctx, "alice@example.com", "correct-password-123"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	first := notifier.lastOTP(t)

	if _, err := env.engine.SendOTP(ctx, "alice@example.com"); err != nil {
		t.Fatalf("SendOTP failed: %v", err)
	}
	second := notifier.lastOTP(t)

	if first == second {
		t.Fatal("resend must generate a fresh code")
	}
	if _, err := env.engine.Verify2FA(ctx, "alice@example.com", first); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected superseded code to be rejected, got %v", err)
	}
	if _, err := env.engine.Verify2FA(ctx, "alice@example.com", second); err != nil {
		t.Fatalf("Verify2FA with fresh code failed: %v", err)
	}
}

func TestSendOTPUnknownEmail(t *testing.T) {
	env := newTestEngineNotify(t, twoFactorConfig(), &captureNotifier{})

	_, err := env.engine.SendOTP(context.Background(), "nobody@example.com")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestOTPEchoForDevelopment(t *testing.T) {
	cfg := twoFactorConfig()
	cfg.TwoFactor.EchoCode = true
	notifier := &captureNotifier{}
	env := newTestEngineNotify(t, cfg, notifier)
	env.seedAccount(t, "u1", "alice@example.com", "correct-password-123")
	ctx := context.Background()

	result, err := env.engine.Login(ctx, "alice@example.com", "correct-password-123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if result.OTPCode == "" {
		t.Fatal("expected echoed code with EchoCode enabled")
	}
	if result.OTPCode != notifier.lastOTP(t) {
		t.Fatal("echoed code must match the delivered one")
	}

	if _, err := env.engine.Verify2FA(ctx, "alice@example.com", result.OTPCode); err != nil {
		t.Fatalf("Verify2FA failed: %v", err)
	}
}
