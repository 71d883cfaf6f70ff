package authcore

import (
	"context"

	"github.com/tidegate/authcore/internal/flows"
)

// Login verifies the email/password factor. Outcomes:
//
//   - two-factor disabled: a token pair is minted and returned in
//     LoginResult.Tokens
//   - two-factor enabled: an OTP is generated and delivered, and
//     OTPRequired is set; call Verify2FA to finish
//   - unknown email, inactive account, or wrong password all return
//     ErrInvalidCredentials
//   - a locked account is rejected with a *LockoutError before the
//     password is checked
//
// Password and OTP failures share one failure budget per account;
// reaching the threshold locks the account for the configured duration.
func (e *Engine) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	result, err := flows.RunLogin(ctx, email, password, e.deps.Login)
	if err != nil {
		return nil, err
	}
	return e.loginResult(result), nil
}

// SendOTP regenerates and redelivers the second-factor code for an
// account mid two-factor login. The previous code stops working. The
// returned code is empty unless TwoFactorConfig.EchoCode is set.
func (e *Engine) SendOTP(ctx context.Context, email string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	return flows.RunSendOTP(ctx, email, e.deps.Login)
}

// Verify2FA checks the pending OTP code and completes the login with a
// fresh token pair. Wrong codes draw from the same failure budget as
// wrong passwords.
func (e *Engine) Verify2FA(ctx context.Context, email, code string) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	result, err := flows.RunVerify2FA(ctx, email, code, e.deps.Login)
	if err != nil {
		return nil, err
	}
	return e.loginResult(result), nil
}

func (e *Engine) loginResult(result *flows.LoginResult) *LoginResult {
	if result == nil {
		return nil
	}
	out := &LoginResult{
		Account:     flowToAccount(result.Account),
		OTPRequired: result.OTPRequired,
		OTPCode:     result.OTPCode,
	}
	if result.AccessToken != "" {
		out.Tokens = &TokenPair{
			AccessToken:  result.AccessToken,
			RefreshToken: result.RefreshToken,
		}
	}
	return out
}
