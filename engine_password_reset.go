package authcore

import (
	"context"

	"github.com/tidegate/authcore/internal/flows"
)

// RequestPasswordReset issues a single-use reset token valid for the
// configured window and delivers it through the notifier. Unknown
// emails return nil without any side effect, so the operation cannot be
// used to probe which emails have accounts.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	return flows.RunRequestReset(ctx, email, e.deps.Reset)
}

// ResetPassword consumes a pending reset token and installs the new
// password. On success the token is cleared, any lockout is lifted, and
// the account's refresh tokens are revoked. A token that is missing,
// expired, or wrong yields ErrResetTokenInvalid; a too-short password
// yields ErrPasswordPolicy.
func (e *Engine) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	return flows.RunResetPassword(ctx, email, token, newPassword, e.deps.Reset)
}
