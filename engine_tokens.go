package authcore

import (
	"context"
	"errors"

	"github.com/tidegate/authcore/internal/flows"
	"github.com/tidegate/authcore/jwt"
)

// IssueTokens mints a token pair for an active account and installs its
// refresh record, displacing any previous one. Login and Verify2FA call
// this internally; it is exported for flows that authenticate outside
// the engine, such as SSO callbacks.
func (e *Engine) IssueTokens(ctx context.Context, accountID string) (*TokenPair, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	account, err := e.findActiveByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrInvalidCredentials
	}

	access, refresh, err := flows.RunIssueTokens(ctx, account, e.deps.Tokens)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Rotate exchanges a live refresh token for a fresh pair and invalidates
// the old one. Presenting an already-rotated token is treated as reuse:
// the account's refresh line is revoked and ErrTokenInvalid returned.
// When two requests race on the same token, exactly one wins.
func (e *Engine) Rotate(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	result, err := flows.RunRotate(ctx, refreshToken, e.deps.Tokens)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	}, nil
}

// ValidateRefreshToken checks a refresh token against its stored record
// without consuming it, returning the account id it belongs to.
func (e *Engine) ValidateRefreshToken(ctx context.Context, refreshToken string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	return flows.RunValidateRefresh(ctx, refreshToken, e.deps.Tokens)
}

// ValidateAccess verifies an access token's signature and expiry and
// returns the identity it carries. This is a pure JWT check with no
// store lookup, so it stays cheap enough for per-request middleware.
func (e *Engine) ValidateAccess(accessToken string) (*AccessIdentity, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.jwtManager.ParseAccess(accessToken)
	if err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	identity := &AccessIdentity{
		AccountID: claims.Subject,
		Role:      claims.Role,
	}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}
	return identity, nil
}

// Revoke removes the account's refresh record, forcing a fresh login
// once the current access token expires. Revoking an account with no
// live record is a no-op.
func (e *Engine) Revoke(ctx context.Context, accountID string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	return flows.RunRevoke(ctx, accountID, e.deps.Tokens)
}
