package flows

import (
	"context"
	"errors"
	"time"
)

// RotateResult is the flow-local refresh rotation response shape.
type RotateResult struct {
	AccountID    string
	AccessToken  string
	RefreshToken string
}

// TokenMetrics carries metric IDs needed by the token flows.
type TokenMetrics struct {
	TokensIssued         int
	RefreshSuccess       int
	RefreshFailure       int
	RefreshExpired       int
	RefreshReuseDetected int
	Revoke               int
}

// TokenEvents carries audit event names used by the token flows.
type TokenEvents struct {
	TokensIssued string
	TokenRefresh string
	TokenReuse   string
	Revoke       string
}

// TokenErrors carries host-level sentinel errors used by the token
// flows.
type TokenErrors struct {
	EngineNotReady error
	TokenInvalid   error
	TokenExpired   error
}

// TokenDeps captures the token issuance, rotation, and revocation
// dependencies.
type TokenDeps struct {
	RefreshTTL time.Duration

	Now func() time.Time

	// FindAccountByID resolves an active account, returning (nil, nil)
	// when none exists or the account is no longer active.
	FindAccountByID func(ctx context.Context, id string) (*AccountRecord, error)

	CreatePair func(accountID, role string) (access, refresh string, err error)
	// ParseRefresh verifies the signature and expiry of a raw refresh
	// token, yielding the subject and role. Errors must already be
	// mapped to the host sentinels in Errors; with Errors.TokenExpired
	// the subject is still returned when recoverable so the stale
	// record can be removed.
	ParseRefresh func(token string) (accountID, role string, err error)
	HashToken    func(raw string) [32]byte
	NewRecordID  func() string

	ReplaceRecord   func(ctx context.Context, record RefreshRecord) error
	FindRecord      func(ctx context.Context, accountID string) (*RefreshRecord, error)
	DeleteMatching  func(ctx context.Context, accountID string, tokenHash [32]byte) (bool, error)
	DeleteByAccount func(ctx context.Context, accountID string) error

	MetricInc func(int)
	EmitAudit AuditFunc
	Warn      func(string, ...any)

	Metrics TokenMetrics
	Events  TokenEvents
	Errors  TokenErrors
}

func (deps *TokenDeps) applyDefaults() {
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

// RunIssueTokens mints a pair for the account and installs its refresh
// record as the single live one, displacing any predecessor.
func RunIssueTokens(ctx context.Context, account *AccountRecord, deps TokenDeps) (string, string, error) {
	deps.applyDefaults()
	if deps.CreatePair == nil || deps.HashToken == nil ||
		deps.NewRecordID == nil || deps.ReplaceRecord == nil {
		return "", "", deps.Errors.EngineNotReady
	}

	access, refresh, err := deps.CreatePair(account.ID, account.Role)
	if err != nil {
		return "", "", err
	}

	now := deps.Now()
	record := RefreshRecord{
		ID:        deps.NewRecordID(),
		AccountID: account.ID,
		TokenHash: deps.HashToken(refresh),
		ExpiresAt: now.Add(deps.RefreshTTL),
		CreatedAt: now,
	}
	if err := deps.ReplaceRecord(ctx, record); err != nil {
		return "", "", err
	}

	deps.MetricInc(deps.Metrics.TokensIssued)
	deps.EmitAudit(ctx, deps.Events.TokensIssued, true, account.ID, nil, nil)
	return access, refresh, nil
}

// RunRotate exchanges a live refresh token for a fresh pair. The old
// record is removed with a conditional delete keyed by its hash, so when
// two rotations race on the same token exactly one wins; the loser gets
// a token-invalid rejection and no second pair exists.
func RunRotate(ctx context.Context, rawRefresh string, deps TokenDeps) (*RotateResult, error) {
	deps.applyDefaults()
	if deps.ParseRefresh == nil ||
		deps.HashToken == nil ||
		deps.FindRecord == nil ||
		deps.DeleteMatching == nil ||
		deps.DeleteByAccount == nil ||
		deps.FindAccountByID == nil {
		return nil, deps.Errors.EngineNotReady
	}

	accountID, _, err := deps.ParseRefresh(rawRefresh)
	if err != nil {
		if errors.Is(err, deps.Errors.TokenExpired) {
			// The expired token still names its account: remove the
			// matching stored record so later lookups find none. The
			// delete is conditional on the hash, so a newer record for
			// the same account is left alone.
			if accountID != "" {
				if _, derr := deps.DeleteMatching(ctx, accountID, deps.HashToken(rawRefresh)); derr != nil {
					deps.Warn("authcore: expired record cleanup failed")
				}
			}
			deps.MetricInc(deps.Metrics.RefreshExpired)
		} else {
			deps.MetricInc(deps.Metrics.RefreshFailure)
		}
		deps.EmitAudit(ctx, deps.Events.TokenRefresh, false, accountID, err, func() map[string]string {
			return map[string]string{"reason": "parse_failed"}
		})
		return nil, err
	}

	hash := deps.HashToken(rawRefresh)
	record, err := deps.FindRecord(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		deps.MetricInc(deps.Metrics.RefreshFailure)
		deps.EmitAudit(ctx, deps.Events.TokenRefresh, false, accountID, deps.Errors.TokenInvalid, func() map[string]string {
			return map[string]string{"reason": "no_stored_record"}
		})
		return nil, deps.Errors.TokenInvalid
	}

	if record.TokenHash != hash {
		// A signed token that no longer matches the stored hash was
		// already rotated away: treat it as reuse and revoke the line.
		if err := deps.DeleteByAccount(ctx, accountID); err != nil {
			deps.Warn("authcore: revoke on reuse detection failed")
		}
		deps.MetricInc(deps.Metrics.RefreshReuseDetected)
		deps.MetricInc(deps.Metrics.RefreshFailure)
		deps.EmitAudit(ctx, deps.Events.TokenReuse, false, accountID, deps.Errors.TokenInvalid, nil)
		return nil, deps.Errors.TokenInvalid
	}

	now := deps.Now()
	if !record.ExpiresAt.After(now) {
		if err := deps.DeleteByAccount(ctx, accountID); err != nil {
			deps.Warn("authcore: expired record cleanup failed")
		}
		deps.MetricInc(deps.Metrics.RefreshExpired)
		deps.EmitAudit(ctx, deps.Events.TokenRefresh, false, accountID, deps.Errors.TokenExpired, nil)
		return nil, deps.Errors.TokenExpired
	}

	deleted, err := deps.DeleteMatching(ctx, accountID, hash)
	if err != nil {
		return nil, err
	}
	if !deleted {
		deps.MetricInc(deps.Metrics.RefreshFailure)
		deps.EmitAudit(ctx, deps.Events.TokenRefresh, false, accountID, deps.Errors.TokenInvalid, func() map[string]string {
			return map[string]string{"reason": "lost_rotation_race"}
		})
		return nil, deps.Errors.TokenInvalid
	}

	account, err := deps.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		deps.MetricInc(deps.Metrics.RefreshFailure)
		deps.EmitAudit(ctx, deps.Events.TokenRefresh, false, accountID, deps.Errors.TokenInvalid, func() map[string]string {
			return map[string]string{"reason": "account_inactive"}
		})
		return nil, deps.Errors.TokenInvalid
	}

	access, refresh, err := RunIssueTokens(ctx, account, deps)
	if err != nil {
		return nil, err
	}

	deps.MetricInc(deps.Metrics.RefreshSuccess)
	deps.EmitAudit(ctx, deps.Events.TokenRefresh, true, accountID, nil, nil)
	return &RotateResult{
		AccountID:    accountID,
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

// RunValidateRefresh checks a refresh token against its stored record
// without consuming it. The same account gate as rotation applies: a
// token for a disabled or deleted account stops validating immediately.
func RunValidateRefresh(ctx context.Context, rawRefresh string, deps TokenDeps) (string, error) {
	deps.applyDefaults()
	if deps.ParseRefresh == nil || deps.HashToken == nil ||
		deps.FindRecord == nil || deps.FindAccountByID == nil {
		return "", deps.Errors.EngineNotReady
	}

	accountID, _, err := deps.ParseRefresh(rawRefresh)
	if err != nil {
		return "", err
	}

	record, err := deps.FindRecord(ctx, accountID)
	if err != nil {
		return "", err
	}
	if record == nil || record.TokenHash != deps.HashToken(rawRefresh) {
		return "", deps.Errors.TokenInvalid
	}
	if !record.ExpiresAt.After(deps.Now()) {
		return "", deps.Errors.TokenExpired
	}

	account, err := deps.FindAccountByID(ctx, accountID)
	if err != nil {
		return "", err
	}
	if account == nil {
		return "", deps.Errors.TokenInvalid
	}
	return accountID, nil
}

// RunRevoke removes the account's refresh record. Revoking an account
// with no live record is a no-op.
func RunRevoke(ctx context.Context, accountID string, deps TokenDeps) error {
	deps.applyDefaults()
	if deps.DeleteByAccount == nil {
		return deps.Errors.EngineNotReady
	}

	if err := deps.DeleteByAccount(ctx, accountID); err != nil {
		return err
	}

	deps.MetricInc(deps.Metrics.Revoke)
	deps.EmitAudit(ctx, deps.Events.Revoke, true, accountID, nil, nil)
	return nil
}
