package authcore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/tidegate/authcore/internal"
	"github.com/tidegate/authcore/internal/audit"
	"github.com/tidegate/authcore/internal/flows"
	"github.com/tidegate/authcore/internal/lockout"
	"github.com/tidegate/authcore/internal/metrics"
	"github.com/tidegate/authcore/jwt"
)

// Engine is the authentication session engine. Instances are configured
// through the builder and treated as immutable afterwards.
type Engine struct {
	config   Config
	accounts AccountStore
	refresh  RefreshTokenStore
	hasher   Hasher
	notifier Notifier

	jwtManager *jwt.Manager
	policy     lockout.Policy
	audit      *audit.Dispatcher
	metrics    *metrics.Metrics

	deps flows.Deps
}

// Close stops background workers. Buffered audit events are drained
// before Close returns.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped reports how many audit events were discarded due to
// backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of all engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{}
	}
	return e.metrics.Snapshot()
}

// Metric returns the current value of a single counter.
func (e *Engine) Metric(id MetricID) uint64 {
	if e == nil {
		return 0
	}
	return e.metrics.Get(id)
}

func (e *Engine) metricInc(id int) {
	e.metrics.Inc(metrics.MetricID(id))
}

func (e *Engine) emitAudit(ctx context.Context, event string, success bool, accountID string, err error, meta func() map[string]string) {
	if e.audit == nil {
		return
	}

	record := audit.Event{
		Timestamp: time.Now(),
		EventType: event,
		AccountID: accountID,
		Success:   success,
	}
	if err != nil {
		record.Error = err.Error()
	}
	if meta != nil {
		record.Metadata = meta()
	}
	e.audit.Emit(ctx, record)
}

func (e *Engine) warnf(format string, args ...any) {
	log.Printf(format, args...)
}

// storeErr wraps infrastructure failures so callers can distinguish
// them from authentication outcomes with errors.Is.
func storeErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

func accountToFlow(a *Account) *flows.AccountRecord {
	if a == nil {
		return nil
	}
	return &flows.AccountRecord{
		ID:                a.ID,
		Email:             a.Email,
		PasswordHash:      a.PasswordHash,
		Role:              a.Role,
		Status:            uint8(a.Status),
		FailedAttempts:    a.FailedAttempts,
		LockUntil:         a.LockUntil,
		OTPSecret:         a.OTPSecret,
		ResetToken:        a.ResetToken,
		ResetTokenExpires: a.ResetTokenExpires,
		LastLogin:         a.LastLogin,
	}
}

func flowToAccount(r *flows.AccountRecord) *Account {
	if r == nil {
		return nil
	}
	return &Account{
		ID:                r.ID,
		Email:             r.Email,
		PasswordHash:      r.PasswordHash,
		Role:              r.Role,
		Status:            AccountStatus(r.Status),
		FailedAttempts:    r.FailedAttempts,
		LockUntil:         r.LockUntil,
		OTPSecret:         r.OTPSecret,
		ResetToken:        r.ResetToken,
		ResetTokenExpires: r.ResetTokenExpires,
		LastLogin:         r.LastLogin,
	}
}

func (e *Engine) findActiveByEmail(ctx context.Context, email string) (*flows.AccountRecord, error) {
	account, err := e.accounts.FindActiveByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, nil
		}
		return nil, storeErr(err)
	}
	return accountToFlow(account), nil
}

func (e *Engine) findActiveByID(ctx context.Context, id string) (*flows.AccountRecord, error) {
	account, err := e.accounts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, nil
		}
		return nil, storeErr(err)
	}
	if account == nil || account.Status != AccountActive {
		return nil, nil
	}
	return accountToFlow(account), nil
}

func (e *Engine) saveAccount(ctx context.Context, record *flows.AccountRecord) error {
	if err := e.accounts.Save(ctx, flowToAccount(record)); err != nil {
		return storeErr(err)
	}
	return nil
}

func (e *Engine) parseRefresh(token string) (string, string, error) {
	claims, err := e.jwtManager.ParseRefresh(token)
	if err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			// The subject still comes through so the stale record can be
			// cleaned up.
			if claims != nil {
				return claims.Subject, claims.Role, ErrTokenExpired
			}
			return "", "", ErrTokenExpired
		}
		return "", "", ErrTokenInvalid
	}
	return claims.Subject, claims.Role, nil
}

// buildDeps wires the flow dependency sets once at construction time.
func (e *Engine) buildDeps() {
	e.deps.Tokens = flows.TokenDeps{
		RefreshTTL: e.config.Token.RefreshTTL,

		FindAccountByID: e.findActiveByID,

		CreatePair: func(accountID, role string) (string, string, error) {
			pair, err := e.jwtManager.CreatePair(accountID, role)
			if err != nil {
				return "", "", err
			}
			return pair.AccessToken, pair.RefreshToken, nil
		},
		ParseRefresh: e.parseRefresh,
		HashToken:    internal.HashRefreshToken,
		NewRecordID:  uuid.NewString,

		ReplaceRecord: func(ctx context.Context, record flows.RefreshRecord) error {
			err := e.refresh.Replace(ctx, RefreshTokenRecord{
				ID:        record.ID,
				AccountID: record.AccountID,
				TokenHash: record.TokenHash,
				ExpiresAt: record.ExpiresAt,
				CreatedAt: record.CreatedAt,
			})
			if err != nil {
				return storeErr(err)
			}
			return nil
		},
		FindRecord: func(ctx context.Context, accountID string) (*flows.RefreshRecord, error) {
			record, err := e.refresh.FindByAccount(ctx, accountID)
			if err != nil {
				return nil, storeErr(err)
			}
			if record == nil {
				return nil, nil
			}
			return &flows.RefreshRecord{
				ID:        record.ID,
				AccountID: record.AccountID,
				TokenHash: record.TokenHash,
				ExpiresAt: record.ExpiresAt,
				CreatedAt: record.CreatedAt,
			}, nil
		},
		DeleteMatching: func(ctx context.Context, accountID string, tokenHash [32]byte) (bool, error) {
			deleted, err := e.refresh.DeleteMatching(ctx, accountID, tokenHash)
			if err != nil {
				return false, storeErr(err)
			}
			return deleted, nil
		},
		DeleteByAccount: func(ctx context.Context, accountID string) error {
			if err := e.refresh.DeleteByAccount(ctx, accountID); err != nil {
				return storeErr(err)
			}
			return nil
		},

		MetricInc: e.metricInc,
		EmitAudit: e.emitAudit,
		Warn:      e.warnf,

		Metrics: flows.TokenMetrics{
			TokensIssued:         int(MetricTokensIssued),
			RefreshSuccess:       int(MetricRefreshSuccess),
			RefreshFailure:       int(MetricRefreshFailure),
			RefreshExpired:       int(MetricRefreshExpired),
			RefreshReuseDetected: int(MetricRefreshReuseDetected),
			Revoke:               int(MetricRevoke),
		},
		Events: flows.TokenEvents{
			TokensIssued: EventTokensIssued,
			TokenRefresh: EventTokenRefresh,
			TokenReuse:   EventTokenReuse,
			Revoke:       EventRevoke,
		},
		Errors: flows.TokenErrors{
			EngineNotReady: ErrEngineNotReady,
			TokenInvalid:   ErrTokenInvalid,
			TokenExpired:   ErrTokenExpired,
		},
	}

	e.deps.Login = flows.LoginDeps{
		TwoFactorEnabled:       e.config.TwoFactor.Enabled,
		EchoCode:               e.config.TwoFactor.EchoCode,
		PasswordUpgradeOnLogin: !e.config.Password.DisableUpgradeOnLogin,

		FindAccount: e.findActiveByEmail,
		SaveAccount: e.saveAccount,

		VerifyPassword:       e.hasher.Verify,
		HashSecret:           e.hasher.Hash,
		PasswordNeedsUpgrade: e.hasher.NeedsUpgrade,

		IsLocked:      e.policy.IsLocked,
		RecordFailure: e.policy.RecordFailure,
		LockoutError:  newLockoutError,

		NewOTP: func() (string, error) {
			return internal.NewOTP(e.config.TwoFactor.OTPDigits)
		},
		DeliverOTP: e.notifier.DeliverOTP,

		IssueTokens: func(ctx context.Context, account *flows.AccountRecord) (string, string, error) {
			return flows.RunIssueTokens(ctx, account, e.deps.Tokens)
		},

		MetricInc: e.metricInc,
		EmitAudit: e.emitAudit,
		Warn:      e.warnf,

		Metrics: flows.LoginMetrics{
			LoginSuccess:     int(MetricLoginSuccess),
			LoginFailure:     int(MetricLoginFailure),
			LockoutTriggered: int(MetricLockoutTriggered),
			LockoutRejected:  int(MetricLockoutRejected),
			OTPSent:          int(MetricOTPSent),
			OTPSuccess:       int(MetricOTPSuccess),
			OTPFailure:       int(MetricOTPFailure),
		},
		Events: flows.LoginEvents{
			Login:            EventLogin,
			LockoutTriggered: EventLockoutTriggered,
			LockoutRejected:  EventLockoutRejected,
			OTPSent:          EventOTPSent,
			OTPVerified:      EventOTPVerified,
			DeliveryFailure:  EventDeliveryFailure,
			PasswordUpgraded: EventPasswordUpgraded,
		},
		Errors: flows.LoginErrors{
			EngineNotReady:     ErrEngineNotReady,
			InvalidCredentials: ErrInvalidCredentials,
		},
	}

	e.deps.Reset = flows.ResetDeps{
		TokenTTL:          e.config.PasswordReset.TokenTTL,
		MinPasswordLength: e.config.Password.MinLength,

		FindAccount: e.findActiveByEmail,
		SaveAccount: e.saveAccount,

		NewResetToken: internal.NewResetToken,
		HashSecret:    e.hasher.Hash,
		VerifySecret:  e.hasher.Verify,

		DeliverToken: e.notifier.DeliverResetToken,
		RevokeTokens: e.deps.Tokens.DeleteByAccount,

		MetricInc: e.metricInc,
		EmitAudit: e.emitAudit,
		Warn:      e.warnf,

		Metrics: flows.ResetMetrics{
			ResetRequested: int(MetricResetRequested),
			ResetSuccess:   int(MetricResetSuccess),
			ResetFailure:   int(MetricResetFailure),
		},
		Events: flows.ResetEvents{
			ResetRequested:  EventResetRequested,
			ResetCompleted:  EventResetCompleted,
			DeliveryFailure: EventDeliveryFailure,
		},
		Errors: flows.ResetErrors{
			EngineNotReady:    ErrEngineNotReady,
			ResetTokenInvalid: ErrResetTokenInvalid,
			PasswordPolicy:    ErrPasswordPolicy,
		},
	}
}
