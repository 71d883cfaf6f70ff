package authcore

import (
	"time"

	"github.com/tidegate/authcore/password"
)

// SecurityReport is a read-only snapshot of the engine's security
// posture, returned by [Engine.SecurityReport]. It is meant for startup
// logging and operational review, not for runtime decisions.
type SecurityReport struct {
	ProductionMode   bool
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	Argon2           password.Config
	TwoFactorEnabled bool
	OTPEchoEnabled   bool
	LockoutThreshold int
	LockoutDuration  time.Duration
	ResetTokenTTL    time.Duration
	MinPasswordLen   int
	AuditEnabled     bool
	MetricsEnabled   bool
}

// SecurityReport summarizes the hardening-relevant configuration of a
// built engine.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	return SecurityReport{
		ProductionMode:   e.config.Security.Production,
		AccessTTL:        e.config.Token.AccessTTL,
		RefreshTTL:       e.config.Token.RefreshTTL,
		Argon2:           e.config.Password.Argon2,
		TwoFactorEnabled: e.config.TwoFactor.Enabled,
		OTPEchoEnabled:   e.config.TwoFactor.EchoCode,
		LockoutThreshold: e.policy.Threshold(),
		LockoutDuration:  e.policy.Duration(),
		ResetTokenTTL:    e.config.PasswordReset.TokenTTL,
		MinPasswordLen:   e.config.Password.MinLength,
		AuditEnabled:     e.config.Audit.Enabled,
		MetricsEnabled:   e.config.Metrics.Enabled,
	}
}
