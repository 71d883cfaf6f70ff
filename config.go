package authcore

import (
	"errors"
	"time"

	"github.com/tidegate/authcore/password"
)

// TokenConfig holds signing material and lifetimes for the JWT pair.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Leeway        time.Duration
}

// LockoutConfig controls the progressive lockout applied to failed
// credential and OTP verifications.
type LockoutConfig struct {
	Threshold int
	Duration  time.Duration
}

// TwoFactorConfig controls the OTP second factor.
type TwoFactorConfig struct {
	Enabled   bool
	OTPDigits int
	// EchoCode returns the generated code in login results instead of
	// relying on the Notifier. Development only; Build rejects it when
	// Security.Production is set.
	EchoCode bool
}

// PasswordResetConfig controls reset-token issuance.
type PasswordResetConfig struct {
	TokenTTL time.Duration
}

// PasswordConfig controls password hashing and policy.
type PasswordConfig struct {
	MinLength int
	Argon2    password.Config
	// DisableUpgradeOnLogin keeps stored hashes as-is. By default a
	// successful verification rehashes passwords whose parameters lag
	// behind the current configuration.
	DisableUpgradeOnLogin bool
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls counter collection.
type MetricsConfig struct {
	Enabled bool
}

// SecurityConfig holds hardening switches.
type SecurityConfig struct {
	// Production tightens validation: development conveniences such as
	// TwoFactor.EchoCode are rejected at build time.
	Production bool
}

// Config is the full engine configuration. Zero values fall back to the
// defaults applied by Build.
type Config struct {
	Token         TokenConfig
	Lockout       LockoutConfig
	TwoFactor     TwoFactorConfig
	PasswordReset PasswordResetConfig
	Password      PasswordConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
	Security      SecurityConfig
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 60 * 24 * time.Hour,
		},
		Lockout: LockoutConfig{
			Threshold: 5,
			Duration:  60 * time.Minute,
		},
		TwoFactor: TwoFactorConfig{
			OTPDigits: 6,
		},
		PasswordReset: PasswordResetConfig{
			TokenTTL: time.Hour,
		},
		Password: PasswordConfig{
			MinLength: 8,
			Argon2: password.Config{
				Memory:      64 * 1024,
				Time:        3,
				Parallelism: 2,
				SaltLength:  16,
				KeyLength:   32,
			},
		},
		Audit: AuditConfig{
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// applyDefaults fills zero-valued fields with defaults without touching
// what the caller set explicitly.
func applyDefaults(cfg Config) Config {
	def := defaultConfig()

	if cfg.Token.AccessTTL <= 0 {
		cfg.Token.AccessTTL = def.Token.AccessTTL
	}
	if cfg.Token.RefreshTTL <= 0 {
		cfg.Token.RefreshTTL = def.Token.RefreshTTL
	}
	if cfg.Lockout.Threshold <= 0 {
		cfg.Lockout.Threshold = def.Lockout.Threshold
	}
	if cfg.Lockout.Duration <= 0 {
		cfg.Lockout.Duration = def.Lockout.Duration
	}
	if cfg.TwoFactor.OTPDigits <= 0 {
		cfg.TwoFactor.OTPDigits = def.TwoFactor.OTPDigits
	}
	if cfg.PasswordReset.TokenTTL <= 0 {
		cfg.PasswordReset.TokenTTL = def.PasswordReset.TokenTTL
	}
	if cfg.Password.MinLength <= 0 {
		cfg.Password.MinLength = def.Password.MinLength
	}
	if cfg.Password.Argon2 == (password.Config{}) {
		cfg.Password.Argon2 = def.Password.Argon2
	}
	if cfg.Audit.BufferSize <= 0 {
		cfg.Audit.BufferSize = def.Audit.BufferSize
	}

	return cfg
}

func validateConfig(cfg Config) error {
	if len(cfg.Token.AccessSecret) < 32 {
		return errors.New("access secret must be at least 32 bytes")
	}
	if len(cfg.Token.RefreshSecret) < 32 {
		return errors.New("refresh secret must be at least 32 bytes")
	}
	if cfg.Token.AccessTTL >= cfg.Token.RefreshTTL {
		return errors.New("access TTL must be shorter than refresh TTL")
	}
	if cfg.TwoFactor.OTPDigits < 6 || cfg.TwoFactor.OTPDigits > 10 {
		return errors.New("otp digits must be between 6 and 10")
	}
	if cfg.Security.Production && cfg.TwoFactor.EchoCode {
		return errors.New("otp echo is not allowed in production mode")
	}
	return nil
}
