package authcore

import (
	"errors"

	"github.com/tidegate/authcore/internal/audit"
	"github.com/tidegate/authcore/internal/lockout"
	"github.com/tidegate/authcore/internal/metrics"
	"github.com/tidegate/authcore/jwt"
	"github.com/tidegate/authcore/password"
)

// Builder assembles an Engine. A builder is single-use: Build succeeds
// at most once per instance.
type Builder struct {
	config   Config
	accounts AccountStore
	refresh  RefreshTokenStore
	hasher   Hasher
	notifier Notifier
	sink     AuditSink

	built bool
}

// New returns a builder preloaded with the default configuration.
func New() *Builder {
	return &Builder{config: defaultConfig()}
}

// WithConfig replaces the builder's configuration. Zero-valued fields
// are filled with defaults at build time.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithAccountStore sets the account persistence backend. Required.
func (b *Builder) WithAccountStore(store AccountStore) *Builder {
	b.accounts = store
	return b
}

// WithRefreshTokenStore sets the refresh-token persistence backend.
// Required.
func (b *Builder) WithRefreshTokenStore(store RefreshTokenStore) *Builder {
	b.refresh = store
	return b
}

// WithHasher overrides the default Argon2id hasher.
func (b *Builder) WithHasher(h Hasher) *Builder {
	b.hasher = h
	return b
}

// WithNotifier sets the out-of-band delivery channel for OTP codes and
// reset tokens. Defaults to NoOpNotifier.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithAuditSink sets the audit event consumer and enables auditing.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.sink = sink
	b.config.Audit.Enabled = true
	return b
}

// WithMetricsEnabled toggles counter collection.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, assembles the collaborators, and
// returns a ready engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := applyDefaults(b.config)
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if b.accounts == nil {
		return nil, errors.New("account store required")
	}
	if b.refresh == nil {
		return nil, errors.New("refresh token store required")
	}

	engine := &Engine{
		config:   cfg,
		accounts: b.accounts,
		refresh:  b.refresh,
		notifier: b.notifier,
	}
	if engine.notifier == nil {
		engine.notifier = NoOpNotifier{}
	}

	engine.hasher = b.hasher
	if engine.hasher == nil {
		ph, err := password.NewArgon2(cfg.Password.Argon2)
		if err != nil {
			return nil, err
		}
		engine.hasher = ph
	}

	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.Token.AccessTTL,
		RefreshTTL:    cfg.Token.RefreshTTL,
		AccessSecret:  cloneBytes(cfg.Token.AccessSecret),
		RefreshSecret: cloneBytes(cfg.Token.RefreshSecret),
		Issuer:        cfg.Token.Issuer,
		Leeway:        cfg.Token.Leeway,
	})
	if err != nil {
		return nil, err
	}
	engine.jwtManager = jm

	engine.policy = lockout.NewPolicy(lockout.Config{
		Threshold: cfg.Lockout.Threshold,
		Duration:  cfg.Lockout.Duration,
	})
	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.sink)
	engine.metrics = metrics.New(metrics.Config{Enabled: cfg.Metrics.Enabled})

	engine.buildDeps()

	b.built = true
	return engine, nil
}

func cloneBytes(in []byte) []byte {
	if in == nil {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}
