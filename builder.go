package authengine

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pulsefit/authengine/internal/rate"
	jwtmanager "github.com/pulsefit/authengine/jwt"
	"github.com/pulsefit/authengine/password"
	"github.com/pulsefit/authengine/store"
)

// Builder assembles an Engine. Construction is allocation-only; no I/O
// happens before Build returns.
type Builder struct {
	config       *Config
	store        store.Store
	provider     IdentityProvider
	redis        redis.UniversalClient
	throttle     Throttle
	secondFactor SecondFactorVerifier
	auditSink    AuditSink
	logger       *zap.Logger
}

// New starts a Builder with default configuration.
func New() *Builder {
	return &Builder{}
}

// WithConfig replaces the default configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = &cfg
	return b
}

// WithStore injects the durable store. Required.
func (b *Builder) WithStore(st store.Store) *Builder {
	b.store = st
	return b
}

// WithIdentityProvider injects the caller's user database adapter. Required.
func (b *Builder) WithIdentityProvider(p IdentityProvider) *Builder {
	b.provider = p
	return b
}

// WithRedis enables the built-in Redis throttle. Ignored when WithThrottle
// is also set.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithThrottle injects a custom attempt-budget implementation. Without this
// or WithRedis, throttling is disabled.
func (b *Builder) WithThrottle(t Throttle) *Builder {
	b.throttle = t
	return b
}

// WithSecondFactorVerifier overrides the default TOTP verifier.
func (b *Builder) WithSecondFactorVerifier(v SecondFactorVerifier) *Builder {
	b.secondFactor = v
	return b
}

// WithAuditSink injects the audit destination. Without it, audit events are
// discarded.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger injects a zap logger for best-effort warnings. Defaults to
// zap.NewNop().
func (b *Builder) WithLogger(log *zap.Logger) *Builder {
	b.logger = log
	return b
}

// Build validates configuration and wires the engine. The returned Engine
// is safe for concurrent use.
func (b *Builder) Build() (*Engine, error) {
	cfg := DefaultConfig()
	if b.config != nil {
		cfg = cloneConfig(*b.config)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if b.store == nil {
		return nil, errors.New("store is required")
	}
	if b.provider == nil {
		return nil, errors.New("identity provider is required")
	}

	hasher, err := password.New(cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("password: %w", err)
	}

	// No configured key means an ephemeral pair: tokens do not survive a
	// restart, which is acceptable for single-instance dev setups only.
	if len(cfg.JWT.PrivateKey) == 0 && len(cfg.JWT.PublicKey) == 0 {
		_, priv, err := jwtmanager.GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("generate signing key: %w", err)
		}
		cfg.JWT.PrivateKey = priv
	}

	tokens, err := jwtmanager.NewManager(jwtmanager.Config{
		AccessTTL:  cfg.JWT.AccessTTL,
		Issuer:     cfg.JWT.Issuer,
		Audience:   cfg.JWT.Audience,
		Leeway:     cfg.JWT.Leeway,
		KeyID:      cfg.JWT.KeyID,
		PrivateKey: cfg.JWT.PrivateKey,
		PublicKey:  cfg.JWT.PublicKey,
	})
	if err != nil {
		return nil, fmt.Errorf("jwt: %w", err)
	}

	// Hashed once at startup so unknown-identifier logins burn the same
	// argon2 work as real ones.
	dummyHash, err := hasher.Hash("dummy-" + uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("dummy hash: %w", err)
	}

	throttle := b.throttle
	if throttle == nil && b.redis != nil {
		throttle = rate.New(b.redis, rate.Config{
			EnableIPThrottle:      cfg.Security.EnableIPThrottle,
			EnableRefreshThrottle: cfg.Security.EnableRefreshThrottle,
			MaxLoginAttempts:      cfg.Security.MaxLoginAttempts,
			LoginCooldown:         cfg.Security.LoginCooldown,
			MaxRefreshAttempts:    cfg.Security.MaxRefreshAttempts,
			RefreshCooldown:       cfg.Security.RefreshCooldown,
			MaxTwoFactorAttempts:  cfg.Security.MaxTwoFactorAttempts,
			TwoFactorCooldown:     cfg.TwoFactor.PendingTTL,
		})
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	totp := newTOTPManager(cfg.TwoFactor)

	secondFactor := b.secondFactor
	if secondFactor == nil {
		secondFactor = &totpVerifier{provider: b.provider, manager: totp}
	}

	e := &Engine{
		config:       cfg,
		store:        b.store,
		provider:     b.provider,
		throttle:     throttle,
		secondFactor: secondFactor,
		totp:         totp,
		tokens:       tokens,
		hasher:       hasher,
		dummyHash:    dummyHash,
		metrics:      NewMetrics(cfg.Metrics),
		audit:        newAuditDispatcher(cfg.Audit, b.auditSink),
		log:          logger,
	}

	return e, nil
}
