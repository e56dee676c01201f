package authengine

import (
	"errors"
	"time"

	"github.com/pulsefit/authengine/password"
)

// Config is the engine's full configuration. Zero values are filled from
// DefaultConfig by the Builder; Validate runs at Build time.
type Config struct {
	JWT       JWTConfig
	Session   SessionConfig
	TwoFactor TwoFactorConfig
	Password  password.Config
	Security  SecurityConfig
	Account   AccountConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

// JWTConfig controls access-token issuance. PrivateKey/PublicKey accept raw
// ed25519 bytes or PEM; when both are empty the Builder generates an
// ephemeral key pair at startup.
type JWTConfig struct {
	AccessTTL  time.Duration
	Issuer     string
	Audience   string
	Leeway     time.Duration
	KeyID      string
	PrivateKey []byte
	PublicKey  []byte
}

// SessionConfig controls session and refresh-token lifetimes. RefreshTTL is
// the sliding per-token lifetime renewed on every rotation; Lifetime is the
// absolute cap on the session itself.
type SessionConfig struct {
	RefreshTTL time.Duration
	Lifetime   time.Duration
}

// TwoFactorConfig controls the staged login and the default TOTP verifier.
type TwoFactorConfig struct {
	// PendingTTL bounds stage-one state; expired pending sessions can
	// never be completed.
	PendingTTL time.Duration
	// BindClientMetadata rejects stage-two calls whose IP or User-Agent
	// differ from stage one.
	BindClientMetadata bool

	Issuer    string
	Digits    int
	Period    int
	Skew      int
	Algorithm string
}

// SecurityConfig tunes the built-in throttle.
type SecurityConfig struct {
	EnableIPThrottle bool
	MaxLoginAttempts int
	LoginCooldown    time.Duration

	EnableRefreshThrottle bool
	MaxRefreshAttempts    int
	RefreshCooldown       time.Duration

	MaxTwoFactorAttempts int
}

// AccountConfig controls registration defaults.
type AccountConfig struct {
	DefaultRole   string
	DefaultStatus AccountStatus
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull sheds events under backpressure instead of blocking the
	// emitting operation. Dropped counts are visible via AuditDropped.
	DropIfFull bool
}

// MetricsConfig controls the in-process metrics counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL: 10 * time.Minute,
			Issuer:    "authengine",
			Leeway:    30 * time.Second,
		},
		Session: SessionConfig{
			RefreshTTL: 14 * 24 * time.Hour,
			Lifetime:   30 * 24 * time.Hour,
		},
		TwoFactor: TwoFactorConfig{
			PendingTTL:         5 * time.Minute,
			BindClientMetadata: true,
			Issuer:             "PulseFit",
			Digits:             6,
			Period:             30,
			Skew:               1,
			Algorithm:          "SHA1",
		},
		Password: password.Config{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Security: SecurityConfig{
			EnableIPThrottle:      true,
			MaxLoginAttempts:      10,
			LoginCooldown:         15 * time.Minute,
			EnableRefreshThrottle: false,
			MaxRefreshAttempts:    30,
			RefreshCooldown:       time.Minute,
			MaxTwoFactorAttempts:  5,
		},
		Account: AccountConfig{
			DefaultRole:   "member",
			DefaultStatus: AccountActive,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate checks cross-field consistency. Called by the Builder; exported
// so embedders can validate loaded configuration early.
func (c *Config) Validate() error {
	if c.JWT.AccessTTL <= 0 || c.JWT.AccessTTL > time.Hour {
		return errors.New("access TTL must be in (0, 1h]")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("leeway must be in [0, 2m]")
	}
	if c.Session.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("refresh TTL must exceed access TTL")
	}
	if c.Session.Lifetime < c.Session.RefreshTTL {
		return errors.New("session lifetime must be >= refresh TTL")
	}
	if c.TwoFactor.PendingTTL <= 0 || c.TwoFactor.PendingTTL > 15*time.Minute {
		return errors.New("two-factor pending TTL must be in (0, 15m]")
	}
	if c.TwoFactor.Digits < 6 || c.TwoFactor.Digits > 10 {
		return errors.New("totp digits must be in [6, 10]")
	}
	if c.TwoFactor.Period <= 0 {
		return errors.New("totp period must be positive")
	}
	if c.TwoFactor.Skew < 0 || c.TwoFactor.Skew > 2 {
		return errors.New("totp skew must be in [0, 2]")
	}
	if c.Security.MaxLoginAttempts <= 0 {
		return errors.New("max login attempts must be positive")
	}
	if c.Security.LoginCooldown <= 0 {
		return errors.New("login cooldown must be positive")
	}
	if c.Security.EnableRefreshThrottle {
		if c.Security.MaxRefreshAttempts <= 0 || c.Security.RefreshCooldown <= 0 {
			return errors.New("refresh throttle requires positive budget and cooldown")
		}
	}
	if c.Security.MaxTwoFactorAttempts <= 0 {
		return errors.New("max two-factor attempts must be positive")
	}
	if c.Account.DefaultRole == "" {
		return errors.New("default role must be set")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("audit buffer size must be positive")
	}
	if _, err := password.New(c.Password); err != nil {
		return err
	}
	return nil
}

// cloneConfig deep-copies the key slices so post-Build mutation of the
// caller's Config cannot affect the engine.
func cloneConfig(c Config) Config {
	out := c
	out.JWT.PrivateKey = append([]byte(nil), c.JWT.PrivateKey...)
	out.JWT.PublicKey = append([]byte(nil), c.JWT.PublicKey...)
	return out
}
