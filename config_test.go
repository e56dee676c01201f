package authengine

import (
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero access TTL", func(c *Config) { c.JWT.AccessTTL = 0 }},
		{"access TTL above cap", func(c *Config) { c.JWT.AccessTTL = 2 * time.Hour }},
		{"excessive leeway", func(c *Config) { c.JWT.Leeway = 5 * time.Minute }},
		{"refresh TTL below access TTL", func(c *Config) { c.Session.RefreshTTL = time.Minute }},
		{"lifetime below refresh TTL", func(c *Config) { c.Session.Lifetime = time.Hour }},
		{"zero pending TTL", func(c *Config) { c.TwoFactor.PendingTTL = 0 }},
		{"pending TTL above cap", func(c *Config) { c.TwoFactor.PendingTTL = time.Hour }},
		{"totp digits too low", func(c *Config) { c.TwoFactor.Digits = 4 }},
		{"totp skew too wide", func(c *Config) { c.TwoFactor.Skew = 5 }},
		{"zero login attempts", func(c *Config) { c.Security.MaxLoginAttempts = 0 }},
		{"refresh throttle without budget", func(c *Config) {
			c.Security.EnableRefreshThrottle = true
			c.Security.MaxRefreshAttempts = 0
		}},
		{"zero two-factor attempts", func(c *Config) { c.Security.MaxTwoFactorAttempts = 0 }},
		{"empty default role", func(c *Config) { c.Account.DefaultRole = "" }},
		{"zero audit buffer", func(c *Config) { c.Audit.BufferSize = 0 }},
		{"argon memory below floor", func(c *Config) { c.Password.Memory = 1024 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCloneConfigIsolatesKeyMaterial(t *testing.T) {
	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = []byte{1, 2, 3}

	cloned := cloneConfig(cfg)
	cfg.JWT.PrivateKey[0] = 99

	if cloned.JWT.PrivateKey[0] != 1 {
		t.Fatal("expected cloned key material to be independent")
	}
}

func TestConfigFromEnvOverrides(t *testing.T) {
	t.Setenv("AUTHENGINE_ACCESS_TTL", "5m")
	t.Setenv("AUTHENGINE_ISSUER", "pulsefit-prod")
	t.Setenv("AUTHENGINE_MAX_LOGIN_ATTEMPTS", "4")
	t.Setenv("AUTHENGINE_DEFAULT_ROLE", "athlete")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv failed: %v", err)
	}
	if cfg.JWT.AccessTTL != 5*time.Minute {
		t.Fatalf("expected 5m access TTL, got %v", cfg.JWT.AccessTTL)
	}
	if cfg.JWT.Issuer != "pulsefit-prod" {
		t.Fatalf("expected issuer override, got %q", cfg.JWT.Issuer)
	}
	if cfg.Security.MaxLoginAttempts != 4 {
		t.Fatalf("expected 4 attempts, got %d", cfg.Security.MaxLoginAttempts)
	}
	if cfg.Account.DefaultRole != "athlete" {
		t.Fatalf("expected role override, got %q", cfg.Account.DefaultRole)
	}
	// Untouched fields keep their defaults.
	if cfg.Session.RefreshTTL != 14*24*time.Hour {
		t.Fatalf("expected default refresh TTL, got %v", cfg.Session.RefreshTTL)
	}
}

func TestConfigFromEnvRejectsMalformedDuration(t *testing.T) {
	t.Setenv("AUTHENGINE_ACCESS_TTL", "not-a-duration")

	if _, err := ConfigFromEnv(); err == nil {
		t.Fatal("expected error for malformed duration")
	}
}
