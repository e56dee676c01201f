package authengine

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ConfigFromEnv returns DefaultConfig overlaid with AUTHENGINE_* environment
// variables. A .env file in the working directory is loaded first when
// present; real environment variables win over file entries.
//
// Recognized variables:
//
//	AUTHENGINE_ACCESS_TTL           duration, e.g. "10m"
//	AUTHENGINE_REFRESH_TTL          duration
//	AUTHENGINE_SESSION_LIFETIME     duration
//	AUTHENGINE_ISSUER               string
//	AUTHENGINE_AUDIENCE             string
//	AUTHENGINE_KEY_ID               string
//	AUTHENGINE_PRIVATE_KEY_FILE     path to an ed25519 PEM
//	AUTHENGINE_TWO_FACTOR_TTL       duration
//	AUTHENGINE_MAX_LOGIN_ATTEMPTS   int
//	AUTHENGINE_LOGIN_COOLDOWN       duration
//	AUTHENGINE_DEFAULT_ROLE         string
func ConfigFromEnv() (Config, error) {
	// Best-effort: absence of a .env file is the normal case.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	var err error
	if cfg.JWT.AccessTTL, err = envDuration("AUTHENGINE_ACCESS_TTL", cfg.JWT.AccessTTL); err != nil {
		return cfg, err
	}
	if cfg.Session.RefreshTTL, err = envDuration("AUTHENGINE_REFRESH_TTL", cfg.Session.RefreshTTL); err != nil {
		return cfg, err
	}
	if cfg.Session.Lifetime, err = envDuration("AUTHENGINE_SESSION_LIFETIME", cfg.Session.Lifetime); err != nil {
		return cfg, err
	}
	if v := os.Getenv("AUTHENGINE_ISSUER"); v != "" {
		cfg.JWT.Issuer = v
	}
	if v := os.Getenv("AUTHENGINE_AUDIENCE"); v != "" {
		cfg.JWT.Audience = v
	}
	if v := os.Getenv("AUTHENGINE_KEY_ID"); v != "" {
		cfg.JWT.KeyID = v
	}
	if path := os.Getenv("AUTHENGINE_PRIVATE_KEY_FILE"); path != "" {
		pem, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read private key file: %w", err)
		}
		cfg.JWT.PrivateKey = pem
	}
	if cfg.TwoFactor.PendingTTL, err = envDuration("AUTHENGINE_TWO_FACTOR_TTL", cfg.TwoFactor.PendingTTL); err != nil {
		return cfg, err
	}
	if cfg.Security.MaxLoginAttempts, err = envInt("AUTHENGINE_MAX_LOGIN_ATTEMPTS", cfg.Security.MaxLoginAttempts); err != nil {
		return cfg, err
	}
	if cfg.Security.LoginCooldown, err = envDuration("AUTHENGINE_LOGIN_COOLDOWN", cfg.Security.LoginCooldown); err != nil {
		return cfg, err
	}
	if v := os.Getenv("AUTHENGINE_DEFAULT_ROLE"); v != "" {
		cfg.Account.DefaultRole = v
	}

	return cfg, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
