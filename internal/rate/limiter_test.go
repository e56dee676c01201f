package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return New(client, cfg), mr
}

func TestLoginBudgetExhaustion(t *testing.T) {
	l, _ := newTestLimiter(t, Config{
		MaxLoginAttempts: 3,
		LoginCooldown:    time.Minute,
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.RecordLoginFailure(ctx, "runner@example.com", ""); err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}

	if err := l.RecordLoginFailure(ctx, "runner@example.com", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if err := l.CheckLogin(ctx, "runner@example.com", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("CheckLogin after exhaustion: %v", err)
	}
}

func TestLoginWindowExpires(t *testing.T) {
	l, mr := newTestLimiter(t, Config{
		MaxLoginAttempts: 1,
		LoginCooldown:    time.Minute,
	})
	ctx := context.Background()

	if err := l.RecordLoginFailure(ctx, "runner@example.com", ""); err != nil {
		t.Fatalf("first failure: %v", err)
	}
	if err := l.RecordLoginFailure(ctx, "runner@example.com", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if err := l.CheckLogin(ctx, "runner@example.com", ""); err != nil {
		t.Fatalf("after window: %v", err)
	}
}

func TestResetLoginClearsCounters(t *testing.T) {
	l, _ := newTestLimiter(t, Config{
		EnableIPThrottle: true,
		MaxLoginAttempts: 1,
		LoginCooldown:    time.Minute,
	})
	ctx := context.Background()

	_ = l.RecordLoginFailure(ctx, "runner@example.com", "10.0.0.9")
	if err := l.ResetLogin(ctx, "runner@example.com", "10.0.0.9"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	attempts, err := l.LoginAttempts(ctx, "runner@example.com")
	if err != nil {
		t.Fatalf("attempts: %v", err)
	}
	if attempts != 0 {
		t.Fatalf("expected 0 attempts after reset, got %d", attempts)
	}
}

func TestIPThrottleIndependentOfIdentifier(t *testing.T) {
	l, _ := newTestLimiter(t, Config{
		EnableIPThrottle: true,
		MaxLoginAttempts: 2,
		LoginCooldown:    time.Minute,
	})
	ctx := context.Background()

	// Different identifiers, same source IP: the IP budget still trips.
	_ = l.RecordLoginFailure(ctx, "a@example.com", "10.0.0.9")
	_ = l.RecordLoginFailure(ctx, "b@example.com", "10.0.0.9")
	err := l.RecordLoginFailure(ctx, "c@example.com", "10.0.0.9")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected IP budget exhaustion, got %v", err)
	}
}

func TestRefreshThrottleDisabledByDefault(t *testing.T) {
	l, _ := newTestLimiter(t, Config{})
	if err := l.CheckRefresh(context.Background(), "tok"); err != nil {
		t.Fatalf("disabled throttle should pass, got %v", err)
	}
}

func TestRefreshBudget(t *testing.T) {
	l, _ := newTestLimiter(t, Config{
		EnableRefreshThrottle: true,
		MaxRefreshAttempts:    2,
		RefreshCooldown:       time.Minute,
	})
	ctx := context.Background()

	if err := l.CheckRefresh(ctx, "tok"); err != nil {
		t.Fatalf("first: %v", err)
	}
	if err := l.CheckRefresh(ctx, "tok"); err != nil {
		t.Fatalf("second: %v", err)
	}
	if err := l.CheckRefresh(ctx, "tok"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestTwoFactorBudget(t *testing.T) {
	l, _ := newTestLimiter(t, Config{
		MaxTwoFactorAttempts: 5,
		TwoFactorCooldown:    5 * time.Minute,
	})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := l.RecordTwoFactorFailure(ctx, "pending-1"); err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}
	if err := l.RecordTwoFactorFailure(ctx, "pending-1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	// Budgets are per pending session.
	if err := l.RecordTwoFactorFailure(ctx, "pending-2"); err != nil {
		t.Fatalf("other session: %v", err)
	}
}

func TestRedisDownWrapsUnavailable(t *testing.T) {
	l, mr := newTestLimiter(t, Config{
		MaxLoginAttempts: 3,
		LoginCooldown:    time.Minute,
	})
	mr.Close()

	err := l.RecordLoginFailure(context.Background(), "runner@example.com", "")
	if !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
