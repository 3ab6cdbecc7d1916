package config_test

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/iho/gymledger/internal/infrastructure/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL == "" {
		t.Fatalf("expected default database URL to be set")
	}

	if cfg.JWTSecret != "" {
		t.Fatalf("expected JWT secret default to be empty, got %q", cfg.JWTSecret)
	}

	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default HTTP port 8080, got %s", cfg.HTTPPort)
	}

	if cfg.StoreDriver != config.StorePostgres {
		t.Fatalf("expected postgres store by default, got %s", cfg.StoreDriver)
	}

	if cfg.BillingCron != "0 0 * * *" || cfg.OverdueCron != "0 1 * * *" {
		t.Fatalf("unexpected cron defaults %q %q", cfg.BillingCron, cfg.OverdueCron)
	}

	if cfg.Location().String() != "America/Sao_Paulo" {
		t.Fatalf("expected Sao Paulo location, got %s", cfg.Location())
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis://example")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DATABASE_TIMEOUT", "45s")
	t.Setenv("JWT_SECRET", "top-secret")
	t.Setenv("AUTH_ENABLED", "true")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("BILLING_CRON", "30 2 * * *")
	t.Setenv("SCHEDULER_TIMEZONE", "UTC")
	t.Setenv("RATE_LIMIT_RPS", "0")
	t.Setenv("REDIS_POOL_SIZE", "32")
	t.Setenv("DATABASE_RETRIES", "5")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL != "postgres://example" {
		t.Fatalf("expected custom database URL, got %s", cfg.DatabaseURL)
	}

	if cfg.RedisURL != "redis://example" {
		t.Fatalf("expected custom redis URL, got %s", cfg.RedisURL)
	}

	if cfg.RedisPoolSize != 32 || cfg.DatabaseRetries != 5 {
		t.Fatalf("unexpected pool/retry overrides %d %d", cfg.RedisPoolSize, cfg.DatabaseRetries)
	}

	if cfg.HTTPPort != "9090" {
		t.Fatalf("expected HTTP port override, got %s", cfg.HTTPPort)
	}

	if cfg.DatabaseTimeout != 45*time.Second {
		t.Fatalf("expected database timeout override, got %s", cfg.DatabaseTimeout)
	}

	if cfg.JWTSecret != "top-secret" || !cfg.AuthEnabled {
		t.Fatalf("expected auth settings to be set, got secret=%s enabled=%v", cfg.JWTSecret, cfg.AuthEnabled)
	}

	if cfg.StoreDriver != config.StoreMemory || cfg.BillingCron != "30 2 * * *" || cfg.Location() != time.UTC {
		t.Fatalf("unexpected overrides %+v", cfg)
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	original := os.Getenv("HTTP_READ_TIMEOUT")
	t.Setenv("HTTP_READ_TIMEOUT", "not-a-duration")
	t.Cleanup(func() {
		t.Setenv("HTTP_READ_TIMEOUT", original)
	})

	if _, err := config.Load(); err == nil {
		t.Fatalf("expected error for invalid duration")
	}
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{"store driver", "STORE_DRIVER", "sqlite", "STORE_DRIVER"},
		{"timezone", "SCHEDULER_TIMEZONE", "Mars/Olympus", "SCHEDULER_TIMEZONE"},
		{"billing cron", "BILLING_CRON", "every day", "BILLING_CRON"},
		{"overdue cron", "OVERDUE_CRON", "61 * * * *", "OVERDUE_CRON"},
		{"negative retries", "DATABASE_RETRIES", "-1", "DATABASE_RETRIES"},
		{"empty redis pool", "REDIS_POOL_SIZE", "0", "REDIS_POOL_SIZE"},
		{"auth without secret", "AUTH_ENABLED", "true", "JWT_SECRET"},
		{"admin email without password", "BOOTSTRAP_ADMIN_EMAIL", "owner@gym.test", "BOOTSTRAP_ADMIN_PASSWORD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			t.Setenv(tt.key, tt.val)

			_, err := config.Load()
			if err == nil {
				t.Fatalf("expected error for %s=%s", tt.key, tt.val)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %s, got %v", tt.want, err)
			}
		})
	}
}
