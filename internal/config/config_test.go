package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"DATABASE_URL", "HTTP_ADDR", "JWT_SECRET", "TOKEN_TTL_HOURS",
		"TOKEN_CLEANUP_INTERVAL_HOURS", "REQUEST_TIMEOUT_SECONDS", "REDIS_ADDR", "CACHE_TTL_MINUTES",
		"TELEGRAM_TOKEN", "API_BASE_URL", "TOKEN_FILE"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabaseURL != "task_manager.db" {
		t.Errorf("unexpected DatabaseURL %q", cfg.DatabaseURL)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("unexpected HTTPAddr %q", cfg.HTTPAddr)
	}
	if cfg.TokenTTL != 0 {
		t.Errorf("expected tokens without expiry by default, got %v", cfg.TokenTTL)
	}
	if cfg.TokenCleanupInterval != 24*time.Hour {
		t.Errorf("unexpected cleanup interval %v", cfg.TokenCleanupInterval)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("unexpected request timeout %v", cfg.RequestTimeout)
	}
	if err := cfg.ValidateServer(); err == nil {
		t.Error("expected missing JWT_SECRET to fail validation")
	}
	if err := cfg.ValidateBot(); err == nil {
		t.Error("expected missing TELEGRAM_TOKEN to fail validation")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/tasks")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TOKEN_TTL_HOURS", "12")
	t.Setenv("CACHE_TTL_MINUTES", "0.5")
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "bogus")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabaseURL != "postgres://localhost/tasks" {
		t.Errorf("unexpected DatabaseURL %q", cfg.DatabaseURL)
	}
	if cfg.TokenTTL != 12*time.Hour {
		t.Errorf("unexpected TokenTTL %v", cfg.TokenTTL)
	}
	if cfg.CacheTTL != 30*time.Second {
		t.Errorf("unexpected CacheTTL %v", cfg.CacheTTL)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("invalid timeout should fall back to default, got %v", cfg.RequestTimeout)
	}
	if err := cfg.ValidateServer(); err != nil {
		t.Errorf("ValidateServer: %v", err)
	}
}
