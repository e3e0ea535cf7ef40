package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaultsAndOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_EXPIRES_IN", "30d")
	t.Setenv("RATE_LIMIT_WINDOW", "15m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("STORE_DRIVER", "Mongo")

	cfg := Load()

	if cfg.JWTExpiresIn != 30*24*time.Hour {
		t.Fatalf("expected 30 days, got %v", cfg.JWTExpiresIn)
	}
	if cfg.RateLimitWindow != 15*time.Minute {
		t.Fatalf("expected 15m window, got %v", cfg.RateLimitWindow)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins: %v", cfg.CORSAllowedOrigins)
	}
	if cfg.StoreDriver != "mongo" {
		t.Fatalf("expected lower-cased driver, got %q", cfg.StoreDriver)
	}
	if cfg.RateLimitCapacity != 150 || cfg.MaxBodyBytes != 1000*1024 {
		t.Fatalf("unexpected limits: %d %d", cfg.RateLimitCapacity, cfg.MaxBodyBytes)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateReportsMissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STORE_DRIVER", "sqlite")

	err := Load().Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !strings.Contains(err.Error(), "JWT_SECRET") || !strings.Contains(err.Error(), "STORE_DRIVER") {
		t.Fatalf("expected both problems reported, got %v", err)
	}
}

func TestGetEnvIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("PORT", "eighty")
	if got := getEnvInt("PORT", 8080); got != 8080 {
		t.Fatalf("expected fallback, got %d", got)
	}
}
