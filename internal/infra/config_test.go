package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("PORT", "")
	t.Setenv("POLL_INTERVAL_MS", "")
	t.Setenv("POLL_MAX_INTERVAL_MS", "")
	t.Setenv("POLL_BACKOFF_FACTOR", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.PollInterval != 2500*time.Millisecond {
		t.Fatalf("PollInterval = %v, want 2.5s", cfg.PollInterval)
	}
	if cfg.PollMaxInterval != 30*time.Second {
		t.Fatalf("PollMaxInterval = %v, want 30s", cfg.PollMaxInterval)
	}
	if cfg.PollBackoff != 1.5 {
		t.Fatalf("PollBackoff = %v, want 1.5", cfg.PollBackoff)
	}
	if cfg.GatewayBaseURL != "https://api.openai.com/v1" {
		t.Fatalf("GatewayBaseURL = %q", cfg.GatewayBaseURL)
	}
}

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for missing DATABASE_URL")
	}
}

func TestLoadConfigRejectsFlatBackoff(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("POLL_BACKOFF_FACTOR", "1.0")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for backoff factor <= 1")
	}
}

func TestLoadConfigRejectsInvertedIntervals(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("POLL_INTERVAL_MS", "5000")
	t.Setenv("POLL_MAX_INTERVAL_MS", "1000")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for max interval below initial interval")
	}
}
