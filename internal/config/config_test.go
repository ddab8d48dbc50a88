package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("API_ADDR", "")
	t.Setenv("SESSION_TTL_SECONDS", "")
	t.Setenv("ALLOW_DEV_FALLBACK", "")
	t.Setenv("NOTIFY_EMAIL_TO", "")

	cfg := Load()
	if cfg.Addr != ":5000" {
		t.Fatalf("expected default addr, got %q", cfg.Addr)
	}
	if cfg.SessionTTL != 7*24*time.Hour {
		t.Fatalf("expected 7 day session ttl, got %s", cfg.SessionTTL)
	}
	if cfg.AllowDevFallback {
		t.Fatal("dev fallback must be off by default")
	}
	if cfg.SerialMaxAttempts != 3 {
		t.Fatalf("expected 3 serial attempts, got %d", cfg.SerialMaxAttempts)
	}
	if len(cfg.NotifyEmails) != 0 {
		t.Fatalf("expected no notify recipients, got %v", cfg.NotifyEmails)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ALLOW_DEV_FALLBACK", "true")
	t.Setenv("DEV_ZOOM_USER_ID", "dev-1")
	t.Setenv("SESSION_TTL_SECONDS", "60")
	t.Setenv("SERIAL_MAX_ATTEMPTS", "not-a-number")
	t.Setenv("NOTIFY_EMAIL_TO", " a@x.com, ,b@x.com ")

	cfg := Load()
	if !cfg.AllowDevFallback || cfg.DevUserID != "dev-1" {
		t.Fatalf("unexpected dev settings: %+v", cfg)
	}
	if cfg.SessionTTL != time.Minute {
		t.Fatalf("expected 1m ttl, got %s", cfg.SessionTTL)
	}
	if cfg.SerialMaxAttempts != 3 {
		t.Fatalf("invalid int should fall back, got %d", cfg.SerialMaxAttempts)
	}
	if len(cfg.NotifyEmails) != 2 || cfg.NotifyEmails[0] != "a@x.com" || cfg.NotifyEmails[1] != "b@x.com" {
		t.Fatalf("unexpected recipients: %v", cfg.NotifyEmails)
	}
}
