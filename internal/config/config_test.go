package config

import (
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("IDENTRA_AUTH_SECRET", strings.Repeat("x", 32))
	t.Setenv("IDENTRA_PG_DSN", "postgres://localhost/identra")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("listen addr = %q", cfg.ListenAddr)
	}
	if cfg.TokenTTL != time.Hour {
		t.Errorf("ttl = %v, want 1h", cfg.TokenTTL)
	}
	if cfg.SlowRequestThreshold != 1000*time.Millisecond {
		t.Errorf("slow threshold = %v", cfg.SlowRequestThreshold)
	}
	if cfg.AuditWriteTimeout != 3*time.Second {
		t.Errorf("audit timeout = %v", cfg.AuditWriteTimeout)
	}
	if cfg.Production {
		t.Error("production must default to false")
	}
}

func TestLoadRejectsShortSecret(t *testing.T) {
	t.Setenv("IDENTRA_AUTH_SECRET", "short")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for short secret")
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("IDENTRA_LISTEN_ADDR", ":9090")
	t.Setenv("IDENTRA_TOKEN_TTL", "30m")
	t.Setenv("IDENTRA_SLOW_THRESHOLD_MS", "250")
	t.Setenv("IDENTRA_AUDIT_WRITE_TIMEOUT", "5s")
	t.Setenv("IDENTRA_ENV", "Production")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":9090" {
		t.Errorf("listen addr = %q", cfg.ListenAddr)
	}
	if cfg.TokenTTL != 30*time.Minute {
		t.Errorf("ttl = %v", cfg.TokenTTL)
	}
	if cfg.SlowRequestThreshold != 250*time.Millisecond {
		t.Errorf("slow threshold = %v", cfg.SlowRequestThreshold)
	}
	if cfg.AuditWriteTimeout != 5*time.Second {
		t.Errorf("audit timeout = %v", cfg.AuditWriteTimeout)
	}
	if !cfg.Production {
		t.Error("production flag not set")
	}
}

func TestLoadRejectsBadDurations(t *testing.T) {
	setRequired(t)
	t.Setenv("IDENTRA_TOKEN_TTL", "-1h")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for negative ttl")
	}
}
