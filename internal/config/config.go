package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultListenAddr    = ":8080"
	defaultTokenTTL      = time.Hour
	defaultSlowThreshold = 1000 * time.Millisecond
	defaultAuditTimeout  = 3 * time.Second

	minSecretBytes = 32
)

// Config carries all runtime settings. It is built once at startup and passed
// by reference into constructors; no package reads the environment after that.
type Config struct {
	ListenAddr string
	PostgresDSN string

	TokenSecret   []byte
	TokenIssuer   string
	TokenAudience string
	TokenTTL      time.Duration

	SlowRequestThreshold time.Duration
	AuditWriteTimeout    time.Duration

	Production bool
}

// Load reads configuration from IDENTRA_* environment variables and validates
// the parts that must fail at startup rather than per request.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:           envOr("IDENTRA_LISTEN_ADDR", defaultListenAddr),
		PostgresDSN:          os.Getenv("IDENTRA_PG_DSN"),
		TokenSecret:          []byte(strings.TrimSpace(os.Getenv("IDENTRA_AUTH_SECRET"))),
		TokenIssuer:          envOr("IDENTRA_TOKEN_ISSUER", "identra"),
		TokenAudience:        envOr("IDENTRA_TOKEN_AUDIENCE", "identra-api"),
		TokenTTL:             defaultTokenTTL,
		SlowRequestThreshold: defaultSlowThreshold,
		AuditWriteTimeout:    defaultAuditTimeout,
		Production:           strings.EqualFold(os.Getenv("IDENTRA_ENV"), "production"),
	}

	if raw := os.Getenv("IDENTRA_TOKEN_TTL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("config: invalid IDENTRA_TOKEN_TTL %q", raw)
		}
		cfg.TokenTTL = d
	}
	if raw := os.Getenv("IDENTRA_SLOW_THRESHOLD_MS"); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms <= 0 {
			return nil, fmt.Errorf("config: invalid IDENTRA_SLOW_THRESHOLD_MS %q", raw)
		}
		cfg.SlowRequestThreshold = time.Duration(ms) * time.Millisecond
	}
	if raw := os.Getenv("IDENTRA_AUDIT_WRITE_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("config: invalid IDENTRA_AUDIT_WRITE_TIMEOUT %q", raw)
		}
		cfg.AuditWriteTimeout = d
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces startup invariants.
func (c *Config) Validate() error {
	if len(c.TokenSecret) < minSecretBytes {
		return errors.New("config: IDENTRA_AUTH_SECRET must be at least 32 bytes")
	}
	if strings.TrimSpace(c.TokenIssuer) == "" {
		return errors.New("config: token issuer is required")
	}
	if strings.TrimSpace(c.TokenAudience) == "" {
		return errors.New("config: token audience is required")
	}
	if c.TokenTTL <= 0 {
		return errors.New("config: token ttl must be positive")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
