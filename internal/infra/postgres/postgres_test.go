package postgres

import (
	"strings"
	"testing"
	"time"

	"github.com/idenegocios/leadpixel/config"
)

func TestPoolConfig_AppliesBounds(t *testing.T) {
	cfg := config.PostgresConfig{
		Host:              "db.internal",
		Port:              5433,
		User:              "app",
		Password:          "s3cret",
		Database:          "leadpixel",
		MaxConns:          7,
		MinConns:          2,
		MaxConnLifetime:   "1h",
		MaxConnIdleTime:   "10m",
		HealthCheckPeriod: "30s",
	}

	poolCfg, err := poolConfig(cfg)
	if err != nil {
		t.Fatalf("poolConfig error: %v", err)
	}
	if poolCfg.MaxConns != 7 {
		t.Fatalf("expected MaxConns 7, got %d", poolCfg.MaxConns)
	}
	if poolCfg.MinConns != 2 {
		t.Fatalf("expected MinConns 2, got %d", poolCfg.MinConns)
	}
	if poolCfg.MaxConnLifetime != time.Hour {
		t.Fatalf("expected MaxConnLifetime 1h, got %v", poolCfg.MaxConnLifetime)
	}
	if poolCfg.MaxConnIdleTime != 10*time.Minute {
		t.Fatalf("expected MaxConnIdleTime 10m, got %v", poolCfg.MaxConnIdleTime)
	}
	if poolCfg.HealthCheckPeriod != 30*time.Second {
		t.Fatalf("expected HealthCheckPeriod 30s, got %v", poolCfg.HealthCheckPeriod)
	}
}

func TestPoolConfig_ZeroKeepsBoundedDefaults(t *testing.T) {
	poolCfg, err := poolConfig(config.PostgresConfig{User: "app", Database: "leadpixel"})
	if err != nil {
		t.Fatalf("poolConfig error: %v", err)
	}
	// pgx defaults are finite; the pool must never be unbounded.
	if poolCfg.MaxConns < 1 {
		t.Fatalf("expected a bounded default MaxConns, got %d", poolCfg.MaxConns)
	}
}

func TestPoolConfig_MalformedDurationKeepsDefault(t *testing.T) {
	poolCfg, err := poolConfig(config.PostgresConfig{
		User:            "app",
		Database:        "leadpixel",
		MaxConnLifetime: "soon",
	})
	if err != nil {
		t.Fatalf("poolConfig error: %v", err)
	}
	if poolCfg.MaxConnLifetime < 0 {
		t.Fatalf("expected default lifetime, got %v", poolCfg.MaxConnLifetime)
	}
}

func TestConnString(t *testing.T) {
	got := ConnString(config.PostgresConfig{
		User:     "app",
		Password: "p@ss/word",
		Database: "leadpixel",
	})
	if !strings.HasPrefix(got, "postgres://") {
		t.Fatalf("expected postgres scheme, got %q", got)
	}
	if !strings.Contains(got, "localhost:5432") {
		t.Fatalf("expected host/port defaults, got %q", got)
	}
	if !strings.Contains(got, "sslmode=disable") {
		t.Fatalf("expected sslmode default, got %q", got)
	}
	if strings.Contains(got, "p@ss/word") {
		t.Fatalf("expected credentials to be escaped, got %q", got)
	}
}
