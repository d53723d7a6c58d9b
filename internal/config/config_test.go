package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("LISTEN_ADDR", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("MATCH_TTL", "")
	t.Setenv("ALLOWED_ORIGINS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("unexpected listen addr: %s", cfg.ListenAddr)
	}
	if cfg.MatchTTL() != 24*time.Hour {
		t.Fatalf("unexpected ttl: %s", cfg.MatchTTL())
	}
	if cfg.RedisURL != "" || len(cfg.AllowedOrigins) != 0 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("REDIS_URL", "redis://localhost:6379/2")
	t.Setenv("MATCH_TTL", "600")
	t.Setenv("ALLOWED_ORIGINS", "example.com, arena.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != ":9090" || cfg.RedisURL != "redis://localhost:6379/2" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.MatchTTL() != 10*time.Minute {
		t.Fatalf("unexpected ttl: %s", cfg.MatchTTL())
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "arena.example.com" {
		t.Fatalf("unexpected origins: %v", cfg.AllowedOrigins)
	}
}

func TestLoadYAMLFileWithEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arena.yaml")
	body := "listen_addr: \":7070\"\nmatch_ttl_sec: 120\nallowed_origins:\n  - example.com\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LISTEN_ADDR", ":6060") // env wins over file
	t.Setenv("REDIS_URL", "")
	t.Setenv("MATCH_TTL", "")
	t.Setenv("ALLOWED_ORIGINS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != ":6060" {
		t.Fatalf("env override lost: %s", cfg.ListenAddr)
	}
	if cfg.MatchTTLSec != 120 {
		t.Fatalf("file value lost: %d", cfg.MatchTTLSec)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "example.com" {
		t.Fatalf("unexpected origins: %v", cfg.AllowedOrigins)
	}
}
