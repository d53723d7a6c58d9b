package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	ListenAddr string `yaml:"listen_addr"`

	// RedisURL enables the live-state mirror when set; the in-memory
	// registry stays authoritative either way.
	RedisURL string `yaml:"redis_url"`

	// MatchTTLSec is the idle-match expiry in seconds; zero disables
	// the janitor.
	MatchTTLSec int `yaml:"match_ttl_sec"`

	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Load reads the optional YAML file named by CONFIG_FILE, then applies
// environment overrides.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:  ":8080",
		MatchTTLSec: 86400,
	}

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_URL")); v != "" {
		cfg.RedisURL = v
	}
	if v := strings.TrimSpace(os.Getenv("MATCH_TTL")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MatchTTLSec = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); v != "" {
		cfg.AllowedOrigins = nil
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, s)
			}
		}
	}

	if strings.TrimSpace(cfg.ListenAddr) == "" {
		return nil, errors.New("LISTEN_ADDR is required")
	}
	return cfg, nil
}

// MatchTTL is MatchTTLSec as a duration.
func (c *AppConfig) MatchTTL() time.Duration {
	return time.Duration(c.MatchTTLSec) * time.Second
}
