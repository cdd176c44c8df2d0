package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Admin.Port != 9090 {
		t.Fatalf("expected default admin port 9090, got %d", cfg.Admin.Port)
	}
	if cfg.Upstream.BaseURL != "https://api.genius.com" {
		t.Fatalf("expected default upstream base url, got %q", cfg.Upstream.BaseURL)
	}
	if cfg.Auth.Enabled {
		t.Fatal("expected auth gate disabled by default")
	}
	if cfg.Cache.Provider != "memory" {
		t.Fatalf("expected default cache provider memory, got %q", cfg.Cache.Provider)
	}
	if cfg.RateLimit.Provider != "none" {
		t.Fatalf("expected default ratelimit provider none, got %q", cfg.RateLimit.Provider)
	}
	if cfg.RateLimit.RPS != 10 || cfg.RateLimit.Burst != 20 {
		t.Fatalf("expected default bucket rps=10 burst=20, got %+v", cfg.RateLimit)
	}
	if got := cfg.RateLimitTimeout(); got != 500*time.Millisecond {
		t.Fatalf("expected limiter timeout 500ms, got %v", got)
	}
	if got := cfg.UpstreamTimeout(); got != 15*time.Second {
		t.Fatalf("expected upstream timeout 15s, got %v", got)
	}
	if got := cfg.CacheTTL(); got != 24*time.Hour {
		t.Fatalf("expected cache ttl 24h, got %v", got)
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 8088
admin:
  port: 9099
logging:
  development: false
auth:
  enabled: true
  secret: hush
upstream:
  base_url: https://api.example.test
  token: upstream-token
  user_agent: test-agent
  timeout_seconds: 30
ratelimit:
  provider: local
  ip_header: CF-Connecting-IP
  rps: 2.5
  burst: 5
cache:
  provider: postgres
  ttl_seconds: 3600
  dsn: postgres://proxy:pw@localhost:5432/proxy
  table: edge_cache
  queue_depth: 64
  write_timeout_seconds: 3
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8088 || cfg.Admin.Port != 9099 {
		t.Fatalf("expected port overrides, got %d/%d", cfg.Server.Port, cfg.Admin.Port)
	}
	if cfg.Logging.Development {
		t.Fatal("expected production logging")
	}
	if !cfg.Auth.Enabled || cfg.Auth.Secret != "hush" {
		t.Fatal("expected auth overrides to apply")
	}
	if cfg.Upstream.Token != "upstream-token" || cfg.Upstream.UserAgent != "test-agent" {
		t.Fatalf("expected upstream overrides, got %+v", cfg.Upstream)
	}
	if cfg.RateLimit.Provider != "local" || cfg.RateLimit.IPHeader != "CF-Connecting-IP" {
		t.Fatalf("expected ratelimit overrides, got %+v", cfg.RateLimit)
	}
	if cfg.RateLimit.RPS != 2.5 || cfg.RateLimit.Burst != 5 {
		t.Fatalf("expected bucket overrides, got %+v", cfg.RateLimit)
	}
	if cfg.Cache.Provider != "postgres" || cfg.Cache.Table != "edge_cache" {
		t.Fatalf("expected cache overrides, got %+v", cfg.Cache)
	}
	if got := cfg.UpstreamTimeout(); got != 30*time.Second {
		t.Fatalf("expected upstream timeout 30s, got %v", got)
	}
	if got := cfg.CacheWriteTimeout(); got != 3*time.Second {
		t.Fatalf("expected write timeout 3s, got %v", got)
	}
}

func TestLoadAllowsMissingCredentials(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
auth:
  enabled: true
upstream:
  token: ""
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() should tolerate missing secret and token, got %v", err)
	}
	if cfg.Auth.Secret != "" || cfg.Upstream.Token != "" {
		t.Fatalf("expected empty credentials, got %+v / %+v", cfg.Auth, cfg.Upstream)
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Server:    ServerConfig{Port: 8080},
		Admin:     AdminConfig{Port: 9090},
		Upstream:  UpstreamConfig{BaseURL: "https://api.genius.com", TimeoutSeconds: 15},
		RateLimit: RateLimitConfig{Provider: "none"},
		Cache:     CacheConfig{Provider: "memory", TTLSeconds: 60, QueueDepth: 16},
	}

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "invalid port",
			cfg: func() Config {
				c := base
				c.Server.Port = 0
				return c
			}(),
			want: "server.port",
		},
		{
			name: "invalid admin port",
			cfg: func() Config {
				c := base
				c.Admin.Port = 0
				return c
			}(),
			want: "admin.port",
		},
		{
			name: "missing base url",
			cfg: func() Config {
				c := base
				c.Upstream.BaseURL = ""
				return c
			}(),
			want: "upstream.base_url",
		},
		{
			name: "invalid upstream timeout",
			cfg: func() Config {
				c := base
				c.Upstream.TimeoutSeconds = 0
				return c
			}(),
			want: "upstream.timeout_seconds",
		},
		{
			name: "unknown ratelimit provider",
			cfg: func() Config {
				c := base
				c.RateLimit.Provider = "redis"
				return c
			}(),
			want: "ratelimit.provider",
		},
		{
			name: "service provider without url",
			cfg: func() Config {
				c := base
				c.RateLimit.Provider = "service"
				return c
			}(),
			want: "ratelimit.service_url",
		},
		{
			name: "unknown cache provider",
			cfg: func() Config {
				c := base
				c.Cache.Provider = "disk"
				return c
			}(),
			want: "cache.provider",
		},
		{
			name: "postgres without dsn",
			cfg: func() Config {
				c := base
				c.Cache.Provider = "postgres"
				return c
			}(),
			want: "cache.dsn",
		},
		{
			name: "invalid ttl",
			cfg: func() Config {
				c := base
				c.Cache.TTLSeconds = 0
				return c
			}(),
			want: "cache.ttl_seconds",
		},
		{
			name: "invalid queue depth",
			cfg: func() Config {
				c := base
				c.Cache.QueueDepth = 0
				return c
			}(),
			want: "cache.queue_depth",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
