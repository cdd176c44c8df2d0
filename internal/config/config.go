// Package config loads and validates proxy configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Cache     CacheConfig     `mapstructure:"cache"`
}

// ServerConfig controls the public HTTP listener.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AdminConfig controls the operational listener (health and metrics). The
// public surface serves only the proxy routes, so probes get their own port.
type AdminConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// AuthConfig defines the shared-secret gate. An empty secret with the gate
// enabled rejects every request; that is surfaced per request rather than at
// startup so deployments can roll credentials without restarts failing.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Secret  string `mapstructure:"secret"`
}

// UpstreamConfig points at the lyrics API. Token absence is deliberately not
// validated here; requests that need it fail with a configuration error.
type UpstreamConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	Token          string `mapstructure:"token"`
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// RateLimitConfig selects and tunes the rate limiter. Provider is one of
// "none", "local", or "service".
type RateLimitConfig struct {
	Provider   string  `mapstructure:"provider"`
	IPHeader   string  `mapstructure:"ip_header"`
	RPS        float64 `mapstructure:"rps"`
	Burst      int     `mapstructure:"burst"`
	ServiceURL string  `mapstructure:"service_url"`
	TimeoutMs  int     `mapstructure:"timeout_ms"`
}

// CacheConfig selects and tunes the response cache. Provider is one of
// "none", "memory", or "postgres".
type CacheConfig struct {
	Provider            string `mapstructure:"provider"`
	TTLSeconds          int    `mapstructure:"ttl_seconds"`
	DSN                 string `mapstructure:"dsn"`
	Table               string `mapstructure:"table"`
	MaxConns            int32  `mapstructure:"max_conns"`
	MinConns            int32  `mapstructure:"min_conns"`
	QueueDepth          int    `mapstructure:"queue_depth"`
	WriteTimeoutSeconds int    `mapstructure:"write_timeout_seconds"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PROXY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("admin.port", 9090)
	v.SetDefault("logging.development", true)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.secret", "")
	v.SetDefault("upstream.base_url", "https://api.genius.com")
	v.SetDefault("upstream.token", "")
	v.SetDefault("upstream.user_agent", "nichegeniusproxy/0.1")
	v.SetDefault("upstream.timeout_seconds", 15)
	v.SetDefault("ratelimit.provider", "none")
	v.SetDefault("ratelimit.ip_header", "X-Real-IP")
	v.SetDefault("ratelimit.rps", 10)
	v.SetDefault("ratelimit.burst", 20)
	v.SetDefault("ratelimit.service_url", "")
	v.SetDefault("ratelimit.timeout_ms", 500)
	v.SetDefault("cache.provider", "memory")
	v.SetDefault("cache.ttl_seconds", 86400)
	v.SetDefault("cache.dsn", "")
	v.SetDefault("cache.table", "response_cache")
	v.SetDefault("cache.max_conns", 4)
	v.SetDefault("cache.min_conns", 0)
	v.SetDefault("cache.queue_depth", 256)
	v.SetDefault("cache.write_timeout_seconds", 5)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Admin.Port <= 0 {
		return fmt.Errorf("admin.port must be > 0")
	}
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream.base_url is required")
	}
	if c.Upstream.TimeoutSeconds <= 0 {
		return fmt.Errorf("upstream.timeout_seconds must be > 0")
	}
	switch c.RateLimit.Provider {
	case "none", "local":
	case "service":
		if c.RateLimit.ServiceURL == "" {
			return fmt.Errorf("ratelimit.service_url must be set when ratelimit.provider is service")
		}
	default:
		return fmt.Errorf("ratelimit.provider must be one of none, local, service")
	}
	switch c.Cache.Provider {
	case "none":
	case "memory":
	case "postgres":
		if c.Cache.DSN == "" {
			return fmt.Errorf("cache.dsn must be set when cache.provider is postgres")
		}
	default:
		return fmt.Errorf("cache.provider must be one of none, memory, postgres")
	}
	if c.Cache.Provider != "none" {
		if c.Cache.TTLSeconds <= 0 {
			return fmt.Errorf("cache.ttl_seconds must be > 0")
		}
		if c.Cache.QueueDepth <= 0 {
			return fmt.Errorf("cache.queue_depth must be > 0")
		}
	}
	return nil
}

// UpstreamTimeout converts the upstream timeout config into a duration.
func (c Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.Upstream.TimeoutSeconds) * time.Second
}

// CacheTTL converts the cache TTL config into a duration.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// CacheWriteTimeout converts the background write timeout into a duration.
func (c Config) CacheWriteTimeout() time.Duration {
	return time.Duration(c.Cache.WriteTimeoutSeconds) * time.Second
}

// RateLimitTimeout converts the limiter call timeout into a duration.
func (c Config) RateLimitTimeout() time.Duration {
	return time.Duration(c.RateLimit.TimeoutMs) * time.Millisecond
}
