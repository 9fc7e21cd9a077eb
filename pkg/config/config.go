// Package config loads the daemon configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v7"
)

// Transport names accepted for UPSTREAM_TRANSPORT.
const (
	TransportDoT = "dot"
	TransportDoH = "doh"
)

// Config holds the daemon configuration. All values come from the
// environment; the --host/--port/--use-adblocker CLI flags override
// their respective fields after Load.
type Config struct {
	AppName string `env:"APP_NAME" envDefault:"dnsdigd"`
	DBName  string `env:"DB_NAME" envDefault:"dnsdigd"`

	Host string `env:"DNSDIGD_HOST" envDefault:"127.0.0.1"`
	Port int    `env:"DNSDIGD_PORT" envDefault:"5053"`

	MongoURL string `env:"MONGO_URL" envDefault:"mongodb://localhost:27017"`
	RedisURL string `env:"REDIS_URL" envDefault:"redis://localhost:6379"`

	IPInfoHost  string `env:"IPINFO_HOST"`
	IPInfoToken string `env:"IPINFO_TOKEN"`

	// Env is one of dev, staging, prod, test.
	Env string `env:"ENV" envDefault:"dev"`

	// UpstreamTransport selects how the forwarder reaches its upstream
	// resolvers: "dot" (TLS on 853) or "doh" (dns.google JSON API).
	UpstreamTransport string `env:"UPSTREAM_TRANSPORT" envDefault:"dot"`

	// UpstreamTimeout bounds a single upstream query.
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"5s"`

	// CacheMaxTTL caps how long an answer may live in the cache,
	// regardless of the TTL the upstream handed back.
	CacheMaxTTL time.Duration `env:"CACHE_MAX_TTL" envDefault:"24h"`

	// UseAdblocker enables the blocklist lookup against the Redis hash
	// populated by the blacklist importer.
	UseAdblocker bool `env:"USE_ADBLOCKER" envDefault:"false"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
	LogOutput string `env:"LOG_OUTPUT" envDefault:"stdout"`
}

// Load parses the configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	switch c.Env {
	case "dev", "staging", "prod", "test":
	default:
		return fmt.Errorf("invalid env: %q", c.Env)
	}

	switch c.UpstreamTransport {
	case TransportDoT, TransportDoH:
	default:
		return fmt.Errorf("invalid upstream transport: %q", c.UpstreamTransport)
	}

	if c.MongoURL == "" {
		return fmt.Errorf("mongo url must not be empty")
	}
	if c.RedisURL == "" {
		return fmt.Errorf("redis url must not be empty")
	}

	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("upstream timeout must be positive")
	}
	if c.CacheMaxTTL <= 0 {
		return fmt.Errorf("cache max ttl must be positive")
	}

	return nil
}

// ListenAddress returns the host:port the UDP server binds to.
func (c *Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
