// Package config loads catalog-proxy settings from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/Sternrassler/catalog-client/pkg/auth"
	"github.com/Sternrassler/catalog-client/pkg/client"
	"github.com/Sternrassler/catalog-client/pkg/logging"
	"github.com/redis/go-redis/v9"
)

const (
	defaultHTTPAddr          = ":8080"
	defaultUserAgent         = "catalog-proxy/0.1.0"
	defaultRateLimit         = 5
	defaultShutdownTimeout   = 10 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second
)

// Proxy holds catalog-proxy configuration.
type Proxy struct {
	CatalogURL        string
	CatalogPassword   string
	CatalogTimeout    time.Duration
	CatalogRateLimit  int
	CatalogUserAgent  string
	RedisURL          string
	HTTPAddr          string
	LogLevel          logging.LogLevel
	LogPretty         bool
	ShutdownTimeout   time.Duration
	ReadHeaderTimeout time.Duration
}

// Load reads the proxy configuration. Unset variables take their defaults;
// malformed values are rejected with the variable name.
func Load() (Proxy, error) {
	cfg := Proxy{
		CatalogURL:        getEnv("CATALOG_API_URL", client.DefaultEndpoint),
		CatalogPassword:   getEnv("CATALOG_PASSWORD", auth.DefaultPassword),
		CatalogUserAgent:  getEnv("CATALOG_USER_AGENT", defaultUserAgent),
		RedisURL:          getEnv("REDIS_URL", ""),
		HTTPAddr:          getEnv("HTTP_ADDR", defaultHTTPAddr),
		ReadHeaderTimeout: defaultReadHeaderTimeout,
	}

	var err error
	if cfg.CatalogTimeout, err = getDuration("CATALOG_TIMEOUT", client.DefaultTimeout); err != nil {
		return Proxy{}, err
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", defaultShutdownTimeout); err != nil {
		return Proxy{}, err
	}
	if cfg.CatalogRateLimit, err = getInt("CATALOG_RATE_LIMIT", defaultRateLimit); err != nil {
		return Proxy{}, err
	}
	if cfg.CatalogRateLimit < 0 {
		return Proxy{}, fmt.Errorf("CATALOG_RATE_LIMIT must be >= 0")
	}
	if cfg.LogPretty, err = getBool("LOG_PRETTY", false); err != nil {
		return Proxy{}, err
	}
	if cfg.LogLevel, err = logging.ParseLevel(getEnv("LOG_LEVEL", string(logging.LevelInfo))); err != nil {
		return Proxy{}, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	if u, err := url.Parse(cfg.CatalogURL); err != nil || !u.IsAbs() {
		return Proxy{}, fmt.Errorf("CATALOG_API_URL must be an absolute URL")
	}
	if cfg.RedisURL != "" {
		if _, err := redis.ParseURL(cfg.RedisURL); err != nil {
			return Proxy{}, fmt.Errorf("REDIS_URL: %w", err)
		}
	}

	return cfg, nil
}

// ClientConfig maps the proxy settings onto a catalog client configuration.
// The Redis connection is supplied by the caller.
func (p Proxy) ClientConfig() client.Config {
	cfg := client.DefaultConfig()
	cfg.Endpoint = p.CatalogURL
	cfg.Password = p.CatalogPassword
	cfg.UserAgent = p.CatalogUserAgent
	cfg.Timeout = p.CatalogTimeout
	cfg.RateLimit = p.CatalogRateLimit
	return cfg
}

// RedisOptions returns connection options for REDIS_URL, or nil when unset.
func (p Proxy) RedisOptions() *redis.Options {
	if p.RedisURL == "" {
		return nil
	}
	opts, err := redis.ParseURL(p.RedisURL)
	if err != nil {
		return nil
	}
	return opts
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration (got %q)", key, raw)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer (got %q)", key, raw)
	}
	return n, nil
}

func getBool(key string, fallback bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean (got %q)", key, raw)
	}
	return b, nil
}
