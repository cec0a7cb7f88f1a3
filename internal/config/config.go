// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DevJWTSecret signs tokens when JWT_SECRET is unset outside production.
const DevJWTSecret = "splitpay-dev-secret"

var ErrJWTSecretRequired = errors.New("JWT_SECRET is required in production")

// Config holds the server configuration.
type Config struct {
	Env        string // APP_ENV: development or production
	Port       int
	DBPath     string
	JWTSecret  string
	TokenTTL   time.Duration
	CORSOrigin string

	RedisAddr     string // empty disables the cache and uses in-process rate limiting
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	LogLevel  string
	LogFormat string // text or json

	RateLimitMax    int
	RateLimitWindow time.Duration
	// TrustedProxies may set X-Forwarded-For. Empty means the header is ignored.
	TrustedProxies []netip.Prefix
}

// IsProd reports whether the server runs in production.
func (c *Config) IsProd() bool {
	return c.Env == "production"
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Load reads a .env file if present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return fromEnv()
}

func fromEnv() (*Config, error) {
	var errs []error

	cfg := &Config{
		Env:           strings.ToLower(getEnv("APP_ENV", "development")),
		Port:          getInt("PORT", 8080, &errs),
		DBPath:        getEnv("DB_PATH", "./data/splitpay.db"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		TokenTTL:      getDuration("TOKEN_TTL", 24*time.Hour, &errs),
		CORSOrigin:    getEnv("CORS_ORIGIN", "*"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 0, &errs),
		CacheTTL:      getDuration("CACHE_TTL", 5*time.Minute, &errs),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     strings.ToLower(getEnv("LOG_FORMAT", "text")),

		RateLimitMax:    getInt("RATE_LIMIT_MAX", 100, &errs),
		RateLimitWindow: getDuration("RATE_LIMIT_WINDOW", 15*time.Minute, &errs),
		TrustedProxies:  getPrefixes("TRUSTED_PROXIES", &errs),
	}

	if cfg.JWTSecret == "" {
		if cfg.IsProd() {
			errs = append(errs, ErrJWTSecretRequired)
		}
		cfg.JWTSecret = DevJWTSecret
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat))
	}
	if cfg.RateLimitMax < 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_MAX must not be negative, got %d", cfg.RateLimitMax))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int, errs *[]error) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}

// getPrefixes parses a comma separated list of CIDRs or bare addresses.
func getPrefixes(key string, errs *[]error) []netip.Prefix {
	var prefixes []netip.Prefix
	for _, field := range strings.Split(os.Getenv(key), ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		if !strings.Contains(field, "/") {
			addr, err := netip.ParseAddr(field)
			if err != nil {
				*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
				continue
			}
			addr = addr.Unmap()
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		p, err := netip.ParsePrefix(field)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		prefixes = append(prefixes, p.Masked())
	}
	return prefixes
}
