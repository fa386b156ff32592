package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	infraconfig "cryptoprice-service/internal/infrastructure/config"
)

type Config struct {
	// Common
	Env      string
	LogLevel string
	// API
	Port           string
	RequestTimeout time.Duration
	// Storage
	Storage     string
	DatabaseURL string
	// Cache
	CacheBackend  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// Provider
	Provider         string
	CoinGeckoAPIBase string
	CoinGeckoAPIKey  string
	UpstreamTimeout  time.Duration
	UpstreamRPS      float64
	// Notifier
	Notifier     string
	EmailAPIBase string
	EmailAPIKey  string
	EmailFrom    string
	// Worker
	RetentionSweep time.Duration
	RetentionBatch int
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoiDef(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func floatDef(s string, def float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}

func msDef(key string, def time.Duration) time.Duration {
	ms := int(def.Milliseconds())
	return time.Duration(atoiDef(getEnv(key, strconv.Itoa(ms)), ms)) * time.Millisecond
}

// Load reads environment variables and applies defaults.
func Load() Config {
	return Config{
		Env:              getEnv("ENV", "local"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		Port:             getEnv("PORT", infraconfig.DefaultHTTPPort),
		RequestTimeout:   msDef("REQUEST_TIMEOUT_MS", infraconfig.DefaultRequestTimeout),
		Storage:          getEnv("STORAGE", "pg"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		CacheBackend:     getEnv("CACHE_BACKEND", "redis"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          atoiDef(getEnv("REDIS_DB", "0"), 0),
		Provider:         getEnv("PROVIDER", "coingecko"),
		CoinGeckoAPIBase: getEnv("COINGECKO_API_BASE", "https://api.coingecko.com/api/v3"),
		CoinGeckoAPIKey:  getEnv("COINGECKO_API_KEY", ""),
		UpstreamTimeout:  msDef("UPSTREAM_TIMEOUT_MS", infraconfig.DefaultUpstreamTimeout),
		UpstreamRPS:      floatDef(getEnv("UPSTREAM_RPS", "0"), 0),
		Notifier:         getEnv("NOTIFIER", "email"),
		EmailAPIBase:     getEnv("EMAIL_API_BASE", "https://api.resend.com"),
		EmailAPIKey:      getEnv("EMAIL_API_KEY", ""),
		EmailFrom:        getEnv("EMAIL_FROM", ""),
		RetentionSweep:   msDef("RETENTION_SWEEP_MS", infraconfig.DefaultRetentionSweep),
		RetentionBatch:   atoiDef(getEnv("RETENTION_BATCH", ""), infraconfig.DefaultRetentionBatch),
	}
}

// Validate reports every missing or inconsistent setting at once so the
// process fails at startup instead of on first use.
func (c Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error", "dpanic", "panic", "fatal":
	default:
		bad("LOG_LEVEL %q is not a zap level", c.LogLevel)
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		bad("PORT %q is not a number", c.Port)
	}
	if c.RequestTimeout <= 0 {
		bad("REQUEST_TIMEOUT_MS must be positive")
	}

	switch c.Storage {
	case "pg":
		if c.DatabaseURL == "" {
			bad("DATABASE_URL is required for STORAGE=pg")
		}
	case "memory":
	default:
		bad("STORAGE %q must be pg or memory", c.Storage)
	}

	switch c.CacheBackend {
	case "redis":
		if c.RedisAddr == "" {
			bad("REDIS_ADDR is required for CACHE_BACKEND=redis")
		}
	case "memory", "none":
	default:
		bad("CACHE_BACKEND %q must be redis, memory or none", c.CacheBackend)
	}

	switch c.Provider {
	case "coingecko":
		if c.CoinGeckoAPIBase == "" {
			bad("COINGECKO_API_BASE is required for PROVIDER=coingecko")
		}
	case "fake":
	default:
		bad("PROVIDER %q must be coingecko or fake", c.Provider)
	}
	if c.UpstreamTimeout <= 0 {
		bad("UPSTREAM_TIMEOUT_MS must be positive")
	}
	if c.UpstreamRPS < 0 {
		bad("UPSTREAM_RPS must not be negative")
	}

	switch c.Notifier {
	case "email":
		if c.EmailAPIKey == "" {
			bad("EMAIL_API_KEY is required for NOTIFIER=email")
		}
		if c.EmailFrom == "" {
			bad("EMAIL_FROM is required for NOTIFIER=email")
		}
	case "log", "none":
	default:
		bad("NOTIFIER %q must be email, log or none", c.Notifier)
	}

	if c.RetentionSweep <= 0 {
		bad("RETENTION_SWEEP_MS must be positive")
	}
	if c.RetentionBatch <= 0 {
		bad("RETENTION_BATCH must be positive")
	}
	return errors.Join(errs...)
}
