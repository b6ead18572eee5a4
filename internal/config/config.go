package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults applied when the corresponding environment variable is unset.
const (
	DefaultAddr        = ":8080"
	DefaultSQLitePath  = "file:hal9001.db?_busy_timeout=5000"
	DefaultTokenTTL    = 30 * time.Minute
	DefaultPoolMin     = 2
	DefaultPoolMax     = 20
	DefaultRateBurst   = 20
	DefaultRatePerSec  = 10
	DefaultMaxBodySize = 1 << 20
)

// Config holds all process configuration. Values are read once at startup
// and never reloaded.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Storage
	PrimaryDSN  string // PostgreSQL DSN; empty selects the embedded backend
	SQLitePath  string
	PoolMin     int
	PoolMax     int
	PingTimeout time.Duration

	// Auth
	TokenSecret       string
	TokenTTL          time.Duration
	BootstrapPassword string

	// HTTP limits
	RateBurst   int
	RatePerSec  int
	MaxBodySize int64
}

// Load reads configuration from HAL9001_* environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Addr:            getEnv("HAL9001_ADDR", DefaultAddr),
		ReadTimeout:     getEnvDuration("HAL9001_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("HAL9001_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("HAL9001_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("HAL9001_SHUTDOWN_TIMEOUT", 10*time.Second),

		PrimaryDSN:  getEnv("HAL9001_PG_DSN", ""),
		SQLitePath:  getEnv("HAL9001_SQLITE_PATH", DefaultSQLitePath),
		PoolMin:     getEnvInt("HAL9001_POOL_MIN", DefaultPoolMin),
		PoolMax:     getEnvInt("HAL9001_POOL_MAX", DefaultPoolMax),
		PingTimeout: getEnvDuration("HAL9001_PING_TIMEOUT", 5*time.Second),

		TokenSecret:       getEnv("HAL9001_AUTH_SECRET", ""),
		TokenTTL:          getEnvDuration("HAL9001_TOKEN_TTL", DefaultTokenTTL),
		BootstrapPassword: getEnv("HAL9001_BOOTSTRAP_PASSWORD", ""),

		RateBurst:   getEnvInt("HAL9001_RATE_BURST", DefaultRateBurst),
		RatePerSec:  getEnvInt("HAL9001_RATE_PER_SEC", DefaultRatePerSec),
		MaxBodySize: int64(getEnvInt("HAL9001_MAX_BODY_BYTES", DefaultMaxBodySize)),
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.TokenSecret) == "" {
		return errors.New("HAL9001_AUTH_SECRET is required")
	}
	if c.TokenTTL <= 0 {
		return errors.New("token TTL must be positive")
	}
	if c.PoolMin < 1 {
		return errors.New("pool minimum must be at least 1")
	}
	if c.PoolMax < c.PoolMin {
		return errors.New("pool maximum must not be below pool minimum")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return parsed
}
