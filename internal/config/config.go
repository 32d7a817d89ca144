// Package config loads the workout API settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/workout-api/pkg/cache"
	"github.com/Sternrassler/workout-api/pkg/logging"
	"github.com/redis/go-redis/v9"
)

// Backend names.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

// Config holds every runtime setting.
type Config struct {
	// Port is the HTTP listen port.
	Port string

	LogLevel  logging.LogLevel
	LogPretty bool

	// CacheBackend is "memory" or "redis".
	CacheBackend string

	// RedisURL accepts either host:port or a redis:// URL.
	RedisURL string

	CacheTTL      time.Duration
	CacheCapacity int

	// CacheSingleFlight coalesces concurrent misses on the same key.
	CacheSingleFlight bool

	// StoreBackend is "memory" or "mongo".
	StoreBackend  string
	MongoURI      string
	MongoDatabase string

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns settings for a local single-node run.
func DefaultConfig() Config {
	return Config{
		Port:              "8080",
		LogLevel:          logging.LevelInfo,
		CacheBackend:      BackendMemory,
		RedisURL:          "localhost:6379",
		CacheTTL:          cache.DefaultTTL,
		CacheCapacity:     cache.DefaultMemoryConfig().Capacity,
		CacheSingleFlight: true,
		StoreBackend:      BackendMemory,
		MongoURI:          "mongodb://localhost:27017",
		MongoDatabase:     "workout",
		ShutdownTimeout:   15 * time.Second,
	}
}

// FromEnv reads the configuration from environment variables, falling back
// to DefaultConfig for unset ones, and validates it.
func FromEnv() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	cfg := DefaultConfig()
	env := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	var err error
	cfg.Port = env("PORT", cfg.Port)
	cfg.LogLevel = logging.ParseLevel(env("LOG_LEVEL", string(cfg.LogLevel)))
	if cfg.LogPretty, err = parseBool("LOG_PRETTY", env("LOG_PRETTY", "false")); err != nil {
		return Config{}, err
	}

	cfg.CacheBackend = strings.ToLower(env("CACHE_BACKEND", cfg.CacheBackend))
	cfg.RedisURL = env("REDIS_URL", cfg.RedisURL)
	if cfg.CacheTTL, err = parseDuration("CACHE_TTL", env("CACHE_TTL", cfg.CacheTTL.String())); err != nil {
		return Config{}, err
	}
	if cfg.CacheCapacity, err = parseInt("CACHE_CAPACITY", env("CACHE_CAPACITY", strconv.Itoa(cfg.CacheCapacity))); err != nil {
		return Config{}, err
	}
	if cfg.CacheSingleFlight, err = parseBool("CACHE_SINGLE_FLIGHT", env("CACHE_SINGLE_FLIGHT", "true")); err != nil {
		return Config{}, err
	}

	cfg.StoreBackend = strings.ToLower(env("STORE_BACKEND", cfg.StoreBackend))
	cfg.MongoURI = env("MONGO_URI", cfg.MongoURI)
	cfg.MongoDatabase = env("MONGO_DATABASE", cfg.MongoDatabase)
	if cfg.ShutdownTimeout, err = parseDuration("SHUTDOWN_TIMEOUT", env("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout.String())); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return &ConfigError{Field: "PORT", Message: "must be a port number"}
	}
	switch c.CacheBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisURL == "" {
			return &ConfigError{Field: "REDIS_URL", Message: "is required for the redis cache"}
		}
	default:
		return &ConfigError{Field: "CACHE_BACKEND", Message: "must be memory or redis"}
	}
	if c.CacheTTL <= 0 {
		return &ConfigError{Field: "CACHE_TTL", Message: "must be greater than 0"}
	}
	if c.CacheCapacity <= 0 {
		return &ConfigError{Field: "CACHE_CAPACITY", Message: "must be greater than 0"}
	}
	switch c.StoreBackend {
	case BackendMemory:
	case BackendMongo:
		if c.MongoURI == "" || c.MongoDatabase == "" {
			return &ConfigError{Field: "MONGO_URI", Message: "MONGO_URI and MONGO_DATABASE are required for the mongo store"}
		}
	default:
		return &ConfigError{Field: "STORE_BACKEND", Message: "must be memory or mongo"}
	}
	if c.ShutdownTimeout <= 0 {
		return &ConfigError{Field: "SHUTDOWN_TIMEOUT", Message: "must be greater than 0"}
	}
	return nil
}

// Logging returns the logger settings.
func (c Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.LogLevel
	cfg.Pretty = c.LogPretty
	return cfg
}

// MemoryCache returns the in-process store settings.
func (c Config) MemoryCache() cache.MemoryConfig {
	cfg := cache.DefaultMemoryConfig()
	cfg.TTL = c.CacheTTL
	cfg.Capacity = c.CacheCapacity
	return cfg
}

// RedisOptions turns RedisURL into client options.
func (c Config) RedisOptions() (*redis.Options, error) {
	if strings.Contains(c.RedisURL, "://") {
		opts, err := redis.ParseURL(c.RedisURL)
		if err != nil {
			return nil, &ConfigError{Field: "REDIS_URL", Message: err.Error()}
		}
		return opts, nil
	}
	return &redis.Options{Addr: c.RedisURL}, nil
}

// parseDuration accepts Go durations ("10m") and plain seconds ("600").
func parseDuration(field, v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, &ConfigError{Field: field, Message: fmt.Sprintf("invalid duration %q", v)}
	}
	return d, nil
}

func parseInt(field, v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &ConfigError{Field: field, Message: fmt.Sprintf("invalid integer %q", v)}
	}
	return n, nil
}

func parseBool(field, v string) (bool, error) {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, &ConfigError{Field: field, Message: fmt.Sprintf("invalid boolean %q", v)}
	}
	return b, nil
}
