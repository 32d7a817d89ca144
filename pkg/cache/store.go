package cache

import (
	"context"
	"errors"
	"time"
)

// DefaultTTL is the lifetime of cached results unless configured otherwise.
const DefaultTTL = 600 * time.Second

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Store is a byte store with a TTL fixed per instance.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns ErrCacheMiss when the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set writes value under key for the store TTL.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	// KeysWithPrefix lists the stored keys starting with prefix.
	KeysWithPrefix(ctx context.Context, prefix string) ([]string, error)

	// Tag registers key under each tag.
	Tag(ctx context.Context, key string, tags ...string) error

	// DrainTag returns the keys registered under tag and forgets the tag.
	DrainTag(ctx context.Context, tag string) ([]string, error)

	// Flush removes every entry and tag.
	Flush(ctx context.Context) error

	// Ping checks the store is reachable.
	Ping(ctx context.Context) error

	// TTL is the lifetime applied to every entry.
	TTL() time.Duration
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}
