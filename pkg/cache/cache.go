package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Config holds cache service options.
type Config struct {
	// SingleFlight makes concurrent misses on the same key share one
	// computation.
	SingleFlight bool

	// SharedComputeTimeout bounds a shared computation. It runs detached
	// from the caller that started it, so that caller leaving does not fail
	// the others waiting on it.
	SharedComputeTimeout time.Duration
}

// DefaultSharedComputeTimeout is used when SharedComputeTimeout is unset.
const DefaultSharedComputeTimeout = 30 * time.Second

// DefaultConfig returns the default cache service options.
func DefaultConfig() Config {
	return Config{
		SingleFlight:         true,
		SharedComputeTimeout: DefaultSharedComputeTimeout,
	}
}

// ComputeFunc produces the value of a key on a cache miss.
type ComputeFunc[T any] func(ctx context.Context) (T, error)

// Cache is a read-through cache over a Store.
type Cache struct {
	store  Store
	config Config
	logger zerolog.Logger
	group  singleflight.Group
}

// New creates a cache service on top of store.
func New(store Store, cfg Config, logger zerolog.Logger) *Cache {
	if store == nil {
		panic("cache store cannot be nil")
	}
	if cfg.SharedComputeTimeout <= 0 {
		cfg.SharedComputeTimeout = DefaultSharedComputeTimeout
	}
	return &Cache{
		store:  store,
		config: cfg,
		logger: logger,
	}
}

// Store returns the underlying store.
func (c *Cache) Store() Store {
	return c.store
}

type flight struct {
	value any
	data  []byte
}

// GetOrSet returns the cached value of key, or runs compute, stores its
// result and returns it.
//
// A failing compute is returned unchanged and nothing is stored. Store
// failures never fail the read: they are logged and the call behaves as a
// miss.
func GetOrSet[T any](ctx context.Context, c *Cache, key CacheKey, compute ComputeFunc[T]) (T, error) {
	k := key.String()
	family := string(key.Family)

	if value, ok := lookup[T](ctx, c, k); ok {
		CacheHits.WithLabelValues(family).Inc()
		c.logger.Debug().Str("key", k).Bool("cache_hit", true).Msg("Cache hit")
		return value, nil
	}
	CacheMisses.WithLabelValues(family).Inc()
	c.logger.Debug().Str("key", k).Bool("cache_hit", false).Msg("Cache miss")

	if !c.config.SingleFlight {
		value, _, err := computeAndStore(ctx, c, key, k, compute)
		return value, err
	}

	ch := c.group.DoChan(k, func() (any, error) {
		sharedCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.config.SharedComputeTimeout)
		defer cancel()

		value, data, err := computeAndStore(sharedCtx, c, key, k, compute)
		if err != nil {
			return nil, err
		}
		return flight{value: value, data: data}, nil
	})

	var r singleflight.Result
	select {
	case r = <-ch:
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
	res, err, shared := r.Val, r.Err, r.Shared
	if err != nil {
		var zero T
		return zero, err
	}

	f, ok := res.(flight)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: unexpected flight result %T", ErrInvalidEntry, res)
	}
	if shared && f.data != nil {
		var value T
		if err := json.Unmarshal(f.data, &value); err == nil {
			return value, nil
		}
	}
	if f.value == nil {
		var zero T
		return zero, nil
	}
	value, ok := f.value.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: cached type %T", ErrInvalidEntry, f.value)
	}
	return value, nil
}

// lookup reads and decodes key. Unreadable entries are removed.
func lookup[T any](ctx context.Context, c *Cache, key string) (T, bool) {
	var zero T

	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			CacheErrors.WithLabelValues("get").Inc()
			c.logger.Warn().Err(err).Str("key", key).Msg("Cache get error, treating as miss")
		}
		return zero, false
	}

	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.discard(ctx, key, fmt.Errorf("%w: %v", ErrInvalidEntry, err))
		return zero, false
	}
	if entry.IsExpired() {
		c.discard(ctx, key, nil)
		return zero, false
	}

	var value T
	if err := json.Unmarshal(entry.Value, &value); err != nil {
		c.discard(ctx, key, fmt.Errorf("%w: %v", ErrInvalidEntry, err))
		return zero, false
	}
	return value, true
}

func computeAndStore[T any](ctx context.Context, c *Cache, key CacheKey, k string, compute ComputeFunc[T]) (T, []byte, error) {
	start := time.Now()
	value, err := compute(ctx)
	ComputeDuration.WithLabelValues(string(key.Family)).Observe(time.Since(start).Seconds())
	if err != nil {
		c.logger.Debug().Err(err).Str("key", k).Msg("Cache compute failed, nothing stored")
		return value, nil, err
	}

	data, err := json.Marshal(value)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		c.logger.Warn().Err(err).Str("key", k).Msg("Failed to encode cache value")
		return value, nil, nil
	}

	raw, err := json.Marshal(newEntry(key.Family, data, c.store.TTL()))
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		c.logger.Warn().Err(err).Str("key", k).Msg("Failed to encode cache entry")
		return value, data, nil
	}

	if err := c.store.Set(ctx, k, raw); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		c.logger.Warn().Err(err).Str("key", k).Msg("Failed to cache value")
		return value, data, nil
	}
	if err := c.store.Tag(ctx, k, key.Tags()...); err != nil {
		CacheErrors.WithLabelValues("tag").Inc()
		c.logger.Warn().Err(err).Str("key", k).Msg("Failed to tag cache value")
	}

	c.logger.Debug().
		Str("key", k).
		Dur("ttl", c.store.TTL()).
		Msg("Cached value")
	return value, data, nil
}

func (c *Cache) discard(ctx context.Context, key string, reason error) {
	if reason != nil {
		CacheErrors.WithLabelValues("get").Inc()
		c.logger.Warn().Err(reason).Str("key", key).Msg("Dropping unreadable cache entry")
	}
	if err := c.store.Delete(ctx, key); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
	}
}

// Invalidate removes one exact key.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	return c.deleteKeys(ctx, "key", []string{key})
}

// InvalidatePrefix removes every key starting with prefix.
func (c *Cache) InvalidatePrefix(ctx context.Context, prefix string) error {
	keys, err := c.store.KeysWithPrefix(ctx, prefix)
	if err != nil {
		CacheErrors.WithLabelValues("scan").Inc()
		return fmt.Errorf("invalidate prefix %q: %w", prefix, err)
	}
	c.logger.Debug().Str("prefix", prefix).Int("keys", len(keys)).Msg("Invalidating prefix")
	return c.deleteKeys(ctx, "prefix", keys)
}

// InvalidateTags removes every key registered under any of tags.
func (c *Cache) InvalidateTags(ctx context.Context, tags ...string) error {
	var errs []error
	for _, tag := range tags {
		keys, err := c.store.DrainTag(ctx, tag)
		if err != nil {
			CacheErrors.WithLabelValues("scan").Inc()
			errs = append(errs, fmt.Errorf("invalidate tag %q: %w", tag, err))
			continue
		}
		c.logger.Debug().Str("tag", tag).Int("keys", len(keys)).Msg("Invalidating tag")
		if err := c.deleteKeys(ctx, "tag", keys); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Clear removes every entry. It is meant for administration only.
func (c *Cache) Clear(ctx context.Context) error {
	if err := c.store.Flush(ctx); err != nil {
		CacheErrors.WithLabelValues("flush").Inc()
		return fmt.Errorf("clear cache: %w", err)
	}
	CacheInvalidations.WithLabelValues("clear").Inc()
	c.logger.Info().Msg("Cache cleared")
	return nil
}

func (c *Cache) deleteKeys(ctx context.Context, kind string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	for _, key := range keys {
		c.group.Forget(key)
	}
	if err := c.store.Delete(ctx, keys...); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("invalidate %s: %w", kind, err)
	}
	CacheInvalidations.WithLabelValues(kind).Add(float64(len(keys)))
	return nil
}
