package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/viccon/sturdyc"
)

// MemoryConfig configures the in-process store.
type MemoryConfig struct {
	// Capacity is the maximum number of entries.
	Capacity int

	// NumShards splits the keyspace to reduce lock contention.
	NumShards int

	// TTL applies to every entry.
	TTL time.Duration

	// EvictionPercentage is the share of entries dropped when full (1-100).
	EvictionPercentage int

	// EvictionInterval is how often expired entries are swept. Zero keeps
	// the sturdyc default.
	EvictionInterval time.Duration
}

// DefaultMemoryConfig returns settings suited to a single instance.
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		Capacity:           10000,
		NumShards:          64,
		TTL:                DefaultTTL,
		EvictionPercentage: 10,
	}
}

// Validate checks whether the configuration values are valid.
func (c MemoryConfig) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}
	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}
	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}
	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}
	return nil
}

// MemoryStore keeps entries in process with sturdyc and indexes tags in a
// map. It is meant for single-instance deployments and tests.
type MemoryStore struct {
	client *sturdyc.Client[[]byte]
	ttl    time.Duration

	mu      sync.Mutex
	tags    map[string]map[string]struct{}
	keyTags map[string]map[string]struct{}
}

// NewMemoryStore creates an in-process store.
func NewMemoryStore(cfg MemoryConfig) (*MemoryStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []sturdyc.Option
	if cfg.EvictionInterval > 0 {
		opts = append(opts, sturdyc.WithEvictionInterval(cfg.EvictionInterval))
	}

	return &MemoryStore{
		client:  sturdyc.New[[]byte](cfg.Capacity, cfg.NumShards, cfg.TTL, cfg.EvictionPercentage, opts...),
		ttl:     cfg.TTL,
		tags:    make(map[string]map[string]struct{}),
		keyTags: make(map[string]map[string]struct{}),
	}, nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	value, ok := s.client.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	return value, nil
}

// Set implements Store. The value is copied.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	s.client.Set(key, append([]byte(nil), value...))
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		s.client.Delete(key)
		s.untagLocked(key)
	}
	return nil
}

// KeysWithPrefix implements Store.
func (s *MemoryStore) KeysWithPrefix(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Tag implements Store.
func (s *MemoryStore) Tag(_ context.Context, key string, tags ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tag := range tags {
		members, ok := s.tags[tag]
		if !ok {
			members = make(map[string]struct{})
			s.tags[tag] = members
		}
		members[key] = struct{}{}

		owned, ok := s.keyTags[key]
		if !ok {
			owned = make(map[string]struct{})
			s.keyTags[key] = owned
		}
		owned[tag] = struct{}{}
	}
	return nil
}

// DrainTag implements Store.
func (s *MemoryStore) DrainTag(_ context.Context, tag string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	members := s.tags[tag]
	keys := make([]string, 0, len(members))
	for key := range members {
		keys = append(keys, key)
		if owned, ok := s.keyTags[key]; ok {
			delete(owned, tag)
			if len(owned) == 0 {
				delete(s.keyTags, key)
			}
		}
	}
	delete(s.tags, tag)
	return keys, nil
}

// Flush implements Store.
func (s *MemoryStore) Flush(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range s.client.ScanKeys() {
		s.client.Delete(key)
	}
	s.tags = make(map[string]map[string]struct{})
	s.keyTags = make(map[string]map[string]struct{})
	return nil
}

// Ping implements Store.
func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// TTL implements Store.
func (s *MemoryStore) TTL() time.Duration {
	return s.ttl
}

// Len returns the number of stored entries, expired ones included until
// they are swept.
func (s *MemoryStore) Len() int {
	return s.client.Size()
}

// PruneTags drops tag memberships of keys that are no longer stored and
// returns how many keys were forgotten.
func (s *MemoryStore) PruneTags() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key := range s.keyTags {
		if _, ok := s.client.Get(key); ok {
			continue
		}
		s.untagLocked(key)
		removed++
	}
	return removed
}

func (s *MemoryStore) untagLocked(key string) {
	for tag := range s.keyTags[key] {
		if members, ok := s.tags[tag]; ok {
			delete(members, key)
			if len(members) == 0 {
				delete(s.tags, tag)
			}
		}
	}
	delete(s.keyTags, key)
}
