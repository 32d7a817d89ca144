package cache

import (
	"encoding/json"
	"time"
)

// CacheEntry is the envelope written to the store for one key.
type CacheEntry struct {
	// Value is the JSON encoded result of the computation
	Value json.RawMessage `json:"value"`

	// Family is the read shape the entry belongs to
	Family Family `json:"family"`

	// CachedAt is when the value was computed
	CachedAt time.Time `json:"cached_at"`

	// Expires is CachedAt plus the store TTL
	Expires time.Time `json:"expires"`
}

// IsExpired returns true if the cache entry has expired.
func (e *CacheEntry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *CacheEntry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}

func newEntry(family Family, value json.RawMessage, ttl time.Duration) *CacheEntry {
	now := time.Now()
	return &CacheEntry{
		Value:    value,
		Family:   family,
		CachedAt: now,
		Expires:  now.Add(ttl),
	}
}
