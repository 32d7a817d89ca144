package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, cfg Config) (*Cache, *MemoryStore) {
	t.Helper()

	store, err := NewMemoryStore(DefaultMemoryConfig())
	require.NoError(t, err)
	return New(store, cfg, zerolog.Nop()), store
}

// counting returns a compute function that records how often it ran.
func counting[T any](calls *int32, value T) ComputeFunc[T] {
	return func(ctx context.Context) (T, error) {
		atomic.AddInt32(calls, 1)
		return value, nil
	}
}

func setsKey(userID string, page int) CacheKey {
	return CacheKey{Family: FamilySets, UserID: userID, Params: []Param{P("page", page), P("limit", 20)}}
}

func TestNew_Panic(t *testing.T) {
	assert.Panics(t, func() { New(nil, DefaultConfig(), zerolog.Nop()) })
}

func TestGetOrSet_Idempotent(t *testing.T) {
	c, _ := newTestCache(t, DefaultConfig())
	ctx := context.Background()
	var calls int32

	first, err := GetOrSet(ctx, c, setsKey("u1", 1), counting(&calls, []string{"a", "b"}))
	require.NoError(t, err)
	second, err := GetOrSet(ctx, c, setsKey("u1", 1), counting(&calls, []string{"other"}))
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, first, second)
}

func TestGetOrSet_ComputeErrorNotCached(t *testing.T) {
	for _, cfg := range []Config{{SingleFlight: true}, {SingleFlight: false}} {
		c, store := newTestCache(t, cfg)
		ctx := context.Background()
		boom := errors.New("store offline")

		_, err := GetOrSet(ctx, c, setsKey("u1", 1), func(ctx context.Context) (int, error) {
			return 0, boom
		})
		require.ErrorIs(t, err, boom)

		_, err = store.Get(ctx, setsKey("u1", 1).String())
		assert.ErrorIs(t, err, ErrCacheMiss)

		var calls int32
		got, err := GetOrSet(ctx, c, setsKey("u1", 1), counting(&calls, 7))
		require.NoError(t, err)
		assert.Equal(t, 7, got)
		assert.Equal(t, int32(1), calls)
	}
}

func TestGetOrSet_ReturnsIsolatedValues(t *testing.T) {
	c, _ := newTestCache(t, DefaultConfig())
	ctx := context.Background()
	var calls int32

	first, err := GetOrSet(ctx, c, setsKey("u1", 1), counting(&calls, []int{1, 2, 3}))
	require.NoError(t, err)
	first[0] = 99

	second, err := GetOrSet(ctx, c, setsKey("u1", 1), counting(&calls, []int{0}))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, second)
}

func TestGetOrSet_CorruptEntryIsRecomputed(t *testing.T) {
	c, store := newTestCache(t, DefaultConfig())
	ctx := context.Background()
	key := setsKey("u1", 1)

	require.NoError(t, store.Set(ctx, key.String(), []byte("not json")))

	var calls int32
	got, err := GetOrSet(ctx, c, key, counting(&calls, "fresh"))
	require.NoError(t, err)
	assert.Equal(t, "fresh", got)
	assert.Equal(t, int32(1), calls)
}

func TestGetOrSet_ExpiredEnvelopeIsRecomputed(t *testing.T) {
	c, store := newTestCache(t, DefaultConfig())
	ctx := context.Background()
	key := setsKey("u1", 1)

	stale := `{"value":"old","family":"sets","cached_at":"2020-01-01T00:00:00Z","expires":"2020-01-01T00:10:00Z"}`
	require.NoError(t, store.Set(ctx, key.String(), []byte(stale)))

	var calls int32
	got, err := GetOrSet(ctx, c, key, counting(&calls, "new"))
	require.NoError(t, err)
	assert.Equal(t, "new", got)
}

func TestGetOrSet_SingleFlight(t *testing.T) {
	c, _ := newTestCache(t, DefaultConfig())
	ctx := context.Background()

	var calls int32
	release := make(chan struct{})
	compute := func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "shared", nil
	}

	const callers = 8
	results := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := GetOrSet(ctx, c, setsKey("u1", 1), compute)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, r := range results {
		assert.Equal(t, "shared", r)
	}
}

func TestGetOrSet_SingleFlightSurvivesCancelledLeader(t *testing.T) {
	c, _ := newTestCache(t, DefaultConfig())

	started := make(chan struct{})
	release := make(chan struct{})
	compute := func(ctx context.Context) (int, error) {
		close(started)
		select {
		case <-release:
			return 42, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := GetOrSet(leaderCtx, c, setsKey("u1", 1), compute)
		leaderErr <- err
	}()
	<-started

	type result struct {
		value int
		err   error
	}
	follower := make(chan result, 1)
	go func() {
		v, err := GetOrSet(context.Background(), c, setsKey("u1", 1), compute)
		follower <- result{v, err}
	}()

	time.Sleep(20 * time.Millisecond)
	cancelLeader()
	assert.ErrorIs(t, <-leaderErr, context.Canceled)

	close(release)
	got := <-follower
	require.NoError(t, got.err)
	assert.Equal(t, 42, got.value)

	var calls int32
	cached, err := GetOrSet(context.Background(), c, setsKey("u1", 1), counting(&calls, 0))
	require.NoError(t, err)
	assert.Equal(t, 42, cached)
	assert.Zero(t, calls)
}

func TestGetOrSet_SharedComputeTimeout(t *testing.T) {
	c, _ := newTestCache(t, Config{SingleFlight: true, SharedComputeTimeout: 20 * time.Millisecond})

	_, err := GetOrSet(context.Background(), c, setsKey("u1", 1), func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNew_DefaultsSharedComputeTimeout(t *testing.T) {
	c, _ := newTestCache(t, Config{SingleFlight: true})
	assert.Equal(t, DefaultSharedComputeTimeout, c.config.SharedComputeTimeout)
}

func TestInvalidate(t *testing.T) {
	c, _ := newTestCache(t, DefaultConfig())
	ctx := context.Background()
	var calls int32

	_, err := GetOrSet(ctx, c, setsKey("u1", 1), counting(&calls, 1))
	require.NoError(t, err)

	require.NoError(t, c.Invalidate(ctx, setsKey("u1", 1).String()))
	require.NoError(t, c.Invalidate(ctx, "missing_key"))

	_, err = GetOrSet(ctx, c, setsKey("u1", 1), counting(&calls, 1))
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls)
}

func TestInvalidatePrefix(t *testing.T) {
	c, _ := newTestCache(t, DefaultConfig())
	ctx := context.Background()
	var calls int32

	prKey := CacheKey{Family: FamilyPRs, UserID: "u1"}
	for _, key := range []CacheKey{setsKey("u1", 1), setsKey("u2", 1), prKey} {
		_, err := GetOrSet(ctx, c, key, counting(&calls, 1))
		require.NoError(t, err)
	}
	require.Equal(t, int32(3), calls)

	require.NoError(t, c.InvalidatePrefix(ctx, "sets_"))
	require.NoError(t, c.InvalidatePrefix(ctx, "nothing_matches_"))

	for _, key := range []CacheKey{setsKey("u1", 1), setsKey("u2", 1)} {
		_, err := GetOrSet(ctx, c, key, counting(&calls, 1))
		require.NoError(t, err)
	}
	assert.Equal(t, int32(5), calls, "every sets_ key must be recomputed")

	_, err := GetOrSet(ctx, c, prKey, counting(&calls, 1))
	require.NoError(t, err)
	assert.Equal(t, int32(5), calls, "other families must survive")
}

func TestInvalidateTags(t *testing.T) {
	c, _ := newTestCache(t, DefaultConfig())
	ctx := context.Background()
	var calls int32

	for _, key := range []CacheKey{setsKey("u1", 1), setsKey("u1", 2), setsKey("u2", 1)} {
		_, err := GetOrSet(ctx, c, key, counting(&calls, 1))
		require.NoError(t, err)
	}

	require.NoError(t, c.InvalidateTags(ctx, UserTag(FamilySets, "u1"), "unknown:tag"))

	_, err := GetOrSet(ctx, c, setsKey("u2", 1), counting(&calls, 1))
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls)

	_, err = GetOrSet(ctx, c, setsKey("u1", 2), counting(&calls, 1))
	require.NoError(t, err)
	assert.Equal(t, int32(4), calls)
}

func TestClear(t *testing.T) {
	c, store := newTestCache(t, DefaultConfig())
	ctx := context.Background()
	var calls int32

	for _, key := range []CacheKey{setsKey("u1", 1), {Family: FamilyStats, UserID: "u1"}} {
		_, err := GetOrSet(ctx, c, key, counting(&calls, 1))
		require.NoError(t, err)
	}

	require.NoError(t, c.Clear(ctx))

	keys, err := store.KeysWithPrefix(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

// brokenStore fails every operation, like an unreachable Redis.
type brokenStore struct{}

var errBroken = errors.New("connection refused")

func (brokenStore) Get(context.Context, string) ([]byte, error)          { return nil, errBroken }
func (brokenStore) Set(context.Context, string, []byte) error            { return errBroken }
func (brokenStore) Delete(context.Context, ...string) error              { return errBroken }
func (brokenStore) KeysWithPrefix(context.Context, string) ([]string, error) {
	return nil, errBroken
}
func (brokenStore) Tag(context.Context, string, ...string) error         { return errBroken }
func (brokenStore) DrainTag(context.Context, string) ([]string, error)   { return nil, errBroken }
func (brokenStore) Flush(context.Context) error                          { return errBroken }
func (brokenStore) Ping(context.Context) error                           { return errBroken }
func (brokenStore) TTL() time.Duration                                   { return DefaultTTL }

func TestGetOrSet_StoreUnavailable(t *testing.T) {
	c := New(brokenStore{}, DefaultConfig(), zerolog.Nop())
	ctx := context.Background()
	var calls int32

	for i := 0; i < 3; i++ {
		got, err := GetOrSet(ctx, c, setsKey("u1", 1), counting(&calls, "value"))
		require.NoError(t, err)
		assert.Equal(t, "value", got)
	}
	assert.Equal(t, int32(3), calls, "an unavailable store behaves as always miss")

	assert.Error(t, c.InvalidatePrefix(ctx, "sets_"))
	assert.Error(t, c.InvalidateTags(ctx, "family:sets"))
	assert.Error(t, c.Clear(ctx))
}
