package main

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/Sternrassler/workout-api/internal/config"
	"github.com/Sternrassler/workout-api/internal/retry"
	"github.com/Sternrassler/workout-api/pkg/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_ServesAndShutsDown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, config.DefaultConfig(), ln)
	}()

	url := "http://" + ln.Addr().String()
	require.Eventually(t, func() bool {
		resp, err := http.Get(url + "/health")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode == http.StatusOK && string(body) == "OK"
	}, 5*time.Second, 20*time.Millisecond)

	resp, err := http.Get(url + "/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestNewStore_Memory(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := newStore(ctx, config.DefaultConfig())
	require.NoError(t, err)
	defer closeStore()

	_, ok := store.(*cache.MemoryStore)
	assert.True(t, ok, "got %T", store)
}

func TestNewStore_RedisUnreachable(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.CacheBackend = config.BackendRedis
	cfg.RedisURL = "127.0.0.1:1"

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	_, _, err := newStore(ctx, cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, retry.ErrCancelled) || errors.Is(err, retry.ErrExhausted), "got %v", err)
}

func TestNewRepository_Memory(t *testing.T) {
	repo, closeRepo, err := newRepository(context.Background(), config.DefaultConfig())
	require.NoError(t, err)
	defer closeRepo()

	assert.NoError(t, repo.Ping(context.Background()))
}
