// Package retry runs an operation with exponential backoff and jitter. The
// API uses it to wait for Redis and MongoDB at startup.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

var (
	// ErrExhausted is returned when all attempts failed.
	ErrExhausted = errors.New("retry attempts exhausted")

	// ErrCancelled is returned when the context ends during a backoff.
	ErrCancelled = errors.New("context cancelled")
)

var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workout_retries_total",
		Help: "Total number of retry attempts by target",
	}, []string{"target"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workout_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by target",
	}, []string{"target"})
)

// Config holds the backoff settings.
type Config struct {
	// MaxAttempts is the maximum number of attempts, the first one included.
	MaxAttempts int

	// InitialBackoff is the wait after the first failure.
	InitialBackoff time.Duration

	// MaxBackoff caps the wait between attempts.
	MaxBackoff time.Duration

	// BackoffMultiplier grows the wait after every failure.
	BackoffMultiplier float64
}

// DefaultConfig suits dependencies that may still be booting, as in a
// docker-compose start.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:       5,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Do returns it unwrapped.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do calls fn until it succeeds, returns a Permanent error, the attempts
// run out or ctx ends. Waits grow exponentially with ±20% jitter.
func Do(ctx context.Context, cfg Config, target string, fn func(ctx context.Context) error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	backoff := cfg.InitialBackoff

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				log.Info().
					Str("target", target).
					Int("attempt", attempt).
					Msg("Connected after retry")
			}
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		lastErr = err

		if attempt >= cfg.MaxAttempts {
			break
		}

		retriesTotal.WithLabelValues(target).Inc()

		jitter := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))

		log.Warn().
			Err(err).
			Str("target", target).
			Int("attempt", attempt).
			Dur("backoff", jitter).
			Msg("Attempt failed, retrying after backoff")

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
		case <-time.After(jitter):
		}

		backoff = time.Duration(float64(backoff) * cfg.BackoffMultiplier)
		if backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}

	retryExhaustedTotal.WithLabelValues(target).Inc()
	log.Error().
		Str("target", target).
		Int("max_attempts", cfg.MaxAttempts).
		Msg("Retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, cfg.MaxAttempts, lastErr)
}
