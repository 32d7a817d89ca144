package cache

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Pruner is a store that keeps bookkeeping which outlives expired entries.
type Pruner interface {
	PruneTags() int
}

// Janitor periodically prunes tag bookkeeping left behind by expired
// entries. It only bounds memory; reads are correct without it.
type Janitor struct {
	pruner   Pruner
	interval time.Duration
	logger   zerolog.Logger
}

// NewJanitor creates a janitor running every interval.
func NewJanitor(pruner Pruner, interval time.Duration, logger zerolog.Logger) *Janitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Janitor{
		pruner:   pruner,
		interval: interval,
		logger:   logger,
	}
}

// Start runs the pruning loop until the context is cancelled.
// It blocks and should typically be run in a separate goroutine.
func (j *Janitor) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.RunOnce()
		case <-ctx.Done():
			j.logger.Debug().Msg("Cache janitor stopped")
			return
		}
	}
}

// RunOnce performs a single pruning cycle and returns the number of keys
// forgotten.
func (j *Janitor) RunOnce() int {
	removed := j.pruner.PruneTags()
	if removed > 0 {
		j.logger.Debug().Int("keys", removed).Msg("Pruned expired tag memberships")
	}
	return removed
}
