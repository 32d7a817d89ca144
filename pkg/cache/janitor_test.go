package cache

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type countingPruner struct {
	runs int32
}

func (p *countingPruner) PruneTags() int {
	atomic.AddInt32(&p.runs, 1)
	return 1
}

func TestNewJanitor_DefaultInterval(t *testing.T) {
	j := NewJanitor(&countingPruner{}, 0, zerolog.Nop())
	if j.interval != time.Minute {
		t.Errorf("interval = %v, want 1m", j.interval)
	}
}

func TestJanitor_RunOnce(t *testing.T) {
	p := &countingPruner{}
	j := NewJanitor(p, time.Second, zerolog.Nop())

	if got := j.RunOnce(); got != 1 {
		t.Errorf("RunOnce() = %d, want 1", got)
	}
	if p.runs != 1 {
		t.Errorf("pruner runs = %d, want 1", p.runs)
	}
}

func TestJanitor_StartStopsOnCancel(t *testing.T) {
	p := &countingPruner{}
	j := NewJanitor(p, 5*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Start(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}

	if atomic.LoadInt32(&p.runs) == 0 {
		t.Error("janitor never pruned")
	}
}
