package conn

import (
	"context"
	"sync"
	"time"

	"github.com/qrmesh/dagmix/xmath"
)

const (
	// HighWaterBytes is the default per-connection queue ceiling past which
	// sends must wait.
	HighWaterBytes uint64 = 64 << 20
	// LowWaterBytes is the default drain target below which waiters release.
	LowWaterBytes uint64 = 32 << 20
	// BackPressureCeiling bounds how long a sender waits before failing.
	BackPressureCeiling = 5 * time.Second
)

// backPressureGate tracks queued bytes for one connection and blocks
// senders once the high-water mark is crossed, releasing them via a
// notifier (never spinning) once drained below the low-water mark.
type backPressureGate struct {
	mu        sync.Mutex
	cond      *sync.Cond
	queued    uint64
	highWater uint64
	lowWater  uint64
}

func newBackPressureGate(highWater, lowWater uint64) *backPressureGate {
	if highWater <= 0 {
		highWater = HighWaterBytes
	}
	if lowWater <= 0 {
		lowWater = LowWaterBytes
	}
	g := &backPressureGate{highWater: highWater, lowWater: lowWater}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// Enqueue registers n queued bytes, waking nobody (a queue only grows here).
func (g *backPressureGate) enqueue(n int) {
	g.mu.Lock()
	if sum, err := xmath.Add64(g.queued, uint64(n)); err == nil {
		g.queued = sum
	} else {
		g.queued = xmath.Max64(g.queued, uint64(n))
	}
	g.mu.Unlock()
}

// Drain removes n queued bytes and wakes waiters once below low-water.
func (g *backPressureGate) drain(n int) {
	g.mu.Lock()
	if diff, err := xmath.Sub64(g.queued, uint64(n)); err == nil {
		g.queued = diff
	} else {
		g.queued = 0
	}
	if g.queued <= g.lowWater {
		g.cond.Broadcast()
	}
	g.mu.Unlock()
}

// Wait blocks the caller until queued bytes fall at/below high-water, the
// ceiling elapses (ErrBackPressureTimeout), or ctx is cancelled.
func (g *backPressureGate) wait(ctx context.Context) error {
	g.mu.Lock()
	if g.queued <= g.highWater {
		g.mu.Unlock()
		return nil
	}
	g.mu.Unlock()

	done := make(chan struct{})
	go func() {
		g.mu.Lock()
		for g.queued > g.highWater {
			g.cond.Wait()
		}
		g.mu.Unlock()
		close(done)
	}()

	waitCtx, cancel := context.WithTimeout(ctx, BackPressureCeiling)
	defer cancel()

	select {
	case <-done:
		return nil
	case <-waitCtx.Done():
		// The helper goroutine is not woken here: it stays parked on cond
		// until a later drain broadcasts, then re-checks queued and exits;
		// if no drain comes, it stays parked.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrBackPressureTimeout
	}
}

func (g *backPressureGate) queuedBytes() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.queued
}
