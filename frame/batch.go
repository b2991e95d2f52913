package frame

import (
	"sync"
	"time"
)

// MaxBatchBytes is the largest outbound buffer a Batcher will accumulate
// before forcing a flush (spec: "up to 1 MiB or 50 ms, whichever first").
const MaxBatchBytes = 1 << 20

// DefaultBatchTimeout is the maximum time a Batcher holds frames before
// flushing even if MaxBatchBytes has not been reached.
const DefaultBatchTimeout = 50 * time.Millisecond

// Batcher coalesces sealed frames into a single outbound buffer. It is the
// concatenation step referenced by spec §4.1 ("Batches concatenate frames
// into a single outbound buffer"); it performs no sealing itself.
type Batcher struct {
	mu      sync.Mutex
	timeout time.Duration
	buf     []byte
	timer   *time.Timer
	flushCh chan []byte
}

// NewBatcher creates a Batcher that flushes to flushCh whenever the batch
// reaches MaxBatchBytes or timeout elapses since the first frame in the
// current batch was added.
func NewBatcher(timeout time.Duration, flushCh chan []byte) *Batcher {
	if timeout <= 0 {
		timeout = DefaultBatchTimeout
	}
	return &Batcher{timeout: timeout, flushCh: flushCh}
}

// Add appends a sealed frame to the current batch, flushing immediately if
// the frame would push the batch past MaxBatchBytes. The actual channel
// send (which may block on a slow consumer) always happens after the lock
// is released, so a stalled consumer never stalls concurrent Add calls.
func (b *Batcher) Add(f []byte) {
	var pending [][]byte

	b.mu.Lock()
	if len(b.buf)+len(f) > MaxBatchBytes && len(b.buf) > 0 {
		if out, ok := b.takeLocked(); ok {
			pending = append(pending, out)
		}
	}
	if len(b.buf) == 0 {
		b.armLocked()
	}
	b.buf = append(b.buf, f...)
	if len(b.buf) >= MaxBatchBytes {
		if out, ok := b.takeLocked(); ok {
			pending = append(pending, out)
		}
	}
	b.mu.Unlock()

	for _, out := range pending {
		b.flushCh <- out
	}
}

// Flush forces out whatever is currently buffered, if anything.
func (b *Batcher) Flush() {
	b.mu.Lock()
	out, ok := b.takeLocked()
	b.mu.Unlock()
	if ok {
		b.flushCh <- out
	}
}

func (b *Batcher) armLocked() {
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.timeout, b.Flush)
}

// takeLocked detaches the current buffer for the caller to send once the
// lock is released. Must be called with b.mu held.
func (b *Batcher) takeLocked() ([]byte, bool) {
	if len(b.buf) == 0 {
		return nil, false
	}
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	out := b.buf
	b.buf = nil
	return out, true
}
