package mixnode

import (
	"math/rand"
	"sync"
	"time"
)

// MixNode buffers submitted messages up to cfg.BatchSize or cfg.BatchTimeout
// before flushing a shuffled, dummy-padded, rate-shaped batch to out (spec
// §4.6). The locking discipline mirrors frame.Batcher: the lock protects
// only the buffer, never the channel send.
type MixNode struct {
	cfg Config
	out chan<- []Message

	mu        sync.Mutex
	buf       []Message
	timer     *time.Timer
	lastFlush time.Time
	closed    bool

	rng *rand.Rand
	now func() time.Time
}

// NewMixNode constructs a MixNode that delivers shaped batches to out. seed
// makes dummy injection, shuffling, and jitter reproducible in tests.
func NewMixNode(cfg Config, out chan<- []Message, seed int64, now func() time.Time) *MixNode {
	if now == nil {
		now = time.Now
	}
	return &MixNode{
		cfg:       cfg,
		out:       out,
		lastFlush: now(),
		rng:       rand.New(rand.NewSource(seed)),
		now:       now,
	}
}

// Submit enqueues msg, flushing immediately once cfg.BatchSize is reached.
func (n *MixNode) Submit(msg Message) error {
	var toFlush []Message

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return ErrClosed
	}
	if len(n.buf) == 0 {
		n.arm()
	}
	n.buf = append(n.buf, msg)
	if len(n.buf) >= n.cfg.BatchSize {
		toFlush = n.takeLocked()
	}
	n.mu.Unlock()

	if toFlush != nil {
		n.release(toFlush)
	}
	return nil
}

// Flush forces out whatever is currently buffered, if anything. Used both
// by the timeout timer and by callers wanting a synchronous flush.
func (n *MixNode) Flush() {
	n.mu.Lock()
	batch := n.takeLocked()
	n.mu.Unlock()
	if batch != nil {
		n.release(batch)
	}
}

func (n *MixNode) arm() {
	if n.timer != nil {
		n.timer.Stop()
	}
	n.timer = time.AfterFunc(n.cfg.BatchTimeout, n.Flush)
}

// takeLocked detaches the current buffer. Must be called with n.mu held.
func (n *MixNode) takeLocked() []Message {
	if len(n.buf) == 0 {
		return nil
	}
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	out := n.buf
	n.buf = nil
	return out
}

// release fills the batch out with dummies, size-normalizes every message
// (real and dummy alike) to its power-of-two bucket, shuffles, and applies
// traffic shaping and jitter before delivering the batch — always outside
// n.mu so a slow consumer never stalls concurrent Submit calls.
func (n *MixNode) release(batch []Message) {
	n.mu.Lock()
	batch = FillDummies(batch, n.cfg, n.rng)
	for i, msg := range batch {
		batch[i] = msg.Pad()
	}
	Shuffle(batch, n.rng)
	elapsed := n.now().Sub(n.lastFlush)
	delay := ShapeDelay(n.cfg, len(batch), elapsed)
	jitter := Jitter(n.cfg, n.rng)
	n.lastFlush = n.now()
	n.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if jitter > 0 {
		time.Sleep(jitter)
	}
	n.out <- batch
}

// Close stops the pending flush timer and flushes any remainder.
func (n *MixNode) Close() {
	n.mu.Lock()
	n.closed = true
	batch := n.takeLocked()
	n.mu.Unlock()
	if batch != nil {
		n.release(batch)
	}
}
