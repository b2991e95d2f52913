package conn

import (
	"sync"
	"time"

	"github.com/qrmesh/dagmix/ids"
)

// Status is the lifecycle state of a pooled connection.
type Status int

const (
	StatusConnecting Status = iota
	StatusConnected
	StatusDisconnected
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusDisconnected:
		return "disconnected"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Transport is the minimal byte-pipe a Connection drives. Production
// callers supply a real socket/stream; tests supply an in-memory fake.
type Transport interface {
	Write(p []byte) (int, error)
	Read(p []byte) (int, error)
	Close() error
}

// Connection is the per-peer record described in spec §3: status,
// timestamps, counters, EMA response time, quality score, and the
// circuit breaker that gates it. Peer and connection state are held here
// by value/id — never by direct pointer into peer records — so the
// connection substrate remains the sole owner of this state (spec §9 /
// the cyclic-reference design note).
type Connection struct {
	mu sync.Mutex

	Peer ids.PeerID

	status         Status
	failureReason  error
	establishedAt  time.Time
	lastActivity   time.Time
	successes      uint64
	failures       uint64
	avgRTMillis    float64
	quality        float64
	bandwidthBytes uint64

	breaker  *Breaker
	backpressure *backPressureGate
	streams  *streamScheduler

	transport Transport
	now       func() time.Time
}

func newConnection(peer ids.PeerID, transport Transport, highWater, lowWater uint64, now func() time.Time) *Connection {
	if now == nil {
		now = time.Now
	}
	return &Connection{
		Peer:         peer,
		status:       StatusConnecting,
		establishedAt: now(),
		lastActivity: now(),
		quality:      1,
		breaker:      NewBreaker(now),
		backpressure: newBackPressureGate(highWater, lowWater),
		streams:      newStreamScheduler(),
		transport:    transport,
		now:          now,
	}
}

// Status returns the current connection status.
func (c *Connection) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Quality returns the current health score.
func (c *Connection) Quality() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quality
}

// Healthy reports quality > 0.5 and activity within the last 5 minutes.
func (c *Connection) Healthy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quality > healthyQualityFloor && c.now().Sub(c.lastActivity) <= healthyActivityWindow
}

// BreakerState exposes the underlying circuit breaker's state.
func (c *Connection) BreakerState() BreakerState {
	return c.breaker.State()
}

// updateStatus folds an observation into the EMA response time, quality
// score, and circuit breaker (spec §4.2 update_status).
func (c *Connection) updateStatus(success bool, rt time.Duration, bytes int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastActivity = c.now()
	c.bandwidthBytes += uint64(bytes)

	if success {
		c.successes++
		c.breaker.RecordSuccess()
	} else {
		c.failures++
		c.breaker.RecordFailure()
	}

	rtMillis := float64(rt.Milliseconds())
	if c.successes+c.failures == 1 {
		c.avgRTMillis = rtMillis
	} else {
		c.avgRTMillis = emaUpdate(c.avgRTMillis, rtMillis, qualityEMAAlpha)
	}

	total := c.successes + c.failures
	successRate := float64(c.successes) / float64(total)
	c.quality = emaUpdate(c.quality, Quality(successRate, c.avgRTMillis), qualityEMAAlpha)

	if success && c.status != StatusConnected {
		c.status = StatusConnected
	}
}

func (c *Connection) markFailed(reason error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = StatusFailed
	c.failureReason = reason
}

func (c *Connection) markDisconnected() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = StatusDisconnected
}
