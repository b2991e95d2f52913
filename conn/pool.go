package conn

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/qrmesh/dagmix/ids"
)

// Dialer opens a fresh Transport to a peer; supplied by the caller so Pool
// stays agnostic to the concrete network stack.
type Dialer interface {
	Dial(ctx context.Context, peer ids.PeerID) (Transport, error)
}

// Pool owns all per-peer connection state for the local process (spec §3
// "Ownership": the connection substrate exclusively owns per-peer state).
type Pool struct {
	cfg    Config
	dialer Dialer
	log    *slog.Logger
	now    func() time.Time

	mu    sync.RWMutex
	conns map[ids.PeerID]*Connection

	hintsMu sync.RWMutex
	hints   map[ids.PeerID]string
}

// NewPool constructs a Pool bound to dialer for establishing new
// connections. A nil now defaults to time.Now; tests may inject a fake
// clock to exercise circuit-breaker timing deterministically.
func NewPool(cfg Config, dialer Dialer, log *slog.Logger, now func() time.Time) *Pool {
	if log == nil {
		log = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Pool{
		cfg:    cfg,
		dialer: dialer,
		log:    log.With("component", "conn_pool"),
		now:    now,
		conns:  make(map[ids.PeerID]*Connection),
		hints:  make(map[ids.PeerID]string),
	}
}

// ExternalAddrHint records a collaborator's observation of what external
// address peer appears to be reachable at (e.g. from a STUN-like probe run
// outside this package). The substrate never acts on this itself — no NAT
// traversal logic lives here — it only keeps the most recent hint available
// for a collaborator to read back via ExternalAddrHints.
func (p *Pool) ExternalAddrHint(peer ids.PeerID, addr string) {
	p.hintsMu.Lock()
	defer p.hintsMu.Unlock()
	p.hints[peer] = addr
}

// ExternalAddrHints returns the most recently recorded external-address
// hints for every peer with one on file.
func (p *Pool) ExternalAddrHints() map[ids.PeerID]string {
	p.hintsMu.RLock()
	defer p.hintsMu.RUnlock()
	out := make(map[ids.PeerID]string, len(p.hints))
	for k, v := range p.hints {
		out[k] = v
	}
	return out
}

// Connect establishes or reuses a healthy pooled connection to peer. It
// fails with ErrBreakerOpen if the peer's breaker is tripped, ErrLimitReached
// if the global ceiling is hit, or ErrHandshakeTimeout if dialing overruns
// cfg.HandshakeTimeout.
func (p *Pool) Connect(ctx context.Context, peer ids.PeerID) (*Connection, error) {
	p.mu.RLock()
	existing, ok := p.conns[peer]
	p.mu.RUnlock()
	if ok {
		if existing.BreakerState() == BreakerOpen && !existing.breaker.AllowRequest() {
			return nil, ErrBreakerOpen
		}
		if existing.Status() == StatusConnected {
			return existing, nil
		}
	}

	p.mu.Lock()
	if len(p.conns) >= p.cfg.MaxConnections {
		if _, already := p.conns[peer]; !already {
			p.mu.Unlock()
			return nil, ErrLimitReached
		}
	}
	p.mu.Unlock()

	dialCtx, cancel := context.WithTimeout(ctx, p.cfg.HandshakeTimeout)
	defer cancel()

	transport, err := p.dialer.Dial(dialCtx, peer)
	if err != nil {
		p.log.Warn("dial failed", "peer", peer.String(), "err", err)
		return nil, fmt.Errorf("%w: %v", ErrHandshakeTimeout, err)
	}

	c := newConnection(peer, transport, p.cfg.HighWaterBytes, p.cfg.LowWaterBytes, p.now)
	c.status = StatusConnected

	p.mu.Lock()
	p.conns[peer] = c
	p.mu.Unlock()

	return c, nil
}

// Send enqueues bytes for transmission on peer's connection, applying
// back-pressure when the per-connection queue exceeds the high-water mark.
func (p *Pool) Send(ctx context.Context, peer ids.PeerID, data []byte) error {
	p.mu.RLock()
	c, ok := p.conns[peer]
	p.mu.RUnlock()
	if !ok {
		return ErrUnknownPeer
	}
	if err := c.backpressure.wait(ctx); err != nil {
		return err
	}
	c.backpressure.enqueue(len(data))
	n, err := c.transport.Write(data)
	c.backpressure.drain(len(data))
	if err != nil {
		c.updateStatus(false, 0, n)
		return err
	}
	return nil
}

// UpdateStatus records an observation (success/failure, round-trip time,
// bytes transferred) against peer's connection, updating quality and the
// circuit breaker.
func (p *Pool) UpdateStatus(peer ids.PeerID, success bool, rt time.Duration, bytes int) error {
	p.mu.RLock()
	c, ok := p.conns[peer]
	p.mu.RUnlock()
	if !ok {
		return ErrUnknownPeer
	}
	c.updateStatus(success, rt, bytes)
	return nil
}

// Disconnect returns a healthy connection to the pool for reuse, or removes
// it outright if unhealthy.
func (p *Pool) Disconnect(peer ids.PeerID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.conns[peer]
	if !ok {
		return
	}
	if c.Healthy() {
		c.markDisconnected()
		return
	}
	if c.transport != nil {
		_ = c.transport.Close()
	}
	delete(p.conns, peer)
}

// Get returns the connection record for peer, if any.
func (p *Pool) Get(peer ids.PeerID) (*Connection, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.conns[peer]
	return c, ok
}

// Len reports the number of pooled connections.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.conns)
}

// Snapshot returns every pooled connection, for use by load-balancing
// strategies and discovery scoring.
func (p *Pool) Snapshot() []*Connection {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*Connection, 0, len(p.conns))
	for _, c := range p.conns {
		out = append(out, c)
	}
	return out
}
