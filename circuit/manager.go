package circuit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ProbeFunc performs the activation round-trip probe against a freshly
// built circuit's first hop; supplied by the embedding application so this
// package stays transport-agnostic.
type ProbeFunc func(ctx context.Context, c *Circuit) error

// Manager maintains the set of concurrently live circuits for the local
// process (spec §4.5). Per-circuit locks mean inter-circuit operations
// never block each other (spec §5).
type Manager struct {
	cfg   Config
	probe ProbeFunc
	log   *slog.Logger
	now   func() time.Time

	mu       sync.RWMutex
	circuits map[uint64]*Circuit
	nextID   uint64

	rateMu      sync.Mutex
	lastBuildAt time.Time
}

// NewManager constructs a Manager. probe is invoked once per build to
// confirm the fresh circuit's first hop is reachable before it is marked
// Active.
func NewManager(cfg Config, probe ProbeFunc, log *slog.Logger, now func() time.Time) *Manager {
	if log == nil {
		log = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Manager{
		cfg:      cfg,
		probe:    probe,
		log:      log.With("component", "circuit_manager"),
		now:      now,
		circuits: make(map[uint64]*Circuit),
	}
}

// Build selects cfg.HopCount relays from candidates and constructs a new
// circuit, rate-limited to ≤ 1 build/s (spec §4.5). On a successful probe
// round-trip the circuit transitions Building → Active.
func (m *Manager) Build(ctx context.Context, candidates []Relay) (*Circuit, error) {
	if err := m.checkRate(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	atCapacity := len(m.circuits) >= m.cfg.MaxConcurrent
	m.mu.RUnlock()
	if atCapacity {
		return nil, ErrCapacity
	}

	hops, err := SelectHops(candidates, m.cfg.HopCount)
	if err != nil {
		return nil, err
	}

	id := atomic.AddUint64(&m.nextID, 1)
	c := newCircuit(id, hops, m.now)

	m.mu.Lock()
	m.circuits[id] = c
	m.mu.Unlock()

	probeCtx, cancel := context.WithTimeout(ctx, m.cfg.ProbeTimeout)
	defer cancel()

	if m.probe != nil {
		if err := m.probe(probeCtx, c); err != nil {
			c.fail()
			m.log.Warn("circuit probe failed", "circuit_id", id, "err", err)
			return c, ErrBuildTimeout
		}
	}
	c.activate()
	return c, nil
}

func (m *Manager) checkRate() error {
	m.rateMu.Lock()
	defer m.rateMu.Unlock()
	now := m.now()
	if !m.lastBuildAt.IsZero() && now.Sub(m.lastBuildAt) < m.cfg.MinBuildInterval {
		return ErrRateLimited
	}
	m.lastBuildAt = now
	return nil
}

// GetActive returns the highest-quality circuit younger than cfg.Lifetime,
// or nil if none qualify (spec §4.5).
func (m *Manager) GetActive() *Circuit {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var best *Circuit
	var bestQuality float64
	for _, c := range m.circuits {
		if c.State() != StateActive {
			continue
		}
		if c.Age() >= m.cfg.Lifetime {
			continue
		}
		q := c.Quality()
		if best == nil || q > bestQuality {
			best = c
			bestQuality = q
		}
	}
	return best
}

// NeedsRotation reports whether callers should prefer a fresh circuit over
// c, because it has passed the rotation interval.
func (m *Manager) NeedsRotation(c *Circuit) bool {
	return c.Age() >= m.cfg.RotationInterval
}

// Teardown marks circuit id Closed and removes it from the live set. It is
// best-effort: an unknown id is a no-op, not an error upstream, matching
// spec §4.5's "always marks the circuit Closed".
func (m *Manager) Teardown(id uint64) {
	m.mu.Lock()
	c, ok := m.circuits[id]
	if ok {
		delete(m.circuits, id)
	}
	m.mu.Unlock()
	if ok {
		c.teardown()
	}
}

// Get returns the circuit record for id, if live.
func (m *Manager) Get(id uint64) (*Circuit, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.circuits[id]
	return c, ok
}

// Len reports the number of circuits currently tracked (any state).
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.circuits)
}
