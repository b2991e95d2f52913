package discovery

import (
	"math"
	"sync"
	"time"

	"github.com/qrmesh/dagmix/conn"
	"github.com/qrmesh/dagmix/ids"
)

// Capabilities advertises optional peer features relevant to routing
// decisions (spec §4.3: "capabilities (onion support, relay, etc.)").
type Capabilities struct {
	OnionRelay bool
	Exit       bool
	Guard      bool
	Stable     bool
}

// GeoInfo is optional geographic metadata used by selection's geo_bonus
// term. Zero value means "unknown", contributing no bonus.
type GeoInfo struct {
	Known   bool
	Region  string
	Latency time.Duration
}

// PeerRecord tracks a single peer's reputation, attempt history, and
// capabilities (spec §4.3).
type PeerRecord struct {
	mu sync.Mutex

	ID ids.PeerID

	reputation int
	minRep     int
	maxRep     int

	attempts    int
	successes   int
	lastAttempt time.Time
	blacklisted bool
	uptimePct   float64
	load        float64 // 0..100, lower is better
	caps        Capabilities
	geo         GeoInfo
	breaker     *conn.Breaker

	backoffBase time.Duration
	now         func() time.Time
}

// NewPeerRecord creates a record at the configured initial reputation.
func NewPeerRecord(id ids.PeerID, cfg Config, now func() time.Time) *PeerRecord {
	if now == nil {
		now = time.Now
	}
	return &PeerRecord{
		ID:          id,
		reputation:  cfg.InitialReputation,
		minRep:      cfg.MinReputation,
		maxRep:      cfg.MaxReputation,
		backoffBase: cfg.BackoffBase,
		breaker:     conn.NewBreaker(now),
		now:         now,
	}
}

// RecordAttempt marks a connection attempt and its outcome, adjusting
// reputation and driving the breaker.
func (p *PeerRecord) RecordAttempt(success bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts++
	p.lastAttempt = p.now()
	if success {
		p.successes++
		p.breaker.RecordSuccess()
		p.adjustRep(1)
	} else {
		p.breaker.RecordFailure()
		p.adjustRep(-2)
	}
}

func (p *PeerRecord) adjustRep(delta int) {
	p.reputation += delta
	if p.reputation > p.maxRep {
		p.reputation = p.maxRep
	}
	if p.reputation < p.minRep {
		p.reputation = p.minRep
	}
}

// Reputation returns the current reputation score.
func (p *PeerRecord) Reputation() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reputation
}

// Blacklist permanently excludes this peer from selection.
func (p *PeerRecord) Blacklist() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.blacklisted = true
}

// SetObservables updates the soft signals (uptime %, load, geo info,
// capabilities) used by Selection's priority formula.
func (p *PeerRecord) SetObservables(uptimePct, load float64, caps Capabilities, geo GeoInfo) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.uptimePct = uptimePct
	p.load = load
	p.caps = caps
	p.geo = geo
}

// ShouldAttempt reports whether a new connection attempt to this peer is
// currently permitted (spec §4.3 should_attempt).
func (p *PeerRecord) ShouldAttempt() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.blacklisted {
		return false
	}
	if p.reputation < p.minRep {
		return false
	}
	if p.breaker.State() == conn.BreakerOpen && !p.breaker.AllowRequest() {
		return false
	}
	if p.attempts > 0 {
		backoff := p.backoffBase * time.Duration(p.attempts*p.attempts)
		if p.now().Sub(p.lastAttempt) < backoff {
			return false
		}
	}
	return true
}

// priorityScore computes `reputation + 20·quality + 0.1·(100−load) +
// geo_bonus + 0.1·uptime%` (spec §4.3 Selection), where quality is supplied
// by the caller from the connection substrate (PeerRecord itself does not
// own connection-layer health scores).
func (p *PeerRecord) priorityScore(quality float64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	geoBonus := 0.0
	if p.geo.Known {
		geoBonus = math.Max(0, 10-p.geo.Latency.Seconds()*10)
	}
	return float64(p.reputation) + 20*quality + 0.1*(100-p.load) + geoBonus + 0.1*p.uptimePct
}

// Registry is the single place every discovery method's candidates pass
// through on their way into Selection: whichever method (DNS seed, mDNS,
// gossip, hybrid composition) first observes a peer id gets it a
// PeerRecord at the configured initial reputation; later observations
// reuse the existing record rather than resetting its history (spec §4.3:
// Selection ranks PeerRecords, so a peer found only by an address, never
// ingested here, can never be selected).
type Registry struct {
	mu      sync.Mutex
	cfg     Config
	now     func() time.Time
	records map[ids.PeerID]*PeerRecord
}

// NewRegistry constructs an empty Registry.
func NewRegistry(cfg Config, now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{cfg: cfg, now: now, records: make(map[ids.PeerID]*PeerRecord)}
}

// Ingest upserts a PeerRecord for every distinct id in found, creating one
// at the configured initial reputation on first sighting, and returns the
// (possibly pre-existing) records in the same order as found's first
// occurrence of each id.
func (r *Registry) Ingest(found []Found) []*PeerRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*PeerRecord, 0, len(found))
	seen := make(map[ids.PeerID]bool, len(found))
	for _, f := range found {
		if seen[f.ID] {
			continue
		}
		seen[f.ID] = true
		rec, ok := r.records[f.ID]
		if !ok {
			rec = NewPeerRecord(f.ID, r.cfg, r.now)
			r.records[f.ID] = rec
		}
		out = append(out, rec)
	}
	return out
}

// Get returns the record for id, if one has been ingested.
func (r *Registry) Get(id ids.PeerID) (*PeerRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	return rec, ok
}

// All returns every record currently held by the registry, in no
// particular order.
func (r *Registry) All() []*PeerRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*PeerRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	return out
}
