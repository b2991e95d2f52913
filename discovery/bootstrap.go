package discovery

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/qrmesh/dagmix/ids"
	"golang.org/x/sync/errgroup"
)

// ContactFunc attempts to reach a seed address and, on success, returns the
// peer id it resolved to. Supplied by the embedding application so this
// package stays transport-agnostic.
type ContactFunc func(ctx context.Context, addr string) (ids.PeerID, error)

// Bootstrapper drives the engine's initial population of the routing table
// from a static seed list (spec §4.3).
type Bootstrapper struct {
	cfg     Config
	table   *RoutingTable
	contact ContactFunc
	log     *slog.Logger

	mu           sync.Mutex
	lastCircuit  time.Time
	attempted    map[string]bool
}

// NewBootstrapper constructs a Bootstrapper that inserts successfully
// contacted peers into table.
func NewBootstrapper(cfg Config, table *RoutingTable, contact ContactFunc, log *slog.Logger) *Bootstrapper {
	if log == nil {
		log = slog.Default()
	}
	return &Bootstrapper{
		cfg:       cfg,
		table:     table,
		contact:   contact,
		log:       log.With("component", "bootstrap"),
		attempted: make(map[string]bool),
	}
}

// Run attempts every seed address in parallel up to cfg.BootstrapConcurrency
// and inserts each resolved peer into the routing table. Run is idempotent:
// addresses already attempted in a prior call are skipped, so calling it
// twice yields the same table membership modulo ordering (spec: "Discovery
// bootstrap applied twice yields the same routing-table membership modulo
// order").
func (b *Bootstrapper) Run(ctx context.Context, seeds []string) error {
	if len(seeds) == 0 {
		return ErrNoSeeds
	}

	b.mu.Lock()
	pending := make([]string, 0, len(seeds))
	for _, s := range seeds {
		if !b.attempted[s] {
			b.attempted[s] = true
			pending = append(pending, s)
		}
	}
	b.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.BootstrapConcurrency)

	for _, addr := range pending {
		addr := addr
		g.Go(func() error {
			peer, err := b.contact(gctx, addr)
			if err != nil {
				b.log.Debug("bootstrap contact failed", "addr", addr, "err", err)
				return nil
			}
			b.table.Insert(peer)
			b.throttledFollowUp()
			return nil
		})
	}
	return g.Wait()
}

// throttledFollowUp records the time of a successful bootstrap contact as
// the last follow-up slot, at most once per cfg.MinCircuitInterval. It
// starts no neighborhood lookup or circuit itself.
func (b *Bootstrapper) throttledFollowUp() {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now()
	if now.Sub(b.lastCircuit) < b.cfg.MinCircuitInterval {
		return
	}
	b.lastCircuit = now
}
