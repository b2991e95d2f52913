package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/miekg/dns"
	"github.com/qrmesh/dagmix/ids"
	"golang.org/x/crypto/sha3"
	"golang.org/x/sync/errgroup"
)

// MethodKind tags a discovery method variant, avoiding an open
// trait-object hierarchy on the hot path (spec §9 design note).
type MethodKind int

const (
	MethodKademlia MethodKind = iota
	MethodMdns
	MethodGossip
	MethodDNS
	MethodHybrid
)

func (k MethodKind) String() string {
	switch k {
	case MethodKademlia:
		return "kademlia"
	case MethodMdns:
		return "mdns"
	case MethodGossip:
		return "gossip"
	case MethodDNS:
		return "dns"
	case MethodHybrid:
		return "hybrid"
	default:
		return "unknown"
	}
}

// Found is a single candidate address surfaced by a discovery method.
type Found struct {
	ID     ids.PeerID
	Addr   string
	Method MethodKind
}

// peerIDForAddr derives a stable candidate peer id from a bare address, so
// that two methods observing the same address (or one method observing it
// twice) agree on identity before a real handshake confirms it. This is
// only ever used as a pre-handshake dedup/registry key, not as a
// cryptographic identity claim.
func peerIDForAddr(addr string) ids.PeerID {
	return ids.PeerID(sha3.Sum256([]byte(addr)))
}

// Method is a tagged variant: exactly one of its fields is meaningful,
// selected by Kind. A single Discover dispatch handles every variant.
type Method struct {
	Kind MethodKind

	// DNSSeed names are used when Kind == MethodDNS.
	DNSSeeds []string

	// MdnsService names the zeroconf service type when Kind == MethodMdns.
	MdnsService string

	// Gossip supplies already-known peer addresses to re-announce when
	// Kind == MethodGossip.
	GossipPeers []string

	// Hybrid composes the listed sub-methods, merging their results.
	Hybrid []Method

	dnsClient *dns.Client
	log       *slog.Logger
	registry  *Registry
}

// NewMethod attaches defaults (a DNS client, a logger) to a configured
// Method variant. registry may be nil, in which case discovered candidates
// are returned but never gain a PeerRecord (selection can never pick them).
func NewMethod(m Method, log *slog.Logger, registry *Registry) Method {
	if log == nil {
		log = slog.Default()
	}
	m.dnsClient = &dns.Client{Timeout: 5 * time.Second}
	m.log = log.With("discovery_method", m.Kind.String())
	m.registry = registry
	for i := range m.Hybrid {
		m.Hybrid[i].registry = registry
	}
	return m
}

// Discover resolves this method's candidates, dispatching by Kind
// (spec §9: "a single dispatch function per variant"), then feeds every
// resolved candidate through the shared PeerRecord registry so Selection
// can rank it regardless of which method found it.
func (m Method) Discover(ctx context.Context) ([]Found, error) {
	var (
		out []Found
		err error
	)
	switch m.Kind {
	case MethodDNS:
		out, err = m.discoverDNS(ctx)
	case MethodMdns:
		out, err = m.discoverMdns(ctx)
	case MethodGossip:
		out, err = m.discoverGossip()
	case MethodKademlia:
		// Kademlia lookups are driven by RoutingTable + an RPC transport
		// supplied by the embedding application; this variant yields no
		// candidates of its own.
		out, err = nil, nil
	case MethodHybrid:
		out, err = m.discoverHybrid(ctx)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownMethod, m.Kind)
	}
	if err != nil {
		return nil, err
	}
	if m.registry != nil && len(out) > 0 {
		m.registry.Ingest(out)
	}
	return out, nil
}

func (m Method) discoverDNS(ctx context.Context) ([]Found, error) {
	var out []Found
	for _, seed := range m.DNSSeeds {
		msg := new(dns.Msg)
		msg.SetQuestion(dns.Fqdn(seed), dns.TypeA)

		reply, _, err := m.dnsClient.ExchangeContext(ctx, msg, "8.8.8.8:53")
		if err != nil {
			m.log.Warn("dns seed lookup failed", "seed", seed, "err", err)
			continue
		}
		for _, rr := range reply.Answer {
			if a, ok := rr.(*dns.A); ok {
				addr := net.JoinHostPort(a.A.String(), "0")
				out = append(out, Found{ID: peerIDForAddr(addr), Addr: addr, Method: MethodDNS})
			}
		}
	}
	return out, nil
}

func (m Method) discoverMdns(ctx context.Context) ([]Found, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("discovery: mdns resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry, 16)
	var out []Found
	done := make(chan struct{})
	go func() {
		for e := range entries {
			for _, ip := range e.AddrIPv4 {
				addr := net.JoinHostPort(ip.String(), fmt.Sprint(e.Port))
				out = append(out, Found{ID: peerIDForAddr(addr), Addr: addr, Method: MethodMdns})
			}
		}
		close(done)
	}()

	service := m.MdnsService
	if service == "" {
		service = "_dagmix._tcp"
	}
	if err := resolver.Browse(ctx, service, "local.", entries); err != nil {
		return nil, fmt.Errorf("discovery: mdns browse: %w", err)
	}

	select {
	case <-ctx.Done():
	case <-done:
	}
	return out, nil
}

func (m Method) discoverGossip() ([]Found, error) {
	out := make([]Found, 0, len(m.GossipPeers))
	for _, addr := range m.GossipPeers {
		out = append(out, Found{ID: peerIDForAddr(addr), Addr: addr, Method: MethodGossip})
	}
	return out, nil
}

// discoverHybrid runs every sub-method concurrently, merges their results,
// and de-duplicates by peer id before returning (spec §6 C3 supplement:
// Hybrid composition must not hand Selection the same peer twice just
// because two sub-methods both found it). One sub-method's failure never
// blocks the others.
func (m Method) discoverHybrid(ctx context.Context) ([]Found, error) {
	var (
		mu  sync.Mutex
		out []Found
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, sub := range m.Hybrid {
		sub := sub
		g.Go(func() error {
			found, err := sub.Discover(gctx)
			if err != nil {
				m.log.Warn("hybrid sub-method failed", "kind", sub.Kind.String(), "err", err)
				return nil
			}
			mu.Lock()
			out = append(out, found...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[ids.PeerID]bool, len(out))
	deduped := out[:0]
	for _, f := range out {
		if seen[f.ID] {
			continue
		}
		seen[f.ID] = true
		deduped = append(deduped, f)
	}
	return deduped, nil
}
