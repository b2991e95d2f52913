package dispatch

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/qrmesh/dagmix/avalanche"
	"github.com/qrmesh/dagmix/circuit"
	"github.com/qrmesh/dagmix/dagstore"
	"github.com/qrmesh/dagmix/discovery"
	"github.com/qrmesh/dagmix/ids"
	"github.com/qrmesh/dagmix/mixnode"
	"github.com/qrmesh/dagmix/onion"
)

// Transmitter sends an already-framed, already-onion-wrapped wire message
// to the given first-hop peer (spec §4.9 outbound path: C4/C5/C6/C2).
type Transmitter interface {
	Send(ctx context.Context, peer ids.PeerID, data []byte) error
}

// Dispatcher implements the embedding interface (spec §6): submit,
// subscribe_finality, stats, shutdown. It owns no consensus or storage
// logic itself — it only routes between the packages that do.
type Dispatcher struct {
	cfg Config

	store    *dagstore.Store
	engine   *avalanche.Engine
	circuits *circuit.Manager
	table    *discovery.RoutingTable
	tx       Transmitter
	signer   *Signer
	localID  ids.PeerID
	onionCfg onion.Config
	relayKP  *onion.RelayKeyPair
	log      *slog.Logger
	now      func() time.Time
	rng      *rand.Rand

	metrics *metrics
	bytesIn  atomic.Uint64
	bytesOut atomic.Uint64

	inbox     chan inboundFrame
	workersWG sync.WaitGroup

	shutdownOnce sync.Once
	stopCh       chan struct{}
}

type inboundFrame struct {
	peer ids.PeerID
	data []byte
}

// NewDispatcher wires together the packages that make up the overlay.
// reg may be nil, in which case metrics are tracked but not exported.
func NewDispatcher(
	cfg Config,
	store *dagstore.Store,
	engine *avalanche.Engine,
	circuits *circuit.Manager,
	table *discovery.RoutingTable,
	tx Transmitter,
	signer *Signer,
	localID ids.PeerID,
	onionCfg onion.Config,
	relayKP *onion.RelayKeyPair,
	reg prometheus.Registerer,
	log *slog.Logger,
	now func() time.Time,
) *Dispatcher {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = slog.Default()
	}
	d := &Dispatcher{
		cfg:      cfg,
		store:    store,
		engine:   engine,
		circuits: circuits,
		table:    table,
		tx:       tx,
		signer:   signer,
		localID:  localID,
		onionCfg: onionCfg,
		relayKP:  relayKP,
		log:      log.With("component", "dispatch"),
		now:      now,
		rng:      rand.New(rand.NewSource(1)),
		metrics:  newMetrics(reg),
		inbox:    make(chan inboundFrame, cfg.WorkerPoolSize*4),
		stopCh:   make(chan struct{}),
	}
	for i := 0; i < cfg.WorkerPoolSize; i++ {
		d.workersWG.Add(1)
		go d.runInboundWorker()
	}
	return d
}

// Submit accepts a payload from the embedding application, selects
// parents from the DAG's current tips, signs and inserts the resulting
// vertex locally, and returns its id (spec §4.9 outbound path).
func (d *Dispatcher) Submit(payload []byte, conflictKey *[32]byte) (ids.VertexID, error) {
	tips := d.store.Tips()
	if len(tips) == 0 {
		return ids.VertexID{}, ErrNoTips
	}
	parents := d.selectParents(tips)

	v := &dagstore.Vertex{
		Parents:     parents,
		Payload:     payload,
		Timestamp:   d.now(),
		Author:      d.localID,
		ConflictKey: conflictKey,
	}
	if d.signer != nil {
		v.AuthorSig = d.signer.Sign(v.CanonicalBytes())
	}
	v.ID = v.ComputeID()

	if err := d.store.Insert(v); err != nil {
		return ids.VertexID{}, fmt.Errorf("dispatch: insert vertex: %w", err)
	}
	if d.engine != nil {
		d.engine.OnAdmission(dagstore.AdmissionEvent{ID: v.ID, ConflictKey: conflictKey})
	}
	return v.ID, nil
}

// selectParents bounds the tip set to [MinParents, MaxParents] (spec
// §4.9: "bounded to P, default 2-8").
func (d *Dispatcher) selectParents(tips []ids.VertexID) []ids.VertexID {
	n := len(tips)
	if n > d.cfg.MaxParents {
		n = d.cfg.MaxParents
	}
	if n < d.cfg.MinParents && len(tips) < d.cfg.MinParents {
		n = len(tips)
	} else if n < d.cfg.MinParents {
		n = d.cfg.MinParents
	}
	shuffled := append([]ids.VertexID(nil), tips...)
	d.rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	return shuffled[:n]
}

// SubscribeFinality exposes the consensus engine's finality stream (spec
// §6: "subscribe_finality() → stream<(vertex_id, Final|Rejected)>").
func (d *Dispatcher) SubscribeFinality() <-chan avalanche.FinalityEvent {
	return d.engine.Finality()
}

// Stats returns the current embedding-interface snapshot (spec §6).
func (d *Dispatcher) Stats() Stats {
	s := Stats{
		VertexCount:     d.store.Len(),
		TipCount:        len(d.store.Tips()),
		FinalizedHeight: d.store.FinalizedCount(),
		BytesIn:         d.bytesIn.Load(),
		BytesOut:        d.bytesOut.Load(),
		QueueDepth:      len(d.inbox),
	}
	if d.table != nil {
		s.PeerCount = d.table.Len()
	}
	if d.circuits != nil {
		s.ActiveCircuits = d.circuits.Len()
	}

	d.metrics.vertexCount.Set(float64(s.VertexCount))
	d.metrics.tipCount.Set(float64(s.TipCount))
	d.metrics.finalizedHeight.Set(float64(s.FinalizedHeight))
	d.metrics.peerCount.Set(float64(s.PeerCount))
	d.metrics.activeCircuits.Set(float64(s.ActiveCircuits))
	d.metrics.queueDepth.Set(float64(s.QueueDepth))
	return s
}

// HandleInbound accepts an opened (post-C1, post-C4-peel) payload from
// peer and queues it for kind-based dispatch.
func (d *Dispatcher) HandleInbound(peer ids.PeerID, payload []byte) error {
	select {
	case <-d.stopCh:
		return ErrShuttingDown
	default:
	}

	d.bytesIn.Add(uint64(len(payload)))
	d.metrics.bytesIn.Add(float64(len(payload)))
	select {
	case d.inbox <- inboundFrame{peer: peer, data: payload}:
		return nil
	case <-d.stopCh:
		return ErrShuttingDown
	}
}

func (d *Dispatcher) runInboundWorker() {
	defer d.workersWG.Done()
	for {
		select {
		case <-d.stopCh:
			// Process the frames already queued, then exit.
			for {
				select {
				case f := <-d.inbox:
					d.dispatchOne(f)
				default:
					return
				}
			}
		case f, ok := <-d.inbox:
			if !ok {
				return
			}
			d.dispatchOne(f)
		}
	}
}

func (d *Dispatcher) dispatchOne(f inboundFrame) {
	env, err := UnmarshalEnvelope(f.data)
	if err != nil {
		d.log.Warn("dropping malformed inbound frame", "peer", f.peer.String(), "error", err)
		return
	}
	switch env.Kind {
	case FrameVertex:
		d.handleVertex(env.Body)
	case FrameQuery:
		d.handleQuery(f.peer, env.Body)
	case FrameQueryReply:
		// Replies are consumed synchronously by the avalanche.QueryFunc
		// the engine was built with; nothing to do on the async inbound
		// path.
	case FrameHeartbeat:
		// Liveness-only; no action beyond having drained the frame.
	default:
		d.log.Warn("unknown frame kind", "kind", env.Kind, "peer", f.peer.String())
	}
}

func (d *Dispatcher) handleVertex(body []byte) {
	v, err := decodeWireVertex(body)
	if err != nil {
		d.log.Warn("dropping malformed vertex", "error", err)
		return
	}
	if len(v.AuthorSig) > 0 {
		pub := ed25519.PublicKey(v.Author.Bytes())
		if len(pub) == ed25519.PublicKeySize && !Verify(pub, v.CanonicalBytes(), v.AuthorSig) {
			d.log.Warn("dropping vertex with invalid signature", "vertex", v.ID.String())
			return
		}
	}
	if err := d.store.Insert(v); err != nil {
		d.log.Debug("vertex insert rejected", "vertex", v.ID.String(), "error", err)
		return
	}
	if d.engine != nil {
		d.engine.OnAdmission(dagstore.AdmissionEvent{ID: v.ID, ConflictKey: v.ConflictKey})
	}
}

func (d *Dispatcher) handleQuery(peer ids.PeerID, body []byte) {
	q, err := avalanche.UnmarshalQuery(body)
	if err != nil {
		d.log.Warn("dropping malformed query", "peer", peer.String(), "error", err)
		return
	}
	st, ok := d.store.State(q.VertexID)
	prefers := q.VertexID
	if ok && st == dagstore.StateRejected {
		// We no longer prefer this vertex; report back whichever
		// sibling in its conflict set we do prefer, if any.
		if siblings := d.store.InConflictWith(q.VertexID); len(siblings) > 0 {
			prefers = siblings[0]
		}
	}
	reply := avalanche.QueryReply{Round: q.Round, VertexID: q.VertexID, Prefers: prefers, AskerID: d.localID}
	envelope := Envelope{Kind: FrameQueryReply, Body: reply.Marshal()}
	if d.tx == nil {
		return
	}
	if err := d.tx.Send(context.Background(), peer, envelope.Marshal()); err != nil {
		d.log.Debug("failed to send query reply", "peer", peer.String(), "error", err)
	}
}

// AnnounceVertex wraps v for the wire and transmits it directly (no onion
// wrapping — vertex gossip travels peer-to-peer, not through a circuit)
// to each of peers (spec §4.9: "transmits ... to selected peers from
// C3").
func (d *Dispatcher) AnnounceVertex(ctx context.Context, v *dagstore.Vertex, peers []ids.PeerID) {
	if d.tx == nil {
		return
	}
	wire := Envelope{Kind: FrameVertex, Body: encodeWireVertex(v)}.Marshal()
	for _, p := range peers {
		if err := d.tx.Send(ctx, p, wire); err != nil {
			d.log.Debug("failed to announce vertex", "peer", p.String(), "vertex", v.ID.String(), "error", err)
			continue
		}
		d.bytesOut.Add(uint64(len(wire)))
		d.metrics.bytesOut.Add(float64(len(wire)))
	}
}

// Transmit onion-wraps payload along route and sends the outermost
// layer to route[0] through the configured mix node.
func (d *Dispatcher) Transmit(ctx context.Context, route []onion.Hop, payload []byte, mix *mixnode.MixNode) error {
	wire, err := onion.Wrap(route, payload, d.onionCfg)
	if err != nil {
		return fmt.Errorf("dispatch: wrap: %w", err)
	}
	if mix != nil {
		return mix.Submit(mixnode.Message{Data: wire})
	}
	if len(route) == 0 || d.tx == nil {
		return nil
	}
	firstHop, ok := ids.PeerIDFromBytes(route[0].ID)
	if !ok {
		return fmt.Errorf("dispatch: first hop id is not a valid peer id")
	}
	d.bytesOut.Add(uint64(len(wire)))
	d.metrics.bytesOut.Add(float64(len(wire)))
	return d.tx.Send(ctx, firstHop, wire)
}

// Shutdown stops accepting new inbound work and waits up to ShutdownGrace
// for the workers to process the frames already queued. If the grace
// period expires first, Shutdown logs a warning and returns; the workers
// are not stopped and go on draining in the background.
func (d *Dispatcher) Shutdown() {
	d.shutdownOnce.Do(func() {
		close(d.stopCh)
	})

	done := make(chan struct{})
	go func() {
		d.workersWG.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(d.cfg.ShutdownGrace):
		d.log.Warn("dispatcher shutdown grace period expired with workers still draining")
	}
}
