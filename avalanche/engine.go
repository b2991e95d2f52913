package avalanche

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/qrmesh/dagmix/dagstore"
	"github.com/qrmesh/dagmix/ids"
)

// FinalityEvent reports a vertex's terminal consensus outcome.
type FinalityEvent struct {
	VertexID ids.VertexID
	State    dagstore.State
}

type queryJob struct {
	peer     ids.PeerID
	q        Query
	resultCh chan<- queryResult
}

type queryResult struct {
	peer  ids.PeerID
	reply QueryReply
	ok    bool
}

// Engine runs one round-driving goroutine per conflict set against a
// shared sampler-query worker pool (spec §5: "C8 runs one logical task
// per conflict set plus a single sampler pool; cross-task communication
// is bounded message channels").
type Engine struct {
	cfg        Config
	store      *dagstore.Store
	sampler    Sampler
	query      QueryFunc
	reputation ReputationSink
	askerID    ids.PeerID
	log        *slog.Logger
	now        func() time.Time

	jobs chan queryJob

	mu   sync.Mutex
	sets map[[32]byte]*voteSet

	finality chan FinalityEvent

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// poolSize bounds the shared query worker pool.
const poolSize = 16

// NewEngine constructs an Engine and starts its shared sampler pool. Call
// Attach to wire it to a dagstore.Store's admission events, and Shutdown
// to stop all background goroutines.
func NewEngine(cfg Config, store *dagstore.Store, sampler Sampler, query QueryFunc, reputation ReputationSink, askerID ids.PeerID, log *slog.Logger, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = slog.Default()
	}
	e := &Engine{
		cfg:        cfg,
		store:      store,
		sampler:    sampler,
		query:      query,
		reputation: reputation,
		askerID:    askerID,
		log:        log.With("component", "avalanche"),
		now:        now,
		jobs:       make(chan queryJob, poolSize*2),
		sets:       make(map[[32]byte]*voteSet),
		finality:   make(chan FinalityEvent, 256),
		stopCh:     make(chan struct{}),
	}
	for i := 0; i < poolSize; i++ {
		e.wg.Add(1)
		go e.runWorker()
	}
	return e
}

func (e *Engine) runWorker() {
	defer e.wg.Done()
	for {
		select {
		case <-e.stopCh:
			return
		case job, ok := <-e.jobs:
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), e.cfg.SampleTimeout)
			reply, queryOK := e.query(ctx, job.peer, job.q)
			cancel()
			select {
			case job.resultCh <- queryResult{peer: job.peer, reply: reply, ok: queryOK}:
			case <-e.stopCh:
			}
		}
	}
}

// OnAdmission registers a newly admitted vertex for consensus. It is the
// callback to pass as dagstore.New's onAdmit argument (spec §4.7:
// "Admission fires an event consumed by C8").
func (e *Engine) OnAdmission(ev dagstore.AdmissionEvent) {
	key := [32]byte(ev.ID) // singleton vertices use their own id as the conflict key
	if ev.ConflictKey != nil {
		key = *ev.ConflictKey
	}

	e.mu.Lock()
	vs, exists := e.sets[key]
	if !exists {
		vs = newVoteSet(key, []ids.VertexID{ev.ID}, e.now())
		e.sets[key] = vs
	} else {
		vs.mu.Lock()
		vs.addMember(ev.ID)
		vs.mu.Unlock()
	}
	e.mu.Unlock()

	if !exists {
		e.wg.Add(1)
		go e.runConflictSet(vs)
	}
}

func (e *Engine) runConflictSet(vs *voteSet) {
	defer e.wg.Done()
	ticker := time.NewTicker(e.cfg.Round)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			if e.doRound(vs) {
				return
			}
			if e.cfg.MaxRounds > 0 {
				vs.mu.Lock()
				rounds := vs.rounds
				vs.mu.Unlock()
				if rounds >= e.cfg.MaxRounds {
					return
				}
			}
		}
	}
}

// doRound runs a single sampling round for vs and returns true once vs
// has finalized.
func (e *Engine) doRound(vs *voteSet) bool {
	peers := e.sampler.Sample(e.cfg.K)
	if len(peers) == 0 {
		return false
	}

	vs.mu.Lock()
	round := uint32(vs.rounds + 1)
	target := vs.preferred
	vs.mu.Unlock()

	resultCh := make(chan queryResult, len(peers))
	for _, p := range peers {
		q := Query{Round: round, VertexID: target, AskerID: e.askerID}
		select {
		case e.jobs <- queryJob{peer: p, q: q, resultCh: resultCh}:
		case <-e.stopCh:
			return false
		}
	}

	tally := make(map[ids.VertexID]int, len(vs.members))
	for i := 0; i < len(peers); i++ {
		select {
		case res := <-resultCh:
			if e.reputation != nil {
				e.reputation.Record(res.peer, res.ok)
			}
			if res.ok {
				tally[res.reply.Prefers]++
			}
		case <-e.stopCh:
			return false
		}
	}

	vs.mu.Lock()
	finalized := vs.recordRound(tally, e.cfg.AlphaConfidence, e.cfg.Beta)
	winner := vs.winner
	members := append([]ids.VertexID(nil), vs.members...)
	stuck := vs.stuck(e.now(), e.cfg.StuckCeiling)
	vs.mu.Unlock()

	if stuck && !finalized {
		e.log.Warn("conflict set stuck", "key", ids.VertexID(vs.key).String())
	}

	if finalized {
		e.finalize(members, winner)
	}
	return finalized
}

func (e *Engine) finalize(members []ids.VertexID, winner ids.VertexID) {
	for _, m := range members {
		if m == winner {
			_ = e.store.SetState(m, dagstore.StateFinal)
		}
	}
	for _, m := range members {
		st, ok := e.store.State(m)
		if !ok {
			continue
		}
		select {
		case e.finality <- FinalityEvent{VertexID: m, State: st}:
		default:
			e.log.Warn("finality subscriber backlogged, dropping event", "vertex", m.String())
		}
	}
}

// Finality returns the channel of terminal vertex outcomes. Callers
// should drain it promptly; a full buffer drops events rather than
// blocking consensus rounds.
func (e *Engine) Finality() <-chan FinalityEvent {
	return e.finality
}

// Snapshot returns the confidence state of the conflict set keyed by key,
// for diagnostics and tests.
func (e *Engine) Snapshot(key [32]byte) (confidence, rounds int, finalized bool, ok bool) {
	e.mu.Lock()
	vs, exists := e.sets[key]
	e.mu.Unlock()
	if !exists {
		return 0, 0, false, false
	}
	vs.mu.Lock()
	defer vs.mu.Unlock()
	return vs.confidence, vs.rounds, vs.finalized, true
}

// Shutdown stops all round-driving goroutines and the sampler pool.
func (e *Engine) Shutdown() {
	e.stopOnce.Do(func() { close(e.stopCh) })
	e.wg.Wait()
}
