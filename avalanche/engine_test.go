package avalanche

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/qrmesh/dagmix/dagstore"
	"github.com/qrmesh/dagmix/ids"
	"github.com/stretchr/testify/require"
)

type fixedSampler struct{ peers []ids.PeerID }

func (f fixedSampler) Sample(n int) []ids.PeerID {
	if n >= len(f.peers) {
		return f.peers
	}
	return f.peers[:n]
}

func makePeers(n int) []ids.PeerID {
	out := make([]ids.PeerID, n)
	for i := range out {
		out[i] = ids.PeerID{byte(i + 1)}
	}
	return out
}

func newVertexFor(t *testing.T, payload string, parents []ids.VertexID, ts time.Time, conflictKey *[32]byte) *dagstore.Vertex {
	t.Helper()
	v := &dagstore.Vertex{Parents: parents, Payload: []byte(payload), Timestamp: ts, Author: ids.PeerID{9}, ConflictKey: conflictKey}
	v.ID = v.ComputeID()
	return v
}

// TestEngineFinalizesEightTwoSplit reproduces spec §8 scenario 2: with
// k=10, α=8, β=15 and a stable 8/2 split, the majority vertex finalizes
// within β rounds and its conflict-set sibling is rejected.
func TestEngineFinalizesEightTwoSplit(t *testing.T) {
	store := dagstore.New(nil)
	g := newVertexFor(t, "genesis", nil, time.Unix(1, 0), nil)
	require.NoError(t, store.Insert(g))

	key := dagstore.ConflictKeyFor([]byte("double-spend"))
	a := newVertexFor(t, "double-spend", []ids.VertexID{g.ID}, time.Unix(2, 0), &key)
	bKey := key
	b := &dagstore.Vertex{Parents: []ids.VertexID{g.ID}, Payload: []byte("double-spend"), Timestamp: time.Unix(2, 1), Author: ids.PeerID{7}, ConflictKey: &bKey}
	b.ID = b.ComputeID()

	peers := makePeers(10)
	queryFn := func(_ context.Context, peer ids.PeerID, q Query) (QueryReply, bool) {
		prefers := a.ID
		if peer[0] > 8 { // peers 9,10 (2 of 10) prefer B
			prefers = b.ID
		}
		return QueryReply{Round: q.Round, VertexID: q.VertexID, Prefers: prefers, AskerID: q.AskerID}, true
	}

	cfg := Config{K: 10, AlphaConfidence: 8, Beta: 15, Round: 2 * time.Millisecond, SampleTimeout: 20 * time.Millisecond, StuckCeiling: time.Hour}
	engine := NewEngine(cfg, store, fixedSampler{peers: peers}, queryFn, nil, ids.PeerID{0xFF}, nil, nil)
	defer engine.Shutdown()

	require.NoError(t, store.Insert(a))
	engine.OnAdmission(dagstore.AdmissionEvent{ID: a.ID, ConflictKey: &key})
	require.NoError(t, store.Insert(b))
	engine.OnAdmission(dagstore.AdmissionEvent{ID: b.ID, ConflictKey: &bKey})

	seen := map[ids.VertexID]dagstore.State{}
	deadline := time.After(5 * time.Second)
	for len(seen) < 2 {
		select {
		case ev := <-engine.Finality():
			seen[ev.VertexID] = ev.State
		case <-deadline:
			t.Fatalf("timed out waiting for finality, got %v", seen)
		}
	}

	require.Equal(t, dagstore.StateFinal, seen[a.ID])
	require.Equal(t, dagstore.StateRejected, seen[b.ID])
}

// TestEngineNeitherFinalizesOnSixFourSplit reproduces the second half of
// spec §8 scenario 2: a 6/4 split never clears α=8 and so never
// finalizes.
func TestEngineNeitherFinalizesOnSixFourSplit(t *testing.T) {
	store := dagstore.New(nil)
	g := newVertexFor(t, "genesis", nil, time.Unix(1, 0), nil)
	require.NoError(t, store.Insert(g))

	key := dagstore.ConflictKeyFor([]byte("double-spend"))
	a := newVertexFor(t, "double-spend", []ids.VertexID{g.ID}, time.Unix(2, 0), &key)
	bKey := key
	b := &dagstore.Vertex{Parents: []ids.VertexID{g.ID}, Payload: []byte("double-spend"), Timestamp: time.Unix(2, 1), Author: ids.PeerID{7}, ConflictKey: &bKey}
	b.ID = b.ComputeID()

	peers := makePeers(10)
	queryFn := func(_ context.Context, peer ids.PeerID, q Query) (QueryReply, bool) {
		prefers := a.ID
		if peer[0] > 6 { // peers 7..10 (4 of 10) prefer B
			prefers = b.ID
		}
		return QueryReply{Round: q.Round, VertexID: q.VertexID, Prefers: prefers, AskerID: q.AskerID}, true
	}

	cfg := Config{K: 10, AlphaConfidence: 8, Beta: 15, Round: 2 * time.Millisecond, SampleTimeout: 20 * time.Millisecond, StuckCeiling: time.Hour, MaxRounds: 30}
	engine := NewEngine(cfg, store, fixedSampler{peers: peers}, queryFn, nil, ids.PeerID{0xFF}, nil, nil)
	defer engine.Shutdown()

	require.NoError(t, store.Insert(a))
	engine.OnAdmission(dagstore.AdmissionEvent{ID: a.ID, ConflictKey: &key})
	require.NoError(t, store.Insert(b))
	engine.OnAdmission(dagstore.AdmissionEvent{ID: b.ID, ConflictKey: &bKey})

	time.Sleep(30 * cfg.Round * 3)

	stA, _ := store.State(a.ID)
	stB, _ := store.State(b.ID)
	require.Equal(t, dagstore.StateAdmitted, stA)
	require.Equal(t, dagstore.StateAdmitted, stB)
}

// TestEngineReputationRecordsTimeouts verifies timed-out samples count as
// "no" and are reported to the reputation sink (spec §4.8 "Failure
// handling").
func TestEngineReputationRecordsTimeouts(t *testing.T) {
	store := dagstore.New(nil)
	g := newVertexFor(t, "genesis", nil, time.Unix(1, 0), nil)
	require.NoError(t, store.Insert(g))
	v := newVertexFor(t, "solo", []ids.VertexID{g.ID}, time.Unix(2, 0), nil)

	peers := makePeers(4)
	calls := make(chan ids.PeerID, 64)
	queryFn := func(_ context.Context, peer ids.PeerID, q Query) (QueryReply, bool) {
		calls <- peer
		return QueryReply{}, false // every sample times out
	}

	rep := &recordingSink{records: make(map[string]int)}
	cfg := Config{K: 4, AlphaConfidence: 3, Beta: 5, Round: 2 * time.Millisecond, SampleTimeout: 5 * time.Millisecond, StuckCeiling: time.Hour, MaxRounds: 3}
	engine := NewEngine(cfg, store, fixedSampler{peers: peers}, queryFn, rep, ids.PeerID{0xFF}, nil, nil)
	defer engine.Shutdown()

	require.NoError(t, store.Insert(v))
	engine.OnAdmission(dagstore.AdmissionEvent{ID: v.ID})

	deadline := time.After(2 * time.Second)
	received := 0
	for received < len(peers) {
		select {
		case <-calls:
			received++
		case <-deadline:
			t.Fatal("timed out waiting for sampled queries")
		}
	}

	time.Sleep(50 * time.Millisecond)
	rep.mu.Lock()
	defer rep.mu.Unlock()
	require.NotEmpty(t, rep.records)
	for _, successes := range rep.records {
		require.Equal(t, 0, successes)
	}
}

type recordingSink struct {
	mu      sync.Mutex
	records map[string]int
}

func (r *recordingSink) Record(peer ids.PeerID, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := fmt.Sprintf("%x", peer)
	if success {
		r.records[key]++
	} else if _, ok := r.records[key]; !ok {
		r.records[key] = 0
	}
}
