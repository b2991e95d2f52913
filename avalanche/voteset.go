package avalanche

import (
	"sync"
	"time"

	"github.com/qrmesh/dagmix/ids"
)

// voteSet tracks one conflict set's confidence state: the currently
// preferred member and how many consecutive rounds it has held an
// α-quorum. The update rule mirrors the teacher's polyadic wave
// (confidence resets whenever the preference changes, then increments on
// every round the new preference clears the threshold; spec §4.8).
type voteSet struct {
	mu sync.Mutex

	key        [32]byte
	members    []ids.VertexID
	preferred  ids.VertexID
	confidence int
	rounds     int
	finalized  bool
	winner     ids.VertexID
	createdAt  time.Time
}

func newVoteSet(key [32]byte, members []ids.VertexID, now time.Time) *voteSet {
	var preferred ids.VertexID
	if len(members) > 0 {
		preferred = members[0]
	}
	return &voteSet{
		key:       key,
		members:   append([]ids.VertexID(nil), members...),
		preferred: preferred,
		createdAt: now,
	}
}

// addMember appends a newly admitted sibling to the conflict set. Per
// spec §4.7, membership is append-only until finalization.
func (vs *voteSet) addMember(id ids.VertexID) {
	if vs.finalized {
		return
	}
	for _, m := range vs.members {
		if m == id {
			return
		}
	}
	vs.members = append(vs.members, id)
}

// recordRound applies one round's tally of votes (vertex id → number of
// sampled peers that named it as preferred). It returns true the round
// this vote set finalizes.
func (vs *voteSet) recordRound(tally map[ids.VertexID]int, alpha, beta int) bool {
	if vs.finalized {
		return false
	}
	vs.rounds++

	var argmax ids.VertexID
	best := -1
	for _, m := range vs.members {
		if c := tally[m]; c > best {
			best = c
			argmax = m
		}
	}

	if best < alpha {
		vs.confidence = 0
		return false
	}

	if argmax != vs.preferred {
		vs.preferred = argmax
		vs.confidence = 0
	}
	vs.confidence++

	if vs.confidence >= beta {
		vs.finalized = true
		vs.winner = vs.preferred
		return true
	}
	return false
}

// stuck reports whether this vote set has run past its wall-clock ceiling
// without finalizing (spec §4.8 "oscillates ... marked Stuck").
func (vs *voteSet) stuck(now time.Time, ceiling time.Duration) bool {
	return !vs.finalized && now.Sub(vs.createdAt) > ceiling
}
