package discovery

import (
	"math/rand"
	"sort"

	"github.com/qrmesh/dagmix/ids"
)

// Candidate pairs a peer record with the connection-layer quality score
// Selection needs but PeerRecord does not itself own.
type Candidate struct {
	Record  *PeerRecord
	Quality float64
}

// SelectionOptions tunes diversity and exploration behavior.
type SelectionOptions struct {
	// Recent holds peers used in the last N selections; when non-empty
	// they are deprioritized (diversity).
	Recent map[ids.PeerID]bool

	// Epsilon is the probability [0,1] of substituting a uniformly random
	// eligible candidate for the top-scored pick at each slot
	// (ε-greedy exploration). Zero disables exploration.
	Epsilon float64

	// Rand supplies randomness for ε-greedy exploration; when nil, each
	// call uses a new source with the fixed seed 1, so default exploration
	// makes the same draws on every call.
	Rand *rand.Rand
}

// SelectTopK returns up to k peers from candidates ranked by
// priorityScore, applying should_attempt filtering, diversity
// deprioritization, and optional ε-greedy exploration (spec §4.3
// Selection).
func SelectTopK(candidates []Candidate, k int, opts SelectionOptions) []ids.PeerID {
	eligible := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Record.ShouldAttempt() {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		si := eligible[i].Record.priorityScore(eligible[i].Quality)
		sj := eligible[j].Record.priorityScore(eligible[j].Quality)
		if opts.Recent != nil {
			if opts.Recent[eligible[i].Record.ID] != opts.Recent[eligible[j].Record.ID] {
				// Non-recent candidates rank ahead of recently-used ones
				// whatever their scores; score orders within each group.
				return !opts.Recent[eligible[i].Record.ID]
			}
		}
		return si > sj
	})

	if k > len(eligible) {
		k = len(eligible)
	}

	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	out := make([]ids.PeerID, 0, k)
	used := make(map[int]bool)
	for len(out) < k {
		idx := nextUnused(used, 0, eligible)
		if opts.Epsilon > 0 && rng.Float64() < opts.Epsilon {
			if alt := randomUnused(rng, used, eligible); alt >= 0 {
				idx = alt
			}
		}
		if idx < 0 {
			break
		}
		used[idx] = true
		out = append(out, eligible[idx].Record.ID)
	}
	return out
}

func nextUnused(used map[int]bool, from int, eligible []Candidate) int {
	for i := from; i < len(eligible); i++ {
		if !used[i] {
			return i
		}
	}
	return -1
}

func randomUnused(rng *rand.Rand, used map[int]bool, eligible []Candidate) int {
	candidates := make([]int, 0, len(eligible))
	for i := range eligible {
		if !used[i] {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return -1
	}
	return candidates[rng.Intn(len(candidates))]
}
