package circuit

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/qrmesh/dagmix/ids"
)

// Relay is a directory-published candidate for circuit construction.
type Relay struct {
	ID        ids.PeerID
	Address   string
	Bandwidth int64
	Guard     bool
	Exit      bool
	Stable    bool
}

// weightedRandom picks an index proportional to weights, grounded on the
// same rejection-free weighted-selection idiom used for relay path
// selection elsewhere in the ecosystem.
func weightedRandom(weights []int64) (int, error) {
	var total int64
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return 0, fmt.Errorf("circuit: no positive-weight candidates")
	}

	n, err := rand.Int(rand.Reader, big.NewInt(total))
	if err != nil {
		return 0, fmt.Errorf("circuit: weighted random: %w", err)
	}
	target := n.Int64()

	var cum int64
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		cum += w
		if target < cum {
			return i, nil
		}
	}
	return len(weights) - 1, nil
}

// SelectHops picks n relays from candidates honoring spec §4.5's position
// constraints: position 1 prefers a guard, position n requires exit, all
// must be stable. Selection is bandwidth-weighted without replacement.
func SelectHops(candidates []Relay, n int) ([]Relay, error) {
	if n < 3 {
		return nil, ErrTooFewHops
	}

	pool := append([]Relay(nil), candidates...)
	chosen := make([]Relay, n)

	// The exit position is filled first, so an earlier hop cannot take the
	// only exit-flagged relay; then position 0, then the middle positions.
	for step := 0; step < n; step++ {
		pos := (step + n - 1) % n
		var filtered []Relay
		var weights []int64
		for _, r := range pool {
			if !r.Stable {
				continue
			}
			if pos == n-1 && !r.Exit {
				continue
			}
			if pos == 0 && !r.Guard {
				continue
			}
			filtered = append(filtered, r)
			weights = append(weights, r.Bandwidth)
		}
		// Relax the guard preference at position 0 if no guard-flagged
		// relay remains, rather than failing the whole build.
		if len(filtered) == 0 && pos == 0 {
			for _, r := range pool {
				if r.Stable {
					filtered = append(filtered, r)
					weights = append(weights, r.Bandwidth)
				}
			}
		}
		if len(filtered) == 0 {
			return nil, ErrNoSuitableRelay
		}

		idx, err := weightedRandom(weights)
		if err != nil {
			return nil, err
		}
		picked := filtered[idx]
		chosen[pos] = picked

		kept := pool[:0]
		for _, r := range pool {
			if r.ID != picked.ID {
				kept = append(kept, r)
			}
		}
		pool = kept
	}

	return chosen, nil
}
