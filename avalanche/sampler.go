package avalanche

import (
	"context"

	"github.com/qrmesh/dagmix/ids"
)

// Sampler draws up to n live peer ids for a consensus round, uniformly at
// random over the healthy population (spec §4.8: "sample k live peers
// uniformly from C3 using C2 health scores"). Implementations typically
// wrap discovery.SelectTopK with a quality-weighted candidate pool.
type Sampler interface {
	Sample(n int) []ids.PeerID
}

// QueryFunc sends a Query to peer and returns its reply. ok is false on
// timeout or transport failure, which the engine treats as a "no" vote
// and a reputation penalty (spec §4.8 "Failure handling").
type QueryFunc func(ctx context.Context, peer ids.PeerID, q Query) (reply QueryReply, ok bool)

// ReputationSink receives the outcome of each sampled query so C3 can
// adjust peer reputation (spec §4.8: "peers that repeatedly time out have
// their reputation decremented via C3").
type ReputationSink interface {
	Record(peer ids.PeerID, success bool)
}
