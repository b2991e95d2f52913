package avalanche

import (
	"testing"
	"time"

	"github.com/qrmesh/dagmix/ids"
	"github.com/stretchr/testify/require"
)

func TestVoteSetFinalizesAfterBetaConsecutiveQuorums(t *testing.T) {
	a := ids.VertexID{0xA}
	b := ids.VertexID{0xB}
	vs := newVoteSet([32]byte{}, []ids.VertexID{a, b}, time.Unix(0, 0))

	const alpha, beta = 8, 15
	for i := 0; i < beta-1; i++ {
		finalized := vs.recordRound(map[ids.VertexID]int{a: 8, b: 2}, alpha, beta)
		require.False(t, finalized, "round %d should not finalize yet", i)
	}
	finalized := vs.recordRound(map[ids.VertexID]int{a: 8, b: 2}, alpha, beta)
	require.True(t, finalized)
	require.Equal(t, a, vs.winner)
}

func TestVoteSetNeverFinalizesBelowQuorum(t *testing.T) {
	a := ids.VertexID{0xA}
	b := ids.VertexID{0xB}
	vs := newVoteSet([32]byte{}, []ids.VertexID{a, b}, time.Unix(0, 0))

	const alpha, beta = 8, 15
	for i := 0; i < 30; i++ {
		finalized := vs.recordRound(map[ids.VertexID]int{a: 6, b: 4}, alpha, beta)
		require.False(t, finalized)
	}
	require.False(t, vs.finalized)
	require.Zero(t, vs.confidence)
}

func TestVoteSetResetsConfidenceOnPreferenceSwitch(t *testing.T) {
	a := ids.VertexID{0xA}
	b := ids.VertexID{0xB}
	vs := newVoteSet([32]byte{}, []ids.VertexID{a, b}, time.Unix(0, 0))

	const alpha, beta = 8, 15
	vs.recordRound(map[ids.VertexID]int{a: 9, b: 0}, alpha, beta)
	vs.recordRound(map[ids.VertexID]int{a: 9, b: 0}, alpha, beta)
	require.Equal(t, 2, vs.confidence)

	vs.recordRound(map[ids.VertexID]int{a: 0, b: 9}, alpha, beta)
	require.Equal(t, b, vs.preferred)
	require.Equal(t, 1, vs.confidence)
}

func TestVoteSetStuckAfterCeiling(t *testing.T) {
	a := ids.VertexID{0xA}
	vs := newVoteSet([32]byte{}, []ids.VertexID{a}, time.Unix(0, 0))
	require.False(t, vs.stuck(time.Unix(5, 0), 10*time.Second))
	require.True(t, vs.stuck(time.Unix(11, 0), 10*time.Second))
}

func TestVoteSetAddMemberAppendOnlyUntilFinalized(t *testing.T) {
	a := ids.VertexID{0xA}
	b := ids.VertexID{0xB}
	c := ids.VertexID{0xC}
	vs := newVoteSet([32]byte{}, []ids.VertexID{a}, time.Unix(0, 0))
	vs.addMember(b)
	require.Len(t, vs.members, 2)

	vs.finalized = true
	vs.addMember(c)
	require.Len(t, vs.members, 2)
}
