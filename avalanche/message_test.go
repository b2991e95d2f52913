package avalanche

import (
	"testing"

	"github.com/qrmesh/dagmix/ids"
	"github.com/stretchr/testify/require"
)

func TestQueryMarshalRoundTrip(t *testing.T) {
	q := Query{Round: 7, VertexID: ids.VertexID{1, 2, 3}, AskerID: ids.PeerID{9, 9}}
	got, err := UnmarshalQuery(q.Marshal())
	require.NoError(t, err)
	require.Equal(t, q, got)
}

func TestQueryReplyMarshalRoundTrip(t *testing.T) {
	r := QueryReply{Round: 7, VertexID: ids.VertexID{1}, Prefers: ids.VertexID{2}, AskerID: ids.PeerID{3}}
	got, err := UnmarshalQueryReply(r.Marshal())
	require.NoError(t, err)
	require.Equal(t, r, got)
}

func TestUnmarshalQueryWrongSize(t *testing.T) {
	_, err := UnmarshalQuery(make([]byte, 10))
	require.Error(t, err)
}

func TestUnmarshalQueryReplyWrongSize(t *testing.T) {
	_, err := UnmarshalQueryReply(make([]byte, 10))
	require.Error(t, err)
}
