package dispatch

import (
	"testing"
	"time"

	"github.com/qrmesh/dagmix/dagstore"
	"github.com/qrmesh/dagmix/ids"
	"github.com/stretchr/testify/require"
)

func TestWireVertexRoundTrip(t *testing.T) {
	key := dagstore.ConflictKeyFor([]byte("payload"))
	v := &dagstore.Vertex{
		Parents:     []ids.VertexID{{1}, {2}},
		Payload:     []byte("payload"),
		Timestamp:   time.Unix(123, 456).UTC(),
		Author:      ids.PeerID{9},
		ConflictKey: &key,
	}
	v.ID = v.ComputeID()
	v.AuthorSig = []byte("sig-bytes")

	got, err := decodeWireVertex(encodeWireVertex(v))
	require.NoError(t, err)
	require.Equal(t, v.ID, got.ID)
	require.Equal(t, v.Parents, got.Parents)
	require.Equal(t, v.Payload, got.Payload)
	require.True(t, v.Timestamp.Equal(got.Timestamp))
	require.Equal(t, v.Author, got.Author)
	require.Equal(t, v.AuthorSig, got.AuthorSig)
	require.Equal(t, *v.ConflictKey, *got.ConflictKey)
}

func TestWireVertexRoundTripNoConflictKey(t *testing.T) {
	v := &dagstore.Vertex{Payload: []byte("x"), Timestamp: time.Unix(1, 0).UTC(), Author: ids.PeerID{1}}
	v.ID = v.ComputeID()

	got, err := decodeWireVertex(encodeWireVertex(v))
	require.NoError(t, err)
	require.Nil(t, got.ConflictKey)
}

func TestDecodeWireVertexTruncated(t *testing.T) {
	_, err := decodeWireVertex([]byte{1, 2, 3})
	require.Error(t, err)
}
