package dispatch

import (
	"testing"

	"github.com/qrmesh/dagmix/avalanche"
	"github.com/qrmesh/dagmix/ids"
	"github.com/qrmesh/dagmix/onion"
)

func onionConfigForTest() onion.Config {
	return onion.Local()
}

func avalancheQueryFor(t *testing.T, vertexID ids.VertexID) []byte {
	t.Helper()
	q := avalanche.Query{Round: 1, VertexID: vertexID, AskerID: ids.PeerID{7}}
	return q.Marshal()
}
