package discovery

import (
	"context"
	"testing"

	"github.com/qrmesh/dagmix/ids"
	"github.com/stretchr/testify/require"
)

func TestGossipMethodReturnsKnownPeers(t *testing.T) {
	m := NewMethod(Method{Kind: MethodGossip, GossipPeers: []string{"1.2.3.4:9000", "5.6.7.8:9000"}}, nil, nil)
	found, err := m.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, found, 2)
	for _, f := range found {
		require.Equal(t, MethodGossip, f.Method)
	}
}

func TestHybridMethodMergesSubMethods(t *testing.T) {
	m := NewMethod(Method{
		Kind: MethodHybrid,
		Hybrid: []Method{
			NewMethod(Method{Kind: MethodGossip, GossipPeers: []string{"a:1"}}, nil, nil),
			NewMethod(Method{Kind: MethodGossip, GossipPeers: []string{"b:2", "c:3"}}, nil, nil),
		},
	}, nil, nil)

	found, err := m.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, found, 3)
}

func TestHybridMethodDedupesByPeerID(t *testing.T) {
	m := NewMethod(Method{
		Kind: MethodHybrid,
		Hybrid: []Method{
			NewMethod(Method{Kind: MethodGossip, GossipPeers: []string{"a:1", "b:2"}}, nil, nil),
			NewMethod(Method{Kind: MethodGossip, GossipPeers: []string{"b:2", "c:3"}}, nil, nil),
		},
	}, nil, nil)

	found, err := m.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, found, 3)

	seen := make(map[ids.PeerID]bool)
	for _, f := range found {
		require.False(t, seen[f.ID], "duplicate peer id in hybrid result")
		seen[f.ID] = true
	}
}

func TestDiscoverIngestsIntoRegistry(t *testing.T) {
	reg := NewRegistry(Default(), nil)
	m := NewMethod(Method{Kind: MethodGossip, GossipPeers: []string{"a:1", "b:2"}}, nil, reg)

	found, err := m.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, found, 2)

	for _, f := range found {
		rec, ok := reg.Get(f.ID)
		require.True(t, ok)
		require.Equal(t, f.ID, rec.ID)
	}
	require.Len(t, reg.All(), 2)
}

func TestUnknownMethodKindErrors(t *testing.T) {
	m := NewMethod(Method{Kind: MethodKind(99)}, nil, nil)
	_, err := m.Discover(context.Background())
	require.ErrorIs(t, err, ErrUnknownMethod)
}
