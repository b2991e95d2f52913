package discovery

import (
	"context"
	"testing"

	"github.com/qrmesh/dagmix/ids"
	"github.com/stretchr/testify/require"
)

func TestBootstrapInsertsResolvedPeers(t *testing.T) {
	table := NewRoutingTable(mkPeer(0), 20, nil)
	seedToPeer := map[string]ids.PeerID{
		"seed1": mkPeer(1),
		"seed2": mkPeer(2),
	}
	contact := func(ctx context.Context, addr string) (ids.PeerID, error) {
		return seedToPeer[addr], nil
	}

	b := NewBootstrapper(Local(), table, contact, nil)
	err := b.Run(context.Background(), []string{"seed1", "seed2"})
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())
}

func TestBootstrapIsIdempotent(t *testing.T) {
	table := NewRoutingTable(mkPeer(0), 20, nil)
	contact := func(ctx context.Context, addr string) (ids.PeerID, error) {
		return mkPeer(1), nil
	}
	b := NewBootstrapper(Local(), table, contact, nil)

	require.NoError(t, b.Run(context.Background(), []string{"seed1"}))
	require.NoError(t, b.Run(context.Background(), []string{"seed1"}))
	require.Equal(t, 1, table.Len())
}

func TestBootstrapNoSeeds(t *testing.T) {
	table := NewRoutingTable(mkPeer(0), 20, nil)
	b := NewBootstrapper(Local(), table, nil, nil)
	err := b.Run(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoSeeds)
}
