package circuit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func threeStableCandidates() []Relay {
	return []Relay{
		{ID: relayID(1), Bandwidth: 100, Guard: true, Stable: true},
		{ID: relayID(2), Bandwidth: 100, Stable: true},
		{ID: relayID(3), Bandwidth: 100, Exit: true, Stable: true},
	}
}

func TestManagerBuildActivatesOnSuccessfulProbe(t *testing.T) {
	m := NewManager(Local(), func(ctx context.Context, c *Circuit) error { return nil }, nil, nil)
	c, err := m.Build(context.Background(), threeStableCandidates())
	require.NoError(t, err)
	require.Equal(t, StateActive, c.State())
}

func TestManagerBuildFailsOnProbeError(t *testing.T) {
	probeErr := errors.New("probe failed")
	m := NewManager(Local(), func(ctx context.Context, c *Circuit) error { return probeErr }, nil, nil)
	c, err := m.Build(context.Background(), threeStableCandidates())
	require.ErrorIs(t, err, ErrBuildTimeout)
	require.Equal(t, StateFailed, c.State())
}

func TestManagerRateLimitsBuild(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	cfg := Default()
	m := NewManager(cfg, func(ctx context.Context, c *Circuit) error { return nil }, nil, clock)

	_, err := m.Build(context.Background(), threeStableCandidates())
	require.NoError(t, err)

	_, err = m.Build(context.Background(), threeStableCandidates())
	require.ErrorIs(t, err, ErrRateLimited)

	now = now.Add(2 * time.Second)
	_, err = m.Build(context.Background(), threeStableCandidates())
	require.NoError(t, err)
}

func TestManagerGetActivePicksHighestQuality(t *testing.T) {
	m := NewManager(Local(), func(ctx context.Context, c *Circuit) error { return nil }, nil, nil)
	c1, err := m.Build(context.Background(), threeStableCandidates())
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	c2, err := m.Build(context.Background(), threeStableCandidates())
	require.NoError(t, err)

	c1.RecordSend(10, false)
	c2.RecordSend(10, true)

	best := m.GetActive()
	require.Equal(t, c2.ID, best.ID)
}

func TestManagerTeardownIsBestEffort(t *testing.T) {
	m := NewManager(Local(), func(ctx context.Context, c *Circuit) error { return nil }, nil, nil)
	m.Teardown(999) // unknown id: no-op, no panic

	c, err := m.Build(context.Background(), threeStableCandidates())
	require.NoError(t, err)
	m.Teardown(c.ID)
	require.Equal(t, StateClosed, c.State())
	_, ok := m.Get(c.ID)
	require.False(t, ok)
}
