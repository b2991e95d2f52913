package discovery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPeerRecordShouldAttemptBlacklisted(t *testing.T) {
	cfg := Default()
	r := NewPeerRecord(mkPeer(1), cfg, nil)
	require.True(t, r.ShouldAttempt())
	r.Blacklist()
	require.False(t, r.ShouldAttempt())
}

func TestPeerRecordBackoffWindow(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	cfg := Default()
	cfg.BackoffBase = time.Second
	r := NewPeerRecord(mkPeer(1), cfg, clock)

	r.RecordAttempt(false)
	require.False(t, r.ShouldAttempt()) // within 1s*1^2 backoff

	now = now.Add(2 * time.Second)
	require.True(t, r.ShouldAttempt())
}

func TestPeerRecordReputationFloor(t *testing.T) {
	cfg := Default()
	r := NewPeerRecord(mkPeer(1), cfg, nil)
	for i := 0; i < 100; i++ {
		r.RecordAttempt(false)
	}
	require.Equal(t, cfg.MinReputation, r.Reputation())
	require.False(t, r.ShouldAttempt())
}

func TestPeerRecordBreakerGatesAttempt(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	cfg := Default()
	cfg.BackoffBase = 0
	r := NewPeerRecord(mkPeer(1), cfg, clock)

	for i := 0; i < 5; i++ {
		r.RecordAttempt(false)
	}
	require.False(t, r.ShouldAttempt())

	now = now.Add(60 * time.Second)
	require.True(t, r.ShouldAttempt())
}
