package onion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWithinReplayWindow(t *testing.T) {
	now := time.Now()
	ts := uint64(now.UnixNano())
	require.True(t, WithinReplayWindow(ts, now, 5*time.Minute))
	require.False(t, WithinReplayWindow(ts, now.Add(time.Hour), 5*time.Minute))
}

func TestQuantizeTimestampWithinBucketOfNow(t *testing.T) {
	now := time.Now()
	q := QuantizeTimestamp(now, 100*time.Millisecond)
	require.True(t, WithinReplayWindow(q, now, time.Second))
}

// TestQuantizeTimestampPreservesBucketResolution guards against collapsing
// every bucket size down to whole-second granularity: a 100ms bucket must
// distinguish instants a 5s bucket would merge.
func TestQuantizeTimestampPreservesBucketResolution(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	t1 := base
	t2 := base.Add(300 * time.Millisecond)

	fine1 := QuantizeTimestamp(t1, 100*time.Millisecond)
	fine2 := QuantizeTimestamp(t2, 100*time.Millisecond)
	require.NotEqual(t, fine1, fine2, "100ms buckets should separate instants 300ms apart")

	coarse1 := QuantizeTimestamp(t1, 5*time.Second)
	coarse2 := QuantizeTimestamp(t2, 5*time.Second)
	require.Equal(t, coarse1/uint64(5*time.Second), coarse2/uint64(5*time.Second),
		"5s buckets should merge instants 300ms apart into the same bucket")
}

func TestQuantizeTimestampSubSecondPrecisionNotCollapsed(t *testing.T) {
	now := time.Now()
	q := QuantizeTimestamp(now, 100*time.Millisecond)
	// A whole-seconds-only encoding would always be an exact multiple of
	// 1e9 nanoseconds; quantizing at 100ms resolution must not do that.
	require.NotZero(t, q%uint64(time.Second))
}
