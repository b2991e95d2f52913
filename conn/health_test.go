package conn

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQualityClampedAndPenalized(t *testing.T) {
	require.InDelta(t, 1.0, Quality(1.0, 50), 1e-9)
	require.InDelta(t, 0.0, Quality(0.0, 50), 1e-9)

	// avg_rt_ms above 100 applies a penalty.
	q := Quality(1.0, 1100)
	require.InDelta(t, 1.0-0.2, q, 1e-9)

	// Penalty cannot push below zero.
	q = Quality(0.05, 10100)
	require.Equal(t, 0.0, q)
}
