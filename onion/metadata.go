package onion

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// QuantizeTimestamp buckets t to bucket-sized boundaries and adds uniform
// jitter within the bucket, so two layers built moments apart are not
// trivially distinguishable by raw timestamp (spec §4.4 metadata
// protection). The result is a Unix nanosecond count at the bucket's own
// resolution: a 100ms bucket and a 5s bucket must not collapse to the same
// wire value, so this never rounds down to whole seconds.
func QuantizeTimestamp(t time.Time, bucket time.Duration) uint64 {
	if bucket <= 0 {
		return uint64(t.UnixNano())
	}
	nanos := t.UnixNano()
	bucketed := (nanos / int64(bucket)) * int64(bucket)

	var jitterBuf [8]byte
	_, _ = rand.Read(jitterBuf[:])
	jitter := int64(binary.BigEndian.Uint64(jitterBuf[:])) % int64(bucket)
	if jitter < 0 {
		jitter = -jitter
	}

	return uint64(bucketed + jitter)
}

// WithinReplayWindow reports whether a layer's quantized timestamp (Unix
// nanoseconds, as produced by QuantizeTimestamp) is within window of now,
// rejecting stale or future-dated layers as Timing failures.
func WithinReplayWindow(tsNanos uint64, now time.Time, window time.Duration) bool {
	observed := time.Unix(0, int64(tsNanos))
	delta := now.Sub(observed)
	if delta < 0 {
		delta = -delta
	}
	return delta <= window
}

// randomMetadata produces synthetic header bytes. Wrap puts them in every
// layer, the terminal one included; Peel never parses them, so the final
// hop delivers only the plaintext.
func randomMetadata(n int) []byte {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return b
}

// defaultMetadataSize is the synthetic-field width used when the caller
// does not supply explicit metadata.
const defaultMetadataSize = 16
