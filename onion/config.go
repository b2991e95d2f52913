package onion

import "time"

// LayerSize is the fixed wire size every transmitted layer is padded to
// (spec §4.4/§6: "Every transmitted layer is padded to exactly 4096
// bytes").
const LayerSize = 4096

// Config tunes metadata-protection knobs.
type Config struct {
	// ReplayWindow bounds how far a layer's timestamp may drift from the
	// local clock before peeling rejects it as Timing.
	ReplayWindow time.Duration

	// TimestampBucket quantizes transmitted timestamps (spec: "quantized
	// to buckets (default 100 ms) plus uniform jitter within the
	// bucket").
	TimestampBucket time.Duration
}

func Default() Config {
	return Config{
		ReplayWindow:    5 * time.Minute,
		TimestampBucket: 100 * time.Millisecond,
	}
}

func Mainnet() Config { return Default() }
func Testnet() Config { return Default() }

func Local() Config {
	c := Default()
	c.ReplayWindow = time.Minute
	return c
}
