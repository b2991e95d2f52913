package avalanche

import "time"

// Config holds the QR-Avalanche parameters (spec §4.8).
type Config struct {
	// K is the number of peers sampled per round.
	K int
	// AlphaConfidence is the quorum threshold within a round; a round
	// "succeeds" for a candidate when at least this many sampled peers
	// prefer it.
	AlphaConfidence int
	// Beta is the number of consecutive successful rounds required
	// before a vertex becomes Final.
	Beta int
	// Round is the interval between consensus rounds.
	Round time.Duration
	// SampleTimeout bounds a single peer query; per spec §5 this is 2·r.
	SampleTimeout time.Duration
	// StuckCeiling is the wall-clock duration a conflict set may spend
	// without finalizing before it is surfaced as Stuck.
	StuckCeiling time.Duration
	// MaxRounds caps goroutine lifetime in tests and bounded simulations;
	// zero means unbounded.
	MaxRounds int
}

// Default returns the spec's baseline parameters: k=10, α=8 (0.8·k), β=15,
// r=100ms.
func Default() Config {
	return Config{
		K:               10,
		AlphaConfidence: 8,
		Beta:            15,
		Round:           100 * time.Millisecond,
		SampleTimeout:   200 * time.Millisecond,
		StuckCeiling:    30 * time.Second,
	}
}

// Mainnet mirrors Default; production sampling parameters are unchanged
// from spec defaults.
func Mainnet() Config {
	return Default()
}

// Testnet relaxes the stuck ceiling to tolerate noisier test peers.
func Testnet() Config {
	cfg := Default()
	cfg.StuckCeiling = 60 * time.Second
	return cfg
}

// Local shrinks sample size and round interval for fast single-process
// tests and simulations.
func Local() Config {
	return Config{
		K:               4,
		AlphaConfidence: 3,
		Beta:            5,
		Round:           10 * time.Millisecond,
		SampleTimeout:   20 * time.Millisecond,
		StuckCeiling:    2 * time.Second,
	}
}
