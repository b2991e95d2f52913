package mixnode

import "time"

// Config tunes batching, dummy injection, and traffic shaping (spec §4.6).
type Config struct {
	BatchSize        int
	BatchTimeout     time.Duration
	DummyProbability float64
	TargetRateMsgSec float64
	JitterMin        time.Duration
	JitterMax        time.Duration
}

func Default() Config {
	return Config{
		BatchSize:        100,
		BatchTimeout:     500 * time.Millisecond,
		DummyProbability: 0.1,
		TargetRateMsgSec: 50,
		JitterMin:        50 * time.Millisecond,
		JitterMax:        150 * time.Millisecond,
	}
}

func Mainnet() Config { return Default() }
func Testnet() Config { return Default() }

func Local() Config {
	c := Default()
	c.BatchSize = 8
	c.BatchTimeout = 50 * time.Millisecond
	c.TargetRateMsgSec = 1000
	c.JitterMin = 0
	c.JitterMax = time.Millisecond
	return c
}
