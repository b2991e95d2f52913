package discovery

import "time"

// Config bounds the K-bucket table and bootstrap behavior.
type Config struct {
	// BucketSize is K, the maximum peers held per K-bucket.
	BucketSize int

	// MinReputation and MaxReputation bound a peer record's reputation
	// score; InitialReputation is where new records start.
	MinReputation     int
	MaxReputation     int
	InitialReputation int

	// BootstrapConcurrency caps parallel contact attempts during
	// Bootstrap.
	BootstrapConcurrency int

	// MinCircuitInterval is the minimum spacing between the follow-up
	// slots Bootstrapper records for successful contacts (spec: "≤ 1 new
	// circuit per second by default"); no circuit is started by this
	// package.
	MinCircuitInterval time.Duration

	// BackoffBase is the base of the exponential backoff window
	// (spec: "30 s × attempts²").
	BackoffBase time.Duration
}

// Default returns the reference configuration from spec §4.3.
func Default() Config {
	return Config{
		BucketSize:           20,
		MinReputation:        -50,
		MaxReputation:        100,
		InitialReputation:    50,
		BootstrapConcurrency: 8,
		MinCircuitInterval:   time.Second,
		BackoffBase:          30 * time.Second,
	}
}

func Mainnet() Config { return Default() }

func Testnet() Config {
	c := Default()
	c.BootstrapConcurrency = 4
	return c
}

func Local() Config {
	c := Default()
	c.BucketSize = 4
	c.BootstrapConcurrency = 2
	c.MinCircuitInterval = 10 * time.Millisecond
	c.BackoffBase = 100 * time.Millisecond
	return c
}
