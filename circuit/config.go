package circuit

import "time"

// Config bounds circuit manager resource usage (spec §3, §4.5).
type Config struct {
	// MaxConcurrent is the live-circuit cap.
	MaxConcurrent int

	// MinBuildInterval rate-limits new builds (spec: "≤ 1 build/s/process").
	MinBuildInterval time.Duration

	// Lifetime bounds how long a circuit remains eligible for GetActive.
	Lifetime time.Duration

	// RotationInterval is the age past which callers should prefer a
	// fresh circuit even if the current one is still within Lifetime.
	RotationInterval time.Duration

	// HopCount is the default number of relays per built circuit.
	HopCount int

	// ProbeTimeout bounds how long Build waits for the activation probe.
	ProbeTimeout time.Duration
}

func Default() Config {
	return Config{
		MaxConcurrent:     100,
		MinBuildInterval:  time.Second,
		Lifetime:          10 * time.Minute,
		RotationInterval:  5 * time.Minute,
		HopCount:          3,
		ProbeTimeout:      30 * time.Second,
	}
}

func Mainnet() Config { return Default() }
func Testnet() Config { return Default() }

func Local() Config {
	c := Default()
	c.MaxConcurrent = 8
	c.MinBuildInterval = time.Millisecond
	c.Lifetime = time.Minute
	c.RotationInterval = 30 * time.Second
	c.ProbeTimeout = time.Second
	return c
}
