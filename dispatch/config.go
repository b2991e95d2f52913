package dispatch

import (
	"runtime"
	"time"
)

// Config holds the message dispatcher's tunables (spec §4.9, §5).
type Config struct {
	// MinParents and MaxParents bound how many tips a submitted vertex
	// selects as parents (spec §4.9: "bounded to P, default 2-8").
	MinParents int
	MaxParents int
	// WorkerPoolSize is the number of inbound workers; Default sizes it to
	// twice the CPU count, capped at 32. All frame kinds share this one
	// pool and its queue.
	WorkerPoolSize int
	// ShutdownGrace bounds how long Shutdown waits for queued inbound
	// frames to drain; when it expires, Shutdown returns without stopping
	// the workers.
	ShutdownGrace time.Duration
}

// Default returns the spec's baseline dispatcher tunables, sizing the
// worker pool from the host's CPU count.
func Default() Config {
	pool := runtime.NumCPU() * 2
	if pool > 32 {
		pool = 32
	}
	if pool < 1 {
		pool = 1
	}
	return Config{
		MinParents:     2,
		MaxParents:     8,
		WorkerPoolSize: pool,
		ShutdownGrace:  5 * time.Second,
	}
}

func Mainnet() Config { return Default() }
func Testnet() Config { return Default() }

// Local shrinks the worker pool for fast single-process tests.
func Local() Config {
	cfg := Default()
	cfg.WorkerPoolSize = 2
	cfg.ShutdownGrace = 500 * time.Millisecond
	return cfg
}
