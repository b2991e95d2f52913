// Package circuit implements the circuit manager (C5): multi-hop circuit
// build and teardown, guard/exit/stable relay selection weighted by
// declared bandwidth, rate limiting, and quality accounting.
package circuit

import "errors"

var (
	ErrTooFewHops     = errors.New("circuit: fewer than 3 hops requested")
	ErrNoSuitableRelay = errors.New("circuit: no relay satisfies position constraints")
	ErrRateLimited    = errors.New("circuit: build rate limit exceeded")
	ErrCapacity       = errors.New("circuit: concurrent circuit cap reached")
	ErrUnknownCircuit = errors.New("circuit: no such circuit id")
	ErrBuildTimeout   = errors.New("circuit: build probe timed out")
)
