// Package conn implements the connection substrate: pooled, multiplexed,
// health-scored peer connections with circuit-breaker fault isolation and
// back-pressure-aware queueing.
package conn

import "errors"

// Transient errors: absorbed locally, recovered by retry with backoff.
var (
	ErrBackPressureTimeout = errors.New("conn: back-pressure wait exceeded ceiling")
	ErrHandshakeTimeout    = errors.New("conn: handshake timed out")
)

// Peer-attributable errors surfaced by update_status.
var (
	ErrAuth             = errors.New("conn: peer authentication failed")
	ErrProtocolViolation = errors.New("conn: peer protocol violation")
)

// Resource errors: surfaced to caller, no retry without relief.
var (
	ErrBreakerOpen  = errors.New("conn: circuit breaker open for this peer")
	ErrLimitReached = errors.New("conn: global connection limit reached")
	ErrPoolExhausted = errors.New("conn: connection pool exhausted")
	ErrUnknownPeer  = errors.New("conn: no connection record for peer")
	ErrStreamLimit  = errors.New("conn: connection already carries the maximum number of streams")
)
