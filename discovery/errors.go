// Package discovery implements peer discovery and reputation-based
// selection: a Kademlia-style K-bucket routing table, bootstrap from seed
// addresses, and pluggable discovery methods (Kademlia lookup, mDNS, gossip,
// DNS seeds, or a hybrid composition of these).
package discovery

import "errors"

var (
	ErrBlacklisted   = errors.New("discovery: peer is blacklisted")
	ErrBreakerOpen   = errors.New("discovery: peer circuit breaker open")
	ErrBelowMinRep   = errors.New("discovery: peer reputation below minimum")
	ErrBackoff       = errors.New("discovery: peer within exponential backoff window")
	ErrUnknownMethod = errors.New("discovery: unknown discovery method")
	ErrNoSeeds       = errors.New("discovery: no seed addresses configured")
)
