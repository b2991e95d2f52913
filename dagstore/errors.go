// Package dagstore implements the DAG store (C7): vertex set, parent/child
// index, tips set, and conflict-set indexing.
package dagstore

import "errors"

var (
	ErrDuplicate          = errors.New("dagstore: vertex already admitted")
	ErrInvariantViolation = errors.New("dagstore: invariant violation")
	ErrUnknownVertex      = errors.New("dagstore: no such vertex")
	ErrEmptyPayload       = errors.New("dagstore: empty payload")
	ErrPayloadTooLarge    = errors.New("dagstore: payload exceeds maximum size")
	ErrDuplicateParent    = errors.New("dagstore: duplicate parent id")
	ErrGenesisConflict    = errors.New("dagstore: vertex has empty parents but does not match this store's genesis")
)
