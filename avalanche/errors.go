// Package avalanche implements the single-tier QR-Avalanche consensus
// engine (C8): peer sampling, confidence accrual per conflict set, and
// finality propagation back into the DAG store.
package avalanche

import "errors"

var (
	ErrUnknownConflictSet = errors.New("avalanche: no such conflict set")
	ErrAlreadyFinalized    = errors.New("avalanche: conflict set already finalized")
	ErrNoPeersSampled      = errors.New("avalanche: sampler returned no peers")
)
