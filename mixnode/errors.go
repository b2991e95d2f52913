// Package mixnode implements mix-node batching, shuffling, dummy-traffic
// injection, and traffic shaping for anonymity (C6).
package mixnode

import "errors"

var ErrClosed = errors.New("mixnode: node is closed")
