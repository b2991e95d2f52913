// Package dispatch implements the message dispatcher (C9): it glues C2
// (conn) through C7 (dagstore) / C8 (avalanche) on the inbound path, and
// C8 through C6 (mixnode) and C2 on the outbound path, behind the
// embedding interface the host application programs against.
package dispatch

import "errors"

var (
	ErrShuttingDown     = errors.New("dispatch: shutting down")
	ErrUnknownFrameKind = errors.New("dispatch: unknown frame kind")
	ErrEnvelopeTooShort = errors.New("dispatch: envelope too short")
	ErrNoTips           = errors.New("dispatch: no tips available to select parents")
)
