package dispatch

import "fmt"

// FrameKind identifies what an inbound frame's opened payload carries,
// demultiplexed before dispatch to C7 or C8 (spec §4.9: "demultiplexes
// frames by type {vertex, query, query-response, heartbeat}").
type FrameKind byte

const (
	FrameVertex FrameKind = iota + 1
	FrameQuery
	FrameQueryReply
	FrameHeartbeat
)

func (k FrameKind) String() string {
	switch k {
	case FrameVertex:
		return "vertex"
	case FrameQuery:
		return "query"
	case FrameQueryReply:
		return "query-response"
	case FrameHeartbeat:
		return "heartbeat"
	default:
		return "unknown"
	}
}

// Envelope wraps a dispatcher message with a one-byte kind tag ahead of
// its opaque body.
type Envelope struct {
	Kind FrameKind
	Body []byte
}

// Marshal prepends the kind byte to body.
func (e Envelope) Marshal() []byte {
	out := make([]byte, 1+len(e.Body))
	out[0] = byte(e.Kind)
	copy(out[1:], e.Body)
	return out
}

// UnmarshalEnvelope splits a dispatcher message into its kind and body.
func UnmarshalEnvelope(b []byte) (Envelope, error) {
	if len(b) < 1 {
		return Envelope{}, ErrEnvelopeTooShort
	}
	kind := FrameKind(b[0])
	switch kind {
	case FrameVertex, FrameQuery, FrameQueryReply, FrameHeartbeat:
	default:
		return Envelope{}, fmt.Errorf("%w: %d", ErrUnknownFrameKind, b[0])
	}
	return Envelope{Kind: kind, Body: append([]byte(nil), b[1:]...)}, nil
}
