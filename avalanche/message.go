package avalanche

import (
	"encoding/binary"
	"fmt"

	"github.com/qrmesh/dagmix/ids"
)

// MessageKind identifies a consensus message's wire encoding (spec §6).
type MessageKind byte

const (
	KindQuery MessageKind = iota + 1
	KindQueryReply
)

// QuerySize is the marshaled byte length of a Query: round(4) ‖
// vertex_id(32) ‖ asker_id(32).
const QuerySize = 4 + ids.Size + ids.Size

// QueryReplySize is the marshaled byte length of a QueryReply: round(4) ‖
// vertex_id(32) ‖ prefers(32) ‖ asker_id(32).
const QueryReplySize = 4 + ids.Size + ids.Size + ids.Size

// Query asks a peer which member of a conflict set it prefers (spec §6:
// "Query { round u32, vertex_id [32], asker_id [32] }").
type Query struct {
	Round    uint32
	VertexID ids.VertexID
	AskerID  ids.PeerID
}

// Marshal encodes q in the fixed big-endian layout above.
func (q Query) Marshal() []byte {
	buf := make([]byte, QuerySize)
	binary.BigEndian.PutUint32(buf[0:4], q.Round)
	copy(buf[4:4+ids.Size], q.VertexID.Bytes())
	copy(buf[4+ids.Size:], q.AskerID.Bytes())
	return buf
}

// UnmarshalQuery decodes a Query from its fixed-size wire encoding.
func UnmarshalQuery(b []byte) (Query, error) {
	if len(b) != QuerySize {
		return Query{}, fmt.Errorf("avalanche: query wrong size %d", len(b))
	}
	var q Query
	q.Round = binary.BigEndian.Uint32(b[0:4])
	vid, _ := ids.VertexIDFromBytes(b[4 : 4+ids.Size])
	q.VertexID = vid
	pid, _ := ids.PeerIDFromBytes(b[4+ids.Size:])
	q.AskerID = pid
	return q, nil
}

// QueryReply answers a Query with the replier's current preference
// (spec §6: "QueryReply { round u32, vertex_id [32], prefers [32],
// asker_id [32] }").
type QueryReply struct {
	Round    uint32
	VertexID ids.VertexID
	Prefers  ids.VertexID
	AskerID  ids.PeerID
}

// Marshal encodes r in the fixed big-endian layout above.
func (r QueryReply) Marshal() []byte {
	buf := make([]byte, QueryReplySize)
	binary.BigEndian.PutUint32(buf[0:4], r.Round)
	off := 4
	copy(buf[off:off+ids.Size], r.VertexID.Bytes())
	off += ids.Size
	copy(buf[off:off+ids.Size], r.Prefers.Bytes())
	off += ids.Size
	copy(buf[off:], r.AskerID.Bytes())
	return buf
}

// UnmarshalQueryReply decodes a QueryReply from its fixed-size wire
// encoding.
func UnmarshalQueryReply(b []byte) (QueryReply, error) {
	if len(b) != QueryReplySize {
		return QueryReply{}, fmt.Errorf("avalanche: query-reply wrong size %d", len(b))
	}
	var reply QueryReply
	reply.Round = binary.BigEndian.Uint32(b[0:4])
	off := 4
	vid, _ := ids.VertexIDFromBytes(b[off : off+ids.Size])
	reply.VertexID = vid
	off += ids.Size
	prefers, _ := ids.VertexIDFromBytes(b[off : off+ids.Size])
	reply.Prefers = prefers
	off += ids.Size
	asker, _ := ids.PeerIDFromBytes(b[off:])
	reply.AskerID = asker
	return reply, nil
}
