package dispatch

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/qrmesh/dagmix/dagstore"
	"github.com/qrmesh/dagmix/ids"
)

// encodeWireVertex serializes v for a FrameVertex envelope body (spec §6:
// "VertexAnnounce { vertex_bytes … }"). The layout is a simple
// length-prefixed record; unlike the onion layer it carries no padding
// requirement.
func encodeWireVertex(v *dagstore.Vertex) []byte {
	var buf []byte
	buf = append(buf, v.ID.Bytes()...)

	var nParents [2]byte
	binary.BigEndian.PutUint16(nParents[:], uint16(len(v.Parents)))
	buf = append(buf, nParents[:]...)
	for _, p := range v.Parents {
		buf = append(buf, p.Bytes()...)
	}

	var payloadLen [4]byte
	binary.BigEndian.PutUint32(payloadLen[:], uint32(len(v.Payload)))
	buf = append(buf, payloadLen[:]...)
	buf = append(buf, v.Payload...)

	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(v.Timestamp.UnixNano()))
	buf = append(buf, ts[:]...)

	buf = append(buf, v.Author.Bytes()...)

	var sigLen [2]byte
	binary.BigEndian.PutUint16(sigLen[:], uint16(len(v.AuthorSig)))
	buf = append(buf, sigLen[:]...)
	buf = append(buf, v.AuthorSig...)

	hasKey := byte(0)
	if v.ConflictKey != nil {
		hasKey = 1
	}
	buf = append(buf, hasKey)
	if v.ConflictKey != nil {
		buf = append(buf, v.ConflictKey[:]...)
	}

	return buf
}

// decodeWireVertex is encodeWireVertex's inverse.
func decodeWireVertex(b []byte) (*dagstore.Vertex, error) {
	r := byteCursor{b: b}

	id, err := r.fixed(ids.Size)
	if err != nil {
		return nil, err
	}
	vid, _ := ids.VertexIDFromBytes(id)

	nParents, err := r.u16()
	if err != nil {
		return nil, err
	}
	parents := make([]ids.VertexID, nParents)
	for i := range parents {
		pb, err := r.fixed(ids.Size)
		if err != nil {
			return nil, err
		}
		p, _ := ids.VertexIDFromBytes(pb)
		parents[i] = p
	}

	payloadLen, err := r.u32()
	if err != nil {
		return nil, err
	}
	payload, err := r.fixed(int(payloadLen))
	if err != nil {
		return nil, err
	}

	tsBytes, err := r.fixed(8)
	if err != nil {
		return nil, err
	}
	ts := time.Unix(0, int64(binary.BigEndian.Uint64(tsBytes))).UTC()

	authorBytes, err := r.fixed(ids.Size)
	if err != nil {
		return nil, err
	}
	author, _ := ids.PeerIDFromBytes(authorBytes)

	sigLen, err := r.u16()
	if err != nil {
		return nil, err
	}
	sig, err := r.fixed(int(sigLen))
	if err != nil {
		return nil, err
	}

	hasKey, err := r.byte()
	if err != nil {
		return nil, err
	}
	var conflictKey *[32]byte
	if hasKey == 1 {
		kb, err := r.fixed(32)
		if err != nil {
			return nil, err
		}
		var k [32]byte
		copy(k[:], kb)
		conflictKey = &k
	}

	return &dagstore.Vertex{
		ID:          vid,
		Parents:     parents,
		Payload:     append([]byte(nil), payload...),
		Timestamp:   ts,
		Author:      author,
		AuthorSig:   append([]byte(nil), sig...),
		ConflictKey: conflictKey,
	}, nil
}

type byteCursor struct {
	b   []byte
	off int
}

func (c *byteCursor) fixed(n int) ([]byte, error) {
	if c.off+n > len(c.b) {
		return nil, fmt.Errorf("dispatch: truncated vertex wire encoding")
	}
	out := c.b[c.off : c.off+n]
	c.off += n
	return out, nil
}

func (c *byteCursor) u16() (uint16, error) {
	b, err := c.fixed(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (c *byteCursor) u32() (uint32, error) {
	b, err := c.fixed(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (c *byteCursor) byte() (byte, error) {
	b, err := c.fixed(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}
