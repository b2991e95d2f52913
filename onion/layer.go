package onion

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// Layer is the canonical length-prefixed record serialized onto the wire
// for one hop (spec §6).
type Layer struct {
	NextHop        []byte // empty at the terminal hop
	KEMCiphertext  []byte
	Nonce          [12]byte
	SealedPayload  []byte
	Metadata       []byte
	TimestampUnix  uint64 // quantized + jittered, see metadata.go
	Padding        []byte
}

// Marshal serializes l in wire order and pads the result to exactly
// LayerSize bytes (spec: "Every transmitted layer is padded to exactly
// 4096 bytes"). It returns an error if the unpadded content already
// exceeds LayerSize.
func (l *Layer) Marshal() ([]byte, error) {
	size := 2 + len(l.NextHop) +
		2 + len(l.KEMCiphertext) +
		12 +
		4 + len(l.SealedPayload) +
		2 + len(l.Metadata) +
		8 +
		2 // padding_len field itself

	if size > LayerSize {
		return nil, fmt.Errorf("onion: layer content %d bytes exceeds fixed size %d", size, LayerSize)
	}
	padLen := LayerSize - size
	padding := make([]byte, padLen)
	if padLen > 0 {
		if _, err := rand.Read(padding); err != nil {
			return nil, fmt.Errorf("onion: padding: %w", err)
		}
	}

	out := make([]byte, 0, LayerSize)
	out = appendU16Prefixed(out, l.NextHop)
	out = appendU16Prefixed(out, l.KEMCiphertext)
	out = append(out, l.Nonce[:]...)
	out = appendU32Prefixed(out, l.SealedPayload)
	out = appendU16Prefixed(out, l.Metadata)
	out = appendU64(out, l.TimestampUnix)
	out = appendU16Prefixed(out, padding)

	if len(out) != LayerSize {
		return nil, fmt.Errorf("onion: serialized layer is %d bytes, want %d", len(out), LayerSize)
	}
	return out, nil
}

// UnmarshalLayer parses a fixed LayerSize-byte wire record.
func UnmarshalLayer(b []byte) (*Layer, error) {
	if len(b) != LayerSize {
		return nil, &PeelError{Kind: KindFormat, Detail: fmt.Errorf("layer is %d bytes, want %d", len(b), LayerSize)}
	}

	r := &byteReader{buf: b}
	nextHop, err := r.u16Prefixed()
	if err != nil {
		return nil, &PeelError{Kind: KindFormat, Detail: err}
	}
	kemCT, err := r.u16Prefixed()
	if err != nil {
		return nil, &PeelError{Kind: KindFormat, Detail: err}
	}
	nonce, err := r.fixed(12)
	if err != nil {
		return nil, &PeelError{Kind: KindFormat, Detail: err}
	}
	payload, err := r.u32Prefixed()
	if err != nil {
		return nil, &PeelError{Kind: KindFormat, Detail: err}
	}
	metadata, err := r.u16Prefixed()
	if err != nil {
		return nil, &PeelError{Kind: KindFormat, Detail: err}
	}
	ts, err := r.u64()
	if err != nil {
		return nil, &PeelError{Kind: KindFormat, Detail: err}
	}
	padding, err := r.u16Prefixed()
	if err != nil {
		return nil, &PeelError{Kind: KindFormat, Detail: err}
	}

	l := &Layer{
		NextHop:       nextHop,
		KEMCiphertext: kemCT,
		SealedPayload: payload,
		Metadata:      metadata,
		TimestampUnix: ts,
		Padding:       padding,
	}
	copy(l.Nonce[:], nonce)
	return l, nil
}

func appendU16Prefixed(dst, field []byte) []byte {
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(field)))
	dst = append(dst, lenBuf[:]...)
	return append(dst, field...)
}

func appendU32Prefixed(dst, field []byte) []byte {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(field)))
	dst = append(dst, lenBuf[:]...)
	return append(dst, field...)
}

func appendU64(dst []byte, v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return append(dst, buf[:]...)
}

// byteReader is a minimal cursor over a fixed buffer for the handful of
// length-prefixed reads Layer parsing needs.
type byteReader struct {
	buf []byte
	pos int
}

func (r *byteReader) fixed(n int) ([]byte, error) {
	if r.pos+n > len(r.buf) {
		return nil, fmt.Errorf("truncated: need %d bytes at offset %d", n, r.pos)
	}
	out := r.buf[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

func (r *byteReader) u16Prefixed() ([]byte, error) {
	lb, err := r.fixed(2)
	if err != nil {
		return nil, err
	}
	n := int(binary.BigEndian.Uint16(lb))
	return r.fixed(n)
}

func (r *byteReader) u32Prefixed() ([]byte, error) {
	lb, err := r.fixed(4)
	if err != nil {
		return nil, err
	}
	n := int(binary.BigEndian.Uint32(lb))
	return r.fixed(n)
}

func (r *byteReader) u64() (uint64, error) {
	b, err := r.fixed(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}
