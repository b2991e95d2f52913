package frame

import (
	"encoding/binary"
	"sync"

	"github.com/qrmesh/dagmix/xmath"
)

// NonceSize is the length in bytes of the AEAD nonce used for every sealed
// frame and onion layer in this module.
const NonceSize = 12

// NonceCounter owns a strictly monotonic 64-bit sequence that is written
// into the low 8 bytes of a 12-byte nonce. A single key must never be used
// with two different counter values for the same position (send or recv),
// so each NonceCounter is owned exclusively by the encoder or decoder that
// holds the corresponding key (spec: "the nonce counter for each key is
// owned solely by the encoder that holds that key").
type NonceCounter struct {
	mu        sync.Mutex
	next      uint64
	exhausted bool
}

// Take returns the next nonce value and advances the counter. Once
// math.MaxUint64 has been issued, every subsequent call fails with
// ErrNonceOverflow; the caller must rotate the key and start a fresh
// counter.
func (c *NonceCounter) Take() (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.exhausted {
		return 0, ErrNonceOverflow
	}
	v := c.next
	next, err := xmath.Add64(c.next, 1)
	if err != nil {
		c.exhausted = true
		return v, nil
	}
	c.next = next
	return v, nil
}

// Peek returns the counter value that the next Take would issue, without
// advancing it.
func (c *NonceCounter) Peek() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.next
}

// EncodeNonce lays a 64-bit sequence number into the low 8 bytes of a
// 12-byte AEAD nonce, leaving the high 4 bytes zeroed.
func EncodeNonce(seq uint64) [NonceSize]byte {
	var n [NonceSize]byte
	binary.BigEndian.PutUint64(n[4:], seq)
	return n
}
