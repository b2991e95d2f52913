// Package frame implements the length-prefixed, AEAD-sealed wire framing
// described by the overlay's wire format: a big-endian u32 length followed
// by ciphertext and a 16-byte authentication tag. It owns nonce discipline
// (a strictly monotonic counter per key) but never the key itself — keys
// are supplied by the connection or circuit that holds them.
package frame

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// TagSize is the AEAD authentication tag length appended to every frame.
const TagSize = 16

// MaxLength is the largest permitted ciphertext+tag length (spec: "Max L
// = 1 MiB").
const MaxLength = 1 << 20

// HeaderSize is the length of the big-endian length prefix.
const HeaderSize = 4

// NewAEAD constructs the single configured AEAD suite. ChaCha20-Poly1305
// is the reference choice (spec §4.1); key must be chacha20poly1305.KeySize
// bytes.
func NewAEAD(key []byte) (ciphercipherAEAD, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("frame: %w", ErrKeyFailure)
	}
	return aead, nil
}

// ciphercipherAEAD is a narrow alias kept local so callers don't need to
// import crypto/cipher just to hold the return value of NewAEAD.
type ciphercipherAEAD = interface {
	Seal(dst, nonce, plaintext, additionalData []byte) []byte
	Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
	NonceSize() int
	Overhead() int
}

// Seal encrypts plaintext under aead using the next value from counter and
// returns a complete wire frame (length prefix ‖ ciphertext ‖ tag).
func Seal(aead ciphercipherAEAD, counter *NonceCounter, plaintext []byte) ([]byte, error) {
	seq, err := counter.Take()
	if err != nil {
		return nil, &EncryptionError{Err: err}
	}
	nonce := EncodeNonce(seq)
	sealed := aead.Seal(nil, nonce[:], plaintext, nil)
	if len(sealed) > MaxLength {
		return nil, ErrFrameTooLarge
	}

	out := make([]byte, HeaderSize+len(sealed))
	binary.BigEndian.PutUint32(out[:HeaderSize], uint32(len(sealed)))
	copy(out[HeaderSize:], sealed)
	return out, nil
}

// Open verifies and decrypts a single wire frame. seq is the nonce
// sequence number the sender used for this frame; the frame codec never
// recovers the nonce from anywhere but this explicit parameter (supplied,
// in turn, by a NonceCounter kept in lockstep on the receive side).
func Open(aead ciphercipherAEAD, seq uint64, frame []byte) ([]byte, error) {
	if len(frame) < HeaderSize {
		return nil, ErrTrunc
	}
	l := binary.BigEndian.Uint32(frame[:HeaderSize])
	if uint32(len(frame)-HeaderSize) != l {
		return nil, ErrTrunc
	}
	if int(l) < TagSize {
		return nil, ErrTrunc
	}

	sealed := frame[HeaderSize:]
	nonce := EncodeNonce(seq)
	plaintext, err := aead.Open(nil, nonce[:], sealed, nil)
	if err != nil {
		return nil, ErrAuth
	}
	return plaintext, nil
}

// FrameLen returns the total wire length (header + ciphertext + tag) that
// sealing plaintextLen bytes would produce, useful for batch-size budgeting
// without performing the seal.
func FrameLen(plaintextLen int) int {
	return HeaderSize + plaintextLen + TagSize
}
