package onion

import (
	"fmt"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
)

// PeelResult is the outcome of peeling exactly one layer.
type PeelResult struct {
	// Terminal is true when NextHop was empty: Payload is the original
	// plaintext delivered to the embedding application (C9).
	Terminal bool

	// NextHop identifies where Payload (a serialized Layer) should be
	// forwarded, when !Terminal.
	NextHop []byte

	// Payload is either the terminal plaintext or the next layer's bytes.
	Payload []byte
}

// Peel validates, decapsulates, and opens exactly one onion layer using
// the relay's long-term key pair (spec §4.4). On any failure it returns a
// *PeelError carrying the detailed kind for local logging; callers that
// forward the error upstream see only the generic ErrRejected via
// errors.Is, never the kind.
func Peel(kp *RelayKeyPair, wire []byte, cfg Config, now time.Time) (*PeelResult, error) {
	layer, err := UnmarshalLayer(wire)
	if err != nil {
		return nil, err
	}

	if len(layer.KEMCiphertext) == 0 || len(layer.SealedPayload) == 0 {
		return nil, &PeelError{Kind: KindFormat, Detail: fmt.Errorf("empty required field")}
	}

	if !WithinReplayWindow(layer.TimestampUnix, now, cfg.ReplayWindow) {
		return nil, &PeelError{Kind: KindTiming, Detail: fmt.Errorf("timestamp outside replay window")}
	}

	sharedSecret, err := kp.Decapsulate(layer.KEMCiphertext)
	if err != nil {
		return nil, &PeelError{Kind: KindKem, Detail: err}
	}

	key, err := deriveSymmetricKey(sharedSecret)
	if err != nil {
		return nil, &PeelError{Kind: KindKem, Detail: err}
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, &PeelError{Kind: KindKem, Detail: err}
	}

	plaintext, err := aead.Open(nil, layer.Nonce[:], layer.SealedPayload, nil)
	if err != nil {
		return nil, &PeelError{Kind: KindAead, Detail: err}
	}

	if len(layer.NextHop) == 0 {
		return &PeelResult{Terminal: true, Payload: plaintext}, nil
	}

	return &PeelResult{Terminal: false, NextHop: layer.NextHop, Payload: plaintext}, nil
}
