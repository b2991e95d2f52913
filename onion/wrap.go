package onion

import (
	"crypto/rand"
	"fmt"
	"io"
	"time"

	"github.com/cloudflare/circl/kem/mlkem/mlkem768"
	"golang.org/x/crypto/chacha20poly1305"
)

// Hop describes one relay in a route: the identifier the previous hop uses
// to address it on the wire, and its published ML-KEM public key.
type Hop struct {
	ID        []byte
	PublicKey *mlkem768.PublicKey
}

// Wrap builds the nested onion for route (ordered outermost-first) around
// plaintext, proceeding from the innermost hop outward as specified in
// §4.4. The returned bytes are the outermost layer L1, exactly LayerSize
// bytes, ready for transmission to route[0].
func Wrap(route []Hop, plaintext []byte, cfg Config) ([]byte, error) {
	if len(route) == 0 {
		return nil, fmt.Errorf("onion: route must have at least one hop")
	}

	payload := plaintext
	for i := len(route) - 1; i >= 0; i-- {
		hop := route[i]

		ct, ss, err := Encapsulate(hop.PublicKey)
		if err != nil {
			return nil, err
		}
		key, err := deriveSymmetricKey(ss)
		if err != nil {
			return nil, err
		}
		aead, err := chacha20poly1305.New(key)
		if err != nil {
			return nil, fmt.Errorf("onion: %w", ErrKeyFailure)
		}

		var nonce [12]byte
		if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
			return nil, fmt.Errorf("onion: layer nonce: %w", err)
		}
		sealed := aead.Seal(nil, nonce[:], payload, nil)

		var nextHop []byte
		if i < len(route)-1 {
			nextHop = route[i+1].ID
		}

		layer := &Layer{
			NextHop:       nextHop,
			KEMCiphertext: ct,
			Nonce:         nonce,
			SealedPayload: sealed,
			Metadata:      randomMetadata(defaultMetadataSize),
			TimestampUnix: QuantizeTimestamp(time.Now(), cfg.TimestampBucket),
		}

		payload, err = layer.Marshal()
		if err != nil {
			return nil, err
		}
	}

	return payload, nil
}
