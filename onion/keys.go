package onion

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/cloudflare/circl/kem/mlkem/mlkem768"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// symmetricKeyInfo is the HKDF-Expand info label (spec §4.4: "derives a
// symmetric key k_i = HKDF-Expand(ss_i, \"symmetric-key\")").
const symmetricKeyInfo = "symmetric-key"

// RelayKeyPair is a relay's long-term ML-KEM-768 encapsulation key pair.
// The public half is published to the directory; the private half never
// leaves the relay.
type RelayKeyPair struct {
	Public  *mlkem768.PublicKey
	private *mlkem768.PrivateKey
}

// GenerateRelayKeyPair creates a fresh ML-KEM-768 key pair.
func GenerateRelayKeyPair() (*RelayKeyPair, error) {
	pk, sk, err := mlkem768.GenerateKeyPair(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("onion: generate ML-KEM-768 keys: %w", err)
	}
	return &RelayKeyPair{Public: pk, private: sk}, nil
}

// PublicKeyBytes packs the public key for publication in the directory.
func (kp *RelayKeyPair) PublicKeyBytes() []byte {
	out := make([]byte, mlkem768.PublicKeySize)
	kp.Public.Pack(out)
	return out
}

// UnpackRelayPublicKey parses a directory-published public key.
func UnpackRelayPublicKey(b []byte) (*mlkem768.PublicKey, error) {
	var pk mlkem768.PublicKey
	if err := pk.Unpack(b); err != nil {
		return nil, &PeelError{Kind: KindKem, Detail: err}
	}
	return &pk, nil
}

// Encapsulate performs ML-KEM encapsulation against a relay's public key,
// returning the ciphertext to place on the wire and the shared secret used
// to derive the hop's symmetric key.
func Encapsulate(pub *mlkem768.PublicKey) (ciphertext, sharedSecret []byte, err error) {
	ct := make([]byte, mlkem768.CiphertextSize)
	ss := make([]byte, mlkem768.SharedKeySize)
	pub.EncapsulateTo(ct, ss, nil) // nil seed draws randomness internally
	return ct, ss, nil
}

// Decapsulate recovers the shared secret a relay's private key corresponds
// to for ciphertext ct.
func (kp *RelayKeyPair) Decapsulate(ct []byte) ([]byte, error) {
	if len(ct) != mlkem768.CiphertextSize {
		return nil, &PeelError{Kind: KindFormat}
	}
	ss := make([]byte, mlkem768.SharedKeySize)
	kp.private.DecapsulateTo(ss, ct)
	return ss, nil
}

// deriveSymmetricKey expands a shared secret into a ChaCha20-Poly1305 key
// via HKDF (spec §4.4).
func deriveSymmetricKey(sharedSecret []byte) ([]byte, error) {
	kdf := hkdf.New(sha256.New, sharedSecret, nil, []byte(symmetricKeyInfo))
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("onion: derive symmetric key: %w", err)
	}
	return key, nil
}
