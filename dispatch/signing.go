package dispatch

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
)

// Signer holds a vertex author's long-term signing key pair. Per spec §5
// "Shared-resource policy", the private key is held by a single owner and
// never copied; callers borrow it only through Sign.
type Signer struct {
	public  ed25519.PublicKey
	private ed25519.PrivateKey
}

// GenerateSigner creates a new random signing key pair.
func GenerateSigner() (*Signer, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("dispatch: generate signer: %w", err)
	}
	return &Signer{public: pub, private: priv}, nil
}

// Public returns the signer's public key bytes.
func (s *Signer) Public() ed25519.PublicKey {
	return s.public
}

// Sign authenticates canonicalBytes with the signer's private key (spec
// §4.9: "signs the vertex").
func (s *Signer) Sign(canonicalBytes []byte) []byte {
	return ed25519.Sign(s.private, canonicalBytes)
}

// Verify checks sig against canonicalBytes under author's public key.
func Verify(author ed25519.PublicKey, canonicalBytes, sig []byte) bool {
	return ed25519.Verify(author, canonicalBytes, sig)
}
