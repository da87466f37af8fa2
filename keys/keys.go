// Package keys provides ECDSA-P256 identities: key generation, signing, and
// verification, with hex/DER encodings suitable for wire transport.
package keys

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"fmt"
)

// KeyManager holds one node's ECDSA-P256 identity and signs on its behalf.
type KeyManager struct {
	priv *ecdsa.PrivateKey
}

// New generates a fresh P256 identity.
func New() (*KeyManager, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &KeyManager{priv: priv}, nil
}

// FromPrivateKey wraps an already-loaded P256 private key (e.g. one
// unsealed from the keystore package).
func FromPrivateKey(priv *ecdsa.PrivateKey) *KeyManager {
	return &KeyManager{priv: priv}
}

// PrivateKey returns the underlying key, for callers that need to persist it
// (the keystore package).
func (m *KeyManager) PrivateKey() *ecdsa.PrivateKey {
	return m.priv
}

// Sign produces a DER-encoded ECDSA signature over SHA-256(data), hex-encoded
// for wire transport.
func (m *KeyManager) Sign(data []byte) (string, error) {
	digest := sha256.Sum256(data)
	sig, err := ecdsa.SignASN1(rand.Reader, m.priv, digest[:])
	if err != nil {
		return "", fmt.Errorf("sign: %w", err)
	}
	return hex.EncodeToString(sig), nil
}

// PublicKeyBytes returns the DER SubjectPublicKeyInfo encoding of the
// identity's public key, the form exchanged between nodes out-of-band.
func (m *KeyManager) PublicKeyBytes() ([]byte, error) {
	return x509.MarshalPKIXPublicKey(&m.priv.PublicKey)
}

// PublicKeyHex is PublicKeyBytes hex-encoded, the form carried in messages.
func (m *KeyManager) PublicKeyHex() (string, error) {
	der, err := m.PublicKeyBytes()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(der), nil
}

// ParsePublicKeyHex decodes a hex-encoded DER SubjectPublicKeyInfo back into
// an ECDSA public key.
func ParsePublicKeyHex(s string) (*ecdsa.PublicKey, error) {
	der, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid pubkey hex: %w", err)
	}
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("invalid pubkey der: %w", err)
	}
	ecPub, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("pubkey is not ECDSA")
	}
	return ecPub, nil
}

// Verify checks a hex-encoded DER signature over SHA-256(data) against pub.
// It never panics; any malformed input simply fails verification.
func Verify(pub *ecdsa.PublicKey, data []byte, sigHex string) bool {
	if pub == nil {
		return false
	}
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return false
	}
	digest := sha256.Sum256(data)
	return ecdsa.VerifyASN1(pub, digest[:], sig)
}
