// Package keystore provides password-encrypted, at-rest persistence of a
// node's ECDSA-P256 identity key, independent of consensus-state
// persistence (which this engine does not provide across restarts).
package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/pbkdf2"

	"github.com/streamletproto/streamletsim/keys"
)

type keystoreFile struct {
	PubKeyHex  string `json:"pub_key_hex"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	CipherText string `json:"cipher_text"`
}

// Save encrypts km's private key with password and writes it to path.
// Key derivation: PBKDF2-HMAC-SHA256 over password and a random salt.
func Save(path, password string, km *keys.KeyManager) error {
	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}
	key := deriveKey(password, salt)

	privDER, err := x509.MarshalECPrivateKey(km.PrivateKey())
	if err != nil {
		return fmt.Errorf("marshal private key: %w", err)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	cipherText := gcm.Seal(nil, nonce, privDER, nil)

	pubHex, err := km.PublicKeyHex()
	if err != nil {
		return fmt.Errorf("derive public key: %w", err)
	}

	ks := keystoreFile{
		PubKeyHex:  pubHex,
		Salt:       hex.EncodeToString(salt),
		Nonce:      hex.EncodeToString(nonce),
		CipherText: hex.EncodeToString(cipherText),
	}
	data, err := json.MarshalIndent(ks, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal keystore: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// Load decrypts the keystore at path using password and returns a
// KeyManager wrapping the recovered identity.
func Load(path, password string) (*keys.KeyManager, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keystore: %w", err)
	}
	var ks keystoreFile
	if err := json.Unmarshal(data, &ks); err != nil {
		return nil, fmt.Errorf("parse keystore: %w", err)
	}
	salt, err := hex.DecodeString(ks.Salt)
	if err != nil {
		return nil, fmt.Errorf("invalid salt: %w", err)
	}
	nonce, err := hex.DecodeString(ks.Nonce)
	if err != nil {
		return nil, fmt.Errorf("invalid nonce: %w", err)
	}
	cipherText, err := hex.DecodeString(ks.CipherText)
	if err != nil {
		return nil, fmt.Errorf("invalid ciphertext: %w", err)
	}

	key := deriveKey(password, salt)
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	privDER, err := gcm.Open(nil, nonce, cipherText, nil)
	if err != nil {
		return nil, errors.New("wrong password or corrupted keystore")
	}
	priv, err := x509.ParseECPrivateKey(privDER)
	if err != nil {
		return nil, fmt.Errorf("invalid decrypted key: %w", err)
	}
	return keys.FromPrivateKey(priv), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return gcm, nil
}

func deriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, 210_000, 32, sha256.New)
}
