package keystore

import (
	"path/filepath"
	"testing"

	"github.com/streamletproto/streamletsim/keys"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	km, err := keys.New()
	if err != nil {
		t.Fatalf("keys.New: %v", err)
	}
	path := filepath.Join(t.TempDir(), "node0.keystore")

	if err := Save(path, "correct horse battery staple", km); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path, "correct horse battery staple")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	wantHex, _ := km.PublicKeyHex()
	gotHex, _ := loaded.PublicKeyHex()
	if gotHex != wantHex {
		t.Errorf("recovered identity public key mismatch: got %s want %s", gotHex, wantHex)
	}

	data := []byte("payload")
	sig, err := loaded.Sign(data)
	if err != nil {
		t.Fatalf("Sign with recovered key: %v", err)
	}
	pub, _ := keys.ParsePublicKeyHex(wantHex)
	if !keys.Verify(pub, data, sig) {
		t.Error("signature from recovered key should verify against the original public key")
	}
}

func TestLoadWrongPasswordFails(t *testing.T) {
	km, _ := keys.New()
	path := filepath.Join(t.TempDir(), "node0.keystore")
	if err := Save(path, "right-password", km); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := Load(path, "wrong-password"); err == nil {
		t.Error("expected error loading keystore with wrong password")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.keystore"), "pw"); err == nil {
		t.Error("expected error loading a nonexistent keystore file")
	}
}
