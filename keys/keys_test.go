package keys

import "testing"

func TestSignVerifyRoundTrip(t *testing.T) {
	km, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	data := []byte("hello streamlet")
	sig, err := km.Sign(data)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	pubHex, err := km.PublicKeyHex()
	if err != nil {
		t.Fatalf("PublicKeyHex: %v", err)
	}
	pub, err := ParsePublicKeyHex(pubHex)
	if err != nil {
		t.Fatalf("ParsePublicKeyHex: %v", err)
	}

	if !Verify(pub, data, sig) {
		t.Error("valid signature failed to verify")
	}
	if Verify(pub, []byte("tampered"), sig) {
		t.Error("tampered data should not verify")
	}
}

func TestVerifyNeverPanicsOnGarbage(t *testing.T) {
	km, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	pubHex, _ := km.PublicKeyHex()
	pub, _ := ParsePublicKeyHex(pubHex)

	if Verify(pub, []byte("data"), "not-hex-at-all") {
		t.Error("garbage signature hex should not verify")
	}
	if Verify(pub, []byte("data"), "") {
		t.Error("empty signature should not verify")
	}
	if Verify(nil, []byte("data"), "aabbcc") {
		t.Error("nil public key should not verify")
	}
}

func TestParsePublicKeyHexRejectsGarbage(t *testing.T) {
	if _, err := ParsePublicKeyHex("zz"); err == nil {
		t.Error("expected error for invalid hex")
	}
	if _, err := ParsePublicKeyHex("aabbcc"); err == nil {
		t.Error("expected error for hex that is not a valid DER public key")
	}
}

func TestDifferentKeysProduceDifferentSignatures(t *testing.T) {
	km1, _ := New()
	km2, _ := New()
	data := []byte("payload")
	sig1, _ := km1.Sign(data)

	pub2Hex, _ := km2.PublicKeyHex()
	pub2, _ := ParsePublicKeyHex(pub2Hex)

	if Verify(pub2, data, sig1) {
		t.Error("signature from one key should not verify against another key's public key")
	}
}
