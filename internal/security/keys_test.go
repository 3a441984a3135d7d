package security

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"testing"
)

func genECKeyPEM(t *testing.T) (privPEM, pubPEM string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	privDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("marshal private: %v", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public: %v", err)
	}
	privPEM = string(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: privDER}))
	pubPEM = string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}))
	return privPEM, pubPEM
}

func TestParseKeys_RoundTrip(t *testing.T) {
	privPEM, pubPEM := genECKeyPEM(t)

	signer, err := ParsePrivateKey(privPEM)
	if err != nil {
		t.Fatalf("ParsePrivateKey: %v", err)
	}
	if signer == nil {
		t.Fatal("ParsePrivateKey returned nil signer")
	}

	pub, err := ParsePublicKey(pubPEM)
	if err != nil {
		t.Fatalf("ParsePublicKey: %v", err)
	}
	if _, ok := pub.(*ecdsa.PublicKey); !ok {
		t.Errorf("public key type = %T, want *ecdsa.PublicKey", pub)
	}
}

func TestParsePrivateKey_Invalid(t *testing.T) {
	for _, s := range []string{"", "not pem", "-----BEGIN GARBAGE-----\nAAAA\n-----END GARBAGE-----"} {
		if _, err := ParsePrivateKey(s); err == nil {
			t.Errorf("ParsePrivateKey(%q) should fail", s)
		}
	}
}

func TestParsePublicKey_Invalid(t *testing.T) {
	privPEM, _ := genECKeyPEM(t)
	if _, err := ParsePublicKey(privPEM); err == nil {
		t.Error("ParsePublicKey should reject a private key PEM")
	}
}

func TestKeyAlg(t *testing.T) {
	_, pubPEM := genECKeyPEM(t)
	pub, err := ParsePublicKey(pubPEM)
	if err != nil {
		t.Fatalf("ParsePublicKey: %v", err)
	}
	if got := KeyAlg(pub); got != "ES256" {
		t.Errorf("KeyAlg = %q, want ES256", got)
	}
	if got := KeyAlg("not a key"); got != "" {
		t.Errorf("KeyAlg on junk = %q, want empty", got)
	}
}
