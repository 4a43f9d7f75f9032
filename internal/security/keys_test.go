package security

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
)

func pemEncodePublic(t *testing.T, pub any) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		t.Fatalf("MarshalPKIXPublicKey: %v", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

func TestParsePublicKey(t *testing.T) {
	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey rsa: %v", err)
	}

	ecPub, err := ParsePublicKey(pemEncodePublic(t, &ecKey.PublicKey))
	if err != nil {
		t.Fatalf("ParsePublicKey ec: %v", err)
	}
	if alg := KeyAlg(ecPub); alg != "ES256" {
		t.Errorf("KeyAlg = %q, want ES256", alg)
	}

	rsaPub, err := ParsePublicKey(pemEncodePublic(t, &rsaKey.PublicKey))
	if err != nil {
		t.Fatalf("ParsePublicKey rsa: %v", err)
	}
	if alg := KeyAlg(rsaPub); alg != "RS256" {
		t.Errorf("KeyAlg = %q, want RS256", alg)
	}
}

func TestParsePublicKey_Invalid(t *testing.T) {
	if _, err := ParsePublicKey(""); err != ErrInvalidKey {
		t.Errorf("empty: want ErrInvalidKey, got %v", err)
	}
	if _, err := ParsePublicKey("-----BEGIN GARBAGE-----\nabc\n-----END GARBAGE-----"); err == nil {
		t.Error("garbage PEM: want error")
	}
}
