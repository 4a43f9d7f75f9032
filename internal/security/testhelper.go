package security

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TestIssuer and TestAudience are the claim values NewTestValidator expects.
// For unit tests only.
const (
	TestIssuer   = "test-issuer"
	TestAudience = "test-audience"
)

// TestSigner signs access tokens for unit tests, standing in for the external
// identity system.
type TestSigner struct {
	key *ecdsa.PrivateKey
}

// NewTestValidator returns a TokenValidator with a fresh ECDSA key pair and
// the TestSigner holding the private half. For unit tests only.
func NewTestValidator() (*TokenValidator, *TestSigner, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	v := NewTokenValidator(&key.PublicKey, TestIssuer, TestAudience)
	return v, &TestSigner{key: key}, nil
}

// SignAccess issues a test access token for the given principal ID.
func (s *TestSigner) SignAccess(subject string) (string, error) {
	return s.SignAccessClaims(AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    TestIssuer,
			Audience:  jwt.ClaimStrings{TestAudience},
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwt.NewNumericDate(time.Now().UTC().Add(15 * time.Minute)),
		},
	})
}

// SignAccessClaims signs arbitrary claims, letting tests produce expired or
// mis-issued tokens.
func (s *TestSigner) SignAccessClaims(claims AccessClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(s.key)
}
