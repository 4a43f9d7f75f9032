// Package security verifies access tokens minted by the platform identity
// system. This service never issues tokens; it holds only the public key. The
// subject claim identifies the principal, whose role and tenant assignments
// are loaded fresh from storage per request rather than trusted from the
// token, so revoked assignments take effect immediately.
package security

import (
	"crypto"
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a token is malformed or invalid.
var ErrInvalidToken = errors.New("invalid token")

// AccessClaims holds JWT claims for the access token.
type AccessClaims struct {
	jwt.RegisteredClaims
	// Role is the role the identity system recorded at issue time. Informational;
	// the stored principal is authoritative.
	Role string `json:"role,omitempty"`
}

// TokenValidator validates access JWTs against the identity system's public
// key (RS256 or ES256).
type TokenValidator struct {
	publicKey crypto.PublicKey
	issuer    string
	audience  string
}

// NewTokenValidator returns a TokenValidator. issuer and audience are required
// claim values.
func NewTokenValidator(publicKey crypto.PublicKey, issuer, audience string) *TokenValidator {
	return &TokenValidator{publicKey: publicKey, issuer: issuer, audience: audience}
}

// ValidateAccess parses and validates the access token (signature, exp, iss, aud).
// Returns the claims; the subject is the principal ID.
func (v *TokenValidator) ValidateAccess(tokenString string) (*AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); ok {
			return v.publicKey, nil
		}
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); ok {
			return v.publicKey, nil
		}
		return nil, ErrInvalidToken
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Issuer != v.issuer {
		return nil, ErrInvalidToken
	}
	audOk := false
	for _, a := range claims.Audience {
		if a == v.audience {
			audOk = true
			break
		}
	}
	if !audOk {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
