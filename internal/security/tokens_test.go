package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestValidateAccess(t *testing.T) {
	v, signer, err := NewTestValidator()
	if err != nil {
		t.Fatalf("NewTestValidator: %v", err)
	}

	token, err := signer.SignAccess("principal-1")
	if err != nil {
		t.Fatalf("SignAccess: %v", err)
	}
	claims, err := v.ValidateAccess(token)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if claims.Subject != "principal-1" {
		t.Errorf("Subject = %q, want principal-1", claims.Subject)
	}
}

func TestValidateAccess_Invalid(t *testing.T) {
	v, signer, err := NewTestValidator()
	if err != nil {
		t.Fatalf("NewTestValidator: %v", err)
	}

	now := time.Now().UTC()
	base := func(subject, issuer, audience string, exp time.Time) AccessClaims {
		return AccessClaims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		}}
	}

	tests := []struct {
		name   string
		claims AccessClaims
	}{
		{"expired", base("p1", TestIssuer, TestAudience, now.Add(-time.Minute))},
		{"wrong issuer", base("p1", "other-issuer", TestAudience, now.Add(time.Minute))},
		{"wrong audience", base("p1", TestIssuer, "other-audience", now.Add(time.Minute))},
		{"missing subject", base("", TestIssuer, TestAudience, now.Add(time.Minute))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := signer.SignAccessClaims(tt.claims)
			if err != nil {
				t.Fatalf("SignAccessClaims: %v", err)
			}
			if _, err := v.ValidateAccess(token); err != ErrInvalidToken {
				t.Errorf("ValidateAccess: want ErrInvalidToken, got %v", err)
			}
		})
	}

	if _, err := v.ValidateAccess("not-a-token"); err != ErrInvalidToken {
		t.Errorf("ValidateAccess malformed: want ErrInvalidToken, got %v", err)
	}
}

func TestValidateAccess_WrongKey(t *testing.T) {
	v, _, err := NewTestValidator()
	if err != nil {
		t.Fatalf("NewTestValidator: %v", err)
	}
	_, otherSigner, err := NewTestValidator()
	if err != nil {
		t.Fatalf("NewTestValidator: %v", err)
	}
	token, err := otherSigner.SignAccess("p1")
	if err != nil {
		t.Fatalf("SignAccess: %v", err)
	}
	if _, err := v.ValidateAccess(token); err != ErrInvalidToken {
		t.Errorf("ValidateAccess foreign key: want ErrInvalidToken, got %v", err)
	}
}
