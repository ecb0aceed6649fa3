package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/docudex/docudex-api/internal/core/domain"
)

func TestVerifyAcceptsSignedToken(t *testing.T) {
	verifier, err := NewJWTVerifier("test-secret")
	if err != nil {
		t.Fatalf("NewJWTVerifier() error = %v", err)
	}
	token, err := verifier.Sign(domain.Principal{OwnerID: "user-1", Email: "a@example.com", Role: "user"}, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	principal, err := verifier.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if principal.OwnerID != "user-1" || principal.Email != "a@example.com" {
		t.Fatalf("unexpected principal: %+v", principal)
	}
}

func TestVerifyFallsBackToSubject(t *testing.T) {
	verifier, _ := NewJWTVerifier("test-secret")
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-9",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}

	principal, err := verifier.Verify(context.Background(), signed)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if principal.OwnerID != "user-9" {
		t.Fatalf("expected owner user-9, got %q", principal.OwnerID)
	}
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	verifier, _ := NewJWTVerifier("test-secret")
	other, _ := NewJWTVerifier("other-secret")
	future := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
	past := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour))}

	wrongKey, _ := other.Sign(domain.Principal{OwnerID: "user-1"}, future)
	expired, _ := verifier.Sign(domain.Principal{OwnerID: "user-1"}, past)
	noExpiry, _ := verifier.Sign(domain.Principal{OwnerID: "user-1"}, jwt.RegisteredClaims{})
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, future).SignedString(jwt.UnsafeAllowNoneSignatureType)

	cases := map[string]string{
		"garbage":   "not-a-token",
		"wrong key": wrongKey,
		"expired":   expired,
		"no expiry": noExpiry,
		"alg none":  none,
	}
	for name, token := range cases {
		if _, err := verifier.Verify(context.Background(), token); !domain.IsKind(err, domain.ErrUnauthorized) {
			t.Fatalf("%s: expected ErrUnauthorized, got %v", name, err)
		}
	}
}

func TestNewJWTVerifierRequiresSecret(t *testing.T) {
	if _, err := NewJWTVerifier("  "); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
