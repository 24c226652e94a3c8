package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndVerify(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	token, err := issuer.Issue(42, "doc@example.com", RoleDoctor)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	id, err := claims.UserID()
	if err != nil {
		t.Fatalf("UserID: %v", err)
	}
	if id != 42 {
		t.Errorf("user id = %d, want 42", id)
	}
	if claims.Email != "doc@example.com" {
		t.Errorf("email = %s", claims.Email)
	}
	if claims.Role != RoleDoctor {
		t.Errorf("role = %s", claims.Role)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenIssuer("secret-a", time.Hour)
	other := NewTokenIssuer("secret-b", time.Hour)

	token, err := issuer.Issue(1, "a@example.com", RoleDoctor)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := other.Verify(token); err == nil {
		t.Error("token signed with a different secret must not verify")
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", -time.Minute)

	token, err := issuer.Issue(1, "a@example.com", RoleDoctor)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := issuer.Verify(token); err == nil {
		t.Error("expired token must not verify")
	}
}

func TestVerifyRejectsMissingExpiry(t *testing.T) {
	// Hand-sign a token with the right secret but no exp claim.
	claims := jwt.MapClaims{"sub": "1", "email": "a@example.com", "role": RoleDoctor}
	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, err := raw.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	issuer := NewTokenIssuer("test-secret", time.Hour)
	if _, err := issuer.Verify(token); err == nil {
		t.Error("token without expiry must not verify")
	}
}

func TestVerifyRejectsUnsignedAlgorithm(t *testing.T) {
	claims := jwt.MapClaims{
		"sub":  "1",
		"role": RoleAdmin,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	raw := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	token, err := raw.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	issuer := NewTokenIssuer("test-secret", time.Hour)
	if _, err := issuer.Verify(token); err == nil {
		t.Error("alg=none token must not verify")
	}
}

func TestVerifyRejectsTampered(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	token, err := issuer.Issue(1, "a@example.com", RoleDoctor)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Flip a character in the payload segment.
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape")
	}
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	if _, err := issuer.Verify(tampered); err == nil {
		t.Error("tampered token must not verify")
	}
}

func TestUserIDRejectsNonNumericSubject(t *testing.T) {
	claims := &Claims{}
	claims.Subject = "not-a-number"
	if _, err := claims.UserID(); err == nil {
		t.Error("expected error for non-numeric subject")
	}
}
