package auth

import (
	"errors"
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	v, err := NewVerifier("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	token, err := v.Issue("a@x.com")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if token.AccessToken == "" {
		t.Fatal("expected non-empty access token")
	}
	if token.TokenType != "bearer" {
		t.Fatalf("expected bearer token type, got %q", token.TokenType)
	}

	email, err := v.Verify(token.AccessToken)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if email != "a@x.com" {
		t.Fatalf("expected subject a@x.com, got %q", email)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer, _ := NewVerifier("secret-one", time.Hour)
	verifier, _ := NewVerifier("secret-two", time.Hour)

	token, err := issuer.Issue("a@x.com")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if _, err := verifier.Verify(token.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	v, _ := NewVerifier("test-secret", time.Hour)

	if _, err := v.Verify("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestIssueRequiresEmail(t *testing.T) {
	v, _ := NewVerifier("test-secret", time.Hour)

	if _, err := v.Issue(""); err == nil {
		t.Fatal("expected error for empty email")
	}
}
