package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestIssueAndValidate(t *testing.T) {
	svc, err := NewTokenService("test-secret", 30*time.Minute)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	token, expiresAt, err := svc.Issue("usr_001", 0)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("expected future expiration, got %v", expiresAt)
	}

	subject, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if subject != "usr_001" {
		t.Fatalf("unexpected subject: %s", subject)
	}
}

func TestValidateAfterExpiry(t *testing.T) {
	now := time.Date(2025, 4, 3, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	svc, err := NewTokenService("test-secret", 30*time.Minute, WithClock(clock))
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	token, _, err := svc.Issue("usr_001", 30*time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := svc.Validate(token); err != nil {
		t.Fatalf("token should be valid immediately after issuance: %v", err)
	}

	now = now.Add(31 * time.Minute)
	if _, err := svc.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after expiry, got %v", err)
	}
}

func TestValidateExpiryIsStrict(t *testing.T) {
	now := time.Date(2025, 4, 3, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	svc, err := NewTokenService("test-secret", 30*time.Minute, WithClock(clock))
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	token, _, err := svc.Issue("usr_001", 10*time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Exactly at exp the token is already invalid.
	now = now.Add(10 * time.Minute)
	if _, err := svc.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken at expiry instant, got %v", err)
	}
}

func TestValidateRejectsTamperedToken(t *testing.T) {
	svc, err := NewTokenService("test-secret", 30*time.Minute)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	token, _, err := svc.Issue("usr_001", 0)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %s", token)
	}
	tampered := parts[0] + "." + parts[1] + ".AAAA" + parts[2][4:]
	if _, err := svc.Validate(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for tampered signature, got %v", err)
	}
}

func TestValidateRejectsForeignSecret(t *testing.T) {
	issuerSvc, err := NewTokenService("secret-a", 30*time.Minute)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	verifierSvc, err := NewTokenService("secret-b", 30*time.Minute)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	token, _, err := issuerSvc.Issue("usr_001", 0)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := verifierSvc.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken across secrets, got %v", err)
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc, err := NewTokenService("test-secret", 30*time.Minute)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	for _, token := range []string{"", "   ", "not.a.jwt", "a.b"} {
		if _, err := svc.Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("token %q: expected ErrInvalidToken, got %v", token, err)
		}
	}
}

func TestNewTokenServiceRequiresSecret(t *testing.T) {
	if _, err := NewTokenService("  ", time.Minute); err == nil {
		t.Fatal("expected error for blank secret")
	}
	if _, err := NewTokenService("secret", 0); err == nil {
		t.Fatal("expected error for non-positive TTL")
	}
}
