package auth

import (
	"errors"
	"testing"
)

func TestHashAndVerifyRoundTrip(t *testing.T) {
	hash, err := HashPassword("open-the-pod-bay-doors")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "open-the-pod-bay-doors" {
		t.Fatal("hash must not equal the plaintext")
	}

	ok, err := VerifyPassword(hash, "open-the-pod-bay-doors")
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if !ok {
		t.Fatal("expected matching password to verify")
	}

	ok, err = VerifyPassword(hash, "im-sorry-dave")
	if err != nil {
		t.Fatalf("VerifyPassword mismatch: %v", err)
	}
	if ok {
		t.Fatal("expected mismatching password to fail")
	}
}

func TestHashesAreSalted(t *testing.T) {
	h1, err := HashPassword("same-secret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	h2, err := HashPassword("same-secret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if h1 == h2 {
		t.Fatal("expected distinct hashes for equal inputs")
	}
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	if _, err := HashPassword(""); err == nil {
		t.Fatal("expected error for empty password")
	}
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	for _, hash := range []string{"", "not-a-bcrypt-hash", "$1$legacy$abc"} {
		_, err := VerifyPassword(hash, "anything")
		if !errors.Is(err, ErrMalformedHash) {
			t.Fatalf("hash %q: expected ErrMalformedHash, got %v", hash, err)
		}
	}
}
