package vault

import (
	"strings"
	"testing"
)

func TestHashPasswordPrefixed(t *testing.T) {
	hashed, err := HashPassword("longenough1")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if !strings.HasPrefix(hashed, HashPrefix) {
		t.Errorf("Expected prefix %q, got %q", HashPrefix, hashed)
	}
	if hashed == "longenough1" {
		t.Error("Hashed password should not equal the plaintext")
	}
}

func TestHashPasswordIdempotent(t *testing.T) {
	hashed, err := HashPassword("longenough1")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	again, err := HashPassword(hashed)
	if err != nil {
		t.Fatalf("Re-hashing failed: %v", err)
	}
	if again != hashed {
		t.Errorf("Expected %q unchanged, got %q", hashed, again)
	}
}

func TestHashPasswordBarePrefixRejected(t *testing.T) {
	if _, err := HashPassword(HashPrefix); err == nil {
		t.Error("Bare prefix with no payload should be rejected")
	}
}

func TestKeyDigestDeterministic(t *testing.T) {
	secret := NewSecret()
	if secret == "" {
		t.Fatal("NewSecret returned an empty token")
	}
	if KeyDigest(secret) != KeyDigest(secret) {
		t.Error("KeyDigest should be deterministic")
	}
	if KeyDigest(secret) == KeyDigest("other") {
		t.Error("Different secrets should produce different digests")
	}
	if KeyDigest(secret) == secret {
		t.Error("Digest should not equal the secret")
	}
}

func TestNewSecretUnique(t *testing.T) {
	if NewSecret() == NewSecret() {
		t.Error("Secrets should be unique per issuance")
	}
}
