package crypto

import (
	"bytes"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("Secret123")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}

	if hash == "Secret123" {
		t.Fatal("hash must not equal the plaintext")
	}

	if !VerifyPassword(hash, "Secret123") {
		t.Fatal("expected password verification to succeed")
	}

	if VerifyPassword(hash, "incorrect") {
		t.Fatal("expected password verification to fail")
	}
}

func TestHashPasswordEnforcesMinimumCost(t *testing.T) {
	hash, err := HashPasswordWithCost("secret", 4)
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}

	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("cost error: %v", err)
	}
	if cost < MinPasswordCost {
		t.Fatalf("expected cost >= %d, got %d", MinPasswordCost, cost)
	}
}

func TestVerifyPasswordEmptyHash(t *testing.T) {
	if VerifyPassword("", "") {
		t.Fatal("empty hash must never verify")
	}
}

func TestHashToken(t *testing.T) {
	first := HashToken("raw-token")
	if first == "raw-token" || len(first) != 64 {
		t.Fatalf("unexpected digest %q", first)
	}
	if HashToken("raw-token") != first {
		t.Fatal("expected deterministic digest")
	}
	if HashToken("other") == first {
		t.Fatal("expected different digests for different tokens")
	}
}

func TestEncryptDecrypt(t *testing.T) {
	key := bytes.Repeat([]byte{0x1}, 32)
	plaintext := []byte("sensitive data")

	encoded, err := Encrypt(plaintext, key)
	if err != nil {
		t.Fatalf("encrypt error: %v", err)
	}

	decrypted, err := Decrypt(encoded, key)
	if err != nil {
		t.Fatalf("decrypt error: %v", err)
	}

	if !bytes.Equal(plaintext, decrypted) {
		t.Fatalf("expected decrypted plaintext to match original, got %s", decrypted)
	}
}

func TestGenerateToken(t *testing.T) {
	token, err := GenerateToken(32)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	if len(token) == 0 {
		t.Fatal("expected token to be non-empty")
	}
}
