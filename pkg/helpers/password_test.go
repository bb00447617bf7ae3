package helpers

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret-pass", 10)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "s3cret-pass" {
		t.Fatal("hash must not equal the plaintext")
	}
	if !CompareHashAndPassword(hash, "s3cret-pass") {
		t.Fatal("correct password did not verify")
	}
	if CompareHashAndPassword(hash, "wrong-pass") {
		t.Fatal("wrong password verified")
	}
}

func TestHashPasswordCostFloor(t *testing.T) {
	hash, err := HashPassword("s3cret-pass", 0)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("Cost failed: %v", err)
	}
	if cost < 10 {
		t.Fatalf("cost = %d, want >= 10", cost)
	}
}

func TestHashPasswordUniqueSalts(t *testing.T) {
	h1, err := HashPassword("same-pass", 10)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	h2, err := HashPassword("same-pass", 10)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if h1 == h2 {
		t.Fatal("two hashes of the same password must differ")
	}
}
