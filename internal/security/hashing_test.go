package security

import (
	"strings"
	"testing"
)

func TestHasher_HashAndVerify(t *testing.T) {
	h := NewHasher(4)
	password := []byte("password123")
	hash, err := h.Hash(password)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "" || hash == string(password) {
		t.Fatalf("Hash returned %q", hash)
	}
	if !h.Verify(hash, password) {
		t.Fatal("Verify should accept the original password")
	}
	if err := h.Compare(hash, password); err != nil {
		t.Fatalf("Compare: %v", err)
	}
}

func TestHasher_VerifyWrongPassword(t *testing.T) {
	h := NewHasher(4)
	hash, _ := h.Hash([]byte("password123"))
	if h.Verify(hash, []byte("wrongpassword")) {
		t.Fatal("Verify with wrong password should fail")
	}
}

func TestHasher_SaltedHashesDiffer(t *testing.T) {
	h := NewHasher(4)
	a, _ := h.Hash([]byte("same"))
	b, _ := h.Hash([]byte("same"))
	if a == b {
		t.Error("two hashes of the same password should differ")
	}
}

func TestHasher_VerifyMalformedHash(t *testing.T) {
	h := NewHasher(4)
	if h.Verify("not-a-bcrypt-hash", []byte("password123")) {
		t.Error("malformed hash must not verify")
	}
	if h.Verify("", []byte("")) {
		t.Error("empty hash must not verify")
	}
}

func TestHasher_TooLongPassword(t *testing.T) {
	h := NewHasher(4)
	if _, err := h.Hash([]byte(strings.Repeat("x", MaxPasswordBytes+1))); err == nil {
		t.Error("Hash should reject passwords longer than MaxPasswordBytes")
	}
}

func TestHasher_Cost(t *testing.T) {
	if h := NewHasher(12); h.Cost != 12 {
		t.Errorf("Cost want 12, got %d", h.Cost)
	}
	if h := NewHasher(0); h.Cost != 10 {
		t.Errorf("zero cost should default to 10, got %d", h.Cost)
	}
	if h := NewHasher(2); h.Cost != 4 {
		t.Errorf("cost below MinCost should clamp to 4, got %d", h.Cost)
	}
	if h := NewHasher(99); h.Cost != 31 {
		t.Errorf("cost above MaxCost should clamp to 31, got %d", h.Cost)
	}
}
