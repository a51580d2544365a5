package security

import (
	"testing"
)

func TestHashToken_Consistent(t *testing.T) {
	token := "test-bearer-token-123"
	hash1 := HashToken(token)
	hash2 := HashToken(token)

	if hash1 != hash2 {
		t.Errorf("HashToken not consistent: hash1 = %q, hash2 = %q", hash1, hash2)
	}
	if len(hash1) != 64 {
		t.Errorf("hash length = %d, want 64 (SHA-256 hex)", len(hash1))
	}
}

func TestHashToken_DifferentTokens(t *testing.T) {
	if HashToken("token-1") == HashToken("token-2") {
		t.Error("HashToken produced same hash for different tokens")
	}
}

func TestTokenHashEqual(t *testing.T) {
	stored := HashToken("correct-token")
	tests := []struct {
		name     string
		provided string
		stored   string
		want     bool
	}{
		{"match", "correct-token", stored, true},
		{"wrong token", "wrong-token", stored, false},
		{"longer hash", "correct-token", "a" + stored, false},
		{"same length different content", "correct-token", "0" + stored[1:], stored[0] == '0'},
		{"empty token", "", stored, false},
		{"both empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TokenHashEqual(tt.provided, tt.stored); got != tt.want {
				t.Errorf("TokenHashEqual(%q) = %v, want %v", tt.provided, got, tt.want)
			}
		})
	}
}
