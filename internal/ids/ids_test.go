package ids

import (
	"strings"
	"testing"
)

func TestToken(t *testing.T) {
	const alphabet = "ABC123"

	token := Token(4, alphabet)

	if len(token) != 4 {
		t.Fatalf("expected token length 4, got %d: %q", len(token), token)
	}
	for _, c := range token {
		if !strings.ContainsRune(alphabet, c) {
			t.Errorf("token contains invalid character %q: %q", c, token)
		}
	}
}

func TestToken_Varies(t *testing.T) {
	seen := map[string]bool{}
	for range 20 {
		seen[Token(8, "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")] = true
	}
	if len(seen) < 2 {
		t.Error("expected random tokens to differ")
	}
}

func TestToken_InvalidInput(t *testing.T) {
	if got := Token(0, "ABC"); got != "" {
		t.Errorf("expected empty token for zero length, got %q", got)
	}
	if got := Token(4, ""); got != "" {
		t.Errorf("expected empty token for empty alphabet, got %q", got)
	}
}
