package utils

import (
	"strings"
	"testing"
)

func TestRandomSegment(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		seg, err := RandomSegment(6)
		if err != nil {
			t.Fatalf("RandomSegment: %v", err)
		}
		if len(seg) != 6 {
			t.Fatalf("RandomSegment length = %d, want 6", len(seg))
		}
		for _, r := range seg {
			if !strings.ContainsRune(ReferenceAlphabet, r) {
				t.Fatalf("RandomSegment produced %q outside alphabet", r)
			}
		}
		seen[seg] = true
	}

	// 50 draws from a 32^6 space colliding down to a handful would mean the
	// generator is broken.
	if len(seen) < 45 {
		t.Errorf("RandomSegment produced only %d distinct values in 50 draws", len(seen))
	}
}

func TestReferenceAlphabetExcludesAmbiguous(t *testing.T) {
	for _, r := range "01IO" {
		if strings.ContainsRune(ReferenceAlphabet, r) {
			t.Errorf("alphabet contains ambiguous character %q", r)
		}
	}
	if len(ReferenceAlphabet) != 32 {
		t.Errorf("alphabet length = %d, want 32", len(ReferenceAlphabet))
	}
}

func TestSecureToken(t *testing.T) {
	token, err := SecureToken(32)
	if err != nil {
		t.Fatalf("SecureToken: %v", err)
	}
	if len(token) != 64 {
		t.Errorf("SecureToken length = %d, want 64 hex chars", len(token))
	}

	other, err := SecureToken(32)
	if err != nil {
		t.Fatalf("SecureToken: %v", err)
	}
	if token == other {
		t.Error("two tokens are identical")
	}
}
