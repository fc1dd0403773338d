package random

import (
	"strings"
	"testing"
)

func TestStringSecure(t *testing.T) {
	for i := 0; i < 100; i++ {
		s, err := StringSecure(Upper, 8)
		if err != nil {
			t.Fatal(err)
		}
		if len(s) != 8 {
			t.Fatalf("expected 8 characters, got %q", s)
		}
		for _, r := range s {
			if !strings.ContainsRune(Upper, r) {
				t.Fatalf("unexpected character %q in %q", r, s)
			}
		}
	}
}

func TestString(t *testing.T) {
	s := String(9)
	if len(s) != 9 {
		t.Fatalf("expected 9 characters, got %q", s)
	}
	if strings.ToLower(s) != s {
		t.Fatalf("expected lowercase string, got %q", s)
	}
}
