package services

import (
	"strings"
	"testing"
)

func TestGenerateLength(t *testing.T) {
	gen := NewRandomCodeGenerator()

	for _, length := range []int{1, 6, 8, 100} {
		code, err := gen.Generate(length)
		if err != nil {
			t.Fatalf("Generate(%d) failed: %v", length, err)
		}
		if len(code) != length {
			t.Errorf("Generate(%d) returned %q with length %d", length, code, len(code))
		}
	}
}

func TestGenerateCharset(t *testing.T) {
	gen := NewRandomCodeGenerator()

	code, err := gen.Generate(200)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	for _, c := range code {
		if !strings.ContainsRune(charset, c) {
			t.Errorf("Generate produced character %q outside the alphanumeric alphabet", c)
		}
	}
}

func TestGenerateRejectsZeroLength(t *testing.T) {
	gen := NewRandomCodeGenerator()

	if _, err := gen.Generate(0); err == nil {
		t.Error("Generate(0) should fail")
	}
	if _, err := gen.Generate(-1); err == nil {
		t.Error("Generate(-1) should fail")
	}
}

func TestGenerateIsNotConstant(t *testing.T) {
	gen := NewRandomCodeGenerator()

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		code, err := gen.Generate(6)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		seen[code] = true
	}
	// 20 draws from 62^6 colliding down to one value would mean a
	// broken randomness source.
	if len(seen) < 2 {
		t.Errorf("expected varied codes, got %d distinct of 20", len(seen))
	}
}
