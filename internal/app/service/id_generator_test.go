package service

import (
	"strings"
	"testing"
)

func TestIDGenerator_GenerateUsesAlphabetAndLength(t *testing.T) {
	g := NewIDGenerator(9, 100, 0.01)
	for i := 0; i < 50; i++ {
		id, err := g.Generate()
		if err != nil {
			t.Fatalf("Generate returned error: %v", err)
		}
		if len(id) != 9 {
			t.Fatalf("expected length 9, got %q", id)
		}
		if strings.Trim(id, idAlphabet) != "" {
			t.Fatalf("id %q contains characters outside base62", id)
		}
	}
}

func TestIDGenerator_RememberMarksIssued(t *testing.T) {
	g := NewIDGenerator(7, 1000, 0.001)
	if g.MaybeIssued("Ab3xY9q") {
		t.Fatal("fresh filter should not report ids as issued")
	}
	g.Remember("Ab3xY9q")
	if !g.MaybeIssued("Ab3xY9q") {
		t.Fatal("remembered id must be reported as issued")
	}
}

func TestIDGenerator_DefaultsForInvalidSizing(t *testing.T) {
	g := NewIDGenerator(0, 0, 2)
	id, err := g.Generate()
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(id) != defaultIDLength {
		t.Fatalf("expected default length %d, got %d", defaultIDLength, len(id))
	}
}
