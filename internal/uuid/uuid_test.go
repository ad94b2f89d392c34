// Package uuid tests for identifier generation.
package uuid

import (
	"testing"

	"github.com/google/uuid"
)

func isV4(s string) bool {
	id, err := uuid.Parse(s)
	return err == nil && id.Version() == 4
}

// TestNew verifies generated ids are v4 and distinct.
func TestNew(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := New()
		if !isV4(id) {
			t.Fatalf("New() produced invalid UUID v4: %q", id)
		}
		if seen[id] {
			t.Fatalf("New() produced duplicate id %q", id)
		}
		seen[id] = true
	}
}

// TestSequence verifies fixed ids come first, then random ones.
func TestSequence(t *testing.T) {
	gen := Sequence("a", "b")

	if got := gen(); got != "a" {
		t.Errorf("first = %q, want a", got)
	}
	if got := gen(); got != "b" {
		t.Errorf("second = %q, want b", got)
	}
	if got := gen(); !isV4(got) {
		t.Errorf("third = %q, want random UUID", got)
	}
}
