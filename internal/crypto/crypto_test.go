package crypto

import (
	"strings"
	"testing"
)

func newTestSealer(t *testing.T, machineID string) *Sealer {
	t.Helper()
	s, err := NewSealer(machineID)
	if err != nil {
		t.Fatalf("NewSealer() error = %v", err)
	}
	return s
}

func TestSealOpen_roundtrip(t *testing.T) {
	s := newTestSealer(t, "host-a")

	tests := []string{"", "tok-123", "eyJhbGciOiJIUzI1NiJ9.e30.sig", "ünïcødé ₹"}
	for _, plaintext := range tests {
		sealed, err := s.Seal(plaintext)
		if err != nil {
			t.Fatalf("Seal(%q) error = %v", plaintext, err)
		}
		if !IsSealed(sealed) {
			t.Errorf("Seal(%q) = %q, missing prefix", plaintext, sealed)
		}
		if plaintext != "" && strings.Contains(sealed, plaintext) {
			t.Errorf("sealed value leaks plaintext")
		}
		got, err := s.Open(sealed)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		if got != plaintext {
			t.Errorf("Open() = %q, want %q", got, plaintext)
		}
	}
}

func TestSeal_randomNonce(t *testing.T) {
	s := newTestSealer(t, "host-a")
	a, _ := s.Seal("same")
	b, _ := s.Seal("same")
	if a == b {
		t.Error("sealing twice should produce different values")
	}
}

func TestOpen_wrongMachine(t *testing.T) {
	sealed, _ := newTestSealer(t, "host-a").Seal("tok")
	if _, err := newTestSealer(t, "host-b").Open(sealed); err != ErrInvalidCiphertext {
		t.Errorf("Open() error = %v, want ErrInvalidCiphertext", err)
	}
}

func TestOpen_invalidInput(t *testing.T) {
	s := newTestSealer(t, "host-a")
	sealed, _ := s.Seal("tok")
	tampered := sealed[:len(sealed)-2] + "AA"

	for _, in := range []string{"tok", "v1:not-base64!", "v1:AAAA", tampered} {
		if _, err := s.Open(in); err != ErrInvalidCiphertext {
			t.Errorf("Open(%q) error = %v, want ErrInvalidCiphertext", in, err)
		}
	}
}

func TestNewSealer_emptyMachineID(t *testing.T) {
	if _, err := NewSealer(""); err != ErrInvalidKey {
		t.Errorf("NewSealer(\"\") error = %v, want ErrInvalidKey", err)
	}
}

func TestDeriveKey(t *testing.T) {
	if string(DeriveKey("x")) != string(DeriveKey("x")) {
		t.Error("DeriveKey should be deterministic")
	}
	if string(DeriveKey("x")) == string(DeriveKey("y")) {
		t.Error("different inputs should give different keys")
	}
	if len(DeriveKey("x")) != 32 {
		t.Error("key should be 32 bytes")
	}
	if MachineID() == "" {
		t.Error("MachineID should never be empty")
	}
}
