// Package crypto seals small secrets, such as the API token, before they are
// written to the local store. Uses AES-256-GCM for authenticated encryption.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"os"
	"strings"
)

var (
	// ErrInvalidCiphertext is returned when a sealed value cannot be opened.
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	// ErrInvalidKey is returned when no key material is available.
	ErrInvalidKey = errors.New("invalid key")
)

// sealedPrefix versions the sealed format.
const sealedPrefix = "v1:"

// Sealer encrypts and decrypts strings with a key bound to this machine.
type Sealer struct {
	aead cipher.AEAD
}

// DeriveKey derives a 32-byte key from a machine-specific identifier.
func DeriveKey(machineID string) []byte {
	hash := sha256.Sum256([]byte("ledgerq:" + machineID))
	return hash[:]
}

// MachineID returns the host name, or a fixed fallback when it is unknown.
func MachineID() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "ledgerq-default-machine"
}

// NewSealer creates a Sealer keyed from machineID.
func NewSealer(machineID string) (*Sealer, error) {
	if machineID == "" {
		return nil, ErrInvalidKey
	}
	block, err := aes.NewCipher(DeriveKey(machineID))
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: gcm}, nil
}

// Seal encrypts plaintext with a random nonce and returns a printable value.
func (s *Sealer) Seal(plaintext string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal.
func (s *Sealer) Open(sealed string) (string, error) {
	encoded, ok := strings.CutPrefix(sealed, sealedPrefix)
	if !ok {
		return "", ErrInvalidCiphertext
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	nonceSize := s.aead.NonceSize()
	if len(data) < nonceSize {
		return "", ErrInvalidCiphertext
	}
	plaintext, err := s.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	return string(plaintext), nil
}

// IsSealed reports whether value looks like the output of Seal.
func IsSealed(value string) bool {
	return strings.HasPrefix(value, sealedPrefix)
}
