// Package adaptive provides adaptive encryption with automatic algorithm selection.
package adaptive

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sys/cpu"
)

// KeySize is the key length accepted by every cipher type.
const KeySize = 32

// CipherType identifies the cipher algorithm.
type CipherType string

const (
	CipherAESGCM   CipherType = "aes-gcm"
	CipherChaCha20 CipherType = "chacha20-poly1305"
)

// Cipher errors.
var (
	ErrInvalidKeySize     = errors.New("adaptive: key must be 32 bytes")
	ErrUnknownCipher      = errors.New("adaptive: unknown cipher type")
	ErrCiphertextTooShort = errors.New("adaptive: ciphertext too short")
	ErrAuthentication     = errors.New("adaptive: message authentication failed")
)

// Cipher provides authenticated encryption.
type Cipher interface {
	// Type returns the cipher type.
	Type() CipherType

	// Encrypt seals plaintext and returns nonce || ciphertext || tag.
	Encrypt(plaintext, additionalData []byte) ([]byte, error)

	// Decrypt opens a value produced by Encrypt with the same key and
	// additional data.
	Decrypt(ciphertext, additionalData []byte) ([]byte, error)

	// NonceSize returns the nonce size in bytes.
	NonceSize() int

	// Overhead returns the authentication tag size in bytes.
	Overhead() int
}

// New creates a cipher for key using the algorithm best suited to the CPU.
func New(key []byte) (Cipher, error) {
	return NewWithType(key, DefaultType())
}

// NewWithType creates a cipher of the specified type.
func NewWithType(key []byte, cipherType CipherType) (Cipher, error) {
	switch cipherType {
	case CipherAESGCM:
		return NewAESGCM(key)
	case CipherChaCha20:
		return NewChaCha20(key)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCipher, cipherType)
	}
}

// ParseCipherType parses a cipher name. The empty string selects the
// hardware default.
func ParseCipherType(s string) (CipherType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultType(), nil
	case "aes-gcm", "aes-256-gcm", "aesgcm":
		return CipherAESGCM, nil
	case "chacha20-poly1305", "chacha20", "chacha":
		return CipherChaCha20, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCipher, s)
	}
}

// DefaultType returns the cipher type New selects on this machine.
func DefaultType() CipherType {
	if hasAESHardware() {
		return CipherAESGCM
	}
	return CipherChaCha20
}

// GenerateKey returns KeySize bytes from the system CSPRNG.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("adaptive: generate key: %w", err)
	}
	return key, nil
}

// hasAESHardware reports whether AES-GCM runs in constant time with
// hardware support on this CPU.
func hasAESHardware() bool {
	switch {
	case cpu.X86.HasAES && cpu.X86.HasPCLMULQDQ:
		return true
	case cpu.ARM64.HasAES && cpu.ARM64.HasPMULL:
		return true
	case cpu.S390X.HasAES && cpu.S390X.HasAESGCM:
		return true
	default:
		return false
	}
}
