// Package adaptive provides adaptive encryption with automatic algorithm selection.
package adaptive

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// aeadCipher seals messages with a standard cipher.AEAD and a random nonce.
type aeadCipher struct {
	typ  CipherType
	aead cipher.AEAD
}

// NewAESGCM creates an AES-256-GCM cipher.
func NewAESGCM(key []byte) (Cipher, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("adaptive: aes: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("adaptive: gcm: %w", err)
	}

	return &aeadCipher{typ: CipherAESGCM, aead: aead}, nil
}

// NewChaCha20 creates a ChaCha20-Poly1305 cipher.
func NewChaCha20(key []byte) (Cipher, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, ErrInvalidKeySize
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("adaptive: chacha20-poly1305: %w", err)
	}

	return &aeadCipher{typ: CipherChaCha20, aead: aead}, nil
}

// Type returns the cipher type.
func (c *aeadCipher) Type() CipherType {
	return c.typ
}

// NonceSize returns the nonce size in bytes.
func (c *aeadCipher) NonceSize() int {
	return c.aead.NonceSize()
}

// Overhead returns the authentication tag size in bytes.
func (c *aeadCipher) Overhead() int {
	return c.aead.Overhead()
}

// Encrypt performs authenticated encryption. The nonce is prepended to the
// returned ciphertext.
func (c *aeadCipher) Encrypt(plaintext, additionalData []byte) ([]byte, error) {
	nonceSize := c.aead.NonceSize()
	out := make([]byte, nonceSize, nonceSize+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(out); err != nil {
		return nil, fmt.Errorf("adaptive: read nonce: %w", err)
	}
	return c.aead.Seal(out, out[:nonceSize], plaintext, additionalData), nil
}

// Decrypt performs authenticated decryption.
func (c *aeadCipher) Decrypt(ciphertext, additionalData []byte) ([]byte, error) {
	nonceSize := c.aead.NonceSize()
	if len(ciphertext) < nonceSize+c.aead.Overhead() {
		return nil, ErrCiphertextTooShort
	}

	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, sealed, additionalData)
	if err != nil {
		return nil, ErrAuthentication
	}
	return plaintext, nil
}
