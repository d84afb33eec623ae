// Package kdf derives token keys from passphrases and master keys.
package kdf

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
)

const (
	// KeyLength is the length of every derived key.
	KeyLength = 32

	// MinKeyLength is the minimum master key length for DeriveSubkey.
	MinKeyLength = 16

	// MinPassphraseLength is the minimum passphrase length.
	MinPassphraseLength = 8

	// SaltLength is the length of salts produced by NewSalt.
	SaltLength = 16
)

// Argon2id parameters.
const (
	argon2Time    = 3
	argon2Memory  = 64 * 1024
	argon2Threads = 4
)

var (
	ErrKeyTooShort        = errors.New("kdf: key too short")
	ErrPassphraseTooShort = errors.New("kdf: passphrase too short")
	ErrSaltTooShort       = errors.New("kdf: salt too short")
	ErrEmptyInfo          = errors.New("kdf: info must not be empty")
)

// DeriveFromPassphrase derives a KeyLength key from passphrase with
// Argon2id. The same passphrase and salt always yield the same key.
func DeriveFromPassphrase(passphrase, salt []byte) ([]byte, error) {
	if len(passphrase) < MinPassphraseLength {
		return nil, ErrPassphraseTooShort
	}
	if len(salt) < SaltLength {
		return nil, ErrSaltTooShort
	}

	return argon2.IDKey(passphrase, salt, argon2Time, argon2Memory, argon2Threads, KeyLength), nil
}

// DeriveSubkey derives a KeyLength subkey bound to info from masterKey
// using HKDF-SHA256. Distinct info strings give independent keys.
func DeriveSubkey(masterKey []byte, info string) ([]byte, error) {
	if len(masterKey) < MinKeyLength {
		return nil, ErrKeyTooShort
	}
	if info == "" {
		return nil, ErrEmptyInfo
	}

	reader := hkdf.New(sha256.New, masterKey, nil, []byte(info))
	key := make([]byte, KeyLength)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("kdf: derive subkey: %w", err)
	}
	return key, nil
}

// NewSalt returns SaltLength random bytes.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("kdf: new salt: %w", err)
	}
	return salt, nil
}

// Zero overwrites key material in place.
func Zero(key []byte) {
	for i := range key {
		key[i] = 0
	}
}
