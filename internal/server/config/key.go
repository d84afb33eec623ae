package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/yndnr/fwt-go/pkg/crypto/kdf"
	"github.com/yndnr/fwt-go/pkg/fwt"
)

// ErrNoKey means neither a key nor a passphrase is configured.
var ErrNoKey = errors.New("security.key or security.passphrase is required")

// MasterKey resolves the configured master key. A passphrase is stretched
// with argon2id using the configured salt.
func (s SecuritySection) MasterKey() ([]byte, error) {
	switch {
	case s.Key != "" && s.Passphrase != "":
		return nil, errors.New("security.key and security.passphrase are mutually exclusive")
	case s.Key != "":
		key, err := fwt.DecodeKey(s.Key)
		if err != nil {
			return nil, fmt.Errorf("security.key: %w", err)
		}
		return key, nil
	case s.Passphrase != "":
		salt, err := DecodeSalt(s.Salt)
		if err != nil {
			return nil, fmt.Errorf("security.salt: %w", err)
		}
		key, err := kdf.DeriveFromPassphrase([]byte(s.Passphrase), salt)
		if err != nil {
			return nil, fmt.Errorf("security.passphrase: %w", err)
		}
		return key, nil
	default:
		return nil, ErrNoKey
	}
}

// DecodeSalt decodes a URL-safe base64 salt, padded or not.
func DecodeSalt(s string) ([]byte, error) {
	s = strings.TrimRight(strings.TrimSpace(s), "=")
	if s == "" {
		return nil, kdf.ErrSaltTooShort
	}
	salt, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode salt: %w", err)
	}
	if len(salt) < kdf.SaltLength {
		return nil, kdf.ErrSaltTooShort
	}
	return salt, nil
}

// EncodeSalt encodes a salt the way DecodeSalt expects.
func EncodeSalt(salt []byte) string {
	return base64.RawURLEncoding.EncodeToString(salt)
}
