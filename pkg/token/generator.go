package token

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	// DefaultLength is the default secret length in bytes.
	DefaultLength = 32

	// SecretPrefix marks an API key secret.
	SecretPrefix = "fwtk_"
)

// NewSecret generates an API key secret.
func NewSecret() (string, error) {
	b, err := GenerateBytes(DefaultLength)
	if err != nil {
		return "", err
	}
	return SecretPrefix + base64.RawURLEncoding.EncodeToString(b), nil
}

// IsSecret reports whether s has the shape of an API key secret.
func IsSecret(s string) bool {
	body, ok := strings.CutPrefix(s, SecretPrefix)
	if !ok {
		return false
	}
	b, err := base64.RawURLEncoding.DecodeString(body)
	return err == nil && len(b) == DefaultLength
}

// GenerateBytes generates random bytes.
func GenerateBytes(length int) ([]byte, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewID returns a new ULID string. IDs generated by one process sort by
// creation time.
func NewID() string {
	return NewIDAt(time.Now())
}

// NewIDAt returns a new ULID string for the instant t.
func NewIDAt(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// ParseID validates a ULID string and returns its timestamp.
func ParseID(id string) (time.Time, error) {
	u, err := ulid.ParseStrict(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(u.Time()), nil
}
