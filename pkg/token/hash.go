package token

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// fingerprintLength is the number of hex characters in a fingerprint.
const fingerprintLength = 16

// Hash computes the SHA-256 hash of a secret.
//
// The returned hash is hex encoded for storage.
func Hash(secret string) string {
	h := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(h[:])
}

// HashBytes computes the SHA-256 hash of bytes.
func HashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Verify verifies a secret against an expected hash.
//
// Uses constant-time comparison to prevent timing attacks.
func Verify(secret, expectedHash string) bool {
	actualHash := Hash(secret)
	return subtle.ConstantTimeCompare([]byte(actualHash), []byte(expectedHash)) == 1
}

// VerifyAny reports whether secret matches any of hashes. Every hash is
// compared, so timing does not reveal which one matched.
func VerifyAny(secret string, hashes []string) bool {
	actualHash := []byte(Hash(secret))
	matched := 0
	for _, h := range hashes {
		matched |= subtle.ConstantTimeCompare(actualHash, []byte(h))
	}
	return matched == 1
}

// Fingerprint returns a short, non-reversible identifier for a sealed
// token, suitable for logs and audit records.
func Fingerprint(token []byte) string {
	return HashBytes(token)[:fingerprintLength]
}
