// Package adaptive provides the authenticated encryption used to seal tokens.
//
// This package implements a cipher abstraction that selects the best
// available AEAD algorithm for the host CPU:
//
//   - AES-256-GCM: preferred when the CPU has AES instructions
//   - ChaCha20-Poly1305: fallback for CPUs without hardware AES
//
// Ciphertexts are self-contained: a random nonce is prepended to the sealed
// data, so the same key can encrypt any number of messages and identical
// plaintexts never produce identical ciphertexts.
//
// All cipher operations are safe for concurrent use.
//
// Usage:
//
//	key, err := adaptive.GenerateKey()
//	c, err := adaptive.New(key)
//	sealed, err := c.Encrypt(plaintext, aad)
//	plaintext, err := c.Decrypt(sealed, aad)
package adaptive
