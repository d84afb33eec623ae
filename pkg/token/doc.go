// Package token provides the secrets and identifiers that surround fwt
// tokens: API key secrets for the HTTP service, their stored hashes,
// log-safe token fingerprints and sortable token IDs.
//
// API Key Format:
//
//   - Prefix: fwtk_ (5 characters)
//   - Body: 43 characters of Base64 RawURL encoded random bytes
//
// Security:
//
//   - Uses crypto/rand for CSPRNG
//   - SHA-256 hashing with constant-time comparison
//   - API key secrets are never stored, only hashes
package token
