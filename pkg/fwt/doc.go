// Package fwt implements encrypted, self-contained authorization tokens.
//
// A token is an AEAD-sealed record. The record carries optional validity
// bounds, an optional type tag, an optional identifier and a typed payload,
// so a holder of the key can authorize a request without any lookup.
//
// Record Format (all integers big-endian):
//
//	offset  size  field
//	0       1     flags
//	              bit 0   valid_at present
//	              bit 1   expires_at present
//	              bit 2   token_type present
//	              bit 3   token_id present
//	              bit 4-7 payload kind
//	-       8     valid_at, seconds since epoch (if bit 0)
//	-       8     expires_at, seconds since epoch (if bit 1)
//	-       1+n   token_type, length-prefixed UTF-8 (if bit 2)
//	-       1+n   token_id, length-prefixed UTF-8 (if bit 3)
//	-       2+n   payload, length-prefixed bytes (always)
//
// Payload Kinds:
//
//   - 0 Empty: no content
//   - 1 Binary: raw bytes
//   - 2 Text: UTF-8 string
//   - 3 Structured: compact JSON
//   - 4-7 Custom: caller-defined opaque bytes
//
// Validation:
//
// A token is accepted at its valid_at instant and rejected at its expires_at
// instant. The type check applies only when both the Authority and the token
// carry a type. Failures are reported as *Error values that match the
// exported sentinels under errors.Is.
//
// Usage:
//
//	key, _ := fwt.GenerateKey()
//	auth, _ := fwt.NewAuthority(key, fwt.WithTokenType("LOGIN"))
//	tok, _ := auth.IssueValue(map[string]any{"user_id": 1234},
//	    fwt.IssueOptions{ExpiresAfter: 5 * time.Minute})
//	rec, err := auth.Validate(tok)
package fwt
