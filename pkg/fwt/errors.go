// Package fwt implements encrypted, self-contained authorization tokens.
package fwt

import (
	"errors"
	"fmt"
)

// Error is a token error carrying a stable error code.
//
// Two Errors are equal under errors.Is when their codes match, so callers
// compare against the exported sentinels regardless of details or cause.
type Error struct {
	Code    string // Error code (e.g., "FWT-TOKN-4011")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// newError creates a sentinel error.
func newError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithDetails returns a copy of the error with additional details.
func (e *Error) WithDetails(format string, args ...any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: fmt.Sprintf(format, args...),
		Cause:   e.Cause,
	}
}

// Wrap returns a copy of the error wrapping cause.
func (e *Error) Wrap(cause error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// Code extracts the error code from err, or "" if err is not an *Error.
func Code(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ""
}

// Token errors.
var (
	// ErrMalformedToken indicates the decrypted bytes are not a valid record.
	ErrMalformedToken = newError("FWT-TOKN-4000", "malformed token")

	// ErrInvalidToken indicates the token failed authentication or decryption.
	// A wrong key and a tampered token are indistinguishable.
	ErrInvalidToken = newError("FWT-TOKN-4010", "invalid token")

	// ErrExpiredToken indicates the current time is at or after the expiry.
	ErrExpiredToken = newError("FWT-TOKN-4011", "token expired")

	// ErrNotYetValid indicates the current time is before the validity start.
	ErrNotYetValid = newError("FWT-TOKN-4012", "token not yet valid")

	// ErrTokenTypeMismatch indicates the token type differs from the expected type.
	ErrTokenTypeMismatch = newError("FWT-TOKN-4013", "token type mismatch")
)

// Payload errors.
var (
	// ErrPayloadType indicates a value does not match its declared payload kind.
	ErrPayloadType = newError("FWT-PAY-4001", "payload does not match kind")

	// ErrUnsupportedPayload indicates no payload kind can carry the value.
	ErrUnsupportedPayload = newError("FWT-PAY-4002", "unsupported payload type")

	// ErrInvalidPayloadKind indicates a payload kind outside the encodable range.
	ErrInvalidPayloadKind = newError("FWT-PAY-4003", "invalid payload kind")
)

// Encoding errors.
var (
	// ErrEncoding indicates a field exceeds the limits of the wire format.
	ErrEncoding = newError("FWT-ENC-4001", "value exceeds format limits")

	// ErrDecode indicates bytes could not be decoded (bad UTF-8, bad JSON).
	ErrDecode = newError("FWT-DEC-4001", "decode failed")

	// ErrTruncatedInput indicates the input ended before a field was complete.
	ErrTruncatedInput = newError("FWT-DEC-4002", "truncated input")
)

// Key errors.
var (
	// ErrInvalidKey indicates key material of the wrong size or encoding.
	ErrInvalidKey = newError("FWT-KEY-4001", "invalid key")
)
