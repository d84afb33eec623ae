package fwt

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/yndnr/fwt-go/pkg/crypto/adaptive"
)

// TokenPrefix marks the text form of a token.
const TokenPrefix = "fwt1."

// additionalData binds every sealed record to this format version.
var additionalData = []byte("fwt1")

// AEAD is the authenticated encryption an Authority seals records with.
// adaptive.Cipher satisfies it.
type AEAD interface {
	Encrypt(plaintext, additionalData []byte) ([]byte, error)
	Decrypt(ciphertext, additionalData []byte) ([]byte, error)
}

// Authority issues and validates tokens under a single key.
//
// An Authority is immutable after construction and safe for concurrent use.
type Authority struct {
	aead      AEAD
	tokenType *string
	now       func() time.Time
}

type authorityOptions struct {
	tokenType  *string
	cipherType adaptive.CipherType
	aead       AEAD
	now        func() time.Time
}

// Option configures an Authority.
type Option func(*authorityOptions)

// WithTokenType stamps issued tokens with typ and requires it on validation.
func WithTokenType(typ string) Option {
	return func(o *authorityOptions) {
		o.tokenType = &typ
	}
}

// WithCipherType selects the AEAD algorithm used with the key.
func WithCipherType(t adaptive.CipherType) Option {
	return func(o *authorityOptions) {
		o.cipherType = t
	}
}

// WithCipher uses aead instead of deriving a cipher from the key.
func WithCipher(aead AEAD) Option {
	return func(o *authorityOptions) {
		o.aead = aead
	}
}

// WithClock sets the time source used for issuing and validation.
func WithClock(now func() time.Time) Option {
	return func(o *authorityOptions) {
		o.now = now
	}
}

// NewAuthority creates an Authority for a 32-byte key.
//
// When WithCipher is given the key is ignored and may be nil.
func NewAuthority(key []byte, opts ...Option) (*Authority, error) {
	o := authorityOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	aead := o.aead
	if aead == nil {
		if len(key) != adaptive.KeySize {
			return nil, ErrInvalidKey.WithDetails("key is %d bytes, want %d", len(key), adaptive.KeySize)
		}
		var (
			c   adaptive.Cipher
			err error
		)
		if o.cipherType == "" {
			c, err = adaptive.New(key)
		} else {
			c, err = adaptive.NewWithType(key, o.cipherType)
		}
		if err != nil {
			return nil, ErrInvalidKey.Wrap(err)
		}
		aead = c
	}

	return &Authority{aead: aead, tokenType: o.tokenType, now: o.now}, nil
}

// TokenType returns the configured token type, or "" and false if none.
func (a *Authority) TokenType() (string, bool) {
	if a.tokenType == nil {
		return "", false
	}
	return *a.tokenType, true
}

// IssueOptions are the per-token fields of Issue.
type IssueOptions struct {
	// ValidAt is the earliest acceptance instant. Zero means no lower bound.
	ValidAt time.Time

	// ExpiresAt is the expiry instant. Zero means no expiry unless
	// ExpiresAfter is set.
	ExpiresAt time.Time

	// ExpiresAfter sets ExpiresAt relative to the issuing time when ExpiresAt
	// is zero.
	ExpiresAfter time.Duration

	// TokenID is an optional opaque identifier.
	TokenID *string
}

// Issue seals payload into a new token.
//
// The record is serialized in full before encryption, so format errors such
// as ErrEncoding are returned without touching the cipher.
func (a *Authority) Issue(payload Payload, opts IssueOptions) ([]byte, error) {
	rec := &Record{
		ValidAt:   opts.ValidAt,
		ExpiresAt: opts.ExpiresAt,
		TokenType: a.tokenType,
		TokenID:   opts.TokenID,
		Payload:   payload,
	}
	if rec.ExpiresAt.IsZero() && opts.ExpiresAfter > 0 {
		rec.ExpiresAt = a.now().Add(opts.ExpiresAfter)
	}

	plaintext, err := Marshal(rec)
	if err != nil {
		return nil, err
	}

	return a.aead.Encrypt(plaintext, additionalData)
}

// IssueValue infers the payload kind of v and issues a token for it.
func (a *Authority) IssueValue(v any, opts IssueOptions) ([]byte, error) {
	p, err := InferPayload(v)
	if err != nil {
		return nil, err
	}
	return a.Issue(p, opts)
}

// Validate checks token against the current time.
func (a *Authority) Validate(token []byte) (*Record, error) {
	return a.ValidateAt(token, a.now())
}

// ValidateAt checks token against now. Checks run in a fixed order:
// authentication, record format, validity start, expiry, token type.
// The first failure is returned and no record is exposed.
func (a *Authority) ValidateAt(token []byte, now time.Time) (*Record, error) {
	rec, err := a.Open(token)
	if err != nil {
		return nil, err
	}

	secs := now.Unix()
	if !rec.ValidAt.IsZero() && secs < rec.ValidAt.Unix() {
		return nil, ErrNotYetValid.WithDetails("valid from %s", rec.ValidAt.Format(time.RFC3339))
	}
	if !rec.ExpiresAt.IsZero() && secs >= rec.ExpiresAt.Unix() {
		return nil, ErrExpiredToken.WithDetails("expired at %s", rec.ExpiresAt.Format(time.RFC3339))
	}
	if a.tokenType != nil && rec.TokenType != nil && *a.tokenType != *rec.TokenType {
		return nil, ErrTokenTypeMismatch.WithDetails("got %q, want %q", *rec.TokenType, *a.tokenType)
	}

	return rec, nil
}

// ExtractPayload validates token and returns its payload.
func (a *Authority) ExtractPayload(token []byte) (Payload, error) {
	rec, err := a.Validate(token)
	if err != nil {
		return nil, err
	}
	if rec.Payload == nil {
		return Empty{}, nil
	}
	return rec.Payload, nil
}

// Open decrypts and parses token without checking times or type.
// It is meant for inspection; use Validate to authorize.
func (a *Authority) Open(token []byte) (*Record, error) {
	plaintext, err := a.aead.Decrypt(token, additionalData)
	if err != nil {
		return nil, ErrInvalidToken.Wrap(err)
	}
	return Unmarshal(plaintext)
}

// GenerateKey returns a new random key for NewAuthority.
func GenerateKey() ([]byte, error) {
	return adaptive.GenerateKey()
}

// EncodeKey returns the URL-safe base64 text form of key.
func EncodeKey(key []byte) string {
	return base64.URLEncoding.EncodeToString(key)
}

// DecodeKey parses a key in URL-safe base64, padded or not.
func DecodeKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	key, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		key, err = base64.RawURLEncoding.DecodeString(s)
	}
	if err != nil {
		return nil, ErrInvalidKey.WithDetails("key is not url-safe base64").Wrap(err)
	}
	if len(key) != adaptive.KeySize {
		return nil, ErrInvalidKey.WithDetails("key is %d bytes, want %d", len(key), adaptive.KeySize)
	}
	return key, nil
}

// EncodeToken returns the text form of token: TokenPrefix followed by
// unpadded URL-safe base64.
func EncodeToken(token []byte) string {
	return TokenPrefix + base64.RawURLEncoding.EncodeToString(token)
}

// DecodeToken parses the text form of a token. The prefix is optional.
func DecodeToken(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), TokenPrefix)
	if s == "" {
		return nil, ErrInvalidToken.WithDetails("empty token")
	}
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return nil, ErrInvalidToken.WithDetails("token is not url-safe base64").Wrap(err)
	}
	return b, nil
}

// IsValidationError reports whether err is one of the errors ValidateAt
// returns for a token that was rejected, as opposed to a usage error.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrMalformedToken) ||
		errors.Is(err, ErrNotYetValid) ||
		errors.Is(err, ErrExpiredToken) ||
		errors.Is(err, ErrTokenTypeMismatch)
}
