package fwt

import "time"

// Flag bits of the first record byte. The upper four bits hold the payload
// kind.
const (
	flagValidAt   uint8 = 1 << 0
	flagExpiresAt uint8 = 1 << 1
	flagTokenType uint8 = 1 << 2
	flagTokenID   uint8 = 1 << 3

	kindShift = 4
	kindMask  = 0x0F
)

// Record is the decrypted content of a token.
//
// Zero times and nil strings are absent fields; they cost no bytes on the
// wire and impose no constraint during validation.
type Record struct {
	// ValidAt is the earliest instant the token is accepted.
	ValidAt time.Time

	// ExpiresAt is the instant at and after which the token is rejected.
	ExpiresAt time.Time

	// TokenType is the caller-defined classification tag (e.g., "LOGIN").
	TokenType *string

	// TokenID is an opaque caller-supplied identifier.
	TokenID *string

	// Payload is the typed content. A nil Payload is encoded as Empty.
	Payload Payload
}

// PayloadKind returns the kind of the record payload.
func (r *Record) PayloadKind() PayloadKind {
	if r.Payload == nil {
		return KindEmpty
	}
	return r.Payload.Kind()
}

// flags computes the header byte from the fields that are set.
func (r *Record) flags() uint8 {
	var f uint8
	if !r.ValidAt.IsZero() {
		f |= flagValidAt
	}
	if !r.ExpiresAt.IsZero() {
		f |= flagExpiresAt
	}
	if r.TokenType != nil {
		f |= flagTokenType
	}
	if r.TokenID != nil {
		f |= flagTokenID
	}
	return f | uint8(r.PayloadKind()&kindMask)<<kindShift
}

// Marshal serializes the record into its wire form:
//
//	flags | [valid_at u64] | [expires_at u64] | [type u8+str] | [id u8+str] | payload u16+bytes
//
// Optional fields are written only when their flag bit is set. The payload
// length is always written, and is zero for an Empty payload.
func Marshal(r *Record) ([]byte, error) {
	if r.PayloadKind() > KindCustomMax {
		return nil, ErrInvalidPayloadKind.WithDetails("kind %d is outside 0-%d", uint8(r.PayloadKind()), uint8(KindCustomMax))
	}

	payload, err := EncodePayload(r.Payload)
	if err != nil {
		return nil, err
	}

	size := 1 + 2 + len(payload)
	if r.TokenType != nil {
		size += 1 + len(*r.TokenType)
	}
	if r.TokenID != nil {
		size += 1 + len(*r.TokenID)
	}
	w := NewWriter(size + 16)

	flags := r.flags()
	w.WriteU8(flags)

	if flags&flagValidAt != 0 {
		if err := w.WriteTimestamp(r.ValidAt); err != nil {
			return nil, err
		}
	}
	if flags&flagExpiresAt != 0 {
		if err := w.WriteTimestamp(r.ExpiresAt); err != nil {
			return nil, err
		}
	}
	if flags&flagTokenType != 0 {
		if err := w.WriteString8(*r.TokenType); err != nil {
			return nil, err
		}
	}
	if flags&flagTokenID != 0 {
		if err := w.WriteString8(*r.TokenID); err != nil {
			return nil, err
		}
	}
	if err := w.WriteBytes16(payload); err != nil {
		return nil, err
	}

	return w.Bytes(), nil
}

// Unmarshal parses a record from its wire form. Any failure, including
// bytes left over after the payload, is reported as ErrMalformedToken
// wrapping the underlying cursor or payload error.
func Unmarshal(data []byte) (*Record, error) {
	r, err := unmarshal(data)
	if err != nil {
		return nil, ErrMalformedToken.Wrap(err)
	}
	return r, nil
}

func unmarshal(data []byte) (*Record, error) {
	rd := NewReader(data)
	rec := &Record{}

	flags, err := rd.ReadU8()
	if err != nil {
		return nil, err
	}

	if flags&flagValidAt != 0 {
		if rec.ValidAt, err = rd.ReadTimestamp(); err != nil {
			return nil, err
		}
	}
	if flags&flagExpiresAt != 0 {
		if rec.ExpiresAt, err = rd.ReadTimestamp(); err != nil {
			return nil, err
		}
	}
	if flags&flagTokenType != 0 {
		s, err := rd.ReadString8()
		if err != nil {
			return nil, err
		}
		rec.TokenType = &s
	}
	if flags&flagTokenID != 0 {
		s, err := rd.ReadString8()
		if err != nil {
			return nil, err
		}
		rec.TokenID = &s
	}

	data, err = rd.ReadBytes16()
	if err != nil {
		return nil, err
	}
	if n := rd.Remaining(); n != 0 {
		return nil, ErrDecode.WithDetails("%d trailing bytes after payload", n)
	}

	kind := PayloadKind(flags>>kindShift) & kindMask
	if rec.Payload, err = DecodePayload(kind, data); err != nil {
		return nil, err
	}

	return rec, nil
}
