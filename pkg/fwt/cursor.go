package fwt

import (
	"encoding/binary"
	"math"
	"time"
	"unicode/utf8"
)

// Field size limits imposed by the length prefixes.
const (
	// MaxStringLength is the maximum encoded size of a length-prefixed string.
	MaxStringLength = math.MaxUint8

	// MaxPayloadLength is the maximum encoded size of a length-prefixed blob.
	MaxPayloadLength = math.MaxUint16
)

// Writer appends fixed-width big-endian fields to a growable buffer.
type Writer struct {
	buf []byte
}

// NewWriter creates a Writer with capacity for size bytes.
func NewWriter(size int) *Writer {
	return &Writer{buf: make([]byte, 0, size)}
}

// Bytes returns the written bytes.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written.
func (w *Writer) Len() int {
	return len(w.buf)
}

// WriteU8 appends a single byte.
func (w *Writer) WriteU8(v uint8) {
	w.buf = append(w.buf, v)
}

// WriteU16 appends a big-endian uint16.
func (w *Writer) WriteU16(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

// WriteU64 appends a big-endian uint64.
func (w *Writer) WriteU64(v uint64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, v)
}

// WriteString8 appends a 1-byte length followed by the UTF-8 bytes of s.
func (w *Writer) WriteString8(s string) error {
	if len(s) > MaxStringLength {
		return ErrEncoding.WithDetails("string is %d bytes, limit %d", len(s), MaxStringLength)
	}
	if !utf8.ValidString(s) {
		return ErrEncoding.WithDetails("string is not valid UTF-8")
	}
	w.WriteU8(uint8(len(s)))
	w.buf = append(w.buf, s...)
	return nil
}

// WriteBytes16 appends a 2-byte length followed by b.
func (w *Writer) WriteBytes16(b []byte) error {
	if len(b) > MaxPayloadLength {
		return ErrEncoding.WithDetails("blob is %d bytes, limit %d", len(b), MaxPayloadLength)
	}
	w.WriteU16(uint16(len(b)))
	w.buf = append(w.buf, b...)
	return nil
}

// WriteTimestamp appends t as unsigned whole seconds since the Unix epoch.
// Sub-second precision is truncated.
func (w *Writer) WriteTimestamp(t time.Time) error {
	secs := t.Unix()
	if secs < 0 {
		return ErrEncoding.WithDetails("timestamp %s is before the unix epoch", t.UTC().Format(time.RFC3339))
	}
	w.WriteU64(uint64(secs))
	return nil
}

// Reader consumes fields from a fixed buffer, front to back.
//
// Every read checks the remaining length first; a short buffer yields
// ErrTruncatedInput and leaves the position unchanged.
type Reader struct {
	buf []byte
	pos int
}

// NewReader creates a Reader over b.
func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.pos
}

// Offset returns the current read position.
func (r *Reader) Offset() int {
	return r.pos
}

// next returns the next n bytes and advances past them.
func (r *Reader) next(n int) ([]byte, error) {
	if n > r.Remaining() {
		return nil, ErrTruncatedInput.WithDetails("need %d bytes at offset %d, have %d", n, r.pos, r.Remaining())
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// ReadU8 reads a single byte.
func (r *Reader) ReadU8() (uint8, error) {
	b, err := r.next(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadU16 reads a big-endian uint16.
func (r *Reader) ReadU16() (uint16, error) {
	b, err := r.next(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// ReadU64 reads a big-endian uint64.
func (r *Reader) ReadU64() (uint64, error) {
	b, err := r.next(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// ReadString8 reads a 1-byte length followed by that many UTF-8 bytes.
func (r *Reader) ReadString8() (string, error) {
	start := r.pos
	n, err := r.ReadU8()
	if err != nil {
		return "", err
	}
	b, err := r.next(int(n))
	if err != nil {
		r.pos = start
		return "", err
	}
	if !utf8.Valid(b) {
		r.pos = start
		return "", ErrDecode.WithDetails("string at offset %d is not valid UTF-8", start)
	}
	return string(b), nil
}

// ReadBytes16 reads a 2-byte length followed by that many bytes.
// The returned slice is a copy.
func (r *Reader) ReadBytes16() ([]byte, error) {
	start := r.pos
	n, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	b, err := r.next(int(n))
	if err != nil {
		r.pos = start
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// ReadTimestamp reads unsigned seconds since the Unix epoch as a UTC time.
func (r *Reader) ReadTimestamp() (time.Time, error) {
	start := r.pos
	secs, err := r.ReadU64()
	if err != nil {
		return time.Time{}, err
	}
	if secs > math.MaxInt64 {
		r.pos = start
		return time.Time{}, ErrDecode.WithDetails("timestamp %d out of range", secs)
	}
	return time.Unix(int64(secs), 0).UTC(), nil
}
