package fwt

import (
	"bytes"
	"encoding"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"unicode/utf8"
)

// PayloadKind identifies how the payload bytes of a record are interpreted.
// It occupies the upper four bits of the flags byte.
type PayloadKind uint8

// Payload kinds. Kinds 4 through 7 are caller-defined encodings carried as
// opaque bytes; 8 through 15 are representable but reserved.
const (
	KindEmpty      PayloadKind = 0
	KindBinary     PayloadKind = 1
	KindText       PayloadKind = 2
	KindStructured PayloadKind = 3

	// KindCustomMin is the first caller-defined kind.
	KindCustomMin PayloadKind = 4

	// KindCustomMax is the last kind that may be encoded.
	KindCustomMax PayloadKind = 7

	// kindLimit is the number of values the 4-bit field can hold.
	kindLimit = 16
)

// maxStructuredDepth bounds nesting when checking structured values.
const maxStructuredDepth = 64

// String returns the kind name.
func (k PayloadKind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindBinary:
		return "binary"
	case KindText:
		return "text"
	case KindStructured:
		return "structured"
	default:
		return fmt.Sprintf("custom-%d", uint8(k))
	}
}

// ParsePayloadKind parses a kind name as returned by String.
func ParsePayloadKind(s string) (PayloadKind, error) {
	switch s {
	case "empty":
		return KindEmpty, nil
	case "binary":
		return KindBinary, nil
	case "text":
		return KindText, nil
	case "structured", "json":
		return KindStructured, nil
	}
	var n uint8
	if _, err := fmt.Sscanf(s, "custom-%d", &n); err == nil && n >= uint8(KindCustomMin) && n <= uint8(KindCustomMax) {
		return PayloadKind(n), nil
	}
	return 0, ErrInvalidPayloadKind.WithDetails("unknown kind %q", s)
}

// Payload is the typed content of a record. The set of implementations is
// closed: Empty, Binary, Text, Structured and Custom.
type Payload interface {
	// Kind returns the payload kind written to the flags byte.
	Kind() PayloadKind

	// Value returns the payload as a plain Go value: nil, []byte, string,
	// or the structured value.
	Value() any

	isPayload()
}

// Empty is a payload without content.
type Empty struct{}

// Binary is a payload of raw bytes.
type Binary []byte

// Text is a UTF-8 string payload.
type Text string

// Structured is a JSON-compatible payload: maps with string keys, structs,
// slices, numbers, booleans, pointers to these and their nesting. Struct
// fields follow encoding/json rules, and types implementing json.Marshaler
// are accepted as is.
//
// Decoded values use json.Number for numbers and map[string]any / []any for
// containers.
type Structured struct {
	Val any

	raw []byte
}

// Custom is a payload of a caller-defined kind, carried as opaque bytes.
type Custom struct {
	Type PayloadKind
	Data []byte
}

func (Empty) Kind() PayloadKind { return KindEmpty }
func (Binary) Kind() PayloadKind { return KindBinary }
func (Text) Kind() PayloadKind { return KindText }
func (Structured) Kind() PayloadKind { return KindStructured }
func (c Custom) Kind() PayloadKind { return c.Type }

func (Empty) Value() any { return nil }
func (b Binary) Value() any { return []byte(b) }
func (t Text) Value() any { return string(t) }
func (s Structured) Value() any { return s.Val }
func (c Custom) Value() any { return c.Data }

func (Empty) isPayload() {}
func (Binary) isPayload() {}
func (Text) isPayload() {}
func (Structured) isPayload() {}
func (Custom) isPayload() {}

// Raw returns the serialized JSON of a structured payload.
func (s Structured) Raw() ([]byte, error) {
	if s.raw != nil {
		return s.raw, nil
	}
	return marshalJSON(s.Val)
}

// Unmarshal decodes the structured payload into v.
func (s Structured) Unmarshal(v any) error {
	raw, err := s.Raw()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return ErrDecode.Wrap(err)
	}
	return nil
}

// NewPayload builds a payload of an explicitly chosen kind.
//
// The value must already have the runtime shape the kind requires; no
// conversion is attempted, so a string is rejected for KindBinary. Any value
// given with KindEmpty is dropped.
func NewPayload(kind PayloadKind, v any) (Payload, error) {
	if kind > KindCustomMax {
		return nil, ErrInvalidPayloadKind.WithDetails("kind %d is outside 0-%d", uint8(kind), uint8(KindCustomMax))
	}

	switch kind {
	case KindEmpty:
		return Empty{}, nil
	case KindBinary:
		b, ok := v.([]byte)
		if !ok {
			return nil, ErrPayloadType.WithDetails("binary payload must be []byte, got %T", v)
		}
		return Binary(b), nil
	case KindText:
		s, ok := v.(string)
		if !ok {
			return nil, ErrPayloadType.WithDetails("text payload must be string, got %T", v)
		}
		if !utf8.ValidString(s) {
			return nil, ErrPayloadType.WithDetails("text payload is not valid UTF-8")
		}
		return Text(s), nil
	case KindStructured:
		if !isStructuredRoot(v) {
			return nil, ErrPayloadType.WithDetails("structured payload must be a JSON-compatible value, got %T", v)
		}
		if raw, ok := v.(json.RawMessage); ok {
			s, err := structuredFromRaw(raw)
			if err != nil {
				return nil, err
			}
			return s, nil
		}
		return Structured{Val: v}, nil
	default:
		b, ok := v.([]byte)
		if !ok {
			return nil, ErrPayloadType.WithDetails("%s payload must be []byte, got %T", kind, v)
		}
		return Custom{Type: kind, Data: b}, nil
	}
}

// InferPayload chooses a kind from the runtime type of v: nil is Empty,
// []byte is Binary, string is Text and JSON-compatible values are
// Structured. A Payload is returned unchanged.
func InferPayload(v any) (Payload, error) {
	switch x := v.(type) {
	case nil:
		return Empty{}, nil
	case Payload:
		return x, nil
	case []byte:
		return Binary(x), nil
	case string:
		return NewPayload(KindText, x)
	}
	if isStructuredRoot(v) {
		return NewPayload(KindStructured, v)
	}
	return nil, ErrUnsupportedPayload.WithDetails("cannot infer a payload kind for %T", v)
}

// EncodePayload serializes p to the bytes stored in the record.
func EncodePayload(p Payload) ([]byte, error) {
	if p == nil {
		return nil, nil
	}

	switch x := p.(type) {
	case Empty:
		return nil, nil
	case Binary:
		return []byte(x), nil
	case Text:
		if !utf8.ValidString(string(x)) {
			return nil, ErrPayloadType.WithDetails("text payload is not valid UTF-8")
		}
		return []byte(x), nil
	case Structured:
		if x.raw == nil && !isStructuredRoot(x.Val) {
			return nil, ErrPayloadType.WithDetails("structured payload must be a JSON-compatible value, got %T", x.Val)
		}
		return x.Raw()
	case Custom:
		if x.Type < KindCustomMin || x.Type > KindCustomMax {
			return nil, ErrInvalidPayloadKind.WithDetails("custom kind %d is outside %d-%d", uint8(x.Type), uint8(KindCustomMin), uint8(KindCustomMax))
		}
		return x.Data, nil
	default:
		return nil, ErrUnsupportedPayload.WithDetails("unknown payload type %T", p)
	}
}

// DecodePayload reconstructs a payload of the given kind from its bytes.
// Unknown kinds decode as Custom so newer issuers remain readable.
func DecodePayload(kind PayloadKind, data []byte) (Payload, error) {
	switch kind {
	case KindEmpty:
		if len(data) != 0 {
			return nil, ErrDecode.WithDetails("empty payload carries %d bytes", len(data))
		}
		return Empty{}, nil
	case KindBinary:
		return Binary(data), nil
	case KindText:
		if !utf8.Valid(data) {
			return nil, ErrDecode.WithDetails("text payload is not valid UTF-8")
		}
		return Text(data), nil
	case KindStructured:
		s, err := structuredFromRaw(data)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		if kind >= kindLimit {
			return nil, ErrInvalidPayloadKind.WithDetails("kind %d does not fit in 4 bits", uint8(kind))
		}
		return Custom{Type: kind, Data: data}, nil
	}
}

// structuredFromRaw parses a single JSON document.
func structuredFromRaw(data []byte) (Structured, error) {
	if !utf8.Valid(data) {
		return Structured{}, ErrDecode.WithDetails("structured payload is not valid UTF-8")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return Structured{}, ErrDecode.WithDetails("structured payload").Wrap(err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return Structured{}, ErrDecode.WithDetails("structured payload has trailing data")
	}

	raw := make([]byte, len(data))
	copy(raw, data)
	return Structured{Val: v, raw: raw}, nil
}

// marshalJSON encodes v without HTML escaping and without a trailing newline.
func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, ErrPayloadType.WithDetails("structured payload").Wrap(err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

var (
	jsonNumberType    = reflect.TypeOf(json.Number(""))
	rawMessageType    = reflect.TypeOf(json.RawMessage(nil))
	jsonMarshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// isStructuredRoot reports whether v may be the top level of a structured
// payload. Strings and byte slices are excluded there because they have
// their own kinds; nil is excluded because it is Empty.
func isStructuredRoot(v any) bool {
	if v == nil {
		return false
	}
	if raw, ok := v.(json.RawMessage); ok {
		return json.Valid(raw)
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.String && rv.Type() != jsonNumberType {
		return false
	}
	return isJSONValue(rv, 0)
}

func implementsMarshaler(t reflect.Type) bool {
	if t.Implements(jsonMarshalerType) || t.Implements(textMarshalerType) {
		return true
	}
	pt := reflect.PointerTo(t)
	return pt.Implements(jsonMarshalerType) || pt.Implements(textMarshalerType)
}

// isJSONValue reports whether rv is a JSON-compatible value.
func isJSONValue(rv reflect.Value, depth int) bool {
	if depth > maxStructuredDepth {
		return false
	}
	if !rv.IsValid() {
		return true // nested null
	}

	switch rv.Type() {
	case jsonNumberType:
		return true
	case rawMessageType:
		return json.Valid(rv.Bytes())
	}
	if implementsMarshaler(rv.Type()) {
		return true
	}

	switch rv.Kind() {
	case reflect.Interface:
		if rv.IsNil() {
			return true
		}
		return isJSONValue(rv.Elem(), depth+1)
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return false
		}
		iter := rv.MapRange()
		for iter.Next() {
			if !isJSONValue(iter.Value(), depth+1) {
				return false
			}
		}
		return true
	case reflect.Pointer:
		if rv.IsNil() {
			return true
		}
		return isJSONValue(rv.Elem(), depth+1)
	case reflect.Struct:
		t := rv.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() && !f.Anonymous {
				continue
			}
			if f.Tag.Get("json") == "-" {
				continue
			}
			if !isJSONValue(rv.Field(i), depth+1) {
				return false
			}
		}
		return true
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return false
		}
		fallthrough
	case reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if !isJSONValue(rv.Index(i), depth+1) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
