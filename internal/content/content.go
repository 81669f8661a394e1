// Package content models translatable content and raw provider payloads as a
// tagged union: a value is either plain Text or a Structured JSON object.
//
// The same type is used on both sides of a translation: the source content a
// caller submits (a title string, a contact block, a list of services) and the
// payload a provider returns. Callers switch on Kind() instead of probing with
// type assertions, so every code path handles both shapes explicitly.
package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// Kind discriminates the two shapes a Value can take.
type Kind uint8

const (
	// KindInvalid is the zero Kind (an uninitialized Value).
	KindInvalid Kind = iota
	// KindText is a plain string.
	KindText
	// KindStructured is a JSON object (possibly nested).
	KindStructured
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindStructured:
		return "structured"
	default:
		return "invalid"
	}
}

// ErrUnsupportedJSON is returned when decoding JSON that is neither a string
// nor an object (arrays, numbers, booleans).
var ErrUnsupportedJSON = errors.New("content must be a JSON string or object")

// ErrTrailingData is returned when a JSON value is followed by anything but
// whitespace.
var ErrTrailingData = errors.New("unexpected data after JSON value")

// Value is either Text(string) or Structured(map[string]any).
type Value struct {
	kind   Kind
	text   string
	fields map[string]any
}

// Text returns a text-shaped Value.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Structured returns a map-shaped Value. A nil map is treated as empty.
func Structured(m map[string]any) Value {
	if m == nil {
		m = map[string]any{}
	}
	return Value{kind: KindStructured, fields: m}
}

// Kind reports which variant v holds.
func (v Value) Kind() Kind { return v.kind }

// IsText reports whether v is text-shaped.
func (v Value) IsText() bool { return v.kind == KindText }

// IsStructured reports whether v is map-shaped.
func (v Value) IsStructured() bool { return v.kind == KindStructured }

// IsZero reports whether v was never initialized.
func (v Value) IsZero() bool { return v.kind == KindInvalid }

// Text returns the string held by a text-shaped value ("" otherwise).
func (v Value) Text() string { return v.text }

// Fields returns the map held by a structured value (nil otherwise).
func (v Value) Fields() map[string]any { return v.fields }

// Canonical returns a deterministic JSON serialization: a JSON string for text
// values and an object with lexicographically sorted keys for structured ones.
func (v Value) Canonical() ([]byte, error) {
	switch v.kind {
	case KindText:
		return marshalNoEscape(v.text)
	case KindStructured:
		return marshalNoEscape(v.fields)
	default:
		return []byte("null"), nil
	}
}

// String renders the value for prompts and history records: the raw string for
// text values and canonical JSON for structured ones.
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindStructured:
		b, err := v.Canonical()
		if err != nil {
			return ""
		}
		return string(b)
	default:
		return ""
	}
}

// IsEmpty reports whether the value carries nothing translatable: blank text,
// or a map without any non-blank leaf string.
func (v Value) IsEmpty() bool {
	switch v.kind {
	case KindText:
		return strings.TrimSpace(v.text) == ""
	case KindStructured:
		return len(v.Strings()) == 0
	default:
		return true
	}
}

// Strings returns every non-blank leaf string, walking nested maps and lists.
// For text values it returns the text itself when non-blank.
func (v Value) Strings() []string {
	var out []string
	switch v.kind {
	case KindText:
		if strings.TrimSpace(v.text) != "" {
			out = append(out, v.text)
		}
	case KindStructured:
		walkStrings(v.fields, func(s string) { out = append(out, s) })
	}
	return out
}

// Leaves returns every non-nil leaf value (strings, numbers, booleans) of a
// structured value, walking nested maps and lists.
func (v Value) Leaves() []any {
	if v.kind != KindStructured {
		return nil
	}
	var out []any
	walkLeaves(v.fields, func(x any) { out = append(out, x) })
	return out
}

// MarshalJSON encodes text values as JSON strings and structured values as
// JSON objects. The zero Value encodes as null.
func (v Value) MarshalJSON() ([]byte, error) {
	return v.Canonical()
}

// UnmarshalJSON accepts a JSON string, a JSON object, or null.
func (v *Value) UnmarshalJSON(b []byte) error {
	parsed, err := FromJSON(b)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// FromJSON decodes raw JSON into a Value. Numbers are kept as json.Number so
// that re-encoding preserves their exact textual form.
func FromJSON(b []byte) (Value, error) {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Value{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Value{}, ErrTrailingData
	}
	switch t := raw.(type) {
	case string:
		return Text(t), nil
	case map[string]any:
		return Structured(t), nil
	default:
		return Value{}, ErrUnsupportedJSON
	}
}

func walkStrings(x any, fn func(string)) {
	switch t := x.(type) {
	case string:
		if strings.TrimSpace(t) != "" {
			fn(t)
		}
	case map[string]any:
		for _, val := range t {
			walkStrings(val, fn)
		}
	case []any:
		for _, val := range t {
			walkStrings(val, fn)
		}
	}
}

func walkLeaves(x any, fn func(any)) {
	switch t := x.(type) {
	case nil:
	case map[string]any:
		for _, val := range t {
			walkLeaves(val, fn)
		}
	case []any:
		for _, val := range t {
			walkLeaves(val, fn)
		}
	default:
		fn(t)
	}
}

// marshalNoEscape is json.Marshal without HTML escaping, so URLs containing
// '&' or '<' survive verbatim in prompts and cache keys.
func marshalNoEscape(x any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(x); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
