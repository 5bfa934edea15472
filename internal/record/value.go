// Package record defines the normalized patient record produced by extraction.
package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	default:
		return "null"
	}
}

// Value is a field value: null, string, number or boolean.
// The zero Value is null.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
}

// Null returns the null value.
func Null() Value { return Value{} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number returns a numeric value. NaN and infinities become null.
func Number(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Value{kind: KindNumber, num: f}
}

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string payload.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Num returns the numeric payload.
func (v Value) Num() (float64, bool) { return v.num, v.kind == KindNumber }

// Boolean returns the boolean payload.
func (v Value) Boolean() (bool, bool) { return v.b, v.kind == KindBool }

// Text renders v for display and text search. Booleans render as Oui/Non,
// null renders empty.
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return FormatNumber(v.num)
	case KindBool:
		if v.b {
			return "Oui"
		}
		return "Non"
	default:
		return ""
	}
}

// IsBlank reports whether v is null or an empty string.
func (v Value) IsBlank() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return strings.TrimSpace(v.str) == ""
	default:
		return false
	}
}

// Truthy decodes v as a yes/no answer. Composite strings use their choice
// segment, so "Non | détail" is false.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.num != 0
	case KindString:
		c := ParseComposite(v.str)
		if c.HasChoice {
			return c.Choice
		}
		return strings.TrimSpace(v.str) != ""
	default:
		return false
	}
}

// Interface returns v as nil, string, float64 or bool.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	default:
		return nil
	}
}

// FromInterface converts a decoded JSON scalar into a Value.
func FromInterface(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case int:
		return Number(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Null(), fmt.Errorf("number %q: %w", t, err)
		}
		return Number(f), nil
	default:
		return Null(), fmt.Errorf("unsupported value type %T", x)
	}
}

// Equal reports whether two values hold the same variant and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	default:
		return true
	}
}

// GoString implements fmt.GoStringer for readable test failures.
func (v Value) GoString() string {
	switch v.kind {
	case KindString:
		return fmt.Sprintf("record.String(%q)", v.str)
	case KindNumber:
		return fmt.Sprintf("record.Number(%s)", FormatNumber(v.num))
	case KindBool:
		return fmt.Sprintf("record.Bool(%t)", v.b)
	default:
		return "record.Null()"
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return marshalString(v.str)
	case KindNumber:
		return []byte(FormatNumber(v.num)), nil
	case KindBool:
		return []byte(strconv.FormatBool(v.b)), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler. Objects and arrays are rejected.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return err
	}
	out, err := FromInterface(x)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

// MarshalYAML implements the goccy/go-yaml InterfaceMarshaler.
func (v Value) MarshalYAML() (any, error) {
	return v.Interface(), nil
}

// FormatNumber renders f in its shortest form without exponent for
// ordinary clinical magnitudes.
func FormatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func marshalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
