package entities

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValueKind enumerates the closed set of scalar shapes that may cross the bridge
// as statement parameters or column values.
type ValueKind uint8

const (
	ValueNull ValueKind = iota
	ValueBool
	ValueInt
	ValueFloat
	ValueText
	// ValueBlob is a binary column. It travels as base64 text because the wire
	// format has no native binary type.
	ValueBlob
)

// String returns the lowercase kind name.
func (k ValueKind) String() string {
	switch k {
	case ValueNull:
		return "null"
	case ValueBool:
		return "boolean"
	case ValueInt:
		return "integer"
	case ValueFloat:
		return "float"
	case ValueText:
		return "string"
	case ValueBlob:
		return "binary"
	default:
		return fmt.Sprintf("ValueKind(%d)", uint8(k))
	}
}

// Value is a tagged scalar. The zero Value is null.
type Value struct {
	text string
	i    int64
	f    float64
	kind ValueKind
	b    bool
}

// Null returns the null Value.
func Null() Value { return Value{} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: ValueBool, b: b} }

// Int wraps a 64-bit integer.
func Int(i int64) Value { return Value{kind: ValueInt, i: i} }

// Float wraps a float64.
func Float(f float64) Value { return Value{kind: ValueFloat, f: f} }

// Text wraps a string.
func Text(s string) Value { return Value{kind: ValueText, text: s} }

// Blob wraps binary data as its base64 text form.
func Blob(data []byte) Value {
	return Value{kind: ValueBlob, text: base64.StdEncoding.EncodeToString(data)}
}

// Kind reports the variant held by v.
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == ValueNull }

// AsBool returns the boolean payload.
func (v Value) AsBool() bool { return v.b }

// AsInt returns the integer payload.
func (v Value) AsInt() int64 { return v.i }

// AsFloat returns the float payload. Integers are widened.
func (v Value) AsFloat() float64 {
	if v.kind == ValueInt {
		return float64(v.i)
	}
	return v.f
}

// AsText returns the string payload. For blobs this is the base64 text.
func (v Value) AsText() string { return v.text }

// Any returns the Go representation used by callers that do not care about the tag.
func (v Value) Any() any {
	switch v.kind {
	case ValueNull:
		return nil
	case ValueBool:
		return v.b
	case ValueInt:
		return v.i
	case ValueFloat:
		return v.f
	case ValueText, ValueBlob:
		return v.text
	default:
		panic(fmt.Sprintf("entities: unknown value kind %d", v.kind))
	}
}

// Equal reports whether two values hold the same variant and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case ValueNull:
		return true
	case ValueBool:
		return v.b == o.b
	case ValueInt:
		return v.i == o.i
	case ValueFloat:
		return v.f == o.f
	case ValueText, ValueBlob:
		return v.text == o.text
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (v Value) String() string {
	switch v.kind {
	case ValueNull:
		return "null"
	default:
		return fmt.Sprintf("%v", v.Any())
	}
}

// MarshalJSON encodes the value as a plain JSON scalar. Floats always carry a
// fractional part or exponent so they decode back as floats.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ValueNull:
		return []byte("null"), nil
	case ValueBool:
		return strconv.AppendBool(nil, v.b), nil
	case ValueInt:
		return strconv.AppendInt(nil, v.i, 10), nil
	case ValueFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return nil, fmt.Errorf("value: float %v is not representable", v.f)
		}
		s := strconv.FormatFloat(v.f, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEn") {
			s += ".0"
		}
		return []byte(s), nil
	case ValueText, ValueBlob:
		return json.Marshal(v.text)
	default:
		return nil, fmt.Errorf("value: unknown kind %d", v.kind)
	}
}

// UnmarshalJSON decodes a JSON scalar. Arrays and objects are rejected: the
// store only understands the closed scalar set.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("value: empty input")
	}

	switch data[0] {
	case 'n':
		*v = Null()
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return fmt.Errorf("value: %w", err)
		}
		*v = Bool(b)
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("value: %w", err)
		}
		*v = Text(s)
		return nil
	case '[', '{':
		return fmt.Errorf("value: composite values are not supported as parameters")
	default:
		num := json.Number(string(data))
		if i, err := num.Int64(); err == nil {
			*v = Int(i)
			return nil
		}
		f, err := num.Float64()
		if err != nil {
			return fmt.Errorf("value: invalid number %q", string(data))
		}
		*v = Float(f)
		return nil
	}
}
