package data

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode/utf16"
)

// Value is a sealed interface over the structured-data tag types.
// Only Byte, Short, Int, Long, Float, Double, String, List and Compound
// implement it.
type Value interface {
	Type() Type
	dataValue()
}

// Numeric is implemented by the six numeric tag types.
type Numeric interface {
	Value
	AsFloat() float64
	AsLong() int64
}

// Byte is an 8-bit signed integer tag.
type Byte int8

// Short is a 16-bit signed integer tag.
type Short int16

// Int is a 32-bit signed integer tag.
type Int int32

// Long is a 64-bit signed integer tag.
type Long int64

// Float is a 32-bit floating point tag.
type Float float32

// Double is a 64-bit floating point tag.
type Double float64

// String is a text tag.
type String string

// List is an ordered sequence of tags.
type List []Value

// Compound maps names to tags. Use SortedKeys for deterministic iteration.
type Compound map[string]Value

func (Byte) dataValue()     {}
func (Short) dataValue()    {}
func (Int) dataValue()      {}
func (Long) dataValue()     {}
func (Float) dataValue()    {}
func (Double) dataValue()   {}
func (String) dataValue()   {}
func (List) dataValue()     {}
func (Compound) dataValue() {}

func (Byte) Type() Type     { return TypeByte }
func (Short) Type() Type    { return TypeShort }
func (Int) Type() Type      { return TypeInt }
func (Long) Type() Type     { return TypeLong }
func (Float) Type() Type    { return TypeFloat }
func (Double) Type() Type   { return TypeDouble }
func (String) Type() Type   { return TypeString }
func (List) Type() Type     { return TypeList }
func (Compound) Type() Type { return TypeCompound }

func (v Byte) AsFloat() float64   { return float64(v) }
func (v Short) AsFloat() float64  { return float64(v) }
func (v Int) AsFloat() float64    { return float64(v) }
func (v Long) AsFloat() float64   { return float64(v) }
func (v Float) AsFloat() float64  { return float64(v) }
func (v Double) AsFloat() float64 { return float64(v) }

func (v Byte) AsLong() int64   { return int64(v) }
func (v Short) AsLong() int64  { return int64(v) }
func (v Int) AsLong() int64    { return int64(v) }
func (v Long) AsLong() int64   { return int64(v) }
func (v Float) AsLong() int64  { return wrapLong(math.Floor(float64(v))) }
func (v Double) AsLong() int64 { return wrapLong(math.Floor(float64(v))) }

// Type identifies a tag type.
type Type uint8

const (
	TypeByte Type = iota + 1
	TypeShort
	TypeInt
	TypeLong
	TypeFloat
	TypeDouble
	TypeString
	TypeList
	TypeCompound
)

var typeNames = map[Type]string{
	TypeByte:     "byte",
	TypeShort:    "short",
	TypeInt:      "int",
	TypeLong:     "long",
	TypeFloat:    "float",
	TypeDouble:   "double",
	TypeString:   "string",
	TypeList:     "list",
	TypeCompound: "compound",
}

func (t Type) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// IsNumeric reports whether t is one of the numeric tag types.
func (t Type) IsNumeric() bool {
	return t >= TypeByte && t <= TypeDouble
}

// ParseNumericType maps a store type name ("byte", "short", "int", "long",
// "float", "double") to its Type.
func ParseNumericType(name string) (Type, error) {
	for t, n := range typeNames {
		if n == name && t.IsNumeric() {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown numeric type %q", name)
}

// Narrow converts an already floored value to the numeric tag type t using
// two's complement wrapping for integer widths. There is no saturation.
func Narrow(t Type, v float64) (Numeric, error) {
	switch t {
	case TypeByte:
		return Byte(int8(wrapLong(v))), nil
	case TypeShort:
		return Short(int16(wrapLong(v))), nil
	case TypeInt:
		return Int(int32(wrapLong(v))), nil
	case TypeLong:
		return Long(wrapLong(v)), nil
	case TypeFloat:
		return Float(float32(v)), nil
	case TypeDouble:
		return Double(v), nil
	default:
		return nil, fmt.Errorf("cannot narrow to non-numeric type %s", t)
	}
}

// wrapLong converts an integral float to int64, wrapping modulo 2^64 when
// the value is outside the int64 range.
func wrapLong(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	const twoTo63 = 9223372036854775808.0
	if v >= -twoTo63 && v < twoTo63 {
		return int64(v)
	}
	m := math.Mod(v, 2*twoTo63)
	if m >= twoTo63 {
		m -= 2 * twoTo63
	} else if m < -twoTo63 {
		m += 2 * twoTo63
	}
	return int64(m)
}

// SortedKeys returns keys in UTF-16 code unit order so that renderings and
// encodings are identical across runs.
func (c Compound) SortedKeys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysUTF16)
	return keys
}

// Clone deep-copies the compound.
func (c Compound) Clone() Compound {
	out := make(Compound, len(c))
	for k, v := range c {
		out[k] = Clone(v)
	}
	return out
}

// Clone deep-copies any value. Scalars are returned as is.
func Clone(v Value) Value {
	switch val := v.(type) {
	case Compound:
		return val.Clone()
	case List:
		out := make(List, len(val))
		for i, e := range val {
			out[i] = Clone(e)
		}
		return out
	default:
		return v
	}
}

func compareKeysUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	return len(a16) - len(b16)
}

// Format renders v in the compact textual tag notation used in command
// feedback: 1b, 2s, 3, 4L, 1.5f, 2.5d, "text", [..], {k: v}.
func Format(v Value) string {
	var sb strings.Builder
	format(&sb, v)
	return sb.String()
}

func format(sb *strings.Builder, v Value) {
	switch val := v.(type) {
	case Byte:
		sb.WriteString(strconv.Itoa(int(val)) + "b")
	case Short:
		sb.WriteString(strconv.Itoa(int(val)) + "s")
	case Int:
		sb.WriteString(strconv.Itoa(int(val)))
	case Long:
		sb.WriteString(strconv.FormatInt(int64(val), 10) + "L")
	case Float:
		sb.WriteString(strconv.FormatFloat(float64(val), 'g', -1, 32) + "f")
	case Double:
		sb.WriteString(strconv.FormatFloat(float64(val), 'g', -1, 64) + "d")
	case String:
		sb.WriteString(strconv.Quote(string(val)))
	case List:
		sb.WriteByte('[')
		for i, e := range val {
			if i > 0 {
				sb.WriteString(", ")
			}
			format(sb, e)
		}
		sb.WriteByte(']')
	case Compound:
		sb.WriteByte('{')
		for i, k := range val.SortedKeys() {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(k)
			sb.WriteString(": ")
			format(sb, val[k])
		}
		sb.WriteByte('}')
	case nil:
		sb.WriteString("null")
	}
}
