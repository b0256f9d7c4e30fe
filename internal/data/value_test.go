package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNarrow(t *testing.T) {
	tests := []struct {
		name string
		typ  Type
		in   float64
		want Numeric
	}{
		{"byte in range", TypeByte, 100, Byte(100)},
		{"byte wraps", TypeByte, 200, Byte(-56)},
		{"short wraps", TypeShort, 40000, Short(-25536)},
		{"int wraps", TypeInt, 2147483648, Int(-2147483648)},
		{"long", TypeLong, 1 << 40, Long(1 << 40)},
		{"float", TypeFloat, 7, Float(7)},
		{"double", TypeDouble, -3, Double(-3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Narrow(tt.typ, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNarrow_NonNumeric(t *testing.T) {
	_, err := Narrow(TypeString, 1)
	assert.Error(t, err)
}

func TestParseNumericType(t *testing.T) {
	typ, err := ParseNumericType("short")
	require.NoError(t, err)
	assert.Equal(t, TypeShort, typ)

	_, err = ParseNumericType("compound")
	assert.Error(t, err)
}

func TestFormat(t *testing.T) {
	v := Compound{
		"b":    Byte(1),
		"name": String("cow"),
		"l":    List{Short(2), Long(3)},
		"f":    Float(1.5),
	}
	assert.Equal(t, `{b: 1b, f: 1.5f, l: [2s, 3L], name: "cow"}`, Format(v))
}

func TestCanonical_RoundTrip(t *testing.T) {
	v := Compound{
		"count":  Int(3),
		"big":    Long(9007199254740993),
		"scale":  Double(0.5),
		"ratio":  Float(0.25),
		"flag":   Byte(1),
		"small":  Short(-4),
		"text":   String("a<b>&c"),
		"nested": Compound{"items": List{Int(1), Int(2)}},
	}

	b, err := MarshalCanonical(v)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"a<b>&c"`, "HTML characters must not be escaped")
	assert.Contains(t, string(b), `{"long":"9007199254740993"}`)

	got, err := UnmarshalCanonical(b)
	require.NoError(t, err)
	assert.Equal(t, v, got)
}

func TestCanonical_Deterministic(t *testing.T) {
	a := Compound{"z": Int(1), "a": Int(2), "m": Int(3)}
	b := Compound{"m": Int(3), "z": Int(1), "a": Int(2)}

	ea, err := MarshalCanonical(a)
	require.NoError(t, err)
	eb, err := MarshalCanonical(b)
	require.NoError(t, err)
	assert.Equal(t, ea, eb)
	assert.Equal(t, `{"compound":{"a":{"int":2},"m":{"int":3},"z":{"int":1}}}`, string(ea))
}

func TestCanonical_NFC(t *testing.T) {
	// e + combining acute accent normalizes to the precomposed form.
	b, err := MarshalCanonical(String("e\u0301"))
	require.NoError(t, err)
	assert.Equal(t, "{\"string\":\"\u00e9\"}", string(b))
}

func TestFromAny(t *testing.T) {
	v, err := FromAny(map[string]any{
		"n":    42,
		"big":  int64(1) << 40,
		"f":    1.25,
		"ok":   true,
		"tags": []any{"a", "b"},
	})
	require.NoError(t, err)

	c := v.(Compound)
	assert.Equal(t, Int(42), c["n"])
	assert.Equal(t, Long(1<<40), c["big"])
	assert.Equal(t, Double(1.25), c["f"])
	assert.Equal(t, Byte(1), c["ok"])
	assert.Equal(t, List{String("a"), String("b")}, c["tags"])

	_, err = FromAny(map[string]any{"x": nil})
	assert.Error(t, err)
}

func TestMacroText(t *testing.T) {
	assert.Equal(t, "stone", MacroText(String("stone")))
	assert.Equal(t, "5", MacroText(Short(5)))
	assert.Equal(t, "1.5", MacroText(Double(1.5)))
}
