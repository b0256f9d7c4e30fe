package data

import (
	"fmt"
	"math"
)

// FromAny converts decoded YAML/CUE/JSON values into tags.
// Integers become Int when they fit 32 bits and Long otherwise; floats
// become Double; booleans become Byte 1/0 (there is no boolean tag).
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null has no tag representation")
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case bool:
		if val {
			return Byte(1), nil
		}
		return Byte(0), nil
	case int:
		return fromInt(int64(val)), nil
	case int64:
		return fromInt(val), nil
	case int32:
		return Int(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, fmt.Errorf("integer %d overflows long", val)
		}
		return fromInt(int64(val)), nil
	case float64:
		return Double(val), nil
	case float32:
		return Float(val), nil
	case []any:
		l := make(List, len(val))
		for i, e := range val {
			tv, err := FromAny(e)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			l[i] = tv
		}
		return l, nil
	case map[string]any:
		c := make(Compound, len(val))
		for k, e := range val {
			tv, err := FromAny(e)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			c[k] = tv
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}

// CompoundFromMap is FromAny for a top-level map.
func CompoundFromMap(m map[string]any) (Compound, error) {
	if m == nil {
		return Compound{}, nil
	}
	v, err := FromAny(m)
	if err != nil {
		return nil, err
	}
	return v.(Compound), nil
}

func fromInt(n int64) Value {
	if n >= math.MinInt32 && n <= math.MaxInt32 {
		return Int(n)
	}
	return Long(n)
}

// MacroText renders a tag the way it is spliced into a macro line: strings
// are inserted raw, numbers without type suffix, everything else in tag
// notation.
func MacroText(v Value) string {
	switch val := v.(type) {
	case String:
		return string(val)
	case Byte, Short, Int, Long:
		return fmt.Sprintf("%d", val.(Numeric).AsLong())
	case Float, Double:
		return fmt.Sprintf("%g", val.(Numeric).AsFloat())
	default:
		return Format(v)
	}
}
