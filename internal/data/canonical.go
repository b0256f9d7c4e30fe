package data

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces the canonical persisted encoding of a value.
// Each value is a single-key JSON object naming its tag type:
//
//	{"int":3}  {"float":1.5}  {"long":"9007199254740993"}
//	{"list":[{"byte":1}]}  {"compound":{"a":{"string":"x"}}}
//
// Compound keys are sorted by UTF-16 code units, strings are NFC normalized
// and HTML characters are not escaped, so equal values always encode to
// identical bytes. Longs are quoted to survive JSON number precision.
// NaN and infinities are rejected.
func MarshalCanonical(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := marshalCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func marshalCanonical(buf *bytes.Buffer, v Value) error {
	if v == nil {
		return fmt.Errorf("nil value is not encodable")
	}

	buf.WriteString(`{"`)
	buf.WriteString(v.Type().String())
	buf.WriteString(`":`)

	switch val := v.(type) {
	case Byte, Short, Int:
		buf.WriteString(strconv.FormatInt(val.(Numeric).AsLong(), 10))
	case Long:
		buf.WriteString(`"` + strconv.FormatInt(int64(val), 10) + `"`)
	case Float:
		if err := writeFloat(buf, float64(val), 32); err != nil {
			return err
		}
	case Double:
		if err := writeFloat(buf, float64(val), 64); err != nil {
			return err
		}
	case String:
		s, err := marshalCanonicalString(string(val))
		if err != nil {
			return err
		}
		buf.Write(s)
	case List:
		buf.WriteByte('[')
		for i, e := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := marshalCanonical(buf, e); err != nil {
				return fmt.Errorf("list[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case Compound:
		buf.WriteByte('{')
		for i, k := range val.SortedKeys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := marshalCanonicalString(k)
			if err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := marshalCanonical(buf, val[k]); err != nil {
				return fmt.Errorf("compound[%q]: %w", k, err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported value type %T", v)
	}

	buf.WriteByte('}')
	return nil
}

func writeFloat(buf *bytes.Buffer, f float64, bits int) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("non-finite float %v is not encodable", f)
	}
	buf.WriteString(strconv.FormatFloat(f, 'g', -1, bits))
	return nil
}

// marshalCanonicalString NFC-normalizes s and encodes it without HTML
// escaping.
func marshalCanonicalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// UnmarshalCanonical decodes the encoding produced by MarshalCanonical.
func UnmarshalCanonical(b []byte) (Value, error) {
	var raw map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	if len(raw) != 1 {
		return nil, fmt.Errorf("decode value: expected exactly one type key, got %d", len(raw))
	}

	for typ, body := range raw {
		return decodeTyped(typ, body)
	}
	return nil, fmt.Errorf("decode value: unreachable")
}

func decodeTyped(typ string, body json.RawMessage) (Value, error) {
	switch typ {
	case "byte", "short", "int":
		n, err := strconv.ParseInt(string(body), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", typ, err)
		}
		switch typ {
		case "byte":
			return Byte(n), nil
		case "short":
			return Short(n), nil
		}
		return Int(n), nil
	case "long":
		var s string
		if err := json.Unmarshal(body, &s); err != nil {
			return nil, fmt.Errorf("decode long: %w", err)
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode long: %w", err)
		}
		return Long(n), nil
	case "float", "double":
		f, err := strconv.ParseFloat(string(body), 64)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", typ, err)
		}
		if typ == "float" {
			return Float(f), nil
		}
		return Double(f), nil
	case "string":
		var s string
		if err := json.Unmarshal(body, &s); err != nil {
			return nil, fmt.Errorf("decode string: %w", err)
		}
		return String(s), nil
	case "list":
		var elems []json.RawMessage
		if err := json.Unmarshal(body, &elems); err != nil {
			return nil, fmt.Errorf("decode list: %w", err)
		}
		l := make(List, len(elems))
		for i, e := range elems {
			v, err := UnmarshalCanonical(e)
			if err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
			l[i] = v
		}
		return l, nil
	case "compound":
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(body, &fields); err != nil {
			return nil, fmt.Errorf("decode compound: %w", err)
		}
		c := make(Compound, len(fields))
		for k, e := range fields {
			v, err := UnmarshalCanonical(e)
			if err != nil {
				return nil, fmt.Errorf("compound[%q]: %w", k, err)
			}
			c[k] = v
		}
		return c, nil
	default:
		return nil, fmt.Errorf("decode value: unknown type %q", typ)
	}
}
