package data

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Parse reads a value in the textual tag notation Format writes:
//
//	1b 2s 3 4L 1.5f 2.5d 2.5 true "quoted" 'quoted' bare
//	[1, 2, 3]  {name: "x", nested: {n: 1b}}
//
// Unsuffixed integers are Int, unsuffixed decimals Double. Unquoted words
// that are not numbers or booleans are strings.
func Parse(s string) (Value, error) {
	p := &parser{src: s}
	p.skipSpace()
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.errorf("trailing data")
	}
	return v, nil
}

// ParseCompound is Parse for input that must be a compound.
func ParseCompound(s string) (Compound, error) {
	v, err := Parse(s)
	if err != nil {
		return nil, err
	}
	c, ok := v.(Compound)
	if !ok {
		return nil, fmt.Errorf("expected compound, got %s", v.Type())
	}
	return c, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("tag at %d: %s", p.pos, fmt.Sprintf(format, args...))
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t' || p.src[p.pos] == '\n') {
		p.pos++
	}
}

func (p *parser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) expect(c byte) error {
	p.skipSpace()
	if p.peek() != c {
		return p.errorf("expected %q", c)
	}
	p.pos++
	return nil
}

func (p *parser) value() (Value, error) {
	switch p.peek() {
	case '{':
		return p.compound()
	case '[':
		return p.list()
	case '"', '\'':
		s, err := p.quoted()
		if err != nil {
			return nil, err
		}
		return String(s), nil
	case 0:
		return nil, p.errorf("expected value")
	}
	word := p.word()
	if word == "" {
		return nil, p.errorf("expected value")
	}
	return scalar(word), nil
}

func (p *parser) compound() (Value, error) {
	p.pos++ // {
	c := Compound{}
	p.skipSpace()
	if p.peek() == '}' {
		p.pos++
		return c, nil
	}
	for {
		p.skipSpace()
		var key string
		if q := p.peek(); q == '"' || q == '\'' {
			k, err := p.quoted()
			if err != nil {
				return nil, err
			}
			key = k
		} else {
			key = p.word()
		}
		if key == "" {
			return nil, p.errorf("expected key")
		}
		if err := p.expect(':'); err != nil {
			return nil, err
		}
		p.skipSpace()
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		c[key] = v
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case '}':
			p.pos++
			return c, nil
		default:
			return nil, p.errorf("expected ',' or '}'")
		}
	}
}

func (p *parser) list() (Value, error) {
	p.pos++ // [
	l := List{}
	p.skipSpace()
	if p.peek() == ']' {
		p.pos++
		return l, nil
	}
	for {
		p.skipSpace()
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		if len(l) > 0 && l[0].Type() != v.Type() {
			return nil, p.errorf("list mixes %s and %s", l[0].Type(), v.Type())
		}
		l = append(l, v)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case ']':
			p.pos++
			return l, nil
		default:
			return nil, p.errorf("expected ',' or ']'")
		}
	}
}

func (p *parser) quoted() (string, error) {
	q := p.src[p.pos]
	p.pos++
	var sb strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '\\' && p.pos+1 < len(p.src):
			sb.WriteByte(p.src[p.pos+1])
			p.pos += 2
		case c == q:
			p.pos++
			return sb.String(), nil
		default:
			sb.WriteByte(c)
			p.pos++
		}
	}
	return "", p.errorf("unterminated string")
}

func isWordByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
		c == '_' || c == '-' || c == '.' || c == '+'
}

func (p *parser) word() string {
	start := p.pos
	for p.pos < len(p.src) && isWordByte(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func scalar(w string) Value {
	switch w {
	case "true":
		return Byte(1)
	case "false":
		return Byte(0)
	}
	body, suffix := w[:len(w)-1], w[len(w)-1]
	switch suffix {
	case 'b', 'B':
		if n, err := strconv.ParseInt(body, 10, 8); err == nil {
			return Byte(n)
		}
	case 's', 'S':
		if n, err := strconv.ParseInt(body, 10, 16); err == nil {
			return Short(n)
		}
	case 'l', 'L':
		if n, err := strconv.ParseInt(body, 10, 64); err == nil {
			return Long(n)
		}
	case 'f', 'F':
		if f, err := strconv.ParseFloat(body, 32); err == nil && !math.IsInf(f, 0) {
			return Float(f)
		}
	case 'd', 'D':
		if f, err := strconv.ParseFloat(body, 64); err == nil && !math.IsInf(f, 0) {
			return Double(f)
		}
	}
	if n, err := strconv.ParseInt(w, 10, 32); err == nil {
		return Int(n)
	}
	if strings.ContainsAny(w, ".eE") {
		if f, err := strconv.ParseFloat(w, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			return Double(f)
		}
	}
	return String(w)
}
