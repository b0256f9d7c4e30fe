package datapack

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/chainexec/internal/data"
	"github.com/roach88/chainexec/internal/geom"
	"github.com/roach88/chainexec/internal/world"
)

// SyntaxError is a command line that does not parse.
type SyntaxError struct {
	Input   string
	Pos     int
	Message string
}

func (e *SyntaxError) Error() string {
	pos := min(max(e.Pos, 0), len(e.Input))
	start := max(pos-10, 0)
	prefix := ""
	if start > 0 {
		prefix = "..."
	}
	return fmt.Sprintf("%s at position %d: %s%s<--[HERE]", e.Message, pos, prefix, e.Input[start:pos])
}

type token struct {
	text string
	pos  int
}

// reader walks the words of one command line. Brackets, braces and quotes
// group, so "@e[type=cow, tag=a]" and "{a: 1, b: 2}" are single words. A
// quote only opens a group at the start of a word or inside brackets.
type reader struct {
	input string
	toks  []token
	i     int
}

func newReader(input string) (*reader, error) {
	r := &reader{input: input}
	i := 0
	for i < len(input) {
		if input[i] == ' ' || input[i] == '\t' {
			i++
			continue
		}
		start := i
		depth := 0
		var quote byte
	scan:
		for i < len(input) {
			ch := input[i]
			switch {
			case quote != 0:
				if ch == '\\' {
					i++
				} else if ch == quote {
					quote = 0
				}
			case (ch == '"' || ch == '\'') && (depth > 0 || i == start):
				quote = ch
			case ch == '[' || ch == '{':
				depth++
			case ch == ']' || ch == '}':
				depth--
			case (ch == ' ' || ch == '\t') && depth <= 0:
				break scan
			}
			i++
		}
		if quote != 0 || depth > 0 {
			return nil, &SyntaxError{Input: input, Pos: start, Message: "Unterminated group"}
		}
		r.toks = append(r.toks, token{text: input[start:min(i, len(input))], pos: start})
	}
	return r, nil
}

func (r *reader) done() bool { return r.i >= len(r.toks) }

func (r *reader) pos() int {
	if r.done() {
		return len(r.input)
	}
	return r.toks[r.i].pos
}

func (r *reader) errorf(format string, args ...any) error {
	return &SyntaxError{Input: r.input, Pos: r.pos(), Message: fmt.Sprintf(format, args...)}
}

func (r *reader) peek() string {
	if r.done() {
		return ""
	}
	return r.toks[r.i].text
}

func (r *reader) next() string {
	if r.done() {
		return ""
	}
	t := r.toks[r.i].text
	r.i++
	return t
}

// word consumes a required argument.
func (r *reader) word(what string) (string, error) {
	if r.done() {
		return "", r.errorf("Expected %s", what)
	}
	return r.next(), nil
}

// literal consumes one of the given keywords.
func (r *reader) literal(options ...string) (string, error) {
	w := r.peek()
	for _, o := range options {
		if w == o {
			r.i++
			return w, nil
		}
	}
	return "", r.errorf("Expected %s", strings.Join(options, " or "))
}

// rest consumes everything left as raw text.
func (r *reader) rest() string {
	if r.done() {
		return ""
	}
	s := r.input[r.toks[r.i].pos:]
	r.i = len(r.toks)
	return s
}

// end fails when words are left over.
func (r *reader) end() error {
	if !r.done() {
		return r.errorf("Incorrect argument for command")
	}
	return nil
}

func (r *reader) integer(what string) (int, error) {
	pos := r.pos()
	w, err := r.word(what)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(w)
	if err != nil {
		return 0, &SyntaxError{Input: r.input, Pos: pos, Message: fmt.Sprintf("Invalid integer '%s'", w)}
	}
	return n, nil
}

func (r *reader) float(what string) (float64, error) {
	pos := r.pos()
	w, err := r.word(what)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(w, 64)
	if err != nil {
		return 0, &SyntaxError{Input: r.input, Pos: pos, Message: fmt.Sprintf("Invalid decimal '%s'", w)}
	}
	return f, nil
}

// optionalFloat reads a decimal if one follows, else returns def.
func (r *reader) optionalFloat(def float64) (float64, error) {
	if r.done() {
		return def, nil
	}
	return r.float("a decimal")
}

func (r *reader) wrap(pos int, err error) error {
	return &SyntaxError{Input: r.input, Pos: pos, Message: err.Error()}
}

func (r *reader) coordinates() (geom.Coordinates, error) {
	pos := r.pos()
	if len(r.toks)-r.i < 3 {
		return geom.Coordinates{}, r.errorf("Incomplete (expected 3 coordinates)")
	}
	text := r.next() + " " + r.next() + " " + r.next()
	c, err := geom.ParseCoordinates(text)
	if err != nil {
		return geom.Coordinates{}, r.wrap(pos, err)
	}
	return c, nil
}

func (r *reader) rotation() (geom.RotationArg, error) {
	pos := r.pos()
	if len(r.toks)-r.i < 2 {
		return geom.RotationArg{}, r.errorf("Incomplete (expected 2 coordinates)")
	}
	rot, err := geom.ParseRotation(r.next() + " " + r.next())
	if err != nil {
		return geom.RotationArg{}, r.wrap(pos, err)
	}
	return rot, nil
}

func (r *reader) selector() (*world.Selector, error) {
	pos := r.pos()
	w, err := r.word("an entity")
	if err != nil {
		return nil, err
	}
	sel, err := world.ParseSelector(w)
	if err != nil {
		return nil, r.wrap(pos, err)
	}
	return sel, nil
}

func (r *reader) path() (data.Path, error) {
	pos := r.pos()
	w, err := r.word("a data path")
	if err != nil {
		return data.Path{}, err
	}
	p, err := data.ParsePath(w)
	if err != nil {
		return data.Path{}, r.wrap(pos, err)
	}
	return p, nil
}

func (r *reader) tag() (data.Value, error) {
	pos := r.pos()
	w, err := r.word("a value")
	if err != nil {
		return nil, err
	}
	v, err := data.Parse(w)
	if err != nil {
		return nil, r.wrap(pos, err)
	}
	return v, nil
}

func (r *reader) compound() (data.Compound, error) {
	pos := r.pos()
	w, err := r.word("a compound")
	if err != nil {
		return nil, err
	}
	c, err := data.ParseCompound(w)
	if err != nil {
		return nil, r.wrap(pos, err)
	}
	return c, nil
}

func (r *reader) intRange() (geom.IntRange, error) {
	pos := r.pos()
	w, err := r.word("a range")
	if err != nil {
		return geom.IntRange{}, err
	}
	rg, err := geom.ParseIntRange(w)
	if err != nil {
		return geom.IntRange{}, r.wrap(pos, err)
	}
	return rg, nil
}

func (r *reader) floatRange() (geom.FloatRange, error) {
	pos := r.pos()
	w, err := r.word("a range")
	if err != nil {
		return geom.FloatRange{}, err
	}
	rg, err := geom.ParseFloatRange(w)
	if err != nil {
		return geom.FloatRange{}, r.wrap(pos, err)
	}
	return rg, nil
}

// id reads a resource location, defaulting the namespace to minecraft.
func (r *reader) id(what string) (string, error) {
	w, err := r.word(what)
	if err != nil {
		return "", err
	}
	return Namespaced(w), nil
}

// Namespaced adds the minecraft namespace to ids that have none.
func Namespaced(id string) string {
	if strings.HasPrefix(id, "#") {
		return "#" + Namespaced(id[1:])
	}
	if strings.Contains(id, ":") {
		return id
	}
	return "minecraft:" + id
}

// isCoordinate reports whether w starts a coordinate triple.
func isCoordinate(w string) bool {
	if w == "" {
		return false
	}
	switch c := w[0]; {
	case c == '~' || c == '^' || c == '-' || c == '.' || c == '+':
		return true
	case c >= '0' && c <= '9':
		return true
	}
	return false
}
