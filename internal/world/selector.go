package world

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/chainexec/internal/engine"
	"github.com/roach88/chainexec/internal/geom"
)

// SortOrder orders selected entities.
type SortOrder string

const (
	SortArbitrary SortOrder = "arbitrary"
	SortNearest   SortOrder = "nearest"
	SortFurthest  SortOrder = "furthest"
	SortRandom    SortOrder = "random"
)

type filter struct {
	value  string
	negate bool
}

func (f filter) match(v string) bool { return (f.value == v) != f.negate }

// Selector is a parsed entity selector: "@s", "@e[type=cow,limit=2]", a
// player name or a UUID.
type Selector struct {
	raw     string
	kind    byte // 's', 'e', 'a', 'p', 'r'; 0 for a literal
	literal string

	types    []filter
	names    []filter
	tags     []filter
	distance *geom.FloatRange
	scores   map[string]geom.IntRange
	limit    int
	sort     SortOrder
}

// ParseSelector parses a selector.
func ParseSelector(s string) (*Selector, error) {
	if s == "" {
		return nil, fmt.Errorf("empty selector")
	}
	sel := &Selector{raw: s}
	if s[0] != '@' {
		if strings.ContainsAny(s, " []{}=,") {
			return nil, fmt.Errorf("selector %q: invalid name", s)
		}
		sel.literal = s
		return sel, nil
	}
	if len(s) < 2 || !strings.ContainsRune("seapr", rune(s[1])) {
		return nil, fmt.Errorf("selector %q: unknown type", s)
	}
	sel.kind = s[1]
	switch sel.kind {
	case 'p':
		sel.limit, sel.sort = 1, SortNearest
	case 'r':
		sel.limit, sel.sort = 1, SortRandom
	case 'a', 'e':
		sel.sort = SortArbitrary
	}

	rest := s[2:]
	if rest == "" {
		return sel, nil
	}
	if rest[0] != '[' || rest[len(rest)-1] != ']' {
		return nil, fmt.Errorf("selector %q: expected [arguments]", s)
	}
	args, err := splitArgs(rest[1 : len(rest)-1])
	if err != nil {
		return nil, fmt.Errorf("selector %q: %w", s, err)
	}
	for _, arg := range args {
		if err := sel.apply(arg); err != nil {
			return nil, fmt.Errorf("selector %q: %w", s, err)
		}
	}
	return sel, nil
}

// MustParseSelector is ParseSelector for literals known to be valid.
func MustParseSelector(s string) *Selector {
	sel, err := ParseSelector(s)
	if err != nil {
		panic(err)
	}
	return sel
}

// splitArgs splits "a=1,b={x=1,y=2}" on top-level commas.
func splitArgs(s string) ([]string, error) {
	var out []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced }")
			}
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced {")
	}
	if tail := strings.TrimSpace(s[start:]); tail != "" || len(out) > 0 {
		out = append(out, tail)
	}
	return out, nil
}

func (sel *Selector) apply(arg string) error {
	key, value, ok := strings.Cut(arg, "=")
	if !ok {
		return fmt.Errorf("argument %q: expected key=value", arg)
	}
	key, value = strings.TrimSpace(key), strings.TrimSpace(value)
	negate := strings.HasPrefix(value, "!")
	plain := strings.TrimPrefix(value, "!")

	switch key {
	case "type":
		sel.types = append(sel.types, filter{namespaced(plain), negate})
	case "name":
		sel.names = append(sel.names, filter{plain, negate})
	case "tag":
		sel.tags = append(sel.tags, filter{plain, negate})
	case "distance":
		r, err := geom.ParseFloatRange(value)
		if err != nil {
			return err
		}
		if (r.Min != nil && *r.Min < 0) || (r.Max != nil && *r.Max < 0) {
			return fmt.Errorf("distance cannot be negative")
		}
		sel.distance = &r
	case "limit":
		if sel.kind == 's' {
			return fmt.Errorf("limit is not allowed with @s")
		}
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("limit %q: must be a positive integer", value)
		}
		sel.limit = n
	case "sort":
		if sel.kind == 's' {
			return fmt.Errorf("sort is not allowed with @s")
		}
		o := SortOrder(value)
		if !slices.Contains([]SortOrder{SortArbitrary, SortNearest, SortFurthest, SortRandom}, o) {
			return fmt.Errorf("unknown sort %q", value)
		}
		sel.sort = o
	case "scores":
		if !strings.HasPrefix(value, "{") || !strings.HasSuffix(value, "}") {
			return fmt.Errorf("scores: expected {objective=range,...}")
		}
		parts, err := splitArgs(value[1 : len(value)-1])
		if err != nil {
			return err
		}
		sel.scores = make(map[string]geom.IntRange, len(parts))
		for _, p := range parts {
			obj, rng, ok := strings.Cut(p, "=")
			if !ok {
				return fmt.Errorf("scores: expected objective=range in %q", p)
			}
			r, err := geom.ParseIntRange(strings.TrimSpace(rng))
			if err != nil {
				return err
			}
			sel.scores[strings.TrimSpace(obj)] = r
		}
	default:
		return fmt.Errorf("unknown option %q", key)
	}
	return nil
}

func namespaced(id string) string {
	if strings.Contains(id, ":") {
		return id
	}
	return "minecraft:" + id
}

func (sel *Selector) String() string { return sel.raw }

// Single reports whether the selector can match at most one entity.
func (sel *Selector) Single() bool {
	return sel.kind == 0 || sel.kind == 's' || sel.limit == 1
}

// PlayersOnly reports whether the selector only matches players.
func (sel *Selector) PlayersOnly() bool {
	return sel.kind == 'a' || sel.kind == 'p' || sel.kind == 'r' ||
		(sel.kind == 0 && uuid.Validate(sel.literal) != nil)
}

// Select returns the live entities the selector matches for src, in
// selection order.
func (sel *Selector) Select(w *World, src engine.Source) []*Entity {
	var candidates []*Entity
	switch sel.kind {
	case 0:
		w.mu.RLock()
		if e, ok := w.entities[sel.literal]; ok && !e.removed {
			candidates = []*Entity{e}
		} else {
			for _, id := range w.order {
				if e := w.entities[id]; !e.removed && e.IsPlayer() && e.name == sel.literal {
					candidates = []*Entity{e}
					break
				}
			}
		}
		w.mu.RUnlock()
		return candidates
	case 's':
		e := Self(w, src)
		if e == nil {
			return nil
		}
		candidates = []*Entity{e}
	default:
		candidates = w.Entities()
		if sel.kind != 'e' {
			candidates = slices.DeleteFunc(candidates, func(e *Entity) bool { return !e.IsPlayer() })
		}
	}

	candidates = slices.DeleteFunc(candidates, func(e *Entity) bool { return !sel.matches(w, src, e) })

	origin := src.Position()
	switch sel.sort {
	case SortNearest:
		slices.SortStableFunc(candidates, func(a, b *Entity) int {
			return cmpFloat(a.Position().Distance(origin), b.Position().Distance(origin))
		})
	case SortFurthest:
		slices.SortStableFunc(candidates, func(a, b *Entity) int {
			return cmpFloat(b.Position().Distance(origin), a.Position().Distance(origin))
		})
	case SortRandom:
		w.shuffle(candidates)
	}
	if sel.limit > 0 && len(candidates) > sel.limit {
		candidates = candidates[:sel.limit]
	}
	return candidates
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (sel *Selector) matches(w *World, src engine.Source, e *Entity) bool {
	for _, f := range sel.types {
		if !f.match(e.typ) {
			return false
		}
	}
	for _, f := range sel.names {
		if !f.match(e.Name()) {
			return false
		}
	}
	for _, f := range sel.tags {
		// "tag=" matches entities without tags, "tag=!" those with any.
		if f.value == "" {
			if (len(e.Tags()) == 0) == f.negate {
				return false
			}
			continue
		}
		if e.HasTag(f.value) == f.negate {
			return false
		}
	}
	if sel.distance != nil {
		if e.Dimension() != src.Dimension() || !sel.distance.Contains(e.Position().Distance(src.Position())) {
			return false
		}
	}
	for obj, r := range sel.scores {
		v, ok := w.Score(obj, e.ScoreHolder())
		if !ok || !r.Contains(v) {
			return false
		}
	}
	return true
}

// Holders returns the score holders the selector names. A literal that is
// not an entity is a holder by itself ("#counter").
func (sel *Selector) Holders(w *World, src engine.Source) []string {
	if sel.kind == 0 {
		if es := sel.Select(w, src); len(es) == 1 {
			return []string{es[0].ScoreHolder()}
		}
		return []string{sel.literal}
	}
	es := sel.Select(w, src)
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.ScoreHolder()
	}
	return out
}

// Self is the world entity src runs as, or nil.
func Self(w *World, src engine.Source) *Entity {
	ent := src.Entity()
	if ent == nil {
		return nil
	}
	if e, ok := ent.(*Entity); ok {
		if e.Removed() {
			return nil
		}
		return e
	}
	e, ok := w.Entity(ent.UUID())
	if !ok || e.Removed() {
		return nil
	}
	return e
}
