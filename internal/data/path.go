package data

import (
	"fmt"
	"strconv"
	"strings"
)

// Path addresses values inside a compound: "a.b", "items[0].count",
// "items[].id". An empty index "[]" selects every element of a list.
type Path struct {
	raw   string
	nodes []pathNode
}

type pathNode struct {
	key   string
	index int  // valid when isIdx
	all   bool // "[]"
	isIdx bool
}

// ParsePath parses the dotted path syntax.
func ParsePath(s string) (Path, error) {
	if strings.TrimSpace(s) == "" {
		return Path{}, fmt.Errorf("path: empty")
	}

	var nodes []pathNode
	expectKey := true
	for i := 0; i < len(s); {
		switch s[i] {
		case '.':
			if expectKey {
				return Path{}, fmt.Errorf("path %q: empty segment", s)
			}
			expectKey = true
			i++
		case '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return Path{}, fmt.Errorf("path %q: unterminated index", s)
			}
			inner := s[i+1 : i+end]
			if inner == "" {
				nodes = append(nodes, pathNode{all: true, isIdx: true})
			} else {
				n, err := strconv.Atoi(inner)
				if err != nil {
					return Path{}, fmt.Errorf("path %q: invalid index %q", s, inner)
				}
				nodes = append(nodes, pathNode{index: n, isIdx: true})
			}
			i += end + 1
			expectKey = false
		default:
			if !expectKey {
				return Path{}, fmt.Errorf("path %q: missing '.' before key", s)
			}
			j := i
			for j < len(s) && s[j] != '.' && s[j] != '[' {
				j++
			}
			nodes = append(nodes, pathNode{key: s[i:j]})
			i = j
			expectKey = false
		}
	}
	if expectKey {
		return Path{}, fmt.Errorf("path %q: trailing '.'", s)
	}
	return Path{raw: s, nodes: nodes}, nil
}

// MustParsePath is ParsePath for literals known to be valid.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Path) String() string { return p.raw }

// Get returns every value matched by the path. A path through a missing key
// or out-of-range index matches nothing.
func (p Path) Get(root Compound) []Value {
	current := []Value{root}
	for _, n := range p.nodes {
		var next []Value
		for _, v := range current {
			next = append(next, n.step(v)...)
		}
		current = next
		if len(current) == 0 {
			return nil
		}
	}
	return current
}

func (n pathNode) step(v Value) []Value {
	if !n.isIdx {
		c, ok := v.(Compound)
		if !ok {
			return nil
		}
		child, ok := c[n.key]
		if !ok {
			return nil
		}
		return []Value{child}
	}

	l, ok := v.(List)
	if !ok {
		return nil
	}
	if n.all {
		return append([]Value(nil), l...)
	}
	i := n.index
	if i < 0 {
		i += len(l)
	}
	if i < 0 || i >= len(l) {
		return nil
	}
	return []Value{l[i]}
}

// Set writes v at every location the path addresses, creating intermediate
// compounds for missing keys. Indices must already exist.
func (p Path) Set(root Compound, v Value) error {
	if len(p.nodes) == 0 {
		return fmt.Errorf("path %q: nothing to set", p.raw)
	}
	n, err := set(root, p.nodes, v)
	if err != nil {
		return fmt.Errorf("path %q: %w", p.raw, err)
	}
	if n == 0 {
		return fmt.Errorf("path %q: no elements matched", p.raw)
	}
	return nil
}

func set(parent Value, nodes []pathNode, v Value) (int, error) {
	head, last := nodes[0], len(nodes) == 1

	if !head.isIdx {
		c, ok := parent.(Compound)
		if !ok {
			return 0, fmt.Errorf("%q: parent is not a compound", head.key)
		}
		if last {
			c[head.key] = Clone(v)
			return 1, nil
		}
		child, ok := c[head.key]
		if !ok {
			if nodes[1].isIdx {
				return 0, fmt.Errorf("%q: no list to index", head.key)
			}
			child = Compound{}
			c[head.key] = child
		}
		return set(child, nodes[1:], v)
	}

	l, ok := parent.(List)
	if !ok {
		return 0, fmt.Errorf("parent is not a list")
	}
	var idxs []int
	if head.all {
		for i := range l {
			idxs = append(idxs, i)
		}
	} else {
		i := head.index
		if i < 0 {
			i += len(l)
		}
		if i < 0 || i >= len(l) {
			return 0, fmt.Errorf("index %d out of bounds", head.index)
		}
		idxs = []int{i}
	}

	total := 0
	for _, i := range idxs {
		if last {
			l[i] = Clone(v)
			total++
			continue
		}
		n, err := set(l[i], nodes[1:], v)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
