package datapack

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/roach88/chainexec/internal/data"
	"github.com/roach88/chainexec/internal/engine"
)

// macroCacheSize bounds the instantiations a macro function keeps.
const macroCacheSize = 8

var macroParam = regexp.MustCompile(`\$\(([A-Za-z0-9_]+)\)`)

// LineError is a function line that failed to compile.
type LineError struct {
	Function string
	Line     int
	Err      error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.Function, e.Line, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

type line struct {
	num    int
	text   string
	params []string // non-empty for macro lines
	chain  engine.Chain
}

// Program is a loaded function. Lines starting with "$" are macro lines:
// their $(name) placeholders are filled from the call arguments and the
// line is compiled on instantiation.
type Program struct {
	id       string
	compiler *Compiler
	lines    []line
	params   []string
	plain    *engine.Function

	mu    sync.Mutex
	cache map[string]*engine.Function
}

// NewProgram compiles the plain lines of a function. Blank lines and lines
// starting with "#" are skipped.
func NewProgram(c *Compiler, id string, source []string) (*Program, error) {
	p := &Program{id: id, compiler: c}
	params := map[string]struct{}{}
	for i, text := range source {
		text = strings.TrimSpace(text)
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		l := line{num: i + 1, text: text}
		if strings.HasPrefix(text, "$") {
			l.text = text[1:]
			for _, m := range macroParam.FindAllStringSubmatch(l.text, -1) {
				if !slices.Contains(l.params, m[1]) {
					l.params = append(l.params, m[1])
				}
				params[m[1]] = struct{}{}
			}
			if len(l.params) == 0 {
				return nil, &LineError{Function: id, Line: l.num, Err: fmt.Errorf("macro line without arguments")}
			}
		} else {
			chain, err := c.Compile(text)
			if err != nil {
				return nil, &LineError{Function: id, Line: l.num, Err: err}
			}
			l.chain = chain
		}
		p.lines = append(p.lines, l)
	}
	for k := range params {
		p.params = append(p.params, k)
	}
	slices.Sort(p.params)

	if len(p.params) == 0 {
		p.plain = &engine.Function{Name: id, Lines: p.chains()}
	}
	return p, nil
}

func (p *Program) chains() []engine.Chain {
	out := make([]engine.Chain, len(p.lines))
	for i, l := range p.lines {
		out[i] = l.chain
	}
	return out
}

func (p *Program) ID() string { return p.id }

// Params returns the macro parameter names, sorted.
func (p *Program) Params() []string { return slices.Clone(p.params) }

// Len is the number of command lines.
func (p *Program) Len() int { return len(p.lines) }

// Instantiate fills the macro lines from args. Plain functions ignore args.
func (p *Program) Instantiate(args data.Compound) (*engine.Function, error) {
	if p.plain != nil {
		return p.plain, nil
	}
	if args == nil {
		return nil, fmt.Errorf("function %s requires arguments %s", p.id, strings.Join(p.params, ", "))
	}

	var missing []string
	used := data.Compound{}
	for _, k := range p.params {
		v, ok := args[k]
		if !ok {
			missing = append(missing, k)
			continue
		}
		used[k] = v
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing arguments: %s", strings.Join(missing, ", "))
	}

	key, err := data.MarshalCanonical(used)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if fn, ok := p.cache[string(key)]; ok {
		return fn, nil
	}

	chains := make([]engine.Chain, len(p.lines))
	for i, l := range p.lines {
		if len(l.params) == 0 {
			chains[i] = l.chain
			continue
		}
		text := macroParam.ReplaceAllStringFunc(l.text, func(m string) string {
			return data.MacroText(used[m[2:len(m)-1]])
		})
		chain, err := p.compiler.Compile(text)
		if err != nil {
			return nil, &LineError{Function: p.id, Line: l.num, Err: err}
		}
		chains[i] = chain
	}

	fn := &engine.Function{Name: p.id, Lines: chains}
	if p.cache == nil || len(p.cache) >= macroCacheSize {
		p.cache = make(map[string]*engine.Function)
	}
	p.cache[string(key)] = fn
	return fn, nil
}

// Registry holds the functions and function tags of a loaded pack. It
// implements engine.FunctionResolver.
type Registry struct {
	programs map[string]*Program
	tags     map[string][]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{programs: map[string]*Program{}, tags: map[string][]string{}}
}

// Add registers a program.
func (r *Registry) Add(p *Program) error {
	if _, dup := r.programs[p.id]; dup {
		return fmt.Errorf("duplicate function %s", p.id)
	}
	r.programs[p.id] = p
	return nil
}

// SetTag sets the entries of a function tag. Entries are function ids or
// "#"-prefixed tags.
func (r *Registry) SetTag(id string, entries []string) {
	r.tags[strings.TrimPrefix(id, "#")] = entries
}

// Program returns a registered program.
func (r *Registry) Program(id string) (*Program, bool) {
	p, ok := r.programs[id]
	return p, ok
}

// Functions returns the registered function ids, sorted.
func (r *Registry) Functions() []string {
	ids := make([]string, 0, len(r.programs))
	for id := range r.programs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Tags returns the tag ids, sorted, without the leading "#".
func (r *Registry) Tags() []string {
	ids := make([]string, 0, len(r.tags))
	for id := range r.tags {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// ResolveFunctions resolves a function id or a "#tag" to programs in tag
// order. Nested tags are expanded in place and each function appears once.
// Unknown names resolve to nothing.
func (r *Registry) ResolveFunctions(name string) ([]engine.Program, error) {
	if !strings.HasPrefix(name, "#") {
		if p, ok := r.programs[name]; ok {
			return []engine.Program{p}, nil
		}
		return nil, nil
	}
	var out []engine.Program
	seen := map[string]bool{}
	if err := r.expand(name[1:], seen, map[string]bool{}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Registry) expand(tag string, seen, active map[string]bool, out *[]engine.Program) error {
	entries, ok := r.tags[tag]
	if !ok {
		return nil
	}
	if active[tag] {
		return fmt.Errorf("function tag #%s includes itself", tag)
	}
	active[tag] = true
	defer delete(active, tag)

	for _, e := range entries {
		if nested, ok := strings.CutPrefix(e, "#"); ok {
			if err := r.expand(nested, seen, active, out); err != nil {
				return err
			}
			continue
		}
		p, ok := r.programs[e]
		if !ok || seen[e] {
			continue
		}
		seen[e] = true
		*out = append(*out, p)
	}
	return nil
}

// Validate reports tag entries that name unknown functions or tags and
// tags that include themselves.
func (r *Registry) Validate() error {
	var errs []string
	for _, tag := range r.Tags() {
		for _, e := range r.tags[tag] {
			if nested, ok := strings.CutPrefix(e, "#"); ok {
				if _, ok := r.tags[nested]; !ok {
					errs = append(errs, fmt.Sprintf("tag #%s: unknown tag %s", tag, e))
				}
				continue
			}
			if _, ok := r.programs[e]; !ok {
				errs = append(errs, fmt.Sprintf("tag #%s: unknown function %s", tag, e))
			}
		}
		if _, err := r.ResolveFunctions("#" + tag); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}
