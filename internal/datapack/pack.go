package datapack

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuetoken "cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"
)

// File is one datapack source file.
//
//	namespace: demo
//	functions:
//	  - id: main
//	    lines:
//	      - say hello
//	tags:
//	  tick: [main]
//	predicates:
//	  has_cow: entity @e[type=cow]
type File struct {
	Path       string              `yaml:"-" json:"-"`
	Namespace  string              `yaml:"namespace" json:"namespace"`
	Functions  []FunctionSpec      `yaml:"functions,omitempty" json:"functions,omitempty"`
	Tags       map[string][]string `yaml:"tags,omitempty" json:"tags,omitempty"`
	Predicates map[string]string   `yaml:"predicates,omitempty" json:"predicates,omitempty"`
}

// FunctionSpec is a function as written in a file.
type FunctionSpec struct {
	ID    string   `yaml:"id" json:"id"`
	Lines []string `yaml:"lines" json:"lines"`
}

// schema constrains every file, whichever format it was written in.
const schema = `
#File: {
	namespace: =~"^[a-z0-9_.-]+$"
	functions?: [...{
		id:    =~"^([a-z0-9_.-]+:)?[a-z0-9_./-]+$"
		lines: [...string]
	}]
	tags?: [=~"^([a-z0-9_.-]+:)?[a-z0-9_./-]+$"]: [...string]
	predicates?: [=~"^([a-z0-9_.-]+:)?[a-z0-9_./-]+$"]: string
}
`

// CompileError is a schema violation with its source position.
type CompileError struct {
	Field   string
	Message string
	Pos     cuetoken.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	path := fieldPath(first.Path())
	if path == "" {
		path = "cue"
	}
	msg, args := first.Msg()
	ce := &CompileError{Field: path, Message: fmt.Sprintf(msg, args...)}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		ce.Pos = positions[0]
	}
	return ce
}

// fieldPath joins an error path, dropping the leading schema definition
// selectors so paths name the file's own fields.
func fieldPath(parts []string) string {
	for len(parts) > 0 && strings.HasPrefix(parts[0], "#") {
		parts = parts[1:]
	}
	return strings.Join(parts, ".")
}

// validate checks a file value against the schema and decodes it into f
// unless f is nil.
func validate(ctx *cue.Context, v cue.Value, f *File) error {
	def := ctx.CompileString(schema).LookupPath(cue.ParsePath("#File"))
	u := def.Unify(v)
	if err := u.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	if f == nil {
		return nil
	}
	if err := u.Decode(f); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// ParseCUE reads a file written in CUE.
func ParseCUE(name string, src []byte) (*File, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(name))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	f := &File{Path: name}
	if err := validate(ctx, v, f); err != nil {
		return nil, err
	}
	return f, nil
}

// ParseYAML reads a file written in YAML. Unknown fields are errors.
func ParseYAML(name string, src []byte) (*File, error) {
	f := &File{Path: name}
	dec := yaml.NewDecoder(bytes.NewReader(src))
	dec.KnownFields(true)
	if err := dec.Decode(f); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	ctx := cuecontext.New()
	v := ctx.Encode(f)
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if err := validate(ctx, v, nil); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return f, nil
}

// LoadFile reads a .yaml, .yml or .cue file.
func LoadFile(path string) (*File, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read datapack file: %w", err)
	}
	switch filepath.Ext(path) {
	case ".cue":
		return ParseCUE(path, src)
	case ".yaml", ".yml":
		return ParseYAML(path, src)
	}
	return nil, fmt.Errorf("%s: unsupported datapack file type", path)
}

// Pack is a set of datapack files.
type Pack struct {
	Files []*File
}

// Load reads datapack files and directories. Directories are walked for
// .yaml, .yml and .cue files in lexical order.
func Load(paths ...string) (*Pack, error) {
	pack := &Pack{}
	var errs []error
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("datapack not found: %w", err)
		}
		var files []string
		if info.IsDir() {
			err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if !d.IsDir() && slices.Contains([]string{".cue", ".yaml", ".yml"}, filepath.Ext(path)) {
					files = append(files, path)
				}
				return nil
			})
			if err != nil {
				return nil, fmt.Errorf("scan datapack: %w", err)
			}
		} else {
			files = []string{root}
		}
		for _, path := range files {
			f, err := LoadFile(path)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			pack.Files = append(pack.Files, f)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if len(pack.Files) == 0 {
		return nil, fmt.Errorf("no datapack files found in %s", strings.Join(paths, ", "))
	}
	return pack, nil
}

func qualify(namespace, id string) string {
	if tag, ok := strings.CutPrefix(id, "#"); ok {
		return "#" + qualify(namespace, tag)
	}
	if strings.Contains(id, ":") {
		return id
	}
	return namespace + ":" + id
}

// Build compiles the pack against c: predicates first, so lines may use
// them, then functions and tags. Every error is reported.
func (p *Pack) Build(c *Compiler) (*Registry, error) {
	reg := NewRegistry()
	var errs []error

	for _, f := range p.Files {
		for _, name := range slices.Sorted(maps.Keys(f.Predicates)) {
			id := qualify(f.Namespace, name)
			pred, err := c.CompilePredicate(f.Predicates[name])
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: predicate %s: %w", f.Path, id, err))
				continue
			}
			c.Predicates.Named[id] = pred
		}
	}

	for _, f := range p.Files {
		for _, spec := range f.Functions {
			prog, err := NewProgram(c, qualify(f.Namespace, spec.ID), spec.Lines)
			if err == nil {
				err = reg.Add(prog)
			}
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", f.Path, err))
			}
		}
		for _, name := range slices.Sorted(maps.Keys(f.Tags)) {
			entries := f.Tags[name]
			qualified := make([]string, len(entries))
			for i, e := range entries {
				qualified[i] = qualify(f.Namespace, e)
			}
			reg.SetTag(qualify(f.Namespace, name), qualified)
		}
	}
	if err := reg.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return reg, nil
}
