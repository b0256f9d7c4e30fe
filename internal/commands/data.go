package commands

import (
	"fmt"
	"math"

	"github.com/roach88/chainexec/internal/data"
	"github.com/roach88/chainexec/internal/engine"
	"github.com/roach88/chainexec/internal/sink"
)

func (e *Env) resolveRef(r sink.RefResolver, src engine.Source) (sink.DataRef, data.Compound, error) {
	ref, err := r.ResolveRef(src)
	if err != nil {
		return sink.DataRef{}, nil, err
	}
	c, err := e.World.GetData(ref)
	if err != nil {
		return sink.DataRef{}, nil, err
	}
	return ref, c, nil
}

// DataGet is "data get <ref> [<path> [<scale>]]". Without a path it returns
// the number of keys. A number returns floor(value * Scale), a string its
// length, a list or compound its size.
type DataGet struct {
	Env   *Env
	Ref   sink.RefResolver
	Path  *data.Path
	Scale float64
}

func (c DataGet) Execute(src engine.Source) (int, error) {
	ref, root, err := c.Env.resolveRef(c.Ref, src)
	if err != nil {
		return 0, err
	}
	if c.Path == nil {
		src.SendSuccess(fmt.Sprintf("%s has the following data: %s", ref, data.Format(root)))
		return len(root), nil
	}

	matches := c.Path.Get(root)
	switch len(matches) {
	case 0:
		return 0, engine.NewCommandFailed("Found no elements matching %s", c.Path)
	case 1:
	default:
		return 0, engine.NewCommandFailed("Found %d elements matching %s, expected one", len(matches), c.Path)
	}

	v := matches[0]
	var result int
	switch val := v.(type) {
	case data.Numeric:
		scale := c.Scale
		if scale == 0 {
			scale = 1
		}
		result = int(math.Floor(val.AsFloat() * scale))
	case data.String:
		result = len([]rune(string(val)))
	case data.List:
		result = len(val)
	case data.Compound:
		result = len(val)
	}
	src.SendSuccess(fmt.Sprintf("%s has the following data: %s", ref, data.Format(v)))
	return result, nil
}

// DataSet is "data modify <ref> <path> set value <value>".
type DataSet struct {
	Env   *Env
	Ref   sink.RefResolver
	Path  data.Path
	Value data.Value
}

func (c DataSet) Execute(src engine.Source) (int, error) {
	ref, err := c.Ref.ResolveRef(src)
	if err != nil {
		return 0, err
	}
	if err := c.Env.World.SetData(ref, c.Path, c.Value); err != nil {
		return 0, asFailure(err)
	}
	src.SendSuccess(fmt.Sprintf("Modified data of %s", ref))
	return 1, nil
}

// DataCopy is "data modify <ref> <path> set from <ref> <path>". The source
// path must match exactly one element.
type DataCopy struct {
	Env      *Env
	Ref      sink.RefResolver
	Path     data.Path
	From     sink.RefResolver
	FromPath data.Path
}

func (c DataCopy) Execute(src engine.Source) (int, error) {
	_, from, err := c.Env.resolveRef(c.From, src)
	if err != nil {
		return 0, err
	}
	matches := c.FromPath.Get(from)
	if len(matches) != 1 {
		return 0, engine.NewCommandFailed("Found %d elements matching %s, expected one", len(matches), c.FromPath)
	}
	return DataSet{Env: c.Env, Ref: c.Ref, Path: c.Path, Value: matches[0]}.Execute(src)
}

// DataMerge is "data merge <ref> <compound>".
type DataMerge struct {
	Env      *Env
	Ref      sink.RefResolver
	Compound data.Compound
}

func (c DataMerge) Execute(src engine.Source) (int, error) {
	ref, err := c.Ref.ResolveRef(src)
	if err != nil {
		return 0, err
	}
	if err := c.Env.World.MergeData(ref, c.Compound); err != nil {
		return 0, asFailure(err)
	}
	src.SendSuccess(fmt.Sprintf("Modified data of %s", ref))
	return 1, nil
}

// asFailure keeps command errors and wraps anything else as a generic
// command failure.
func asFailure(err error) error {
	if engine.KindOf(err) != "" {
		return err
	}
	return engine.NewCommandFailed("%s", err)
}
