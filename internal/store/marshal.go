package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/chainexec/internal/data"
	"github.com/roach88/chainexec/internal/world"
)

// marshalCompound converts a compound to its canonical TEXT encoding.
// Equal compounds always produce identical text.
func marshalCompound(c data.Compound) (string, error) {
	if c == nil {
		c = data.Compound{}
	}
	b, err := data.MarshalCanonical(c)
	if err != nil {
		return "", fmt.Errorf("marshal compound: %w", err)
	}
	return string(b), nil
}

// unmarshalCompound parses TEXT written by marshalCompound.
func unmarshalCompound(text string) (data.Compound, error) {
	if text == "" {
		return data.Compound{}, nil
	}
	v, err := data.UnmarshalCanonical([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("unmarshal compound: %w", err)
	}
	c, ok := v.(data.Compound)
	if !ok {
		return nil, fmt.Errorf("unmarshal compound: got %s", v.Type())
	}
	return c, nil
}

// marshalSpec converts an entity spec to JSON TEXT. The data compound is
// stored separately so its tag types survive.
func marshalSpec(spec world.EntitySpec) (string, error) {
	spec.Data = nil
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(spec); err != nil {
		return "", fmt.Errorf("marshal entity spec: %w", err)
	}
	// Encoder adds a trailing newline
	return strings.TrimSpace(buf.String()), nil
}

func unmarshalSpec(text string) (world.EntitySpec, error) {
	var spec world.EntitySpec
	if err := json.Unmarshal([]byte(text), &spec); err != nil {
		return world.EntitySpec{}, fmt.Errorf("unmarshal entity spec: %w", err)
	}
	return spec, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
