package geom

import (
	"fmt"
	"strconv"
	"strings"
)

// IntRange is an inclusive integer bound such as "5..", "..3", "1..5" or "4".
// A nil end is unbounded.
type IntRange struct {
	Min, Max *int
}

// ParseIntRange parses the "a..b" range syntax.
func ParseIntRange(s string) (IntRange, error) {
	lo, hi, err := splitRange(s)
	if err != nil {
		return IntRange{}, err
	}
	var r IntRange
	if lo != "" {
		v, err := strconv.Atoi(lo)
		if err != nil {
			return IntRange{}, fmt.Errorf("range %q: invalid integer %q", s, lo)
		}
		r.Min = &v
	}
	if hi != "" {
		v, err := strconv.Atoi(hi)
		if err != nil {
			return IntRange{}, fmt.Errorf("range %q: invalid integer %q", s, hi)
		}
		r.Max = &v
	}
	if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
		return IntRange{}, fmt.Errorf("range %q: min is greater than max", s)
	}
	return r, nil
}

// Contains reports whether v lies within the range.
func (r IntRange) Contains(v int) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

func (r IntRange) String() string {
	return formatRange(r.Min, r.Max, func(v int) string { return strconv.Itoa(v) })
}

// FloatRange is the floating point counterpart of IntRange.
type FloatRange struct {
	Min, Max *float64
}

// ParseFloatRange parses "a..b" with decimal ends.
func ParseFloatRange(s string) (FloatRange, error) {
	lo, hi, err := splitRange(s)
	if err != nil {
		return FloatRange{}, err
	}
	var r FloatRange
	if lo != "" {
		v, err := strconv.ParseFloat(lo, 64)
		if err != nil {
			return FloatRange{}, fmt.Errorf("range %q: invalid number %q", s, lo)
		}
		r.Min = &v
	}
	if hi != "" {
		v, err := strconv.ParseFloat(hi, 64)
		if err != nil {
			return FloatRange{}, fmt.Errorf("range %q: invalid number %q", s, hi)
		}
		r.Max = &v
	}
	if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
		return FloatRange{}, fmt.Errorf("range %q: min is greater than max", s)
	}
	return r, nil
}

// Contains reports whether v lies within the range.
func (r FloatRange) Contains(v float64) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

func (r FloatRange) String() string {
	return formatRange(r.Min, r.Max, func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) })
}

func splitRange(s string) (string, string, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == ".." {
		return "", "", fmt.Errorf("range %q: empty", s)
	}
	lo, hi, found := strings.Cut(s, "..")
	if !found {
		return s, s, nil
	}
	return lo, hi, nil
}

func formatRange[T comparable](lo, hi *T, f func(T) string) string {
	switch {
	case lo != nil && hi != nil && *lo == *hi:
		return f(*lo)
	case lo != nil && hi != nil:
		return f(*lo) + ".." + f(*hi)
	case lo != nil:
		return f(*lo) + ".."
	case hi != nil:
		return ".." + f(*hi)
	}
	return ".."
}
