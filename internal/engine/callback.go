package engine

import (
	"fmt"
	"strings"
)

// Sink consumes the outcome of a terminal step.
type Sink interface {
	OnResult(success bool, result int)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(success bool, result int)

func (f SinkFunc) OnResult(success bool, result int) { f(success, result) }

// Callback is an immutable ordered list of sinks. Sinks fire front to back.
//
// Attach prepends, so the most recently attached sink observes a result
// first and the pair is then forwarded unchanged to the older ones. A
// derived Callback never shares mutable state with the one it came from,
// which is what lets forked contexts own independent chains.
type Callback struct {
	sinks []Sink
}

// NewCallback builds a callback firing sinks in the given order.
func NewCallback(sinks ...Sink) Callback {
	out := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return Callback{sinks: out}
}

// Attach returns a callback in which s fires before every existing sink.
func (c Callback) Attach(s Sink) Callback {
	if s == nil {
		return c
	}
	out := make([]Sink, 0, len(c.sinks)+1)
	out = append(out, s)
	out = append(out, c.sinks...)
	return Callback{sinks: out}
}

// Then returns a callback firing a's sinks and then b's.
func (a Callback) Then(b Callback) Callback {
	if len(a.sinks) == 0 {
		return b
	}
	if len(b.sinks) == 0 {
		return a
	}
	out := make([]Sink, 0, len(a.sinks)+len(b.sinks))
	out = append(out, a.sinks...)
	out = append(out, b.sinks...)
	return Callback{sinks: out}
}

func (c Callback) OnResult(success bool, result int) {
	for _, s := range c.sinks {
		s.OnResult(success, result)
	}
}

func (c Callback) OnSuccess(result int) { c.OnResult(true, result) }

func (c Callback) OnFailure() { c.OnResult(false, 0) }

// Empty reports whether no sink is attached.
func (c Callback) Empty() bool { return len(c.sinks) == 0 }

// Sinks returns a copy of the sinks in firing order.
func (c Callback) Sinks() []Sink {
	return append([]Sink(nil), c.sinks...)
}

func (c Callback) String() string {
	parts := make([]string, len(c.sinks))
	for i, s := range c.sinks {
		if st, ok := s.(fmt.Stringer); ok {
			parts[i] = st.String()
		} else {
			parts[i] = fmt.Sprintf("%T", s)
		}
	}
	return "[" + strings.Join(parts, " -> ") + "]"
}
