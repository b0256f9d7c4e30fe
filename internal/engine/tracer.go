package engine

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Tracer observes the execution of an invocation.
//
// depth is the frame depth of the event: 0 for the top-level chain, one
// more for every function call.
type Tracer interface {
	// OnCommand fires when a chain starts.
	OnCommand(depth int, command string)
	// OnReturn fires when a leaf instruction of the chain returned.
	OnReturn(depth int, command string, result int)
	// OnCall fires when a function frame begins; size is its line count.
	OnCall(depth int, function string, size int)
	// OnError fires for every reported error, forked or not.
	OnError(message string)
	// OnMessage receives feedback sent by commands running under the tracer.
	OnMessage(text string)
}

// TextTracer renders events as an indented log.
//
//	[F] demo:main size=2
//	        [C] say hi
//	            [M] hi
//	        [R = 1] say hi
//	        [C] scoreboard players get p obj -> 3
//
// A command immediately followed by its own return is coalesced onto one
// line. Indentation is four spaces per (depth + 1). Errors and messages are
// indented one level past the last command or call.
type TextTracer struct {
	w                *bufio.Writer
	closer           io.Closer
	lastIndent       int
	waitingForResult bool
}

// NewTextTracer writes to w. If w is an io.Closer, Close closes it.
func NewTextTracer(w io.Writer) *TextTracer {
	t := &TextTracer{w: bufio.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		t.closer = c
	}
	return t
}

func (t *TextTracer) indent(depth int) {
	t.w.WriteString(strings.Repeat("    ", depth+1))
}

func (t *TextTracer) indentAndSave(depth int) {
	t.indent(depth)
	t.lastIndent = depth
}

func (t *TextTracer) newLine() {
	if t.waitingForResult {
		t.w.WriteByte('\n')
		t.waitingForResult = false
	}
}

func (t *TextTracer) OnCommand(depth int, command string) {
	t.newLine()
	t.indentAndSave(depth)
	t.w.WriteString("[C] ")
	t.w.WriteString(command)
	t.waitingForResult = true
}

func (t *TextTracer) OnReturn(depth int, command string, result int) {
	if t.waitingForResult {
		fmt.Fprintf(t.w, " -> %d\n", result)
		t.waitingForResult = false
		return
	}
	t.indentAndSave(depth)
	fmt.Fprintf(t.w, "[R = %d] %s\n", result, command)
}

func (t *TextTracer) OnCall(depth int, function string, size int) {
	t.newLine()
	t.indentAndSave(depth)
	fmt.Fprintf(t.w, "[F] %s size=%d\n", function, size)
}

func (t *TextTracer) OnError(message string) {
	t.newLine()
	t.indentAndSave(t.lastIndent + 1)
	fmt.Fprintf(t.w, "[E] %s\n", message)
}

func (t *TextTracer) OnMessage(text string) {
	t.newLine()
	t.indent(t.lastIndent + 1)
	fmt.Fprintf(t.w, "[M] %s\n", text)
}

// WriteLine writes an unindented header line, such as the id of a traced
// function.
func (t *TextTracer) WriteLine(s string) {
	t.newLine()
	t.w.WriteString(s)
	t.w.WriteByte('\n')
}

// Close terminates a pending command line, flushes, and closes the
// underlying writer when it is closable.
func (t *TextTracer) Close() error {
	t.newLine()
	err := t.w.Flush()
	if t.closer != nil {
		if cerr := t.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// tracerOutput routes command feedback into a tracer.
type tracerOutput struct {
	tracer Tracer
}

func (o tracerOutput) SendMessage(text string, _ bool) {
	o.tracer.OnMessage(text)
}

// multiTracer fans events out to several tracers.
type multiTracer []Tracer

func (m multiTracer) OnCommand(depth int, command string) {
	for _, t := range m {
		t.OnCommand(depth, command)
	}
}

func (m multiTracer) OnReturn(depth int, command string, result int) {
	for _, t := range m {
		t.OnReturn(depth, command, result)
	}
}

func (m multiTracer) OnCall(depth int, function string, size int) {
	for _, t := range m {
		t.OnCall(depth, function, size)
	}
}

func (m multiTracer) OnError(message string) {
	for _, t := range m {
		t.OnError(message)
	}
}

func (m multiTracer) OnMessage(text string) {
	for _, t := range m {
		t.OnMessage(text)
	}
}
