package testutil

import (
	"bytes"
	"io"
	"maps"
	"slices"
	"sync"
)

// Traces keeps debug traces in memory by file name. It implements
// engine.TraceOpener.
type Traces struct {
	mu    sync.Mutex
	files map[string]*TraceFile
}

// TraceFile is one in-memory trace.
type TraceFile struct {
	bytes.Buffer
	Closed bool
}

func (f *TraceFile) Close() error {
	f.Closed = true
	return nil
}

// OpenTrace creates or truncates the trace called name.
func (t *Traces) OpenTrace(name string) (io.WriteCloser, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.files == nil {
		t.files = map[string]*TraceFile{}
	}
	f := &TraceFile{}
	t.files[name] = f
	return f, nil
}

// File returns the trace called name.
func (t *Traces) File(name string) (*TraceFile, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.files[name]
	return f, ok
}

// Names lists trace names in lexical order.
func (t *Traces) Names() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Sorted(maps.Keys(t.files))
}
