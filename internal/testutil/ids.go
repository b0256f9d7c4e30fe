package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates invocation ids "<prefix>-1", "<prefix>-2", ...
//
// Unlike engine.FixedGenerator it never runs out, which suits scenarios
// whose number of invocations is not known up front.
//
// Thread-safety: safe for concurrent use.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDs creates a generator. An empty prefix means "inv".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "inv"
	}
	return &SequentialIDs{prefix: prefix}
}

// Generate implements engine.IDGenerator.
func (g *SequentialIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
