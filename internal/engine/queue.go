package engine

import (
	"io"
	"log/slog"
	"slices"
)

// Queue is the depth-first scheduler of one invocation.
//
// Tasks queued while an entry executes are collected and, once it returns,
// pushed to the front of the queue in the order they were queued. Children
// therefore drain before siblings and run in sequence.
//
// Every entry belongs to an isolation region. A fatal error unwinds the
// region of the entry that raised it: the region's entries and those of its
// nested regions are dropped. The invocation itself is the root region;
// IsolatedCall and every branch of a fork open nested regions.
//
// A Queue is not safe for concurrent use. Each invocation builds its own.
type Queue struct {
	engine  *Engine
	inv     Invocation
	logger  *slog.Logger
	entries []entry
	pending []entry
	root    *region
	quota   *QuotaEnforcer

	// tracer is the debug trace installed by a trace terminal. observer is
	// the engine-wide tracer, if any. Both receive every event.
	tracer   Tracer
	observer Tracer
	closers  []io.Closer

	result Result
	err    error
}

type entry struct {
	task   Task
	frame  *Frame
	region *region
}

type region struct {
	parent *region
	source Source
}

func (r *region) child(src Source) *region {
	return &region{parent: r, source: src}
}

// within reports whether r is o or nested in o.
func (r *region) within(o *region) bool {
	for x := r; x != nil; x = x.parent {
		if x == o {
			return true
		}
	}
	return false
}

func newQueue(e *Engine, inv Invocation, root Source) *Queue {
	return &Queue{
		engine: e,
		inv:    inv,
		logger: e.logger.With("invocation", inv.ID),
		root:   &region{source: root},
		quota:  NewQuotaEnforcer(e.limits.MaxCommandChainLength),
	}
}

// Run drains the queue starting from initial, executed in the depth-0
// frame. It returns the fatal error that unwound the root region, or the
// first error reported by the top-level chain.
func (q *Queue) Run(initial Task) error {
	root := &Frame{depth: 0, returns: NewCallback(SinkFunc(q.record)), control: q.controlForDepth(0)}
	q.entries = append(q.entries, entry{task: initial, frame: root, region: q.root})

	for len(q.entries) > 0 {
		e := q.entries[0]
		q.entries[0] = entry{}
		q.entries = q.entries[1:]

		if err := q.quota.Check(); err != nil {
			q.logger.Error("command quota exceeded",
				"limit", q.quota.MaxSteps(),
				"executed", q.quota.Current()-1)
			q.unwind(q.root, err)
			break
		}

		ctl := &Control{q: q, frame: e.frame, region: e.region}
		if err := e.task.execute(ctl); err != nil {
			q.unwind(e.region, err)
		}
		q.flush()
	}

	q.close()
	return q.err
}

// record keeps the last outcome that reached the top level: a leaf run in
// the depth-0 frame, a value returned to it, or the result of a function
// called from it.
func (q *Queue) record(success bool, value int) {
	q.result.Reported = true
	q.result.Success = success
	q.result.Value = value
}

// topLevel adds result recording to cb when ctl runs in the depth-0 frame.
func (c *Control) topLevel(cb Callback) Callback {
	if c.frame.depth != 0 {
		return cb
	}
	return cb.Then(NewCallback(SinkFunc(c.q.record)))
}

// flush moves the tasks queued by the last entry to the front.
func (q *Queue) flush() {
	if len(q.pending) == 0 {
		return
	}
	q.entries = slices.Insert(q.entries, 0, q.pending...)
	clear(q.pending)
	q.pending = q.pending[:0]
}

func (q *Queue) controlForDepth(depth int) func() {
	return func() { q.discardAtDepthOrHigher(depth) }
}

// discardAtDepthOrHigher drops leading entries whose frame is at least
// depth deep.
func (q *Queue) discardAtDepthOrHigher(depth int) {
	n := 0
	for n < len(q.entries) && q.entries[n].frame.depth >= depth {
		n++
	}
	if n > 0 {
		clear(q.entries[:n])
		q.entries = q.entries[n:]
	}
}

// unwind drops every task of r and its nested regions and reports err
// once. Unwinding the root region ends the invocation with err.
func (q *Queue) unwind(r *region, err error) {
	keep := func(entries []entry) []entry {
		out := entries[:0]
		for _, e := range entries {
			if !e.region.within(r) {
				out = append(out, e)
			}
		}
		clear(entries[len(out):])
		return out
	}
	q.pending = keep(q.pending)
	q.entries = keep(q.entries)

	ce := asCommandError(err)
	q.events().OnError(ce.Message)
	r.source.SendFailure(ce.Message)

	isolated := r != q.root
	q.logger.Warn("execution unwound",
		"kind", ce.Kind,
		"error", ce.Message,
		"isolated", isolated)
	if !isolated {
		q.err = ce
	}
}

// events returns the sink for tracer events, never nil.
func (q *Queue) events() Tracer {
	switch {
	case q.tracer != nil && q.observer != nil:
		return multiTracer{q.observer, q.tracer}
	case q.tracer != nil:
		return q.tracer
	case q.observer != nil:
		return q.observer
	}
	return nopTracer{}
}

func (q *Queue) close() {
	for _, c := range q.closers {
		if err := c.Close(); err != nil {
			q.logger.Warn("closing tracer failed", "error", err)
		}
	}
	q.closers = nil
}

// Control is the view of the queue a task executes with: its frame, its
// isolation region, and the ability to queue follow-up tasks.
type Control struct {
	q      *Queue
	frame  *Frame
	region *region
}

// QueueNext queues t in the current frame and region. Tasks queued during
// one execution run in queue order before anything queued earlier.
func (c *Control) QueueNext(t Task) {
	c.queueAt(t, c.frame, c.region)
}

func (c *Control) queueAt(t Task, f *Frame, r *region) {
	c.q.pending = append(c.q.pending, entry{task: t, frame: f, region: r})
}

// Frame is the frame the current task runs in.
func (c *Control) Frame() *Frame { return c.frame }

// Tracer is the active debug tracer, or nil.
func (c *Control) Tracer() Tracer { return c.q.tracer }

// branch returns a control for one branch of a fork. Forked branches get
// their own isolation region.
func (c *Control) branch(src Source, mods ChainModifiers) *Control {
	if !mods.Forked() {
		return c
	}
	return &Control{q: c.q, frame: c.frame, region: c.region.child(src)}
}

// reportError delivers a non-fatal error: always to the tracer, and as a
// failure message unless forked. An unforked error of the top-level chain
// becomes the invocation's error.
func (c *Control) reportError(src Source, err error, forked bool) {
	ce := c.reportRecovered(src, err, forked)
	if !forked {
		c.fail(ce)
	}
}

// fail records ce as the invocation's error when it happened at top level
// outside any isolated region. The first such error wins.
func (c *Control) fail(ce *CommandError) {
	if c.frame.depth == 0 && c.region == c.q.root && c.q.err == nil {
		c.q.err = ce
	}
}

// reportRecovered sends err to src without making it the invocation's
// error.
func (c *Control) reportRecovered(src Source, err error, forked bool) *CommandError {
	ce := asCommandError(err)
	c.q.events().OnError(ce.Message)
	if !forked {
		src.SendFailure(ce.Message)
	}
	return ce
}

type nopTracer struct{}

func (nopTracer) OnCommand(int, string) {}
func (nopTracer) OnReturn(int, string, int) {}
func (nopTracer) OnCall(int, string, int) {}
func (nopTracer) OnError(string) {}
func (nopTracer) OnMessage(string) {}
