// Package engine implements the branching command-execution engine.
//
// A command line is compiled into a Chain: a sequence of steps (redirects,
// forks, conditionals, store sinks) ending in one terminal (a leaf
// instruction, a test, a function call, a return). The engine runs chains
// and functions on an explicit task queue instead of native recursion, so
// call depth is bounded and observable.
//
// ARCHITECTURE:
//
// Depth-first task queue:
// Every invocation owns a Queue. Executing a task may queue more tasks;
// those run, in the order they were queued, before anything queued
// earlier. This yields depth-first, left-to-right execution:
// - Children drain before siblings
// - Lines of a function run in sequence
// - Each forked branch completes before the next starts
//
// Frames:
// A function call opens a Frame one level deeper than its caller. Values
// returned by the function go to the frame's return consumer; returning
// discards the rest of the frame's queued tasks. The depth is checked
// against MaxFunctionDepth before any call is queued.
//
// Modifiers:
// ChainModifiers carry {forked, isReturn} through a chain. A forking step
// (as, at, on passengers) turns forked on: from there failures contribute
// zero contexts silently instead of raising a CommandError. isReturn is set
// by "return run" and routes results into the caller's frame.
//
// Isolation regions:
// Fatal errors (recursion limit, duplicate trace, trace under return run,
// command quota) unwind the innermost region: the whole invocation, an
// IsolatedCall, or one branch of a fork. Nothing is rolled back.
//
// Sources are values. Every transform derives a new Source, and callbacks
// are immutable sink lists, so no pending task ever observes another
// task's changes.
package engine
