// Package datapack loads functions, function tags and named predicates
// from YAML or CUE files and compiles their command lines into engine
// chains.
//
// Both formats are checked against the same CUE schema. A Compiler binds
// lines to one world: execute subcommands become redirect, conditional and
// store steps, and the command after "run" becomes the terminal. Functions
// with "$" lines are macros, compiled when called with arguments.
//
// The Registry built from a pack resolves "name" and "#tag" for the engine.
package datapack
