// Package commands is the leaf command library: the instructions at the
// end of a chain, after "run".
//
// Every command is a small struct implementing engine.Instruction against
// an *Env. Commands report feedback through the source (silenced sources
// drop it), return their integer result, and fail with *engine.CommandError
// values whose messages are the user-facing text.
//
// Commands that take a selector fail with ErrEntityNotFound when it matches
// nothing. Block volume commands fail with ErrAreaTooLarge above Env.MaxArea.
package commands
