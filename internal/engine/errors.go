package engine

import (
	"errors"
	"fmt"
)

// CommandError is a structured failure raised while running a chain.
//
// Error returns Message unchanged because it is what the invoker sees.
// Kind carries the category; the numeric fields are set for the kinds
// that have a payload.
type CommandError struct {
	// Kind identifies the error category.
	Kind ErrorKind

	// Message is the user-facing description.
	Message string

	// Count is the match count of a counted conditional failure.
	Count int

	// Limit and Actual carry the bound and the offending value for limit
	// errors (area size, recursion depth, fork and command quotas).
	Limit  int64
	Actual int64

	// Function names the function involved, if any.
	Function string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorKind categorizes command errors.
type ErrorKind string

const (
	// ErrConditionalFailed is a boolean condition that did not hold.
	ErrConditionalFailed ErrorKind = "CONDITIONAL_FAILED"

	// ErrConditionalFailedWithCount is a negated countable condition that
	// matched Count elements.
	ErrConditionalFailedWithCount ErrorKind = "CONDITIONAL_FAILED_COUNT"

	// ErrAreaTooLarge is a block volume over the configured maximum.
	ErrAreaTooLarge ErrorKind = "AREA_TOO_LARGE"

	// ErrRecursiveTraceAlreadyActive is a trace started while one runs.
	ErrRecursiveTraceAlreadyActive ErrorKind = "RECURSIVE_TRACE"

	// ErrReturnRunNotAllowed is a trace started under return run.
	ErrReturnRunNotAllowed ErrorKind = "RETURN_RUN_NOT_ALLOWED"

	// ErrFunctionInstantiationFailed is a function whose arguments did not
	// fit. Only that function is skipped.
	ErrFunctionInstantiationFailed ErrorKind = "FUNCTION_INSTANTIATION_FAILED"

	// ErrNoMatchingFunctions is a function name or tag that resolves to
	// nothing.
	ErrNoMatchingFunctions ErrorKind = "NO_MATCHING_FUNCTIONS"

	// ErrRecursionLimitExceeded is a function call nested deeper than the
	// configured maximum.
	ErrRecursionLimitExceeded ErrorKind = "RECURSION_LIMIT_EXCEEDED"

	// ErrCommandFailed is a generic leaf failure.
	ErrCommandFailed ErrorKind = "COMMAND_FAILED"

	// ErrForkLimitExceeded is a fork producing more contexts than allowed.
	ErrForkLimitExceeded ErrorKind = "FORK_LIMIT_EXCEEDED"

	// ErrCommandQuotaExceeded is an invocation running more tasks than
	// allowed.
	ErrCommandQuotaExceeded ErrorKind = "COMMAND_QUOTA_EXCEEDED"

	// ErrEntityNotFound is a selector that was required to match.
	ErrEntityNotFound ErrorKind = "ENTITY_NOT_FOUND"
)

// Fatal reports whether errors of this kind unwind their whole isolation
// region instead of ending a single chain.
func (k ErrorKind) Fatal() bool {
	switch k {
	case ErrRecursionLimitExceeded, ErrRecursiveTraceAlreadyActive,
		ErrReturnRunNotAllowed, ErrCommandQuotaExceeded:
		return true
	}
	return false
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *CommandError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, or "" if it is not a CommandError.
func KindOf(err error) ErrorKind {
	var ce *CommandError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// IsFatal returns true if err is a fatal CommandError.
// Uses errors.As to handle wrapped errors.
func IsFatal(err error) bool {
	return KindOf(err).Fatal()
}

// IsConditionalFailure returns true for both conditional failure kinds.
func IsConditionalFailure(err error) bool {
	k := KindOf(err)
	return k == ErrConditionalFailed || k == ErrConditionalFailedWithCount
}

// asCommandError converts a leaf error to a CommandError, keeping the
// original as the cause.
func asCommandError(err error) *CommandError {
	var ce *CommandError
	if errors.As(err, &ce) {
		return ce
	}
	return &CommandError{Kind: ErrCommandFailed, Message: err.Error(), Err: err}
}

// NewConditionalFailed is the error of a failed boolean test.
func NewConditionalFailed() *CommandError {
	return &CommandError{Kind: ErrConditionalFailed, Message: "Test failed"}
}

// NewConditionalFailedWithCount is the error of a failed negated countable
// test that matched count elements.
func NewConditionalFailedWithCount(count int) *CommandError {
	return &CommandError{
		Kind:    ErrConditionalFailedWithCount,
		Message: fmt.Sprintf("Test failed, count: %d", count),
		Count:   count,
	}
}

// NewAreaTooLarge reports a block volume over the limit.
func NewAreaTooLarge(limit, actual int64) *CommandError {
	return &CommandError{
		Kind:    ErrAreaTooLarge,
		Message: fmt.Sprintf("Too many blocks in the specified area (maximum %d, specified %d)", limit, actual),
		Limit:   limit,
		Actual:  actual,
	}
}

// NewRecursiveTraceAlreadyActive reports a nested trace.
func NewRecursiveTraceAlreadyActive() *CommandError {
	return &CommandError{Kind: ErrRecursiveTraceAlreadyActive, Message: "Can't trace from inside of function"}
}

// NewReturnRunNotAllowed reports a trace under return run.
func NewReturnRunNotAllowed() *CommandError {
	return &CommandError{Kind: ErrReturnRunNotAllowed, Message: "Tracing can't be used with return run"}
}

// NewFunctionInstantiationFailed reports a function whose arguments could not
// be applied.
func NewFunctionInstantiationFailed(id string, reason error) *CommandError {
	return &CommandError{
		Kind:     ErrFunctionInstantiationFailed,
		Message:  fmt.Sprintf("Failed to instantiate function %s: %v", id, reason),
		Function: id,
		Err:      reason,
	}
}

// NewNoMatchingFunctions reports an unresolved function name or tag.
func NewNoMatchingFunctions(name string) *CommandError {
	msg := fmt.Sprintf("Unknown function %s", name)
	if len(name) > 0 && name[0] == '#' {
		msg = fmt.Sprintf("Unknown function tag '%s'", name[1:])
	}
	return &CommandError{Kind: ErrNoMatchingFunctions, Message: msg, Function: name}
}

// NewRecursionLimitExceeded reports a call past the maximum function depth.
func NewRecursionLimitExceeded(id string, limit, depth int) *CommandError {
	return &CommandError{
		Kind:     ErrRecursionLimitExceeded,
		Message:  fmt.Sprintf("Function %s exceeded the maximum call depth of %d", id, limit),
		Function: id,
		Limit:    int64(limit),
		Actual:   int64(depth),
	}
}

// NewCommandFailed is a generic leaf failure with a message.
func NewCommandFailed(format string, args ...any) *CommandError {
	return &CommandError{Kind: ErrCommandFailed, Message: fmt.Sprintf(format, args...)}
}

// NewForkLimitExceeded reports a fork over the context limit.
func NewForkLimitExceeded(limit int) *CommandError {
	return &CommandError{
		Kind:    ErrForkLimitExceeded,
		Message: fmt.Sprintf("Maximum number of contexts (%d) reached", limit),
		Limit:   int64(limit),
	}
}

// NewCommandQuotaExceeded reports an invocation over the task quota.
func NewCommandQuotaExceeded(limit int) *CommandError {
	return &CommandError{
		Kind:    ErrCommandQuotaExceeded,
		Message: fmt.Sprintf("Command execution stopped due to limit (executed %d commands)", limit),
		Limit:   int64(limit),
	}
}

// NewEntityNotFound reports a selector that matched nothing.
func NewEntityNotFound() *CommandError {
	return &CommandError{Kind: ErrEntityNotFound, Message: "No entity was found"}
}
