package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuotaEnforcer_AllowsUpToLimit(t *testing.T) {
	q := NewQuotaEnforcer(3)

	for i := 0; i < 3; i++ {
		require.NoError(t, q.Check(), "check %d should be within limit", i+1)
	}
	assert.Equal(t, 3, q.Current())

	err := q.Check()
	require.Error(t, err)
	assert.True(t, IsQuotaError(err))
	assert.True(t, IsFatal(err))

	var ce *CommandError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, int64(3), ce.Limit)
	assert.Equal(t, int64(4), ce.Actual)
	assert.Equal(t, "Command execution stopped due to limit (executed 3 commands)", ce.Error())
}

func TestQuotaEnforcer_ZeroDisables(t *testing.T) {
	q := NewQuotaEnforcer(0)
	for i := 0; i < 1000; i++ {
		require.NoError(t, q.Check())
	}
	assert.Equal(t, 1000, q.Current())
}

func TestQuotaEnforcer_Reset(t *testing.T) {
	q := NewQuotaEnforcer(1)
	require.NoError(t, q.Check())
	require.Error(t, q.Check())

	q.Reset()
	assert.Equal(t, 0, q.Current())
	assert.NoError(t, q.Check())
	assert.Equal(t, 1, q.MaxSteps())
}

func TestIsQuotaError_Wrapped(t *testing.T) {
	err := fmt.Errorf("invocation: %w", NewCommandQuotaExceeded(10))
	assert.True(t, IsQuotaError(err))
	assert.False(t, IsQuotaError(NewConditionalFailed()))
	assert.False(t, IsQuotaError(nil))
}

func TestErrorKind_Fatal(t *testing.T) {
	fatal := []ErrorKind{
		ErrRecursionLimitExceeded,
		ErrRecursiveTraceAlreadyActive,
		ErrReturnRunNotAllowed,
		ErrCommandQuotaExceeded,
	}
	for _, k := range fatal {
		assert.True(t, k.Fatal(), "%s should be fatal", k)
	}

	recoverable := []ErrorKind{
		ErrConditionalFailed,
		ErrConditionalFailedWithCount,
		ErrAreaTooLarge,
		ErrFunctionInstantiationFailed,
		ErrNoMatchingFunctions,
		ErrCommandFailed,
		ErrForkLimitExceeded,
		ErrEntityNotFound,
	}
	for _, k := range recoverable {
		assert.False(t, k.Fatal(), "%s should not be fatal", k)
	}
}

func TestCommandError_Messages(t *testing.T) {
	tests := []struct {
		err  *CommandError
		want string
	}{
		{NewConditionalFailed(), "Test failed"},
		{NewConditionalFailedWithCount(2), "Test failed, count: 2"},
		{NewAreaTooLarge(32768, 40000), "Too many blocks in the specified area (maximum 32768, specified 40000)"},
		{NewNoMatchingFunctions("demo:x"), "Unknown function demo:x"},
		{NewNoMatchingFunctions("#demo:x"), "Unknown function tag 'demo:x'"},
		{NewForkLimitExceeded(5), "Maximum number of contexts (5) reached"},
		{NewEntityNotFound(), "No entity was found"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.Error())
	}
}

func TestAsCommandError_WrapsPlainErrors(t *testing.T) {
	plain := fmt.Errorf("disk full")
	ce := asCommandError(plain)

	assert.Equal(t, ErrCommandFailed, ce.Kind)
	assert.Equal(t, "disk full", ce.Message)
	assert.ErrorIs(t, ce, plain)
}
