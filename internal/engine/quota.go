package engine

// QuotaEnforcer counts the tasks one invocation executes and enforces the
// command chain length limit.
//
// Each invocation has its own QuotaEnforcer. Together with the function
// depth limit it guarantees termination: depth catches runaway recursion,
// the quota catches long flat expansions such as large forks of calls.
type QuotaEnforcer struct {
	maxSteps int // Maximum allowed tasks for this invocation
	current  int // Tasks executed so far
}

// NewQuotaEnforcer creates a new quota enforcer with the given limit.
// A limit of zero or less disables enforcement.
func NewQuotaEnforcer(maxSteps int) *QuotaEnforcer {
	return &QuotaEnforcer{
		maxSteps: maxSteps,
		current:  0,
	}
}

// Check increments the task counter and validates against the limit.
//
// Returns a fatal CommandQuotaExceeded error once the counter passes the
// limit. Call it before executing each task.
func (q *QuotaEnforcer) Check() error {
	q.current++
	if q.maxSteps > 0 && q.current > q.maxSteps {
		err := NewCommandQuotaExceeded(q.maxSteps)
		err.Actual = int64(q.current)
		return err
	}
	return nil
}

// Reset resets the task counter to 0.
func (q *QuotaEnforcer) Reset() {
	q.current = 0
}

// Current returns the number of tasks counted so far.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// MaxSteps returns the limit.
func (q *QuotaEnforcer) MaxSteps() int {
	return q.maxSteps
}

// IsQuotaError returns true if the error is a command quota error.
// Uses errors.As to handle wrapped errors.
func IsQuotaError(err error) bool {
	return KindOf(err) == ErrCommandQuotaExceeded
}
