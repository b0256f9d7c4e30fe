package engine

// ChainModifiers govern error reporting and return routing for a whole
// chain. Both flags only ever turn on.
type ChainModifiers struct {
	forked   bool
	isReturn bool
}

// DefaultModifiers is the state at the start of a top-level chain.
var DefaultModifiers = ChainModifiers{}

// SetForked marks the chain as running in a fork. Failures downstream
// contribute zero contexts instead of raising errors.
func (m ChainModifiers) SetForked() ChainModifiers {
	m.forked = true
	return m
}

// SetReturn marks the chain as the body of a return run.
func (m ChainModifiers) SetReturn() ChainModifiers {
	m.isReturn = true
	return m
}

func (m ChainModifiers) Forked() bool   { return m.forked }
func (m ChainModifiers) IsReturn() bool { return m.isReturn }
