package cellrate

import "sync"

// StateCell is a shared, mutable holder for one bucket's state, guarded by
// a single mutex: a short critical section around arithmetic on
// time.Time/time.Duration, never held across anything that could block.
//
// A StateCell must not be copied after first use.
type StateCell[S any] struct {
	mu    sync.Mutex
	state S
}

// NewStateCell returns a StateCell holding initial.
func NewStateCell[S any](initial S) *StateCell[S] {
	return &StateCell[S]{state: initial}
}

// Snapshot returns a copy of the current state. It makes no progress
// guarantee under contention: a concurrent MeasureAndReplace may be
// observed before or after, never torn.
func (c *StateCell[S]) Snapshot() S {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// MeasureAndReplace acquires exclusive access to the cell's state, invokes
// f with the current value, and commits f's returned state iff it is
// non-nil. f's error return is passed through unchanged either way.
//
// f must not call back into this StateCell (or any method that would lock
// it again) - re-entrance is not supported and will deadlock.
func (c *StateCell[S]) MeasureAndReplace(f func(S) (error, *S)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err, next := f(c.state)
	if next != nil {
		c.state = *next
	}
	return err
}
