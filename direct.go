package cellrate

import "time"

// DirectRateLimiter pairs a single Algorithm with a single StateCell and a
// Clock: one bucket, checked directly rather than looked up by key.
type DirectRateLimiter[S any] struct {
	algo  Algorithm[S]
	cell  *StateCell[S]
	clock Clock
}

// NewDirectRateLimiter returns a DirectRateLimiter starting from a fresh
// (zero-value) bucket state. A nil clock uses the platform's wall clock.
func NewDirectRateLimiter[S any](algo Algorithm[S], clock Clock) *DirectRateLimiter[S] {
	if clock == nil {
		clock = realClock{}
	}
	var zero S
	return &DirectRateLimiter[S]{algo: algo, cell: NewStateCell(zero), clock: clock}
}

// Check tests and, if conforming, admits a single cell at the current
// time.
func (d *DirectRateLimiter[S]) Check() error {
	return d.algo.TestAndUpdate(d.cell, d.clock.Now())
}

// CheckN tests and, if conforming, admits a batch of n cells at the
// current time.
func (d *DirectRateLimiter[S]) CheckN(n uint32) error {
	return d.algo.TestNAndUpdate(d.cell, n, d.clock.Now())
}

// CheckAt tests and, if conforming, admits a single cell at the given
// instant.
func (d *DirectRateLimiter[S]) CheckAt(at time.Time) error {
	return d.algo.TestAndUpdate(d.cell, at)
}

// CheckNAt tests and, if conforming, admits a batch of n cells at the
// given instant.
func (d *DirectRateLimiter[S]) CheckNAt(n uint32, at time.Time) error {
	return d.algo.TestNAndUpdate(d.cell, n, at)
}

// Snapshot returns a copy of the current bucket state, for inspection or
// tests.
func (d *DirectRateLimiter[S]) Snapshot() S {
	return d.cell.Snapshot()
}

// Clone returns a second handle sharing the same underlying StateCell: a
// check through either handle is visible to the other.
func (d *DirectRateLimiter[S]) Clone() *DirectRateLimiter[S] {
	return &DirectRateLimiter[S]{algo: d.algo, cell: d.cell, clock: d.clock}
}

// NewGCRALimiter is a DirectRateLimiter[GCRAState] constructed over a new
// GCRA(capacity, 1, perTimeUnit).
func NewGCRALimiter(capacity uint32, perTimeUnit time.Duration, clock Clock) (*DirectRateLimiter[GCRAState], error) {
	algo, err := NewGCRA(capacity, 1, perTimeUnit)
	if err != nil {
		return nil, err
	}
	return NewDirectRateLimiter[GCRAState](algo, clock), nil
}

// NewGCRALimiterPerSecond is NewGCRALimiter(capacity, time.Second, nil).
func NewGCRALimiterPerSecond(capacity uint32) (*DirectRateLimiter[GCRAState], error) {
	return NewGCRALimiter(capacity, time.Second, nil)
}

// NewLeakyBucketLimiter is a DirectRateLimiter[LeakyBucketState]
// constructed over a new LeakyBucket(capacity, 1, perTimeUnit).
func NewLeakyBucketLimiter(capacity uint32, perTimeUnit time.Duration, clock Clock) (*DirectRateLimiter[LeakyBucketState], error) {
	algo, err := NewLeakyBucket(capacity, 1, perTimeUnit)
	if err != nil {
		return nil, err
	}
	return NewDirectRateLimiter[LeakyBucketState](algo, clock), nil
}

// NewLeakyBucketLimiterPerSecond is NewLeakyBucketLimiter(capacity,
// time.Second, nil).
func NewLeakyBucketLimiterPerSecond(capacity uint32) (*DirectRateLimiter[LeakyBucketState], error) {
	return NewLeakyBucketLimiter(capacity, time.Second, nil)
}
