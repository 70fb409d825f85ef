package cellrate

import (
	"math/rand"
	"sync"
	"time"
)

// JitterSource supplies a pseudorandom Duration in [0, max]. The default
// used by Jitter wraps math/rand; tests can substitute a deterministic
// source.
type JitterSource interface {
	Sample(max time.Duration) time.Duration
}

type mathRandSource struct{}

func (mathRandSource) Sample(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(max) + 1))
}

// Jitter adapts a rejection's wait time by adding a sampled offset in
// [min, min+interval], desynchronizing retrying clients. The offset for a
// given rejection is sampled once and memoized, not resampled on every
// WaitTimeFrom call.
type Jitter struct {
	min      time.Duration
	interval time.Duration
	source   JitterSource
}

// NewJitter returns a Jitter sampling an offset uniformly from
// [min, min+interval].
func NewJitter(min, interval time.Duration) *Jitter {
	return &Jitter{min: min, interval: interval, source: mathRandSource{}}
}

// JitterUpTo is NewJitter(0, max).
func JitterUpTo(max time.Duration) *Jitter {
	return NewJitter(0, max)
}

// WithSource overrides the pseudorandom source, for deterministic tests.
func (j *Jitter) WithSource(s JitterSource) *Jitter {
	j.source = s
	return j
}

func (j *Jitter) sample() time.Duration {
	return j.min + j.source.Sample(j.interval)
}

// Wrap inflates err's reported wait time by a sampled offset, if err
// implements NonConformance. Any other error (notably *InsufficientCapacity,
// which has no wait time to inflate) is returned unchanged.
func (j *Jitter) Wrap(err error) error {
	if err == nil {
		return nil
	}
	nc, ok := err.(NonConformance)
	if !ok {
		return err
	}
	return &jitteredNonConformance{NonConformance: nc, jitter: j}
}

type jitteredNonConformance struct {
	NonConformance
	jitter *Jitter
	once   sync.Once
	offset time.Duration
}

func (n *jitteredNonConformance) offsetOnce() time.Duration {
	n.once.Do(func() {
		n.offset = n.jitter.sample()
	})
	return n.offset
}

func (n *jitteredNonConformance) EarliestPossible() time.Time {
	return n.NonConformance.EarliestPossible().Add(n.offsetOnce())
}

func (n *jitteredNonConformance) WaitTimeFrom(from time.Time) time.Duration {
	return saturatingSub(n.EarliestPossible(), from)
}

func (n *jitteredNonConformance) Unwrap() error { return n.NonConformance }
