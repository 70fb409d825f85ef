package cellrate

import (
	"fmt"
	"time"
)

// Algorithm is the contract shared by GCRA, LeakyBucket, and Allower: given
// a shared StateCell, a batch size, and a timestamp, decide whether the
// batch conforms, and commit any resulting state change atomically with
// that decision.
//
// Implementations are closed to this package; S is each algorithm's
// bucket-state type (GCRAState, LeakyBucketState, AllowerState).
type Algorithm[S any] interface {
	// TestAndUpdate is the single-cell case. It must behave exactly as
	// TestNAndUpdate(cell, 1, at), unwrapped to the algorithm's
	// NonConformance on rejection.
	TestAndUpdate(cell *StateCell[S], at time.Time) error
	// TestNAndUpdate tests and, if conforming, admits a batch of n cells
	// at the given instant. Returns nil, *InsufficientCapacity, or
	// *BatchNonConforming[NC] for this algorithm's NonConformance type NC.
	TestNAndUpdate(cell *StateCell[S], n uint32, at time.Time) error
	// Touched reports the instant at which the bucket's state was last
	// meaningfully advanced, for keyed expiration. ok is false for a
	// bucket that has never been checked - such a bucket is always
	// treated as fresh (never expires).
	Touched(state S) (t time.Time, ok bool)
}

// unwrapSingleCell implements the "test_and_update defaults to n=1" rule
// shared by every Algorithm in this package: any error other than a
// single-cell BatchNonConforming is a contract violation by the
// algorithm's own TestNAndUpdate and aborts the process, since it means
// the algorithm rejected a single cell as a capacity failure, which must
// be unreachable whenever the bucket was constructed with cellWeight <=
// capacity.
func unwrapSingleCell[NC NonConformance](err error) error {
	if err == nil {
		return nil
	}
	if bnc, ok := err.(*BatchNonConforming[NC]); ok {
		return bnc.NC
	}
	panic(fmt.Sprintf("cellrate: algorithm returned %v for a single-cell check: contract violation", err))
}
