package cellrate

import (
	"fmt"
	"time"
)

// NonConformance describes a rejected cell (or batch): an instant at which
// it would have conformed, and the wait-time computation relative to any
// other instant.
type NonConformance interface {
	error
	// EarliestPossible returns the instant at which the rejected cell(s)
	// would conform, if submitted again.
	EarliestPossible() time.Time
	// WaitTimeFrom returns how long to wait from "from" before retrying,
	// saturating to zero if the answer would otherwise be negative.
	WaitTimeFrom(from time.Time) time.Duration
}

// InsufficientCapacity means a batch of N cells can never conform, no
// matter how long the caller waits: it exceeds the bucket's maximum
// possible burst. Unlike BatchNonConforming, it carries no NonConformance -
// there is no later instant to retry at.
type InsufficientCapacity struct {
	N uint32
}

func (e *InsufficientCapacity) Error() string {
	return fmt.Sprintf("cellrate: batch of %d cells exceeds the bucket's maximum burst", e.N)
}

// BatchNonConforming means a batch of N cells would conform eventually,
// but does not at the instant it was tested. NC carries the
// algorithm-specific detail needed to compute when.
type BatchNonConforming[NC NonConformance] struct {
	N  uint32
	NC NC
}

func (e *BatchNonConforming[NC]) Error() string {
	return fmt.Sprintf("cellrate: batch of %d cells: %s", e.N, e.NC.Error())
}

// EarliestPossible delegates to the wrapped NonConformance, so callers can
// treat a *BatchNonConforming[NC] as a NonConformance directly.
func (e *BatchNonConforming[NC]) EarliestPossible() time.Time { return e.NC.EarliestPossible() }

// WaitTimeFrom delegates to the wrapped NonConformance.
func (e *BatchNonConforming[NC]) WaitTimeFrom(from time.Time) time.Duration {
	return e.NC.WaitTimeFrom(from)
}
