package cellrate

import (
	"fmt"
	"time"
)

// GCRAState is the theoretical arrival time (TAT) of the next cell.
// valid=false means "fresh, never used" (the None case); the zero value is
// a fresh bucket.
type GCRAState struct {
	tat   time.Time
	valid bool
}

// GCRA implements the Generic Cell Rate Algorithm: a virtual-scheduling
// rate limiter that tracks a single theoretical arrival time per bucket.
type GCRA struct {
	capacity   uint32
	cellWeight uint32
	t          time.Duration // per-cell emission interval
	tau        time.Duration // burst capacity window
}

// NewGCRA constructs a GCRA limiting to capacity cells (each weighing
// cellWeight) per perTimeUnit. Returns *InconsistentCapacityError if
// cellWeight exceeds capacity, or either is zero.
func NewGCRA(capacity, cellWeight uint32, perTimeUnit time.Duration) (*GCRA, error) {
	if err := checkCapacity(capacity, cellWeight); err != nil {
		return nil, err
	}
	return &GCRA{
		capacity:   capacity,
		cellWeight: cellWeight,
		t:          perTimeUnit * time.Duration(cellWeight) / time.Duration(capacity),
		tau:        perTimeUnit,
	}, nil
}

// NewGCRAPerSecond is NewGCRA(capacity, 1, time.Second).
func NewGCRAPerSecond(capacity uint32) (*GCRA, error) {
	return NewGCRA(capacity, 1, time.Second)
}

// Capacity returns the capacity this GCRA was constructed with.
func (g *GCRA) Capacity() uint32 { return g.capacity }

// CellWeight returns the cell weight this GCRA was constructed with.
func (g *GCRA) CellWeight() uint32 { return g.cellWeight }

var _ Algorithm[GCRAState] = (*GCRA)(nil)

func (g *GCRA) TestAndUpdate(cell *StateCell[GCRAState], at time.Time) error {
	return unwrapSingleCell[GCRANonConformance](g.TestNAndUpdate(cell, 1, at))
}

func (g *GCRA) TestNAndUpdate(cell *StateCell[GCRAState], n uint32, at time.Time) error {
	if n != 0 && g.t*time.Duration(n) > g.tau {
		return &InsufficientCapacity{N: n}
	}
	return cell.MeasureAndReplace(func(s GCRAState) (error, *GCRAState) {
		return g.decide(s, n, at)
	})
}

func (g *GCRA) decide(s GCRAState, n uint32, t0 time.Time) (error, *GCRAState) {
	if n == 0 {
		// A zero-cell query still touches the bucket: it sets the TAT to
		// t0 whatever the prior state (fresh or not), and never rejects.
		return nil, &GCRAState{tat: t0, valid: true}
	}

	tat := t0
	if s.valid {
		tat = s.tat
	}

	var additional time.Duration
	tatEff := tat
	if n == 1 {
		additional = g.t
	} else {
		additional = g.t * time.Duration(n)
		tatEff = tat.Add(g.t * time.Duration(n-1))
	}

	if t0.Before(tatEff.Add(-g.tau)) {
		nc := GCRANonConformance{tat: tatEff}
		return &BatchNonConforming[GCRANonConformance]{N: n, NC: nc}, nil
	}

	newTat := tatEff
	if t0.After(tatEff) {
		newTat = t0
	}
	newTat = newTat.Add(additional)
	return nil, &GCRAState{tat: newTat, valid: true}
}

func (g *GCRA) Touched(s GCRAState) (time.Time, bool) {
	return s.tat, s.valid
}

// GCRANonConformance carries the TAT a rejected GCRA cell would need to
// wait for.
type GCRANonConformance struct {
	tat time.Time
}

func (nc GCRANonConformance) Error() string {
	return fmt.Sprintf("cellrate: gcra: not conforming until %s", nc.tat)
}

func (nc GCRANonConformance) EarliestPossible() time.Time { return nc.tat }

func (nc GCRANonConformance) WaitTimeFrom(from time.Time) time.Duration {
	return saturatingSub(nc.tat, from)
}
