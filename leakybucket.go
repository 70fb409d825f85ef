package cellrate

import (
	"fmt"
	"time"
)

// LeakyBucketState is (level, lastUpdate): the fill level and the instant
// it was last computed at. valid=false means the bucket has never been
// checked (the zero value is a fresh, empty bucket).
type LeakyBucketState struct {
	level      time.Duration
	lastUpdate time.Time
	valid      bool
}

// LeakyBucket implements a leaky-bucket meter: a fill level that drains
// (drips) at a constant rate, computed lazily on each check rather than by
// a background task.
type LeakyBucket struct {
	capacity      uint32
	cellWeight    uint32
	full          time.Duration // total drain time of a full bucket
	tokenInterval time.Duration // drain time added per cell
}

// NewLeakyBucket constructs a LeakyBucket limiting to capacity cells (each
// weighing cellWeight) per perTimeUnit. Returns *InconsistentCapacityError
// if cellWeight exceeds capacity, or either is zero.
func NewLeakyBucket(capacity, cellWeight uint32, perTimeUnit time.Duration) (*LeakyBucket, error) {
	if err := checkCapacity(capacity, cellWeight); err != nil {
		return nil, err
	}
	return &LeakyBucket{
		capacity:      capacity,
		cellWeight:    cellWeight,
		full:          perTimeUnit,
		tokenInterval: perTimeUnit * time.Duration(cellWeight) / time.Duration(capacity),
	}, nil
}

// NewLeakyBucketPerSecond is NewLeakyBucket(capacity, 1, time.Second).
func NewLeakyBucketPerSecond(capacity uint32) (*LeakyBucket, error) {
	return NewLeakyBucket(capacity, 1, time.Second)
}

// Capacity returns the capacity this LeakyBucket was constructed with.
func (b *LeakyBucket) Capacity() uint32 { return b.capacity }

// CellWeight returns the cell weight this LeakyBucket was constructed with.
func (b *LeakyBucket) CellWeight() uint32 { return b.cellWeight }

var _ Algorithm[LeakyBucketState] = (*LeakyBucket)(nil)

func (b *LeakyBucket) TestAndUpdate(cell *StateCell[LeakyBucketState], at time.Time) error {
	return unwrapSingleCell[LeakyBucketNonConformance](b.TestNAndUpdate(cell, 1, at))
}

func (b *LeakyBucket) TestNAndUpdate(cell *StateCell[LeakyBucketState], n uint32, at time.Time) error {
	weight := b.tokenInterval * time.Duration(n)
	if weight > b.full {
		return &InsufficientCapacity{N: n}
	}
	return cell.MeasureAndReplace(func(s LeakyBucketState) (error, *LeakyBucketState) {
		last := at
		if s.valid {
			last = s.lastUpdate
		}
		// Defensive against non-monotonic clocks or interleaved calls:
		// never let time appear to run backwards relative to the last
		// observation.
		t0 := at
		if t0.Before(last) {
			t0 = last
		}

		drained := saturatingSub(t0, last)
		if drained > s.level {
			drained = s.level
		}
		newLevel := s.level - drained

		if newLevel+weight <= b.full {
			return nil, &LeakyBucketState{level: newLevel + weight, lastUpdate: t0, valid: true}
		}

		wait := (newLevel + weight) - b.full
		nc := LeakyBucketNonConformance{t: t0, wait: wait}
		return &BatchNonConforming[LeakyBucketNonConformance]{N: n, NC: nc}, nil
	})
}

func (b *LeakyBucket) Touched(s LeakyBucketState) (time.Time, bool) {
	if !s.valid {
		return time.Time{}, false
	}
	return s.lastUpdate.Add(s.level), true
}

// LeakyBucketNonConformance carries the instant a rejected check occurred
// at, and how much longer the caller must wait from that instant.
type LeakyBucketNonConformance struct {
	t    time.Time
	wait time.Duration
}

func (nc LeakyBucketNonConformance) Error() string {
	return fmt.Sprintf("cellrate: leaky bucket: too early, wait %s from %s", nc.wait, nc.t)
}

func (nc LeakyBucketNonConformance) EarliestPossible() time.Time { return nc.t.Add(nc.wait) }

func (nc LeakyBucketNonConformance) WaitTimeFrom(from time.Time) time.Duration {
	return saturatingSub(nc.t.Add(nc.wait), from)
}
