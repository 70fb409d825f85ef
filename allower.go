package cellrate

import "time"

// AllowerState is Allower's (empty) bucket state.
type AllowerState struct{}

// Allower is a no-op Algorithm that admits every cell unconditionally. It
// exists only as a baseline for benchmarking contrast against GCRA and
// LeakyBucket, never for production rate limiting.
type Allower struct{}

var _ Algorithm[AllowerState] = Allower{}

func (Allower) TestAndUpdate(*StateCell[AllowerState], time.Time) error { return nil }

func (Allower) TestNAndUpdate(*StateCell[AllowerState], uint32, time.Time) error { return nil }

func (Allower) Touched(AllowerState) (time.Time, bool) { return time.Time{}, false }
