package cellrate

import (
	"sync"
	"sync/atomic"
	"time"
)

// KeyedRateLimiter maintains one independent bucket per key, backed by a
// read-optimized concurrent map: a sync.Map for lock-free lookups of
// existing keys, guarded against the expiration sweep by a sync.RWMutex,
// holding one Algorithm's StateCell per key.
//
// Two concurrent first checks of the same key may both construct a fresh
// bucket, but sync.Map.LoadOrStore guarantees only one is actually stored:
// the other discards its candidate and proceeds against the winner's
// cell, so there is no lost-update window at all.
type KeyedRateLimiter[K comparable, S any] struct {
	algo  Algorithm[S]
	clock Clock
	cells sync.Map // K -> *StateCell[S]
	mu    sync.RWMutex
	count int64
}

// NewKeyedRateLimiter returns a KeyedRateLimiter with no keys yet tracked.
// A nil clock uses the platform's wall clock.
func NewKeyedRateLimiter[K comparable, S any](algo Algorithm[S], clock Clock) *KeyedRateLimiter[K, S] {
	if clock == nil {
		clock = realClock{}
	}
	return &KeyedRateLimiter[K, S]{algo: algo, clock: clock}
}

// Check tests and, if conforming, admits a single cell for key at the
// current time.
func (k *KeyedRateLimiter[K, S]) Check(key K) error {
	return k.CheckNAt(key, 1, k.clock.Now())
}

// CheckN tests and, if conforming, admits a batch of n cells for key at
// the current time.
func (k *KeyedRateLimiter[K, S]) CheckN(key K, n uint32) error {
	return k.CheckNAt(key, n, k.clock.Now())
}

// CheckAt tests and, if conforming, admits a single cell for key at the
// given instant.
func (k *KeyedRateLimiter[K, S]) CheckAt(key K, at time.Time) error {
	return k.CheckNAt(key, 1, at)
}

// CheckNAt tests and, if conforming, admits a batch of n cells for key at
// the given instant, creating key's bucket if this is its first check.
func (k *KeyedRateLimiter[K, S]) CheckNAt(key K, n uint32, at time.Time) error {
	// Held for the duration of the call, read-side, so that Cleanup
	// (write-side) never observes a bucket mid-check.
	k.mu.RLock()
	defer k.mu.RUnlock()

	cell := k.cellFor(key)
	if n == 1 {
		return k.algo.TestAndUpdate(cell, at)
	}
	return k.algo.TestNAndUpdate(cell, n, at)
}

// cellForRace is a test seam: it runs after the fast-path Load miss but
// before LoadOrStore, so tests can pin two goroutines at the insertion
// race for the same key. The zero value is a no-op.
var cellForRace = func() {}

func (k *KeyedRateLimiter[K, S]) cellFor(key K) *StateCell[S] {
	if v, ok := k.cells.Load(key); ok {
		return v.(*StateCell[S])
	}
	var zero S
	cellForRace()
	v, loaded := k.cells.LoadOrStore(key, NewStateCell(zero))
	if !loaded {
		atomic.AddInt64(&k.count, 1)
	}
	return v.(*StateCell[S])
}

// Len returns the number of keys currently tracked.
func (k *KeyedRateLimiter[K, S]) Len() int {
	return int(atomic.LoadInt64(&k.count))
}

// Cleanup removes every key whose bucket has been dormant for at least
// minAge as of the current time, and returns the removed keys.
func (k *KeyedRateLimiter[K, S]) Cleanup(minAge time.Duration) []K {
	return k.CleanupAt(minAge, k.clock.Now())
}

// CleanupAt removes every key whose bucket's last_touched instant is
// strictly before at.Add(-minAge), and returns the removed keys. A bucket
// that has never been checked is always treated as fresh and never
// removed.
func (k *KeyedRateLimiter[K, S]) CleanupAt(minAge time.Duration, at time.Time) []K {
	cutoff := at.Add(-minAge)

	var stale []K
	k.cells.Range(func(key, value any) bool {
		cell := value.(*StateCell[S])
		touched, ok := k.algo.Touched(cell.Snapshot())
		if ok && touched.Before(cutoff) {
			stale = append(stale, key.(K))
		}
		return true
	})

	if len(stale) == 0 {
		return nil
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	for _, key := range stale {
		if _, ok := k.cells.LoadAndDelete(key); ok {
			atomic.AddInt64(&k.count, -1)
		}
	}
	return stale
}
