package cellrate

import "time"

// DirectLimiterBuilder collects the knobs for a DirectRateLimiter before
// picking which algorithm to build against.
type DirectLimiterBuilder struct {
	capacity    uint32
	cellWeight  uint32
	perTimeUnit time.Duration
	clock       Clock
}

// BuildWithCapacity starts a DirectLimiterBuilder for the given capacity,
// defaulting to a cell weight of 1, a per-time-unit of one second, and the
// platform wall clock.
func BuildWithCapacity(capacity uint32) *DirectLimiterBuilder {
	return &DirectLimiterBuilder{capacity: capacity, cellWeight: 1, perTimeUnit: time.Second}
}

// WithCellWeight sets the weight of a single cell, for batch-aware
// capacity accounting.
func (b *DirectLimiterBuilder) WithCellWeight(w uint32) *DirectLimiterBuilder {
	b.cellWeight = w
	return b
}

// WithPerTimeUnit sets the time unit capacity is measured against.
func (b *DirectLimiterBuilder) WithPerTimeUnit(d time.Duration) *DirectLimiterBuilder {
	b.perTimeUnit = d
	return b
}

// UsingClock overrides the clock used by the built limiter.
func (b *DirectLimiterBuilder) UsingClock(c Clock) *DirectLimiterBuilder {
	b.clock = c
	return b
}

// BuildGCRA constructs a DirectRateLimiter[GCRAState] from the builder's
// settings.
func (b *DirectLimiterBuilder) BuildGCRA() (*DirectRateLimiter[GCRAState], error) {
	algo, err := NewGCRA(b.capacity, b.cellWeight, b.perTimeUnit)
	if err != nil {
		return nil, err
	}
	return NewDirectRateLimiter[GCRAState](algo, b.clock), nil
}

// BuildLeakyBucket constructs a DirectRateLimiter[LeakyBucketState] from
// the builder's settings.
func (b *DirectLimiterBuilder) BuildLeakyBucket() (*DirectRateLimiter[LeakyBucketState], error) {
	algo, err := NewLeakyBucket(b.capacity, b.cellWeight, b.perTimeUnit)
	if err != nil {
		return nil, err
	}
	return NewDirectRateLimiter[LeakyBucketState](algo, b.clock), nil
}

// KeyedLimiterBuilder collects the knobs for a KeyedRateLimiter before
// picking which algorithm to build against. WithMapCapacity only advises
// the initial sizing hint; Go's sync.Map has no pre-sizing hook, so it is
// currently unused.
type KeyedLimiterBuilder[K comparable] struct {
	capacity    uint32
	cellWeight  uint32
	perTimeUnit time.Duration
	mapCapacity int
	clock       Clock
}

// BuildKeyedWithCapacity starts a KeyedLimiterBuilder[K] for the given
// per-key capacity, defaulting to a cell weight of 1, a per-time-unit of
// one second, and the platform wall clock.
func BuildKeyedWithCapacity[K comparable](capacity uint32) *KeyedLimiterBuilder[K] {
	return &KeyedLimiterBuilder[K]{capacity: capacity, cellWeight: 1, perTimeUnit: time.Second}
}

// WithCellWeight sets the weight of a single cell, for batch-aware
// capacity accounting.
func (b *KeyedLimiterBuilder[K]) WithCellWeight(w uint32) *KeyedLimiterBuilder[K] {
	b.cellWeight = w
	return b
}

// WithPerTimeUnit sets the time unit capacity is measured against.
func (b *KeyedLimiterBuilder[K]) WithPerTimeUnit(d time.Duration) *KeyedLimiterBuilder[K] {
	b.perTimeUnit = d
	return b
}

// WithMapCapacity hints at the expected number of distinct keys.
func (b *KeyedLimiterBuilder[K]) WithMapCapacity(n int) *KeyedLimiterBuilder[K] {
	b.mapCapacity = n
	return b
}

// UsingClock overrides the clock used by the built limiter.
func (b *KeyedLimiterBuilder[K]) UsingClock(c Clock) *KeyedLimiterBuilder[K] {
	b.clock = c
	return b
}

// BuildGCRA constructs a KeyedRateLimiter[K, GCRAState] from the
// builder's settings.
func (b *KeyedLimiterBuilder[K]) BuildGCRA() (*KeyedRateLimiter[K, GCRAState], error) {
	algo, err := NewGCRA(b.capacity, b.cellWeight, b.perTimeUnit)
	if err != nil {
		return nil, err
	}
	return NewKeyedRateLimiter[K, GCRAState](algo, b.clock), nil
}

// BuildLeakyBucket constructs a KeyedRateLimiter[K, LeakyBucketState] from
// the builder's settings.
func (b *KeyedLimiterBuilder[K]) BuildLeakyBucket() (*KeyedRateLimiter[K, LeakyBucketState], error) {
	algo, err := NewLeakyBucket(b.capacity, b.cellWeight, b.perTimeUnit)
	if err != nil {
		return nil, err
	}
	return NewKeyedRateLimiter[K, LeakyBucketState](algo, b.clock), nil
}
