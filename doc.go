// Package cellrate implements metered rate limiting for a stream of
// "cells" (atomic units of work: requests, packets, messages). Given a
// cell (or a batch of n cells) arriving at a given instant, it decides
// whether admitting it would keep the aggregate arrival rate within a
// configured envelope, and updates its internal state accordingly.
//
// It is a library, not a service: callers embed a DirectRateLimiter or
// KeyedRateLimiter directly on their hot path. Two algorithms are
// provided, GCRA (virtual scheduling) and LeakyBucket (a fill-level
// meter), both built on StateCell for safe concurrent read-decide-maybe-write
// transitions. KeyedRateLimiter layers one independent bucket per key on
// top, with caller-driven expiration of dormant keys.
package cellrate
