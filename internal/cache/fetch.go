package cache

import (
	"context"
	"fmt"
	"time"
)

// Policy decides whether and for how long a data kind is cached. The no-store
// case is a distinct branch rather than a zero-TTL sentinel so the bypass
// path is statically checkable.
type Policy struct {
	ttl     time.Duration
	noStore bool
}

// TTL returns a policy that caches values for d.
func TTL(d time.Duration) Policy {
	return Policy{ttl: d}
}

// NoStore is the policy for data kinds that must always be fetched fresh
// (active alerts). The cache is bypassed entirely: no read, no write, no
// counter movement.
var NoStore = Policy{noStore: true}

// Duration returns the configured TTL (zero for NoStore).
func (p Policy) Duration() time.Duration {
	return p.ttl
}

// Cached reports whether the policy stores values at all.
func (p Policy) Cached() bool {
	return !p.noStore
}

// GetOrFetch returns the cached value for key when fresh, otherwise invokes
// fetch and caches a successful result for the policy's TTL. A failed fetch
// never writes to the cache, so a transient error cannot poison subsequent
// callers for the TTL window.
//
// Concurrent misses for the same key may each invoke fetch; the upstream
// calls are idempotent GETs, so the duplicate work is accepted instead of a
// single-flight layer.
func GetOrFetch[T any](ctx context.Context, c *Cache, key string, policy Policy, fetch func(context.Context) (T, error)) (T, error) {
	if !policy.Cached() {
		return fetch(ctx)
	}

	if v, ok := c.Get(key); ok {
		typed, ok := v.(T)
		if !ok {
			var zero T
			return zero, fmt.Errorf("cache entry %q holds %T, not %T", key, v, zero)
		}
		return typed, nil
	}

	v, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	c.Set(key, v, policy.Duration())
	return v, nil
}
