// Package ratelimiter provides token bucket rate limiting with memory and
// Redis storage plus HTTP middleware.
//
// The verification endpoints use it to slow down code guessing per client IP
// and user, on top of the per-challenge attempt limit.
//
// # Basic Usage
//
//	store := ratelimiter.NewMemoryStore()
//	defer store.Close()
//
//	limiter, err := ratelimiter.NewBucket(store, ratelimiter.Config{
//		Capacity:       10,
//		RefillRate:     1,
//		RefillInterval: 6 * time.Second,
//	})
//
//	result, err := limiter.Allow(ctx, "user:123")
//	if err == nil && !result.Allowed() {
//		// retry after result.RetryAfter()
//	}
//
// With several replicas use NewRedisStore instead; the refill rule runs as a
// Lua script so concurrent requests cannot overspend a bucket.
//
// # HTTP Middleware
//
//	mw := ratelimiter.Middleware(limiter,
//		ratelimiter.Composite(clientIPKey, userKey),
//		ratelimiter.WithLimitedHandler(writeJSON429),
//	)
//
// The middleware sets X-RateLimit-Limit, X-RateLimit-Remaining,
// X-RateLimit-Reset and, when denied, Retry-After. Keys longer than 64
// characters built by Composite are hashed with FNV-1a.
//
// # Token Bucket Algorithm
//
//  1. Tokens are added at RefillRate per RefillInterval, up to Capacity
//  2. Each request consumes one or more tokens
//  3. A request that drives the balance negative is denied, and the debt
//     must be refilled before the next request passes
package ratelimiter
