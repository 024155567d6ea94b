package ratelimiter

import (
	"context"
	"sync"
	"time"
)

// Store keeps bucket state. ConsumeTokens returns the balance after
// spending tokens, negative when the request must be denied.
type Store interface {
	ConsumeTokens(ctx context.Context, key string, tokens int, config Config) (remaining int, resetAt time.Time, err error)
	Reset(ctx context.Context, key string) error
}

type memoryBucket struct {
	tokens     int
	lastRefill time.Time
	lastSeen   time.Time
}

// MemoryStore keeps buckets in process. Limits are per replica.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*memoryBucket

	now        func() time.Time
	sweepEvery time.Duration
	staleAfter time.Duration
	done       chan struct{}
	closeOnce  sync.Once
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval sets how often idle buckets are dropped. Zero disables the sweeper.
func WithCleanupInterval(d time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) { ms.sweepEvery = d }
}

// WithStaleAfter sets how long a bucket may stay idle before the sweeper drops it.
func WithStaleAfter(d time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if d > 0 {
			ms.staleAfter = d
		}
	}
}

// WithStoreClock overrides time.Now.
func WithStoreClock(now func() time.Time) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if now != nil {
			ms.now = now
		}
	}
}

func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	ms := &MemoryStore{
		buckets:    make(map[string]*memoryBucket),
		now:        time.Now,
		sweepEvery: 5 * time.Minute,
		staleAfter: time.Hour,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(ms)
	}
	if ms.sweepEvery > 0 {
		go ms.sweepLoop()
	}
	return ms
}

func (ms *MemoryStore) ConsumeTokens(_ context.Context, key string, tokens int, config Config) (int, time.Time, error) {
	now := ms.now()

	ms.mu.Lock()
	defer ms.mu.Unlock()

	b, ok := ms.buckets[key]
	if !ok {
		b = &memoryBucket{tokens: config.Capacity, lastRefill: now}
		ms.buckets[key] = b
	}

	if n := min(int64(now.Sub(b.lastRefill)/config.RefillInterval), config.maxIntervals()); n > 0 {
		b.tokens = min(b.tokens+int(n)*config.RefillRate, config.Capacity)
		b.lastRefill = now
	}
	b.tokens -= tokens
	b.lastSeen = now

	return b.tokens, b.lastRefill.Add(config.RefillInterval), nil
}

func (ms *MemoryStore) Reset(_ context.Context, key string) error {
	ms.mu.Lock()
	delete(ms.buckets, key)
	ms.mu.Unlock()
	return nil
}

// Sweep drops buckets idle for longer than the stale threshold and
// returns how many were removed.
func (ms *MemoryStore) Sweep() int {
	cutoff := ms.now().Add(-ms.staleAfter)

	ms.mu.Lock()
	defer ms.mu.Unlock()

	removed := 0
	for key, b := range ms.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(ms.buckets, key)
			removed++
		}
	}
	return removed
}

func (ms *MemoryStore) sweepLoop() {
	ticker := time.NewTicker(ms.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			ms.Sweep()
		case <-ms.done:
			return
		}
	}
}

// Close stops the sweeper. It is safe to call more than once.
func (ms *MemoryStore) Close() {
	ms.closeOnce.Do(func() { close(ms.done) })
}
