package ratelimiter_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cepalab/signguard/pkg/ratelimiter"
)

var (
	_ ratelimiter.Store       = (*ratelimiter.MemoryStore)(nil)
	_ ratelimiter.Store       = (*ratelimiter.RedisStore)(nil)
	_ ratelimiter.RateLimiter = (*ratelimiter.Bucket)(nil)
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newStore(t *testing.T, clk *clock) *ratelimiter.MemoryStore {
	t.Helper()
	store := ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(0), ratelimiter.WithStoreClock(clk.Now))
	t.Cleanup(store.Close)
	return store
}

func newBucket(t *testing.T, cfg ratelimiter.Config) *ratelimiter.Bucket {
	t.Helper()
	b, err := ratelimiter.NewBucket(newStore(t, &clock{now: time.Now()}), cfg)
	require.NoError(t, err)
	return b
}

func TestBucketAllow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	b := newBucket(t, ratelimiter.Config{Capacity: 3, RefillRate: 1, RefillInterval: time.Hour})

	for i := range 3 {
		res, err := b.Allow(ctx, "ip:1")
		require.NoError(t, err)
		assert.True(t, res.Allowed(), "request %d", i)
		assert.Equal(t, 3, res.Limit)
		assert.Equal(t, 2-i, res.Remaining)
	}

	res, err := b.Allow(ctx, "ip:1")
	require.NoError(t, err)
	assert.False(t, res.Allowed())
	assert.Positive(t, res.RetryAfter())

	res, err = b.Allow(ctx, "ip:2")
	require.NoError(t, err)
	assert.True(t, res.Allowed())

	require.NoError(t, b.Reset(ctx, "ip:1"))
	res, err = b.Allow(ctx, "ip:1")
	require.NoError(t, err)
	assert.True(t, res.Allowed())
}

func TestBucketRefill(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	clk := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	b, err := ratelimiter.NewBucket(newStore(t, clk), ratelimiter.Config{Capacity: 2, RefillRate: 1, RefillInterval: time.Minute})
	require.NoError(t, err)

	res, err := b.AllowN(ctx, "k", 2)
	require.NoError(t, err)
	require.Equal(t, 0, res.Remaining)

	res, err = b.Allow(ctx, "k")
	require.NoError(t, err)
	require.False(t, res.Allowed())
	assert.Equal(t, clk.Now().Add(time.Minute), res.ResetAt)

	// The denied request left a debt of one token.
	clk.Advance(time.Minute)
	res, err = b.Allow(ctx, "k")
	require.NoError(t, err)
	assert.False(t, res.Allowed())

	clk.Advance(3 * time.Minute)
	res, err = b.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, res.Allowed())
	assert.Equal(t, 1, res.Remaining)

	// A long idle period never refills past capacity.
	clk.Advance(24 * time.Hour)
	res, err = b.Allow(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Remaining)
}

func TestMemoryStoreSweep(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	clk := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := ratelimiter.NewMemoryStore(
		ratelimiter.WithCleanupInterval(0),
		ratelimiter.WithStoreClock(clk.Now),
		ratelimiter.WithStaleAfter(10*time.Minute),
	)
	t.Cleanup(store.Close)
	cfg := ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Hour}

	_, _, err := store.ConsumeTokens(ctx, "old", 1, cfg)
	require.NoError(t, err)
	clk.Advance(9 * time.Minute)
	_, _, err = store.ConsumeTokens(ctx, "fresh", 1, cfg)
	require.NoError(t, err)

	clk.Advance(2 * time.Minute)
	assert.Equal(t, 1, store.Sweep())

	// The swept key starts over with a full bucket; the kept one is still empty.
	remaining, _, err := store.ConsumeTokens(ctx, "old", 1, cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
	remaining, _, err = store.ConsumeTokens(ctx, "fresh", 1, cfg)
	require.NoError(t, err)
	assert.Equal(t, -1, remaining)

	store.Close()
	store.Close()
}

func TestBucketValidation(t *testing.T) {
	t.Parallel()

	store := newStore(t, &clock{now: time.Now()})

	for _, cfg := range []ratelimiter.Config{
		{Capacity: 0, RefillRate: 1, RefillInterval: time.Second},
		{Capacity: 1, RefillRate: 0, RefillInterval: time.Second},
		{Capacity: 1, RefillRate: 1, RefillInterval: 0},
	} {
		_, err := ratelimiter.NewBucket(store, cfg)
		assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)
	}

	_, err := ratelimiter.NewBucket(nil, ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Second})
	assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)

	b, err := ratelimiter.NewBucket(store, ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Second})
	require.NoError(t, err)
	_, err = b.AllowN(context.Background(), "k", 0)
	assert.ErrorIs(t, err, ratelimiter.ErrInvalidTokenCount)
}
