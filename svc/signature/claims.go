package signature

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	rediskey "github.com/cepalab/signguard/pkg/redis"
)

// Claims records single-use keys.
type Claims interface {
	// Claim reports true for the first caller of key within ttl.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RedisClaims stores claims with SET NX so every replica sees them.
type RedisClaims struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisClaims(client redis.UniversalClient, prefix string) *RedisClaims {
	if client == nil {
		panic("signature: redis client cannot be nil")
	}
	return &RedisClaims{client: client, prefix: prefix}
}

func (c *RedisClaims) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, rediskey.Key(c.prefix, "claim", key), 1, ttl).Result()
}

// MemoryClaims is an in-process Claims for tests and single-node deployments.
type MemoryClaims struct {
	mu     sync.Mutex
	claims map[string]time.Time
	now    func() time.Time
}

// NewMemoryClaims uses now as its clock; nil means time.Now.
func NewMemoryClaims(now func() time.Time) *MemoryClaims {
	if now == nil {
		now = time.Now
	}
	return &MemoryClaims{claims: make(map[string]time.Time), now: now}
}

func (c *MemoryClaims) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if until, ok := c.claims[key]; ok && now.Before(until) {
		return false, nil
	}
	c.claims[key] = now.Add(ttl)

	for k, until := range c.claims {
		if !now.Before(until) {
			delete(c.claims, k)
		}
	}
	return true, nil
}
