package invoices

import (
	"context"
	"sync"
	"time"

	"github.com/tillworks/posedge/pkg/redis"
)

// Guard hands out at-most-one claims on an invoice uid for the duration of a
// sync attempt, so two lanes sharing a site server never submit the same
// sale concurrently. The uid-keyed backend makes double submission harmless
// either way; the guard just avoids wasted calls.
type Guard interface {
	Claim(ctx context.Context, uid string) (bool, error)
	Release(ctx context.Context, uid string) error
}

// MemoryGuard serves single-lane deployments.
type MemoryGuard struct {
	mu     sync.Mutex
	claims map[string]struct{}
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{claims: map[string]struct{}{}}
}

func (g *MemoryGuard) Claim(ctx context.Context, uid string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, taken := g.claims[uid]; taken {
		return false, nil
	}
	g.claims[uid] = struct{}{}
	return true, nil
}

func (g *MemoryGuard) Release(ctx context.Context, uid string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.claims, uid)
	return nil
}

// RedisGuard coordinates claims across lanes through a shared Redis.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisGuard(client *redis.Client, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisGuard{client: client, ttl: ttl}
}

func (g *RedisGuard) Claim(ctx context.Context, uid string) (bool, error) {
	return g.client.SetNX(ctx, g.client.IdempotencyKey("sync", uid), "claimed", g.ttl)
}

func (g *RedisGuard) Release(ctx context.Context, uid string) error {
	return g.client.Del(ctx, g.client.IdempotencyKey("sync", uid))
}
