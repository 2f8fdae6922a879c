package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/deegraphics/melisse-backend/pkg/redis"
)

// ExportGuard deduplicates ledger exports per order channel. The ledger
// itself enforces no uniqueness, so the guard is where "export once" lives.
type ExportGuard interface {
	// FirstTime claims the key; false means it was already claimed.
	FirstTime(ctx context.Context, key string) (bool, error)
	// Forget releases a claim after a failed export so a retry can pass.
	Forget(ctx context.Context, key string)
}

// MemoryGuard is the single-process guard.
type MemoryGuard struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{seen: make(map[string]struct{})}
}

func (g *MemoryGuard) FirstTime(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.seen[key]; ok {
		return false, nil
	}
	g.seen[key] = struct{}{}
	return true, nil
}

func (g *MemoryGuard) Forget(_ context.Context, key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.seen, key)
}

const exportGuardTTL = 30 * 24 * time.Hour

// RedisGuard shares the claim set across processes via SETNX keys.
type RedisGuard struct {
	client *redis.Client
}

func NewRedisGuard(client *redis.Client) *RedisGuard {
	return &RedisGuard{client: client}
}

func (g *RedisGuard) FirstTime(ctx context.Context, key string) (bool, error) {
	return g.client.SetNX(ctx, g.client.IdempotencyKey("export", key), "1", exportGuardTTL)
}

func (g *RedisGuard) Forget(ctx context.Context, key string) {
	_ = g.client.Del(ctx, g.client.IdempotencyKey("export", key))
}
