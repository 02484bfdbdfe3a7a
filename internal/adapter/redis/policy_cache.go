package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/hauke92/mindgate/internal/domain"
)

const policyCacheTTL = 1 * time.Hour

// PolicyCacheRepo is a read-through cache over the durable policy store:
// in-memory first, Redis second, PostgreSQL last. Writes go straight to
// the store and invalidate both cache layers, so a launch decision right
// after a flag change sees the new policy.
type PolicyCacheRepo struct {
	rdb      goredis.Cmdable
	policies domain.PolicyRepository
	mem      *memoryCache
	loads    singleflight.Group
}

var _ domain.PolicyRepository = (*PolicyCacheRepo)(nil)

func NewPolicyCacheRepo(rdb goredis.Cmdable, policies domain.PolicyRepository, memCacheTTL time.Duration) *PolicyCacheRepo {
	return &PolicyCacheRepo{
		rdb:      rdb,
		policies: policies,
		mem:      newMemoryCache(memCacheTTL),
	}
}

// StartEvictionTimer runs a periodic goroutine that evicts expired
// in-memory cache entries. Returns a stop function that should be deferred.
func (r *PolicyCacheRepo) StartEvictionTimer(interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan bool)

	go func() {
		for {
			select {
			case <-ticker.C:
				evicted := r.mem.evictExpired()
				if evicted > 0 {
					slog.Debug("Evicted expired policy cache entries", "count", evicted, "remaining", r.mem.size())
				}

			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() {
		close(done)
	}
}

func (r *PolicyCacheRepo) GetPolicy(ctx context.Context, pkg string) (domain.AppPolicy, error) {
	// Layer 1: in-memory cache
	if policy, ok := r.mem.get(pkg); ok {
		return policy, nil
	}

	// Layer 2: Redis cache
	if policy, ok := r.getCached(ctx, pkg); ok {
		r.mem.set(pkg, policy)
		return policy, nil
	}

	// Layer 3: PostgreSQL, collapsed across concurrent misses for one key
	v, err, _ := r.loads.Do(pkg, func() (any, error) {
		policy, err := r.policies.GetPolicy(ctx, pkg)
		if err != nil {
			return domain.AppPolicy{}, err
		}

		r.mem.set(pkg, policy)
		r.writeCache(ctx, pkg, policy)
		return policy, nil
	})
	if err != nil {
		return domain.AppPolicy{}, fmt.Errorf("policy lookup failed: %w", err)
	}
	return v.(domain.AppPolicy), nil
}

func (r *PolicyCacheRepo) SetTimeLimit(ctx context.Context, pkg string, minutes *int) error {
	if err := r.policies.SetTimeLimit(ctx, pkg, minutes); err != nil {
		return err
	}
	return r.invalidate(ctx, pkg)
}

func (r *PolicyCacheRepo) SetFlags(ctx context.Context, pkg string, distracting, hidden bool) error {
	if err := r.policies.SetFlags(ctx, pkg, distracting, hidden); err != nil {
		return err
	}
	return r.invalidate(ctx, pkg)
}

func (r *PolicyCacheRepo) invalidate(ctx context.Context, pkg string) error {
	r.mem.invalidate(pkg)

	if err := r.rdb.Del(ctx, policyCacheKey(pkg)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate policy cache: %w", err)
	}
	return nil
}

func (r *PolicyCacheRepo) writeCache(ctx context.Context, pkg string, policy domain.AppPolicy) {
	encoded, err := json.Marshal(policy)
	if err != nil {
		slog.Warn("Failed to marshal policy for Redis cache", "package", pkg, "error", err)
		return
	}

	if err := r.rdb.Set(ctx, policyCacheKey(pkg), encoded, policyCacheTTL).Err(); err != nil {
		slog.Warn("Failed to populate Redis policy cache", "package", pkg, "error", err)
	}
}

func (r *PolicyCacheRepo) getCached(ctx context.Context, pkg string) (domain.AppPolicy, bool) {
	data, err := r.rdb.Get(ctx, policyCacheKey(pkg)).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			slog.Warn("Redis policy cache GET failed", "package", pkg, "error", err)
		}
		return domain.AppPolicy{}, false
	}

	var policy domain.AppPolicy
	if err := json.Unmarshal(data, &policy); err != nil {
		slog.Warn("Failed to unmarshal cached policy", "package", pkg, "error", err)
		return domain.AppPolicy{}, false
	}

	return policy, true
}

func policyCacheKey(pkg string) string {
	return "policy_cache:" + pkg
}

// memoryCache is an in-memory L1 cache with TTL-based expiry.
type memoryCache struct {
	mu      sync.RWMutex
	entries map[string]*memoryCacheEntry
	ttl     time.Duration
}

type memoryCacheEntry struct {
	policy    domain.AppPolicy
	expiresAt time.Time
}

func newMemoryCache(ttl time.Duration) *memoryCache {
	return &memoryCache{
		entries: make(map[string]*memoryCacheEntry),
		ttl:     ttl,
	}
}

func (c *memoryCache) get(pkg string) (domain.AppPolicy, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[pkg]
	if !ok {
		return domain.AppPolicy{}, false
	}

	if time.Now().After(entry.expiresAt) {
		return domain.AppPolicy{}, false
	}

	return entry.policy, true
}

func (c *memoryCache) set(pkg string, policy domain.AppPolicy) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[pkg] = &memoryCacheEntry{
		policy:    policy,
		expiresAt: time.Now().Add(c.ttl),
	}
}

func (c *memoryCache) invalidate(pkg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, pkg)
}

func (c *memoryCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *memoryCache) evictExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	evicted := 0

	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
			evicted++
		}
	}

	return evicted
}
