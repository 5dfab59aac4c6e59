// Package cache holds recently served account registration summaries.
//
// Only the default listing (no sort, filter, or date-range parameters) is
// cached: it is by far the hottest query, and keying every criteria
// permutation would mostly hold entries nothing reads. Creation invalidates
// the owning account's entry.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"mhreg/internal/registration/models"
)

// SummaryCache stores the default list response per account. Implementations
// are best-effort: errors are logged, never surfaced, and a miss is always a
// safe answer.
type SummaryCache interface {
	Get(ctx context.Context, accountID string) ([]models.RegistrationSummary, bool)
	Set(ctx context.Context, accountID string, summaries []models.RegistrationSummary)
	Invalidate(ctx context.Context, accountID string)
}

const keyPrefix = "mhreg:registrations:account:"

// RedisCache is the shared cache backend used when Redis is configured.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedis constructs a Redis-backed summary cache.
func NewRedis(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

func (c *RedisCache) Get(ctx context.Context, accountID string) ([]models.RegistrationSummary, bool) {
	raw, err := c.client.Get(ctx, keyPrefix+accountID).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WarnContext(ctx, "summary cache get failed", "account_id", accountID, "error", err)
		}
		return nil, false
	}
	var summaries []models.RegistrationSummary
	if err := json.Unmarshal(raw, &summaries); err != nil {
		c.logger.WarnContext(ctx, "summary cache entry corrupt", "account_id", accountID, "error", err)
		return nil, false
	}
	return summaries, true
}

func (c *RedisCache) Set(ctx context.Context, accountID string, summaries []models.RegistrationSummary) {
	raw, err := json.Marshal(summaries)
	if err != nil {
		c.logger.WarnContext(ctx, "summary cache encode failed", "account_id", accountID, "error", err)
		return
	}
	if err := c.client.Set(ctx, keyPrefix+accountID, raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "summary cache set failed", "account_id", accountID, "error", err)
	}
}

func (c *RedisCache) Invalidate(ctx context.Context, accountID string) {
	if err := c.client.Del(ctx, keyPrefix+accountID).Err(); err != nil {
		c.logger.WarnContext(ctx, "summary cache invalidate failed", "account_id", accountID, "error", err)
	}
}

// MemoryCache is the in-process fallback used when Redis is not configured.
type MemoryCache struct {
	entries *gocache.Cache
}

// NewMemory constructs an in-process summary cache with the given TTL.
func NewMemory(ttl time.Duration) *MemoryCache {
	return &MemoryCache{entries: gocache.New(ttl, 2*ttl)}
}

func (c *MemoryCache) Get(_ context.Context, accountID string) ([]models.RegistrationSummary, bool) {
	entry, ok := c.entries.Get(accountID)
	if !ok {
		return nil, false
	}
	summaries, ok := entry.([]models.RegistrationSummary)
	return summaries, ok
}

func (c *MemoryCache) Set(_ context.Context, accountID string, summaries []models.RegistrationSummary) {
	c.entries.SetDefault(accountID, summaries)
}

func (c *MemoryCache) Invalidate(_ context.Context, accountID string) {
	c.entries.Delete(accountID)
}
