package insight

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ad-tracker/watch-history-analyzer-go/internal/metrics"
	"github.com/ad-tracker/watch-history-analyzer-go/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CachedGenerator memoizes narrative answers in memory (L1) and, when a Redis
// client is configured, in Redis (L2) so they survive restarts.
// Duration estimates pass straight through: their input is a random sample.
type CachedGenerator struct {
	next       Generator
	l1         sync.Map // key -> *cacheEntry
	rdb        *redis.Client
	ttl        time.Duration
	maxEntries int
	metrics    *metrics.Metrics
}

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

// NewCachedGenerator wraps next. rdb may be nil to disable L2.
func NewCachedGenerator(next Generator, rdb *redis.Client, ttl time.Duration, maxEntries int, m *metrics.Metrics) *CachedGenerator {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &CachedGenerator{next: next, rdb: rdb, ttl: ttl, maxEntries: maxEntries, metrics: m}
}

// ConnectRedis parses redisURL and verifies the server answers.
func ConnectRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// CacheKey builds a deterministic cache key from parts.
func CacheKey(parts ...string) string {
	joined := strings.Join(parts, "|")
	hash := sha256.Sum256([]byte(joined))
	return fmt.Sprintf("wh:insight:%x", hash[:12])
}

// EstimateAverageDuration is not cached.
func (c *CachedGenerator) EstimateAverageDuration(ctx context.Context, sampleTitles []string) (float64, error) {
	return c.next.EstimateAverageDuration(ctx, sampleTitles)
}

// SummarizeHabits returns a cached answer for an identical request when one exists.
func (c *CachedGenerator) SummarizeHabits(ctx context.Context, req HabitsRequest) (string, error) {
	return c.cached(ctx, "habits", req, func() (string, error) {
		return c.next.SummarizeHabits(ctx, req)
	})
}

// CompareMusicTrends returns a cached answer for an identical request when one exists.
func (c *CachedGenerator) CompareMusicTrends(ctx context.Context, req MusicTrendsRequest) (string, error) {
	return c.cached(ctx, "music", req, func() (string, error) {
		return c.next.CompareMusicTrends(ctx, req)
	})
}

func (c *CachedGenerator) cached(ctx context.Context, op string, req any, call func() (string, error)) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return call()
	}
	key := CacheKey(op, string(body))

	if v, ok := c.get(ctx, key); ok {
		return v, nil
	}

	v, err := call()
	if err != nil {
		return "", err
	}
	c.set(ctx, key, v)
	return v, nil
}

func (c *CachedGenerator) get(ctx context.Context, key string) (string, bool) {
	if val, ok := c.l1.Load(key); ok {
		entry := val.(*cacheEntry)
		if time.Now().Before(entry.expiresAt) {
			c.metrics.CacheLookup("l1")
			return entry.value, true
		}
		c.l1.Delete(key)
	}

	if c.rdb != nil {
		v, err := c.rdb.Get(ctx, key).Result()
		switch {
		case err == nil:
			c.metrics.CacheLookup("l2")
			c.l1.Store(key, &cacheEntry{value: v, expiresAt: time.Now().Add(c.ttl)})
			return v, true
		case !errors.Is(err, redis.Nil):
			logger.L().Warn("Insight cache L2 read failed", zap.Error(err), zap.String("key", key))
		}
	}

	c.metrics.CacheLookup("miss")
	return "", false
}

func (c *CachedGenerator) set(ctx context.Context, key, value string) {
	c.evictIfNeeded()
	c.l1.Store(key, &cacheEntry{value: value, expiresAt: time.Now().Add(c.ttl)})

	if c.rdb != nil {
		if err := c.rdb.Set(ctx, key, value, c.ttl).Err(); err != nil {
			logger.L().Warn("Insight cache L2 write failed", zap.Error(err), zap.String("key", key))
		}
	}
}

// evictIfNeeded drops expired entries, then arbitrary ones, until there is room for one more.
func (c *CachedGenerator) evictIfNeeded() {
	now := time.Now()
	count := 0
	c.l1.Range(func(k, v any) bool {
		if now.After(v.(*cacheEntry).expiresAt) {
			c.l1.Delete(k)
			return true
		}
		count++
		return true
	})

	if count < c.maxEntries {
		return
	}
	c.l1.Range(func(k, _ any) bool {
		c.l1.Delete(k)
		count--
		return count >= c.maxEntries
	})
}

// Len reports the number of L1 entries, including expired ones not yet evicted.
func (c *CachedGenerator) Len() int {
	n := 0
	c.l1.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
