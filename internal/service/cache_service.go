package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"versus-be/internal/domain"
	"versus-be/pkg/redis"

	"go.uber.org/zap"
)

// CacheService implements cache-aside reads over the Redis client. Every
// method degrades to the database fallback on any cache failure; a broken
// cache slows reads down but never fails them.
type CacheService struct {
	redis  *redis.Client
	logger *zap.Logger
}

// NewCacheService creates a new cache service
func NewCacheService(redisClient *redis.Client, logger *zap.Logger) *CacheService {
	return &CacheService{
		redis:  redisClient,
		logger: logger,
	}
}

// GetTestWithCache retrieves a test document with cache-aside semantics.
func (c *CacheService) GetTestWithCache(ctx context.Context, testID string, dbFallback func(ctx context.Context) (*domain.Test, error)) (*domain.Test, error) {
	if c.redis == nil {
		return dbFallback(ctx)
	}
	cacheKey := c.redis.KeyBuilder.KeyTest(testID)

	cached, err := c.redis.Get(ctx, cacheKey)
	if err == nil && cached != "" {
		var test domain.Test
		if unmarshalErr := json.Unmarshal([]byte(cached), &test); unmarshalErr == nil {
			c.logger.Debug("test cache hit", zap.String("test_id", testID))
			return &test, nil
		}
		c.logger.Warn("test cache corrupted, falling back to database",
			zap.String("test_id", testID))
	}

	test, err := dbFallback(ctx)
	if err != nil {
		return nil, err
	}

	if payload, marshalErr := json.Marshal(test); marshalErr == nil {
		if setErr := c.redis.Set(ctx, cacheKey, payload, redis.TTLTest); setErr != nil {
			c.logger.Warn("failed to cache test",
				zap.String("test_id", testID),
				zap.Error(setErr))
		}
	}
	return test, nil
}

// GetResultsWithCache caches a computed results payload under the given key.
// The payload is whatever the compute callback produces, JSON-encoded. An
// empty key disables caching for the call.
func (c *CacheService) GetResultsWithCache(ctx context.Context, cacheKey string, ttl time.Duration, out interface{}, compute func(ctx context.Context) (interface{}, error)) error {
	if c.redis != nil && cacheKey != "" {
		cached, err := c.redis.Get(ctx, cacheKey)
		if err == nil && cached != "" {
			if unmarshalErr := json.Unmarshal([]byte(cached), out); unmarshalErr == nil {
				return nil
			}
			c.logger.Warn("results cache corrupted, recomputing",
				zap.String("key", cacheKey))
		}
	}

	value, err := compute(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cached payload: %w", err)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("failed to decode cached payload: %w", err)
	}

	if c.redis != nil && cacheKey != "" {
		if setErr := c.redis.Set(ctx, cacheKey, payload, ttl); setErr != nil {
			c.logger.Warn("failed to cache results",
				zap.String("key", cacheKey),
				zap.Error(setErr))
		}
	}
	return nil
}

// InvalidateTestCaches drops every cached view derived from one test. Called
// after any mutation of the test document.
func (c *CacheService) InvalidateTestCaches(ctx context.Context, testID string) {
	if c.redis == nil {
		return
	}
	err := c.redis.Delete(ctx,
		c.redis.KeyBuilder.KeyTest(testID),
		c.redis.KeyBuilder.KeyTestResults(testID),
		c.redis.KeyBuilder.KeySessionResults(testID),
		c.redis.KeyBuilder.KeyGlobalStats(),
	)
	if err != nil {
		c.logger.Warn("failed to invalidate test caches",
			zap.String("test_id", testID),
			zap.Error(err))
	}
	if err := c.redis.InvalidatePattern(ctx, c.redis.KeyBuilder.KeyTestList("*")); err != nil {
		c.logger.Warn("failed to invalidate listing caches", zap.Error(err))
	}
}

// TryIdempotencyLock attempts to acquire an idempotency lock for the given key.
// Returns true if acquired (first time), false if the key already exists.
func (c *CacheService) TryIdempotencyLock(ctx context.Context, key string) (bool, error) {
	if c.redis == nil {
		return true, nil
	}
	return c.redis.SetNX(ctx, c.redis.KeyBuilder.KeyIdempotency(key), "1", redis.TTLIdempotency)
}

// ListCacheKey derives a stable cache key for a listing query.
func (c *CacheService) ListCacheKey(parts ...string) string {
	if c.redis == nil {
		return ""
	}
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return c.redis.KeyBuilder.KeyTestList(hex.EncodeToString(h.Sum(nil))[:16])
}

// ResultsKey is the cache key for a test's tally leaderboard.
func (c *CacheService) ResultsKey(testID string) string {
	if c.redis == nil {
		return ""
	}
	return c.redis.KeyBuilder.KeyTestResults(testID)
}

// SessionResultsKey is the cache key for a test's session-derived leaderboard.
func (c *CacheService) SessionResultsKey(testID string) string {
	if c.redis == nil {
		return ""
	}
	return c.redis.KeyBuilder.KeySessionResults(testID)
}

// StatsKey is the cache key for site-wide stats.
func (c *CacheService) StatsKey() string {
	if c.redis == nil {
		return ""
	}
	return c.redis.KeyBuilder.KeyGlobalStats()
}

// InvalidateListings drops every cached listing page.
func (c *CacheService) InvalidateListings(ctx context.Context) {
	if c.redis == nil {
		return
	}
	if err := c.redis.InvalidatePattern(ctx, c.redis.KeyBuilder.KeyTestList("*")); err != nil {
		c.logger.Warn("failed to invalidate listing caches", zap.Error(err))
	}
}
