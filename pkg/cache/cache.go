package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sakashimaa/crud-services/pkg/mylogger"
	"github.com/sakashimaa/crud-services/pkg/utils"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Cache stores JSON values in Redis. Every call goes through a circuit
// breaker so a dead Redis costs one fast failure instead of a timeout.
type Cache struct {
	client redis.Cmdable
	cb     *gobreaker.CircuitBreaker
	ttl    time.Duration
	logger *zap.Logger
}

func New(client redis.Cmdable, ttl time.Duration, logger *zap.Logger) *Cache {
	return &Cache{
		client: client,
		cb:     utils.NewBreaker("redis-cache", logger),
		ttl:    ttl,
		logger: logger,
	}
}

// Get decodes the value under key into dst. It reports false on a miss and on
// any Redis failure; failures are logged, not returned.
func (c *Cache) Get(ctx context.Context, key string, dst any) bool {
	val, err := utils.ExecuteWithBreaker(c.cb, func() ([]byte, error) {
		b, err := c.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return b, err
	})
	if err != nil {
		mylogger.Warn(ctx, c.logger, "cache get failed", zap.String("key", key), zap.Error(err))
		return false
	}

	if val == nil {
		return false
	}

	if err := json.Unmarshal(val, dst); err != nil {
		mylogger.Warn(ctx, c.logger, "cache entry corrupted", zap.String("key", key), zap.Error(err))
		c.Delete(ctx, key)
		return false
	}

	return true
}

func (c *Cache) Set(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		mylogger.Warn(ctx, c.logger, "cache marshal failed", zap.String("key", key), zap.Error(err))
		return
	}

	_, err = utils.ExecuteWithBreaker(c.cb, func() (string, error) {
		return c.client.Set(ctx, key, data, c.ttl).Result()
	})
	if err != nil {
		mylogger.Warn(ctx, c.logger, "cache set failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *Cache) Delete(ctx context.Context, key string) {
	if err := c.Evict(ctx, key); err != nil {
		mylogger.Warn(ctx, c.logger, "cache delete failed", zap.String("key", key), zap.Error(err))
	}
}

// Evict is Delete for callers that retry: the Redis error is returned.
func (c *Cache) Evict(ctx context.Context, key string) error {
	_, err := utils.ExecuteWithBreaker(c.cb, func() (int64, error) {
		return c.client.Del(ctx, key).Result()
	})
	return err
}

func Key(prefix string, id int64) string {
	return fmt.Sprintf("%s:%d", prefix, id)
}
