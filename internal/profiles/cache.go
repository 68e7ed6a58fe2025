package profiles

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/salon-booking/pkg/logging"
)

type adminSource interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// CachedAdminChecker keeps admin answers in Redis for a short TTL so every
// guarded request does not hit Postgres. Redis errors fall through to the
// source.
type CachedAdminChecker struct {
	source adminSource
	redis  *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

func NewCachedAdminChecker(source adminSource, client *redis.Client, ttl time.Duration, logger *logging.Logger) *CachedAdminChecker {
	if logger == nil {
		logger = logging.Default()
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedAdminChecker{source: source, redis: client, ttl: ttl, logger: logger}
}

func adminKey(userID string) string {
	return "profiles:admin:" + userID
}

func (c *CachedAdminChecker) IsAdmin(ctx context.Context, userID string) (bool, error) {
	if c.redis != nil {
		v, err := c.redis.Get(ctx, adminKey(userID)).Result()
		switch {
		case err == nil:
			return v == "1", nil
		case !errors.Is(err, redis.Nil):
			c.logger.Warn("admin cache read failed", "error", err, "user_id", userID)
		}
	}

	ok, err := c.source.IsAdmin(ctx, userID)
	if err != nil {
		return false, err
	}
	if c.redis != nil {
		val := "0"
		if ok {
			val = "1"
		}
		if err := c.redis.Set(ctx, adminKey(userID), val, c.ttl).Err(); err != nil {
			c.logger.Warn("admin cache write failed", "error", err, "user_id", userID)
		}
	}
	return ok, nil
}

// Forget drops the cached answer for userID.
func (c *CachedAdminChecker) Forget(ctx context.Context, userID string) error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Del(ctx, adminKey(userID)).Err()
}
