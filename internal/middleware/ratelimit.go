package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitMiddleware is a fixed-window counter per path and caller. The caller
// is the session user when AuthMiddleware ran first, otherwise the client IP.
// It fails open when redis is unavailable.
func RateLimitMiddleware(rdb *redis.Client, limit int, window time.Duration, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := rateLimitKey(c)

		ctx := context.Background()
		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			log.Warn("rate limiter unavailable", zap.Error(err))
			return c.Next()
		}

		if count == 1 {
			rdb.Expire(ctx, key, window)
		}

		if count > int64(limit) {
			c.Set(fiber.HeaderRetryAfter, fmt.Sprintf("%d", int(window.Seconds())))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"error":   "rate limit exceeded",
			})
		}

		return c.Next()
	}
}

func rateLimitKey(c *fiber.Ctx) string {
	if userID := GetUserID(c); userID != uuid.Nil {
		return fmt.Sprintf("rl:%s:user:%s", c.Path(), userID)
	}
	return fmt.Sprintf("rl:%s:ip:%s", c.Path(), c.IP())
}
