package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
	KeyPrefix   string
}

// DefaultRateLimitConfig returns default rate limit configuration
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxRequests: 100,
		Window:      time.Minute,
		KeyPrefix:   "powerotp:ratelimit",
	}
}

// RateLimit is a fixed-window limiter per client IP backed by Redis. Redis
// errors fail open.
func RateLimit(rdb redis.Cmdable, config RateLimitConfig, logger *zap.Logger) fiber.Handler {
	defaults := DefaultRateLimitConfig()
	if config.MaxRequests <= 0 {
		config.MaxRequests = defaults.MaxRequests
	}
	if config.Window <= 0 {
		config.Window = defaults.Window
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = defaults.KeyPrefix
	}

	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		key := config.KeyPrefix + ":" + c.IP()

		// INCR and the first-hit EXPIRE go out together so a crash between
		// them cannot leave a counter without a TTL.
		var incr *redis.IntCmd
		var ttl *redis.DurationCmd
		_, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(ctx, key)
			pipe.ExpireNX(ctx, key, config.Window)
			ttl = pipe.PTTL(ctx, key)
			return nil
		})
		if err != nil {
			logger.Warn("rate limit redis error", zap.Error(err))
			return c.Next()
		}

		count := incr.Val()
		reset := config.Window
		if d := ttl.Val(); d > 0 {
			reset = d
		}

		remaining := config.MaxRequests - int(count)
		if remaining < 0 {
			remaining = 0
		}
		c.Set("X-RateLimit-Limit", strconv.Itoa(config.MaxRequests))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(reset).Unix(), 10))

		if count > int64(config.MaxRequests) {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int((reset+time.Second-1)/time.Second)))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":     "Rate limit exceeded",
				"errorType": "rate_limited",
			})
		}

		return c.Next()
	}
}
