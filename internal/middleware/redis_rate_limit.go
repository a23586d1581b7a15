package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/circle/internal/cache"
	"github.com/zfogg/circle/internal/errors"
	"github.com/zfogg/circle/internal/logger"
	"github.com/zfogg/circle/internal/util"
	"go.uber.org/zap"
)

// redisTimeout bounds a single rate-limit round trip
const redisTimeout = 2 * time.Second

// RedisRateLimitMiddleware creates a distributed fixed-window rate limiter
// shared by every server instance. Without a Redis client it falls back to
// an in-memory token bucket per instance.
func RedisRateLimitMiddleware(rc *cache.RedisClient, config RateLimitConfig) gin.HandlerFunc {
	config = config.withDefaults()
	if rc == nil {
		logger.Log.Warn("Redis unavailable, rate limiting in memory",
			zap.String("limiter", config.Prefix),
		)
		return NewRateLimiter(config).Middleware()
	}

	return func(c *gin.Context) {
		key := fmt.Sprintf("rate_limit:%s:%s", config.Prefix, config.KeyFunc(c))
		ctx, cancel := context.WithTimeout(c.Request.Context(), redisTimeout)
		defer cancel()

		count, ttl, err := rc.Hit(ctx, key, config.Window)
		if err != nil {
			// Failing open would leave the toggle routes unprotected
			logger.Log.Error("Rate limit check failed, rejecting request",
				zap.String("key", key),
				zap.Error(err),
			)
			util.RespondWithAPIError(c, errors.ServiceUnavailable("rate limiter"))
			return
		}

		if count > int64(config.Limit) {
			logger.Log.Warn("Rate limit exceeded",
				zap.String("key", key),
				zap.Int("max_requests", config.Limit),
				zap.Int64("current_requests", count),
			)
			reject(c, config, int(ttl.Seconds())+1)
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprint(config.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprint(int64(config.Limit)-count))
		c.Next()
	}
}
