package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/circle/internal/errors"
	"github.com/zfogg/circle/internal/metrics"
	"github.com/zfogg/circle/internal/util"
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	// Requests per window
	Limit int
	// Window duration
	Window time.Duration
	// Prefix namespaces the limiter's keys
	Prefix string
	// KeyFunc picks the bucket for a request. Defaults to UserOrIPKey.
	KeyFunc func(c *gin.Context) string
	// Metrics receives rate_limit_exceeded_total. Defaults to the global metrics.
	Metrics *metrics.Metrics
}

// ToggleRateLimitConfig limits follow, like and bookmark toggles per user
func ToggleRateLimitConfig(limit int, window time.Duration) RateLimitConfig {
	return RateLimitConfig{
		Limit:  limit,
		Window: window,
		Prefix: "toggle",
	}
}

func (rc RateLimitConfig) withDefaults() RateLimitConfig {
	if rc.Limit <= 0 {
		rc.Limit = 60
	}
	if rc.Window <= 0 {
		rc.Window = time.Minute
	}
	if rc.Prefix == "" {
		rc.Prefix = "default"
	}
	if rc.KeyFunc == nil {
		rc.KeyFunc = UserOrIPKey
	}
	if rc.Metrics == nil {
		rc.Metrics = metrics.Get()
	}
	return rc
}

// UserOrIPKey buckets authenticated requests by user and the rest by client IP
func UserOrIPKey(c *gin.Context) string {
	if userID := c.GetString(util.ContextUserID); userID != "" {
		return "user:" + userID
	}
	return "ip:" + c.ClientIP()
}

// TokenBucket for rate limiting
type TokenBucket struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

// NewTokenBucket creates a new token bucket
func NewTokenBucket(maxTokens float64, refillRate float64) *TokenBucket {
	return &TokenBucket{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// refill must be called with mu held
func (tb *TokenBucket) refill(now time.Time) {
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.tokens = min(tb.maxTokens, tb.tokens+elapsed*tb.refillRate)
	tb.lastRefill = now
}

// Allow checks if a request is allowed based on token availability
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill(time.Now())
	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

// GetRetryAfter returns seconds to wait before next request
func (tb *TokenBucket) GetRetryAfter() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	if tb.tokens < 1 {
		timeToToken := (1 - tb.tokens) / tb.refillRate
		return int(timeToToken) + 1
	}
	return 0
}

// idle reports whether the bucket has refilled completely
func (tb *TokenBucket) idle(now time.Time) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill(now)
	return tb.tokens >= tb.maxTokens
}

// RateLimiter keeps one token bucket per key in process memory. It is the
// fallback when Redis is not configured.
type RateLimiter struct {
	buckets map[string]*TokenBucket
	config  RateLimitConfig
	mu      sync.Mutex
}

// NewRateLimiter creates an in-memory limiter
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*TokenBucket),
		config:  config.withDefaults(),
	}
}

// Allow takes a token for key and returns the retry-after seconds when denied
func (rl *RateLimiter) Allow(key string) (bool, int) {
	rl.mu.Lock()
	bucket, exists := rl.buckets[key]
	if !exists {
		refillRate := float64(rl.config.Limit) / rl.config.Window.Seconds()
		bucket = NewTokenBucket(float64(rl.config.Limit), refillRate)
		rl.buckets[key] = bucket
	}
	rl.mu.Unlock()

	if bucket.Allow() {
		return true, 0
	}
	return false, bucket.GetRetryAfter()
}

// Sweep drops buckets that have fully refilled
func (rl *RateLimiter) Sweep() int {
	now := time.Now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for key, bucket := range rl.buckets {
		if bucket.idle(now) {
			delete(rl.buckets, key)
			removed++
		}
	}
	return removed
}

// Middleware enforces the limiter on every request
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, retryAfter := rl.Allow(rl.config.KeyFunc(c))
		if !allowed {
			reject(c, rl.config, retryAfter)
			return
		}
		c.Next()
	}
}

func reject(c *gin.Context, config RateLimitConfig, retryAfter int) {
	config.Metrics.RateLimitExceededTotal.WithLabelValues(config.Prefix, c.Request.Method).Inc()
	c.Header("Retry-After", strconv.Itoa(retryAfter))
	c.Header("X-RateLimit-Limit", strconv.Itoa(config.Limit))
	c.Header("X-RateLimit-Remaining", "0")
	util.RespondWithAPIError(c, errors.RateLimited("").WithDetails(
		"retry after "+strconv.Itoa(retryAfter)+"s"))
}
