package security

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"printqueue/internal/logger"
)

// Limiter decides whether one more request for key fits in the budget.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisLimiter is a fixed one-minute window shared by every instance.
type RedisLimiter struct {
	redis  redis.Cmdable
	limit  int64
	window time.Duration
	prefix string
}

func NewRedisLimiter(rdb redis.Cmdable, perMinute int) *RedisLimiter {
	return &RedisLimiter{
		redis:  rdb,
		limit:  int64(perMinute),
		window: time.Minute,
		prefix: "printqueue:ratelimit:",
	}
}

func (r *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := r.prefix + key
	count, err := r.redis.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit %s: %w", key, err)
	}
	if count == 1 {
		if err := r.redis.Expire(ctx, k, r.window).Err(); err != nil {
			return false, fmt.Errorf("rate limit %s: %w", key, err)
		}
	}
	return count <= r.limit, nil
}

// LocalLimiter keeps a token bucket per key in process memory.
type LocalLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	every    rate.Limit
	burst    int
}

func NewLocalLimiter(perMinute int) *LocalLimiter {
	return &LocalLimiter{
		limiters: make(map[string]*rate.Limiter),
		every:    rate.Every(time.Minute / time.Duration(max(perMinute, 1))),
		burst:    max(perMinute, 1),
	}
}

func (l *LocalLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.every, l.burst)
		l.limiters[key] = lim
	}
	l.mu.Unlock()
	return lim.Allow(), nil
}

type RateLimiter struct {
	limiter Limiter
	l       logger.Logger
	keyFunc func(e *core.RequestEvent) string
}

// NewRateLimiter wraps limiter as router middleware. A nil limiter lets
// every request through.
func NewRateLimiter(limiter Limiter, l logger.Logger) *RateLimiter {
	return &RateLimiter{limiter: limiter, l: l, keyFunc: requestKey}
}

// requestKey rate limits by user for authenticated requests and by client
// IP otherwise.
func requestKey(e *core.RequestEvent) string {
	if e.Auth != nil {
		return "user:" + e.Auth.Id
	}
	return "ip:" + e.RealIP()
}

// EnqueueRateLimit guards the public enqueue endpoint.
func (r *RateLimiter) EnqueueRateLimit() func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if isSuspiciousUserAgent(e.Request.UserAgent()) {
			return apis.NewForbiddenError("Access denied", nil)
		}
		if r.limiter == nil {
			return e.Next()
		}

		ctx := e.Request.Context()
		key := r.keyFunc(e)
		ok, err := r.limiter.Allow(ctx, key)
		if err != nil {
			// Fail open on limiter errors.
			r.l.Warnf(ctx, "security.RateLimiter: %v", err)
			return e.Next()
		}
		if !ok {
			return apis.NewTooManyRequestsError("Rate limit exceeded. Please try again later.", nil)
		}
		return e.Next()
	}
}

func isSuspiciousUserAgent(ua string) bool {
	ua = strings.ToLower(ua)
	for _, pattern := range []string{"bot", "crawler", "spider", "scraper"} {
		if strings.Contains(ua, pattern) {
			return true
		}
	}
	return false
}
