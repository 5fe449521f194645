package security

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window request counter kept in Redis, so the
// limit holds across server instances.
type RateLimiter struct {
	redis  *redis.Client
	scope  string
	limit  int64
	window time.Duration

	// Identifier picks the key a request is counted under.
	Identifier func(e *core.RequestEvent) string
}

func NewRateLimiter(redisClient *redis.Client, scope string, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		redis:  redisClient,
		scope:  scope,
		limit:  limit,
		window: window,
		Identifier: func(e *core.RequestEvent) string {
			return e.RealIP()
		},
	}
}

// Allow counts one request for id. The counter and its window expiry are
// set in one transaction, so a counter never outlives its window. Redis
// errors let the request through.
func (r *RateLimiter) Allow(ctx context.Context, id string) (bool, error) {
	key := fmt.Sprintf("ratelimit:%s:%s", r.scope, id)

	var count *redis.IntCmd
	_, err := r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		count = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, r.window)
		return nil
	})
	if err != nil {
		return true, err
	}
	return count.Val() <= r.limit, nil
}

func (r *RateLimiter) Middleware() func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		id := r.Identifier(e)

		allowed, err := r.Allow(e.Request.Context(), id)
		if err != nil {
			slog.Warn("Rate limiter unavailable", "scope", r.scope, "error", err)
		}
		if !allowed {
			return apis.NewApiError(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.", nil)
		}

		return e.Next()
	}
}
