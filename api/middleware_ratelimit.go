package api

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/linesmerrill/sentinel-campus-api/config"
)

// Counter is the subset of the redis client the rate limiter uses
type Counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
}

// SubmissionRateLimiter caps anonymous report submissions per client per
// window using redis counters
type SubmissionRateLimiter struct {
	counter Counter
	limit   int64
	window  time.Duration
	prefix  string
}

// NewSubmissionRateLimiter allows limit submissions per client per day
func NewSubmissionRateLimiter(counter Counter, limit int) *SubmissionRateLimiter {
	return &SubmissionRateLimiter{
		counter: counter,
		limit:   int64(limit),
		window:  24 * time.Hour,
		prefix:  "sentinel:submissions",
	}
}

// Middleware rejects clients over the limit with 429. When redis is
// unreachable requests are let through so reports are never lost.
func (l *SubmissionRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		key := l.prefix + ":" + clientIP(r)

		// Increment client's count with TTL
		count, err := l.counter.Incr(ctx, key).Result()
		if err != nil {
			zap.S().Warnw("rate limiter unavailable", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		// Set TTL only for the first increment (when count = 1)
		if count == 1 {
			l.expire(ctx, key)
		}

		if count > l.limit {
			retryAfter, err := l.counter.TTL(ctx, key).Result()
			switch {
			case err != nil:
				retryAfter = l.window
			case retryAfter < 0:
				// the first expire was lost, so the counter would never reset
				l.expire(ctx, key)
				retryAfter = l.window
			}
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			config.ErrorStatus("too many reports submitted, try again later", http.StatusTooManyRequests, w, ErrRateLimited)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (l *SubmissionRateLimiter) expire(ctx context.Context, key string) {
	if err := l.counter.Expire(ctx, key, l.window).Err(); err != nil {
		zap.S().Warnw("rate limiter failed to set ttl", "key", key, "error", err)
	}
}

// clientIP prefers the first X-Forwarded-For hop since the api runs behind
// the heroku router
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
