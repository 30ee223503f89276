package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RateLimiter caps requests per client IP over a sliding window, backed by
// Redis so the counter is shared across instances. Each request is recorded as
// a timestamped member of a sorted set; members older than the window are
// trimmed before counting, so the limit applies to any rolling window rather
// than fixed buckets.
type RateLimiter struct {
	redis  *redis.Client
	limit  int
	window time.Duration
	prefix string
	logger *zerolog.Logger
	now    func() time.Time
}

// NewRateLimiter creates a Redis-backed sliding-window rate limiter.
func NewRateLimiter(client *redis.Client, limit int, window time.Duration, logger *zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		redis:  client,
		limit:  limit,
		window: window,
		prefix: "ratelimit:ip",
		logger: logger,
		now:    time.Now,
	}
}

// Allow records a request for the key and reports whether it is within the
// limit, along with the remaining quota.
func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, int, error) {
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)

	now := l.now()
	windowStart := now.Add(-l.window)
	member := uuid.NewString()

	// Trim, add and count in one MULTI/EXEC so concurrent requests from the
	// same client cannot undercount each other.
	pipe := l.redis.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", strconv.FormatInt(windowStart.UnixNano(), 10))
	pipe.ZAdd(ctx, redisKey, &redis.Z{
		Score:  float64(now.UnixNano()),
		Member: member,
	})
	count := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window)

	if _, err := pipe.Exec(ctx); err != nil {
		return true, 0, err
	}

	if count.Val() > int64(l.limit) {
		// The denied request does not consume quota.
		l.redis.ZRem(ctx, redisKey, member)
		return false, 0, nil
	}

	return true, l.limit - int(count.Val()), nil
}

// Handler wraps an HTTP handler with per-IP rate limiting.
func (l *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, remaining, err := l.Allow(r.Context(), clientIP(r))
		if err != nil {
			// Fail open on Redis errors to prevent service disruption.
			l.logger.Error().Err(err).Msg("rate limiter unavailable")
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(l.window.Seconds())))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	// chi's RealIP middleware rewrites RemoteAddr from the forwarding headers.
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
