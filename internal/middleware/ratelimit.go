package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var rateLimitedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "lookkg_rate_limited_requests_total",
		Help: "Requests rejected by the rate limiter",
	},
	[]string{"prefix"},
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerWindow int           // Number of requests allowed per window
	Window            time.Duration // Time window for rate limiting
	KeyPrefix         string        // Redis key prefix
}

// windowCounter counts hits per client in fixed windows stored in Redis
type windowCounter struct {
	client redis.Cmdable
	window time.Duration
}

// hit records one request for key and returns the count in the current
// window and the time until the window closes
func (c windowCounter) hit(ctx context.Context, key string) (int64, time.Duration, error) {
	var (
		incr *redis.IntCmd
		pttl *redis.DurationCmd
	)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pttl = pipe.PTTL(ctx, key)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	ttl := pttl.Val()
	if ttl <= 0 {
		// First hit opens the window
		if err := c.client.PExpire(ctx, key, c.window).Err(); err != nil {
			return 0, 0, err
		}
		ttl = c.window
	}
	return incr.Val(), ttl, nil
}

// RateLimitMiddleware implements a fixed window limit in Redis, keyed by the
// authenticated user when there is one and by client address otherwise.
// Requests pass unchecked while Redis is unavailable.
func RateLimitMiddleware(redisClient redis.Cmdable, config RateLimitConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	counter := windowCounter{client: redisClient, window: config.Window}
	limit := strconv.Itoa(config.RequestsPerWindow)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := clientAddr(r)
			if identity, ok := GetIdentity(r.Context()); ok {
				clientID = identity.UserID.String()
			}
			key := fmt.Sprintf("%s:%s", config.KeyPrefix, clientID)

			count, ttl, err := counter.hit(r.Context(), key)
			if err != nil {
				logger.Error("Failed to count request for rate limit",
					zap.Error(err),
					zap.String("key", key),
				)
				next.ServeHTTP(w, r)
				return
			}

			remaining := int64(config.RequestsPerWindow) - count
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", limit)
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(ttl).Unix(), 10))

			if count > int64(config.RequestsPerWindow) {
				rateLimitedTotal.WithLabelValues(config.KeyPrefix).Inc()
				logger.Warn("Rate limit exceeded",
					zap.String("client_id", clientID),
					zap.Int64("count", count),
					zap.Int("limit", config.RequestsPerWindow),
				)

				retryAfter := int(ttl.Round(time.Second) / time.Second)
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				RespondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientAddr is the remote host without its port, so that one client's
// connections share a budget
func clientAddr(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
