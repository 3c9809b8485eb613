// Package ratelimit throttles unauthenticated endpoints with fixed windows kept in redis,
// so every server instance shares the same counters.
package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/hlog"
	httpmiddleware "github.com/wolfeidau/jokko/internal/http"
	"github.com/wolfeidau/jokko/internal/telemetry"
)

type Config struct {
	// Requests allowed per key in each window.
	Limit  int
	Window time.Duration
	// Prefix namespaces the redis keys, e.g. "ratelimit:signin".
	Prefix string
}

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
}

type Limiter struct {
	redis redis.Cmdable
	cfg   Config
}

func New(client redis.Cmdable, cfg Config) (*Limiter, error) {
	if cfg.Limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than 0")
	}
	if cfg.Window <= 0 {
		return nil, fmt.Errorf("window must be greater than 0")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "ratelimit"
	}
	return &Limiter{redis: client, cfg: cfg}, nil
}

// Allow counts one request against key. The window starts with the first request.
func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	redisKey := l.cfg.Prefix + ":" + key

	pipe := l.redis.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	ttl := pipe.PTTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{Allowed: true}, fmt.Errorf("redis error: %w", err)
	}

	resetIn := ttl.Val()
	if resetIn < 0 {
		if err := l.redis.PExpire(ctx, redisKey, l.cfg.Window).Err(); err != nil {
			return Decision{Allowed: true}, fmt.Errorf("redis error: %w", err)
		}
		resetIn = l.cfg.Window
	}

	count := incr.Val()
	remaining := int64(l.cfg.Limit) - count
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   count <= int64(l.cfg.Limit),
		Remaining: int(remaining),
		ResetIn:   resetIn,
	}, nil
}

// Middleware limits requests per client IP. Redis failures let the request through.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		ip := httpmiddleware.ClientIPFromContext(ctx)
		if ip == "" {
			ip = httpmiddleware.ExtractClientIP(r, false)
		}

		d, err := l.Allow(ctx, "ip:"+ip)
		if err != nil {
			hlog.FromRequest(r).Warn().Err(err).Msg("Rate limiter unavailable, allowing request")
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))

		if !d.Allowed {
			telemetry.GetMetrics().RateLimitedTotal.Add(ctx, 1)

			retryAfter := int(math.Ceil(d.ResetIn.Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error":       "too many requests",
				"retry_after": retryAfter,
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// NewClient parses a redis URL such as redis://localhost:6379/0 and pings the server.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}
