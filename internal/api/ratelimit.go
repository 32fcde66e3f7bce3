package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/wonny/stex/backend/pkg/config"
	"github.com/wonny/stex/backend/pkg/logger"
	"github.com/wonny/stex/backend/pkg/redis"
)

// Limiter decides whether a request may proceed
type Limiter interface {
	Allow(ctx context.Context) (bool, error)
}

// LocalLimiter is an in-process token bucket
type LocalLimiter struct {
	limiter *rate.Limiter
}

// NewLocalLimiter creates a token bucket limiter
func NewLocalLimiter(rps float64, burst int) *LocalLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &LocalLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Allow consumes one token if available
func (l *LocalLimiter) Allow(ctx context.Context) (bool, error) {
	return l.limiter.Allow(), nil
}

// SharedLimiter is a Redis sliding window shared by every API instance
type SharedLimiter struct {
	limiter *redis.RateLimiter
	cfg     redis.RateLimitConfig
}

// NewSharedLimiter creates a Redis backed limiter
func NewSharedLimiter(client *redis.Client, cfg redis.RateLimitConfig) *SharedLimiter {
	return &SharedLimiter{limiter: redis.NewRateLimiter(client), cfg: cfg}
}

// Allow records one request in the window
func (l *SharedLimiter) Allow(ctx context.Context) (bool, error) {
	allowed, _, err := l.limiter.Allow(ctx, l.cfg)
	return allowed, err
}

// NewBacktestLimiter picks the shared limiter when Redis is enabled,
// otherwise a local token bucket from API_RATE_LIMIT_*
func NewBacktestLimiter(cfg *config.Config, client *redis.Client) Limiter {
	if client != nil && client.Enabled() {
		return NewSharedLimiter(client, redis.BacktestRateLimit)
	}
	return NewLocalLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
}

// rateLimit rejects requests over the limit with 429.
// Limiter failures let the request through.
func rateLimit(l Limiter, log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := l.Allow(r.Context())
			if err != nil {
				log.WithError(err).Warn("Rate limiter unavailable")
				allowed = true
			}

			if !allowed {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", strconv.Itoa(1))
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "too many requests",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
