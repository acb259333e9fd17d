package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Prometheus metrics for request pacing.
var (
	rateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_rate_limit_throttles_total",
		Help: "Total number of requests delayed because the shared window was full",
	})

	rateLimitFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_rate_limit_fallbacks_total",
		Help: "Total number of requests paced locally only because Redis was unavailable",
	})

	rateLimitWindowRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_rate_limit_window_requests",
		Help: "Requests reserved in the most recent shared window",
	})
)

// Config holds limiter configuration.
type Config struct {
	// RequestsPerSecond is the request budget (0 disables pacing).
	RequestsPerSecond int

	// Burst is the local token bucket size (default: RequestsPerSecond).
	Burst int
}

// DefaultConfig returns a conservative default configuration.
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 5,
		Burst:             5,
	}
}

// Limiter gates outbound requests. A nil *Limiter allows everything.
type Limiter struct {
	local  *rate.Limiter
	redis  *redis.Client
	limit  int
	logger zerolog.Logger
	now    func() time.Time
}

// NewLimiter creates a limiter. redisClient may be nil for local-only pacing.
func NewLimiter(redisClient *redis.Client, cfg Config, logger zerolog.Logger) *Limiter {
	limit := rate.Inf
	burst := cfg.Burst
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		if burst <= 0 {
			burst = cfg.RequestsPerSecond
		}
	}
	if burst <= 0 {
		burst = 1
	}

	return &Limiter{
		local:  rate.NewLimiter(limit, burst),
		redis:  redisClient,
		limit:  cfg.RequestsPerSecond,
		logger: logger,
		now:    time.Now,
	}
}

// Wait blocks until one request may be sent or ctx is done.
//
// The local bucket is always consulted. When Redis is configured the limiter
// then reserves a slot in the shared window, sleeping into the next window
// while the current one is full. Redis failures are logged and the request
// proceeds on local pacing alone.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}

	if err := l.local.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("local rate limit: %w", err)
	}

	if l.redis == nil || l.limit <= 0 {
		return nil
	}

	for {
		window, err := l.reserve(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			l.logger.Warn().Err(err).Msg("Shared rate limit unavailable, pacing locally")
			rateLimitFallbacksTotal.Inc()
			return nil
		}

		rateLimitWindowRequests.Set(float64(window.Count))
		if !window.Exceeded() {
			return nil
		}

		wait := window.TimeUntilNext(l.now())
		rateLimitThrottlesTotal.Inc()
		l.logger.Debug().
			Int64("window_requests", window.Count).
			Int("limit", window.Limit).
			Dur("wait", wait).
			Msg("Shared rate limit window full, waiting")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Usage returns the shared window containing the current time without
// reserving a slot.
func (l *Limiter) Usage(ctx context.Context) (Window, error) {
	now := l.now()
	window := Window{Start: WindowStart(now), Limit: l.limit}
	if l.redis == nil {
		return window, nil
	}

	count, err := l.redis.Get(ctx, WindowKey(now)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return Window{}, fmt.Errorf("get window count: %w", err)
	}
	window.Count = count
	return window, nil
}

// reserve increments the shared counter for the current window.
func (l *Limiter) reserve(ctx context.Context) (Window, error) {
	now := l.now()
	key := WindowKey(now)

	pipe := l.redis.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, windowTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return Window{}, fmt.Errorf("reserve rate limit window: %w", err)
	}

	return Window{
		Start: WindowStart(now),
		Count: incr.Val(),
		Limit: l.limit,
	}, nil
}
