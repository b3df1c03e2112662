package ratelimit

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/kushtati/kushtati-immo-api/internal/reliability/circuitbreaker"
)

// windowCounter is satisfied by the Redis client wrapper.
type windowCounter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisLimiter is a fixed-window limiter shared by every API replica.
// When Redis fails the request is let through and the error logged; after
// repeated failures Redis is skipped until the circuit's timeout passes.
type RedisLimiter struct {
	counter windowCounter
	name    string
	maxReqs int
	window  time.Duration
	logger  *slog.Logger
	breaker *circuitbreaker.CircuitBreaker
	now     func() time.Time
}

func NewRedisLimiter(counter windowCounter, name string, maxRequests int, window time.Duration, logger *slog.Logger) *RedisLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	breaker := circuitbreaker.NewCircuitBreaker(5, 1, 30*time.Second)
	breaker.SetStateChangeCallback(func(from, to circuitbreaker.State) {
		logger.Warn("rate limiter circuit changed state",
			slog.String("limiter", name),
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})
	return &RedisLimiter{
		counter: counter,
		name:    name,
		maxReqs: maxRequests,
		window:  window,
		logger:  logger,
		breaker: breaker,
		now:     time.Now,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) bool {
	if key == "" {
		return true
	}
	slot := l.now().UnixNano() / int64(l.window)
	redisKey := "ratelimit:" + l.name + ":" + key + ":" + strconv.FormatInt(slot, 10)

	// While the circuit is open Redis is not called at all.
	if !l.breaker.AllowRequest() {
		return true
	}
	count, err := l.counter.IncrWindow(ctx, redisKey, l.window)
	if err != nil {
		l.breaker.RecordFailure()
		l.logger.Error("rate limiter unavailable, allowing request",
			slog.String("limiter", l.name),
			slog.String("error", err.Error()),
		)
		return true
	}
	l.breaker.RecordSuccess()
	return count <= int64(l.maxReqs)
}
