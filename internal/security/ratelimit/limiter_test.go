package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterSlidingWindow(t *testing.T) {
	l := NewLimiter(2, time.Minute)
	defer l.Stop()
	clock := time.Now()
	l.now = func() time.Time { return clock }
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, "1.2.3.4"))
	assert.True(t, l.Allow(ctx, "1.2.3.4"))
	assert.False(t, l.Allow(ctx, "1.2.3.4"))
	assert.True(t, l.Allow(ctx, "5.6.7.8"), "keys are independent")

	clock = clock.Add(61 * time.Second)
	assert.True(t, l.Allow(ctx, "1.2.3.4"), "window slides")
}

func TestLimiterEmptyKeyUnlimited(t *testing.T) {
	l := NewLimiter(1, time.Minute)
	defer l.Stop()
	for i := 0; i < 5; i++ {
		assert.True(t, l.Allow(context.Background(), ""))
	}
}

func TestLimiterStopIsIdempotent(t *testing.T) {
	l := NewLimiter(1, time.Minute)
	l.Stop()
	l.Stop()
}

type fakeCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
	calls  int
}

func (f *fakeCounter) IncrWindow(_ context.Context, key string, _ time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	f.counts[key]++
	return f.counts[key], nil
}

func TestRedisLimiterFixedWindow(t *testing.T) {
	counter := &fakeCounter{counts: map[string]int64{}}
	l := NewRedisLimiter(counter, "login", 2, 15*time.Minute, nil)
	clock := time.Date(2024, 1, 1, 10, 1, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, "ip"))
	assert.True(t, l.Allow(ctx, "ip"))
	assert.False(t, l.Allow(ctx, "ip"))

	clock = clock.Add(15 * time.Minute)
	assert.True(t, l.Allow(ctx, "ip"), "next window starts fresh")
}

func TestRedisLimiterFailsOpen(t *testing.T) {
	counter := &fakeCounter{counts: map[string]int64{}, err: errors.New("connection refused")}
	l := NewRedisLimiter(counter, "api", 1, time.Minute, nil)
	assert.True(t, l.Allow(context.Background(), "ip"))
	assert.True(t, l.Allow(context.Background(), "ip"))
}

func TestRedisLimiterStopsCallingRedisWhenCircuitOpens(t *testing.T) {
	counter := &fakeCounter{counts: map[string]int64{}, err: errors.New("connection refused")}
	l := NewRedisLimiter(counter, "api", 1, time.Minute, nil)
	for i := 0; i < 10; i++ {
		assert.True(t, l.Allow(context.Background(), "ip"))
	}
	assert.Equal(t, 5, counter.calls)
}
