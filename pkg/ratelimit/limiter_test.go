package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// setupTestRedis creates a Redis client against a local instance.
// Integration tests use testcontainers-go instead.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.RequestsPerSecond <= 0 {
		t.Errorf("RequestsPerSecond = %d, should be > 0", cfg.RequestsPerSecond)
	}
	if cfg.Burst <= 0 {
		t.Errorf("Burst = %d, should be > 0", cfg.Burst)
	}
}

func TestLimiter_NilAllows(t *testing.T) {
	var l *Limiter
	if err := l.Wait(context.Background()); err != nil {
		t.Errorf("nil limiter Wait() = %v, want nil", err)
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	l := NewLimiter(nil, Config{}, zerolog.Nop())

	ctx := context.Background()
	for i := 0; i < 100; i++ {
		if err := l.Wait(ctx); err != nil {
			t.Fatalf("Wait() #%d = %v, want nil", i, err)
		}
	}
}

func TestLimiter_LocalPacing(t *testing.T) {
	l := NewLimiter(nil, Config{RequestsPerSecond: 1, Burst: 1}, zerolog.Nop())

	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("first Wait() = %v, want nil", err)
	}

	// The bucket is empty; a short deadline cannot be met.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := l.Wait(ctx); err == nil {
		t.Error("second Wait() should fail before the bucket refills")
	}
}

func TestLimiter_CancelledContext(t *testing.T) {
	l := NewLimiter(nil, Config{RequestsPerSecond: 1, Burst: 1}, zerolog.Nop())
	_ = l.Wait(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := l.Wait(ctx); err != context.Canceled {
		t.Errorf("Wait() = %v, want context.Canceled", err)
	}
}

func TestLimiter_RedisUnavailableFallsBack(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	l := NewLimiter(client, Config{RequestsPerSecond: 10}, zerolog.Nop())

	if err := l.Wait(context.Background()); err != nil {
		t.Errorf("Wait() with unreachable Redis = %v, want nil (local fallback)", err)
	}
}

func TestLimiter_UsageWithoutRedis(t *testing.T) {
	l := NewLimiter(nil, Config{RequestsPerSecond: 3}, zerolog.Nop())

	w, err := l.Usage(context.Background())
	if err != nil {
		t.Fatalf("Usage() error = %v", err)
	}
	if w.Count != 0 || w.Limit != 3 {
		t.Errorf("Usage() = %+v, want count 0 limit 3", w)
	}
}

func TestLimiter_UsageEmptyWindow(t *testing.T) {
	client := setupTestRedis(t)

	l := NewLimiter(client, Config{RequestsPerSecond: 4}, zerolog.Nop())
	l.now = func() time.Time { return time.Unix(1700000100, 0) }

	w, err := l.Usage(context.Background())
	if err != nil {
		t.Fatalf("Usage() on missing window key error = %v, want nil", err)
	}
	if w.Count != 0 || w.Limit != 4 {
		t.Errorf("Usage() = %+v, want count 0 limit 4", w)
	}
}

func TestLimiter_UsageRedisUnavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	l := NewLimiter(client, Config{RequestsPerSecond: 4}, zerolog.Nop())

	if _, err := l.Usage(context.Background()); err == nil {
		t.Error("Usage() with unreachable Redis = nil, want error")
	}
}

func TestLimiter_ReserveSharedWindow(t *testing.T) {
	client := setupTestRedis(t)

	fixed := time.Unix(1700000000, 200*int64(time.Millisecond))
	first := NewLimiter(client, Config{RequestsPerSecond: 2}, zerolog.Nop())
	second := NewLimiter(client, Config{RequestsPerSecond: 2}, zerolog.Nop())
	first.now = func() time.Time { return fixed }
	second.now = func() time.Time { return fixed }

	ctx := context.Background()

	w, err := first.reserve(ctx)
	if err != nil {
		t.Fatalf("reserve() error = %v", err)
	}
	if w.Count != 1 || w.Exceeded() {
		t.Errorf("first reservation = %+v, want count 1 not exceeded", w)
	}

	w, err = second.reserve(ctx)
	if err != nil {
		t.Fatalf("reserve() error = %v", err)
	}
	if w.Count != 2 || w.Exceeded() {
		t.Errorf("second reservation = %+v, want count 2 not exceeded", w)
	}

	w, err = first.reserve(ctx)
	if err != nil {
		t.Fatalf("reserve() error = %v", err)
	}
	if !w.Exceeded() {
		t.Errorf("third reservation = %+v, want exceeded", w)
	}

	usage, err := second.Usage(ctx)
	if err != nil {
		t.Fatalf("Usage() error = %v", err)
	}
	if usage.Count != 3 {
		t.Errorf("Usage().Count = %d, want 3", usage.Count)
	}

	ttl, err := client.TTL(ctx, WindowKey(fixed)).Result()
	if err != nil {
		t.Fatalf("TTL error = %v", err)
	}
	if ttl <= 0 || ttl > windowTTL {
		t.Errorf("window key TTL = %v, want (0, %v]", ttl, windowTTL)
	}
}

func TestLimiter_WaitsForNextWindow(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()

	l := NewLimiter(client, Config{RequestsPerSecond: 5}, zerolog.Nop())

	// Another process already used the whole current window.
	now := time.Now()
	client.Set(ctx, WindowKey(now), 5, windowTTL)

	start := time.Now()
	if err := l.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	if WindowStart(time.Now()).Equal(WindowStart(now)) {
		t.Errorf("Wait() returned inside the full window after %v", time.Since(start))
	}
}
