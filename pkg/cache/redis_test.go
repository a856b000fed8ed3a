package cache

import (
	"context"
	"os"
	"testing"
	"time"
)

// newTestRedis connects to TEXTART_REDIS_ADDR or skips the test.
func newTestRedis(t *testing.T) *RedisCache {
	t.Helper()
	addr := os.Getenv("TEXTART_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEXTART_REDIS_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := NewRedisCache(ctx, RedisConfig{Addr: addr})
	if err != nil {
		t.Fatalf("NewRedisCache() error: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestRedisCacheRoundTrip(t *testing.T) {
	c := newTestRedis(t)
	ctx := context.Background()
	key := "textart:test:" + t.Name()
	t.Cleanup(func() { _ = c.Delete(ctx, key) })

	if _, hit, err := c.Get(ctx, key); hit || err != nil {
		t.Fatalf("Get() before Set = %v, %v; want miss", hit, err)
	}
	if err := c.Set(ctx, key, []byte("##--\n"), time.Minute); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	data, hit, err := c.Get(ctx, key)
	if err != nil || !hit {
		t.Fatalf("Get() = %v, %v; want hit", hit, err)
	}
	if string(data) != "##--\n" {
		t.Errorf("Get() = %q, want %q", data, "##--\n")
	}
	if err := c.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, key); hit {
		t.Error("Get() should miss after Delete()")
	}
}

func TestNewRedisCacheUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	if _, err := NewRedisCache(ctx, RedisConfig{Addr: "127.0.0.1:1"}); err == nil {
		t.Error("NewRedisCache() should fail for an unreachable server")
	}
}
