package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestRefillInterval(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rate float64
		want time.Duration
	}{
		{"one per second", 1, time.Second},
		{"sixty per minute", 60.0 / 60.0, time.Second},
		{"thirty per minute", 30.0 / 60.0, 2 * time.Second},
		{"zero", 0, time.Minute},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := refillInterval(tt.rate); got != tt.want {
				t.Errorf("refillInterval(%v) = %v, want %v", tt.rate, got, tt.want)
			}
		})
	}
}

func TestCheckSwipeRateLimit_DisabledSkipsRedis(t *testing.T) {
	t.Parallel()

	// Unreachable address: any Redis call would fail.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 10 * time.Millisecond})
	defer client.Close()
	c := NewFromClient(client)

	result, err := c.CheckSwipeRateLimit(context.Background(), "u1", 0, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Allowed || result.Remaining != 5 {
		t.Errorf("expected unlimited result, got %+v", result)
	}
}

func TestCheckSwipeRateLimit_FailsOpen(t *testing.T) {
	t.Parallel()

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 10 * time.Millisecond, MaxRetries: -1})
	defer client.Close()
	c := NewFromClient(client)

	result, err := c.CheckSwipeRateLimit(context.Background(), "u1", 60, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Allowed {
		t.Error("expected fail-open when Redis is unreachable")
	}
}
