package cache

import (
	"context"
	"testing"
	"time"
)

func TestCache_SetGetExpire(t *testing.T) {
	ctx := context.Background()
	c := New[string, int](0)
	defer c.Close()

	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }

	c.Set(ctx, "pair", 7, time.Minute)
	c.Set(ctx, "forever", 1, 0)

	if v, ok := c.Get(ctx, "pair"); !ok || v != 7 {
		t.Fatalf("Get = %d, %v", v, ok)
	}

	now = now.Add(2 * time.Minute)

	if _, ok := c.Get(ctx, "pair"); ok {
		t.Error("expired entry returned")
	}
	if _, ok := c.Get(ctx, "forever"); !ok {
		t.Error("entry without ttl expired")
	}

	c.evict()
	if c.Len() != 1 {
		t.Errorf("Len after evict = %d, want 1", c.Len())
	}
}

func TestCache_Delete(t *testing.T) {
	ctx := context.Background()
	c := New[int, string](time.Hour)
	defer c.Close()

	c.Set(ctx, 1, "a", 0)
	c.Delete(ctx, 1)
	if _, ok := c.Get(ctx, 1); ok {
		t.Error("deleted entry returned")
	}
}
