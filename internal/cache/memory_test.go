package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestMemory_ImplementsFastCache(_ *testing.T) {
	var _ FastCache = (*Memory)(nil)
}

func TestMemory_SetAndGet(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(10, time.Minute)

	if err := c.Set(ctx, "key1", []byte("value1"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := c.Get(ctx, "key1")
	if err != nil {
		t.Fatalf("expected hit, got %v", err)
	}
	if string(got) != "value1" {
		t.Errorf("expected value1, got %s", got)
	}
}

func TestMemory_Miss(t *testing.T) {
	c := NewMemory(10, time.Minute)
	_, err := c.Get(context.Background(), "missing")
	if !errors.Is(err, ErrMiss) {
		t.Errorf("expected ErrMiss, got %v", err)
	}
}

func TestMemory_TTLExpiration(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(10, time.Minute)
	c.Set(ctx, "key1", []byte("v"), 10*time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	if _, err := c.Get(ctx, "key1"); !errors.Is(err, ErrMiss) {
		t.Errorf("expected ErrMiss after TTL, got %v", err)
	}
}

func TestMemory_DefaultTTL(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(10, 10*time.Millisecond)
	c.Set(ctx, "key1", []byte("v"), 0) // falls back to default

	time.Sleep(20 * time.Millisecond)
	if _, err := c.Get(ctx, "key1"); !errors.Is(err, ErrMiss) {
		t.Errorf("expected ErrMiss after default TTL, got %v", err)
	}
}

func TestMemory_LRUEviction(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(2, time.Minute)
	c.Set(ctx, "a", []byte("a"), 0)
	c.Set(ctx, "b", []byte("b"), 0)
	c.Set(ctx, "c", []byte("c"), 0) // should evict "a"

	if _, err := c.Get(ctx, "a"); !errors.Is(err, ErrMiss) {
		t.Error("expected 'a' to be evicted")
	}
	if _, err := c.Get(ctx, "b"); err != nil {
		t.Error("expected 'b' to be present")
	}
	if _, err := c.Get(ctx, "c"); err != nil {
		t.Error("expected 'c' to be present")
	}
}

func TestMemory_LRUAccessOrder(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(2, time.Minute)
	c.Set(ctx, "a", []byte("a"), 0)
	c.Set(ctx, "b", []byte("b"), 0)

	c.Get(ctx, "a") // access "a" — now "b" is LRU

	c.Set(ctx, "c", []byte("c"), 0) // should evict "b"

	if _, err := c.Get(ctx, "a"); err != nil {
		t.Error("expected 'a' to be present (recently accessed)")
	}
	if _, err := c.Get(ctx, "b"); !errors.Is(err, ErrMiss) {
		t.Error("expected 'b' to be evicted (LRU)")
	}
}

func TestMemory_Update(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(10, time.Minute)
	c.Set(ctx, "key1", []byte("old"), 0)
	c.Set(ctx, "key1", []byte("new"), 0)

	got, err := c.Get(ctx, "key1")
	if err != nil {
		t.Fatalf("expected hit, got %v", err)
	}
	if string(got) != "new" {
		t.Errorf("expected new, got %s", got)
	}
	if c.Len() != 1 {
		t.Errorf("expected len 1, got %d", c.Len())
	}
}

func TestMemory_Delete(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(10, time.Minute)
	c.Set(ctx, "key1", []byte("v"), 0)
	c.Delete(ctx, "key1")

	if _, err := c.Get(ctx, "key1"); !errors.Is(err, ErrMiss) {
		t.Error("expected miss after delete")
	}
	if c.Len() != 0 {
		t.Errorf("expected len 0, got %d", c.Len())
	}
}

func TestMemory_Concurrent(_ *testing.T) {
	ctx := context.Background()
	c := NewMemory(100, time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i%26)
			c.Set(ctx, key, []byte(key), 0)
			c.Get(ctx, key)
			c.Len()
		}(i)
	}
	wg.Wait()
}
