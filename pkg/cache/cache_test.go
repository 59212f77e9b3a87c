package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestMemoryCachePutGet(t *testing.T) {
	c := NewMemoryCache(DefaultTTL)
	ctx := context.Background()

	if _, ok, _ := c.Get(ctx, "missing"); ok {
		t.Fatal("expected miss for unknown key")
	}

	payload := json.RawMessage(`{"steps": 100}`)
	if err := c.Put(ctx, "k", payload); err != nil {
		t.Fatal(err)
	}

	got, ok, err := c.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if string(got) != string(payload) {
		t.Errorf("payload = %s, want %s", got, payload)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(5 * time.Minute)
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	if err := c.Put(ctx, "k", json.RawMessage(`1`)); err != nil {
		t.Fatal(err)
	}

	// Just under the TTL: still served.
	now = now.Add(5*time.Minute - time.Second)
	if _, ok, _ := c.Get(ctx, "k"); !ok {
		t.Fatal("entry inside TTL should be a hit")
	}

	// Past the TTL: treated as absent and evicted on read.
	now = now.Add(2 * time.Second)
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatal("entry past TTL should be a miss")
	}

	c.mu.Lock()
	_, stillThere := c.entries["k"]
	c.mu.Unlock()
	if stillThere {
		t.Error("expired entry should have been evicted on read")
	}
}

func TestMemoryCacheOverwriteResetsClock(t *testing.T) {
	c := NewMemoryCache(5 * time.Minute)
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	c.Put(ctx, "k", json.RawMessage(`1`))
	now = now.Add(4 * time.Minute)
	c.Put(ctx, "k", json.RawMessage(`2`))
	now = now.Add(4 * time.Minute)

	got, ok, _ := c.Get(ctx, "k")
	if !ok {
		t.Fatal("rewritten entry should still be live 4m after the second Put")
	}
	if string(got) != "2" {
		t.Errorf("payload = %s, want 2", got)
	}
}
