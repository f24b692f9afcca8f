package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type testConfig struct {
	TenantID string `json:"tenantId"`
	Primary  string `json:"primary"`
}

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCacheRoundTrip(t *testing.T) {
	_, client := newTestClient(t)
	c := New[testConfig](client, "branding:", DefaultTTL)
	ctx := context.Background()

	want := testConfig{TenantID: "t1", Primary: "hsl(222.2 47.4% 11.2%)"}
	if err := c.Set(ctx, "t1", want, 0); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, ok := c.Get(ctx, "t1")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestCacheMissAfterExpiry(t *testing.T) {
	mr, client := newTestClient(t)
	c := New[testConfig](client, "branding:", DefaultTTL)
	ctx := context.Background()

	if err := c.Set(ctx, "t1", testConfig{TenantID: "t1"}, ShortTTL); err != nil {
		t.Fatalf("set: %v", err)
	}
	// Expire both tiers: miniredis needs an explicit fast-forward, and the
	// memory tier entry is dropped so the stale mirror is the only copy.
	mr.FastForward(ShortTTL + time.Second)
	c.Drop("t1")

	if _, ok := c.Get(ctx, "t1"); ok {
		t.Fatal("expected miss after ttl expiry")
	}
}

func TestCacheRehydratesFromMirror(t *testing.T) {
	mr, client := newTestClient(t)
	writer := New[testConfig](client, "branding:", DefaultTTL)
	ctx := context.Background()

	want := testConfig{TenantID: "t2", Primary: "hsl(210 40% 96.1%)"}
	if err := writer.Set(ctx, "t2", want, 0); err != nil {
		t.Fatalf("set: %v", err)
	}

	// A second cache instance simulates a fresh process sharing the mirror.
	reader := New[testConfig](redis.NewClient(&redis.Options{Addr: mr.Addr()}), "branding:", DefaultTTL)
	got, ok := reader.Get(ctx, "t2")
	if !ok {
		t.Fatal("expected rehydration from mirror")
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	// Rehydration must populate the memory tier too.
	if _, ok := reader.mem.Get("branding:t2"); !ok {
		t.Fatal("expected memory tier to hold rehydrated entry")
	}
}

func TestCacheRejectsStaleMirrorEntry(t *testing.T) {
	mr, client := newTestClient(t)
	c := New[testConfig](client, "branding:", DefaultTTL)
	ctx := context.Background()

	// An envelope whose expiresAt is in the past must be treated as a miss
	// even if the Redis key itself has not been evicted yet.
	mr.Set("branding:t3", `{"value":{"tenantId":"t3"},"expiresAt":1}`)

	if _, ok := c.Get(ctx, "t3"); ok {
		t.Fatal("expected stale envelope to be rejected")
	}
	if mr.Exists("branding:t3") {
		t.Fatal("expected stale envelope to be deleted")
	}
}

func TestCacheInvalidate(t *testing.T) {
	mr, client := newTestClient(t)
	c := New[testConfig](client, "branding:", DefaultTTL)
	ctx := context.Background()

	if err := c.Set(ctx, "t1", testConfig{TenantID: "t1"}, 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := c.Invalidate(ctx, "t1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok := c.Get(ctx, "t1"); ok {
		t.Fatal("expected miss after invalidate")
	}
	if mr.Exists("branding:t1") {
		t.Fatal("expected mirror key to be removed")
	}
}

func TestCacheClearSweepsPrefix(t *testing.T) {
	mr, client := newTestClient(t)
	c := New[testConfig](client, "branding:", DefaultTTL)
	ctx := context.Background()

	for _, key := range []string{"t1", "t2", "t3"} {
		if err := c.Set(ctx, key, testConfig{TenantID: key}, 0); err != nil {
			t.Fatalf("set %s: %v", key, err)
		}
	}
	// Keys outside the prefix must survive the sweep.
	mr.Set("session:abc", "keep")

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	for _, key := range []string{"t1", "t2", "t3"} {
		if _, ok := c.Get(ctx, key); ok {
			t.Fatalf("expected %s to be cleared", key)
		}
	}
	if !mr.Exists("session:abc") {
		t.Fatal("clear must not touch keys outside its prefix")
	}
}

func TestCacheMemoryOnly(t *testing.T) {
	c := New[testConfig](nil, "branding:", DefaultTTL)
	ctx := context.Background()

	want := testConfig{TenantID: "t1"}
	if err := c.Set(ctx, "t1", want, 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok := c.Get(ctx, "t1")
	if !ok || got != want {
		t.Fatalf("got %+v ok=%v, want %+v", got, ok, want)
	}
	if err := c.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok := c.Get(ctx, "t1"); ok {
		t.Fatal("expected miss after clear")
	}
}
