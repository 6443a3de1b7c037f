package resultcache

import (
	"context"
	"testing"
	"time"

	"github.com/beetlebugorg/shapefile/pkg/geom"
)

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(2, time.Minute)

	if _, ok := m.Get(ctx, "a"); ok {
		t.Fatal("Get on empty cache hit")
	}
	_ = m.Set(ctx, "a", []byte("1"))
	_ = m.Set(ctx, "b", []byte("2"))

	// Touch a so b is the eviction victim.
	if v, ok := m.Get(ctx, "a"); !ok || string(v) != "1" {
		t.Fatalf("Get(a) = %q, %v", v, ok)
	}
	_ = m.Set(ctx, "c", []byte("3"))

	if _, ok := m.Get(ctx, "b"); ok {
		t.Error("b survived eviction")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok := m.Get(ctx, k); !ok {
			t.Errorf("%s was evicted", k)
		}
	}
	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}

	_ = m.Set(ctx, "a", []byte("updated"))
	if v, _ := m.Get(ctx, "a"); string(v) != "updated" {
		t.Errorf("Get(a) after overwrite = %q", v)
	}
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(10, time.Second)
	now := time.Unix(1000, 0)
	m.now = func() time.Time { return now }

	_ = m.Set(ctx, "k", []byte("v"))
	now = now.Add(999 * time.Millisecond)
	if _, ok := m.Get(ctx, "k"); !ok {
		t.Fatal("entry expired early")
	}
	now = now.Add(time.Millisecond)
	if _, ok := m.Get(ctx, "k"); ok {
		t.Error("entry outlived its ttl")
	}
	if m.Len() != 0 {
		t.Errorf("expired entry not dropped, Len() = %d", m.Len())
	}
}

func TestMemoryDefaultsAndClose(t *testing.T) {
	m := NewMemory(0, 0)
	if m.size != DefaultSize || m.ttl != DefaultTTL {
		t.Errorf("defaults = %d, %v", m.size, m.ttl)
	}
	_ = m.Set(context.Background(), "k", []byte("v"))
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if m.Len() != 0 {
		t.Errorf("Len() after Close = %d", m.Len())
	}
}

func TestKeys(t *testing.T) {
	if GeocodeKey("São Paulo", 1) != GeocodeKey("  sao   PAULO ", 1) {
		t.Error("equivalent inputs produced different keys")
	}
	if GeocodeKey("Main St, Anytown", 1) == GeocodeKey("Main St Anytown", 1) {
		t.Error("comma placement not part of the key")
	}
	if GeocodeKey("Main St., Anytown", 1) != GeocodeKey("main st ,anytown", 1) {
		t.Error("parts that normalize alike produced different keys")
	}
	if GeocodeKey("Texas", 1) == GeocodeKey("Texas", 5) {
		t.Error("limit not part of the key")
	}
	a := ReverseKey(geom.Point{X: 1.0000001, Y: 2}, 100)
	b := ReverseKey(geom.Point{X: 1.0000002, Y: 2}, 100)
	if a != b {
		t.Errorf("ReverseKey does not round: %q vs %q", a, b)
	}
	if a == ReverseKey(geom.Point{X: 1, Y: 2}, 50) {
		t.Error("max distance not part of the key")
	}
}

func TestRedisOptionsFromEnv(t *testing.T) {
	t.Setenv("REDIS_HOST", "")
	t.Setenv("REDIS_PORT", "")
	t.Setenv("REDIS_PASS", "")
	t.Setenv("REDIS_DB", "")
	if o := RedisOptionsFromEnv(); o.Addr != "127.0.0.1:6379" || o.DB != 0 {
		t.Errorf("defaults = %+v", o)
	}

	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_PASS", "secret")
	t.Setenv("REDIS_DB", "3")
	o := RedisOptionsFromEnv()
	if o.Addr != "cache:6380" || o.Password != "secret" || o.DB != 3 {
		t.Errorf("from env = %+v", o)
	}
}

func TestNop(t *testing.T) {
	var c Cache = Nop{}
	_ = c.Set(context.Background(), "k", []byte("v"))
	if _, ok := c.Get(context.Background(), "k"); ok {
		t.Error("Nop cache hit")
	}
}
