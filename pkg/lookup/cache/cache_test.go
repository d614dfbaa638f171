package cache

import (
	"fmt"
	"testing"
	"time"
)

// fakeClock is an adjustable clock for TTL tests.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time           { return c.now }
func (c *fakeClock) Advance(d time.Duration)  { c.now = c.now.Add(d) }

type countingMetrics struct {
	hits, misses, evictions int
}

func (m *countingMetrics) Hit()      { m.hits++ }
func (m *countingMetrics) Miss()     { m.misses++ }
func (m *countingMetrics) Eviction() { m.evictions++ }

func TestTTLCache_GetPut(t *testing.T) {
	clock := newFakeClock()
	c := New[string, int](10, clock.Now, nil)

	if _, ok := c.Get("a"); ok {
		t.Error("empty cache should miss")
	}

	c.Put("a", 1, time.Minute)
	v, ok := c.Get("a")
	if !ok || v != 1 {
		t.Errorf("Get(a) = (%d, %v), want (1, true)", v, ok)
	}

	// replace updates value and TTL
	c.Put("a", 2, time.Minute)
	v, _ = c.Get("a")
	if v != 2 {
		t.Errorf("Get(a) after replace = %d, want 2", v)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestTTLCache_Expiry(t *testing.T) {
	clock := newFakeClock()
	c := New[string, int](10, clock.Now, nil)

	c.Put("a", 1, 30*time.Second)

	clock.Advance(29 * time.Second)
	if _, ok := c.Get("a"); !ok {
		t.Error("entry expired early")
	}

	clock.Advance(time.Second)
	if _, ok := c.Get("a"); ok {
		t.Error("entry should have expired at its TTL")
	}
	if c.Len() != 0 {
		t.Error("expired entry should be dropped on Get")
	}
}

func TestTTLCache_NonPositiveTTLNotInserted(t *testing.T) {
	clock := newFakeClock()
	c := New[string, int](10, clock.Now, nil)

	c.Put("a", 1, 0)
	c.Put("b", 2, -time.Second)
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestTTLCache_LRUEviction(t *testing.T) {
	clock := newFakeClock()
	metrics := &countingMetrics{}
	c := New[string, int](3, clock.Now, metrics)

	c.Put("a", 1, time.Hour)
	c.Put("b", 2, time.Hour)
	c.Put("c", 3, time.Hour)

	// touch "a" so "b" becomes LRU
	c.Get("a")

	c.Put("d", 4, time.Hour)

	if _, ok := c.Get("b"); ok {
		t.Error("LRU entry b should have been evicted")
	}
	for _, k := range []string{"a", "c", "d"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("entry %s should survive eviction", k)
		}
	}
	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}
	if metrics.evictions != 1 {
		t.Errorf("evictions = %d, want 1", metrics.evictions)
	}
}

func TestTTLCache_EvictsExactlyOnOverflow(t *testing.T) {
	clock := newFakeClock()
	metrics := &countingMetrics{}
	const n = 100
	c := New[int, int](n, clock.Now, metrics)

	for i := 0; i < n+1; i++ {
		c.Put(i, i, time.Hour)
	}
	if c.Len() != n {
		t.Errorf("Len() = %d, want %d", c.Len(), n)
	}
	if metrics.evictions != 1 {
		t.Errorf("evictions = %d, want 1", metrics.evictions)
	}
	if _, ok := c.Get(0); ok {
		t.Error("entry 0 was LRU and should have been evicted")
	}
}

func TestTTLCache_Metrics(t *testing.T) {
	clock := newFakeClock()
	metrics := &countingMetrics{}
	c := New[string, int](10, clock.Now, metrics)

	c.Get("a")
	c.Put("a", 1, time.Minute)
	c.Get("a")

	if metrics.misses != 1 || metrics.hits != 1 {
		t.Errorf("hits=%d misses=%d, want 1/1", metrics.hits, metrics.misses)
	}
}

func TestTTLCache_ConcurrentAccess(t *testing.T) {
	c := New[string, int](1000, nil, nil)
	done := make(chan struct{})
	for g := 0; g < 8; g++ {
		go func(g int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 500; i++ {
				key := fmt.Sprintf("%d-%d", g, i%50)
				c.Put(key, i, time.Minute)
				c.Get(key)
			}
		}(g)
	}
	for g := 0; g < 8; g++ {
		<-done
	}
}
