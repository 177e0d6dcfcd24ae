package memcache

import (
	"sync"
	"testing"
	"time"
)

func TestPutGetRoundtrip(t *testing.T) {
	c := New[string, int](time.Minute)
	c.Put("a", 1)
	c.Put("b", 2)

	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a) = %d, %v; want 1, true", v, ok)
	}
	if v, ok := c.Get("b"); !ok || v != 2 {
		t.Fatalf("Get(b) = %d, %v; want 2, true", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatal("Get(missing) should miss")
	}
}

func TestGetExpiresOldEntries(t *testing.T) {
	c := New[string, string](time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Put("k", "v")
	if _, ok := c.Get("k"); !ok {
		t.Fatal("entry should be fresh")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Fatal("entry should have expired at read time")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry should be removed, len = %d", c.Len())
	}
}

func TestScrub(t *testing.T) {
	c := New[int, int](time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Put(1, 1)
	now = now.Add(2 * time.Minute)
	c.Put(2, 2)

	if !c.Scrub() {
		t.Fatal("Scrub should report a removal")
	}
	if c.Len() != 1 {
		t.Fatalf("len = %d, want 1", c.Len())
	}
	if c.Scrub() {
		t.Fatal("second Scrub should remove nothing")
	}
}

func TestZeroTTLNeverExpires(t *testing.T) {
	c := New[string, int](0)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Put("k", 42)
	now = now.Add(24 * time.Hour)
	if v, ok := c.Get("k"); !ok || v != 42 {
		t.Fatalf("Get(k) = %d, %v; want 42, true", v, ok)
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New[int, int](time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Put(n, j)
				c.Get(n)
				c.Scrub()
			}
		}(i)
	}
	wg.Wait()
}
