package data

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func nopClose(string) error { return nil }

func TestConnectionCacheGetPut(t *testing.T) {
	cache := newConnectionCache[string](10, time.Minute, nil, nopClose)
	defer cache.close()

	cache.put("a", "conn-a")
	if v, ok := cache.get("a"); !ok || v != "conn-a" {
		t.Fatalf("get(a) = %q, %v", v, ok)
	}
	if _, ok := cache.get("b"); ok {
		t.Fatal("get(b) should miss")
	}
}

func TestConnectionCacheExpiry(t *testing.T) {
	var mu sync.Mutex
	var closed []string
	cache := newConnectionCache[string](10, 50*time.Millisecond, nil, func(s string) error {
		mu.Lock()
		defer mu.Unlock()
		closed = append(closed, s)
		return nil
	})
	defer cache.close()

	cache.put("a", "conn-a")
	time.Sleep(80 * time.Millisecond)
	if _, ok := cache.get("a"); ok {
		t.Fatal("expired handle should miss")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(closed) == 0 || closed[0] != "conn-a" {
		t.Errorf("expired handle should be closed, closed = %v", closed)
	}
}

func TestConnectionCacheHealthCheck(t *testing.T) {
	healthy := true
	cache := newConnectionCache[string](10, time.Minute, func(string) error {
		if !healthy {
			return errors.New("gone")
		}
		return nil
	}, nopClose)
	defer cache.close()

	cache.put("a", "conn-a")
	if _, ok := cache.get("a"); !ok {
		t.Fatal("healthy handle should hit")
	}
	healthy = false
	if _, ok := cache.get("a"); ok {
		t.Fatal("unhealthy handle should miss")
	}
	if cache.size() != 0 {
		t.Errorf("size = %d, want 0", cache.size())
	}
}

func TestConnectionCacheEvictsLeastRecentlyUsed(t *testing.T) {
	cache := newConnectionCache[string](2, time.Minute, nil, nopClose)
	defer cache.close()

	cache.put("a", "conn-a")
	time.Sleep(time.Millisecond)
	cache.put("b", "conn-b")
	time.Sleep(time.Millisecond)
	cache.get("a")
	cache.put("c", "conn-c")

	if _, ok := cache.get("b"); ok {
		t.Error("b was least recently used and should be evicted")
	}
	for _, key := range []string{"a", "c"} {
		if _, ok := cache.get(key); !ok {
			t.Errorf("%s should remain", key)
		}
	}
}

func TestConnectionCacheReplaceClosesOld(t *testing.T) {
	var closed []string
	cache := newConnectionCache[string](10, time.Minute, nil, func(s string) error {
		closed = append(closed, s)
		return nil
	})
	defer cache.close()

	cache.put("a", "first")
	cache.put("a", "second")
	if v, _ := cache.get("a"); v != "second" {
		t.Errorf("get(a) = %q", v)
	}
	if len(closed) != 1 || closed[0] != "first" {
		t.Errorf("closed = %v", closed)
	}
}

func TestConnectionCacheConcurrent(t *testing.T) {
	cache := newConnectionCache[string](50, time.Minute, nil, nopClose)
	defer cache.close()

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 100 {
				key := fmt.Sprintf("k%d", (i*100+j)%60)
				cache.put(key, key)
				cache.get(key)
			}
		}()
	}
	wg.Wait()
	if cache.size() > 50 {
		t.Errorf("size = %d exceeds max", cache.size())
	}
}

func TestConnectionCacheClose(t *testing.T) {
	closed := 0
	cache := newConnectionCache[string](10, time.Minute, nil, func(string) error {
		closed++
		return nil
	})
	cache.put("a", "a")
	cache.put("b", "b")
	if err := cache.close(); err != nil {
		t.Fatal(err)
	}
	if closed != 2 || cache.size() != 0 {
		t.Errorf("closed = %d, size = %d", closed, cache.size())
	}
	if err := cache.close(); err != nil {
		t.Errorf("second close: %v", err)
	}
}
