package data

import (
	"sync"
	"time"
)

// connectionCache keeps opened handles keyed by driver and DSN, expiring them
// after ttl and evicting the least recently used one when full.
type connectionCache[T any] struct {
	mu          sync.RWMutex
	conns       map[string]*cachedConn[T]
	maxSize     int
	ttl         time.Duration
	cleanupTick time.Duration
	healthCheck func(T) error
	closeFunc   func(T) error
	cleanupOnce sync.Once
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

type cachedConn[T any] struct {
	conn      T
	createdAt time.Time
	lastUsed  time.Time
}

func newConnectionCache[T any](maxSize int, ttl time.Duration, healthCheck func(T) error, closeFunc func(T) error) *connectionCache[T] {
	return &connectionCache[T]{
		conns:       make(map[string]*cachedConn[T]),
		maxSize:     maxSize,
		ttl:         ttl,
		cleanupTick: min(ttl, 5*time.Minute),
		healthCheck: healthCheck,
		closeFunc:   closeFunc,
		stopCleanup: make(chan struct{}),
	}
}

// get returns a live handle for key. Expired or unhealthy handles are closed
// and reported as missing.
func (c *connectionCache[T]) get(key string) (T, bool) {
	var zero T

	c.mu.RLock()
	cached, ok := c.conns[key]
	c.mu.RUnlock()
	if !ok {
		return zero, false
	}

	now := time.Now()
	if now.Sub(cached.createdAt) > c.ttl {
		c.remove(key, cached)
		return zero, false
	}
	if c.healthCheck != nil {
		if err := c.healthCheck(cached.conn); err != nil {
			c.remove(key, cached)
			return zero, false
		}
	}

	c.mu.Lock()
	cached.lastUsed = now
	c.mu.Unlock()
	return cached.conn, true
}

// remove closes and drops key if it still holds cached.
func (c *connectionCache[T]) remove(key string, cached *cachedConn[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conns[key] != cached {
		return
	}
	_ = c.closeFunc(cached.conn)
	delete(c.conns, key)
}

// put stores conn under key, replacing and closing any previous handle.
func (c *connectionCache[T]) put(key string, conn T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.conns[key]; ok {
		_ = c.closeFunc(old.conn)
		delete(c.conns, key)
	}
	if len(c.conns) >= c.maxSize {
		c.evictLRU()
	}

	now := time.Now()
	c.conns[key] = &cachedConn[T]{conn: conn, createdAt: now, lastUsed: now}

	c.cleanupOnce.Do(func() {
		go c.cleanup()
	})
}

// evictLRU drops the least recently used handle. Caller holds the lock.
func (c *connectionCache[T]) evictLRU() {
	var oldestKey string
	var oldest *cachedConn[T]
	for key, cached := range c.conns {
		if oldest == nil || cached.lastUsed.Before(oldest.lastUsed) {
			oldestKey, oldest = key, cached
		}
	}
	if oldest != nil {
		_ = c.closeFunc(oldest.conn)
		delete(c.conns, oldestKey)
	}
}

func (c *connectionCache[T]) cleanup() {
	ticker := time.NewTicker(c.cleanupTick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.evictStale()
		case <-c.stopCleanup:
			return
		}
	}
}

func (c *connectionCache[T]) evictStale() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, cached := range c.conns {
		if now.Sub(cached.createdAt) > c.ttl {
			_ = c.closeFunc(cached.conn)
			delete(c.conns, key)
		}
	}
}

// close stops the cleanup goroutine and closes every handle.
func (c *connectionCache[T]) close() error {
	c.stopOnce.Do(func() {
		close(c.stopCleanup)
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for key, cached := range c.conns {
		if err := c.closeFunc(cached.conn); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(c.conns, key)
	}
	return firstErr
}

func (c *connectionCache[T]) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.conns)
}
