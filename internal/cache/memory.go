// Package cache provides a thread-safe in-memory cache with TTL support.
package cache

import (
	"errors"
	"sync"
	"time"
)

// ErrCacheMiss is returned when a key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

type entry[V any] struct {
	value      V
	expiration time.Time
}

// Memory is a key/value cache whose entries expire after a TTL.
// Concurrent writers to one key are last-write-wins.
type Memory[V any] struct {
	ttl  time.Duration
	data map[string]entry[V]
	mu   sync.RWMutex

	now  func() time.Time
	stop chan struct{}
	once sync.Once
}

// NewMemory creates a cache with a default TTL and starts a background sweep
// of expired entries every interval. An interval <= 0 disables the sweep.
func NewMemory[V any](ttl, interval time.Duration) *Memory[V] {
	c := &Memory[V]{
		ttl:  ttl,
		data: make(map[string]entry[V]),
		now:  time.Now,
		stop: make(chan struct{}),
	}
	if interval > 0 {
		go c.cleanupExpired(interval)
	}
	return c
}

// Get retrieves a value from the cache.
func (c *Memory[V]) Get(key string) (V, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var zero V
	item, ok := c.data[key]
	if !ok || c.now().After(item.expiration) {
		return zero, ErrCacheMiss
	}
	return item.value, nil
}

// Set stores a value with the cache's default TTL.
func (c *Memory[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores a value that expires after ttl.
func (c *Memory[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = entry[V]{value: value, expiration: c.now().Add(ttl)}
}

// Delete removes a value from the cache.
func (c *Memory[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

// TTL returns the default entry lifetime.
func (c *Memory[V]) TTL() time.Duration { return c.ttl }

// Size returns the number of stored entries, expired ones included until swept.
func (c *Memory[V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Clear removes all items from the cache.
func (c *Memory[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]entry[V])
}

// Close stops the background sweep.
func (c *Memory[V]) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *Memory[V]) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *Memory[V]) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for key, item := range c.data {
		if now.After(item.expiration) {
			delete(c.data, key)
		}
	}
}
