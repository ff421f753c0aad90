// Package cache holds the short-TTL answer cache with in-flight request
// coalescing.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/nolia/nolia/internal/model"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// Key derives the cache key from the caller partition (IP or anon ID) and
// the raw request body
func Key(partition string, body []byte) string {
	payload, _ := json.Marshal(struct {
		Partition string          `json:"partition"`
		Body      json.RawMessage `json:"body"`
	}{Partition: partition, Body: body})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// AskCache stores answers for a short TTL and coalesces concurrent misses
// on the same key into a single pipeline run. Storage and expiry ride on
// go-cache; the wrapper adds a FIFO capacity bound.
type AskCache struct {
	mu       sync.Mutex
	store    *gocache.Cache
	order    []string
	capacity int
	inflight singleflight.Group
}

// New creates an AskCache with the given TTL and entry capacity
func New(ttl time.Duration, capacity int) *AskCache {
	return &AskCache{
		store:    gocache.New(ttl, 2*ttl),
		capacity: capacity,
	}
}

// Get returns the unexpired cached answer for key, if any
func (c *AskCache) Get(key string) (*model.AskResponse, bool) {
	if v, ok := c.store.Get(key); ok {
		return v.(*model.AskResponse), true
	}
	return nil, false
}

// Set stores an answer under key for the cache TTL, evicting the
// earliest-inserted entries once the capacity is exceeded
func (c *AskCache) Set(key string, value *model.AskResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.store.Get(key); !exists {
		c.order = append(c.order, key)
	}
	c.store.Set(key, value, gocache.DefaultExpiration)
	for c.store.ItemCount() > c.capacity && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		c.store.Delete(oldest)
	}
}

// Do returns the cached answer for key or runs fn once, sharing its result
// with every concurrent caller of the same key. Only successful results are
// cached.
func (c *AskCache) Do(key string, fn func() (*model.AskResponse, error)) (*model.AskResponse, error) {
	if cached, ok := c.Get(key); ok {
		return cached, nil
	}
	v, err, _ := c.inflight.Do(key, func() (any, error) {
		if cached, ok := c.Get(key); ok {
			return cached, nil
		}
		resp, err := fn()
		if err != nil {
			return nil, err
		}
		c.Set(key, resp)
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.AskResponse), nil
}

// Len reports the current entry count
func (c *AskCache) Len() int {
	return c.store.ItemCount()
}
