package client

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	DefaultCacheTTL     = 5 * time.Minute
	defaultCacheCleanup = 10 * time.Minute
)

// QueryCache hält erfolgreiche Antworten je Pfad+Query. Er wird einmal pro
// Sitzung angelegt und mit Close geleert. Bei gleichem Schlüssel gewinnt der
// letzte Schreibzugriff.
type QueryCache struct {
	mu     sync.RWMutex
	cache  *gocache.Cache
	ttl    time.Duration
	closed bool
}

// NewQueryCache erstellt einen Cache; ttl <= 0 nutzt DefaultCacheTTL.
func NewQueryCache(ttl time.Duration) *QueryCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &QueryCache{cache: gocache.New(ttl, defaultCacheCleanup), ttl: ttl}
}

// Key bildet den Cache-Schlüssel aus Pfad und kodiertem Query.
func Key(path string, q *Query) string {
	return path + q.Encode()
}

// Get liefert den rohen Antwortkörper.
func (c *QueryCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, false
	}
	if val, found := c.cache.Get(key); found {
		return val.([]byte), true
	}
	return nil, false
}

// Set speichert body unter key.
func (c *QueryCache) Set(key string, body []byte) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	c.cache.Set(key, body, c.ttl)
}

// Invalidate entfernt einen Eintrag.
func (c *QueryCache) Invalidate(key string) {
	c.cache.Delete(key)
}

// Len liefert die Anzahl gültiger Einträge.
func (c *QueryCache) Len() int {
	return c.cache.ItemCount()
}

// Close leert den Cache; danach werden keine Einträge mehr angenommen.
func (c *QueryCache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.cache.Flush()
}
