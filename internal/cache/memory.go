package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ppiankov/roomwatch/internal/model"
)

// Memory is an expiring in-process coordinate cache
type Memory struct {
	items *gocache.Cache
}

// NewMemory creates a memory cache. ttl <= 0 keeps entries forever.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	return &Memory{items: gocache.New(ttl, 10*time.Minute)}
}

// Get returns the cached coordinate for key
func (m *Memory) Get(key string) (model.Coordinate, bool) {
	v, ok := m.items.Get(key)
	if !ok {
		return model.Coordinate{}, false
	}
	c, ok := v.(model.Coordinate)
	return c, ok
}

// Set stores c under key with the default TTL
func (m *Memory) Set(key string, c model.Coordinate) error {
	m.items.SetDefault(key, c)
	return nil
}

// Clear drops every entry
func (m *Memory) Clear() error {
	m.items.Flush()
	return nil
}

// Len reports the number of live entries
func (m *Memory) Len() int {
	return m.items.ItemCount()
}
